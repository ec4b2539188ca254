package extract

import (
	"errors"
	"fmt"

	"github.com/andybalholm/cascadia"
)

// Default selectors for the likes page markup
const (
	DefaultListContainer = ".lazyLoadingList__list"
	DefaultCard          = ".soundList__item"
	DefaultTitle         = ".soundTitle__title"
	DefaultArtist        = ".soundTitle__username"
	DefaultLink          = "a[href]"
	DefaultDuration      = ".playbackTimeline__duration"
)

// Selectors is the table of CSS selectors the extractor reads cards with.
// Everything except ListContainer and Card is relative to a card.
type Selectors struct {
	ListContainer string `yaml:"list_container" json:"list_container"`
	Card          string `yaml:"card" json:"card"`
	Title         string `yaml:"title" json:"title"`
	Artist        string `yaml:"artist" json:"artist"`
	Link          string `yaml:"link" json:"link"`
	Duration      string `yaml:"duration" json:"duration"`
}

// DefaultSelectors returns the selector table for the current page layout
func DefaultSelectors() Selectors {
	return Selectors{
		ListContainer: DefaultListContainer,
		Card:          DefaultCard,
		Title:         DefaultTitle,
		Artist:        DefaultArtist,
		Link:          DefaultLink,
		Duration:      DefaultDuration,
	}
}

// WithDefaults fills empty entries from the default table
func (s Selectors) WithDefaults() Selectors {
	d := DefaultSelectors()
	if s.ListContainer == "" {
		s.ListContainer = d.ListContainer
	}
	if s.Card == "" {
		s.Card = d.Card
	}
	if s.Title == "" {
		s.Title = d.Title
	}
	if s.Artist == "" {
		s.Artist = d.Artist
	}
	if s.Link == "" {
		s.Link = d.Link
	}
	if s.Duration == "" {
		s.Duration = d.Duration
	}
	return s
}

// Validate compiles every selector so a typo fails at startup instead of
// silently matching nothing
func (s Selectors) Validate() error {
	var errs []error
	for name, sel := range map[string]string{
		"list_container": s.ListContainer,
		"card":           s.Card,
		"title":          s.Title,
		"artist":         s.Artist,
		"link":           s.Link,
		"duration":       s.Duration,
	} {
		if sel == "" {
			errs = append(errs, fmt.Errorf("selector %s is empty", name))
			continue
		}
		if _, err := cascadia.Compile(sel); err != nil {
			errs = append(errs, fmt.Errorf("selector %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
