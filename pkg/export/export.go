// Package export builds the versioned JSON document a finished collection is
// saved as.
package export

import (
	"encoding/json"
	"time"

	"github.com/ZUGAZ/likes-to-go/pkg/collection"
	"github.com/ZUGAZ/likes-to-go/pkg/track"
)

const (
	FormatVersion = 1

	// TimestampLayout is ISO-8601 in UTC with millisecond precision
	TimestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

// Payload is the export document. It is built once and not modified afterwards.
type Payload struct {
	FormatVersion int           `json:"format_version"`
	ExportedAt    string        `json:"exported_at"`
	SourceURL     string        `json:"source_url"`
	TrackCount    int           `json:"track_count"`
	Tracks        []track.Track `json:"tracks"`
}

// Options overrides the defaulted payload fields
type Options struct {
	// ExportedAt defaults to the time Build is called
	ExportedAt time.Time
	// ExportedAtText is used verbatim when set and wins over ExportedAt
	ExportedAtText string
	// SourceURL defaults to the likes page
	SourceURL string
	// Now is the clock used for the ExportedAt default
	Now func() time.Time
}

// Build creates the payload for tracks
func Build(tracks []track.Track, opts Options) Payload {
	exportedAt := opts.ExportedAtText
	if exportedAt == "" {
		at := opts.ExportedAt
		if at.IsZero() {
			now := opts.Now
			if now == nil {
				now = time.Now
			}
			at = now()
		}
		exportedAt = at.UTC().Format(TimestampLayout)
	}

	source := opts.SourceURL
	if source == "" {
		source = collection.DefaultStartURL
	}

	copied := make([]track.Track, len(tracks))
	copy(copied, tracks)

	return Payload{
		FormatVersion: FormatVersion,
		ExportedAt:    exportedAt,
		SourceURL:     source,
		TrackCount:    len(copied),
		Tracks:        copied,
	}
}

// Marshal renders the payload as indented JSON
func (p Payload) Marshal() ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// Decode reads an export file back, validating every track
func Decode(data []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, err
	}
	return p, nil
}
