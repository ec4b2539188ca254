// Package scrapeloop repeatedly reads a rendered page, reports new tracks and
// asks the page for more until nothing new shows up.
package scrapeloop

import (
	"context"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ZUGAZ/likes-to-go/pkg/extract"
	"github.com/ZUGAZ/likes-to-go/pkg/logger"
	"github.com/ZUGAZ/likes-to-go/pkg/message"
	"github.com/ZUGAZ/likes-to-go/pkg/pacing"
	"github.com/ZUGAZ/likes-to-go/pkg/track"
)

const (
	DefaultStagnationPasses = 3
	DefaultSettleWait       = 1500 * time.Millisecond
)

// Surface is the rendered page the loop scrapes
type Surface interface {
	// Root returns the track list container, or nil when it is gone
	Root() *goquery.Selection
	BaseURL() string
	// LoadMore asks the page for the next chunk of cards
	LoadMore(ctx context.Context) error
	Valid() bool
}

// Reporter sends a message to the control side
type Reporter interface {
	Report(ctx context.Context, m message.Message) error
}

// Config holds the loop tunables
type Config struct {
	StagnationPasses    int
	SettleWait          time.Duration
	MaxActionsPerMinute int
}

func (c Config) withDefaults() Config {
	if c.StagnationPasses <= 0 {
		c.StagnationPasses = DefaultStagnationPasses
	}
	if c.SettleWait <= 0 {
		c.SettleWait = DefaultSettleWait
	}
	if c.MaxActionsPerMinute <= 0 {
		c.MaxActionsPerMinute = pacing.DefaultMaxActionsPerMinute
	}
	return c
}

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// DelayObserver sees every paced wait, in milliseconds
type DelayObserver func(ms int64)

// Driver runs the loop. Clock, sleeper and randomness are injectable so
// tests do not wait for real.
type Driver struct {
	extractor *extract.Extractor
	cfg       Config
	log       logger.Logger

	rng     pacing.RandomSource
	now     func() time.Time
	sleep   SleepFunc
	observe DelayObserver
}

// Option configures a Driver
type Option func(*Driver)

func WithLogger(l logger.Logger) Option      { return func(d *Driver) { d.log = l } }
func WithRandom(r pacing.RandomSource) Option { return func(d *Driver) { d.rng = r } }
func WithClock(now func() time.Time) Option   { return func(d *Driver) { d.now = now } }
func WithSleep(s SleepFunc) Option            { return func(d *Driver) { d.sleep = s } }
func WithDelayObserver(o DelayObserver) Option {
	return func(d *Driver) { d.observe = o }
}

// NewDriver creates a Driver
func NewDriver(extractor *extract.Extractor, cfg Config, opts ...Option) *Driver {
	d := &Driver{
		extractor: extractor,
		cfg:       cfg.withDefaults(),
		log:       logger.NewNopLogger(),
		rng:       rand.Float64,
		now:       time.Now,
		sleep:     Sleep,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Sleep waits for d, returning early with ctx's error when ctx is done
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Run scrapes surface until it stagnates, the page goes away or cancelled is
// set. collection-complete is reported only for a run that ended on its own.
func (d *Driver) Run(ctx context.Context, surface Surface, cancelled *atomic.Bool, reporter Reporter) {
	pacer := pacing.NewPacer(d.rng, d.cfg.MaxActionsPerMinute)
	active := func() bool {
		return ctx.Err() == nil && surface.Valid() && !cancelled.Load()
	}

	previousCount := 0
	passesWithNoNewTracks := 0

	for pass := 1; active(); pass++ {
		raw := d.extractor.Extract(ctx, surface.Root(), surface.BaseURL())
		tracks := track.DecodeAll(raw)

		if len(tracks) > 0 {
			if err := reporter.Report(ctx, message.TracksBatch{Tracks: tracks}); err != nil {
				d.log.WithError(err).Warn("Batch report failed, stopping")
				_ = reporter.Report(ctx, message.CollectionError{Message: err.Error()})
				return
			}
			logger.LogBatch(d.log, len(tracks), len(raw))
		}

		if len(raw) <= previousCount {
			passesWithNoNewTracks++
			if passesWithNoNewTracks >= d.cfg.StagnationPasses {
				break
			}
		} else {
			passesWithNoNewTracks = 0
		}
		previousCount = len(raw)

		wait := pacer.Next(d.now())
		logger.LogPacing(d.log, wait, pass)
		if d.observe != nil {
			d.observe(wait.Milliseconds())
		}
		_ = d.sleep(ctx, wait)

		if !active() {
			break
		}

		if err := surface.LoadMore(ctx); err != nil {
			// nothing more to load; stagnation ends the loop
			d.log.WithError(err).Debug("Load more failed")
		}
		_ = d.sleep(ctx, d.cfg.SettleWait)
	}

	if active() {
		if err := reporter.Report(ctx, message.CollectionComplete{}); err != nil {
			d.log.WithError(err).Warn("Completion report failed")
		}
	}
}
