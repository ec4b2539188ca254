package scrapeloop

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZUGAZ/likes-to-go/pkg/extract"
	"github.com/ZUGAZ/likes-to-go/pkg/message"
)

func card(slug string) string {
	return fmt.Sprintf(`<li class="soundList__item">
		<a href="/artist/%[1]s">%[1]s</a>
		<span class="soundTitle__title">%[1]s</span>
		<span class="soundTitle__username">Artist</span>
		<span class="playbackTimeline__duration">1:00</span>
	</li>`, slug)
}

// fakeSurface serves chunks of cards; each LoadMore appends the next chunk
type fakeSurface struct {
	t       *testing.T
	doc     *goquery.Document
	pending []string
	valid   atomic.Bool
	loads   int
	onLoad  func(n int)
}

func newFakeSurface(t *testing.T, first string, more ...string) *fakeSurface {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<html><body><div class="lazyLoadingList__list">` + first + `</div></body></html>`))
	require.NoError(t, err)
	s := &fakeSurface{t: t, doc: doc, pending: more}
	s.valid.Store(true)
	return s
}

func (s *fakeSurface) Root() *goquery.Selection {
	return s.doc.Find(".lazyLoadingList__list").First()
}

func (s *fakeSurface) BaseURL() string { return "https://soundcloud.com" }
func (s *fakeSurface) Valid() bool     { return s.valid.Load() }

func (s *fakeSurface) LoadMore(context.Context) error {
	s.loads++
	if s.onLoad != nil {
		s.onLoad(s.loads)
	}
	if len(s.pending) == 0 {
		return stderrors.New("no next page")
	}
	s.Root().AppendHtml(s.pending[0])
	s.pending = s.pending[1:]
	return nil
}

type recorder struct {
	mu       sync.Mutex
	messages []message.Message
	failOn   message.Type
}

func (r *recorder) Report(_ context.Context, m message.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.Type() == r.failOn {
		return stderrors.New("receiving end does not exist")
	}
	r.messages = append(r.messages, m)
	return nil
}

func (r *recorder) types() []message.Type {
	var out []message.Type
	for _, m := range r.messages {
		out = append(out, m.Type())
	}
	return out
}

type fakeTime struct {
	now    time.Time
	sleeps []time.Duration
}

func (f *fakeTime) clock() time.Time { return f.now }

func (f *fakeTime) sleep(ctx context.Context, d time.Duration) error {
	f.sleeps = append(f.sleeps, d)
	f.now = f.now.Add(d)
	return ctx.Err()
}

func newDriver(ft *fakeTime, cfg Config) *Driver {
	return NewDriver(extract.New(extract.Selectors{}), cfg,
		WithClock(ft.clock),
		WithSleep(ft.sleep),
		WithRandom(func() float64 { return 0.5 }),
	)
}

func TestRunStopsAfterStagnation(t *testing.T) {
	surface := newFakeSurface(t, card("a")+card("b"), card("c"))
	rec := &recorder{}
	ft := &fakeTime{now: time.Unix(1_700_000_000, 0)}

	var cancelled atomic.Bool
	newDriver(ft, Config{}).Run(context.Background(), surface, &cancelled, rec)

	// pass 1: 2 raw, grows. pass 2: 3 raw, grows. passes 3-5: stagnant
	types := rec.types()
	require.Len(t, types, 6)
	for _, tp := range types[:5] {
		assert.Equal(t, message.TypeTracksBatch, tp)
	}
	assert.Equal(t, message.TypeCollectionComplete, types[5])

	assert.Len(t, rec.messages[0].(message.TracksBatch).Tracks, 2)
	assert.Len(t, rec.messages[1].(message.TracksBatch).Tracks, 3)
	assert.Equal(t, 4, surface.loads)

	// paced wait then settle wait per completed pass
	require.Len(t, ft.sleeps, 8)
	for i := 0; i < len(ft.sleeps); i += 2 {
		assert.GreaterOrEqual(t, ft.sleeps[i], 2*time.Second)
		assert.LessOrEqual(t, ft.sleeps[i], 5*time.Second)
		assert.Equal(t, DefaultSettleWait, ft.sleeps[i+1])
	}
}

func TestRunCustomStagnationThreshold(t *testing.T) {
	surface := newFakeSurface(t, card("a"))
	rec := &recorder{}
	ft := &fakeTime{now: time.Unix(0, 0)}

	var cancelled atomic.Bool
	newDriver(ft, Config{StagnationPasses: 1}).Run(context.Background(), surface, &cancelled, rec)

	// pass 1 grows from 0, pass 2 is stagnant and stops
	assert.Equal(t, []message.Type{message.TypeTracksBatch, message.TypeTracksBatch, message.TypeCollectionComplete}, rec.types())
}

func TestRunEmptyPageCompletes(t *testing.T) {
	surface := newFakeSurface(t, "")
	rec := &recorder{}
	ft := &fakeTime{now: time.Unix(0, 0)}

	var cancelled atomic.Bool
	newDriver(ft, Config{}).Run(context.Background(), surface, &cancelled, rec)

	// empty batches are never reported
	assert.Equal(t, []message.Type{message.TypeCollectionComplete}, rec.types())
}

func TestRunReportFailureSendsErrorOnce(t *testing.T) {
	surface := newFakeSurface(t, card("a"))
	rec := &recorder{failOn: message.TypeTracksBatch}
	ft := &fakeTime{now: time.Unix(0, 0)}

	var cancelled atomic.Bool
	newDriver(ft, Config{}).Run(context.Background(), surface, &cancelled, rec)

	require.Len(t, rec.messages, 1)
	assert.Equal(t, message.CollectionError{Message: "receiving end does not exist"}, rec.messages[0])
	assert.Zero(t, surface.loads)
}

func TestRunCancelledMidLoop(t *testing.T) {
	surface := newFakeSurface(t, card("a"), card("b"), card("c"))
	rec := &recorder{}
	ft := &fakeTime{now: time.Unix(0, 0)}

	var cancelled atomic.Bool
	surface.onLoad = func(n int) {
		if n == 1 {
			cancelled.Store(true)
		}
	}
	newDriver(ft, Config{}).Run(context.Background(), surface, &cancelled, rec)

	assert.Equal(t, []message.Type{message.TypeTracksBatch}, rec.types())
	assert.Equal(t, 1, surface.loads)
}

func TestRunInvalidatedPage(t *testing.T) {
	surface := newFakeSurface(t, card("a"))
	surface.valid.Store(false)
	rec := &recorder{}

	var cancelled atomic.Bool
	newDriver(&fakeTime{}, Config{}).Run(context.Background(), surface, &cancelled, rec)
	assert.Empty(t, rec.messages)
}

func TestRunContextCancelled(t *testing.T) {
	surface := newFakeSurface(t, card("a"))
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())

	ft := &fakeTime{now: time.Unix(0, 0)}
	d := NewDriver(extract.New(extract.Selectors{}), Config{},
		WithClock(ft.clock),
		WithSleep(func(ctx context.Context, dur time.Duration) error {
			cancel()
			return ctx.Err()
		}),
	)

	var cancelled atomic.Bool
	d.Run(ctx, surface, &cancelled, rec)
	assert.Equal(t, []message.Type{message.TypeTracksBatch}, rec.types())
}

func TestRunRateCapKicksIn(t *testing.T) {
	cards := make([]string, 20)
	for i := range cards {
		cards[i] = card(fmt.Sprintf("t%d", i))
	}
	surface := newFakeSurface(t, cards[0], cards[1:]...)
	rec := &recorder{}

	// a clock that never advances puts every action inside one window
	ft := &fakeTime{now: time.Unix(0, 0)}
	var delays []int64
	d := NewDriver(extract.New(extract.Selectors{}), Config{MaxActionsPerMinute: 2},
		WithClock(func() time.Time { return time.Unix(0, 0) }),
		WithSleep(ft.sleep),
		WithRandom(func() float64 { return 0.5 }),
		WithDelayObserver(func(ms int64) { delays = append(delays, ms) }),
	)

	var cancelled atomic.Bool
	surface.onLoad = func(n int) {
		if n == 3 {
			cancelled.Store(true)
		}
	}
	d.Run(context.Background(), surface, &cancelled, rec)

	require.Len(t, delays, 3)
	assert.Less(t, delays[0], int64(5001))
	assert.GreaterOrEqual(t, delays[1], int64(60_000))
	assert.GreaterOrEqual(t, delays[2], int64(60_000))
}

func TestSleep(t *testing.T) {
	assert.NoError(t, Sleep(context.Background(), 0))
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}
