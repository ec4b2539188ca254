package collection

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZUGAZ/likes-to-go/pkg/track"
)

// compare tracks by their wire form so *url.URL internals do not matter
var trackComparer = cmp.Comparer(func(a, b track.Track) bool {
	return a.Title == b.Title && a.Artist == b.Artist &&
		a.URLString() == b.URLString() && a.DurationMs == b.DurationMs
})

var cmpOpts = []cmp.Option{trackComparer, cmpopts.EquateEmpty()}

func mustTrack(t *testing.T, slug string) track.Track {
	t.Helper()
	tr, err := track.Decode(track.Raw{
		Title:      "Track " + slug,
		Artist:     "Artist",
		URL:        "https://soundcloud.com/artist/" + slug,
		DurationMs: 1000,
	})
	require.NoError(t, err)
	return tr
}

func requireResult(t *testing.T, want, got Result) {
	t.Helper()
	if diff := cmp.Diff(want, got, cmpOpts...); diff != "" {
		t.Fatalf("transition mismatch (-want +got):\n%s", diff)
	}
}

func TestTransitionTable(t *testing.T) {
	a := mustTrack(t, "a")
	b := mustTrack(t, "b")
	records := []track.Track{a, b}

	tests := []struct {
		name  string
		state State
		event Event
		want  Result
	}{
		{"idle start", Idle{}, Start{}, Result{State: RequestingContext{}, Commands: []Command{OpenContext{URL: DefaultStartURL}}}},
		{"idle export failed", Idle{}, ExportFailed{Message: "disk full"}, Result{State: Failed{Message: "disk full"}}},
		{"requesting ready", RequestingContext{}, ContextReady{ID: 7}, Result{State: Collecting{ContextID: 7}}},
		{"requesting open failed", RequestingContext{}, ContextOpenFailed{Message: "boom"}, Result{State: Failed{Message: "boom"}}},
		{"requesting cancel", RequestingContext{}, Cancel{}, Result{State: Idle{}}},
		{"collecting batch", Collecting{ContextID: 7, Tracks: []track.Track{a}}, BatchReceived{Tracks: []track.Track{a, b}}, Result{State: Collecting{ContextID: 7, Tracks: records}}},
		{"collecting complete", Collecting{ContextID: 7, Tracks: records}, LoopComplete{}, Result{State: Done{Tracks: records}}},
		{"collecting loop error", Collecting{ContextID: 7, Tracks: records}, LoopError{Message: "x"}, Result{State: Failed{Message: "x"}, Commands: []Command{CloseContext{ID: 7}}}},
		{"collecting cancel", Collecting{ContextID: 7, Tracks: []track.Track{a}}, Cancel{}, Result{State: Idle{}, Commands: []Command{CloseContext{ID: 7}}}},
		{"collecting navigation held", Collecting{ContextID: 7, Tracks: records}, NavigationFinished{ID: 7}, Result{State: Collecting{ContextID: 7, Tracks: records}, Commands: []Command{SignalStart{ID: 7}}}},
		{"collecting navigation other", Collecting{ContextID: 7, Tracks: records}, NavigationFinished{ID: 8}, Result{State: Collecting{ContextID: 7, Tracks: records}}},
		{"collecting signal failed", Collecting{ContextID: 7}, SignalFailed{Message: "no receiver"}, Result{State: Failed{Message: "no receiver"}, Commands: []Command{CloseContext{ID: 7}}}},
		{"collecting export", Collecting{ContextID: 7, Tracks: records}, ExportRequested{}, Result{State: Idle{}, Commands: []Command{Export{Tracks: records}}}},
		{"done export", Done{Tracks: records}, ExportRequested{}, Result{State: Idle{}, Commands: []Command{Export{Tracks: records}}}},
		{"done cancel", Done{Tracks: records}, Cancel{}, Result{State: Idle{}}},
		{"failed export failed replaces message", Failed{Message: "old"}, ExportFailed{Message: "new"}, Result{State: Failed{Message: "new"}}},
		{"failed cancel", Failed{Message: "old"}, Cancel{}, Result{State: Idle{}}},
		{"failed start retries", Failed{Message: "old"}, Start{}, Result{State: RequestingContext{}, Commands: []Command{OpenContext{URL: DefaultStartURL}}}},
		{"idle ignores batch", Idle{}, BatchReceived{Tracks: records}, Result{State: Idle{}}},
		{"done ignores start", Done{Tracks: records}, Start{}, Result{State: Done{Tracks: records}}},
		{"requesting ignores start", RequestingContext{}, Start{}, Result{State: RequestingContext{}}},
		{"failed ignores loop complete", Failed{Message: "m"}, LoopComplete{}, Result{State: Failed{Message: "m"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireResult(t, tt.want, Transition(tt.state, tt.event))
		})
	}
}

func allStates(t *testing.T) []State {
	a := mustTrack(t, "a")
	return []State{
		Idle{},
		RequestingContext{},
		Collecting{ContextID: 3, Tracks: []track.Track{a}},
		Done{Tracks: []track.Track{a}},
		Failed{Message: "m"},
	}
}

func allEvents(t *testing.T) []Event {
	b := mustTrack(t, "b")
	return []Event{
		Start{}, ContextReady{ID: 3}, ContextOpenFailed{Message: "o"},
		BatchReceived{Tracks: []track.Track{b}}, LoopComplete{}, LoopError{Message: "l"},
		Cancel{}, ExportRequested{}, NavigationFinished{ID: 3},
		SignalFailed{Message: "s"}, ExportFailed{Message: "e"},
	}
}

func TestTransitionIsDeterministic(t *testing.T) {
	for _, s := range allStates(t) {
		for _, e := range allEvents(t) {
			t.Run(fmt.Sprintf("%s/%s", s.Name(), e.Name()), func(t *testing.T) {
				first := Transition(s, e)
				second := Transition(s, e)
				requireResult(t, first, second)
				require.NotNil(t, first.State)
			})
		}
	}
}

func TestTransitionDoesNotMutateInput(t *testing.T) {
	a := mustTrack(t, "a")
	b := mustTrack(t, "b")
	current := make([]track.Track, 1, 8)
	current[0] = a
	state := Collecting{ContextID: 1, Tracks: current}

	Transition(state, BatchReceived{Tracks: []track.Track{b}})

	assert.Len(t, state.Tracks, 1)
	assert.Equal(t, a.Identity(), current[:1][0].Identity())
	// writes into spare capacity would show up here
	assert.Equal(t, track.Track{}, current[:2][1])
}

func TestEndToEndScenario(t *testing.T) {
	a, b, c := mustTrack(t, "a"), mustTrack(t, "b"), mustTrack(t, "c")

	r := Transition(Idle{}, Start{})
	requireResult(t, Result{State: RequestingContext{}, Commands: []Command{OpenContext{URL: DefaultStartURL}}}, r)

	r = Transition(r.State, ContextReady{ID: 7})
	requireResult(t, Result{State: Collecting{ContextID: 7}}, r)

	r = Transition(r.State, BatchReceived{Tracks: []track.Track{a, b}})
	requireResult(t, Result{State: Collecting{ContextID: 7, Tracks: []track.Track{a, b}}}, r)

	r = Transition(r.State, BatchReceived{Tracks: []track.Track{b, c}})
	requireResult(t, Result{State: Collecting{ContextID: 7, Tracks: []track.Track{a, b, c}}}, r)

	r = Transition(r.State, LoopComplete{})
	requireResult(t, Result{State: Done{Tracks: []track.Track{a, b, c}}}, r)

	r = Transition(r.State, ExportRequested{})
	requireResult(t, Result{State: Idle{}, Commands: []Command{Export{Tracks: []track.Track{a, b, c}}}}, r)
	export := r.Commands[0].(Export)
	assert.Len(t, export.Tracks, 3)
}

func TestCancelMidCollection(t *testing.T) {
	a := mustTrack(t, "a")
	r := Transition(Collecting{ContextID: 7, Tracks: []track.Track{a}}, Cancel{})
	requireResult(t, Result{State: Idle{}, Commands: []Command{CloseContext{ID: 7}}}, r)
}

func TestMachineStartURL(t *testing.T) {
	m := NewMachine("http://localhost:8080/you/likes")
	r := m.Transition(Idle{}, Start{})
	requireResult(t, Result{State: RequestingContext{}, Commands: []Command{OpenContext{URL: "http://localhost:8080/you/likes"}}}, r)
	assert.Equal(t, DefaultStartURL, NewMachine("").StartURL())
}

func TestDedupAppendProperties(t *testing.T) {
	pool := make([]track.Track, 10)
	for i := range pool {
		pool[i] = mustTrack(t, fmt.Sprintf("t%d", i))
	}
	rng := rand.New(rand.NewSource(1))

	for run := 0; run < 50; run++ {
		var state State = Collecting{ContextID: 1}
		distinct := map[string]struct{}{}
		for batch := 0; batch < 5; batch++ {
			items := make([]track.Track, rng.Intn(6))
			for i := range items {
				items[i] = pool[rng.Intn(len(pool))]
				distinct[items[i].Identity()] = struct{}{}
			}
			state = Transition(state, BatchReceived{Tracks: items}).State
		}

		tracks := Tracks(state)
		seen := map[string]struct{}{}
		for _, tr := range tracks {
			_, dup := seen[tr.Identity()]
			require.False(t, dup, "duplicate identity %s", tr.Identity())
			seen[tr.Identity()] = struct{}{}
		}
		require.LessOrEqual(t, len(tracks), len(distinct))

		again := DedupAppend(tracks, tracks)
		if diff := cmp.Diff(tracks, again, cmpOpts...); diff != "" {
			t.Fatalf("dedup append is not idempotent:\n%s", diff)
		}
	}
}

func TestDedupAppendNormalizesIdentity(t *testing.T) {
	x, err := track.Decode(track.Raw{Title: "x", URL: "HTTPS://SoundCloud.com:443"})
	require.NoError(t, err)
	y, err := track.Decode(track.Raw{Title: "y", URL: "https://soundcloud.com/"})
	require.NoError(t, err)

	out := DedupAppend(nil, []track.Track{x, y})
	require.Len(t, out, 1)
	assert.Equal(t, "x", out[0].Title)
}

func TestToSnapshot(t *testing.T) {
	a := mustTrack(t, "a")
	tests := []struct {
		state State
		want  Snapshot
	}{
		{Idle{}, Snapshot{Status: StatusIdle}},
		{RequestingContext{}, Snapshot{Status: StatusCollecting}},
		{Collecting{ContextID: 1, Tracks: []track.Track{a}}, Snapshot{Status: StatusCollecting, TrackCount: 1}},
		{Done{Tracks: []track.Track{a}}, Snapshot{Status: StatusDone, TrackCount: 1}},
		{Failed{Message: "bad"}, Snapshot{Status: StatusError, ErrorMessage: "bad"}},
	}
	for _, tt := range tests {
		t.Run(tt.state.Name(), func(t *testing.T) {
			assert.Equal(t, tt.want, ToSnapshot(tt.state))
			assert.True(t, tt.want.Status.Valid())
		})
	}
	assert.False(t, Status("paused").Valid())
}
