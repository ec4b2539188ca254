package collection

import (
	"github.com/ZUGAZ/likes-to-go/pkg/track"
)

// Machine is the pure transition table of a collection run
type Machine struct {
	startURL string
}

// NewMachine creates a Machine that opens startURL on start
func NewMachine(startURL string) Machine {
	if startURL == "" {
		startURL = DefaultStartURL
	}
	return Machine{startURL: startURL}
}

// StartURL returns the url opened by the start command
func (m Machine) StartURL() string {
	if m.startURL == "" {
		return DefaultStartURL
	}
	return m.startURL
}

// Initial returns the state a fresh orchestrator starts in
func Initial() State {
	return Idle{}
}

// Transition computes the next state and the commands to run. It has no side
// effects; pairs missing from the table leave the state unchanged.
func Transition(current State, event Event) Result {
	return Machine{}.Transition(current, event)
}

// Transition is the table keyed by current state, then event
func (m Machine) Transition(current State, event Event) Result {
	switch s := current.(type) {
	case Idle:
		switch e := event.(type) {
		case Start:
			return Result{State: RequestingContext{}, Commands: []Command{OpenContext{URL: m.StartURL()}}}
		case ExportFailed:
			return Result{State: Failed{Message: e.Message}}
		}

	case RequestingContext:
		switch e := event.(type) {
		case ContextReady:
			return Result{State: Collecting{ContextID: e.ID, Tracks: []track.Track{}}}
		case ContextOpenFailed:
			return Result{State: Failed{Message: e.Message}}
		case Cancel:
			return Result{State: Idle{}}
		}

	case Collecting:
		switch e := event.(type) {
		case BatchReceived:
			return Result{State: Collecting{ContextID: s.ContextID, Tracks: DedupAppend(s.Tracks, e.Tracks)}}
		case LoopComplete:
			return Result{State: Done{Tracks: s.Tracks}}
		case LoopError:
			return Result{State: Failed{Message: e.Message}, Commands: []Command{CloseContext{ID: s.ContextID}}}
		case Cancel:
			return Result{State: Idle{}, Commands: []Command{CloseContext{ID: s.ContextID}}}
		case NavigationFinished:
			if e.ID == s.ContextID {
				return Result{State: s, Commands: []Command{SignalStart{ID: s.ContextID}}}
			}
		case SignalFailed:
			return Result{State: Failed{Message: e.Message}, Commands: []Command{CloseContext{ID: s.ContextID}}}
		case ExportRequested:
			return Result{State: Idle{}, Commands: []Command{Export{Tracks: s.Tracks}}}
		}

	case Done:
		switch event.(type) {
		case ExportRequested:
			return Result{State: Idle{}, Commands: []Command{Export{Tracks: s.Tracks}}}
		case Cancel:
			return Result{State: Idle{}}
		}

	case Failed:
		switch e := event.(type) {
		case ExportFailed:
			return Result{State: Failed{Message: e.Message}}
		case Cancel:
			return Result{State: Idle{}}
		case Start:
			return Result{State: RequestingContext{}, Commands: []Command{OpenContext{URL: m.StartURL()}}}
		}
	}

	return Result{State: current}
}

// DedupAppend returns current followed by the items whose identity is not yet
// present, in first-seen order. Neither input is modified.
func DedupAppend(current, items []track.Track) []track.Track {
	seen := make(map[string]struct{}, len(current)+len(items))
	out := make([]track.Track, 0, len(current)+len(items))
	for _, t := range current {
		seen[t.Identity()] = struct{}{}
		out = append(out, t)
	}
	for _, t := range items {
		id := t.Identity()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Tracks returns the records held by a state, if any
func Tracks(s State) []track.Track {
	switch v := s.(type) {
	case Collecting:
		return v.Tracks
	case Done:
		return v.Tracks
	default:
		return nil
	}
}
