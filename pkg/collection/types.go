package collection

import (
	"strconv"

	"github.com/ZUGAZ/likes-to-go/pkg/track"
)

// DefaultStartURL is the page a collection run opens
const DefaultStartURL = "https://soundcloud.com/you/likes"

// ContextID identifies a working context (a loaded page)
type ContextID int64

func (id ContextID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// State is one of Idle, RequestingContext, Collecting, Done or Failed
type State interface {
	Name() string
	isState()
}

// Idle holds nothing; a run starts here and every cancel or export returns here
type Idle struct{}

// RequestingContext waits for the context opened by the start command
type RequestingContext struct{}

// Collecting holds the working context and the records accumulated so far, in
// first-seen order
type Collecting struct {
	ContextID ContextID
	Tracks    []track.Track
}

// Done holds the finished record set until it is exported
type Done struct {
	Tracks []track.Track
}

// Failed is terminal until the next start or cancel. No context is held.
type Failed struct {
	Message string
}

func (Idle) Name() string              { return "idle" }
func (RequestingContext) Name() string { return "requesting_context" }
func (Collecting) Name() string        { return "collecting" }
func (Done) Name() string              { return "done" }
func (Failed) Name() string            { return "failed" }

func (Idle) isState()              {}
func (RequestingContext) isState() {}
func (Collecting) isState()        {}
func (Done) isState()              {}
func (Failed) isState()            {}

// Event is an occurrence fed into the state machine
type Event interface {
	Name() string
	isEvent()
}

type (
	Start              struct{}
	ContextReady       struct{ ID ContextID }
	ContextOpenFailed  struct{ Message string }
	BatchReceived      struct{ Tracks []track.Track }
	LoopComplete       struct{}
	LoopError          struct{ Message string }
	Cancel             struct{}
	ExportRequested    struct{}
	NavigationFinished struct{ ID ContextID }
	SignalFailed       struct{ Message string }
	ExportFailed       struct{ Message string }
)

func (Start) Name() string              { return "start" }
func (ContextReady) Name() string       { return "context_ready" }
func (ContextOpenFailed) Name() string  { return "context_open_failed" }
func (BatchReceived) Name() string      { return "batch_received" }
func (LoopComplete) Name() string       { return "loop_complete" }
func (LoopError) Name() string          { return "loop_error" }
func (Cancel) Name() string             { return "cancel" }
func (ExportRequested) Name() string    { return "export_requested" }
func (NavigationFinished) Name() string { return "navigation_finished" }
func (SignalFailed) Name() string       { return "signal_failed" }
func (ExportFailed) Name() string       { return "export_failed" }

func (Start) isEvent()              {}
func (ContextReady) isEvent()       {}
func (ContextOpenFailed) isEvent()  {}
func (BatchReceived) isEvent()      {}
func (LoopComplete) isEvent()       {}
func (LoopError) isEvent()          {}
func (Cancel) isEvent()             {}
func (ExportRequested) isEvent()    {}
func (NavigationFinished) isEvent() {}
func (SignalFailed) isEvent()       {}
func (ExportFailed) isEvent()       {}

// Command is an effect the orchestrator runs on behalf of the state machine
type Command interface {
	Name() string
	isCommand()
}

type (
	OpenContext  struct{ URL string }
	CloseContext struct{ ID ContextID }
	SignalStart  struct{ ID ContextID }
	Export       struct{ Tracks []track.Track }
)

func (OpenContext) Name() string  { return "open_context" }
func (CloseContext) Name() string { return "close_context" }
func (SignalStart) Name() string  { return "signal_start" }
func (Export) Name() string       { return "export" }

func (OpenContext) isCommand()  {}
func (CloseContext) isCommand() {}
func (SignalStart) isCommand()  {}
func (Export) isCommand()       {}

// Result is the output of one transition
type Result struct {
	State    State
	Commands []Command
}
