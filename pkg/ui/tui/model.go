package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ZUGAZ/likes-to-go/pkg/collection"
	"github.com/ZUGAZ/likes-to-go/pkg/message"
)

// DefaultPollInterval is how often the popup asks for the state while a
// collection is running
const DefaultPollInterval = 500 * time.Millisecond

// Controller answers raw control messages with the resulting state
type Controller interface {
	Handle(ctx context.Context, raw []byte) message.StateResponse
}

// Model is the popup: one status panel driven by get-state answers
type Model struct {
	ctrl         Controller
	ctx          context.Context
	pollInterval time.Duration

	spinner spinner.Model

	state   message.StateResponse
	polling bool

	// outcome of the last export, shown below the status
	exportPath string
	exportErr  error

	width    int
	height   int
	showHelp bool
}

// NewModel creates a popup model talking to ctrl
func NewModel(ctx context.Context, ctrl Controller, pollInterval time.Duration) Model {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if ctx == nil {
		ctx = context.Background()
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(neonCyan)

	return Model{
		ctrl:         ctrl,
		ctx:          ctx,
		pollInterval: pollInterval,
		spinner:      s,
		state:        message.StateResponse{Status: collection.StatusIdle},
	}
}

// Init asks for the current state and starts the spinner
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.send(message.GetState{}))
}

// State returns the last state the popup saw
func (m Model) State() message.StateResponse {
	return m.state
}

// LastExport returns the last export result
func (m Model) LastExport() (string, error) {
	return m.exportPath, m.exportErr
}

// Polling reports whether a poll tick is pending
func (m Model) Polling() bool {
	return m.polling
}

// send returns a command delivering msg to the controller
func (m Model) send(msg message.Message) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		raw, err := message.Encode(msg)
		if err != nil {
			return StateMsg(message.ErrorResponse(err))
		}
		return StateMsg(ctrl.Handle(ctx, raw))
	}
}

// StatusLine is the plain text shown for a state
func StatusLine(s message.StateResponse) string {
	switch s.Status {
	case collection.StatusCollecting:
		return fmt.Sprintf("Preparing %d tracks…", s.TrackCount)
	case collection.StatusDone:
		return "Ready to go"
	case collection.StatusError:
		if s.ErrorMessage == "" {
			return "Error"
		}
		return "Error: " + s.ErrorMessage
	default:
		return "Waiting for order"
	}
}
