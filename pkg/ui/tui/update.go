package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ZUGAZ/likes-to-go/pkg/collection"
	"github.com/ZUGAZ/likes-to-go/pkg/message"
)

// StateMsg carries a controller answer
type StateMsg message.StateResponse

// PollMsg fires when it is time to ask for the state again
type PollMsg time.Time

// ExportMsg reports the outcome of an export
type ExportMsg struct {
	Path string
	Err  error
}

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case StateMsg:
		m.state = message.StateResponse(msg)
		return m, m.schedulePoll()

	case PollMsg:
		m.polling = false
		return m, m.send(message.GetState{})

	case ExportMsg:
		m.exportPath, m.exportErr = msg.Path, msg.Err
		return m, nil
	}

	return m, nil
}

// schedulePoll keeps exactly one poll pending while collecting
func (m *Model) schedulePoll() tea.Cmd {
	if m.state.Status != collection.StatusCollecting || m.polling {
		return nil
	}
	m.polling = true
	return tea.Tick(m.pollInterval, func(t time.Time) tea.Msg {
		return PollMsg(t)
	})
}

// handleKeyPress handles keyboard input. Keys that make no sense in the
// current state are ignored.
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c", "esc":
		return m, tea.Quit

	case "s", "S", "r", "R":
		if m.state.Status == collection.StatusCollecting {
			return m, nil
		}
		m.exportPath, m.exportErr = "", nil
		return m, m.send(message.StartCollection{})

	case "c", "C":
		if m.state.Status != collection.StatusCollecting {
			return m, nil
		}
		return m, m.send(message.CancelCollection{})

	case "d", "D":
		if m.state.Status != collection.StatusDone {
			return m, nil
		}
		return m, m.send(message.DownloadExport{})

	case "?":
		m.showHelp = !m.showHelp
		return m, nil
	}

	return m, nil
}
