package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// TUI runs the popup program
type TUI struct {
	program *tea.Program
	model   *Model
}

// NewTUI creates a popup bound to ctrl. The program stops when ctx is done.
func NewTUI(ctx context.Context, ctrl Controller, pollInterval time.Duration, opts ...tea.ProgramOption) *TUI {
	model := NewModel(ctx, ctrl, pollInterval)
	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	program := tea.NewProgram(&model, opts...)

	return &TUI{
		program: program,
		model:   &model,
	}
}

// Start runs the popup until the user quits
func (t *TUI) Start() error {
	_, err := t.program.Run()
	return err
}

// Stop stops the TUI gracefully
func (t *TUI) Stop() {
	t.program.Quit()
}

// Send sends a message to the TUI
func (t *TUI) Send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

// ExportFinished shows an export result in the popup
func (t *TUI) ExportFinished(path string, err error) {
	t.Send(ExportMsg{Path: path, Err: err})
}
