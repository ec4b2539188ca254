package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ZUGAZ/likes-to-go/pkg/collection"
)

const popupWidth = 46

const logo = `♥ LIKES-TO-GO`

// View renders the popup
func (m Model) View() string {
	body := lipgloss.JoinVertical(lipgloss.Left,
		logoStyle.Width(popupWidth-6).Render(logo),
		"",
		m.renderStatus(),
		m.renderExport(),
		m.renderKeys(),
	)
	if m.showHelp {
		body = lipgloss.JoinVertical(lipgloss.Left, body, m.renderHelp())
	}

	popup := panelStyle.Width(popupWidth).Render(body)
	if m.width == 0 || m.height == 0 {
		return popup
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, popup)
}

func (m Model) renderStatus() string {
	line := StatusLine(m.state)
	switch m.state.Status {
	case collection.StatusCollecting:
		return fmt.Sprintf("%s %s", m.spinner.View(), processingStyle.Render(line))
	case collection.StatusDone:
		return lipgloss.JoinVertical(lipgloss.Left,
			successStyle.Render("✓ "+line),
			fmt.Sprintf("%s %s", statsLabelStyle.Render("Tracks:"), statsValueStyle.Render(fmt.Sprint(m.state.TrackCount))),
		)
	case collection.StatusError:
		return errorStyle.Width(popupWidth - 6).Render("✗ " + line)
	default:
		return idleStyle.Render(line)
	}
}

func (m Model) renderExport() string {
	switch {
	case m.exportErr != nil:
		return errorStyle.Render("Export failed: " + m.exportErr.Error())
	case m.exportPath != "":
		return fmt.Sprintf("%s %s", statsLabelStyle.Render("Saved:"), statsValueStyle.Render(m.exportPath))
	}
	return ""
}

func (m Model) renderKeys() string {
	var keys []string
	switch m.state.Status {
	case collection.StatusCollecting:
		keys = append(keys, key("c", "cancel"))
	case collection.StatusDone:
		keys = append(keys, key("d", "download"), key("s", "start over"))
	case collection.StatusError:
		keys = append(keys, key("s", "retry"))
	default:
		keys = append(keys, key("s", "start"))
	}
	keys = append(keys, key("q", "quit"), key("?", "help"))
	return helpStyle.Render(strings.Join(keys, "  "))
}

func key(k, label string) string {
	return keyStyle.Render(k) + " " + label
}

func (m Model) renderHelp() string {
	help := `
  s    start collecting your likes
  c    cancel a running collection
  d    save the collected tracks as JSON
  q    close the popup

  ` + successStyle.Render("Green") + `   ready to export
  ` + processingStyle.Render("Orange") + `  collecting
  ` + errorStyle.Render("Red") + `     something went wrong`

	return titleStyle.Render(" HELP ") + help
}
