package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// searchSpinnerFrames animate the in-flight search indicator, advanced once
// per drain tick.
var searchSpinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// renderSearchbar draws the one-line prompt/progress bar above the footer.
// Empty when nothing search- or filter-related is going on.
func (m *Model) renderSearchbar() string {
	t := m.theme

	promptStyle := t.Renderer.NewStyle().Foreground(t.Primary).Bold(true)
	textStyle := t.Base
	dimStyle := t.MutedText

	var line string
	switch {
	case m.focused == focusSearch, m.focused == focusFilter:
		line = m.prompt.View()

	case m.coord.Searching():
		frame := searchSpinnerFrames[m.spinnerIdx%len(searchSpinnerFrames)]
		progress := fmt.Sprintf(" visited %d  queued %d", m.coord.Visited(), m.coord.Queued())
		cur := m.coord.Current()
		if cur != "" {
			progress += dimStyle.Render("  @ " + truncate(cur, 32))
		}
		line = promptStyle.Render(frame+" searching "+m.coord.Query()) + textStyle.Render(progress) +
			dimStyle.Render("  (esc to cancel)")

	case m.filter.applied:
		line = promptStyle.Render("filter ") + textStyle.Render(m.filter.query) +
			dimStyle.Render(fmt.Sprintf("  %d/%d rows  (n/N jump, esc clears)", m.filter.MatchCount(), m.tree.Len()))

	default:
		return ""
	}

	width := lipgloss.Width(line)
	if width < m.width {
		line += strings.Repeat(" ", m.width-width)
	}
	return line
}

// searchbarVisible reports whether the bar occupies a body line.
func (m *Model) searchbarVisible() bool {
	return m.focused == focusSearch || m.focused == focusFilter ||
		m.coord.Searching() || m.filter.applied
}
