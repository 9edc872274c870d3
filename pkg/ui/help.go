package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

const helpMarkdown = `# spacewalk

Interactive browser for hierarchical address spaces: folders, variables,
methods and type nodes served by a directory (simulated, snapshot file, or
a live client plugged in behind the same interface).

## Navigation

| key | action |
|-----|--------|
| j / ↓, k / ↑ | move selection |
| g / G | jump to top / bottom |
| ctrl+d / ctrl+u | half page down / up |
| h / ← | collapse node, or jump to parent |
| l / →, enter | expand node |
| p | jump to parent |

## Search (remote)

| key | action |
|-----|--------|
| / | search the full graph below the root |
| esc | cancel a running search |
| n / N | reveal next / previous collected match |

The search walks the *remote* graph breadth-first, auto-expanding the path
to the first hit. It stops at the first match; collected matches stay
navigable with n/N.

## Filter (local)

| key | action |
|-----|--------|
| f | fuzzy-filter the rows already on screen |
| n / N | jump between filter hits |
| esc | clear the filter |

## Attributes

| key | action |
|-----|--------|
| tab | toggle the attribute pane |
| y | yank the selected node's ref |
| Y | yank the selected node's path |

## Misc

| key | action |
|-----|--------|
| m | toggle latency metrics in the header |
| ctrl+r / F5 | force reload (snapshot sources) |
| ? / F1 | this help |
| q / ctrl+c | quit |

Expansion state is remembered per source and restored on the next run.
Snapshot sources reload live when the file changes on disk.
`

// renderHelpMarkdown renders the embedded help text for the given width.
// Falls back to the raw markdown when the renderer is unhappy.
func renderHelpMarkdown(width int) string {
	wrap := width - 4
	if wrap > 100 {
		wrap = 100
	}
	if wrap < 40 {
		wrap = 40
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return helpMarkdown
	}
	out, err := r.Render(helpMarkdown)
	if err != nil {
		return helpMarkdown
	}
	return out
}

// renderHelpOverlay draws the help viewport, with a scroll hint on its own
// line when the content overflows the body.
func (m *Model) renderHelpOverlay() string {
	m.sizeHelpViewport()

	var sb strings.Builder
	sb.WriteString(strings.TrimRight(m.helpVP.View(), "\n"))

	if m.helpVP.TotalLineCount() > m.helpVP.Height {
		pct := int(m.helpVP.ScrollPercent() * 100)
		sb.WriteString("\n")
		sb.WriteString(m.theme.MutedText.Render(fmt.Sprintf("  ─ %d%% ─ j/k scroll, esc closes", pct)))
	}
	return lipgloss.NewStyle().MaxHeight(m.bodyHeight()).Render(sb.String())
}
