package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/spacewalk/pkg/addrspace"
	"github.com/vanderheijden86/spacewalk/pkg/browse"
)

// renderTreePane draws the visible window of the materialized rows at the
// given inner size. Rendering is windowed: only rows inside the viewport
// are touched.
func (m *Model) renderTreePane(width, height int) string {
	t := m.theme
	total := m.tree.Len()
	if total == 0 {
		return padPane(t.MutedText.Render(m.emptyTreeNotice()), width, height)
	}

	start, end := m.vp.Window(total)
	rows := m.tree.Rows()
	sel := m.tree.Selection()

	var sb strings.Builder
	lines := 0
	for i := start; i < end && i < total; i++ {
		line := m.renderTreeRow(rows[i], i, width, i == sel)
		if i == sel {
			line = t.Selected.Render(line)
		} else if !m.filter.IsMatch(i) {
			line = t.Renderer.NewStyle().Foreground(t.Muted).Faint(true).Render(line)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
		lines++
	}

	// Position indicator when the tree does not fit the window
	if total > m.vp.VisibleHeight() {
		sb.WriteString(m.renderPositionIndicator(start, end, total))
		lines++
	}

	for lines < height {
		sb.WriteString("\n")
		lines++
	}
	return sb.String()
}

// renderTreeRow renders one row: indent, expand marker, class glyph, name,
// and a right-aligned ref column on wide panes.
func (m *Model) renderTreeRow(node browse.TreeNode, idx, width int, isSelected bool) string {
	t := m.theme
	r := t.Renderer
	if width <= 0 {
		width = 80
	}
	// Reduce width by 1 to prevent terminal wrapping on the exact edge
	width = width - 1

	var leftSide strings.Builder

	indent := strings.Repeat("  ", node.Level)
	leftSide.WriteString(indent)

	marker := "•"
	if node.HasChildren && node.Class.CanExpand() {
		if node.Expanded {
			marker = "▾"
		} else {
			marker = "▸"
		}
	}
	leftSide.WriteString(r.NewStyle().Foreground(t.Secondary).Render(marker))
	leftSide.WriteString(" ")

	glyph, glyphColor := t.ClassGlyph(node.Class)
	leftSide.WriteString(r.NewStyle().Foreground(glyphColor).Render(glyph))
	leftSide.WriteString(" ")

	fixedWidth := lipgloss.Width(indent) + 2 + lipgloss.Width(glyph) + 1

	// Right side: ref column on wide panes
	rightSide := ""
	rightWidth := 0
	if width > 60 {
		ref := truncateRunesHelper(string(node.Ref), 28, "…")
		rightSide = t.RefText.Render(ref)
		rightWidth = lipgloss.Width(ref) + 1
	}

	nameWidth := width - fixedWidth - rightWidth - 1
	if nameWidth < 5 {
		nameWidth = 5
	}
	name := truncateRunesHelper(node.Name, nameWidth, "…")
	if w := lipgloss.Width(name); w < nameWidth {
		name = name + strings.Repeat(" ", nameWidth-w)
	}

	nameStyle := r.NewStyle()
	switch {
	case isSelected:
		nameStyle = nameStyle.Foreground(t.Primary).Bold(true)
	case m.isRevealTarget(node.Ref):
		nameStyle = t.RevealMark
	case m.filter.applied && m.filter.IsMatch(idx):
		nameStyle = nameStyle.Foreground(t.Match)
	default:
		nameStyle = nameStyle.Foreground(lipgloss.AdaptiveColor{Light: "#333333", Dark: "#E8E8E8"})
	}
	leftSide.WriteString(nameStyle.Render(name))

	leftLen := lipgloss.Width(leftSide.String())
	padding := width - leftLen - lipgloss.Width(rightSide)
	if padding < 0 {
		padding = 0
	}
	row := leftSide.String() + strings.Repeat(" ", padding) + rightSide

	return r.NewStyle().Width(width).MaxWidth(width).Render(row)
}

// renderPositionIndicator shows "start-end of total" when scrolled.
func (m *Model) renderPositionIndicator(start, end, total int) string {
	indicator := fmt.Sprintf(" %d-%d of %d", start+1, end, total)
	return m.theme.MutedText.Render(indicator)
}

// isRevealTarget reports whether this ref is the search hit last revealed,
// so it stays highlighted after selection moves on.
func (m *Model) isRevealTarget(ref addrspace.NodeRef) bool {
	return !m.lastReveal.IsZero() && m.lastReveal == ref
}

// emptyTreeNotice explains an empty tree.
func (m *Model) emptyTreeNotice() string {
	if m.dir == nil || !m.dir.IsConnected() {
		return "directory disconnected"
	}
	if m.loadingRoots {
		return "loading address space…"
	}
	return "address space is empty"
}
