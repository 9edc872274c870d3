package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/spacewalk/pkg/addrspace"
)

// attrsState holds the right-hand pane's contents. The pane lags the
// selection by the debounce interval and never blocks the loop; a stale
// read for a prior selection is dropped by sequence number.
type attrsState struct {
	ref     addrspace.NodeRef
	attrs   []addrspace.Attribute
	loading bool
	err     error
}

// renderAttrsPane draws the attribute pane at the given inner size.
func (m *Model) renderAttrsPane(width, height int) string {
	t := m.theme

	titleStyle := t.PrimaryBold
	nameStyle := t.Renderer.NewStyle().Foreground(t.Secondary)
	dimStyle := t.MutedText

	var b strings.Builder
	node, ok := m.tree.SelectedNode()
	if !ok {
		b.WriteString(dimStyle.Render("nothing selected"))
		return padPane(b.String(), width, height)
	}

	b.WriteString(titleStyle.Render(truncate(node.Name, width-2)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(truncate(string(node.Ref), width-2)))
	b.WriteString("\n")
	glyph, color := t.ClassGlyph(node.Class)
	b.WriteString(t.Renderer.NewStyle().Foreground(color).Render(glyph + " " + node.Class.String()))
	b.WriteString("\n\n")

	switch {
	case m.attrs.loading && m.attrs.ref == node.Ref:
		b.WriteString(dimStyle.Render("reading attributes…"))

	case m.attrs.err != nil && m.attrs.ref == node.Ref:
		b.WriteString(dimStyle.Render("attributes unavailable"))

	case m.attrs.ref != node.Ref:
		// Debounce pending; nothing fetched for this row yet.
		b.WriteString(dimStyle.Render("…"))

	case len(m.attrs.attrs) == 0:
		b.WriteString(dimStyle.Render("no attributes"))

	default:
		nameWidth := 0
		for _, a := range m.attrs.attrs {
			if len(a.Name) > nameWidth {
				nameWidth = len(a.Name)
			}
		}
		if nameWidth > 20 {
			nameWidth = 20
		}
		avail := width - nameWidth - 4
		if avail < 8 {
			avail = 8
		}
		for _, a := range m.attrs.attrs {
			valStyle := t.ValueText
			if !a.Good {
				valStyle = t.BadValue
			}
			b.WriteString(nameStyle.Render(padRight(truncate(a.Name, nameWidth), nameWidth)))
			b.WriteString("  ")
			b.WriteString(valStyle.Render(truncate(a.Value, avail)))
			if !a.Good {
				b.WriteString(dimStyle.Render(" (bad)"))
			}
			b.WriteString("\n")
		}
	}

	return padPane(b.String(), width, height)
}

// padPane clips content to height lines and pads each line to width so the
// pane keeps its shape next to the tree.
func padPane(content string, width, height int) string {
	lines := strings.Split(content, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	for i, ln := range lines {
		w := lipgloss.Width(ln)
		if w < width {
			lines[i] = ln + strings.Repeat(" ", width-w)
		}
	}
	return strings.Join(lines, "\n")
}

// attrsSummary is a one-line digest of the pane state.
func (m *Model) attrsSummary() string {
	if m.attrs.loading {
		return "loading"
	}
	if m.attrs.err != nil {
		return "error"
	}
	return fmt.Sprintf("%d attributes", len(m.attrs.attrs))
}
