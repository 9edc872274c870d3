package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/spacewalk/pkg/metrics"
)

// renderHeader draws the one-line global header: app name and source on the
// left, row counts (or live metrics) on the right.
func (m *Model) renderHeader() string {
	appName := lipgloss.NewStyle().Bold(true).Foreground(ColorText).Render("sw")
	sep := lipgloss.NewStyle().Foreground(ColorMuted).Render(" | ")

	sourceLabel := m.sourceLabel
	if sourceLabel == "" {
		sourceLabel = "unknown source"
	}
	sourceSection := lipgloss.NewStyle().Foreground(ColorSubtext).Render(sourceLabel)

	leftParts := appName + sep + sourceSection
	if m.watcher != nil {
		leftParts += sep + lipgloss.NewStyle().Foreground(ColorInfo).Render("watching")
	}

	var rightParts string
	if m.showMetrics {
		rightParts = m.renderMetricsSegment()
	} else {
		rowsStyle := lipgloss.NewStyle().Foreground(ColorSubtext)
		rightParts = rowsStyle.Render(fmt.Sprintf("%d rows · %d expanded", m.tree.Len(), m.tree.ExpandedCount()))
	}

	leftWidth := lipgloss.Width(leftParts)
	rightWidth := lipgloss.Width(rightParts)
	fillerWidth := m.width - leftWidth - rightWidth
	if fillerWidth < 1 {
		fillerWidth = 1
	}
	filler := lipgloss.NewStyle().Width(fillerWidth).Render("")

	headerBg := lipgloss.NewStyle().
		Width(m.width).
		Background(ColorBgHighlight)

	return headerBg.Render(leftParts + filler + rightParts)
}

// renderMetricsSegment summarizes directory latency and cache traffic for
// the header. The cache part only appears once a snapshot-backed session has
// actually hit the cache.
func (m *Model) renderMetricsSegment() string {
	labelStyle := lipgloss.NewStyle().Foreground(ColorMuted)
	valueStyle := lipgloss.NewStyle().Foreground(ColorInfo)

	browse := metrics.BrowseLatency.Snapshot()
	read := metrics.ReadLatency.Snapshot()

	parts := []string{
		labelStyle.Render("browse ") + valueStyle.Render(formatLatency(browse.P50Ms, browse.P95Ms, browse.Count)),
		labelStyle.Render("read ") + valueStyle.Render(formatLatency(read.P50Ms, read.P95Ms, read.Count)),
	}
	if cache := metrics.SnapshotCache.Stats(); cache.Hits+cache.Misses > 0 {
		parts = append(parts, labelStyle.Render("cache ")+valueStyle.Render(
			fmt.Sprintf("%.0f%% (%d/%d)", cache.HitRate*100, cache.Hits, cache.Hits+cache.Misses)))
	}
	return strings.Join(parts, labelStyle.Render("  ·  "))
}

// formatLatency renders "p50/p95ms (n)" with a dash for empty samples.
func formatLatency(p50, p95 float64, count int) string {
	if count == 0 {
		return "–"
	}
	return fmt.Sprintf("%.1f/%.1fms (%d)", p50, p95, count)
}

// renderFooter draws the status line: a prominent message when set, the
// context-sensitive shortcut bar otherwise.
func (m *Model) renderFooter() string {
	if m.statusMsg != "" {
		var msgStyle lipgloss.Style
		if m.statusIsError {
			msgStyle = lipgloss.NewStyle().
				Background(ColorErrorBg).
				Foreground(ColorError).
				Bold(true).
				Padding(0, 2)
		} else {
			msgStyle = lipgloss.NewStyle().
				Background(ColorSuccessBg).
				Foreground(ColorSuccess).
				Bold(true).
				Padding(0, 2)
		}
		prefix := "✓ "
		if m.statusIsError {
			prefix = "✗ "
		}
		msgSection := msgStyle.Render(prefix + m.statusMsg)
		remaining := m.width - lipgloss.Width(msgSection)
		if remaining < 0 {
			remaining = 0
		}
		filler := lipgloss.NewStyle().Width(remaining).Render("")
		return lipgloss.JoinHorizontal(lipgloss.Bottom, msgSection, filler)
	}

	keyStyle := lipgloss.NewStyle().Foreground(ColorMuted)
	labelStyle := lipgloss.NewStyle().Foreground(ColorText)

	type hint struct {
		key   string
		label string
	}
	var hints []hint

	switch m.focused {
	case focusSearch:
		hints = []hint{
			{"enter", "search"},
			{"esc", "abort"},
		}
	case focusFilter:
		hints = []hint{
			{"enter", "apply"},
			{"esc", "clear"},
		}
	case focusHelp:
		hints = []hint{
			{"j/k", "scroll"},
			{"esc", "close"},
		}
	default:
		hints = []hint{
			{"j/k", "nav"},
			{"h/l", "fold"},
			{"/", "search"},
			{"f", "filter"},
			{"tab", "attrs"},
			{"y", "yank"},
			{"m", "metrics"},
			{"?", "help"},
			{"q", "quit"},
		}
		if m.coord.Searching() {
			hints = append([]hint{{"esc", "cancel search"}}, hints...)
		} else if len(m.coord.Results()) > 1 {
			hints = append([]hint{{"n/N", "next hit"}}, hints...)
		}
	}

	var hintParts []string
	for _, h := range hints {
		hintParts = append(hintParts, keyStyle.Render(h.key)+":"+labelStyle.Render(h.label))
	}
	shortcutBar := " " + strings.Join(hintParts, "  ")

	barWidth := lipgloss.Width(shortcutBar)
	remaining := m.width - barWidth
	if remaining < 0 {
		remaining = 0
	}
	filler := lipgloss.NewStyle().Width(remaining).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, shortcutBar, filler)
}
