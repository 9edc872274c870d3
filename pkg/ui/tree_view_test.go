package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/spacewalk/pkg/testutil"
)

func TestRenderTreeRowMarkers(t *testing.T) {
	m, _ := newDemoModel(t, Options{})

	// Collapsed expandable node carries the closed marker.
	row, _ := m.tree.Row(0)
	line := m.renderTreeRow(row, 0, 80, false)
	if !strings.Contains(line, "▸") {
		t.Errorf("collapsed node missing ▸: %q", line)
	}

	m = expandRef(t, m, "ns=2;i=5001")
	row, _ = m.tree.Row(0)
	line = m.renderTreeRow(row, 0, 80, false)
	if !strings.Contains(line, "▾") {
		t.Errorf("expanded node missing ▾: %q", line)
	}

	// Variables are leaves with the bullet marker and dot glyph.
	m = expandRef(t, m, "ns=2;s=Pump")
	idx, _ := m.tree.FindIndexByRef("ns=2;s=Pump.FlowRate")
	row, _ = m.tree.Row(idx)
	line = m.renderTreeRow(row, idx, 80, false)
	if !strings.Contains(line, "•") || !strings.Contains(line, "●") {
		t.Errorf("variable row missing leaf markers: %q", line)
	}
	if !strings.Contains(line, "FlowRate") {
		t.Errorf("row lost its name: %q", line)
	}
}

func TestRenderTreeRowIndentsByLevel(t *testing.T) {
	m, _ := newDemoModel(t, Options{})
	m = expandRef(t, m, "ns=2;i=5001")
	m = expandRef(t, m, "ns=2;s=Pump")

	idx, _ := m.tree.FindIndexByRef("ns=2;s=Pump.FlowRate")
	row, _ := m.tree.Row(idx)
	if row.Level != 2 {
		t.Fatalf("expected FlowRate at level 2, got %d", row.Level)
	}
	line := m.renderTreeRow(row, idx, 80, false)
	if !strings.HasPrefix(line, "    ") {
		t.Errorf("level 2 row should start with four spaces: %q", line)
	}
}

func TestRenderTreeRowRefColumnOnWidePanes(t *testing.T) {
	m, _ := newDemoModel(t, Options{})
	row, _ := m.tree.Row(0)

	wide := m.renderTreeRow(row, 0, 100, false)
	if !strings.Contains(wide, "ns=2;i=5001") {
		t.Errorf("wide row missing ref column: %q", wide)
	}

	narrow := m.renderTreeRow(row, 0, 50, false)
	if strings.Contains(narrow, "ns=2;i=5001") {
		t.Errorf("narrow row should drop the ref column: %q", narrow)
	}
}

func TestRenderTreePaneEmptyStates(t *testing.T) {
	dir := testutil.NewFakeDirectory("root")
	m := NewModel(Options{Dir: dir, SourceLabel: "empty"})

	// Before the first load lands the pane reports loading.
	if out := m.renderTreePane(60, 5); !strings.Contains(out, "loading") {
		t.Errorf("expected loading notice, got %q", out)
	}

	m = applyMsg(t, m, loadRootsCmd(m.dir, false)())
	if out := m.renderTreePane(60, 5); !strings.Contains(out, "empty") {
		t.Errorf("expected empty notice, got %q", out)
	}

	dir.SetConnected(false)
	if out := m.renderTreePane(60, 5); !strings.Contains(out, "disconnected") {
		t.Errorf("expected disconnected notice, got %q", out)
	}
}

func TestRenderTreePanePositionIndicator(t *testing.T) {
	dir := testutil.BalancedSpace(1, 30)
	m, _ := newDemoModel(t, Options{Dir: dir})
	m = applyMsg(t, m, tea.WindowSizeMsg{Width: 60, Height: 10})

	out := m.renderTreePane(60, m.bodyHeight())
	if !strings.Contains(out, "of 30") {
		t.Errorf("expected position indicator, got %q", out)
	}
}

func TestRevealTargetStaysHighlighted(t *testing.T) {
	m, _ := newDemoModel(t, Options{})
	m = expandRef(t, m, "ns=5;i=1001")
	m.lastReveal = "ns=5;s=Random"

	if !m.isRevealTarget("ns=5;s=Random") {
		t.Error("reveal target not recognized")
	}
	if m.isRevealTarget("ns=5;s=Sawtooth") {
		t.Error("sibling wrongly treated as reveal target")
	}

	// Esc clears the highlight when nothing else is pending.
	m = applyMsg(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.isRevealTarget("ns=5;s=Random") {
		t.Error("esc should clear the reveal highlight")
	}
}
