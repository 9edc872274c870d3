package browse

import "testing"

// TestViewportStableInsideBand verifies single-step moves inside the
// central band never scroll.
func TestViewportStableInsideBand(t *testing.T) {
	v := NewViewportController(20) // quarter = 5, band [5, 14]
	total := 100

	for _, sel := range []int{10, 11, 12, 13, 14, 9, 6, 5} {
		v.OnSelectionChanged(sel, total)
		if v.ScrollOffset() != 0 {
			t.Errorf("sel %d: expected offset 0 inside band, got %d", sel, v.ScrollOffset())
		}
	}
}

// TestViewportBottomCrossing verifies crossing the 75% line pins the
// selection there while walking down.
func TestViewportBottomCrossing(t *testing.T) {
	v := NewViewportController(20)
	total := 100

	v.OnSelectionChanged(14, total)
	if v.ScrollOffset() != 0 {
		t.Fatalf("sel 14: expected offset 0, got %d", v.ScrollOffset())
	}
	for sel := 15; sel <= 30; sel++ {
		v.OnSelectionChanged(sel, total)
		want := sel - 14 // selection held on the 75% line
		if v.ScrollOffset() != want {
			t.Errorf("sel %d: expected offset %d, got %d", sel, want, v.ScrollOffset())
		}
	}
}

// TestViewportTopCrossing verifies crossing the 25% line pins the selection
// there while walking up.
func TestViewportTopCrossing(t *testing.T) {
	v := NewViewportController(20)
	total := 100

	v.OnSelectionChanged(50, total) // jump below the window
	if v.ScrollOffset() != 36 {
		t.Fatalf("jump: expected offset 36, got %d", v.ScrollOffset())
	}
	v.OnSelectionChanged(41, total) // pos 5, still inside the band
	if v.ScrollOffset() != 36 {
		t.Fatalf("sel 41: expected offset 36, got %d", v.ScrollOffset())
	}
	for sel := 40; sel >= 20; sel-- {
		v.OnSelectionChanged(sel, total)
		want := sel - 5 // selection held on the 25% line
		if v.ScrollOffset() != want {
			t.Errorf("sel %d: expected offset %d, got %d", sel, want, v.ScrollOffset())
		}
	}
}

// TestViewportJumpOutsideWindow verifies selections far outside the window
// land on the 25%/75% lines directly.
func TestViewportJumpOutsideWindow(t *testing.T) {
	v := NewViewportController(20)
	total := 100

	v.OnSelectionChanged(80, total)
	if v.ScrollOffset() != 66 {
		t.Errorf("jump down: expected offset 66, got %d", v.ScrollOffset())
	}
	v.OnSelectionChanged(10, total)
	if v.ScrollOffset() != 5 {
		t.Errorf("jump up: expected offset 5, got %d", v.ScrollOffset())
	}
}

// TestViewportClampAtEnds verifies range clamping wins over the band rule
// near both ends of the list.
func TestViewportClampAtEnds(t *testing.T) {
	v := NewViewportController(20)
	total := 100

	v.OnSelectionChanged(99, total)
	if v.ScrollOffset() != 80 {
		t.Errorf("bottom end: expected offset 80 (total-height), got %d", v.ScrollOffset())
	}
	v.OnSelectionChanged(0, total)
	if v.ScrollOffset() != 0 {
		t.Errorf("top end: expected offset 0, got %d", v.ScrollOffset())
	}
}

// TestViewportShortListNeverScrolls verifies lists shorter than the window
// keep offset 0 for every selection.
func TestViewportShortListNeverScrolls(t *testing.T) {
	v := NewViewportController(20)
	for sel := 0; sel < 8; sel++ {
		v.OnSelectionChanged(sel, 8)
		if v.ScrollOffset() != 0 {
			t.Errorf("sel %d: expected offset 0 for short list, got %d", sel, v.ScrollOffset())
		}
	}
}

// TestViewportResizeReclamps verifies growing the window pulls the offset
// back into range.
func TestViewportResizeReclamps(t *testing.T) {
	v := NewViewportController(20)
	v.OnSelectionChanged(29, 30)
	if v.ScrollOffset() != 10 {
		t.Fatalf("expected offset 10, got %d", v.ScrollOffset())
	}
	v.SetVisibleHeight(25)
	v.Clamp(30)
	if v.ScrollOffset() != 5 {
		t.Errorf("after resize: expected offset 5, got %d", v.ScrollOffset())
	}
}

// TestViewportClampAfterShrink verifies Clamp handles the row sequence
// shrinking under the window, as a collapse does.
func TestViewportClampAfterShrink(t *testing.T) {
	v := NewViewportController(10)
	v.OnSelectionChanged(50, 100)
	if v.ScrollOffset() == 0 {
		t.Fatal("setup: expected a scrolled window")
	}
	v.Clamp(12)
	if v.ScrollOffset() != 2 {
		t.Errorf("expected offset 2 after shrink to 12 rows, got %d", v.ScrollOffset())
	}
	v.Clamp(0)
	if v.ScrollOffset() != 0 {
		t.Errorf("expected offset 0 for empty sequence, got %d", v.ScrollOffset())
	}
}

// TestViewportWindow verifies the visible range is clipped to the sequence.
func TestViewportWindow(t *testing.T) {
	v := NewViewportController(10)
	start, end := v.Window(4)
	if start != 0 || end != 4 {
		t.Errorf("expected window [0,4), got [%d,%d)", start, end)
	}
	v.OnSelectionChanged(95, 100)
	start, end = v.Window(100)
	if end-start != 10 {
		t.Errorf("expected full-height window, got [%d,%d)", start, end)
	}
	if end > 100 {
		t.Errorf("window end %d past sequence", end)
	}
}

// TestViewportZeroHeight verifies a zero-height window degrades to an empty
// range instead of dividing by zero or going negative.
func TestViewportZeroHeight(t *testing.T) {
	v := NewViewportController(0)
	v.OnSelectionChanged(5, 10)
	if v.ScrollOffset() != 0 {
		t.Errorf("expected offset 0, got %d", v.ScrollOffset())
	}
	start, end := v.Window(10)
	if start != end {
		t.Errorf("expected empty window, got [%d,%d)", start, end)
	}
}
