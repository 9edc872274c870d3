package browse

// ViewportController maps the flattened row sequence onto a scrollable
// window. Scrolling follows a 25%/75% hysteresis rule: while the selection
// moves inside the central band nothing scrolls; once it enters the top or
// bottom quartile the window shifts so the selection sits on the 25% or 75%
// line. A selection outside the window entirely jumps straight to the
// matching line. This keeps the cursor off the edges without the single-row
// jitter of edge-following scrollers.
type ViewportController struct {
	offset int
	height int
}

// NewViewportController returns a controller with the given window height.
func NewViewportController(height int) *ViewportController {
	if height < 0 {
		height = 0
	}
	return &ViewportController{height: height}
}

// ScrollOffset returns the index of the first visible row.
func (v *ViewportController) ScrollOffset() int { return v.offset }

// VisibleHeight returns the current window height in rows.
func (v *ViewportController) VisibleHeight() int { return v.height }

// SetVisibleHeight resizes the window. The offset is re-clamped on the next
// OnSelectionChanged or Clamp call.
func (v *ViewportController) SetVisibleHeight(n int) {
	if n < 0 {
		n = 0
	}
	v.height = n
}

// OnSelectionChanged recomputes the window after the selection moved to sel
// within a sequence of total rows.
func (v *ViewportController) OnSelectionChanged(sel, total int) {
	if total <= 0 || v.height <= 0 {
		v.offset = 0
		return
	}
	if sel < 0 {
		sel = 0
	}
	if sel >= total {
		sel = total - 1
	}

	h := v.height
	q := h / 4
	pos := sel - v.offset

	switch {
	case pos < 0:
		// Above the window: jump so the selection lands on the 25% line.
		v.offset = sel - q
	case pos >= h:
		// Below the window: jump so the selection lands on the 75% line.
		v.offset = sel - (h - 1 - q)
	case pos < q:
		v.offset = sel - q
	case pos > h-1-q:
		v.offset = sel - (h - 1 - q)
	}

	v.clampOffset(total)
}

// Clamp re-clamps the offset after the sequence shrank or the window was
// resized without the selection moving.
func (v *ViewportController) Clamp(total int) {
	v.clampOffset(total)
}

func (v *ViewportController) clampOffset(total int) {
	maxOff := total - v.height
	if maxOff < 0 {
		maxOff = 0
	}
	if v.offset > maxOff {
		v.offset = maxOff
	}
	if v.offset < 0 {
		v.offset = 0
	}
}

// Window returns the half-open visible range [start, end) for a sequence of
// total rows.
func (v *ViewportController) Window(total int) (start, end int) {
	start = v.offset
	if start > total {
		start = total
	}
	end = start + v.height
	if end > total {
		end = total
	}
	return start, end
}
