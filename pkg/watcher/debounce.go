package watcher

import (
	"sync"
	"time"
)

// DefaultDebounceDuration is how long rapid-fire change events are coalesced
// before a single reload fires. Snapshot captures touch the file several
// times in quick succession (write, checkpoint, close); one notification is
// enough.
const DefaultDebounceDuration = 300 * time.Millisecond

// Debouncer coalesces bursts of triggers into one callback invocation after
// a quiet period.
type Debouncer struct {
	mu       sync.Mutex
	duration time.Duration
	timer    *time.Timer
}

// NewDebouncer returns a debouncer with the given quiet period. Non-positive
// durations fall back to DefaultDebounceDuration.
func NewDebouncer(d time.Duration) *Debouncer {
	if d <= 0 {
		d = DefaultDebounceDuration
	}
	return &Debouncer{duration: d}
}

// Duration returns the configured quiet period.
func (d *Debouncer) Duration() time.Duration {
	return d.duration
}

// Trigger schedules fn to run after the quiet period. A trigger arriving
// before the period elapses replaces the pending callback and restarts the
// clock.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.duration, fn)
}

// Cancel drops any pending callback.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
