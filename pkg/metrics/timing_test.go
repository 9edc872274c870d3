package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/vanderheijden86/spacewalk/pkg/addrspace"
	"github.com/vanderheijden86/spacewalk/pkg/testutil"
)

func TestTimingMetricRecord(t *testing.T) {
	m := newTimingMetric("test_op")
	m.Record(10 * time.Millisecond)
	m.Record(30 * time.Millisecond)
	m.Record(20 * time.Millisecond)

	if m.Count() != 3 {
		t.Errorf("expected count 3, got %d", m.Count())
	}
	if m.MinNs() != (10 * time.Millisecond).Nanoseconds() {
		t.Errorf("expected min 10ms, got %dns", m.MinNs())
	}
	if m.MaxNs() != (30 * time.Millisecond).Nanoseconds() {
		t.Errorf("expected max 30ms, got %dns", m.MaxNs())
	}
	if m.AvgNs() != (20 * time.Millisecond).Nanoseconds() {
		t.Errorf("expected avg 20ms, got %dns", m.AvgNs())
	}

	stats := m.Stats()
	if stats.Name != "test_op" || stats.Count != 3 {
		t.Errorf("unexpected stats %+v", stats)
	}

	m.Reset()
	if m.Count() != 0 || m.MinNs() != 0 {
		t.Error("expected reset to clear everything")
	}
}

func TestTimingMetricDisabled(t *testing.T) {
	SetEnabled(false)
	defer SetEnabled(true)

	m := newTimingMetric("gated")
	m.Record(time.Millisecond)
	Timer(m)()
	if m.Count() != 0 {
		t.Errorf("expected no recordings while disabled, got %d", m.Count())
	}
}

func TestTimerRecords(t *testing.T) {
	m := newTimingMetric("timed")
	done := Timer(m)
	time.Sleep(2 * time.Millisecond)
	done()

	if m.Count() != 1 {
		t.Fatalf("expected one recording, got %d", m.Count())
	}
	if m.MaxNs() < time.Millisecond.Nanoseconds() {
		t.Errorf("expected at least 1ms recorded, got %dns", m.MaxNs())
	}
}

func TestTimerWithCallback(t *testing.T) {
	m := newTimingMetric("cb")
	var got time.Duration
	done := TimerWithCallback(m, func(d time.Duration) { got = d })
	done()

	if m.Count() != 1 {
		t.Errorf("expected one recording, got %d", m.Count())
	}
	if got < 0 {
		t.Errorf("expected callback duration, got %v", got)
	}
}

func TestCacheMetric(t *testing.T) {
	m := newCacheMetric("c")
	if m.HitRate() != 0 {
		t.Errorf("expected rate 0 with no data, got %f", m.HitRate())
	}
	m.Hit()
	m.Hit()
	m.Hit()
	m.Miss()
	if m.Hits() != 3 || m.Misses() != 1 {
		t.Errorf("expected 3/1, got %d/%d", m.Hits(), m.Misses())
	}
	if m.HitRate() != 0.75 {
		t.Errorf("expected rate 0.75, got %f", m.HitRate())
	}
	m.Reset()
	if m.Hits() != 0 || m.Misses() != 0 {
		t.Error("expected reset counters")
	}
}

func TestInstrumentedDirectoryTimesCalls(t *testing.T) {
	Browse.Reset()
	ReadAttributes.Reset()
	defer ResetAll()

	dir := Instrument(testutil.DemoSpace())
	ctx := context.Background()
	if _, err := dir.Browse(ctx, dir.Root()); err != nil {
		t.Fatalf("browse: %v", err)
	}
	if _, err := dir.ReadAttributes(ctx, "ns=5;s=Random"); err != nil {
		t.Fatalf("read attributes: %v", err)
	}

	if Browse.Count() != 1 {
		t.Errorf("expected 1 browse recording, got %d", Browse.Count())
	}
	if ReadAttributes.Count() != 1 {
		t.Errorf("expected 1 read recording, got %d", ReadAttributes.Count())
	}
	if !dir.IsConnected() {
		t.Error("expected passthrough connectivity")
	}
	if dir.Root() != addrspace.NodeRef("i=85") {
		t.Errorf("expected passthrough root, got %s", dir.Root())
	}
}

func TestAllTimingStatsSkipsEmpty(t *testing.T) {
	ResetAll()
	PathResolve.Record(5 * time.Millisecond)
	defer ResetAll()

	stats := AllTimingStats()
	for _, s := range stats {
		if s.Count == 0 {
			t.Errorf("expected only metrics with data, got %+v", s)
		}
	}
	found := false
	for _, s := range stats {
		if s.Name == "path_resolve" {
			found = true
		}
	}
	if !found {
		t.Error("expected path_resolve in stats")
	}
}
