package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/vanderheijden86/spacewalk/pkg/addrspace"
	"github.com/vanderheijden86/spacewalk/pkg/search"
	"github.com/vanderheijden86/spacewalk/pkg/testutil"
)

func rootSession(dir addrspace.Directory, query string) search.Session {
	return search.Session{
		Query: query,
		Start: addrspace.Descriptor{
			Ref:         dir.Root(),
			DisplayName: "Objects",
			Class:       addrspace.ClassObject,
			HasChildren: true,
		},
	}
}

func waitDone(t *testing.T, c *SearchCoordinator) {
	t.Helper()
	select {
	case <-c.engine.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not finish")
	}
}

func TestCoordinatorDrainCollectsResults(t *testing.T) {
	dir := testutil.DemoSpace()
	c := &SearchCoordinator{}
	c.Start(dir, rootSession(dir, "rand"), search.Config{})
	waitDone(t, c)

	sum := c.Drain()
	if sum.firstHit == nil || sum.firstHit.Ref != "ns=5;s=Random" {
		t.Fatalf("expected first hit on Random, got %+v", sum.firstHit)
	}
	if !sum.terminal {
		t.Fatal("expected the terminal message in the same drain")
	}
	if c.Searching() {
		t.Fatal("session should be over")
	}
	if got := c.Results(); len(got) != 1 || got[0].Name != "Random" {
		t.Fatalf("expected the single Random result, got %v", got)
	}
	if !strings.Contains(c.StatusLine(), "1 match") {
		t.Fatalf("unexpected status line %q", c.StatusLine())
	}

	// A second drain on a finished session is a no-op.
	if sum := c.Drain(); sum.firstHit != nil || sum.terminal {
		t.Fatal("drained a finished session")
	}
}

func TestCoordinatorFirstHitReportedOnce(t *testing.T) {
	dir := testutil.BalancedSpace(2, 3)
	c := &SearchCoordinator{}
	// Every node name contains "node", so multiple results arrive.
	c.Start(dir, rootSession(dir, "node"), search.Config{ResultCap: 6})
	waitDone(t, c)

	first := c.Drain()
	if first.firstHit == nil {
		t.Fatal("expected a first hit")
	}
	if len(c.Results()) != 6 {
		t.Fatalf("expected the cap of 6 results, got %d", len(c.Results()))
	}
	if !strings.Contains(c.StatusLine(), "cap_reached") {
		t.Fatalf("expected cap_reached status, got %q", c.StatusLine())
	}
}

func TestCoordinatorStartCancelsPrior(t *testing.T) {
	dir := testutil.BalancedSpace(3, 4)
	dir.SetBrowseDelay(5 * time.Millisecond)

	c := &SearchCoordinator{}
	c.Start(dir, rootSession(dir, "first"), search.Config{})
	prior := c.engine

	c.Start(dir, rootSession(dir, "second"), search.Config{})
	if c.Query() != "second" {
		t.Fatalf("expected the new session's query, got %q", c.Query())
	}

	select {
	case <-prior.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("prior engine was not cancelled")
	}

	c.Cancel()
	waitDone(t, c)
}

func TestCoordinatorDisconnectEndsWalkWithPartialResults(t *testing.T) {
	dir := testutil.BalancedSpace(2, 3)
	calls := 0
	dir.OnBrowse(func(addrspace.NodeRef) {
		calls++
		if calls == 2 {
			dir.SetConnected(false)
		}
	})

	c := &SearchCoordinator{}
	c.Start(dir, rootSession(dir, "node"), search.Config{})
	waitDone(t, c)
	c.Drain()

	if c.Searching() {
		t.Fatal("session should be over after the disconnect")
	}
	if len(c.Results()) == 0 {
		t.Fatal("expected the matches found before the disconnect")
	}
	if !strings.Contains(c.StatusLine(), "disconnected") {
		t.Fatalf("expected disconnected status, got %q", c.StatusLine())
	}
}

func TestCoordinatorResultCycling(t *testing.T) {
	c := &SearchCoordinator{
		results: []search.Result{
			{Ref: "a", Name: "A"},
			{Ref: "b", Name: "B"},
			{Ref: "c", Name: "C"},
		},
		done: true,
	}

	// The first hit sits at the cursor, so next starts at the second.
	seq := []string{"b", "c", "a", "b"}
	for i, want := range seq {
		got, ok := c.NextResult()
		if !ok || string(got.Ref) != want {
			t.Fatalf("next %d: expected %s, got %v", i, want, got)
		}
	}

	got, ok := c.PrevResult()
	if !ok || got.Ref != "a" {
		t.Fatalf("expected prev to step back to a, got %v", got)
	}

	empty := &SearchCoordinator{}
	if _, ok := empty.NextResult(); ok {
		t.Fatal("next on an empty result set must report false")
	}
}

func TestCoordinatorStatusLineVariants(t *testing.T) {
	if line := (&SearchCoordinator{}).StatusLine(); line != "" {
		t.Fatalf("expected empty line before any session, got %q", line)
	}

	running := &SearchCoordinator{engine: &search.Engine{}, query: "pump", visited: 12, queued: 3}
	if got := running.StatusLine(); got != `searching "pump"… visited 12, queued 3` {
		t.Fatalf("unexpected running line %q", got)
	}

	cancelled := &SearchCoordinator{engine: &search.Engine{}, query: "pump", done: true, cancelled: true}
	if got := cancelled.StatusLine(); got != `search "pump" cancelled` {
		t.Fatalf("unexpected cancelled line %q", got)
	}

	firstHit := &SearchCoordinator{
		engine:    &search.Engine{},
		query:     "pump",
		done:      true,
		cancelled: true,
		results:   []search.Result{{Ref: "x"}},
	}
	if got := firstHit.StatusLine(); got != `search "pump": 1 match (stopped at first hit)` {
		t.Fatalf("unexpected first-hit line %q", got)
	}

	exhausted := &SearchCoordinator{
		engine:  &search.Engine{},
		query:   "pump",
		done:    true,
		results: []search.Result{{Ref: "x"}, {Ref: "y"}},
	}
	if got := exhausted.StatusLine(); got != `search "pump": 2 matches (exhausted)` {
		t.Fatalf("unexpected exhausted line %q", got)
	}
}
