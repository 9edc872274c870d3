package datasource

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vanderheijden86/spacewalk/pkg/addrspace"
)

// TestDiscoverSnapshotsValidatesAndSorts checks discovery finds snapshot
// files, drops garbage, and orders by freshness.
func TestDiscoverSnapshotsValidatesAndSorts(t *testing.T) {
	dir := t.TempDir()

	older := filepath.Join(dir, "plant-a.swdb")
	newer := filepath.Join(dir, "plant-b.swdb")
	broken := filepath.Join(dir, "broken.swdb")
	writeTestSnapshot(t, older)
	writeTestSnapshot(t, newer)
	for name, content := range map[string]string{
		"broken.swdb":      "junk",
		"notes.txt":        "not a snapshot",
		"cap.tmp.swdb":     "in flight",
		"run.partial.swdb": "in flight",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s failed: %v", name, err)
		}
	}

	base := time.Now().Add(-time.Hour)
	for i, path := range []string{older, newer, broken} {
		ts := base.Add(time.Duration(i) * 10 * time.Minute)
		if err := os.Chtimes(path, ts, ts); err != nil {
			t.Fatalf("chtimes failed: %v", err)
		}
	}

	sources, err := DiscoverSnapshots(DiscoveryOptions{Dir: dir, ValidateAfterDiscovery: true})
	if err != nil {
		t.Fatalf("discovery failed: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("expected 2 valid snapshots, got %d: %v", len(sources), sources)
	}
	if sources[0].Path != newer || sources[1].Path != older {
		t.Errorf("expected freshest first, got [%s, %s]", sources[0].Path, sources[1].Path)
	}
	for _, s := range sources {
		if !s.Valid || s.NodeCount != 4 {
			t.Errorf("expected valid 4-node snapshot, got %+v", s)
		}
	}

	all, err := DiscoverSnapshots(DiscoveryOptions{Dir: dir, ValidateAfterDiscovery: true, IncludeInvalid: true})
	if err != nil {
		t.Fatalf("discovery with invalid failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 snapshots including the broken one, got %d", len(all))
	}
	if all[0].Path != broken || all[0].Valid {
		t.Errorf("expected the broken snapshot first and invalid, got %+v", all[0])
	}
	if all[0].ValidationError == "" {
		t.Error("expected a validation error message")
	}
}

// TestDiscoverSnapshotsMissingDir checks a missing directory is not an error.
func TestDiscoverSnapshotsMissingDir(t *testing.T) {
	sources, err := DiscoverSnapshots(DiscoveryOptions{Dir: filepath.Join(t.TempDir(), "nope")})
	if err != nil {
		t.Fatalf("expected missing dir to be quiet, got %v", err)
	}
	if len(sources) != 0 {
		t.Errorf("expected no sources, got %d", len(sources))
	}
}

// TestSnapshotDirEnvOverride checks SW_SNAPSHOT_DIR wins over the XDG
// default.
func TestSnapshotDirEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SW_SNAPSHOT_DIR", dir)
	if got := SnapshotDir(); got != dir {
		t.Errorf("expected %s, got %s", dir, got)
	}
}

// TestSelectBestSource checks selection skips invalid entries.
func TestSelectBestSource(t *testing.T) {
	bad := Source{Type: SourceTypeSnapshot, Path: "a", Valid: false}
	good := Source{Type: SourceTypeSnapshot, Path: "b", Valid: true}

	best, err := SelectBestSource([]Source{bad, good})
	if err != nil {
		t.Fatalf("selection failed: %v", err)
	}
	if best.Path != "b" {
		t.Errorf("expected b, got %s", best.Path)
	}

	if _, err := SelectBestSource([]Source{bad}); err == nil {
		t.Error("expected no valid sources to be an error")
	}
	if _, err := SelectBestSource(nil); err == nil {
		t.Error("expected empty list to be an error")
	}
}

// TestValidateSourceSim checks the sim source is always valid.
func TestValidateSourceSim(t *testing.T) {
	s := SimSource()
	if err := ValidateSource(&s); err != nil {
		t.Fatalf("sim validation failed: %v", err)
	}
	if !s.Valid {
		t.Error("expected sim source to be valid")
	}
}

// TestValidateSourceEmptySnapshot checks a committed but empty snapshot is
// rejected.
func TestValidateSourceEmptySnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.swdb")
	w, err := CreateSnapshot(path, "i=84", "")
	if err != nil {
		t.Fatalf("CreateSnapshot failed: %v", err)
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	s := SnapshotSource(path)
	if err := ValidateSource(&s); err == nil {
		t.Fatal("expected empty snapshot to fail validation")
	}
	if s.Valid || s.ValidationError == "" {
		t.Errorf("expected invalid source with reason, got %+v", s)
	}
}

// TestSourceString checks the human-readable form names the problem.
func TestSourceString(t *testing.T) {
	s := Source{Type: SourceTypeSnapshot, Path: "/tmp/x.swdb", Valid: false, ValidationError: "no nodes"}
	if out := s.String(); !strings.Contains(out, "invalid: no nodes") || !strings.Contains(out, "/tmp/x.swdb") {
		t.Errorf("unexpected string form: %s", out)
	}
	if out := SimSource().String(); !strings.Contains(out, "sim") {
		t.Errorf("unexpected sim string form: %s", out)
	}
}

// TestOpenSimHandle checks the sim dispatch path.
func TestOpenSimHandle(t *testing.T) {
	h, err := Open(SimSource(), OpenOptions{Seed: 7})
	if err != nil {
		t.Fatalf("open sim failed: %v", err)
	}
	defer h.Close()

	if h.Label != "sim (seed 7)" {
		t.Errorf("expected sim label with seed, got %q", h.Label)
	}
	if !h.Dir.IsConnected() {
		t.Error("expected sim handle to be connected")
	}
	if _, err := h.Dir.Browse(context.Background(), h.Dir.Root()); err != nil {
		t.Errorf("browse through handle failed: %v", err)
	}
}

// TestOpenSnapshotHandle checks the snapshot dispatch path, including
// teardown.
func TestOpenSnapshotHandle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plant.swdb")
	writeTestSnapshot(t, path)

	h, err := Open(SnapshotSource(path), OpenOptions{})
	if err != nil {
		t.Fatalf("open snapshot failed: %v", err)
	}

	if !strings.Contains(h.Label, "plant.swdb") || !strings.Contains(h.Label, "4 nodes") {
		t.Errorf("expected label with name and node count, got %q", h.Label)
	}

	kids, err := h.Dir.Browse(context.Background(), "i=84")
	if err != nil {
		t.Fatalf("browse through handle failed: %v", err)
	}
	if len(kids) != 1 || kids[0].Ref != "ns=2;s=Mixer" {
		t.Errorf("expected [Mixer], got %+v", kids)
	}

	if err := h.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if _, err := h.Dir.Browse(context.Background(), "i=84"); !errors.Is(err, addrspace.ErrNotConnected) {
		t.Errorf("expected ErrNotConnected after close, got %v", err)
	}
}

// TestOpenUnknownType checks dispatch rejects unknown source types.
func TestOpenUnknownType(t *testing.T) {
	if _, err := Open(Source{Type: "carrier-pigeon"}, OpenOptions{}); err == nil {
		t.Error("expected unknown source type to be rejected")
	}
}

// TestOpenBestFallsBackToSim checks the browser always has something to
// show.
func TestOpenBestFallsBackToSim(t *testing.T) {
	t.Setenv("SW_SNAPSHOT_DIR", t.TempDir())

	h, err := OpenBest(OpenOptions{Seed: 3})
	if err != nil {
		t.Fatalf("OpenBest failed: %v", err)
	}
	defer h.Close()

	if h.Source.Type != SourceTypeSim {
		t.Errorf("expected sim fallback, got %s", h.Source.Type)
	}
}

// TestOpenBestPrefersSnapshot checks a valid snapshot wins over the sim.
func TestOpenBestPrefersSnapshot(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SW_SNAPSHOT_DIR", dir)
	writeTestSnapshot(t, filepath.Join(dir, "plant.swdb"))

	h, err := OpenBest(OpenOptions{})
	if err != nil {
		t.Fatalf("OpenBest failed: %v", err)
	}
	defer h.Close()

	if h.Source.Type != SourceTypeSnapshot {
		t.Errorf("expected snapshot source, got %s", h.Source.Type)
	}
	if !strings.HasSuffix(h.Source.Path, "plant.swdb") {
		t.Errorf("expected plant.swdb, got %s", h.Source.Path)
	}
}
