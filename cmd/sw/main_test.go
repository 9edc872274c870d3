package main

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/spacewalk/internal/datasource"
	"github.com/vanderheijden86/spacewalk/pkg/config"
)

func TestMemoryPathPerSourceIdentity(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	simA := memoryPath(datasource.SimSource(), 42)
	simB := memoryPath(datasource.SimSource(), 43)
	if simA == simB {
		t.Error("different seeds share an expansion memory file")
	}
	if !strings.Contains(simA, "sim-42") {
		t.Errorf("sim path = %q, want seed in slug", simA)
	}

	tmp := t.TempDir()
	snapA := memoryPath(datasource.SnapshotSource(filepath.Join(tmp, "a", "plant.swdb")), 0)
	snapB := memoryPath(datasource.SnapshotSource(filepath.Join(tmp, "b", "plant.swdb")), 0)
	if snapA == snapB {
		t.Error("same basename in different directories shares an expansion memory file")
	}
	for _, p := range []string{simA, snapA} {
		if !strings.HasSuffix(p, ".json") {
			t.Errorf("memory path %q should end in .json", p)
		}
		if filepath.Dir(p) == "." {
			t.Errorf("memory path %q not under the state dir", p)
		}
	}
	if !strings.Contains(filepath.Base(snapA), "plant") {
		t.Errorf("snapshot slug %q should keep the basename", snapA)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plant", "plant"},
		{"Plant Floor 2", "plant_floor_2"},
		{"a-b.c", "a-b_c"},
		{"ÜBER", "_ber"},
	}
	for _, tt := range tests {
		if got := slugify(tt.in); got != tt.want {
			t.Errorf("slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOpenSourceExplicitSim(t *testing.T) {
	cfg := config.DefaultConfig()
	h, err := openSource(&cfg, true, "", datasource.OpenOptions{Seed: 9, NoCache: true}, true)
	if err != nil {
		t.Fatalf("openSource: %v", err)
	}
	defer h.Close()

	if h.Source.Type != datasource.SourceTypeSim {
		t.Errorf("source type = %q, want sim", h.Source.Type)
	}
	if h.Label != "sim (seed 9)" {
		t.Errorf("label = %q", h.Label)
	}
}

func TestOpenSourceFallsBackToSimWithoutSnapshots(t *testing.T) {
	t.Setenv("SW_SNAPSHOT_DIR", t.TempDir())

	cfg := config.DefaultConfig()
	h, err := openSource(&cfg, false, "", datasource.OpenOptions{Seed: 1, NoCache: true}, true)
	if err != nil {
		t.Fatalf("openSource: %v", err)
	}
	defer h.Close()

	if h.Source.Type != datasource.SourceTypeSim {
		t.Errorf("source type = %q, want sim fallback", h.Source.Type)
	}
}

func TestOpenSourceExplicitSnapshot(t *testing.T) {
	tmp := t.TempDir()
	path := captureFile(t, 7, tmp, "line4.swdb")

	cfg := config.DefaultConfig()
	h, err := openSource(&cfg, false, path, datasource.OpenOptions{NoCache: true}, true)
	if err != nil {
		t.Fatalf("openSource: %v", err)
	}
	defer h.Close()

	if h.Source.Type != datasource.SourceTypeSnapshot {
		t.Errorf("source type = %q, want snapshot", h.Source.Type)
	}
	if !strings.Contains(h.Label, "line4.swdb") || !strings.Contains(h.Label, "nodes") {
		t.Errorf("label = %q, want basename and node count", h.Label)
	}
}
