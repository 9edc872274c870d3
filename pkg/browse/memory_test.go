package browse

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestExpansionMemorySaveLoadRoundTrip verifies keys survive a save/load
// cycle and the dirty flag clears on save.
func TestExpansionMemorySaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "expansion.json")
	m := NewExpansionMemory()
	m.Add("i=85")
	m.Add("i=85\x1fns=2;i=5001")
	m.Add("i=85\x1fns=2;i=5001\x1fns=2;s=Pump")

	if !m.Dirty() {
		t.Fatal("expected dirty after adds")
	}
	if err := m.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	if m.Dirty() {
		t.Error("expected clean after save")
	}

	loaded := LoadExpansionMemory(path)
	if loaded.Len() != 3 {
		t.Fatalf("expected 3 keys loaded, got %d", loaded.Len())
	}
	for _, k := range []string{"i=85", "i=85\x1fns=2;i=5001", "i=85\x1fns=2;i=5001\x1fns=2;s=Pump"} {
		if !loaded.Has(k) {
			t.Errorf("expected key %q present after load", k)
		}
	}
	if loaded.Dirty() {
		t.Error("expected loaded memory to start clean")
	}
}

// TestExpansionMemoryLoadMissingFile verifies a missing state file yields
// an empty memory.
func TestExpansionMemoryLoadMissingFile(t *testing.T) {
	m := LoadExpansionMemory(filepath.Join(t.TempDir(), "nope.json"))
	if m.Len() != 0 {
		t.Errorf("expected empty memory, got %d keys", m.Len())
	}
}

// TestExpansionMemoryLoadCorrupt verifies unparseable state is discarded.
func TestExpansionMemoryLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expansion.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	m := LoadExpansionMemory(path)
	if m.Len() != 0 {
		t.Errorf("expected corrupt state discarded, got %d keys", m.Len())
	}
}

// TestExpansionMemoryLoadVersionMismatch verifies unknown format versions
// are discarded rather than half-read.
func TestExpansionMemoryLoadVersionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expansion.json")
	if err := os.WriteFile(path, []byte(`{"version":99,"keys":["a","b"]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	m := LoadExpansionMemory(path)
	if m.Len() != 0 {
		t.Errorf("expected mismatched version discarded, got %d keys", m.Len())
	}
}

// TestExpansionMemoryDirtyTracking verifies only real changes set the
// dirty flag.
func TestExpansionMemoryDirtyTracking(t *testing.T) {
	m := NewExpansionMemory()
	if m.Dirty() {
		t.Fatal("expected fresh memory clean")
	}

	m.Add("k")
	if !m.Dirty() {
		t.Error("expected Add to dirty")
	}
	m.MarkClean()
	m.Add("k") // already present
	if m.Dirty() {
		t.Error("expected duplicate Add to stay clean")
	}
	m.Remove("missing")
	if m.Dirty() {
		t.Error("expected Remove of missing key to stay clean")
	}
	m.Remove("k")
	if !m.Dirty() {
		t.Error("expected Remove to dirty")
	}
	m.MarkClean()
	m.Clear() // already empty
	if m.Dirty() {
		t.Error("expected Clear of empty memory to stay clean")
	}
	m.Add("")
	if m.Dirty() || m.Len() != 0 {
		t.Error("expected empty key ignored")
	}
}

// TestExpansionMemorySaveOverwrites verifies a second save replaces the
// first file, leaving stable sorted contents.
func TestExpansionMemorySaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expansion.json")
	m := NewExpansionMemory()
	m.Add("b")
	m.Add("a")
	if err := m.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	m.Remove("b")
	if err := m.Save(path); err != nil {
		t.Fatalf("second save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if strings.Contains(string(data), `"b"`) {
		t.Errorf("expected removed key gone from file, got %s", data)
	}
	if !strings.Contains(string(data), `"version": 1`) {
		t.Errorf("expected version field, got %s", data)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("expected temp file cleaned up by rename")
	}
}
