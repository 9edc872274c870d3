// Package browse implements the foreground tree state: the flattened,
// currently-visible row sequence, the expansion memory that survives
// collapse/re-expand cycles and reloads, the viewport scrolling rule, and
// remote path resolution for revealing search results.
//
// Everything in this package is owned by the foreground loop. The only
// methods that perform remote I/O are the explicitly context-taking ones
// (Expand, EnsureVisible, LoadRoots, ResolvePath); interactive callers run
// those off-loop and apply the results with the pure Apply* counterparts.
package browse

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/spacewalk/pkg/debug"
)

// memoryStateVersion guards the on-disk format. Bump on incompatible
// changes; unknown versions are discarded rather than migrated.
const memoryStateVersion = 1

// ExpansionMemory records which tree paths the user has drilled into, keyed
// by ancestor-ref path keys (see addrspace.ChildPathKey). Freshly fetched
// children whose key is present are re-expanded automatically, which is what
// restores drill-down depth after a collapse or a reload.
type ExpansionMemory struct {
	keys  map[string]struct{}
	dirty bool
}

// NewExpansionMemory returns an empty memory.
func NewExpansionMemory() *ExpansionMemory {
	return &ExpansionMemory{keys: make(map[string]struct{})}
}

// Has reports whether key was recorded.
func (m *ExpansionMemory) Has(key string) bool {
	_, ok := m.keys[key]
	return ok
}

// Add records key.
func (m *ExpansionMemory) Add(key string) {
	if key == "" {
		return
	}
	if _, ok := m.keys[key]; !ok {
		m.keys[key] = struct{}{}
		m.dirty = true
	}
}

// Remove forgets key. Descendant keys are kept on purpose: collapsing an
// ancestor must not erase the drill-down below it, or re-expanding could
// not restore it.
func (m *ExpansionMemory) Remove(key string) {
	if _, ok := m.keys[key]; ok {
		delete(m.keys, key)
		m.dirty = true
	}
}

// Clear drops every key (disconnect/reset).
func (m *ExpansionMemory) Clear() {
	if len(m.keys) > 0 {
		m.dirty = true
	}
	m.keys = make(map[string]struct{})
}

// Len returns the number of recorded keys.
func (m *ExpansionMemory) Len() int { return len(m.keys) }

// Dirty reports whether the memory changed since the last Save/MarkClean.
func (m *ExpansionMemory) Dirty() bool { return m.dirty }

// MarkClean resets the dirty flag without saving.
func (m *ExpansionMemory) MarkClean() { m.dirty = false }

// memoryState is the persisted form.
type memoryState struct {
	Version int      `json:"version"`
	Keys    []string `json:"keys"`
}

// LoadExpansionMemory reads a previously saved memory. A missing, corrupt,
// or version-mismatched file yields an empty memory, never an error worth
// aborting startup for.
func LoadExpansionMemory(path string) *ExpansionMemory {
	m := NewExpansionMemory()
	data, err := os.ReadFile(path)
	if err != nil {
		return m
	}
	var state memoryState
	if err := json.Unmarshal(data, &state); err != nil {
		debug.Log("expansion memory: discarding corrupt state %s: %v", path, err)
		return m
	}
	if state.Version != memoryStateVersion {
		debug.Log("expansion memory: discarding state version %d (want %d)", state.Version, memoryStateVersion)
		return m
	}
	for _, k := range state.Keys {
		m.keys[k] = struct{}{}
	}
	return m
}

// Save writes the memory atomically (temp file + rename) and clears the
// dirty flag on success.
func (m *ExpansionMemory) Save(path string) error {
	keys := make([]string, 0, len(m.keys))
	for k := range m.keys {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	data, err := json.MarshalIndent(memoryState{Version: memoryStateVersion, Keys: keys}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal expansion memory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write expansion memory: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace expansion memory: %w", err)
	}
	m.dirty = false
	return nil
}
