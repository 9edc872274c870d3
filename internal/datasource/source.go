// Package datasource provides the concrete address spaces behind the
// browser: a deterministic simulated space and read-only snapshot files
// captured from a live space. It discovers snapshot files, validates and
// selects the freshest one, and opens any source as an addrspace.Directory.
package datasource

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/vanderheijden86/spacewalk/pkg/config"
)

// SourceType identifies how a source is opened.
type SourceType string

const (
	// SourceTypeSnapshot is a captured address-space snapshot file.
	SourceTypeSnapshot SourceType = "snapshot"
	// SourceTypeSim is the built-in simulated space.
	SourceTypeSim SourceType = "sim"
)

// Priority values for source types (higher = more authoritative)
const (
	PrioritySnapshot = 100
	PrioritySim      = 10
)

// SnapshotExt is the extension snapshot discovery looks for.
const SnapshotExt = ".swdb"

// Source represents one openable address-space source
type Source struct {
	// Type identifies the source type
	Type SourceType `json:"type"`
	// Path is the path to the snapshot file, or "sim" for the built-in space
	Path string `json:"path"`
	// Priority determines preference when timestamps are equal (higher = preferred)
	Priority int `json:"priority"`
	// ModTime is the last modification time of the source
	ModTime time.Time `json:"mod_time"`
	// Valid indicates whether the source passed validation
	Valid bool `json:"valid"`
	// ValidationError describes why validation failed (if Valid is false)
	ValidationError string `json:"validation_error,omitempty"`
	// NodeCount is the number of nodes in the source (set during validation)
	NodeCount int `json:"node_count"`
	// Size is the file size in bytes
	Size int64 `json:"size"`
}

// SimSource returns the always-available built-in simulated space.
func SimSource() Source {
	return Source{
		Type:     SourceTypeSim,
		Path:     "sim",
		Priority: PrioritySim,
		Valid:    true,
	}
}

// SnapshotSource builds a Source for a snapshot path without validating it.
func SnapshotSource(path string) Source {
	s := Source{
		Type:     SourceTypeSnapshot,
		Path:     path,
		Priority: PrioritySnapshot,
	}
	if info, err := os.Stat(path); err == nil {
		s.ModTime = info.ModTime()
		s.Size = info.Size()
	}
	return s
}

// String returns a human-readable description of the source
func (s Source) String() string {
	if s.Type == SourceTypeSim {
		return "sim (built-in simulated space)"
	}
	status := "valid"
	if !s.Valid {
		status = fmt.Sprintf("invalid: %s", s.ValidationError)
	}
	return fmt.Sprintf("%s (%s, priority=%d, mod=%s, nodes=%d, %s)",
		s.Path, s.Type, s.Priority, s.ModTime.Format(time.RFC3339), s.NodeCount, status)
}

// DiscoveryOptions configures snapshot discovery behavior
type DiscoveryOptions struct {
	// Dir is the snapshot directory (optional, auto-detected if empty)
	Dir string
	// ValidateAfterDiscovery runs validation on each discovered snapshot
	ValidateAfterDiscovery bool
	// IncludeInvalid includes snapshots that failed validation in results
	IncludeInvalid bool
	// Verbose enables detailed logging during discovery
	Verbose bool
	// Logger receives log messages when Verbose is true
	Logger func(msg string)
}

// SnapshotDir resolves the directory snapshots are discovered in and written
// to by default: SW_SNAPSHOT_DIR when set, otherwise the XDG data directory.
func SnapshotDir() string {
	if dir := os.Getenv("SW_SNAPSHOT_DIR"); dir != "" {
		return dir
	}
	return config.DataDir()
}

// DiscoverSnapshots finds all snapshot files in the snapshot directory
func DiscoverSnapshots(opts DiscoveryOptions) ([]Source, error) {
	if opts.Logger == nil {
		opts.Logger = func(string) {}
	}

	dir := opts.Dir
	if dir == "" {
		dir = SnapshotDir()
	}

	if opts.Verbose {
		opts.Logger(fmt.Sprintf("Discovering snapshots in: %s", dir))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot directory: %w", err)
	}

	var sources []Source
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()

		if !strings.HasSuffix(name, SnapshotExt) {
			continue
		}

		// Skip capture leftovers and editor artifacts
		if strings.Contains(name, ".partial") || strings.Contains(name, ".tmp") {
			continue
		}

		info, err := e.Info()
		if err != nil {
			continue
		}

		path := filepath.Join(dir, name)
		sources = append(sources, Source{
			Type:     SourceTypeSnapshot,
			Path:     path,
			Priority: PrioritySnapshot,
			ModTime:  info.ModTime(),
			Size:     info.Size(),
		})

		if opts.Verbose {
			opts.Logger(fmt.Sprintf("Found snapshot: %s (mod=%s)", path, info.ModTime().Format(time.RFC3339)))
		}
	}

	if opts.ValidateAfterDiscovery {
		for i := range sources {
			if err := ValidateSource(&sources[i]); err != nil && opts.Verbose {
				opts.Logger(fmt.Sprintf("Validation failed for %s: %v", sources[i].Path, err))
			}
		}
	}

	if opts.ValidateAfterDiscovery && !opts.IncludeInvalid {
		var valid []Source
		for _, s := range sources {
			if s.Valid {
				valid = append(valid, s)
			}
		}
		sources = valid
	}

	// Sort by mod time, then priority
	sort.Slice(sources, func(i, j int) bool {
		if sources[i].ModTime.Equal(sources[j].ModTime) {
			return sources[i].Priority > sources[j].Priority
		}
		return sources[i].ModTime.After(sources[j].ModTime)
	})

	if opts.Verbose {
		opts.Logger(fmt.Sprintf("Discovered %d snapshots", len(sources)))
	}

	return sources, nil
}

// ValidateSource checks that a source can actually be opened and fills in
// the Valid, NodeCount and ValidationError fields. The sim source is always
// valid.
func ValidateSource(s *Source) error {
	switch s.Type {
	case SourceTypeSim:
		s.Valid = true
		return nil

	case SourceTypeSnapshot:
		snap, err := OpenSnapshot(s.Path)
		if err != nil {
			s.Valid = false
			s.ValidationError = err.Error()
			return err
		}
		defer snap.Close()

		count, err := snap.CountNodes()
		if err != nil {
			s.Valid = false
			s.ValidationError = fmt.Sprintf("node count failed: %v", err)
			return err
		}
		if count == 0 {
			s.Valid = false
			s.ValidationError = "snapshot contains no nodes"
			return fmt.Errorf("snapshot contains no nodes: %s", s.Path)
		}
		if snap.Root().IsZero() {
			s.Valid = false
			s.ValidationError = "snapshot has no root ref"
			return fmt.Errorf("snapshot has no root ref: %s", s.Path)
		}

		s.Valid = true
		s.ValidationError = ""
		s.NodeCount = count
		return nil

	default:
		s.Valid = false
		s.ValidationError = fmt.Sprintf("unknown source type: %s", s.Type)
		return fmt.Errorf("unknown source type: %s", s.Type)
	}
}

// SelectBestSource returns the freshest valid source from a discovery
// result. Sources are expected in the order DiscoverSnapshots produced.
func SelectBestSource(sources []Source) (Source, error) {
	for _, s := range sources {
		if s.Valid {
			return s, nil
		}
	}
	return Source{}, fmt.Errorf("no valid sources available")
}
