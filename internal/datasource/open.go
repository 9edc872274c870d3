package datasource

import (
	"fmt"
	"path/filepath"

	"github.com/vanderheijden86/spacewalk/pkg/addrspace"
	"github.com/vanderheijden86/spacewalk/pkg/metrics"
)

// OpenOptions configures how a source is opened.
type OpenOptions struct {
	// Seed drives the simulated space (ignored for snapshots).
	Seed int64
	// NoCache disables the read-through cache on snapshot sources.
	NoCache bool
}

// Handle couples an open Directory with the source it came from and the
// resources behind it. The UI reopens a fresh handle when the watcher sees
// the snapshot file change.
type Handle struct {
	Dir    addrspace.Directory
	Source Source
	Label  string

	closers []func() error
}

// Close releases everything behind the directory, innermost last.
func (h *Handle) Close() error {
	var first error
	for i := len(h.closers) - 1; i >= 0; i-- {
		if err := h.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	h.closers = nil
	return first
}

// Open opens a specific source as a Directory handle, dispatching on the
// source type. Snapshot directories are wrapped in a read-through cache and
// every source is instrumented once here, so the tree and the search engine
// stay metric-free.
func Open(source Source, opts OpenOptions) (*Handle, error) {
	switch source.Type {
	case SourceTypeSim:
		sim := NewSimDirectory(opts.Seed)
		return &Handle{
			Dir:    metrics.Instrument(sim),
			Source: source,
			Label:  fmt.Sprintf("sim (seed %d)", opts.Seed),
		}, nil

	case SourceTypeSnapshot:
		stop := metrics.Timer(metrics.SnapshotLoad)
		snap, err := OpenSnapshot(source.Path)
		stop()
		if err != nil {
			return nil, fmt.Errorf("failed to open snapshot source %s: %w", source.Path, err)
		}

		h := &Handle{Source: source}
		h.closers = append(h.closers, snap.Close)

		var dir addrspace.Directory = snap
		if !opts.NoCache {
			cached, err := NewCachedDirectory(snap)
			if err != nil {
				snap.Close()
				return nil, err
			}
			h.closers = append(h.closers, func() error {
				cached.Close()
				return nil
			})
			dir = cached
		}

		h.Dir = metrics.Instrument(dir)
		h.Label = filepath.Base(source.Path)
		if count, err := snap.CountNodes(); err == nil {
			h.Label = fmt.Sprintf("%s (%d nodes)", filepath.Base(source.Path), count)
		}
		return h, nil

	default:
		return nil, fmt.Errorf("unknown source type: %s", source.Type)
	}
}

// OpenBest discovers snapshots, validates them, and opens the freshest valid
// one. When no usable snapshot exists it falls back to the simulated space,
// so the browser always has something to show.
func OpenBest(opts OpenOptions) (*Handle, error) {
	sources, err := DiscoverSnapshots(DiscoveryOptions{
		ValidateAfterDiscovery: true,
		IncludeInvalid:         false,
	})
	if err != nil {
		return nil, err
	}

	if best, err := SelectBestSource(sources); err == nil {
		return Open(best, opts)
	}

	return Open(SimSource(), opts)
}
