package datasource

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/spacewalk/pkg/addrspace"
)

// CaptureOptions configures a snapshot capture
type CaptureOptions struct {
	// MaxNodes bounds the capture. The bound is checked between levels, so
	// the level in flight always completes. 0 means unlimited.
	MaxNodes int
	// Concurrency is the number of parallel fetches per level (default 8).
	// The remote side is one logical session, so this stays modest.
	Concurrency int
	// SkipAttributes captures structure only, which is much faster on
	// attribute-heavy spaces but disables value search on the snapshot.
	SkipAttributes bool
	// Origin describes where the capture came from, stored in snapshot meta
	Origin string
	// Logger receives progress messages (optional)
	Logger func(msg string)
}

// CaptureStats summarizes a finished capture
type CaptureStats struct {
	Nodes      int           `json:"nodes"`
	Edges      int           `json:"edges"`
	Attributes int           `json:"attributes"`
	Failures   int           `json:"failures"`
	Elapsed    time.Duration `json:"elapsed"`
}

type browseResult struct {
	ref  addrspace.NodeRef
	kids []addrspace.Descriptor
	err  error
}

type attrResult struct {
	ref   addrspace.NodeRef
	attrs []addrspace.Attribute
	err   error
}

// CaptureSnapshot walks a live Directory breadth-first and writes everything
// it reaches into a snapshot file. Fetches within one level run in parallel;
// writes happen from this goroutine only. Individual node failures are
// counted and skipped; a dropped connection or a cancelled context aborts
// the capture and leaves no file behind.
func CaptureSnapshot(ctx context.Context, dir addrspace.Directory, path string, opts CaptureOptions) (CaptureStats, error) {
	var stats CaptureStats
	start := time.Now()

	if opts.Logger == nil {
		opts.Logger = func(string) {}
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}

	if dir == nil || !dir.IsConnected() {
		return stats, addrspace.ErrNotConnected
	}

	root := dir.Root()
	w, err := CreateSnapshot(path, root, opts.Origin)
	if err != nil {
		return stats, err
	}
	abort := func() {
		w.Abort()
		_ = os.Remove(path)
	}

	rootDesc := addrspace.Descriptor{
		Ref: root, BrowseName: "Root", DisplayName: "Root",
		Class: addrspace.ClassObject, HasChildren: true,
	}
	if attrs, err := dir.ReadAttributes(ctx, root); err == nil {
		for _, a := range attrs {
			switch a.Name {
			case "BrowseName":
				rootDesc.BrowseName = a.Value
			case "DisplayName":
				rootDesc.DisplayName = a.Value
			}
		}
		if !opts.SkipAttributes {
			if err := w.PutAttributes(root, attrs); err != nil {
				abort()
				return stats, err
			}
			stats.Attributes += len(attrs)
		}
	}
	if err := w.PutNode(rootDesc); err != nil {
		abort()
		return stats, err
	}
	stats.Nodes = 1

	visited := map[addrspace.NodeRef]bool{root: true}
	frontier := []addrspace.NodeRef{root}

	for len(frontier) > 0 {
		browses, err := fetchChildren(ctx, dir, frontier, concurrency)
		if err != nil {
			abort()
			return stats, err
		}

		var discovered []addrspace.Descriptor
		for _, br := range browses {
			if br.err != nil {
				if errors.Is(br.err, addrspace.ErrNotConnected) {
					abort()
					return stats, fmt.Errorf("connection lost after %d nodes: %w", stats.Nodes, br.err)
				}
				stats.Failures++
				opts.Logger(fmt.Sprintf("browse failed for %s: %v", br.ref, br.err))
				continue
			}

			kids := br.kids
			addrspace.SortDescriptors(kids)
			if err := w.PutEdges(br.ref, kids); err != nil {
				abort()
				return stats, err
			}
			stats.Edges += len(kids)

			for _, kid := range kids {
				if visited[kid.Ref] {
					continue
				}
				visited[kid.Ref] = true
				if err := w.PutNode(kid); err != nil {
					abort()
					return stats, err
				}
				stats.Nodes++
				discovered = append(discovered, kid)
			}
		}

		if !opts.SkipAttributes && len(discovered) > 0 {
			reads, err := fetchAttributes(ctx, dir, discovered, concurrency)
			if err != nil {
				abort()
				return stats, err
			}
			for _, ar := range reads {
				if ar.err != nil {
					if errors.Is(ar.err, addrspace.ErrNotConnected) {
						abort()
						return stats, fmt.Errorf("connection lost after %d nodes: %w", stats.Nodes, ar.err)
					}
					stats.Failures++
					opts.Logger(fmt.Sprintf("attribute read failed for %s: %v", ar.ref, ar.err))
					continue
				}
				if err := w.PutAttributes(ar.ref, ar.attrs); err != nil {
					abort()
					return stats, err
				}
				stats.Attributes += len(ar.attrs)
			}
		}

		opts.Logger(fmt.Sprintf("captured %d nodes (%d in frontier)", stats.Nodes, len(frontier)))

		if opts.MaxNodes > 0 && stats.Nodes >= opts.MaxNodes {
			opts.Logger(fmt.Sprintf("node cap %d reached, stopping", opts.MaxNodes))
			break
		}

		frontier = frontier[:0]
		for _, kid := range discovered {
			if kid.HasChildren && kid.Class.CanExpand() {
				frontier = append(frontier, kid.Ref)
			}
		}
	}

	if err := w.Commit(); err != nil {
		return stats, err
	}

	stats.Elapsed = time.Since(start)
	return stats, nil
}

// fetchChildren browses one frontier in parallel. Individual failures land
// in the result rows; only a cancelled context is fatal.
func fetchChildren(ctx context.Context, dir addrspace.Directory, frontier []addrspace.NodeRef, concurrency int) ([]browseResult, error) {
	results := make([]browseResult, len(frontier))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, ref := range frontier {
		i, ref := i, ref

		g.Go(func() error {
			select {
			case <-gctx.Done():
				results[i] = browseResult{ref: ref, err: gctx.Err()}
				return nil
			default:
			}

			kids, err := dir.Browse(gctx, ref)
			results[i] = browseResult{ref: ref, kids: kids, err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// fetchAttributes reads attribute rows for newly discovered nodes in
// parallel, mirroring fetchChildren.
func fetchAttributes(ctx context.Context, dir addrspace.Directory, nodes []addrspace.Descriptor, concurrency int) ([]attrResult, error) {
	results := make([]attrResult, len(nodes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, node := range nodes {
		i, ref := i, node.Ref

		g.Go(func() error {
			select {
			case <-gctx.Done():
				results[i] = attrResult{ref: ref, err: gctx.Err()}
				return nil
			default:
			}

			attrs, err := dir.ReadAttributes(gctx, ref)
			results[i] = attrResult{ref: ref, attrs: attrs, err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}
