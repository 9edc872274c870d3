package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/spacewalk/internal/datasource"
	"github.com/vanderheijden86/spacewalk/pkg/addrspace"
	"github.com/vanderheijden86/spacewalk/pkg/browse"
	"github.com/vanderheijden86/spacewalk/pkg/config"
	"github.com/vanderheijden86/spacewalk/pkg/export"
	"github.com/vanderheijden86/spacewalk/pkg/metrics"
	"github.com/vanderheijden86/spacewalk/pkg/search"
)

// headlessOptions carries the one-shot modes. Exactly one runs per
// invocation, checked in priority order by runHeadless.
type headlessOptions struct {
	Capture       string
	Export        string
	ExpandDepth   int
	DiffBaseline  string
	TreeDepth     int
	SearchQuery   string
	AttrsRef      string
	IncludeValues bool
	SearchCfg     config.SearchConfig
}

// runHeadless executes the selected one-shot mode and returns the process
// exit code. Robot modes write JSON to stdout; progress and errors go to
// stderr so the JSON stays parseable.
func runHeadless(h *datasource.Handle, opts headlessOptions) int {
	ctx := context.Background()
	switch {
	case opts.Capture != "":
		return runCapture(ctx, h, opts.Capture, os.Stdout)
	case opts.DiffBaseline != "":
		return runDiff(h, opts.DiffBaseline, os.Stdout)
	case opts.SearchQuery != "":
		return runRobotSearch(h, opts, os.Stdout)
	case opts.AttrsRef != "":
		return runRobotAttrs(ctx, h, opts.AttrsRef, os.Stdout)
	case opts.Export != "":
		return runExport(ctx, h, opts.Export, opts.ExpandDepth, opts.IncludeValues)
	case opts.TreeDepth >= 0:
		return runRobotTree(ctx, h, opts.TreeDepth, opts.IncludeValues, os.Stdout)
	}
	return 0
}

func runCapture(ctx context.Context, h *datasource.Handle, out string, w io.Writer) int {
	fmt.Fprintf(os.Stderr, "capturing %s into %s\n", h.Label, out)
	stats, err := datasource.CaptureSnapshot(ctx, h.Dir, out, datasource.CaptureOptions{
		Origin: h.Label,
		Logger: func(msg string) { fmt.Fprintln(os.Stderr, msg) },
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "capture failed: %v\n", err)
		return 1
	}
	fmt.Fprintf(os.Stderr, "captured %d nodes, %d attributes in %s (%d failures)\n",
		stats.Nodes, stats.Attributes, stats.Elapsed.Round(time.Millisecond), stats.Failures)
	return writeJSON(w, stats)
}

// runDiff compares a baseline snapshot against the active snapshot source.
// Exit codes follow diff(1): 0 no drift, 1 drift, 2 trouble.
func runDiff(h *datasource.Handle, baseline string, w io.Writer) int {
	if h.Source.Type != datasource.SourceTypeSnapshot {
		fmt.Fprintln(os.Stderr, "Error: --diff compares against the active snapshot; pick one with --snapshot")
		return 2
	}
	diff, err := datasource.CompareSnapshots(baseline, h.Source.Path, datasource.DefaultDiffOptions())
	if err != nil {
		fmt.Fprintf(os.Stderr, "diff failed: %v\n", err)
		return 2
	}
	fmt.Fprintln(w, strings.TrimRight(diff.Summary(), "\n"))
	if diff.HasInconsistencies() {
		return 1
	}
	return 0
}

type robotTreeRow struct {
	Ref         addrspace.NodeRef   `json:"ref"`
	Name        string              `json:"name"`
	Class       addrspace.NodeClass `json:"class"`
	Level       int                 `json:"level"`
	HasChildren bool                `json:"has_children"`
	Expanded    bool                `json:"expanded"`
	Value       string              `json:"value,omitempty"`
	Good        bool                `json:"good,omitempty"`
}

type robotTreeOutput struct {
	GeneratedAt string            `json:"generated_at"`
	Source      string            `json:"source"`
	Root        addrspace.NodeRef `json:"root"`
	Depth       int               `json:"depth"`
	Rows        []robotTreeRow    `json:"rows"`
}

func runRobotTree(ctx context.Context, h *datasource.Handle, depth int, includeValues bool, w io.Writer) int {
	tree := browse.NewTreeModel(h.Dir, nil)
	if err := expandToDepth(ctx, tree, depth); err != nil {
		fmt.Fprintf(os.Stderr, "tree walk failed: %v\n", err)
		return 1
	}

	rows := make([]robotTreeRow, 0, tree.Len())
	if includeValues {
		for _, r := range export.BuildRows(ctx, tree.Rows(), h.Dir) {
			row := robotTreeRow{
				Ref:         r.Ref,
				Name:        r.Label,
				Class:       r.Class,
				Level:       r.Depth,
				HasChildren: r.HasChildren,
				Expanded:    r.Expanded,
			}
			if r.HasValue {
				row.Value = r.Value
				row.Good = r.Good
			}
			rows = append(rows, row)
		}
	} else {
		for _, r := range tree.Rows() {
			rows = append(rows, robotTreeRow{
				Ref:         r.Ref,
				Name:        r.Name,
				Class:       r.Class,
				Level:       r.Level,
				HasChildren: r.HasChildren,
				Expanded:    r.Expanded,
			})
		}
	}

	return writeJSON(w, robotTreeOutput{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Source:      h.Label,
		Root:        h.Dir.Root(),
		Depth:       depth,
		Rows:        rows,
	})
}

type robotSearchResult struct {
	Ref   addrspace.NodeRef   `json:"ref"`
	Name  string              `json:"name"`
	Class addrspace.NodeClass `json:"class"`
}

type robotSearchOutput struct {
	GeneratedAt   string                `json:"generated_at"`
	Source        string                `json:"source"`
	Query         string                `json:"query"`
	IncludeValues bool                  `json:"include_values"`
	Visited       int                   `json:"visited"`
	Reason        string                `json:"reason"`
	Cancelled     bool                  `json:"cancelled,omitempty"`
	Results       []robotSearchResult   `json:"results"`
	Timings       []metrics.TimingStats `json:"timings,omitempty"`
	BrowseLatency metrics.LatencyStats  `json:"browse_latency"`
	ReadLatency   metrics.LatencyStats  `json:"read_latency"`
}

// runRobotSearch walks the whole space from the root with one engine
// session, waits for the terminal message and prints results plus the
// directory round-trip metrics the run produced.
func runRobotSearch(h *datasource.Handle, opts headlessOptions, w io.Writer) int {
	root := h.Dir.Root()
	session := search.Session{
		Query:         opts.SearchQuery,
		IncludeValues: opts.IncludeValues,
		Start: addrspace.Descriptor{
			Ref:         root,
			DisplayName: root.String(),
			Class:       addrspace.ClassObject,
			HasChildren: true,
		},
	}

	metrics.ResetAll()

	engine := search.NewEngine(h.Dir, session, search.Config{
		ResultCap:     opts.SearchCfg.ResultCap,
		ProgressEvery: opts.SearchCfg.ProgressEvery,
	})
	engine.Start()
	<-engine.Done()

	out := robotSearchOutput{
		GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
		Source:        h.Label,
		Query:         opts.SearchQuery,
		IncludeValues: opts.IncludeValues,
		Results:       []robotSearchResult{},
	}

drain:
	for {
		select {
		case msg := <-engine.Messages():
			switch m := msg.(type) {
			case search.CompleteMsg:
				out.Reason = m.Reason.String()
				out.Visited = m.Visited
				for _, r := range m.Results {
					out.Results = append(out.Results, robotSearchResult{Ref: r.Ref, Name: r.Name, Class: r.Class})
				}
			case search.CancelledMsg:
				out.Cancelled = true
			}
		default:
			break drain
		}
	}

	out.Timings = metrics.AllTimingStats()
	out.BrowseLatency = metrics.BrowseLatency.Snapshot()
	out.ReadLatency = metrics.ReadLatency.Snapshot()

	return writeJSON(w, out)
}

type robotAttrsOutput struct {
	GeneratedAt string                `json:"generated_at"`
	Source      string                `json:"source"`
	Ref         addrspace.NodeRef     `json:"ref"`
	Attributes  []addrspace.Attribute `json:"attributes"`
}

func runRobotAttrs(ctx context.Context, h *datasource.Handle, ref string, w io.Writer) int {
	attrs, err := h.Dir.ReadAttributes(ctx, addrspace.NodeRef(ref))
	if err != nil {
		fmt.Fprintf(os.Stderr, "read failed: %v\n", err)
		return 1
	}
	return writeJSON(w, robotAttrsOutput{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Source:      h.Label,
		Ref:         addrspace.NodeRef(ref),
		Attributes:  attrs,
	})
}

func runExport(ctx context.Context, h *datasource.Handle, path string, depth int, includeValues bool) int {
	tree := browse.NewTreeModel(h.Dir, nil)
	if err := expandToDepth(ctx, tree, depth); err != nil {
		fmt.Fprintf(os.Stderr, "tree walk failed: %v\n", err)
		return 1
	}

	var valueDir addrspace.Directory
	if includeValues {
		valueDir = h.Dir
	}
	rows := export.BuildRows(ctx, tree.Rows(), valueDir)

	opts := export.TreeSnapshotOptions{
		Path:   path,
		Title:  "spacewalk tree",
		Source: h.Label,
		Rows:   rows,
	}
	if h.Source.Type == datasource.SourceTypeSnapshot && !h.Source.ModTime.IsZero() {
		opts.CapturedAt = h.Source.ModTime.Format(time.RFC3339)
	}

	if err := export.SaveTreeSnapshot(opts); err != nil {
		fmt.Fprintf(os.Stderr, "export failed: %v\n", err)
		return 1
	}
	fmt.Fprintf(os.Stderr, "exported %d rows to %s\n", len(rows), path)
	return 0
}

// expandToDepth materializes the tree level by level down to depth levels
// below the roots. Depth 0 keeps just the roots. Per-node browse failures
// skip the node the way the interactive tree does; a lost connection aborts.
func expandToDepth(ctx context.Context, tree *browse.TreeModel, depth int) error {
	if err := tree.LoadRoots(ctx); err != nil {
		return err
	}
	for level := 0; level < depth; level++ {
		var refs []addrspace.NodeRef
		for _, row := range tree.Rows() {
			if row.Level == level && row.HasChildren && !row.Expanded && row.Class.CanExpand() {
				refs = append(refs, row.Ref)
			}
		}
		if len(refs) == 0 {
			break
		}
		for _, ref := range refs {
			if err := tree.ExpandByRef(ctx, ref); err != nil {
				if errors.Is(err, addrspace.ErrNotConnected) {
					return err
				}
				continue
			}
		}
	}
	return nil
}

// writeJSON pretty-prints v to w the way every robot mode reports.
func writeJSON(w io.Writer, v any) int {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "encode failed: %v\n", err)
		return 1
	}
	return 0
}
