package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/spacewalk/pkg/addrspace"
	"github.com/vanderheijden86/spacewalk/pkg/browse"
	"github.com/vanderheijden86/spacewalk/pkg/metrics"
	"github.com/vanderheijden86/spacewalk/pkg/watcher"
)

const (
	// browseTimeout bounds a single remote call dispatched off the loop.
	browseTimeout = 5 * time.Second

	// attrDebounce is how long the selection must rest on a row before
	// its attributes are fetched.
	attrDebounce = 150 * time.Millisecond
)

// WatchSnapshotCmd returns a command that blocks until the snapshot watcher
// reports a change, then delivers a FileChangedMsg. Re-issued after every
// change so the subscription stays alive.
func WatchSnapshotCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		<-w.Changed()
		return FileChangedMsg{}
	}
}

// drainTickCmd schedules the next coordinator drain.
func drainTickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return drainTickMsg{at: t}
	})
}

// loadRootsCmd browses the directory root off the event loop.
func loadRootsCmd(dir addrspace.Directory, reload bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), browseTimeout)
		defer cancel()
		kids, err := dir.Browse(ctx, dir.Root())
		return rootsLoadedMsg{kids: kids, err: err, reload: reload}
	}
}

// fetchChildrenCmd browses one node for expansion; the result is applied on
// the loop with ApplyChildren.
func fetchChildrenCmd(dir addrspace.Directory, parentKey string, ref addrspace.NodeRef) tea.Cmd {
	return func() tea.Msg {
		defer metrics.Timer(metrics.TreeExpand)()
		ctx, cancel := context.WithTimeout(context.Background(), browseTimeout)
		defer cancel()
		kids, err := dir.Browse(ctx, ref)
		return childrenLoadedMsg{parentKey: parentKey, kids: kids, err: err}
	}
}

// attrDebounceCmd arms the attribute-read debounce for the given selection
// sequence number.
func attrDebounceCmd(seq int) tea.Cmd {
	return tea.Tick(attrDebounce, func(time.Time) tea.Msg {
		return attrDebounceMsg{seq: seq}
	})
}

// readAttrsCmd reads the attributes of one node off the event loop.
func readAttrsCmd(dir addrspace.Directory, ref addrspace.NodeRef, seq int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), browseTimeout)
		defer cancel()
		attrs, err := dir.ReadAttributes(ctx, ref)
		return attrsLoadedMsg{ref: ref, attrs: attrs, err: err, seq: seq}
	}
}

// resolvePathCmd resolves the ancestor chain of a search hit over the
// remote graph; the steps are applied on the loop with ApplyRevealSteps.
func resolvePathCmd(dir addrspace.Directory, target addrspace.NodeRef) tea.Cmd {
	return func() tea.Msg {
		defer metrics.Timer(metrics.PathResolve)()
		ctx, cancel := context.WithTimeout(context.Background(), browseTimeout)
		defer cancel()
		steps, err := browse.ResolvePath(ctx, dir, target)
		return revealMsg{target: target, steps: steps, err: err}
	}
}
