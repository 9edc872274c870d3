package ui

import (
	"time"

	"github.com/vanderheijden86/spacewalk/pkg/addrspace"
	"github.com/vanderheijden86/spacewalk/pkg/browse"
)

// FileChangedMsg is sent when the watched snapshot file changes on disk.
type FileChangedMsg struct{}

// rootsLoadedMsg carries the result of a root browse. reload marks loads
// triggered by a snapshot change rather than startup.
type rootsLoadedMsg struct {
	kids   []addrspace.Descriptor
	err    error
	reload bool
}

// childrenLoadedMsg carries the result of one expansion fetch.
type childrenLoadedMsg struct {
	parentKey string
	kids      []addrspace.Descriptor
	err       error
}

// attrsLoadedMsg carries the attributes of the selected node. seq guards
// against a stale read racing a newer selection.
type attrsLoadedMsg struct {
	ref   addrspace.NodeRef
	attrs []addrspace.Attribute
	err   error
	seq   int
}

// attrDebounceMsg fires once the selection has rested on one row long
// enough to be worth a remote read.
type attrDebounceMsg struct{ seq int }

// revealMsg carries the resolved ancestor path to a search hit.
type revealMsg struct {
	target addrspace.NodeRef
	steps  []browse.RevealStep
	err    error
}

// drainTickMsg drives the periodic search drain and deferred housekeeping.
type drainTickMsg struct{ at time.Time }
