// Package search implements the cancellable breadth-first walk over the
// remote address space. An Engine runs one search session in a single
// goroutine and reports over a buffered message channel; the foreground
// drains that channel on its tick and never blocks on the walk.
package search

import (
	"strings"

	"github.com/vanderheijden86/spacewalk/pkg/addrspace"
)

// Session describes one search run. The walk covers the start node's
// subtree first and then, in order, each continuation sibling and its
// subtree. The start node itself is never a match (the cursor is already
// on it); continuation siblings are.
//
// Continuation descriptors come from the caller's materialized rows: the
// engine never needs to re-discover nodes the foreground already has.
type Session struct {
	Query         string
	IncludeValues bool
	Start         addrspace.Descriptor
	Continue      []addrspace.Descriptor
}

// Empty reports whether the session has nothing to look for.
func (s Session) Empty() bool {
	return strings.TrimSpace(s.Query) == ""
}
