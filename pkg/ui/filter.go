package ui

import (
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/vanderheijden86/spacewalk/pkg/browse"
)

// filterState is the local quick filter over the materialized rows. It
// never touches the directory: non-matching rows render dimmed and n/N hop
// between hits. Orthogonal to the remote search, which walks unmaterialized
// branches.
type filterState struct {
	applied bool // a non-empty query is dimming rows
	query   string
	matches map[int]bool
	order   []int // hit indexes in row order
}

// Reset clears the filter entirely.
func (f *filterState) Reset() {
	f.applied = false
	f.query = ""
	f.matches = nil
	f.order = nil
}

// Recompute re-evaluates the query against the current rows. Call after
// every structural change while the filter is applied.
func (f *filterState) Recompute(rows []browse.TreeNode) {
	if f.query == "" {
		f.applied = false
		f.matches = nil
		f.order = nil
		return
	}
	f.applied = true
	f.matches = make(map[int]bool, len(rows))
	f.order = f.order[:0]
	for i := range rows {
		if fuzzy.MatchFold(f.query, rows[i].Name) || fuzzy.MatchFold(f.query, string(rows[i].Ref)) {
			f.matches[i] = true
			f.order = append(f.order, i)
		}
	}
}

// IsMatch reports whether row i is a hit. With no filter applied every row
// matches.
func (f *filterState) IsMatch(i int) bool {
	if !f.applied {
		return true
	}
	return f.matches[i]
}

// MatchCount returns the number of hits.
func (f *filterState) MatchCount() int { return len(f.order) }

// Next returns the first hit strictly after cur, wrapping around.
func (f *filterState) Next(cur int) (int, bool) {
	if len(f.order) == 0 {
		return 0, false
	}
	for _, idx := range f.order {
		if idx > cur {
			return idx, true
		}
	}
	return f.order[0], true
}

// Prev returns the last hit strictly before cur, wrapping around.
func (f *filterState) Prev(cur int) (int, bool) {
	if len(f.order) == 0 {
		return 0, false
	}
	for i := len(f.order) - 1; i >= 0; i-- {
		if f.order[i] < cur {
			return f.order[i], true
		}
	}
	return f.order[len(f.order)-1], true
}
