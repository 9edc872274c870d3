package search

import (
	"strings"

	"github.com/vanderheijden86/spacewalk/pkg/addrspace"
)

// matcher holds the normalized query term. Matching is case-insensitive
// substring containment, so results are deterministic for a given space.
type matcher struct {
	term string
}

func newMatcher(query string) matcher {
	return matcher{term: strings.ToLower(strings.TrimSpace(query))}
}

func (m matcher) empty() bool { return m.term == "" }

func (m matcher) matchesText(s string) bool {
	return m.term != "" && s != "" && strings.Contains(strings.ToLower(s), m.term)
}

// matchesDescriptor tests the node identifier and both names.
func (m matcher) matchesDescriptor(d addrspace.Descriptor) bool {
	return m.matchesText(d.Ref.String()) || m.matchesText(d.BrowseName) || m.matchesText(d.DisplayName)
}

// matchesAttributes tests the textual form of good-quality attribute
// values; bad-quality reads never match.
func (m matcher) matchesAttributes(attrs []addrspace.Attribute) bool {
	for _, a := range attrs {
		if !a.Good {
			continue
		}
		if m.matchesText(a.Value) {
			return true
		}
	}
	return false
}
