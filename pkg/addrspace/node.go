// Package addrspace defines the domain model for a remote hierarchical
// address space: node references, node classes, browse descriptors, and the
// Directory capability the rest of the application consumes. No protocol
// code lives here; concrete Directory implementations are plugged in by
// internal/datasource (simulated space, snapshot files) or by callers.
package addrspace

import (
	"fmt"
	"sort"
	"strings"
)

// NodeRef is the opaque identifier of a node in the remote address space.
// It is the stable equality key for remote calls, visited sets, and
// expansion-memory paths. Its contents are meaningful only to the Directory
// that issued it.
type NodeRef string

// String returns the ref's raw string form (also used by the match
// predicate, which tests the query against this form).
func (r NodeRef) String() string { return string(r) }

// IsZero reports whether the ref is empty.
func (r NodeRef) IsZero() bool { return r == "" }

// NodeClass categorizes a node. The declaration order doubles as the sort
// priority used for child ordering and search traversal: Method sorts first,
// ReferenceType last, unknown classes after everything.
type NodeClass int

const (
	ClassMethod NodeClass = iota
	ClassObject
	ClassVariable
	ClassView
	ClassObjectType
	ClassVariableType
	ClassDataType
	ClassReferenceType
	ClassUnknown
)

var classNames = [...]string{
	ClassMethod:        "Method",
	ClassObject:        "Object",
	ClassVariable:      "Variable",
	ClassView:          "View",
	ClassObjectType:    "ObjectType",
	ClassVariableType:  "VariableType",
	ClassDataType:      "DataType",
	ClassReferenceType: "ReferenceType",
	ClassUnknown:       "Unknown",
}

func (c NodeClass) String() string {
	if c < 0 || int(c) >= len(classNames) {
		return fmt.Sprintf("NodeClass(%d)", int(c))
	}
	return classNames[c]
}

// ParseNodeClass maps a class name (case-insensitive) back to its NodeClass.
// Unrecognized names yield ClassUnknown so stale snapshot files never fail
// to load.
func ParseNodeClass(s string) NodeClass {
	for c, name := range classNames {
		if strings.EqualFold(s, name) {
			return NodeClass(c)
		}
	}
	return ClassUnknown
}

// MarshalText implements encoding.TextMarshaler (state files, robot JSON).
func (c NodeClass) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *NodeClass) UnmarshalText(b []byte) error {
	*c = ParseNodeClass(string(b))
	return nil
}

// CanExpand reports whether nodes of this class ever show an expand
// affordance. Methods and Variables are always leaves in the tree view,
// regardless of any server-reported child hint.
func (c NodeClass) CanExpand() bool {
	switch c {
	case ClassObject, ClassView, ClassObjectType, ClassVariableType, ClassDataType, ClassReferenceType:
		return true
	default:
		return false
	}
}

// Descriptor is one browse result: the server's description of a child node.
type Descriptor struct {
	Ref         NodeRef   `json:"ref"`
	BrowseName  string    `json:"browse_name"`
	DisplayName string    `json:"display_name"`
	Class       NodeClass `json:"class"`
	HasChildren bool      `json:"has_children"`
}

// Label returns the name shown in the tree: the display name when present,
// otherwise the browse name, otherwise the raw ref.
func (d Descriptor) Label() string {
	if d.DisplayName != "" {
		return d.DisplayName
	}
	if d.BrowseName != "" {
		return d.BrowseName
	}
	return d.Ref.String()
}

// Attribute is one readable attribute of a node. Good mirrors the remote
// quality flag; bad-quality values are skipped by the value-match predicate.
type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Good  bool   `json:"good"`
}

// SortDescriptors orders children the way both the tree and the search
// traversal present them: class priority first (Method < Object < Variable <
// View < ObjectType < VariableType < DataType < ReferenceType), then
// case-insensitive display label, then ref as the final tiebreak.
func SortDescriptors(ds []Descriptor) {
	sort.SliceStable(ds, func(i, j int) bool {
		if ds[i].Class != ds[j].Class {
			return ds[i].Class < ds[j].Class
		}
		li := strings.ToLower(ds[i].Label())
		lj := strings.ToLower(ds[j].Label())
		if li != lj {
			return li < lj
		}
		return ds[i].Ref < ds[j].Ref
	})
}
