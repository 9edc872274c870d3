package addrspace

import "context"

// Directory is the abstract capability the tree and search engine consume:
// enumerate a node's children and read a node's attributes. Implementations
// own connection management; every call may block or fail, so callers must
// never invoke these on a rendering loop.
//
// Implementations must be safe for concurrent use by the UI dispatch path
// and one background search engine over a single logical connection.
type Directory interface {
	// IsConnected reports whether the underlying session is usable. A false
	// return makes searches complete with no further results and turns
	// expand requests into no-ops.
	IsConnected() bool

	// Root returns the well-known reference of the namespace's top-level
	// container, the starting point for browsing and path resolution.
	Root() NodeRef

	// Browse returns the children of ref in server order (callers apply
	// SortDescriptors). A node without children yields an empty slice.
	Browse(ctx context.Context, ref NodeRef) ([]Descriptor, error)

	// ReadAttributes returns the readable attributes of ref. Partial results
	// with per-attribute quality flags are preferred over errors.
	ReadAttributes(ctx context.Context, ref NodeRef) ([]Attribute, error)
}
