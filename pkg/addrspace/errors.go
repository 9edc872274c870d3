package addrspace

import "errors"

var (
	// ErrNotConnected is returned by Directory calls after the underlying
	// session is gone. Consumers treat it as "stop quietly": searches
	// complete with zero further results, expands no-op.
	ErrNotConnected = errors.New("addrspace: not connected")

	// ErrNotFound is returned when a ref cannot be resolved, e.g. a search
	// result that no longer exists by the time the tree navigates to it.
	ErrNotFound = errors.New("addrspace: node not found")
)
