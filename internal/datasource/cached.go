package datasource

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/vanderheijden86/spacewalk/pkg/addrspace"
	"github.com/vanderheijden86/spacewalk/pkg/metrics"
)

// CachedDirectory is a read-through cache in front of another Directory.
// Snapshot files are immutable while open, so cached browse and attribute
// results never go stale; the watcher reopens the whole source when the
// file changes, which starts from an empty cache.
//
// Both caches hand out copies. Callers sort browse results in place, and a
// shared backing array would leak those sorts back into the cache.
type CachedDirectory struct {
	inner  addrspace.Directory
	browse *ristretto.Cache[string, []addrspace.Descriptor]
	attrs  *ristretto.Cache[string, []addrspace.Attribute]
}

// NewCachedDirectory wraps inner with browse and attribute caches.
func NewCachedDirectory(inner addrspace.Directory) (*CachedDirectory, error) {
	if inner == nil {
		return nil, fmt.Errorf("cached directory needs an inner directory")
	}

	browse, err := ristretto.NewCache(&ristretto.Config[string, []addrspace.Descriptor]{
		NumCounters: 100_000, // 10x expected unique refs
		MaxCost:     1 << 20, // cost is row count, so roughly a million rows
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("browse cache: %w", err)
	}

	attrs, err := ristretto.NewCache(&ristretto.Config[string, []addrspace.Attribute]{
		NumCounters: 100_000,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		browse.Close()
		return nil, fmt.Errorf("attribute cache: %w", err)
	}

	return &CachedDirectory{inner: inner, browse: browse, attrs: attrs}, nil
}

// IsConnected reports the inner directory's connectivity.
func (c *CachedDirectory) IsConnected() bool { return c.inner.IsConnected() }

// Root returns the inner directory's root ref.
func (c *CachedDirectory) Root() addrspace.NodeRef { return c.inner.Root() }

// Browse returns the node's children, from cache when possible.
func (c *CachedDirectory) Browse(ctx context.Context, ref addrspace.NodeRef) ([]addrspace.Descriptor, error) {
	if !c.inner.IsConnected() {
		return nil, addrspace.ErrNotConnected
	}

	if kids, ok := c.browse.Get(ref.String()); ok {
		metrics.SnapshotCache.Hit()
		out := make([]addrspace.Descriptor, len(kids))
		copy(out, kids)
		return out, nil
	}
	metrics.SnapshotCache.Miss()

	kids, err := c.inner.Browse(ctx, ref)
	if err != nil {
		return nil, err
	}

	stored := make([]addrspace.Descriptor, len(kids))
	copy(stored, kids)
	c.browse.Set(ref.String(), stored, int64(len(stored))+1)

	return kids, nil
}

// ReadAttributes returns the node's attribute rows, from cache when possible.
func (c *CachedDirectory) ReadAttributes(ctx context.Context, ref addrspace.NodeRef) ([]addrspace.Attribute, error) {
	if !c.inner.IsConnected() {
		return nil, addrspace.ErrNotConnected
	}

	if attrs, ok := c.attrs.Get(ref.String()); ok {
		metrics.SnapshotCache.Hit()
		out := make([]addrspace.Attribute, len(attrs))
		copy(out, attrs)
		return out, nil
	}
	metrics.SnapshotCache.Miss()

	attrs, err := c.inner.ReadAttributes(ctx, ref)
	if err != nil {
		return nil, err
	}

	stored := make([]addrspace.Attribute, len(attrs))
	copy(stored, attrs)
	c.attrs.Set(ref.String(), stored, int64(len(stored))+1)

	return attrs, nil
}

// Wait flushes pending cache writes. Sets are buffered, so a read right
// after a miss may miss again; Wait makes warm-up deterministic in tests.
func (c *CachedDirectory) Wait() {
	c.browse.Wait()
	c.attrs.Wait()
}

// Close releases both caches. The inner directory is not closed.
func (c *CachedDirectory) Close() {
	c.browse.Close()
	c.attrs.Close()
}
