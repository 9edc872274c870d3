package metrics

import (
	"context"

	"github.com/vanderheijden86/spacewalk/pkg/addrspace"
)

// instrumentedDirectory wraps a Directory and times every remote call.
type instrumentedDirectory struct {
	inner addrspace.Directory
}

// Instrument wraps dir so Browse and ReadAttributes feed the Browse and
// ReadAttributes timing metrics plus the latency samples. Wrapping happens
// once at source-open time; the tree and the search engine stay metric-free.
func Instrument(dir addrspace.Directory) addrspace.Directory {
	if dir == nil {
		return nil
	}
	return &instrumentedDirectory{inner: dir}
}

func (d *instrumentedDirectory) IsConnected() bool { return d.inner.IsConnected() }

func (d *instrumentedDirectory) Root() addrspace.NodeRef { return d.inner.Root() }

func (d *instrumentedDirectory) Browse(ctx context.Context, ref addrspace.NodeRef) ([]addrspace.Descriptor, error) {
	defer TimerWithCallback(Browse, BrowseLatency.Observe)()
	return d.inner.Browse(ctx, ref)
}

func (d *instrumentedDirectory) ReadAttributes(ctx context.Context, ref addrspace.NodeRef) ([]addrspace.Attribute, error) {
	defer TimerWithCallback(ReadAttributes, ReadLatency.Observe)()
	return d.inner.ReadAttributes(ctx, ref)
}
