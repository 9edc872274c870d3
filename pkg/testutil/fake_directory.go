// Package testutil provides deterministic address-space fixtures and a
// scriptable in-memory Directory for tests: per-ref failure injection,
// browse latency, call counting, and connection toggling.
package testutil

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vanderheijden86/spacewalk/pkg/addrspace"
)

// FakeDirectory is an in-memory addrspace.Directory whose behavior tests
// can script. All methods are safe for concurrent use.
type FakeDirectory struct {
	mu        sync.Mutex
	root      addrspace.NodeRef
	children  map[addrspace.NodeRef][]addrspace.Descriptor
	attrs     map[addrspace.NodeRef][]addrspace.Attribute
	browseErr map[addrspace.NodeRef]error
	attrErr   map[addrspace.NodeRef]error
	connected bool
	delay     time.Duration
	onBrowse  func(addrspace.NodeRef)

	browseCalls atomic.Int64
	attrCalls   atomic.Int64
}

// NewFakeDirectory returns an empty connected directory rooted at root.
func NewFakeDirectory(root addrspace.NodeRef) *FakeDirectory {
	return &FakeDirectory{
		root:      root,
		children:  make(map[addrspace.NodeRef][]addrspace.Descriptor),
		attrs:     make(map[addrspace.NodeRef][]addrspace.Attribute),
		browseErr: make(map[addrspace.NodeRef]error),
		attrErr:   make(map[addrspace.NodeRef]error),
		connected: true,
	}
}

// Add appends children under parent. HasChildren hints are recomputed at
// browse time, so fixtures can be built in any order.
func (f *FakeDirectory) Add(parent addrspace.NodeRef, ds ...addrspace.Descriptor) *FakeDirectory {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.children[parent] = append(f.children[parent], ds...)
	return f
}

// SetAttrs replaces the attributes served for ref.
func (f *FakeDirectory) SetAttrs(ref addrspace.NodeRef, attrs ...addrspace.Attribute) *FakeDirectory {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attrs[ref] = attrs
	return f
}

// FailBrowse makes Browse(ref) return err until cleared with a nil err.
func (f *FakeDirectory) FailBrowse(ref addrspace.NodeRef, err error) *FakeDirectory {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.browseErr, ref)
	} else {
		f.browseErr[ref] = err
	}
	return f
}

// FailAttrs makes ReadAttributes(ref) return err until cleared.
func (f *FakeDirectory) FailAttrs(ref addrspace.NodeRef, err error) *FakeDirectory {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.attrErr, ref)
	} else {
		f.attrErr[ref] = err
	}
	return f
}

// SetConnected toggles the connection state observed by IsConnected and by
// every subsequent call.
func (f *FakeDirectory) SetConnected(c bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = c
}

// SetBrowseDelay makes every Browse sleep for d (interruptible by ctx).
func (f *FakeDirectory) SetBrowseDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = d
}

// OnBrowse installs a hook invoked at the start of every Browse call, before
// any delay or failure injection. Used to trigger cancellation mid-search.
func (f *FakeDirectory) OnBrowse(fn func(addrspace.NodeRef)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onBrowse = fn
}

// BrowseCalls returns how many Browse calls have been issued so far.
func (f *FakeDirectory) BrowseCalls() int64 { return f.browseCalls.Load() }

// AttrCalls returns how many ReadAttributes calls have been issued so far.
func (f *FakeDirectory) AttrCalls() int64 { return f.attrCalls.Load() }

// IsConnected implements addrspace.Directory.
func (f *FakeDirectory) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// Root implements addrspace.Directory.
func (f *FakeDirectory) Root() addrspace.NodeRef { return f.root }

// Browse implements addrspace.Directory.
func (f *FakeDirectory) Browse(ctx context.Context, ref addrspace.NodeRef) ([]addrspace.Descriptor, error) {
	f.mu.Lock()
	connected := f.connected
	hook := f.onBrowse
	delay := f.delay
	err := f.browseErr[ref]
	kids := f.children[ref]
	f.mu.Unlock()

	f.browseCalls.Add(1)
	if hook != nil {
		hook(ref)
	}
	if !connected {
		return nil, addrspace.ErrNotConnected
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	out := make([]addrspace.Descriptor, len(kids))
	copy(out, kids)
	f.mu.Lock()
	for i := range out {
		if len(f.children[out[i].Ref]) > 0 {
			out[i].HasChildren = true
		}
	}
	f.mu.Unlock()
	return out, nil
}

// ReadAttributes implements addrspace.Directory.
func (f *FakeDirectory) ReadAttributes(ctx context.Context, ref addrspace.NodeRef) ([]addrspace.Attribute, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.attrCalls.Add(1)

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return nil, addrspace.ErrNotConnected
	}
	if err := f.attrErr[ref]; err != nil {
		return nil, err
	}
	attrs := make([]addrspace.Attribute, len(f.attrs[ref]))
	copy(attrs, f.attrs[ref])
	return attrs, nil
}
