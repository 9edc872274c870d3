package browse

import (
	"context"
	"fmt"

	"github.com/vanderheijden86/spacewalk/pkg/addrspace"
	"github.com/vanderheijden86/spacewalk/pkg/debug"
)

// RevealStep is one ancestor expansion on the path to a target: the parent
// to expand and its full sorted child set, pre-fetched so applying the step
// needs no I/O.
type RevealStep struct {
	Parent   addrspace.NodeRef
	Children []addrspace.Descriptor
}

// ResolvePath walks the remote graph breadth-first from the root until it
// finds target, then returns the expansion steps for every ancestor on the
// way there, root first. Only expandable classes are descended into, so a
// resolvable target is always reachable through rows the tree can open.
//
// Returns addrspace.ErrNotFound when the reachable graph does not contain
// the target and addrspace.ErrNotConnected when the directory is down.
// Browse failures on interior nodes skip that branch.
func ResolvePath(ctx context.Context, dir addrspace.Directory, target addrspace.NodeRef) ([]RevealStep, error) {
	if dir == nil || !dir.IsConnected() {
		return nil, addrspace.ErrNotConnected
	}
	if target.IsZero() {
		return nil, fmt.Errorf("resolve: %w", addrspace.ErrNotFound)
	}

	root := dir.Root()
	parents := map[addrspace.NodeRef]addrspace.NodeRef{root: root}
	children := map[addrspace.NodeRef][]addrspace.Descriptor{}
	queue := []addrspace.NodeRef{root}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ref := queue[0]
		queue = queue[1:]

		kids, err := dir.Browse(ctx, ref)
		if err != nil {
			if ref == root {
				return nil, fmt.Errorf("resolve: browse root: %w", err)
			}
			debug.Log("resolve: browse %s: %v", ref, err)
			continue
		}
		addrspace.SortDescriptors(kids)
		children[ref] = kids

		for _, d := range kids {
			if _, seen := parents[d.Ref]; seen {
				continue
			}
			parents[d.Ref] = ref
			if d.Ref == target {
				return buildSteps(parents, children, root, target), nil
			}
			if d.HasChildren && d.Class.CanExpand() {
				queue = append(queue, d.Ref)
			}
		}
	}
	return nil, fmt.Errorf("resolve %s: %w", target, addrspace.ErrNotFound)
}

// buildSteps reconstructs the ancestor chain root..parent(target) and pairs
// each ancestor with its cached children.
func buildSteps(parents map[addrspace.NodeRef]addrspace.NodeRef, children map[addrspace.NodeRef][]addrspace.Descriptor, root, target addrspace.NodeRef) []RevealStep {
	var chain []addrspace.NodeRef
	for ref := parents[target]; ; ref = parents[ref] {
		chain = append(chain, ref)
		if ref == root {
			break
		}
	}
	steps := make([]RevealStep, 0, len(chain))
	for i := len(chain) - 1; i >= 0; i-- {
		ref := chain[i]
		steps = append(steps, RevealStep{Parent: ref, Children: children[ref]})
	}
	return steps
}
