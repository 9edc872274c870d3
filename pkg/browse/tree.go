package browse

import (
	"context"
	"errors"
	"fmt"

	"github.com/vanderheijden86/spacewalk/pkg/addrspace"
	"github.com/vanderheijden86/spacewalk/pkg/debug"
)

// TreeNode is one materialized row of the flattened tree.
type TreeNode struct {
	Name        string
	Ref         addrspace.NodeRef
	Class       addrspace.NodeClass
	Level       int
	HasChildren bool
	Expanded    bool
	PathKey     string
}

// TreeModel owns the flattened visible row sequence and the selection.
//
// Sequence invariant: for an expanded node at index i with level L, the rows
// following i with level > L, up to the first row with level <= L, are
// exactly its materialized descendants in depth-first presentation order.
//
// The selection is -1 exactly when the sequence is empty; every mutating
// operation keeps it in bounds.
type TreeModel struct {
	dir addrspace.Directory
	mem *ExpansionMemory

	rows []TreeNode
	sel  int
}

// NewTreeModel returns an empty tree over dir. A nil memory gets a fresh
// one.
func NewTreeModel(dir addrspace.Directory, mem *ExpansionMemory) *TreeModel {
	if mem == nil {
		mem = NewExpansionMemory()
	}
	return &TreeModel{dir: dir, mem: mem, sel: -1}
}

// Memory returns the expansion memory the tree tags children from.
func (t *TreeModel) Memory() *ExpansionMemory { return t.mem }

// Len returns the number of materialized rows.
func (t *TreeModel) Len() int { return len(t.rows) }

// Rows returns the flattened sequence. The slice is owned by the model;
// callers must treat it as read-only.
func (t *TreeModel) Rows() []TreeNode { return t.rows }

// Row returns the node at index i.
func (t *TreeModel) Row(i int) (TreeNode, bool) {
	if i < 0 || i >= len(t.rows) {
		return TreeNode{}, false
	}
	return t.rows[i], true
}

// Selection returns the selected index, -1 when the tree is empty.
func (t *TreeModel) Selection() int { return t.sel }

// SelectedNode returns the node under the selection.
func (t *TreeModel) SelectedNode() (TreeNode, bool) {
	return t.Row(t.sel)
}

// SetSelection moves the selection, clamping into the valid range.
func (t *TreeModel) SetSelection(i int) {
	if len(t.rows) == 0 {
		t.sel = -1
		return
	}
	if i < 0 {
		i = 0
	}
	if i >= len(t.rows) {
		i = len(t.rows) - 1
	}
	t.sel = i
}

// MoveSelection shifts the selection by delta rows, clamped.
func (t *TreeModel) MoveSelection(delta int) {
	if len(t.rows) == 0 {
		return
	}
	t.SetSelection(t.sel + delta)
}

// SelectRef moves the selection to the first row with the given ref.
func (t *TreeModel) SelectRef(ref addrspace.NodeRef) bool {
	if idx, ok := t.FindIndexByRef(ref); ok {
		t.sel = idx
		return true
	}
	return false
}

// FindIndexByRef scans the materialized sequence for the first row with the
// given ref. The node may exist remotely without being materialized.
func (t *TreeModel) FindIndexByRef(ref addrspace.NodeRef) (int, bool) {
	for i := range t.rows {
		if t.rows[i].Ref == ref {
			return i, true
		}
	}
	return 0, false
}

// FindIndexByKey scans for the row with the given expansion-memory path
// key. Unlike refs, path keys are unique per tree position.
func (t *TreeModel) FindIndexByKey(key string) (int, bool) {
	for i := range t.rows {
		if t.rows[i].PathKey == key {
			return i, true
		}
	}
	return 0, false
}

// ParentIndex returns the index of the row's nearest ancestor, scanning
// backwards for the first row with a smaller level.
func (t *TreeModel) ParentIndex(i int) (int, bool) {
	if i <= 0 || i >= len(t.rows) {
		return 0, false
	}
	level := t.rows[i].Level
	for j := i - 1; j >= 0; j-- {
		if t.rows[j].Level < level {
			return j, true
		}
	}
	return 0, false
}

// CanExpand reports whether Expand(i) would do anything: the row must carry
// the server's child hint, be expandable by class, and not be expanded yet.
func (t *TreeModel) CanExpand(i int) bool {
	if i < 0 || i >= len(t.rows) {
		return false
	}
	n := t.rows[i]
	return n.HasChildren && n.Class.CanExpand() && !n.Expanded
}

// ExpandedCount returns how many rows are currently expanded.
func (t *TreeModel) ExpandedCount() int {
	count := 0
	for i := range t.rows {
		if t.rows[i].Expanded {
			count++
		}
	}
	return count
}

// LoadRoots (re)populates the level-0 rows from the directory root. The
// previous selection is preserved by ref when the node survives the reload.
// Expansion memory is left untouched; remembered drill-down is restored as
// branches are re-expanded (see RememberedCollapsed).
func (t *TreeModel) LoadRoots(ctx context.Context) error {
	if t.dir == nil || !t.dir.IsConnected() {
		return addrspace.ErrNotConnected
	}
	kids, err := t.dir.Browse(ctx, t.dir.Root())
	if err != nil {
		return fmt.Errorf("browse root: %w", err)
	}
	t.ApplyRoots(kids)
	return nil
}

// ApplyRoots replaces the level-0 rows with pre-fetched root children: the
// pure half of LoadRoots, safe on the event loop. Selection is preserved by
// ref when the node survives the swap.
func (t *TreeModel) ApplyRoots(kids []addrspace.Descriptor) {
	addrspace.SortDescriptors(kids)

	var prevRef addrspace.NodeRef
	if n, ok := t.SelectedNode(); ok {
		prevRef = n.Ref
	}

	rows := make([]TreeNode, len(kids))
	for i, d := range kids {
		rows[i] = TreeNode{
			Name:        d.Label(),
			Ref:         d.Ref,
			Class:       d.Class,
			Level:       0,
			HasChildren: d.HasChildren,
			PathKey:     addrspace.ChildPathKey("", d.Ref),
		}
	}
	t.rows = rows
	t.sel = -1
	if len(rows) > 0 {
		t.sel = 0
		if !prevRef.IsZero() {
			if idx, ok := t.FindIndexByRef(prevRef); ok {
				t.sel = idx
			}
		}
	}
}

// fetchChildren performs the remote browse for expansion, returning the
// children already sorted.
func (t *TreeModel) fetchChildren(ctx context.Context, ref addrspace.NodeRef) ([]addrspace.Descriptor, error) {
	if t.dir == nil || !t.dir.IsConnected() {
		return nil, addrspace.ErrNotConnected
	}
	kids, err := t.dir.Browse(ctx, ref)
	if err != nil {
		return nil, err
	}
	addrspace.SortDescriptors(kids)
	return kids, nil
}

// Expand materializes the children of the row at index i, splicing them
// into the sequence right after it and re-expanding any children the
// expansion memory remembers. Preconditions failing make it a no-op. A
// disconnected directory makes it a silent no-op; a transient browse
// failure is logged, leaves the node unexpanded, and is returned so callers
// can surface it once; retrying is just calling Expand again.
//
// Expand blocks on remote I/O. Interactive callers dispatch the fetch off
// the event loop and apply with ApplyChildren instead.
func (t *TreeModel) Expand(ctx context.Context, i int) error {
	if !t.CanExpand(i) {
		return nil
	}
	node := t.rows[i]
	kids, err := t.fetchChildren(ctx, node.Ref)
	if err != nil {
		if errors.Is(err, addrspace.ErrNotConnected) {
			return nil
		}
		debug.Log("tree: expand %s: %v", node.Ref, err)
		return fmt.Errorf("expand %s: %w", node.Ref, err)
	}
	_, cascade := t.ApplyChildren(node.PathKey, kids)
	for _, key := range cascade {
		if err := t.expandByKey(ctx, key); err != nil {
			debug.Log("tree: restore %s: %v", key, err)
		}
	}
	return nil
}

// ExpandByRef expands the first materialized row with the given ref, the
// form path revelation uses for ancestors.
func (t *TreeModel) ExpandByRef(ctx context.Context, ref addrspace.NodeRef) error {
	idx, ok := t.FindIndexByRef(ref)
	if !ok {
		return fmt.Errorf("expand %s: %w", ref, addrspace.ErrNotFound)
	}
	return t.Expand(ctx, idx)
}

func (t *TreeModel) expandByKey(ctx context.Context, key string) error {
	idx, ok := t.FindIndexByKey(key)
	if !ok {
		return fmt.Errorf("expand key: %w", addrspace.ErrNotFound)
	}
	return t.Expand(ctx, idx)
}

// ApplyChildren splices pre-fetched children under the row with the given
// path key: the pure half of Expand, safe on the event loop. It sorts and
// tags the children, marks the parent expanded, records it in expansion
// memory, and keeps the selection pointing at the same node.
//
// The returned keys are children the memory wants re-expanded (cascade);
// callers fetch those next. An empty child set clears the parent's child
// hint instead of expanding.
func (t *TreeModel) ApplyChildren(parentKey string, kids []addrspace.Descriptor) (added int, cascade []string) {
	idx, ok := t.FindIndexByKey(parentKey)
	if !ok {
		return 0, nil
	}
	parent := &t.rows[idx]
	if parent.Expanded || !parent.Class.CanExpand() {
		return 0, nil
	}
	if len(kids) == 0 {
		parent.HasChildren = false
		return 0, nil
	}

	addrspace.SortDescriptors(kids)
	children := make([]TreeNode, len(kids))
	for i, d := range kids {
		key := addrspace.ChildPathKey(parent.PathKey, d.Ref)
		children[i] = TreeNode{
			Name:        d.Label(),
			Ref:         d.Ref,
			Class:       d.Class,
			Level:       parent.Level + 1,
			HasChildren: d.HasChildren,
			PathKey:     key,
		}
		if d.HasChildren && d.Class.CanExpand() && t.mem.Has(key) {
			cascade = append(cascade, key)
		}
	}

	parent.Expanded = true
	parent.HasChildren = true
	t.mem.Add(parent.PathKey)

	t.rows = append(t.rows[:idx+1], append(children, t.rows[idx+1:]...)...)
	if t.sel > idx {
		t.sel += len(children)
	}
	return len(children), cascade
}

// Collapse removes the contiguous descendant range of the expanded row at
// index i and forgets the row's own path key (descendant keys stay, so
// re-expanding restores them). Selection inside the removed range lands on
// the collapsed row; selection after it shifts left. Collapsing a
// non-expanded row is a no-op.
func (t *TreeModel) Collapse(i int) (removed int) {
	if i < 0 || i >= len(t.rows) {
		return 0
	}
	if !t.rows[i].Expanded {
		return 0
	}
	level := t.rows[i].Level
	end := i + 1
	for end < len(t.rows) && t.rows[end].Level > level {
		end++
	}
	removed = end - (i + 1)

	t.rows[i].Expanded = false
	t.mem.Remove(t.rows[i].PathKey)
	t.rows = append(t.rows[:i+1], t.rows[end:]...)

	if t.sel > i && t.sel < end {
		t.sel = i
	} else if t.sel >= end {
		t.sel -= removed
	}
	return removed
}

// EnsureVisible makes the target row materialized and selected, resolving
// the ancestor path over the remote graph when necessary and expanding each
// ancestor in order (the synthetic root is never a row). Failures here are
// the one tree error surfaced upward: they mean "could not navigate to
// result".
//
// EnsureVisible blocks on remote I/O; interactive callers resolve with
// ResolvePath off-loop and apply with ApplyRevealSteps.
func (t *TreeModel) EnsureVisible(ctx context.Context, target addrspace.NodeRef) error {
	if target.IsZero() {
		return fmt.Errorf("ensure visible: %w", addrspace.ErrNotFound)
	}
	if idx, ok := t.FindIndexByRef(target); ok {
		t.sel = idx
		return nil
	}
	steps, err := ResolvePath(ctx, t.dir, target)
	if err != nil {
		return fmt.Errorf("resolve path to %s: %w", target, err)
	}
	return t.ApplyRevealSteps(target, steps)
}

// ApplyRevealSteps applies a resolved ancestor path: each step expands one
// ancestor using its pre-fetched children, then the target is selected.
// Pure in-memory; safe on the event loop.
func (t *TreeModel) ApplyRevealSteps(target addrspace.NodeRef, steps []RevealStep) error {
	rootRef := addrspace.NodeRef("")
	if t.dir != nil {
		rootRef = t.dir.Root()
	}
	for _, step := range steps {
		if step.Parent == rootRef {
			// Root children are the level-0 rows, already materialized in a
			// loaded tree. Populate them only when the tree is empty.
			if len(t.rows) == 0 {
				rows := make([]TreeNode, len(step.Children))
				for i, d := range step.Children {
					rows[i] = TreeNode{
						Name:        d.Label(),
						Ref:         d.Ref,
						Class:       d.Class,
						HasChildren: d.HasChildren,
						PathKey:     addrspace.ChildPathKey("", d.Ref),
					}
				}
				t.rows = rows
				if len(rows) > 0 {
					t.sel = 0
				}
			}
			continue
		}
		idx, ok := t.FindIndexByRef(step.Parent)
		if !ok {
			return fmt.Errorf("reveal %s: ancestor %s not materialized: %w", target, step.Parent, addrspace.ErrNotFound)
		}
		if !t.rows[idx].Expanded {
			t.ApplyChildren(t.rows[idx].PathKey, step.Children)
		}
	}
	idx, ok := t.FindIndexByRef(target)
	if !ok {
		return fmt.Errorf("reveal %s: %w", target, addrspace.ErrNotFound)
	}
	t.sel = idx
	return nil
}

// RememberedCollapsed returns the path keys of materialized rows the
// expansion memory wants open but which are currently collapsed. Callers
// expand these (each expansion may surface more) until it returns nothing.
func (t *TreeModel) RememberedCollapsed() []string {
	var keys []string
	for i := range t.rows {
		n := &t.rows[i]
		if !n.Expanded && n.HasChildren && n.Class.CanExpand() && t.mem.Has(n.PathKey) {
			keys = append(keys, n.PathKey)
		}
	}
	return keys
}

// RestoreRemembered re-expands remembered branches until none remain or no
// progress is possible (fetch failures leave their branches collapsed).
func (t *TreeModel) RestoreRemembered(ctx context.Context) {
	for {
		keys := t.RememberedCollapsed()
		if len(keys) == 0 {
			return
		}
		progressed := false
		for _, key := range keys {
			before := len(t.rows)
			if err := t.expandByKey(ctx, key); err != nil {
				debug.Log("tree: restore %s: %v", key, err)
				continue
			}
			if len(t.rows) != before {
				progressed = true
			}
		}
		if !progressed {
			return
		}
	}
}
