package browse

import (
	"context"
	"testing"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/spacewalk/pkg/testutil"
)

// checkTreeInvariants asserts the structural invariants the flattened
// sequence must hold after every operation: selection in bounds, levels
// forming a valid depth-first flattening, expanded rows followed by their
// children and collapsed rows by none.
func checkTreeInvariants(rt *rapid.T, tree *TreeModel) {
	rows := tree.Rows()
	sel := tree.Selection()
	if len(rows) == 0 {
		if sel != -1 {
			rt.Fatalf("empty tree must have selection -1, got %d", sel)
		}
		return
	}
	if sel < 0 || sel >= len(rows) {
		rt.Fatalf("selection %d out of bounds for %d rows", sel, len(rows))
	}
	if rows[0].Level != 0 {
		rt.Fatalf("first row must be level 0, got %d", rows[0].Level)
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].Level < 0 || rows[i].Level > rows[i-1].Level+1 {
			rt.Fatalf("row %d level %d after level %d breaks flattening", i, rows[i].Level, rows[i-1].Level)
		}
		if rows[i].Level == rows[i-1].Level+1 && !rows[i-1].Expanded {
			rt.Fatalf("row %d is a child of a collapsed row", i)
		}
	}
	for i := range rows {
		next := i + 1
		if rows[i].Expanded {
			if next >= len(rows) || rows[next].Level != rows[i].Level+1 {
				rt.Fatalf("expanded row %d has no materialized children", i)
			}
		} else if next < len(rows) && rows[next].Level > rows[i].Level {
			rt.Fatalf("collapsed row %d kept materialized children", i)
		}
	}
}

// TestTreeRandomOpsInvariants drives random expand, collapse and selection
// sequences over a balanced space and checks the sequence invariants after
// every step.
func TestTreeRandomOpsInvariants(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		dir := testutil.BalancedSpace(3, 3)
		tree := NewTreeModel(dir, nil)
		ctx := context.Background()
		if err := tree.LoadRoots(ctx); err != nil {
			rt.Fatalf("load roots: %v", err)
		}

		steps := rapid.IntRange(1, 60).Draw(rt, "steps")
		for s := 0; s < steps; s++ {
			idx := rapid.IntRange(0, tree.Len()-1).Draw(rt, "idx")
			switch rapid.IntRange(0, 2).Draw(rt, "op") {
			case 0:
				if err := tree.Expand(ctx, idx); err != nil {
					rt.Fatalf("expand(%d): %v", idx, err)
				}
			case 1:
				tree.Collapse(idx)
			case 2:
				tree.SetSelection(idx)
			}
			checkTreeInvariants(rt, tree)
		}
	})
}

// TestTreeExpandCollapseInverse verifies collapse exactly undoes the row
// count change of the expansion that preceded it, for arbitrary expandable
// rows in a fresh tree.
func TestTreeExpandCollapseInverse(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		dir := testutil.BalancedSpace(2, 4)
		tree := NewTreeModel(dir, nil)
		ctx := context.Background()
		if err := tree.LoadRoots(ctx); err != nil {
			rt.Fatalf("load roots: %v", err)
		}

		idx := rapid.IntRange(0, tree.Len()-1).Draw(rt, "idx")
		if !tree.CanExpand(idx) {
			return
		}
		before := tree.Len()
		if err := tree.Expand(ctx, idx); err != nil {
			rt.Fatalf("expand: %v", err)
		}
		added := tree.Len() - before
		if added <= 0 {
			rt.Fatalf("expected rows added, got %d", added)
		}
		if removed := tree.Collapse(idx); removed != added {
			rt.Fatalf("collapse removed %d, expansion added %d", removed, added)
		}
		if tree.Len() != before {
			rt.Fatalf("row count %d after round trip, want %d", tree.Len(), before)
		}
	})
}
