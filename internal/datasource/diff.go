package datasource

import (
	"database/sql"
	"fmt"
	"sort"
)

// SnapshotDiff represents differences between two snapshot files: nodes that
// appear on one side only, nodes whose display name changed, and nodes whose
// captured value changed. It is how plant drift between two captures is
// inspected offline.
type SnapshotDiff struct {
	// SnapshotA is the path of the first snapshot
	SnapshotA string `json:"snapshot_a"`
	// SnapshotB is the path of the second snapshot
	SnapshotB string `json:"snapshot_b"`
	// MissingInA contains refs present in B but not in A
	MissingInA []string `json:"missing_in_a,omitempty"`
	// MissingInB contains refs present in A but not in B
	MissingInB []string `json:"missing_in_b,omitempty"`
	// NameMismatch contains nodes renamed between captures
	NameMismatch []NameDifference `json:"name_mismatch,omitempty"`
	// ValueMismatch contains nodes whose captured value changed
	ValueMismatch []ValueDifference `json:"value_mismatch,omitempty"`
	// CountA is the number of nodes in snapshot A
	CountA int `json:"count_a"`
	// CountB is the number of nodes in snapshot B
	CountB int `json:"count_b"`
}

// NameDifference represents a display-name change for a single ref
type NameDifference struct {
	Ref   string `json:"ref"`
	NameA string `json:"name_a"`
	NameB string `json:"name_b"`
}

// ValueDifference represents a value change for a single ref
type ValueDifference struct {
	Ref    string `json:"ref"`
	ValueA string `json:"value_a"`
	ValueB string `json:"value_b"`
}

// HasInconsistencies returns true if there are any differences between snapshots
func (d SnapshotDiff) HasInconsistencies() bool {
	return len(d.MissingInA) > 0 || len(d.MissingInB) > 0 ||
		len(d.NameMismatch) > 0 || len(d.ValueMismatch) > 0
}

// Summary returns a human-readable summary of the differences
func (d SnapshotDiff) Summary() string {
	if !d.HasInconsistencies() {
		return fmt.Sprintf("Snapshots match (%d nodes each)", d.CountA)
	}

	summary := fmt.Sprintf("Drift found between %s and %s:\n", d.SnapshotA, d.SnapshotB)

	if d.CountA != d.CountB {
		summary += fmt.Sprintf("  - Node count mismatch: %d vs %d\n", d.CountA, d.CountB)
	}

	if len(d.MissingInA) > 0 {
		summary += fmt.Sprintf("  - %d nodes in %s but not %s\n", len(d.MissingInA), d.SnapshotB, d.SnapshotA)
		if len(d.MissingInA) <= 5 {
			for _, ref := range d.MissingInA {
				summary += fmt.Sprintf("    - %s\n", ref)
			}
		}
	}

	if len(d.MissingInB) > 0 {
		summary += fmt.Sprintf("  - %d nodes in %s but not %s\n", len(d.MissingInB), d.SnapshotA, d.SnapshotB)
		if len(d.MissingInB) <= 5 {
			for _, ref := range d.MissingInB {
				summary += fmt.Sprintf("    - %s\n", ref)
			}
		}
	}

	if len(d.NameMismatch) > 0 {
		summary += fmt.Sprintf("  - %d nodes renamed\n", len(d.NameMismatch))
		if len(d.NameMismatch) <= 5 {
			for _, m := range d.NameMismatch {
				summary += fmt.Sprintf("    - %s: %q vs %q\n", m.Ref, m.NameA, m.NameB)
			}
		}
	}

	if len(d.ValueMismatch) > 0 {
		summary += fmt.Sprintf("  - %d nodes with different values\n", len(d.ValueMismatch))
		if len(d.ValueMismatch) <= 5 {
			for _, m := range d.ValueMismatch {
				summary += fmt.Sprintf("    - %s: %q vs %q\n", m.Ref, m.ValueA, m.ValueB)
			}
		}
	}

	return summary
}

// DiffOptions configures the diff operation
type DiffOptions struct {
	// CompareValues also compares captured Value attributes (on by default
	// via DefaultDiffOptions; structure-only snapshots produce no value rows)
	CompareValues bool
	// MaxDifferences limits the number of differences tracked per category
	// (0 = unlimited)
	MaxDifferences int
}

// DefaultDiffOptions returns sensible default diff options
func DefaultDiffOptions() DiffOptions {
	return DiffOptions{
		CompareValues:  true,
		MaxDifferences: 100,
	}
}

// nodeRow is the per-ref comparison unit: the display name plus the captured
// Value attribute when one exists.
type nodeRow struct {
	displayName string
	value       string
	hasValue    bool
}

// detectDrift compares two loaded node sets and returns their differences
func detectDrift(nodesA, nodesB map[string]nodeRow, snapA, snapB string, opts DiffOptions) SnapshotDiff {
	diff := SnapshotDiff{
		SnapshotA: snapA,
		SnapshotB: snapB,
		CountA:    len(nodesA),
		CountB:    len(nodesB),
	}

	within := func(n int) bool {
		return opts.MaxDifferences == 0 || n < opts.MaxDifferences
	}

	for ref := range nodesA {
		if _, exists := nodesB[ref]; !exists {
			if within(len(diff.MissingInB)) {
				diff.MissingInB = append(diff.MissingInB, ref)
			}
		}
	}

	for ref, rowB := range nodesB {
		rowA, exists := nodesA[ref]
		if !exists {
			if within(len(diff.MissingInA)) {
				diff.MissingInA = append(diff.MissingInA, ref)
			}
			continue
		}

		if rowA.displayName != rowB.displayName {
			if within(len(diff.NameMismatch)) {
				diff.NameMismatch = append(diff.NameMismatch, NameDifference{
					Ref:   ref,
					NameA: rowA.displayName,
					NameB: rowB.displayName,
				})
			}
		}

		if opts.CompareValues && rowA.hasValue && rowB.hasValue && rowA.value != rowB.value {
			if within(len(diff.ValueMismatch)) {
				diff.ValueMismatch = append(diff.ValueMismatch, ValueDifference{
					Ref:    ref,
					ValueA: rowA.value,
					ValueB: rowB.value,
				})
			}
		}
	}

	// Map iteration order is random; sorted output keeps summaries stable
	sort.Strings(diff.MissingInA)
	sort.Strings(diff.MissingInB)
	sort.Slice(diff.NameMismatch, func(i, j int) bool { return diff.NameMismatch[i].Ref < diff.NameMismatch[j].Ref })
	sort.Slice(diff.ValueMismatch, func(i, j int) bool { return diff.ValueMismatch[i].Ref < diff.ValueMismatch[j].Ref })

	return diff
}

// CompareSnapshots opens and compares two snapshot files
func CompareSnapshots(pathA, pathB string, opts DiffOptions) (*SnapshotDiff, error) {
	nodesA, err := loadNodeRows(pathA)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot A (%s): %w", pathA, err)
	}

	nodesB, err := loadNodeRows(pathB)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot B (%s): %w", pathB, err)
	}

	diff := detectDrift(nodesA, nodesB, pathA, pathB, opts)
	return &diff, nil
}

// loadNodeRows reads every node's display name and Value attribute from a
// snapshot file in one pass each.
func loadNodeRows(path string) (map[string]nodeRow, error) {
	snap, err := OpenSnapshot(path)
	if err != nil {
		return nil, err
	}
	defer snap.Close()

	nodes := make(map[string]nodeRow)

	rows, err := snap.db.Query("SELECT ref, display_name FROM nodes")
	if err != nil {
		return nil, fmt.Errorf("nodes query failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ref string
		var name sql.NullString
		if err := rows.Scan(&ref, &name); err != nil {
			continue
		}
		row := nodeRow{}
		if name.Valid {
			row.displayName = name.String
		}
		nodes[ref] = row
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating nodes: %w", err)
	}

	values, err := snap.db.Query("SELECT ref, value FROM attributes WHERE name = 'Value'")
	if err != nil {
		return nil, fmt.Errorf("values query failed: %w", err)
	}
	defer values.Close()

	for values.Next() {
		var ref string
		var value sql.NullString
		if err := values.Scan(&ref, &value); err != nil {
			continue
		}
		row, ok := nodes[ref]
		if !ok {
			continue
		}
		row.hasValue = true
		if value.Valid {
			row.value = value.String
		}
		nodes[ref] = row
	}
	if err := values.Err(); err != nil {
		return nil, fmt.Errorf("error iterating values: %w", err)
	}

	return nodes, nil
}
