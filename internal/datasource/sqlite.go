package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/spacewalk/pkg/addrspace"
)

// snapshotFormatVersion is bumped when the schema changes incompatibly.
// Readers reject snapshots written with a newer version.
const snapshotFormatVersion = 1

// snapshotSchema holds the full address space of one capture: every node's
// descriptor, the parent/child edges in presentation order, and the
// attribute rows read from each node. The meta table carries the root ref
// and capture provenance.
const snapshotSchema = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS nodes (
	ref          TEXT PRIMARY KEY,
	browse_name  TEXT NOT NULL DEFAULT '',
	display_name TEXT NOT NULL DEFAULT '',
	class        TEXT NOT NULL DEFAULT 'Unknown',
	has_children INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS edges (
	parent_ref TEXT NOT NULL,
	position   INTEGER NOT NULL,
	child_ref  TEXT NOT NULL,
	PRIMARY KEY (parent_ref, position)
);
CREATE INDEX IF NOT EXISTS idx_edges_parent ON edges(parent_ref);
CREATE TABLE IF NOT EXISTS attributes (
	ref      TEXT NOT NULL,
	position INTEGER NOT NULL,
	name     TEXT NOT NULL,
	value    TEXT NOT NULL DEFAULT '',
	good     INTEGER NOT NULL DEFAULT 1,
	PRIMARY KEY (ref, position)
);
`

// Meta keys written by the capture crawler.
const (
	metaFormatVersion = "format_version"
	metaRootRef       = "root_ref"
	metaCapturedAt    = "captured_at"
	metaOrigin        = "origin"
	metaNodeCount     = "node_count"
)

// SnapshotDirectory serves a captured snapshot file as an
// addrspace.Directory. It is read-only and safe for concurrent use; Close
// flips IsConnected to false, which downstream consumers treat like a
// dropped session.
type SnapshotDirectory struct {
	db     *sql.DB
	path   string
	root   addrspace.NodeRef
	closed atomic.Bool
}

// OpenSnapshot opens a snapshot file for reading
func OpenSnapshot(path string) (*SnapshotDirectory, error) {
	// Open in read-only mode with various pragmas for read performance
	dsn := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open snapshot: %w", err)
	}

	// Set pragmas for read performance
	pragmas := []string{
		"PRAGMA cache_size = -64000",   // 64MB cache
		"PRAGMA mmap_size = 268435456", // 256MB mmap
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			// Non-fatal, just log
		}
	}

	s := &SnapshotDirectory{db: db, path: path}

	version, err := s.metaValue(metaFormatVersion)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("not a snapshot file: %w", err)
	}
	if v, err := strconv.Atoi(version); err != nil || v > snapshotFormatVersion {
		db.Close()
		return nil, fmt.Errorf("unsupported snapshot format version %q", version)
	}

	root, err := s.metaValue(metaRootRef)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("snapshot has no root ref: %w", err)
	}
	s.root = addrspace.NodeRef(root)

	return s, nil
}

// Path returns the snapshot file path.
func (s *SnapshotDirectory) Path() string { return s.path }

// Close closes the snapshot. Further Directory calls report not connected.
func (s *SnapshotDirectory) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// IsConnected reports whether the snapshot is still open.
func (s *SnapshotDirectory) IsConnected() bool {
	return !s.closed.Load()
}

// Root returns the ref the capture started from.
func (s *SnapshotDirectory) Root() addrspace.NodeRef { return s.root }

// Browse returns the children recorded for ref, in capture order. A ref
// with no recorded edges yields an empty slice, matching how a live space
// answers for a leaf.
func (s *SnapshotDirectory) Browse(ctx context.Context, ref addrspace.NodeRef) ([]addrspace.Descriptor, error) {
	if s.closed.Load() {
		return nil, addrspace.ErrNotConnected
	}

	query := `
		SELECT n.ref, n.browse_name, n.display_name, n.class, n.has_children
		FROM edges e
		JOIN nodes n ON n.ref = e.child_ref
		WHERE e.parent_ref = ?
		ORDER BY e.position
	`
	rows, err := s.db.QueryContext(ctx, query, ref.String())
	if err != nil {
		return nil, fmt.Errorf("browse query failed: %w", err)
	}
	defer rows.Close()

	kids := []addrspace.Descriptor{}
	for rows.Next() {
		var d addrspace.Descriptor
		var childRef string
		var browseName, displayName, class sql.NullString
		var hasChildren sql.NullInt64

		if err := rows.Scan(&childRef, &browseName, &displayName, &class, &hasChildren); err != nil {
			continue
		}

		d.Ref = addrspace.NodeRef(childRef)
		if browseName.Valid {
			d.BrowseName = browseName.String
		}
		if displayName.Valid {
			d.DisplayName = displayName.String
		}
		if class.Valid {
			d.Class = addrspace.ParseNodeClass(class.String)
		} else {
			d.Class = addrspace.ClassUnknown
		}
		if hasChildren.Valid {
			d.HasChildren = hasChildren.Int64 != 0
		}

		kids = append(kids, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating children: %w", err)
	}

	return kids, nil
}

// ReadAttributes returns the attribute rows captured for ref, in capture
// order. A node captured without attributes yields an empty slice.
func (s *SnapshotDirectory) ReadAttributes(ctx context.Context, ref addrspace.NodeRef) ([]addrspace.Attribute, error) {
	if s.closed.Load() {
		return nil, addrspace.ErrNotConnected
	}

	query := `SELECT name, value, good FROM attributes WHERE ref = ? ORDER BY position`
	rows, err := s.db.QueryContext(ctx, query, ref.String())
	if err != nil {
		return nil, fmt.Errorf("attributes query failed: %w", err)
	}
	defer rows.Close()

	attrs := []addrspace.Attribute{}
	for rows.Next() {
		var a addrspace.Attribute
		var value sql.NullString
		var good sql.NullInt64

		if err := rows.Scan(&a.Name, &value, &good); err != nil {
			continue
		}
		if value.Valid {
			a.Value = value.String
		}
		if good.Valid {
			a.Good = good.Int64 != 0
		}

		attrs = append(attrs, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attributes: %w", err)
	}

	return attrs, nil
}

// CountNodes returns the number of nodes in the snapshot
func (s *SnapshotDirectory) CountNodes() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM nodes").Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// CapturedAt returns the capture timestamp, or the zero time when the
// snapshot predates that meta key.
func (s *SnapshotDirectory) CapturedAt() time.Time {
	v, err := s.metaValue(metaCapturedAt)
	if err != nil {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Origin returns a description of where the snapshot was captured from.
// Best effort: older snapshots may not carry one.
func (s *SnapshotDirectory) Origin() string {
	v, err := s.metaValue(metaOrigin)
	if err != nil {
		return ""
	}
	return v
}

func (s *SnapshotDirectory) metaValue(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if err != nil {
		return "", err
	}
	return value, nil
}

// SnapshotWriter writes one capture into a snapshot file. All writes happen
// inside a single transaction; a snapshot either commits whole or not at
// all. The writer is not safe for concurrent use: the capture crawler
// fetches in parallel but writes from one goroutine.
type SnapshotWriter struct {
	db    *sql.DB
	tx    *sql.Tx
	path  string
	nodes int
}

// CreateSnapshot creates (or truncates) a snapshot file and prepares it for
// writing.
func CreateSnapshot(path string, root addrspace.NodeRef, origin string) (*SnapshotWriter, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot create snapshot: %w", err)
	}

	if _, err := db.Exec(snapshotSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot create snapshot schema: %w", err)
	}

	// Recapturing over an existing file replaces its contents
	for _, table := range []string{"meta", "nodes", "edges", "attributes"} {
		if _, err := db.Exec("DELETE FROM " + table); err != nil {
			db.Close()
			return nil, fmt.Errorf("cannot reset snapshot table %s: %w", table, err)
		}
	}

	tx, err := db.Begin()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot begin snapshot transaction: %w", err)
	}

	w := &SnapshotWriter{db: db, tx: tx, path: path}
	if err := w.setMeta(metaFormatVersion, strconv.Itoa(snapshotFormatVersion)); err != nil {
		w.Abort()
		return nil, err
	}
	if err := w.setMeta(metaRootRef, root.String()); err != nil {
		w.Abort()
		return nil, err
	}
	if err := w.setMeta(metaCapturedAt, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		w.Abort()
		return nil, err
	}
	if origin != "" {
		if err := w.setMeta(metaOrigin, origin); err != nil {
			w.Abort()
			return nil, err
		}
	}

	return w, nil
}

// PutNode records one node's descriptor. Re-putting a ref overwrites it,
// which keeps cyclic spaces from failing the capture.
func (w *SnapshotWriter) PutNode(d addrspace.Descriptor) error {
	hasChildren := 0
	if d.HasChildren {
		hasChildren = 1
	}
	_, err := w.tx.Exec(
		`INSERT INTO nodes (ref, browse_name, display_name, class, has_children)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(ref) DO UPDATE SET
		   browse_name = excluded.browse_name,
		   display_name = excluded.display_name,
		   class = excluded.class,
		   has_children = excluded.has_children`,
		d.Ref.String(), d.BrowseName, d.DisplayName, d.Class.String(), hasChildren,
	)
	if err != nil {
		return fmt.Errorf("put node %s: %w", d.Ref, err)
	}
	w.nodes++
	return nil
}

// PutEdges records a parent's children in presentation order, replacing any
// previously recorded edges for that parent.
func (w *SnapshotWriter) PutEdges(parent addrspace.NodeRef, children []addrspace.Descriptor) error {
	if _, err := w.tx.Exec("DELETE FROM edges WHERE parent_ref = ?", parent.String()); err != nil {
		return fmt.Errorf("reset edges for %s: %w", parent, err)
	}
	for i, c := range children {
		_, err := w.tx.Exec(
			"INSERT INTO edges (parent_ref, position, child_ref) VALUES (?, ?, ?)",
			parent.String(), i, c.Ref.String(),
		)
		if err != nil {
			return fmt.Errorf("put edge %s -> %s: %w", parent, c.Ref, err)
		}
	}
	return nil
}

// PutAttributes records a node's attribute rows in read order.
func (w *SnapshotWriter) PutAttributes(ref addrspace.NodeRef, attrs []addrspace.Attribute) error {
	if _, err := w.tx.Exec("DELETE FROM attributes WHERE ref = ?", ref.String()); err != nil {
		return fmt.Errorf("reset attributes for %s: %w", ref, err)
	}
	for i, a := range attrs {
		good := 0
		if a.Good {
			good = 1
		}
		_, err := w.tx.Exec(
			"INSERT INTO attributes (ref, position, name, value, good) VALUES (?, ?, ?, ?, ?)",
			ref.String(), i, a.Name, a.Value, good,
		)
		if err != nil {
			return fmt.Errorf("put attribute %s.%s: %w", ref, a.Name, err)
		}
	}
	return nil
}

func (w *SnapshotWriter) setMeta(key, value string) error {
	_, err := w.tx.Exec(
		"INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set meta %s: %w", key, err)
	}
	return nil
}

// Commit finalizes the snapshot and closes the file.
func (w *SnapshotWriter) Commit() error {
	if err := w.setMeta(metaNodeCount, strconv.Itoa(w.nodes)); err != nil {
		w.Abort()
		return err
	}
	if err := w.tx.Commit(); err != nil {
		w.db.Close()
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return w.db.Close()
}

// Abort rolls the snapshot back and closes the file.
func (w *SnapshotWriter) Abort() {
	if w.tx != nil {
		_ = w.tx.Rollback()
	}
	if w.db != nil {
		_ = w.db.Close()
	}
}
