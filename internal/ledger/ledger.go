// ABOUTME: SQLite-backed audit ledger for reference store mutations.
// ABOUTME: Records every mutating operation with the name, version, and outcome.

// Package ledger provides an append-only audit trail of reference mutations.
// The ledger lives outside the reference storage root and never touches
// reference files; it only observes operations after the store has applied
// them.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrEntryNotFound is returned when a requested ledger entry does not exist.
var ErrEntryNotFound = errors.New("ledger entry not found")

// Op identifies the kind of store mutation an entry records.
type Op string

const (
	OpCreateOrUpdate Op = "create_or_update"
	OpUpdate         Op = "update"
	OpDelete         Op = "delete"
	OpCleanup        Op = "cleanup"
)

// Entry is a single audit record. For cleanup entries, Ref holds the swept
// prefix and Version the number of references removed.
type Entry struct {
	ID        string
	Op        Op
	Ref       string
	Version   int
	OK        bool
	Detail    string // error text for failed operations, empty otherwise
	Timestamp time.Time
}

// Ledger is a SQLite-backed append-only operation log.
type Ledger struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates or opens the ledger database at the given path.
// Parent directories are created if needed.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening ledger database: %w", err)
	}

	// WAL mode allows history reads concurrent with appends.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	l := &Ledger{
		db:     db,
		logger: slog.Default().With("component", "ledger"),
	}

	if err := l.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating ledger schema: %w", err)
	}

	l.logger.Info("operation ledger initialized", "path", path)
	return l, nil
}

// createSchema creates the ledger table if it doesn't exist.
func (l *Ledger) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS ref_operations (
			id TEXT PRIMARY KEY,
			op TEXT NOT NULL,
			ref TEXT NOT NULL,
			version INTEGER NOT NULL,
			ok INTEGER NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			timestamp DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_ref_operations_ref
			ON ref_operations(ref, timestamp);
	`
	_, err := l.db.Exec(schema)
	return err
}

// Record appends an entry to the ledger. A zero ID and timestamp are filled
// in. Ledger failures are reported but callers are expected to treat them as
// non-fatal: the store operation itself has already completed.
func (l *Ledger) Record(ctx context.Context, entry *Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO ref_operations (id, op, ref, version, ok, detail, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, string(entry.Op), entry.Ref, entry.Version, entry.OK, entry.Detail,
		entry.Timestamp.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("recording ledger entry: %w", err)
	}

	l.logger.Debug("recorded operation",
		"op", entry.Op,
		"ref", entry.Ref,
		"version", entry.Version,
		"ok", entry.OK,
	)
	return nil
}

// History returns the most recent entries for a reference name, newest
// first. Limit defaults to 50 and is capped at 500.
func (l *Ledger) History(ctx context.Context, ref string, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT id, op, ref, version, ok, detail, timestamp
		FROM ref_operations
		WHERE ref = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`, ref, limit)
	if err != nil {
		return nil, fmt.Errorf("querying ledger history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		var op, ts string
		if err := rows.Scan(&e.ID, &op, &e.Ref, &e.Version, &e.OK, &e.Detail, &ts); err != nil {
			return nil, fmt.Errorf("scanning ledger entry: %w", err)
		}
		e.Op = Op(op)
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// Get retrieves a single entry by ID.
func (l *Ledger) Get(ctx context.Context, id string) (*Entry, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT id, op, ref, version, ok, detail, timestamp
		FROM ref_operations
		WHERE id = ?
	`, id)

	var e Entry
	var op, ts string
	if err := row.Scan(&e.ID, &op, &e.Ref, &e.Version, &e.OK, &e.Detail, &ts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("querying ledger entry: %w", err)
	}
	e.Op = Op(op)
	e.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
	return &e, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}
