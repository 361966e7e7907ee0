// ABOUTME: Store contract and data types for versioned reference persistence
// ABOUTME: Defines Reference, WriteResult, the Store interface, and the error taxonomy

package refs

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidName is returned when a reference name is malformed.
// Retrying without correcting the name will never succeed.
var ErrInvalidName = errors.New("invalid reference name")

// ErrNotFound is returned when no record exists for a name in either the
// current or the legacy format.
var ErrNotFound = errors.New("reference not found")

// ErrStorageIO is returned when the backing filesystem operation fails.
var ErrStorageIO = errors.New("storage failure")

// ErrFormat is returned when a record exists but its persisted bytes are not
// parseable in either the current or the legacy format.
var ErrFormat = errors.New("unparseable reference record")

// Reference is a named, versioned, durable text record.
type Reference struct {
	Name      string
	Content   string
	Metadata  map[string]string
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WriteResult reports the outcome of a successful mutating write.
type WriteResult struct {
	Name    string
	Version int
}

// Store defines the contract for reference persistence. It is the only
// surface through which feature modules touch reference state.
type Store interface {
	// CreateOrUpdate upserts a reference. A new name starts at version 1;
	// an existing name keeps its CreatedAt and gets version incremented by 1.
	CreateOrUpdate(ctx context.Context, name, content string, metadata map[string]string) (*WriteResult, error)

	// Read returns the full record for a name, falling back to the legacy
	// format before reporting ErrNotFound.
	Read(ctx context.Context, name string) (*Reference, error)

	// Update rewrites the content of an existing reference. Unlike
	// CreateOrUpdate it fails with ErrNotFound when the name does not exist.
	Update(ctx context.Context, name, content string) (*WriteResult, error)

	// Delete removes a reference and all trace of its lineage.
	Delete(ctx context.Context, name string) error

	// List returns the names of all live references, lexicographically
	// sorted. A non-empty prefix restricts the result to names that start
	// with it ("a/" matches "a/b" but not "ab/x").
	List(ctx context.Context, prefix string) ([]string, error)

	// Cleanup removes every reference under prefix whose UpdatedAt is older
	// than maxAge. Best-effort: individual removal failures are skipped and
	// the count of records actually removed is returned.
	Cleanup(ctx context.Context, prefix string, maxAge time.Duration) (int, error)

	// Close releases any resources held by the store.
	Close() error
}
