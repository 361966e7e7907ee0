// ABOUTME: Filesystem implementation of the Store interface.
// ABOUTME: One YAML file per reference with per-name write serialization and legacy JSON fallback.

package refs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Ensure FileStore implements Store.
var _ Store = (*FileStore)(nil)

// FileStore persists references as YAML files under a storage root. Records
// written by older deployments in the legacy JSON format remain readable and
// are upgraded in place on the next successful write.
type FileStore struct {
	resolver *Resolver
	logger   *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per-name write serialization
}

// NewFileStore creates a file store rooted at the given directory,
// creating it if needed.
func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage root: %w: %v", ErrStorageIO, err)
	}

	logger := slog.Default().With("component", "refs")
	logger.Info("reference store initialized", "root", root)

	return &FileStore{
		resolver: NewResolver(root),
		logger:   logger,
		locks:    make(map[string]*sync.Mutex),
	}, nil
}

// Resolver returns the store's path resolver.
func (s *FileStore) Resolver() *Resolver {
	return s.resolver
}

// lock acquires the write lock for a name and returns its release func.
// Lock entries are never evicted; the table grows with the set of names
// written over the process lifetime, which is bounded in practice.
func (s *FileStore) lock(name string) func() {
	s.mu.Lock()
	m, ok := s.locks[name]
	if !ok {
		m = &sync.Mutex{}
		s.locks[name] = m
	}
	s.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// CreateOrUpdate upserts a reference. See the Store contract for semantics.
func (s *FileStore) CreateOrUpdate(ctx context.Context, name, content string, metadata map[string]string) (*WriteResult, error) {
	return s.write(ctx, name, content, metadata, false)
}

// Update rewrites an existing reference, failing with ErrNotFound when the
// name does not exist. The stored metadata is replaced, as with any write.
func (s *FileStore) Update(ctx context.Context, name, content string) (*WriteResult, error) {
	return s.write(ctx, name, content, nil, true)
}

// write is the single mutating path shared by CreateOrUpdate and Update.
// The read-check-write runs under the per-name lock so concurrent writers
// to the same name are serialized and no version is ever lost.
func (s *FileStore) write(ctx context.Context, name, content string, metadata map[string]string, requireExisting bool) (*WriteResult, error) {
	clean, err := Normalize(name)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unlock := s.lock(clean)
	defer unlock()

	existing, wasLegacy, err := s.load(clean)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		if requireExisting {
			return nil, err
		}
		existing = nil
	case errors.Is(err, ErrFormat):
		// An explicit write over an unreadable record restarts its lineage.
		s.logger.Warn("overwriting unreadable record", "ref", clean, "error", err)
		existing = nil
		wasLegacy = false
	default:
		return nil, err
	}

	now := time.Now().UTC()
	rec := &record{
		Content:  content,
		Metadata: metadata,
		Created:  now,
		Updated:  now,
		Version:  1,
	}
	if existing != nil {
		rec.Created = existing.Created
		rec.Version = existing.Version + 1
	}

	if err := s.persist(clean, rec); err != nil {
		return nil, err
	}

	// Writes always land in the current format; the legacy record is now
	// stale and must not shadow future reads or listings.
	if wasLegacy {
		legacyPath, _ := s.resolver.ResolveLegacy(clean)
		if err := os.Remove(legacyPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("removing legacy record", "ref", clean, "error", err)
		}
	}

	s.logger.Debug("wrote reference", "ref", clean, "version", rec.Version)
	return &WriteResult{Name: clean, Version: rec.Version}, nil
}

// persist durably writes a record to the current-format path for name.
// The record is written to a temp file in the target directory and renamed
// into place, so a failed write never corrupts the previous record.
func (s *FileStore) persist(name string, rec *record) error {
	data, err := rec.encode()
	if err != nil {
		return err
	}

	path, _ := s.resolver.Resolve(name)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("writing %q: %w: %v", name, ErrStorageIO, err)
	}

	tmp, err := os.CreateTemp(dir, ".ref-*.tmp")
	if err != nil {
		return fmt.Errorf("writing %q: %w: %v", name, ErrStorageIO, err)
	}
	tmpName := tmp.Name()

	_, werr := tmp.Write(data)
	if werr == nil {
		werr = tmp.Sync()
	}
	if cerr := tmp.Close(); werr == nil {
		werr = cerr
	}
	if werr == nil {
		werr = os.Rename(tmpName, path)
	}
	if werr != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing %q: %w: %v", name, ErrStorageIO, werr)
	}
	return nil
}

// load reads the record for a name, trying the current format first and the
// legacy format second. The second return value reports whether the record
// came from the legacy file.
func (s *FileStore) load(name string) (*record, bool, error) {
	path, _ := s.resolver.Resolve(name)
	data, err := os.ReadFile(path)
	if err == nil {
		rec, derr := decodeRecord(data, false)
		if derr != nil {
			return nil, false, fmt.Errorf("reading %q: %w", name, derr)
		}
		return rec, false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, false, fmt.Errorf("reading %q: %w: %v", name, ErrStorageIO, err)
	}

	legacyPath, _ := s.resolver.ResolveLegacy(name)
	data, err = os.ReadFile(legacyPath)
	if err == nil {
		rec, derr := decodeRecord(data, true)
		if derr != nil {
			return nil, true, fmt.Errorf("reading %q: %w", name, derr)
		}
		return rec, true, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, false, fmt.Errorf("reading %q: %w: %v", name, ErrStorageIO, err)
	}

	return nil, false, fmt.Errorf("reference %q: %w", name, ErrNotFound)
}

// Read returns the full record for a name. Reads take no lock: records are
// replaced atomically via rename, so a reader never observes a partial write.
func (s *FileStore) Read(ctx context.Context, name string) (*Reference, error) {
	clean, err := Normalize(name)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rec, _, err := s.load(clean)
	if err != nil {
		return nil, err
	}
	return rec.reference(clean), nil
}

// Delete removes a reference in both formats and prunes directories left
// empty by the removal.
func (s *FileStore) Delete(ctx context.Context, name string) error {
	clean, err := Normalize(name)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	unlock := s.lock(clean)
	defer unlock()

	removed, err := s.removeRecord(clean)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("reference %q: %w", clean, ErrNotFound)
	}

	path, _ := s.resolver.Resolve(clean)
	s.pruneEmptyDirs(filepath.Dir(path))
	s.logger.Debug("deleted reference", "ref", clean)
	return nil
}

// removeRecord unlinks both format files for a name. Reports whether at
// least one file was removed. Caller must hold the name lock.
func (s *FileStore) removeRecord(name string) (bool, error) {
	removed := false
	for _, resolve := range []func(string) (string, error){s.resolver.Resolve, s.resolver.ResolveLegacy} {
		path, _ := resolve(name)
		switch err := os.Remove(path); {
		case err == nil:
			removed = true
		case errors.Is(err, fs.ErrNotExist):
		default:
			return removed, fmt.Errorf("deleting %q: %w: %v", name, ErrStorageIO, err)
		}
	}
	return removed, nil
}

// pruneEmptyDirs removes empty intermediate directories between dir and the
// storage root. Stops at the first non-empty directory.
func (s *FileStore) pruneEmptyDirs(dir string) {
	root := filepath.Clean(s.resolver.Root())
	for {
		dir = filepath.Clean(dir)
		if dir == root || !strings.HasPrefix(dir, root+string(filepath.Separator)) {
			return
		}
		if err := os.Remove(dir); err != nil {
			return // not empty, or already gone
		}
		dir = filepath.Dir(dir)
	}
}

// List returns the sorted names of all live references, optionally
// restricted to a name prefix. A name backed by both formats is reported
// exactly once.
func (s *FileStore) List(ctx context.Context, prefix string) ([]string, error) {
	seen := make(map[string]struct{})

	err := filepath.WalkDir(s.resolver.Root(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if d.IsDir() {
			return nil
		}
		name, uerr := s.resolver.Unresolve(path)
		if uerr != nil {
			return nil // not a reference record (temp files, strays)
		}
		if prefix == "" || strings.HasPrefix(name, prefix) {
			seen[name] = struct{}{}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("listing references: %w: %v", ErrStorageIO, err)
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Cleanup removes every reference under prefix whose UpdatedAt is older
// than maxAge. Individual failures are logged and skipped; the returned
// count reflects the records actually removed.
func (s *FileStore) Cleanup(ctx context.Context, prefix string, maxAge time.Duration) (int, error) {
	names, err := s.List(ctx, prefix)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().UTC().Add(-maxAge)
	removed := 0
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if s.cleanupOne(name, cutoff) {
			removed++
		}
	}

	if removed > 0 {
		s.logger.Info("cleaned up references", "prefix", prefix, "removed", removed)
	}
	return removed, nil
}

// cleanupOne removes a single reference if it is older than the cutoff.
// Best-effort: any failure is logged and reported as "not removed".
func (s *FileStore) cleanupOne(name string, cutoff time.Time) bool {
	unlock := s.lock(name)
	defer unlock()

	var updated time.Time
	rec, _, err := s.load(name)
	switch {
	case err == nil:
		updated = rec.Updated
	case errors.Is(err, ErrNotFound):
		return false // already gone, not a failure
	case errors.Is(err, ErrFormat):
		// Unreadable record: fall back to the file modification time.
		mtime, ok := s.recordMTime(name)
		if !ok {
			return false
		}
		updated = mtime
	default:
		s.logger.Warn("cleanup: skipping reference", "ref", name, "error", err)
		return false
	}

	if !updated.Before(cutoff) {
		return false
	}

	removed, err := s.removeRecord(name)
	if err != nil {
		s.logger.Warn("cleanup: removing reference", "ref", name, "error", err)
		return false
	}
	if removed {
		path, _ := s.resolver.Resolve(name)
		s.pruneEmptyDirs(filepath.Dir(path))
	}
	return removed
}

// recordMTime returns the modification time of whichever record file exists.
func (s *FileStore) recordMTime(name string) (time.Time, bool) {
	for _, resolve := range []func(string) (string, error){s.resolver.Resolve, s.resolver.ResolveLegacy} {
		path, _ := resolve(name)
		if info, err := os.Stat(path); err == nil {
			return info.ModTime(), true
		}
	}
	return time.Time{}, false
}

// Close releases resources held by the store. The file store holds no open
// handles between operations.
func (s *FileStore) Close() error {
	return nil
}
