// ABOUTME: Resolver maps reference names to storage paths and back.
// ABOUTME: Enforces name normalization and path-traversal safety.

package refs

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	// currentExt is the file extension of the current YAML record format.
	currentExt = ".yaml"
	// legacyExt is the file extension of the legacy JSON record format.
	legacyExt = ".json"
)

// Resolver provides the bijective mapping between reference names and
// on-disk storage locations one level below a fixed storage root.
type Resolver struct {
	root string
}

// NewResolver creates a resolver rooted at the given storage directory.
func NewResolver(root string) *Resolver {
	return &Resolver{root: root}
}

// Root returns the storage root directory.
func (r *Resolver) Root() string {
	return r.root
}

// Normalize canonicalizes a reference name: leading and trailing slashes are
// stripped, and the result is validated. Returns ErrInvalidName for empty
// names, empty segments, "." or ".." segments, and names containing control
// characters or backslashes.
func Normalize(name string) (string, error) {
	clean := strings.Trim(name, "/")
	if clean == "" {
		return "", fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	for _, c := range clean {
		if c < 0x20 || c == 0x7f {
			return "", fmt.Errorf("%w: %q contains control characters", ErrInvalidName, name)
		}
		if c == '\\' {
			return "", fmt.Errorf("%w: %q contains a backslash", ErrInvalidName, name)
		}
	}
	for _, seg := range strings.Split(clean, "/") {
		switch seg {
		case "":
			return "", fmt.Errorf("%w: %q contains an empty segment", ErrInvalidName, name)
		case ".", "..":
			return "", fmt.Errorf("%w: %q contains a relative segment", ErrInvalidName, name)
		}
	}
	return clean, nil
}

// Resolve returns the path of the current-format record for name.
func (r *Resolver) Resolve(name string) (string, error) {
	clean, err := Normalize(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(r.root, filepath.FromSlash(clean)+currentExt), nil
}

// ResolveLegacy returns the path of the legacy-format record for name.
func (r *Resolver) ResolveLegacy(name string) (string, error) {
	clean, err := Normalize(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(r.root, filepath.FromSlash(clean)+legacyExt), nil
}

// Unresolve maps a storage path back to its reference name. It accepts both
// current and legacy record paths and is the inverse of Resolve:
// Unresolve(Resolve(n)) == n for every valid n.
func (r *Resolver) Unresolve(path string) (string, error) {
	rel, err := filepath.Rel(r.root, path)
	if err != nil {
		return "", fmt.Errorf("%w: %q is outside the storage root", ErrInvalidName, path)
	}
	if rel == "." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || rel == ".." {
		return "", fmt.Errorf("%w: %q is outside the storage root", ErrInvalidName, path)
	}

	slashed := filepath.ToSlash(rel)
	var name string
	switch {
	case strings.HasSuffix(slashed, currentExt):
		name = strings.TrimSuffix(slashed, currentExt)
	case strings.HasSuffix(slashed, legacyExt):
		name = strings.TrimSuffix(slashed, legacyExt)
	default:
		return "", fmt.Errorf("%w: %q is not a reference record", ErrInvalidName, path)
	}

	return Normalize(name)
}
