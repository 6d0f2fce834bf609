// SPDX-License-Identifier: MPL-2.0

package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
)

// VariantSuffix is inserted before the extension of a derived build description.
const VariantSuffix = "-argo"

var (
	// ErrEmptyRoot is returned by NewStore when no root directory is given.
	ErrEmptyRoot = errors.New("artifact root is empty")
	// ErrInvalidPath is returned for absolute paths or paths that climb out of the root.
	ErrInvalidPath = errors.New("invalid artifact path")
)

type (
	// Store reads and writes text artifacts under a fixed root directory.
	Store struct {
		root string
	}

	// InvalidPathError reports a path rejected before touching the filesystem.
	// It wraps ErrInvalidPath for errors.Is() compatibility.
	InvalidPathError struct {
		Path   string
		Reason string
	}
)

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("invalid artifact path %q: %s", e.Path, e.Reason)
}

func (e *InvalidPathError) Unwrap() error { return ErrInvalidPath }

// NewStore returns a Store rooted at root.
func NewStore(root string) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, ErrEmptyRoot
	}
	return &Store{root: root}, nil
}

// Root returns the directory the store resolves paths against.
func (s *Store) Root() string {
	return s.root
}

// Resolve returns the absolute location of rel inside the root.
func (s *Store) Resolve(rel string) (string, error) {
	if rel == "" {
		return "", &InvalidPathError{Path: rel, Reason: "empty"}
	}
	if filepath.IsAbs(rel) {
		return "", &InvalidPathError{Path: rel, Reason: "must be relative to the repository root"}
	}
	clean := filepath.Clean(rel)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", &InvalidPathError{Path: rel, Reason: "escapes the repository root"}
	}

	full, err := securejoin.SecureJoin(s.root, clean)
	if err != nil {
		return "", &InvalidPathError{Path: rel, Reason: err.Error()}
	}
	return full, nil
}

// Read returns the text stored at rel. ok is false when nothing exists there;
// err is reserved for I/O failures other than non-existence.
func (s *Store) Read(rel string) (text string, ok bool, err error) {
	full, err := s.Resolve(rel)
	if err != nil {
		return "", false, err
	}

	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read %s: %w", rel, err)
	}
	return string(data), true, nil
}

// Exists reports whether a regular file is present at rel.
func (s *Store) Exists(rel string) bool {
	full, err := s.Resolve(rel)
	if err != nil {
		return false
	}
	info, err := os.Stat(full)
	return err == nil && info.Mode().IsRegular()
}

// Write replaces the contents at rel with text. Parent directories are not created.
func (s *Store) Write(rel, text string) error {
	full, err := s.Resolve(rel)
	if err != nil {
		return err
	}

	// #nosec G306 -- build descriptions are committed to the repository and world-readable.
	if err := os.WriteFile(full, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	return nil
}

// DeriveVariantPath inserts VariantSuffix before the extension of the final path
// element, or appends it when there is no extension. The parent directory is kept
// as written: "a/b/Foo.txt" becomes "a/b/Foo-argo.txt" and "a/b/Foo" becomes "a/b/Foo-argo".
func DeriveVariantPath(path string) string {
	base := filepath.Base(path)
	dir := strings.TrimSuffix(path, base)
	if dir == path {
		dir = filepath.Dir(path) + string(filepath.Separator)
	}

	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" {
		// ".dockerfile" is a name, not an extension.
		stem, ext = base, ""
	}
	return dir + stem + VariantSuffix + ext
}
