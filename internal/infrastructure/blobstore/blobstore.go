// Package blobstore keeps binary assets (device photos, configuration
// file content) on the local filesystem under a single root directory.
//
// Keys are slash-separated relative paths such as
// "configs/<device>/<file>/router.cfg". Writes go to a temporary file first and are
// renamed into place, so a reader never sees a partial blob.
package blobstore

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const (
	dirPermissions  = 0o750
	filePermissions = 0o600
)

var (
	// ErrNotFound is returned when no blob exists for a key.
	ErrNotFound = errors.New("blobstore: not found")

	// ErrInvalidKey is returned for empty, absolute or escaping keys.
	ErrInvalidKey = errors.New("blobstore: invalid key")

	// ErrTooLarge is returned when content exceeds the size limit.
	ErrTooLarge = errors.New("blobstore: content too large")
)

// Store is a directory-backed blob store.
type Store struct {
	root string
}

// Open prepares a store rooted at dir, creating it if needed.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("blobstore: root directory is required")
	}
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return nil, fmt.Errorf("creating blob directory: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving blob directory: %w", err)
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute root directory.
func (s *Store) Root() string {
	return s.root
}

// Put writes r under key and returns the number of bytes stored. When
// maxBytes is positive and r holds more than that, nothing is stored and
// ErrTooLarge is returned.
func (s *Store) Put(key string, r io.Reader, maxBytes int64) (int64, error) {
	dst, err := s.resolve(key)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(dst), dirPermissions); err != nil {
		return 0, fmt.Errorf("creating blob directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("creating temporary blob: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath) //nolint:errcheck // best-effort cleanup
		}
	}()

	src := r
	if maxBytes > 0 {
		// One extra byte distinguishes "exactly the limit" from "over it".
		src = io.LimitReader(r, maxBytes+1)
	}
	n, err := io.Copy(tmp, src)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, fmt.Errorf("writing blob %s: %w", key, err)
	}
	if maxBytes > 0 && n > maxBytes {
		return 0, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, maxBytes)
	}

	if err := os.Chmod(tmpPath, filePermissions); err != nil {
		return 0, fmt.Errorf("setting blob permissions: %w", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return 0, fmt.Errorf("persisting blob %s: %w", key, err)
	}
	committed = true
	return n, nil
}

// Open returns a reader for key. The caller closes it.
func (s *Store) Open(key string) (*os.File, error) {
	p, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p) //nolint:gosec // path is confined to the root by resolve
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("opening blob %s: %w", key, err)
	}
	return f, nil
}

// Exists reports whether a blob is stored under key.
func (s *Store) Exists(key string) bool {
	p, err := s.resolve(key)
	if err != nil {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

// Delete removes the blob under key. Deleting a missing blob is not an error.
func (s *Store) Delete(key string) error {
	p, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("deleting blob %s: %w", key, err)
	}
	s.pruneEmptyParents(filepath.Dir(p))
	return nil
}

// DeletePrefix removes every blob below the directory prefix.
func (s *Store) DeletePrefix(prefix string) error {
	p, err := s.resolve(prefix)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(p); err != nil {
		return fmt.Errorf("deleting blobs under %s: %w", prefix, err)
	}
	s.pruneEmptyParents(filepath.Dir(p))
	return nil
}

// resolve maps a key to a path inside the root, rejecting anything that
// would land outside it.
func (s *Store) resolve(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	clean := path.Clean(key)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

func (s *Store) pruneEmptyParents(dir string) {
	for dir != s.root && strings.HasPrefix(dir, s.root) {
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}
