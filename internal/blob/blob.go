// Package blob stores uploaded decks on disk under content-hash names.
package blob

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidPath is returned for relative paths that leave the store root.
var ErrInvalidPath = errors.New("invalid blob path")

type Store struct {
	root string
}

func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &Store{root: root}, nil
}

// Object describes a stored blob.
type Object struct {
	Path   string // relative to the store root
	SHA256 string
	Size   int64
}

// Put writes data under <sha[:2]>/<sha>.<ext> and returns its location.
// Writing the same bytes twice yields the same path.
func (s *Store) Put(data []byte, ext string) (Object, error) {
	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	name := digest
	if ext != "" {
		name += "." + ext
	}
	obj := Object{
		Path:   filepath.ToSlash(filepath.Join(digest[:2], name)),
		SHA256: digest,
		Size:   int64(len(data)),
	}

	abs := filepath.Join(s.root, filepath.FromSlash(obj.Path))
	if st, err := os.Stat(abs); err == nil && st.Size() == obj.Size {
		return obj, nil
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return Object{}, fmt.Errorf("creating blob directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(abs), ".upload-*")
	if err != nil {
		return Object{}, fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return Object{}, fmt.Errorf("writing blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Object{}, fmt.Errorf("writing blob: %w", err)
	}
	if err := os.Rename(tmp.Name(), abs); err != nil {
		return Object{}, fmt.Errorf("storing blob: %w", err)
	}
	return obj, nil
}

// Path resolves a relative blob path to an absolute one.
func (s *Store) Path(rel string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(rel))
	if rel == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, rel)
	}
	return filepath.Join(s.root, clean), nil
}

// Read returns the contents of a stored blob.
func (s *Store) Read(rel string) ([]byte, error) {
	p, err := s.Path(rel)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

// Remove deletes a blob. A missing blob is not an error.
func (s *Store) Remove(rel string) error {
	p, err := s.Path(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing blob: %w", err)
	}
	return nil
}
