// Package archive writes a document's cleaned artifacts: the merged text
// file and a zip bundle holding the per-chunk files, onto a Store.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned by Open for unknown artifact names.
var ErrNotFound = errors.New("artifact not found")

// Store persists artifacts by name. Put returns a reference a caller can
// use to locate the artifact later.
type Store interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// FSStore keeps artifacts as files in one directory.
type FSStore struct {
	dir string
}

// NewFSStore creates dir if needed.
func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &FSStore{dir: dir}, nil
}

// Dir returns the output directory.
func (s *FSStore) Dir() string {
	return s.dir
}

// Put writes data to a temp file and renames it into place, so readers
// never see a partial artifact. The reference is the artifact name.
func (s *FSStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp artifact: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("write artifact %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("close artifact %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("rename artifact %s: %w", name, err)
	}
	return name, nil
}

func (s *FSStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	if err := validName(name); err != nil {
		return nil, ErrNotFound
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open artifact %s: %w", name, err)
	}
	return f, nil
}

// validName rejects names that could escape the store.
func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.HasPrefix(name, ".") ||
		strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid artifact name %q", name)
	}
	return nil
}
