// Package files keeps copies of uploaded files under the data directory.
package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.FileStore = (*Store)(nil)

// Store writes each file to <root>/<uuid>/<name>.
type Store struct {
	root string
}

// New creates a store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o700); err != nil {
		return nil, fmt.Errorf("create file store %s: %w", abs, err)
	}
	return &Store{root: abs}, nil
}

// Root returns the directory files are stored under.
func (s *Store) Root() string {
	return s.root
}

// Put copies r into a new file named after name.
func (s *Store) Put(ctx context.Context, name string, r io.Reader) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	base := filepath.Base(filepath.Clean("/" + name))
	if base == "/" || base == "." {
		return "", 0, fmt.Errorf("%w: empty file name", domain.ErrInvalidInput)
	}

	dir := filepath.Join(s.root, uuid.New().String())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", 0, fmt.Errorf("create %s: %w", dir, err)
	}
	path := filepath.Join(dir, base)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", 0, fmt.Errorf("create %s: %w", path, err)
	}
	n, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.RemoveAll(dir)
		return "", 0, fmt.Errorf("write %s: %w", path, err)
	}

	logger.Debug("Stored %s (%d bytes)", path, n)
	return path, n, nil
}

// Remove deletes a stored file and its directory. Paths outside the store
// are left alone, as are files that no longer exist.
func (s *Store) Remove(_ context.Context, path string) error {
	if path == "" {
		return nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	rel, err := filepath.Rel(s.root, abs)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		logger.Debug("Not removing %s: outside file store", path)
		return nil
	}

	if err := os.Remove(abs); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", abs, err)
	}
	// The per-file directory is removed once empty.
	if dir := filepath.Dir(abs); dir != s.root {
		_ = os.Remove(dir)
	}
	return nil
}
