// Package filesystem resolves archive identifiers to directories under a fixed root.
// Lookups go through an *os.Root, so an identifier can never name anything outside it.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/sagarc03/zipstream"
)

// Store provides directory lookups under the archive root.
type Store struct {
	root *os.Root
	abs  string
}

// NewStore creates a new Store for the given root. The absolute path of the root is
// computed once; the root is fixed for the lifetime of the Store.
func NewStore(root *os.Root) (*Store, error) {
	abs, err := filepath.Abs(root.Name())
	if err != nil {
		return nil, fmt.Errorf("new store: %w", err)
	}
	return &Store{root: root, abs: abs}, nil
}

// Root returns the absolute path of the archive root.
func (s *Store) Root() string {
	return s.abs
}

// Resolve returns the absolute path of the directory named id.
// Returns zipstream.ErrInvalidInput for malformed ids and zipstream.ErrNotFound if the
// directory does not exist or is not a directory.
func (s *Store) Resolve(ctx context.Context, id string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if !zipstream.IsValidID(id) {
		return "", zipstream.ErrInvalidInput
	}

	info, err := s.root.Stat(id)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", zipstream.ErrNotFound
		}
		return "", fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return "", zipstream.ErrNotFound
	}

	return filepath.Join(s.abs, id), nil
}

// List returns the identifiers of all archivable directories, sorted by name.
func (s *Store) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := fs.ReadDir(s.root.FS(), ".")
	if err != nil {
		return nil, fmt.Errorf("failed to list directories: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() && zipstream.IsValidID(entry.Name()) {
			ids = append(ids, entry.Name())
		}
	}
	sort.Strings(ids)

	return ids, nil
}
