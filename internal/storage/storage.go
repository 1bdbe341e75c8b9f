// Package storage keeps uploaded media files on the local filesystem.
package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Media directories, relative to the storage root.
const (
	DirProperties = "properties"
)

// ErrInvalidPath is returned for paths that escape the storage root.
var ErrInvalidPath = errors.New("invalid media path")

// Local stores files under a root directory. Stored files are referred to
// by their slash-separated path relative to the root.
type Local struct {
	root string
}

// NewLocal creates a store rooted at root, creating the directory if needed.
func NewLocal(root string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating media root %s: %w", root, err)
	}
	return &Local{root: root}, nil
}

// Root returns the storage root directory.
func (l *Local) Root() string { return l.root }

// Save copies r into dir under a fresh <uuid><ext> name, keeping the
// extension of originalName, and returns the relative path.
func (l *Local) Save(dir, originalName string, r io.Reader) (string, error) {
	rel := path.Join(dir, uuid.NewString()+strings.ToLower(filepath.Ext(originalName)))
	full, err := l.Path(rel)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("creating media directory: %w", err)
	}

	f, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("creating media file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(full)
		return "", fmt.Errorf("writing media file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(full)
		return "", fmt.Errorf("closing media file: %w", err)
	}

	return rel, nil
}

// Open opens a stored file for reading.
func (l *Local) Open(rel string) (*os.File, error) {
	full, err := l.Path(rel)
	if err != nil {
		return nil, err
	}
	return os.Open(full)
}

// Delete removes a stored file. Missing files are not an error.
func (l *Local) Delete(rel string) error {
	if rel == "" {
		return nil
	}
	full, err := l.Path(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("deleting media file: %w", err)
	}
	return nil
}

// DeleteAll removes each path, logging failures instead of returning them.
// Use it after the database rows pointing at the files are gone.
func (l *Local) DeleteAll(rels ...string) {
	for _, rel := range rels {
		if err := l.Delete(rel); err != nil {
			slog.Warn("removing media file", "path", rel, "err", err)
		}
	}
}

// Path resolves a relative media path to a filesystem path under the root.
func (l *Local) Path(rel string) (string, error) {
	clean := path.Clean("/" + rel)
	if clean == "/" || strings.Contains(rel, "\\") {
		return "", ErrInvalidPath
	}
	if path.Clean(rel) != strings.TrimPrefix(clean, "/") {
		return "", ErrInvalidPath
	}
	return filepath.Join(l.root, filepath.FromSlash(clean)), nil
}
