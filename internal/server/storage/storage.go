// Package storage implements the disk-backed blob store the server exposes
// over HTTP. Paths are forward-slash relative keys; everything lives under
// one root directory.
package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound    = errors.New("storage: not found")
	ErrInvalidPath = errors.New("storage: invalid path")
)

// Item is one inventory entry. Modified is unix seconds with a fractional
// part, matching the wire contract.
type Item struct {
	Path        string  `json:"path"`
	IsDirectory bool    `json:"is_directory"`
	Size        uint64  `json:"size"`
	Modified    float64 `json:"modified"`
}

// Storage serves a single local directory tree.
type Storage struct {
	root string
}

func New(root string) (*Storage, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Storage{root: abs}, nil
}

func (s *Storage) Root() string {
	return s.root
}

// resolve maps a relative key onto a filesystem path. Only strict subpaths
// of the root are valid: keys that escape the root or collapse onto the
// root itself (".", "a/..") are rejected, so no key can ever name the
// whole store.
func (s *Storage) resolve(relPath string) (string, error) {
	relPath = strings.Trim(relPath, "/")
	if relPath == "" {
		return "", ErrInvalidPath
	}
	abs := filepath.Join(s.root, filepath.FromSlash(relPath))
	if !strings.HasPrefix(abs, s.root+string(filepath.Separator)) {
		return "", ErrInvalidPath
	}
	return abs, nil
}

// List walks the tree and returns every file and directory under the root.
func (s *Storage) List() ([]*Item, error) {
	items := []*Item{}

	err := filepath.WalkDir(s.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("storage list walk error", "path", path, "error", err)
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if path == s.root {
			return nil
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			return nil
		}

		item := &Item{
			Path:        filepath.ToSlash(rel),
			IsDirectory: entry.IsDir(),
			Modified:    float64(info.ModTime().UnixNano()) / float64(time.Second),
		}
		if !entry.IsDir() {
			item.Size = uint64(info.Size())
		}
		items = append(items, item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Put atomically writes the content under the key, creating missing parent
// directories. A concurrent Put to the same key ends with one writer's
// complete content, never an interleaving.
func (s *Storage) Put(relPath string, content io.Reader) (int64, error) {
	abs, err := s.resolve(relPath)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return 0, err
	}

	tmp := abs + ".tmp-" + uuid.NewString()
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(f, content)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return 0, err
	}

	if err := os.Rename(tmp, abs); err != nil {
		os.Remove(tmp)
		return 0, err
	}
	return n, nil
}

// MkDir creates a directory and any missing ancestors. Idempotent.
func (s *Storage) MkDir(relPath string) error {
	abs, err := s.resolve(relPath)
	if err != nil {
		return err
	}
	return os.MkdirAll(abs, 0o755)
}

// Open returns the file under the key for reading.
func (s *Storage) Open(relPath string) (*os.File, os.FileInfo, error) {
	abs, err := s.resolve(relPath)
	if err != nil {
		return nil, nil, err
	}

	info, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	if info.IsDir() {
		return nil, nil, ErrInvalidPath
	}

	f, err := os.Open(abs)
	if err != nil {
		return nil, nil, err
	}
	return f, info, nil
}

// Delete removes a file or a directory tree. Returns ErrNotFound when the
// key is already absent.
func (s *Storage) Delete(relPath string) error {
	abs, err := s.resolve(relPath)
	if err != nil {
		return err
	}

	if _, err := os.Stat(abs); errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return os.RemoveAll(abs)
}
