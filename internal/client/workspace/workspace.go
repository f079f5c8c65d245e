// Package workspace owns the local sync root: the watched directory plus
// the hidden metadata directory holding the journal, logs and the
// single-instance lock.
package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/openmirror/drivebox/internal/utils"
)

const (
	metadataDir = ".drivebox"
	logsDir     = "logs"
	lockFile    = "drivebox.lock"
	journalFile = "journal.db"
)

var ErrWorkspaceLocked = errors.New("workspace locked by another process")

type Workspace struct {
	Root        string
	MetadataDir string
	LogsDir     string
	JournalPath string

	flock *flock.Flock
}

func New(rootDir string) (*Workspace, error) {
	root, err := utils.ResolvePath(rootDir)
	if err != nil {
		return nil, fmt.Errorf("resolve path %s: %w", rootDir, err)
	}

	metadata := filepath.Join(root, metadataDir)
	return &Workspace{
		Root:        root,
		MetadataDir: metadata,
		LogsDir:     filepath.Join(metadata, logsDir),
		JournalPath: filepath.Join(metadata, journalFile),
		flock:       flock.New(filepath.Join(metadata, lockFile)),
	}, nil
}

// Setup creates the directory layout and takes the instance lock.
func (w *Workspace) Setup() error {
	for _, dir := range []string{w.Root, w.MetadataDir, w.LogsDir} {
		if err := utils.EnsureDir(dir); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	if err := w.Lock(); err != nil {
		return err
	}

	slog.Info("workspace", "root", w.Root)
	return nil
}

func (w *Workspace) Lock() error {
	locked, err := w.flock.TryLock()
	if err != nil {
		return fmt.Errorf("lock workspace: %w", err)
	}
	if !locked {
		return ErrWorkspaceLocked
	}
	return nil
}

func (w *Workspace) Unlock() error {
	if !w.flock.Locked() {
		return nil
	}
	if err := w.flock.Unlock(); err != nil {
		return fmt.Errorf("unlock workspace: %w", err)
	}
	return os.Remove(w.flock.Path())
}

// AbsPath maps a slash-relative sync key onto the local filesystem.
func (w *Workspace) AbsPath(relPath string) string {
	return filepath.Join(w.Root, filepath.FromSlash(relPath))
}
