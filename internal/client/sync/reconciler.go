package sync

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openmirror/drivebox/internal/store"
	"github.com/openmirror/drivebox/internal/utils"
)

const reconcileUploadWorkers = 8

// LocalItem is one entry of the local inventory, rebuilt on every
// reconciliation pass.
type LocalItem struct {
	RelPath    string
	IsDir      bool
	ModifiedAt time.Time
}

// ReconcileResult summarizes one pass.
type ReconcileResult struct {
	DirsCreated   int
	FilesUploaded int
	Unchanged     int
	Failures      int
	Took          time.Duration
}

// Reconciler compares the full local and remote inventories and pushes
// drift: directories the remote is missing, files the remote is missing or
// holds an older copy of. It never deletes anything remotely; deletions
// only happen through live events. Used at startup and on demand.
type Reconciler struct {
	root   string
	remote store.RemoteStore
	ignore *IgnoreList
}

func NewReconciler(root string, remote store.RemoteStore, ignore *IgnoreList) *Reconciler {
	return &Reconciler{root: root, remote: remote, ignore: ignore}
}

// Reconcile runs one synchronous pass. Individual item failures are logged
// and counted, never abort the pass; only being unable to list the remote
// or walk the root at all is an error.
func (r *Reconciler) Reconcile(ctx context.Context) (*ReconcileResult, error) {
	tstart := time.Now()
	result := &ReconcileResult{}

	items, err := r.remote.List(ctx)
	if err != nil {
		return nil, err
	}
	remoteState := make(map[string]*store.RemoteItem, len(items))
	for _, item := range items {
		remoteState[item.Path] = item
	}

	localState, err := r.localInventory(ctx)
	if err != nil {
		return nil, err
	}

	var dirs, files []*LocalItem
	for _, item := range localState {
		if item.IsDir {
			dirs = append(dirs, item)
		} else {
			files = append(files, item)
		}
	}

	// directories first, lexicographically: a parent is a strict prefix of
	// its children and therefore sorts ahead of them
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].RelPath < dirs[j].RelPath })
	for _, dir := range dirs {
		if _, exists := remoteState[dir.RelPath]; exists {
			result.Unchanged++
			continue
		}
		if err := r.remote.CreateDirectory(ctx, dir.RelPath); err != nil {
			slog.Warn("reconcile", "op", "mkdir", "path", dir.RelPath, "error", err)
			result.Failures++
			continue
		}
		slog.Info("reconcile", "op", "mkdir", "path", dir.RelPath)
		result.DirsCreated++
	}

	// last-writer-wins by modification time: upload when the remote copy is
	// absent or strictly older; a newer-or-equal remote copy stays put
	var uploaded, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reconcileUploadWorkers)
	for _, file := range files {
		remote, exists := remoteState[file.RelPath]
		if exists && !remote.ModifiedAt.Before(file.ModifiedAt) {
			result.Unchanged++
			continue
		}
		g.Go(func() error {
			if err := r.uploadFile(gctx, file.RelPath); err != nil {
				slog.Warn("reconcile", "op", "upload", "path", file.RelPath, "error", err)
				failed.Add(1)
				return nil
			}
			slog.Info("reconcile", "op", "upload", "path", file.RelPath)
			uploaded.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	result.FilesUploaded = int(uploaded.Load())
	result.Failures += int(failed.Load())
	result.Took = time.Since(tstart)

	slog.Info("reconcile done",
		"dirs", result.DirsCreated,
		"uploads", result.FilesUploaded,
		"unchanged", result.Unchanged,
		"failures", result.Failures,
		"took", result.Took,
	)
	return result, nil
}

func (r *Reconciler) uploadFile(ctx context.Context, relPath string) error {
	file, err := os.Open(filepath.Join(r.root, filepath.FromSlash(relPath)))
	if err != nil {
		return err
	}
	defer file.Close()
	return r.remote.Upload(ctx, relPath, file)
}

// localInventory walks the watched root. Unreadable subtrees are skipped
// and logged; the rest of the walk continues.
func (r *Reconciler) localInventory(ctx context.Context) (map[string]*LocalItem, error) {
	state := make(map[string]*LocalItem)

	walkFn := func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("reconcile walk error, skipping subtree", "path", path, "error", err)
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if path == r.root {
			return nil
		}

		rel, err := filepath.Rel(r.root, path)
		if err != nil {
			return nil
		}
		rel = utils.NormPath(rel)

		if r.ignore != nil && r.ignore.ShouldIgnore(rel) {
			if entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			slog.Warn("reconcile stat error", "path", path, "error", err)
			return nil
		}

		state[rel] = &LocalItem{
			RelPath:    rel,
			IsDir:      entry.IsDir(),
			ModifiedAt: info.ModTime(),
		}
		return nil
	}

	if err := filepath.WalkDir(r.root, walkFn); err != nil {
		return nil, err
	}
	return state, nil
}
