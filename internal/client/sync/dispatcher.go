package sync

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/sync/errgroup"

	"github.com/openmirror/drivebox/internal/store"
	"github.com/openmirror/drivebox/internal/utils"
)

const (
	DefaultTickInterval   = 100 * time.Millisecond
	DefaultDebounceWindow = 300 * time.Millisecond

	// transiently inaccessible files (editor lock, delete-then-recreate)
	maxFileAttempts  = 3
	fileRetryBackoff = 500 * time.Millisecond

	// fan-out bound for freshly created directory trees
	maxFanOutWorkers = 8
)

// Dispatcher drains debounce-expired actions on a fixed tick and executes
// each against the remote store. Per path, dispatches are strictly ordered:
// a path already in flight is requeued and picked up on a later tick, after
// the in-flight dispatch clears. Across paths nothing is ordered.
type Dispatcher struct {
	root     string
	agg      *Aggregator
	remote   store.RemoteStore
	inflight mapset.Set[string]
	cache    *UploadCache
	ignore   *IgnoreList // optional
	journal  *Journal    // optional
	tick     time.Duration
	window   time.Duration
	wg       sync.WaitGroup
}

func NewDispatcher(root string, agg *Aggregator, remote store.RemoteStore, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		root:     root,
		agg:      agg,
		remote:   remote,
		inflight: mapset.NewSet[string](),
		cache:    NewUploadCache(),
		tick:     DefaultTickInterval,
		window:   DefaultDebounceWindow,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type DispatcherOption func(*Dispatcher)

func WithTickInterval(tick time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.tick = tick }
}

func WithDebounceWindow(window time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.window = window }
}

func WithJournal(j *Journal) DispatcherOption {
	return func(d *Dispatcher) { d.journal = j }
}

func WithIgnoreList(l *IgnoreList) DispatcherOption {
	return func(d *Dispatcher) { d.ignore = l }
}

// InFlightCount reports how many dispatches are currently executing.
func (d *Dispatcher) InFlightCount() int {
	return d.inflight.Cardinality()
}

// Run ticks until the context is canceled. Ticks never block on dispatch
// completion; each drained action runs in its own goroutine.
func (d *Dispatcher) Run(ctx context.Context) {
	slog.Info("dispatcher start", "tick", d.tick, "debounce", d.window)

	ticker := time.NewTicker(d.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("dispatcher stop")
			return
		case <-ticker.C:
			d.tickOnce(ctx)
		}
	}
}

func (d *Dispatcher) tickOnce(ctx context.Context) {
	for _, action := range d.agg.DrainReady(d.window) {
		if !d.inflight.Add(action.RelPath) {
			// a dispatch for this path is still running; queue the action
			// behind it and pick it up on a later tick
			d.agg.requeue(action)
			continue
		}

		d.wg.Add(1)
		go func(action *PendingAction) {
			defer d.wg.Done()
			// unconditional, so a newer action for this path can dispatch
			// on the next tick no matter how this one ended
			defer d.inflight.Remove(action.RelPath)
			d.dispatch(ctx, action)
		}(action)
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, action *PendingAction) {
	switch action.Kind {
	case ActionUpsert:
		d.dispatchUpsert(ctx, action.RelPath)
	case ActionDelete:
		d.dispatchDelete(ctx, action.RelPath)
	}
}

func (d *Dispatcher) dispatchDelete(ctx context.Context, relPath string) {
	err := d.remote.Delete(ctx, relPath)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		slog.Error("dispatch", "op", "delete", "path", relPath, "error", err)
		return
	}

	// already absent is the desired end state
	d.cache.Forget(relPath)
	d.journalRecord(&JournalEntry{Path: relPath, Kind: "delete", CompletedAt: time.Now()})
	slog.Info("dispatch", "op", "delete", "path", relPath)
}

func (d *Dispatcher) dispatchUpsert(ctx context.Context, relPath string) {
	absPath := filepath.Join(d.root, filepath.FromSlash(relPath))

	info, ok := d.statWithRetry(ctx, absPath)
	if !ok {
		// gone by the final attempt: not an error, a Delete event or the
		// next reconciliation will settle it
		slog.Debug("dispatch skip vanished path", "path", relPath)
		return
	}

	if info.IsDir() {
		d.upsertDirectory(ctx, relPath, absPath)
		return
	}

	if err := d.uploadFile(ctx, relPath, absPath); err != nil {
		slog.Error("dispatch", "op", "upload", "path", relPath, "error", err)
	}
}

// statWithRetry tolerates the brief window where editors delete and
// recreate a file. Returns ok=false when the path stays gone.
func (d *Dispatcher) statWithRetry(ctx context.Context, absPath string) (os.FileInfo, bool) {
	for attempt := 1; ; attempt++ {
		info, err := os.Stat(absPath)
		if err == nil {
			return info, true
		}
		if attempt >= maxFileAttempts {
			return nil, false
		}
		select {
		case <-ctx.Done():
			return nil, false
		case <-time.After(fileRetryBackoff):
		}
	}
}

// upsertDirectory creates the directory remotely (ancestors first) and then
// fans out over any pre-existing children, e.g. a tree moved in from
// outside the watched root. The parent create always completes before any
// descendant upload starts.
func (d *Dispatcher) upsertDirectory(ctx context.Context, relPath, absPath string) {
	if err := d.createDirectoryAll(ctx, relPath); err != nil {
		slog.Error("dispatch", "op", "mkdir", "path", relPath, "error", err)
		return
	}
	slog.Info("dispatch", "op", "mkdir", "path", relPath)
	d.journalRecord(&JournalEntry{Path: relPath, Kind: "mkdir", CompletedAt: time.Now()})

	dirs, files, err := d.collectChildren(absPath, relPath)
	if err != nil {
		slog.Warn("dispatch enumerate children", "path", relPath, "error", err)
	}
	if len(dirs) == 0 && len(files) == 0 {
		return
	}

	// subdirectories sequentially in lexicographic order; a parent is a
	// strict prefix of its children and sorts ahead of them, so each
	// create needs only the one segment
	sort.Strings(dirs)
	for _, dir := range dirs {
		if err := d.remote.CreateDirectory(ctx, dir); err != nil {
			slog.Error("dispatch", "op", "mkdir", "path", dir, "error", err)
			return
		}
	}

	// files in parallel, bounded; their directories all exist by now
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxFanOutWorkers)
	for _, file := range files {
		g.Go(func() error {
			abs := filepath.Join(d.root, filepath.FromSlash(file))
			if err := d.uploadFile(gctx, file, abs); err != nil {
				slog.Error("dispatch", "op", "upload", "path", file, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// createDirectoryAll issues one create per path segment from the root down,
// failing fast on the first segment that errors.
func (d *Dispatcher) createDirectoryAll(ctx context.Context, relPath string) error {
	segments := strings.Split(relPath, "/")
	cur := ""
	for _, segment := range segments {
		if cur == "" {
			cur = segment
		} else {
			cur = cur + "/" + segment
		}
		if err := d.remote.CreateDirectory(ctx, cur); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) uploadFile(ctx context.Context, relPath, absPath string) error {
	var lastErr error
	for attempt := 1; attempt <= maxFileAttempts; attempt++ {
		file, err := os.Open(absPath)
		if errors.Is(err, fs.ErrNotExist) && attempt == maxFileAttempts {
			// genuinely gone, settled elsewhere
			slog.Debug("dispatch skip vanished file", "path", relPath)
			return nil
		}
		if err != nil {
			lastErr = err
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(fileRetryBackoff):
			}
			continue
		}

		hash, err := utils.FileHash(absPath)
		if err == nil && d.cache.Unchanged(relPath, hash) {
			file.Close()
			slog.Debug("dispatch skip unchanged content", "path", relPath)
			return nil
		}

		info, _ := file.Stat()
		err = d.remote.Upload(ctx, relPath, file)
		file.Close()
		if err != nil {
			// remote rejection: no retry, operator intervention needed
			return err
		}

		if hash != "" {
			d.cache.Put(relPath, hash)
		}
		entry := &JournalEntry{Path: relPath, Kind: "upload", CompletedAt: time.Now()}
		if info != nil {
			entry.Size = info.Size()
			entry.ModifiedAt = info.ModTime()
		}
		d.journalRecord(entry)
		slog.Info("dispatch", "op", "upload", "path", relPath)
		return nil
	}
	return lastErr
}

func (d *Dispatcher) journalRecord(entry *JournalEntry) {
	if d.journal == nil {
		return
	}
	if err := d.journal.Record(entry); err != nil {
		slog.Warn("journal record failed", "path", entry.Path, "error", err)
	}
}

// collectChildren walks a directory and returns its descendants as
// root-relative slash paths, split into directories and files. Ignored
// paths never reach the remote: a tree moved in from outside the watched
// root carries its junk files along, and only the fan-out sees them.
func (d *Dispatcher) collectChildren(absPath, relPath string) (dirs []string, files []string, err error) {
	err = filepath.WalkDir(absPath, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			slog.Debug("dispatch walk error", "path", path, "error", err)
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if path == absPath {
			return nil
		}

		rel, err := filepath.Rel(absPath, path)
		if err != nil {
			return nil
		}
		child := relPath + "/" + utils.NormPath(rel)

		if d.ignore != nil && d.ignore.ShouldIgnore(child) {
			if entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if entry.IsDir() {
			dirs = append(dirs, child)
		} else {
			files = append(files, child)
		}
		return nil
	})
	return dirs, files, err
}
