package sync

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"
)

const (
	DefaultPollInterval = 2 * time.Second
	pollerBufferSize    = 256
)

type pollEntry struct {
	isDir   bool
	size    int64
	modTime time.Time
}

// Poller is the polling ChangeSource. It rescans the tree on a fixed
// interval and diffs against the previous scan. Slower than native
// notifications but immune to watch-descriptor limits and network mounts.
type Poller struct {
	watchDir string
	interval time.Duration
	events   chan RawEvent
	done     chan struct{}
	prev     map[string]pollEntry
}

func NewPoller(watchDir string, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		watchDir: watchDir,
		interval: interval,
		events:   make(chan RawEvent, pollerBufferSize),
		done:     make(chan struct{}),
	}
}

func (p *Poller) Start(ctx context.Context) error {
	slog.Info("poller start", "dir", p.watchDir, "interval", p.interval)

	// baseline scan; nothing is emitted for pre-existing content, the
	// reconciliation pass covers it
	p.prev = p.scan()

	go p.loop(ctx)
	return nil
}

func (p *Poller) Stop() {
	slog.Info("poller stop")
	close(p.done)
}

func (p *Poller) Events() <-chan RawEvent {
	return p.events
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.events)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.done:
			return
		case <-ticker.C:
			p.diff(ctx)
		}
	}
}

func (p *Poller) diff(ctx context.Context) {
	next := p.scan()
	now := time.Now()

	for path, cur := range next {
		prev, existed := p.prev[path]
		switch {
		case !existed:
			p.emit(ctx, RawEvent{Kind: EventAdded, Path: path, IsDir: cur.isDir, ObservedAt: now})
		case !cur.isDir && (cur.modTime != prev.modTime || cur.size != prev.size):
			p.emit(ctx, RawEvent{Kind: EventModified, Path: path, IsDir: false, ObservedAt: now})
		}
	}

	for path, prev := range p.prev {
		if _, exists := next[path]; !exists {
			p.emit(ctx, RawEvent{Kind: EventDeleted, Path: path, IsDir: prev.isDir, ObservedAt: now})
		}
	}

	p.prev = next
}

// emit blocks when the buffer is full rather than dropping: a lost Deleted
// event would never be repaired, since reconciliation only ever pushes.
func (p *Poller) emit(ctx context.Context, ev RawEvent) {
	select {
	case p.events <- ev:
	case <-ctx.Done():
	case <-p.done:
	}
}

func (p *Poller) scan() map[string]pollEntry {
	state := make(map[string]pollEntry)

	err := filepath.WalkDir(p.watchDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// unreadable subtree: skip it, keep scanning the rest
			slog.Debug("poller walk error", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if path == p.watchDir {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}

		state[path] = pollEntry{
			isDir:   d.IsDir(),
			size:    info.Size(),
			modTime: info.ModTime(),
		}
		return nil
	})
	if err != nil {
		slog.Warn("poller scan failed", "error", err)
	}

	return state
}
