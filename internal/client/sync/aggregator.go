package sync

import (
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/openmirror/drivebox/internal/utils"
)

// Aggregator collapses bursts of raw events into one pending action per
// path. Writes from editors commonly arrive as several modify events within
// a few milliseconds; only the final disk state matters, so later events
// overwrite earlier ones (latest-wins) and a path is handed out only after
// it has been quiet for the debounce window.
type Aggregator struct {
	root    string
	mu      sync.Mutex
	pending map[string]*PendingAction
	now     func() time.Time
}

func NewAggregator(root string) *Aggregator {
	return &Aggregator{
		root:    root,
		pending: make(map[string]*PendingAction),
		now:     time.Now,
	}
}

// Record folds a raw event into the pending map. Non-blocking and safe for
// concurrent use. Events for paths outside the watched root are dropped.
// EventMoved must be split by the caller into a delete for the source and
// an upsert for the destination before it gets here.
func (a *Aggregator) Record(ev RawEvent) {
	rel, ok := a.relPath(ev.Path)
	if !ok {
		slog.Debug("aggregator drop event outside root", "path", ev.Path)
		return
	}

	kind := ActionUpsert
	if ev.Kind == EventDeleted {
		kind = ActionDelete
	}

	now := a.now()

	a.mu.Lock()
	defer a.mu.Unlock()

	if p, exists := a.pending[rel]; exists {
		p.Kind = kind
		p.LastSeenAt = now
		return
	}

	a.pending[rel] = &PendingAction{
		RelPath:     rel,
		Kind:        kind,
		FirstSeenAt: now,
		LastSeenAt:  now,
	}
}

// DrainReady removes and returns every pending action that has been quiet
// for at least the debounce window, sorted by path. Fresher actions stay in
// the map for a later drain.
func (a *Aggregator) DrainReady(window time.Duration) []*PendingAction {
	now := a.now()

	a.mu.Lock()
	defer a.mu.Unlock()

	var ready []*PendingAction
	for rel, p := range a.pending {
		if now.Sub(p.LastSeenAt) >= window {
			ready = append(ready, p)
			delete(a.pending, rel)
		}
	}

	// lexicographic order puts parents ahead of their children
	sort.Slice(ready, func(i, j int) bool { return ready[i].RelPath < ready[j].RelPath })
	return ready
}

// requeue puts a drained action back, keeping its timestamps so it remains
// ready on the next drain. Used when the dispatcher finds the path already
// in flight. A fresher action recorded meanwhile wins over the stale one.
func (a *Aggregator) requeue(p *PendingAction) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.pending[p.RelPath]; exists {
		return
	}
	a.pending[p.RelPath] = p
}

// Len reports the number of paths currently pending.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// relPath converts an absolute event path into the normalized slash-form
// key used throughout the sync core.
func (a *Aggregator) relPath(abs string) (string, bool) {
	rel, err := filepath.Rel(a.root, abs)
	if err != nil {
		return "", false
	}
	rel = utils.NormPath(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}
