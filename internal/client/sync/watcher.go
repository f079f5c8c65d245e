package sync

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/rjeczalik/notify"
)

const watcherBufferSize = 256

// Watcher is the notification-based ChangeSource, backed by the platform's
// native facility (inotify, FSEvents, ReadDirectoryChangesW).
type Watcher struct {
	watchDir  string
	rawEvents chan notify.EventInfo
	events    chan RawEvent
	done      chan struct{}
}

func NewWatcher(watchDir string) *Watcher {
	return &Watcher{
		watchDir:  watchDir,
		rawEvents: make(chan notify.EventInfo, watcherBufferSize),
		events:    make(chan RawEvent, watcherBufferSize),
		done:      make(chan struct{}),
	}
}

func (w *Watcher) Start(ctx context.Context) error {
	slog.Info("watcher start", "dir", w.watchDir)

	recursivePath := w.watchDir + "/..."
	if err := notify.Watch(recursivePath, w.rawEvents, notify.All); err != nil {
		return err
	}

	go w.translate(ctx)
	return nil
}

func (w *Watcher) Stop() {
	slog.Info("watcher stop")
	notify.Stop(w.rawEvents)
	close(w.done)
}

func (w *Watcher) Events() <-chan RawEvent {
	return w.events
}

// translate converts platform events into RawEvents. Bursts are forwarded
// as-is; collapsing them is the aggregator's job. The send blocks when the
// buffer fills: the pump drains with a single map insert, so backpressure
// is brief, and a silently dropped Deleted event could never be repaired
// (reconciliation never deletes).
func (w *Watcher) translate(ctx context.Context) {
	defer close(w.events)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ei, ok := <-w.rawEvents:
			if !ok {
				return
			}

			ev, ok := w.toRawEvent(ei)
			if !ok {
				continue
			}

			select {
			case w.events <- ev:
			case <-ctx.Done():
				return
			case <-w.done:
				return
			}
		}
	}
}

func (w *Watcher) toRawEvent(ei notify.EventInfo) (RawEvent, bool) {
	ev := RawEvent{
		Path:       ei.Path(),
		ObservedAt: time.Now(),
	}

	switch ei.Event() {
	case notify.Create:
		ev.Kind = EventAdded
	case notify.Write:
		ev.Kind = EventModified
	case notify.Remove:
		ev.Kind = EventDeleted
	case notify.Rename:
		// fired for the source path; the destination shows up as Create
		ev.Kind = EventMoved
	default:
		return ev, false
	}

	if ev.Kind != EventDeleted && ev.Kind != EventMoved {
		if info, err := os.Stat(ev.Path); err == nil {
			ev.IsDir = info.IsDir()
		}
	}

	return ev, true
}
