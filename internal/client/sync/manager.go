package sync

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/openmirror/drivebox/internal/store"
)

const stopJoinTimeout = 5 * time.Second

// Stats is a point-in-time snapshot for status reporting.
type Stats struct {
	Pending  int
	InFlight int
}

// Manager wires a ChangeSource into the aggregator and runs the dispatch
// loop. Reconciliation is exposed separately; it talks to the filesystem
// and the remote store directly, bypassing the aggregator.
type Manager struct {
	root       string
	source     ChangeSource
	agg        *Aggregator
	dispatcher *Dispatcher
	reconciler *Reconciler
	ignore     *IgnoreList
	journal    *Journal

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type ManagerConfig struct {
	Root           string
	Source         ChangeSource
	Remote         store.RemoteStore
	JournalPath    string // empty disables the journal
	TickInterval   time.Duration
	DebounceWindow time.Duration
}

func NewManager(cfg *ManagerConfig) (*Manager, error) {
	ignore := NewIgnoreList(cfg.Root)
	agg := NewAggregator(cfg.Root)

	var journal *Journal
	if cfg.JournalPath != "" {
		j, err := NewJournal(cfg.JournalPath)
		if err != nil {
			return nil, err
		}
		journal = j
	}

	opts := []DispatcherOption{WithIgnoreList(ignore)}
	if cfg.TickInterval > 0 {
		opts = append(opts, WithTickInterval(cfg.TickInterval))
	}
	if cfg.DebounceWindow > 0 {
		opts = append(opts, WithDebounceWindow(cfg.DebounceWindow))
	}
	if journal != nil {
		opts = append(opts, WithJournal(journal))
	}

	return &Manager{
		root:       cfg.Root,
		source:     cfg.Source,
		agg:        agg,
		dispatcher: NewDispatcher(cfg.Root, agg, cfg.Remote, opts...),
		reconciler: NewReconciler(cfg.Root, cfg.Remote, ignore),
		ignore:     ignore,
		journal:    journal,
	}, nil
}

// Start launches the event pump and the dispatch loop.
func (m *Manager) Start(ctx context.Context) error {
	slog.Info("sync start", "root", m.root)

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	if err := m.source.Start(ctx); err != nil {
		cancel()
		return err
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.pumpEvents(ctx)
	}()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.dispatcher.Run(ctx)
	}()

	return nil
}

// Stop halts the change source and joins the pump and dispatch loops with a
// bounded timeout. In-flight per-path dispatches are abandoned; the system
// is built for eventual re-sync, not exactly-once delivery.
func (m *Manager) Stop() {
	slog.Info("sync stop")

	m.source.Stop()
	if m.cancel != nil {
		m.cancel()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(stopJoinTimeout):
		slog.Warn("sync stop timed out waiting for loops")
	}

	if m.journal != nil {
		if err := m.journal.Close(); err != nil {
			slog.Warn("journal close failed", "error", err)
		}
	}
}

// Reconcile runs one push-only repair pass.
func (m *Manager) Reconcile(ctx context.Context) (*ReconcileResult, error) {
	return m.reconciler.Reconcile(ctx)
}

// Stats reports pending and in-flight counts.
func (m *Manager) Stats() Stats {
	return Stats{
		Pending:  m.agg.Len(),
		InFlight: m.dispatcher.InFlightCount(),
	}
}

// pumpEvents moves raw events from the source into the aggregator,
// filtering ignored paths and splitting moves into delete+upsert; renames
// are not distinguished from delete+create at the remote.
func (m *Manager) pumpEvents(ctx context.Context) {
	events := m.source.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			m.recordEvent(ev)
		}
	}
}

func (m *Manager) recordEvent(ev RawEvent) {
	if m.shouldIgnore(ev.Path) {
		return
	}

	if ev.Kind == EventMoved {
		m.agg.Record(RawEvent{Kind: EventDeleted, Path: ev.Path, IsDir: ev.IsDir, ObservedAt: ev.ObservedAt})
		if ev.DestPath != "" && !m.shouldIgnore(ev.DestPath) {
			m.agg.Record(RawEvent{Kind: EventAdded, Path: ev.DestPath, IsDir: ev.IsDir, ObservedAt: ev.ObservedAt})
		}
		return
	}

	m.agg.Record(ev)
}

func (m *Manager) shouldIgnore(absPath string) bool {
	rel, err := filepath.Rel(m.root, absPath)
	if err != nil {
		return true
	}
	return m.ignore.ShouldIgnore(filepath.ToSlash(rel))
}
