package sync

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSource feeds hand-crafted events into the manager.
type stubSource struct {
	events chan RawEvent
}

func newStubSource() *stubSource {
	return &stubSource{events: make(chan RawEvent, 16)}
}

func (s *stubSource) Start(ctx context.Context) error { return nil }
func (s *stubSource) Stop()                           {}
func (s *stubSource) Events() <-chan RawEvent         { return s.events }

func newTestManager(t *testing.T, remote *fakeRemote) (*Manager, *stubSource, string) {
	t.Helper()
	root := t.TempDir()
	source := newStubSource()

	m, err := NewManager(&ManagerConfig{
		Root:           root,
		Source:         source,
		Remote:         remote,
		TickInterval:   5 * time.Millisecond,
		DebounceWindow: time.Millisecond,
	})
	require.NoError(t, err)
	return m, source, root
}

func TestManagerEndToEnd(t *testing.T) {
	remote := newFakeRemote()
	m, source, root := newTestManager(t, remote)

	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	abs := filepath.Join(root, "notes.txt")
	writeFile(t, abs, "hello")
	source.events <- RawEvent{Kind: EventAdded, Path: abs, ObservedAt: time.Now()}

	require.Eventually(t, func() bool {
		return len(remote.pathsFor("upload")) == 1
	}, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"notes.txt"}, remote.pathsFor("upload"))

	source.events <- RawEvent{Kind: EventDeleted, Path: abs, ObservedAt: time.Now()}

	require.Eventually(t, func() bool {
		return len(remote.pathsFor("delete")) == 1
	}, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"notes.txt"}, remote.pathsFor("delete"))
}

func TestManagerSplitsMoves(t *testing.T) {
	remote := newFakeRemote()
	m, source, root := newTestManager(t, remote)

	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	dest := filepath.Join(root, "renamed.txt")
	writeFile(t, dest, "content")

	source.events <- RawEvent{
		Kind:       EventMoved,
		Path:       filepath.Join(root, "original.txt"),
		DestPath:   dest,
		ObservedAt: time.Now(),
	}

	require.Eventually(t, func() bool {
		return len(remote.pathsFor("delete")) == 1 && len(remote.pathsFor("upload")) == 1
	}, 3*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{"original.txt"}, remote.pathsFor("delete"))
	assert.Equal(t, []string{"renamed.txt"}, remote.pathsFor("upload"))
}

func TestManagerFiltersIgnoredPaths(t *testing.T) {
	remote := newFakeRemote()
	m, source, root := newTestManager(t, remote)

	require.NoError(t, m.Start(context.Background()))

	junk := filepath.Join(root, ".DS_Store")
	writeFile(t, junk, "junk")
	source.events <- RawEvent{Kind: EventAdded, Path: junk, ObservedAt: time.Now()}

	kept := filepath.Join(root, "kept.txt")
	writeFile(t, kept, "data")
	source.events <- RawEvent{Kind: EventAdded, Path: kept, ObservedAt: time.Now()}

	require.Eventually(t, func() bool {
		return len(remote.pathsFor("upload")) == 1
	}, 3*time.Second, 10*time.Millisecond)

	m.Stop()
	assert.Equal(t, []string{"kept.txt"}, remote.pathsFor("upload"))
}

func TestManagerStats(t *testing.T) {
	remote := newFakeRemote()
	m, _, root := newTestManager(t, remote)

	stats := m.Stats()
	assert.Equal(t, 0, stats.Pending)
	assert.Equal(t, 0, stats.InFlight)

	m.agg.Record(RawEvent{Kind: EventAdded, Path: filepath.Join(root, "queued.txt")})
	assert.Equal(t, 1, m.Stats().Pending)
}

func TestManagerStopWithoutStart(t *testing.T) {
	remote := newFakeRemote()
	m, _, _ := newTestManager(t, remote)
	m.Stop()
}

func TestManagerJournalLifecycle(t *testing.T) {
	remote := newFakeRemote()
	root := t.TempDir()
	source := newStubSource()

	m, err := NewManager(&ManagerConfig{
		Root:           root,
		Source:         source,
		Remote:         remote,
		JournalPath:    filepath.Join(root, ".drivebox", "journal.db"),
		TickInterval:   5 * time.Millisecond,
		DebounceWindow: time.Millisecond,
	})
	require.NoError(t, err)
	require.NoError(t, m.Start(context.Background()))

	abs := filepath.Join(root, "tracked.txt")
	require.NoError(t, os.WriteFile(abs, []byte("x"), 0o644))
	source.events <- RawEvent{Kind: EventAdded, Path: abs, ObservedAt: time.Now()}

	require.Eventually(t, func() bool {
		return len(remote.pathsFor("upload")) == 1
	}, 3*time.Second, 10*time.Millisecond)

	entry, err := m.journal.Get("tracked.txt")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "upload", entry.Kind)

	m.Stop()
}
