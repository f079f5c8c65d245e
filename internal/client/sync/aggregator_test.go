package sync

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregatorCollapsesBursts(t *testing.T) {
	root := t.TempDir()
	agg := NewAggregator(root)

	abs := filepath.Join(root, "notes.txt")
	for i := 0; i < 5; i++ {
		agg.Record(RawEvent{Kind: EventModified, Path: abs})
	}
	require.Equal(t, 1, agg.Len())

	ready := agg.DrainReady(0)
	require.Len(t, ready, 1)
	assert.Equal(t, "notes.txt", ready[0].RelPath)
	assert.Equal(t, ActionUpsert, ready[0].Kind)
	assert.Equal(t, 0, agg.Len())
}

func TestAggregatorLatestEventWins(t *testing.T) {
	root := t.TempDir()
	agg := NewAggregator(root)
	abs := filepath.Join(root, "doc.md")

	agg.Record(RawEvent{Kind: EventAdded, Path: abs})
	agg.Record(RawEvent{Kind: EventDeleted, Path: abs})

	ready := agg.DrainReady(0)
	require.Len(t, ready, 1)
	assert.Equal(t, ActionDelete, ready[0].Kind)

	// and back the other way
	agg.Record(RawEvent{Kind: EventDeleted, Path: abs})
	agg.Record(RawEvent{Kind: EventAdded, Path: abs})

	ready = agg.DrainReady(0)
	require.Len(t, ready, 1)
	assert.Equal(t, ActionUpsert, ready[0].Kind)
}

func TestAggregatorDebounceWindow(t *testing.T) {
	root := t.TempDir()
	agg := NewAggregator(root)
	abs := filepath.Join(root, "big.bin")
	window := 300 * time.Millisecond

	base := time.Now()
	agg.now = func() time.Time { return base }
	agg.Record(RawEvent{Kind: EventModified, Path: abs})

	// still within the quiet window
	agg.now = func() time.Time { return base.Add(100 * time.Millisecond) }
	assert.Empty(t, agg.DrainReady(window))
	assert.Equal(t, 1, agg.Len())

	// a fresh event restarts the window
	agg.Record(RawEvent{Kind: EventModified, Path: abs})
	agg.now = func() time.Time { return base.Add(350 * time.Millisecond) }
	assert.Empty(t, agg.DrainReady(window))

	agg.now = func() time.Time { return base.Add(400 * time.Millisecond) }
	ready := agg.DrainReady(window)
	require.Len(t, ready, 1)
	assert.True(t, ready[0].FirstSeenAt.Equal(base), "first-seen must survive coalescing")
}

func TestAggregatorDrainSortsByPath(t *testing.T) {
	root := t.TempDir()
	agg := NewAggregator(root)

	for _, name := range []string{"zebra.txt", "assets/logo.png", "assets"} {
		agg.Record(RawEvent{Kind: EventAdded, Path: filepath.Join(root, name)})
	}

	ready := agg.DrainReady(0)
	require.Len(t, ready, 3)
	assert.Equal(t, "assets", ready[0].RelPath)
	assert.Equal(t, "assets/logo.png", ready[1].RelPath)
	assert.Equal(t, "zebra.txt", ready[2].RelPath)
}

func TestAggregatorDropsPathsOutsideRoot(t *testing.T) {
	agg := NewAggregator(t.TempDir())

	agg.Record(RawEvent{Kind: EventAdded, Path: filepath.Join(t.TempDir(), "other.txt")})
	assert.Equal(t, 0, agg.Len())
}

func TestAggregatorRequeueYieldsToFresherAction(t *testing.T) {
	root := t.TempDir()
	agg := NewAggregator(root)
	abs := filepath.Join(root, "contested.txt")

	agg.Record(RawEvent{Kind: EventAdded, Path: abs})
	ready := agg.DrainReady(0)
	require.Len(t, ready, 1)
	stale := ready[0]

	// a newer action lands while the drained one is being dispatched
	agg.Record(RawEvent{Kind: EventDeleted, Path: abs})
	agg.requeue(stale)

	require.Equal(t, 1, agg.Len())
	ready = agg.DrainReady(0)
	require.Len(t, ready, 1)
	assert.Equal(t, ActionDelete, ready[0].Kind)
}

func TestAggregatorRequeueRestoresDrainedAction(t *testing.T) {
	root := t.TempDir()
	agg := NewAggregator(root)
	abs := filepath.Join(root, "retry.txt")

	agg.Record(RawEvent{Kind: EventAdded, Path: abs})
	ready := agg.DrainReady(0)
	require.Len(t, ready, 1)
	require.Equal(t, 0, agg.Len())

	agg.requeue(ready[0])
	require.Equal(t, 1, agg.Len())

	// timestamps were preserved, so it is immediately ready again
	again := agg.DrainReady(0)
	require.Len(t, again, 1)
	assert.Equal(t, ready[0].LastSeenAt, again[0].LastSeenAt)
}
