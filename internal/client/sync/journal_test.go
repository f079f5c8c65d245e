package sync

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := NewJournal(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestJournalRoundTrip(t *testing.T) {
	j := newTestJournal(t)

	modified := time.Date(2025, 6, 1, 12, 30, 0, 250_000_000, time.UTC)
	completed := modified.Add(2 * time.Second)

	require.NoError(t, j.Record(&JournalEntry{
		Path:        "docs/spec.txt",
		Kind:        "upload",
		Size:        4096,
		ModifiedAt:  modified,
		CompletedAt: completed,
	}))

	entry, err := j.Get("docs/spec.txt")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "upload", entry.Kind)
	assert.Equal(t, int64(4096), entry.Size)
	assert.True(t, entry.ModifiedAt.Equal(modified))
	assert.True(t, entry.CompletedAt.Equal(completed))
}

func TestJournalGetUnknownPath(t *testing.T) {
	j := newTestJournal(t)

	entry, err := j.Get("never-seen.txt")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestJournalRecordReplacesExisting(t *testing.T) {
	j := newTestJournal(t)

	require.NoError(t, j.Record(&JournalEntry{Path: "a.txt", Kind: "upload", CompletedAt: time.Now()}))
	require.NoError(t, j.Record(&JournalEntry{Path: "a.txt", Kind: "delete", CompletedAt: time.Now()}))

	count, err := j.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	entry, err := j.Get("a.txt")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "delete", entry.Kind)
}

func TestJournalDelete(t *testing.T) {
	j := newTestJournal(t)

	require.NoError(t, j.Record(&JournalEntry{Path: "a.txt", Kind: "upload", CompletedAt: time.Now()}))
	require.NoError(t, j.Delete("a.txt"))
	require.NoError(t, j.Delete("a.txt"), "deleting an unknown path is a no-op")

	entry, err := j.Get("a.txt")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestJournalRejectsNilEntry(t *testing.T) {
	j := newTestJournal(t)
	assert.Error(t, j.Record(nil))
}
