package sync

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmirror/drivebox/internal/store"
)

func newTestReconciler(t *testing.T, remote *fakeRemote) (*Reconciler, string) {
	t.Helper()
	root := t.TempDir()
	return NewReconciler(root, remote, NewIgnoreList(root)), root
}

func TestReconcilePushesMissingContent(t *testing.T) {
	remote := newFakeRemote()
	r, root := newTestReconciler(t, remote)

	writeFile(t, filepath.Join(root, "readme.md"), "hello")
	writeFile(t, filepath.Join(root, "docs", "spec.txt"), "details")

	result, err := r.Reconcile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.DirsCreated)
	assert.Equal(t, 2, result.FilesUploaded)
	assert.Equal(t, 0, result.Failures)

	assert.Equal(t, []string{"docs"}, remote.pathsFor("mkdir"))
	assert.ElementsMatch(t, []string{"readme.md", "docs/spec.txt"}, remote.pathsFor("upload"))
}

func TestReconcileNeverDeletes(t *testing.T) {
	remote := newFakeRemote()
	remote.items = []*store.RemoteItem{
		{Path: "only-remote.txt", ModifiedAt: time.Now()},
		{Path: "attic", IsDir: true},
	}
	r, _ := newTestReconciler(t, remote)

	result, err := r.Reconcile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, result.FilesUploaded)
	assert.Empty(t, remote.pathsFor("delete"))
}

func TestReconcileLastWriterWins(t *testing.T) {
	remote := newFakeRemote()
	r, root := newTestReconciler(t, remote)

	now := time.Now().Truncate(time.Second)

	staleLocal := filepath.Join(root, "stale.txt")
	writeFile(t, staleLocal, "old local")
	require.NoError(t, os.Chtimes(staleLocal, now, now.Add(-time.Hour)))

	freshLocal := filepath.Join(root, "fresh.txt")
	writeFile(t, freshLocal, "new local")
	require.NoError(t, os.Chtimes(freshLocal, now, now))

	tieLocal := filepath.Join(root, "tie.txt")
	writeFile(t, tieLocal, "same either way")
	require.NoError(t, os.Chtimes(tieLocal, now, now))

	remote.items = []*store.RemoteItem{
		{Path: "stale.txt", ModifiedAt: now},                // remote newer
		{Path: "fresh.txt", ModifiedAt: now.Add(-time.Hour)}, // remote older
		{Path: "tie.txt", ModifiedAt: now},                   // equal, remote stays
	}

	result, err := r.Reconcile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"fresh.txt"}, remote.pathsFor("upload"))
	assert.Equal(t, 1, result.FilesUploaded)
	assert.Equal(t, 2, result.Unchanged)
}

func TestReconcileCreatesDirectoriesBeforeFiles(t *testing.T) {
	remote := newFakeRemote()
	r, root := newTestReconciler(t, remote)

	writeFile(t, filepath.Join(root, "a", "b", "deep.txt"), "x")

	_, err := r.Reconcile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "a/b"}, remote.pathsFor("mkdir"))

	calls := remote.Calls()
	require.Equal(t, "list", calls[0].Op)
	assert.Equal(t, "upload", calls[len(calls)-1].Op)
}

func TestReconcileCountsItemFailures(t *testing.T) {
	remote := newFakeRemote()
	remote.uploadErr = func(path string) error {
		if path == "bad.txt" {
			return errors.New("rejected")
		}
		return nil
	}
	r, root := newTestReconciler(t, remote)

	writeFile(t, filepath.Join(root, "bad.txt"), "x")
	writeFile(t, filepath.Join(root, "good.txt"), "y")

	result, err := r.Reconcile(context.Background())
	require.NoError(t, err, "item failures must not abort the pass")

	assert.Equal(t, 1, result.FilesUploaded)
	assert.Equal(t, 1, result.Failures)
}

func TestReconcileSkipsIgnoredPaths(t *testing.T) {
	remote := newFakeRemote()
	r, root := newTestReconciler(t, remote)

	writeFile(t, filepath.Join(root, ".drivebox", "journal.db"), "sqlite")
	writeFile(t, filepath.Join(root, "scratch.tmp"), "temp")
	writeFile(t, filepath.Join(root, "kept.txt"), "data")

	_, err := r.Reconcile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"kept.txt"}, remote.pathsFor("upload"))
	assert.Empty(t, remote.pathsFor("mkdir"))
}

func TestReconcileFailsWhenRemoteUnlistable(t *testing.T) {
	remote := newFakeRemote()
	remote.listErr = errors.New("connection refused")
	r, _ := newTestReconciler(t, remote)

	_, err := r.Reconcile(context.Background())
	require.Error(t, err)
}
