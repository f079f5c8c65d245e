package sync

import (
	"context"
	"io"
	"sync"

	"github.com/openmirror/drivebox/internal/store"
)

type remoteCall struct {
	Op   string
	Path string
}

// fakeRemote records every store operation in arrival order. Error hooks
// and the upload gate let tests shape individual call outcomes.
type fakeRemote struct {
	mu    sync.Mutex
	calls []remoteCall

	items []*store.RemoteItem

	listErr   error
	uploadErr func(path string) error
	mkdirErr  func(path string) error
	deleteErr func(path string) error

	// when set, Upload blocks until the channel is closed
	uploadGate chan struct{}
}

var _ store.RemoteStore = (*fakeRemote)(nil)

func newFakeRemote() *fakeRemote {
	return &fakeRemote{}
}

func (f *fakeRemote) record(op, path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, remoteCall{Op: op, Path: path})
}

func (f *fakeRemote) Calls() []remoteCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]remoteCall(nil), f.calls...)
}

func (f *fakeRemote) pathsFor(op string) []string {
	var paths []string
	for _, call := range f.Calls() {
		if call.Op == op {
			paths = append(paths, call.Path)
		}
	}
	return paths
}

func (f *fakeRemote) List(ctx context.Context) ([]*store.RemoteItem, error) {
	f.record("list", "")
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.items, nil
}

func (f *fakeRemote) Upload(ctx context.Context, path string, body io.Reader) error {
	if f.uploadGate != nil {
		<-f.uploadGate
	}
	if _, err := io.Copy(io.Discard, body); err != nil {
		return err
	}
	f.record("upload", path)
	if f.uploadErr != nil {
		return f.uploadErr(path)
	}
	return nil
}

func (f *fakeRemote) CreateDirectory(ctx context.Context, path string) error {
	f.record("mkdir", path)
	if f.mkdirErr != nil {
		return f.mkdirErr(path)
	}
	return nil
}

func (f *fakeRemote) Download(ctx context.Context, path string) (io.ReadCloser, error) {
	f.record("download", path)
	return nil, store.ErrNotFound
}

func (f *fakeRemote) Delete(ctx context.Context, path string) error {
	f.record("delete", path)
	if f.deleteErr != nil {
		return f.deleteErr(path)
	}
	return nil
}
