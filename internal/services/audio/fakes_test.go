package audio

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"norelock.dev/listenify/gateway/internal/models"
)

type fakeBackend struct {
	formats     []models.StreamFormat
	fetchErr    error
	decipherURL string
	decipherErr error

	fetches   atomic.Int64
	deciphers atomic.Int64
}

func (b *fakeBackend) FetchStreamingMetadata(ctx context.Context, id models.VideoID) ([]models.StreamFormat, error) {
	b.fetches.Add(1)
	if b.fetchErr != nil {
		return nil, b.fetchErr
	}
	return b.formats, nil
}

func (b *fakeBackend) Decipher(ctx context.Context, id models.VideoID, f models.StreamFormat) (string, error) {
	b.deciphers.Add(1)
	return b.decipherURL, b.decipherErr
}

// countingFactory returns backend after an optional gate is released and
// counts invocations.
type countingFactory struct {
	backend Backend
	err     error
	gate    chan struct{}
	calls   atomic.Int64
}

func (f *countingFactory) New(ctx context.Context) (Backend, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.backend, nil
}

// fakeDownloader writes a file named <id>.<ext> into dir.
type fakeDownloader struct {
	ext   string
	err   error
	write bool
	gate  chan struct{}

	mu    sync.Mutex
	calls int
}

func (d *fakeDownloader) Download(ctx context.Context, id models.VideoID, dir string) error {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()

	if d.gate != nil {
		<-d.gate
	}
	if d.err != nil {
		return d.err
	}
	if !d.write {
		return nil
	}
	return os.WriteFile(filepath.Join(dir, id.String()+"."+d.ext), []byte("audio"), 0o644)
}

func (d *fakeDownloader) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}
