package mediaproxy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamPipesUpstream(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/webm")
		_, _ = w.Write([]byte("0123456789"))
	}))
	defer upstream.Close()

	s := NewStreamer(WithBufferSize(4))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/stream/dQw4w9WgXcQ", nil)

	require.NoError(t, s.Stream(rec, req, upstream.URL))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "bytes", rec.Header().Get("Accept-Ranges"))
	assert.Equal(t, "10", rec.Header().Get("Content-Length"))
	assert.Equal(t, "0123456789", rec.Body.String())
}

func TestStreamForwardsRange(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bytes=2-5", r.Header.Get("Range"))
		w.Header().Set("Content-Range", "bytes 2-5/10")
		w.Header().Set("Content-Length", "4")
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write([]byte("2345"))
	}))
	defer upstream.Close()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Range", "bytes=2-5")

	require.NoError(t, NewStreamer().Stream(rec, req, upstream.URL))
	assert.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "bytes 2-5/10", rec.Header().Get("Content-Range"))
	assert.Equal(t, "2345", rec.Body.String())
}

func TestStreamUpstreamStatusErrors(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, ErrNotFound},
		{http.StatusForbidden, ErrForbidden},
		{http.StatusBadGateway, ErrFetchFailed},
	}

	for _, tt := range tests {
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		rec := httptest.NewRecorder()
		err := NewStreamer().Stream(rec, httptest.NewRequest(http.MethodGet, "/", nil), upstream.URL)
		assert.ErrorIs(t, err, tt.want)
		assert.NotErrorIs(t, err, ErrStreamInterrupted)
		assert.Empty(t, rec.Header().Get("Content-Type"), "nothing written before the first byte")
		assert.Zero(t, rec.Body.Len())

		upstream.Close()
	}
}

func TestStreamFailureBeforeFirstByte(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		panic(http.ErrAbortHandler)
	}))
	defer upstream.Close()

	rec := httptest.NewRecorder()
	err := NewStreamer().Stream(rec, httptest.NewRequest(http.MethodGet, "/", nil), upstream.URL)
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.False(t, rec.Flushed)
	assert.Empty(t, rec.Header().Get("Accept-Ranges"))
}

func TestStreamFailureMidStream(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		_, _ = w.Write([]byte("first-bytes"))
		w.(http.Flusher).Flush()
		panic(http.ErrAbortHandler)
	}))
	defer upstream.Close()

	rec := httptest.NewRecorder()
	err := NewStreamer().Stream(rec, httptest.NewRequest(http.MethodGet, "/", nil), upstream.URL)
	assert.ErrorIs(t, err, ErrStreamInterrupted)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "first-bytes"))
}

// firstWriteRecorder signals once the first body bytes reach the client.
type firstWriteRecorder struct {
	*httptest.ResponseRecorder
	once  sync.Once
	wrote chan struct{}
}

func (r *firstWriteRecorder) Write(p []byte) (int, error) {
	r.once.Do(func() { close(r.wrote) })
	return r.ResponseRecorder.Write(p)
}

func TestStreamClientDisconnectClosesUpstream(t *testing.T) {
	closed := make(chan struct{})
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("chunk"))
		w.(http.Flusher).Flush()
		<-r.Context().Done()
		close(closed)
	}))
	defer upstream.Close()

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
	rec := &firstWriteRecorder{ResponseRecorder: httptest.NewRecorder(), wrote: make(chan struct{})}

	done := make(chan error, 1)
	go func() {
		done <- NewStreamer().Stream(rec, req, upstream.URL)
	}()

	<-rec.wrote
	cancel()

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("upstream request was not cancelled")
	}
	assert.ErrorIs(t, <-done, ErrStreamInterrupted)
}

func TestOpenRejectsEmptyURL(t *testing.T) {
	_, err := NewStreamer().Open(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrInvalidURL)
}
