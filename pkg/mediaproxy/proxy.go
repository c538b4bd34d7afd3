// Package mediaproxy pipes remote media to HTTP clients.
package mediaproxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// Proxy errors
var (
	// ErrInvalidURL is returned when an invalid URL is provided.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrFetchFailed is returned when fetching content from a source fails.
	ErrFetchFailed = errors.New("failed to fetch content")

	// ErrNotFound is returned when the requested content is not found.
	ErrNotFound = errors.New("content not found")

	// ErrForbidden is returned when access to the requested content is forbidden.
	ErrForbidden = errors.New("access forbidden")

	// ErrStreamInterrupted is returned when the upstream fails after bytes
	// were sent. The response can then only be aborted.
	ErrStreamInterrupted = errors.New("stream interrupted")
)

const defaultBufferSize = 32 * 1024

// Streamer opens media URLs and pipes them to clients as bytes arrive.
type Streamer struct {
	// httpClient is the HTTP client used to fetch content.
	httpClient *http.Client

	// contentType is sent to the client regardless of the upstream type.
	contentType string

	bufferSize int
}

// StreamerOption is a function that configures a Streamer.
type StreamerOption func(*Streamer)

// WithHTTPClient sets the HTTP client used to fetch content.
func WithHTTPClient(httpClient *http.Client) StreamerOption {
	return func(s *Streamer) {
		if httpClient != nil {
			s.httpClient = httpClient
		}
	}
}

// WithContentType sets the content type announced to clients.
func WithContentType(contentType string) StreamerOption {
	return func(s *Streamer) {
		if contentType != "" {
			s.contentType = contentType
		}
	}
}

// WithBufferSize sets the copy buffer size.
func WithBufferSize(size int) StreamerOption {
	return func(s *Streamer) {
		if size > 0 {
			s.bufferSize = size
		}
	}
}

// NewStreamer creates a new streamer.
func NewStreamer(options ...StreamerOption) *Streamer {
	s := &Streamer{
		httpClient:  http.DefaultClient,
		contentType: "audio/mpeg",
		bufferSize:  defaultBufferSize,
	}

	for _, option := range options {
		option(s)
	}

	return s
}

// Upstream is an open upstream media response.
type Upstream struct {
	Body          io.ReadCloser
	StatusCode    int
	ContentLength int64
	ContentRange  string
}

// Open requests url, forwarding rangeHeader when set. The caller must close
// the returned body.
func (s *Streamer) Open(ctx context.Context, url, rangeHeader string) (*Upstream, error) {
	if url == "" {
		return nil, ErrInvalidURL
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	if rangeHeader != "" {
		httpReq.Header.Set("Range", rangeHeader)
	}

	httpRes, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	switch httpRes.StatusCode {
	case http.StatusOK, http.StatusPartialContent:
		// OK
	case http.StatusNotFound:
		httpRes.Body.Close()
		return nil, ErrNotFound
	case http.StatusForbidden:
		httpRes.Body.Close()
		return nil, ErrForbidden
	default:
		httpRes.Body.Close()
		return nil, fmt.Errorf("%w: status code %d", ErrFetchFailed, httpRes.StatusCode)
	}

	return &Upstream{
		Body:          httpRes.Body,
		StatusCode:    httpRes.StatusCode,
		ContentLength: httpRes.ContentLength,
		ContentRange:  httpRes.Header.Get("Content-Range"),
	}, nil
}

// Stream pipes url to w using the request's context, so a client disconnect
// closes the upstream connection. The client's Range header is forwarded.
//
// Nothing is written to w when Stream fails before the first upstream byte;
// the caller can still send an error status. Failures after that are
// reported as ErrStreamInterrupted.
func (s *Streamer) Stream(w http.ResponseWriter, r *http.Request, url string) error {
	up, err := s.Open(r.Context(), url, r.Header.Get("Range"))
	if err != nil {
		return err
	}
	defer up.Body.Close()

	buf := make([]byte, s.bufferSize)

	// Read ahead so an upstream that fails immediately still gets a status.
	n, readErr := io.ReadAtLeast(up.Body, buf, 1)
	if readErr != nil && !errors.Is(readErr, io.EOF) {
		return fmt.Errorf("%w: %v", ErrFetchFailed, readErr)
	}

	s.writeHeaders(w, up)

	if n == 0 {
		return nil
	}
	if _, err := w.Write(buf[:n]); err != nil {
		return fmt.Errorf("%w: %v", ErrStreamInterrupted, err)
	}
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	if _, err := io.CopyBuffer(w, up.Body, buf); err != nil {
		return fmt.Errorf("%w: %v", ErrStreamInterrupted, err)
	}
	return nil
}

func (s *Streamer) writeHeaders(w http.ResponseWriter, up *Upstream) {
	h := w.Header()
	h.Set("Content-Type", s.contentType)
	h.Set("Accept-Ranges", "bytes")
	if up.ContentLength >= 0 {
		h.Set("Content-Length", strconv.FormatInt(up.ContentLength, 10))
	}
	if up.ContentRange != "" {
		h.Set("Content-Range", up.ContentRange)
	}
	w.WriteHeader(up.StatusCode)
}
