package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"norelock.dev/listenify/gateway/internal/models"
	"norelock.dev/listenify/gateway/internal/utils"
)

// Backend is a platform client session able to list a video's stream formats
// and turn an obfuscated format into a fetchable URL.
type Backend interface {
	// FetchStreamingMetadata returns the stream formats available for a video.
	FetchStreamingMetadata(ctx context.Context, id models.VideoID) ([]models.StreamFormat, error)

	// Decipher resolves a format carrying a cipher into its final URL. It must
	// be called on the same backend that returned the format.
	Decipher(ctx context.Context, id models.VideoID, format models.StreamFormat) (string, error)
}

// BackendFactory creates a backend session. It is called at most once per
// successful initialisation.
type BackendFactory func(ctx context.Context) (Backend, error)

const defaultInitTimeout = 30 * time.Second

// Session lazily creates the backend on first use and keeps it for the
// lifetime of the process. Concurrent first callers share one initialisation
// attempt; a failed attempt leaves the session empty so the next call retries.
type Session struct {
	factory     BackendFactory
	initTimeout time.Duration
	logger      *utils.Logger

	mu      sync.RWMutex
	backend Backend

	group    singleflight.Group
	attempts atomic.Int64
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithInitTimeout bounds a single initialisation attempt.
func WithInitTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.initTimeout = d
		}
	}
}

// NewSession creates a session around the given factory. No backend is
// created until Ensure is first called.
func NewSession(factory BackendFactory, logger *utils.Logger, opts ...SessionOption) *Session {
	s := &Session{
		factory:     factory,
		initTimeout: defaultInitTimeout,
		logger:      logger.Named("backend_session"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ready reports whether a backend has been created.
func (s *Session) Ready() bool {
	return s.current() != nil
}

// Attempts returns how many times the factory has been invoked.
func (s *Session) Attempts() int64 {
	return s.attempts.Load()
}

func (s *Session) current() Backend {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.backend
}

// Ensure returns the backend, creating it if needed. Errors wrap
// ErrBackendUnavailable.
func (s *Session) Ensure(ctx context.Context) (Backend, error) {
	if b := s.current(); b != nil {
		return b, nil
	}

	ch := s.group.DoChan("init", func() (any, error) {
		if b := s.current(); b != nil {
			return b, nil
		}

		// The attempt is shared by every waiter, so it must not die with the
		// context of whichever caller happened to start it.
		initCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.initTimeout)
		defer cancel()

		n := s.attempts.Add(1)
		s.logger.Info("Initialising backend session", "attempt", n)

		b, err := s.factory(initCtx)
		if err == nil && b == nil {
			err = errors.New("factory returned no backend")
		}
		if err != nil {
			s.logger.Error("Backend session initialisation failed", err, "attempt", n)
			return nil, err
		}

		s.mu.Lock()
		s.backend = b
		s.mu.Unlock()

		s.logger.Info("Backend session ready", "attempt", n)
		return b, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, res.Err)
		}
		return res.Val.(Backend), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, ctx.Err())
	}
}

// FetchStreamingMetadata ensures the session and fetches the formats for id.
// It returns the backend used so the caller can decipher with the same instance.
func (s *Session) FetchStreamingMetadata(ctx context.Context, id models.VideoID) (Backend, []models.StreamFormat, error) {
	b, err := s.Ensure(ctx)
	if err != nil {
		return nil, nil, err
	}

	formats, err := b.FetchStreamingMetadata(ctx, id)
	if err != nil {
		return b, nil, fmt.Errorf("%w: %s: %w", ErrMetadataFetchFailed, id, err)
	}
	if len(formats) == 0 {
		return b, nil, fmt.Errorf("%w: %s: no streaming data", ErrMetadataFetchFailed, id)
	}
	return b, formats, nil
}
