package audio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"norelock.dev/listenify/gateway/internal/models"
	"norelock.dev/listenify/gateway/internal/utils"
)

const defaultResolveTimeout = 20 * time.Second

// Resolver turns a video id into a fetchable audio URL using the shared
// backend session.
type Resolver struct {
	session  *Session
	timeout  time.Duration
	observer Observer
	logger   *utils.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolveTimeout bounds a single resolution including session setup.
func WithResolveTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithObserver sets the event observer.
func WithObserver(o Observer) ResolverOption {
	return func(r *Resolver) {
		if o != nil {
			r.observer = o
		}
	}
}

// NewResolver creates a resolver over the given session.
func NewResolver(session *Session, logger *utils.Logger, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		session:  session,
		timeout:  defaultResolveTimeout,
		observer: NopObserver,
		logger:   logger.Named("resolver"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Session returns the backend session used by the resolver.
func (r *Resolver) Session() *Session {
	return r.session
}

// ResolveAudioURL returns the URL of the highest-bitrate audio format of the
// video. The id is validated before the backend session is touched.
func (r *Resolver) ResolveAudioURL(ctx context.Context, id models.VideoID) (*models.ResolvedAudio, error) {
	start := time.Now()
	res, err := r.resolve(ctx, id)

	elapsed := time.Since(start)
	outcome := Outcome(err)
	r.observer.ObserveResolution(outcome, elapsed)

	if err != nil {
		if errors.Is(err, ErrInvalidID) {
			r.logger.Debug("Rejected video id", "id", id)
		} else {
			r.logger.Error("Audio resolution failed", err, "id", id, "outcome", outcome, "elapsed", elapsed)
		}
		return nil, err
	}

	r.logger.Debug("Resolved audio url", "id", id, "bitrate", res.Bitrate, "elapsed", elapsed)
	return res, nil
}

func (r *Resolver) resolve(ctx context.Context, id models.VideoID) (*models.ResolvedAudio, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidID, len(id))
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	backend, formats, err := r.session.FetchStreamingMetadata(ctx, id)
	if err != nil {
		return nil, err
	}

	candidates := AudioFormats(formats)
	idx, ok := SelectBestAudio(candidates)
	if !ok {
		return nil, fmt.Errorf("%w: %s has %d formats, none audio", ErrNoAudioFormat, id, len(formats))
	}
	format := candidates[idx]

	url, err := finalURL(ctx, backend, id, format)
	if err != nil {
		return nil, err
	}

	return &models.ResolvedAudio{
		URL:      url,
		VideoID:  id,
		MimeType: format.MimeType,
		Bitrate:  format.Bitrate,
	}, nil
}

// finalURL deciphers the format when it carries a cipher, otherwise uses the
// direct URL.
func finalURL(ctx context.Context, backend Backend, id models.VideoID, format models.StreamFormat) (string, error) {
	if format.NeedsDecipher() {
		url, err := backend.Decipher(ctx, id, format)
		if err != nil {
			return "", fmt.Errorf("%w: decipher itag %d: %w", ErrUrlUnresolvable, format.Itag, err)
		}
		if url == "" {
			return "", fmt.Errorf("%w: decipher itag %d returned empty url", ErrUrlUnresolvable, format.Itag)
		}
		return url, nil
	}
	if format.URL != "" {
		return format.URL, nil
	}
	return "", fmt.Errorf("%w: itag %d has no url", ErrUrlUnresolvable, format.Itag)
}
