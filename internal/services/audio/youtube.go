package audio

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/kkdai/youtube/v2"
	"github.com/samber/lo"

	"norelock.dev/listenify/gateway/internal/models"
)

// YouTubeOptions configures the kkdai/youtube backend.
type YouTubeOptions struct {
	// HTTPTimeout bounds every request made by the client.
	HTTPTimeout time.Duration

	// ProxyURL routes platform traffic through an HTTP proxy when set.
	ProxyURL string
}

// youtubeBackend adapts a kkdai/youtube client to Backend.
type youtubeBackend struct {
	client *youtube.Client
}

// NewYouTubeFactory returns a factory creating kkdai/youtube clients. The
// proxy URL is checked when the factory runs, so a bad value surfaces as a
// failed session initialisation.
func NewYouTubeFactory(opts YouTubeOptions) BackendFactory {
	return func(ctx context.Context) (Backend, error) {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if opts.ProxyURL != "" {
			proxy, err := url.Parse(opts.ProxyURL)
			if err != nil || proxy.Host == "" {
				return nil, fmt.Errorf("invalid proxy url %q", opts.ProxyURL)
			}
			transport.Proxy = http.ProxyURL(proxy)
		}

		client := &youtube.Client{
			HTTPClient: &http.Client{
				Timeout:   opts.HTTPTimeout,
				Transport: transport,
			},
		}
		return &youtubeBackend{client: client}, nil
	}
}

func (b *youtubeBackend) FetchStreamingMetadata(ctx context.Context, id models.VideoID) ([]models.StreamFormat, error) {
	video, err := b.client.GetVideoContext(ctx, id.String())
	if err != nil {
		return nil, describeYouTubeError(err)
	}

	return lo.Map(video.Formats, func(f youtube.Format, _ int) models.StreamFormat {
		return models.StreamFormat{
			Itag:          f.ItagNo,
			MimeType:      f.MimeType,
			Bitrate:       f.Bitrate,
			URL:           f.URL,
			Cipher:        f.Cipher,
			ContentLength: f.ContentLength,
			AudioChannels: f.AudioChannels,
		}
	}), nil
}

func (b *youtubeBackend) Decipher(ctx context.Context, id models.VideoID, format models.StreamFormat) (string, error) {
	video := &youtube.Video{ID: id.String()}
	return b.client.GetStreamURLContext(ctx, video, &youtube.Format{
		ItagNo:   format.Itag,
		MimeType: format.MimeType,
		Cipher:   format.Cipher,
	})
}

func describeYouTubeError(err error) error {
	var status *youtube.ErrPlayabiltyStatus
	switch {
	case errors.Is(err, youtube.ErrVideoPrivate):
		return fmt.Errorf("video is private: %w", err)
	case errors.Is(err, youtube.ErrLoginRequired):
		return fmt.Errorf("video requires login: %w", err)
	case errors.Is(err, youtube.ErrNotPlayableInEmbed):
		return fmt.Errorf("video not playable: %w", err)
	case errors.As(err, &status):
		return fmt.Errorf("playability %s: %w", status.Status, err)
	default:
		return err
	}
}
