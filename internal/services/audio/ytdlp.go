package audio

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lrstanley/go-ytdlp"
	"github.com/samber/lo"

	"norelock.dev/listenify/gateway/internal/models"
)

// Downloader fetches a video's audio into dir. The output file must be named
// with the video id followed by a dot and an extension.
type Downloader interface {
	Download(ctx context.Context, id models.VideoID, dir string) error
}

// SourceResolver turns a video id into the URL handed to the downloader.
type SourceResolver interface {
	ResolveAudioURL(ctx context.Context, id models.VideoID) (*models.ResolvedAudio, error)
}

// YtdlpDownloader transcodes audio with the yt-dlp executable.
type YtdlpDownloader struct {
	// Format is the audio container yt-dlp converts to, e.g. "mp3".
	Format string
	// Source, when set, resolves the stream yt-dlp fetches, so the configured
	// backend picks the format. Otherwise yt-dlp resolves the watch page itself.
	Source SourceResolver
}

// NewYtdlpDownloader creates a downloader converting to the given format.
func NewYtdlpDownloader(format string, source SourceResolver) *YtdlpDownloader {
	if format == "" {
		format = DefaultAudioExt
	}
	return &YtdlpDownloader{Format: format, Source: source}
}

func (d *YtdlpDownloader) Download(ctx context.Context, id models.VideoID, dir string) error {
	src, err := d.sourceURL(ctx, id)
	if err != nil {
		return err
	}

	dl := ytdlp.New().
		NoPlaylist().
		NoProgress().
		ExtractAudio().
		AudioFormat(d.Format).
		Output(filepath.Join(dir, id.String()+".%(ext)s"))

	res, err := dl.Run(ctx, src)
	if err != nil {
		if res != nil && res.Stderr != "" {
			return fmt.Errorf("yt-dlp: %w: %s", err, strings.TrimSpace(res.Stderr))
		}
		return fmt.Errorf("yt-dlp: %w", err)
	}
	return nil
}

func (d *YtdlpDownloader) sourceURL(ctx context.Context, id models.VideoID) (string, error) {
	if d.Source == nil {
		return id.WatchURL(), nil
	}
	resolved, err := d.Source.ResolveAudioURL(ctx, id)
	if err != nil {
		return "", fmt.Errorf("resolve source: %w", err)
	}
	return resolved.URL, nil
}

type ytdlpFormat struct {
	FormatID   string  `json:"format_id"`
	ACodec     string  `json:"acodec"`
	VCodec     string  `json:"vcodec"`
	Ext        string  `json:"ext"`
	URL        string  `json:"url"`
	ABR        float64 `json:"abr"`
	TBR        float64 `json:"tbr"`
	Filesize   int64   `json:"filesize"`
	AudioChans int     `json:"audio_channels"`
}

type ytdlpInfo struct {
	ID      string        `json:"id"`
	Formats []ytdlpFormat `json:"formats"`
}

// ytdlpBackend lists formats through `yt-dlp -J`. The URLs it returns are
// already signed, so it never needs to decipher.
type ytdlpBackend struct{}

// NewYtdlpFactory returns a factory for the yt-dlp metadata backend. It
// checks that the executable can be located.
func NewYtdlpFactory() BackendFactory {
	return func(ctx context.Context) (Backend, error) {
		if _, err := ytdlp.New().Version(ctx); err != nil {
			return nil, fmt.Errorf("yt-dlp not usable: %w", err)
		}
		return ytdlpBackend{}, nil
	}
}

func (ytdlpBackend) FetchStreamingMetadata(ctx context.Context, id models.VideoID) ([]models.StreamFormat, error) {
	res, err := ytdlp.New().
		NoPlaylist().
		NoWarnings().
		SkipDownload().
		DumpSingleJSON().
		Run(ctx, id.WatchURL())
	if err != nil {
		return nil, fmt.Errorf("yt-dlp metadata: %w", err)
	}
	return parseYtdlpFormats([]byte(res.Stdout))
}

func (ytdlpBackend) Decipher(context.Context, models.VideoID, models.StreamFormat) (string, error) {
	return "", fmt.Errorf("yt-dlp formats carry no cipher")
}

func parseYtdlpFormats(data []byte) ([]models.StreamFormat, error) {
	var info ytdlpInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("yt-dlp metadata parse: %w", err)
	}

	usable := lo.Filter(info.Formats, func(f ytdlpFormat, _ int) bool {
		return f.URL != ""
	})
	return lo.Map(usable, func(f ytdlpFormat, _ int) models.StreamFormat {
		return f.toStreamFormat()
	}), nil
}

func (f ytdlpFormat) toStreamFormat() models.StreamFormat {
	kind := "video"
	if (f.VCodec == "none" || f.VCodec == "") && f.ACodec != "none" && f.ACodec != "" {
		kind = "audio"
	}
	mime := fmt.Sprintf("%s/%s", kind, f.Ext)
	if f.ACodec != "" && f.ACodec != "none" {
		mime += fmt.Sprintf("; codecs=%q", f.ACodec)
	}

	kbps := f.ABR
	if kbps == 0 {
		kbps = f.TBR
	}

	// non-numeric ids (dash manifests, storyboards) have no itag
	itag, _ := strconv.Atoi(f.FormatID)

	return models.StreamFormat{
		Itag:          itag,
		MimeType:      mime,
		Bitrate:       int(kbps * 1000),
		URL:           f.URL,
		ContentLength: f.Filesize,
		AudioChannels: f.AudioChans,
	}
}
