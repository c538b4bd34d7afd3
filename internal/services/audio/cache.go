package audio

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"norelock.dev/listenify/gateway/internal/models"
	"norelock.dev/listenify/gateway/internal/utils"
)

// DefaultAudioExt is the extension of cached audio files.
const DefaultAudioExt = "mp3"

const defaultDownloadTimeout = 5 * time.Minute

// partial download suffixes left behind by yt-dlp
var partialSuffixes = []string{".part", ".ytdl", ".temp"}

// Store is a directory of downloaded audio keyed by video id. Concurrent
// misses for the same id share one download.
type Store struct {
	dir        string
	ext        string
	timeout    time.Duration
	downloader Downloader
	observer   Observer
	logger     *utils.Logger

	group singleflight.Group
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithDownloadTimeout bounds a single download.
func WithDownloadTimeout(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithExtension sets the extension of cached files.
func WithExtension(ext string) StoreOption {
	return func(s *Store) {
		if ext = strings.TrimPrefix(ext, "."); ext != "" {
			s.ext = ext
		}
	}
}

// WithStoreObserver sets the event observer.
func WithStoreObserver(o Observer) StoreOption {
	return func(s *Store) {
		if o != nil {
			s.observer = o
		}
	}
}

// NewStore creates a store rooted at dir. The directory is made absolute but
// not created; call EnsureDir for that.
func NewStore(dir string, downloader Downloader, logger *utils.Logger, opts ...StoreOption) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve cache dir %q: %w", dir, err)
	}

	s := &Store{
		dir:        abs,
		ext:        DefaultAudioExt,
		timeout:    defaultDownloadTimeout,
		downloader: downloader,
		observer:   NopObserver,
		logger:     logger.Named("audio_cache"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the absolute cache directory.
func (s *Store) Dir() string {
	return s.dir
}

// EnsureDir creates the cache directory if it does not exist.
func (s *Store) EnsureDir() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	return nil
}

// PathFor returns the canonical path of the cached file for id.
func (s *Store) PathFor(id models.VideoID) string {
	return filepath.Join(s.dir, id.String()+"."+s.ext)
}

// Lookup returns the cached entry for id, or nil when it is not cached.
func (s *Store) Lookup(id models.VideoID) (*models.CacheEntry, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidID, len(id))
	}

	path := s.PathFor(id)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, nil
	}
	return &models.CacheEntry{
		VideoID: id,
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// GetOrDownload returns the path of the cached file for id, downloading it
// first when missing.
func (s *Store) GetOrDownload(ctx context.Context, id models.VideoID) (string, error) {
	entry, err := s.Lookup(id)
	if err != nil {
		return "", err
	}
	s.observer.ObserveCacheLookup(entry != nil)
	if entry != nil {
		return entry.Path, nil
	}

	ch := s.group.DoChan(id.String(), func() (any, error) {
		return s.download(ctx, id)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *Store) download(ctx context.Context, id models.VideoID) (string, error) {
	path := s.PathFor(id)
	// another flight may have finished between Lookup and now
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	if err := s.EnsureDir(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}

	dlCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	start := time.Now()
	s.logger.Info("Downloading audio", "id", id, "dir", s.dir)

	err := s.fetch(dlCtx, id, path)
	elapsed := time.Since(start)
	s.observer.ObserveDownload(err, elapsed)

	if err != nil {
		s.logger.Error("Audio download failed", err, "id", id, "elapsed", elapsed)
		return "", err
	}
	s.logger.Info("Audio downloaded", "id", id, "path", path, "elapsed", elapsed)
	return path, nil
}

func (s *Store) fetch(ctx context.Context, id models.VideoID, path string) error {
	if err := s.downloader.Download(ctx, id, s.dir); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDownloadFailed, id, err)
	}

	produced, err := s.findOutput(id)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDownloadFailed, id, err)
	}
	if produced == "" {
		return fmt.Errorf("%w: %s: no output file", ErrDownloadFailed, id)
	}

	if produced != path {
		if err := os.Rename(produced, path); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrDownloadFailed, id, err)
		}
	}
	return nil
}

// findOutput returns the file the downloader produced for id, preferring the
// canonical name.
func (s *Store) findOutput(id models.VideoID) (string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return "", err
	}

	prefix := id.String() + "."
	canonical := filepath.Base(s.PathFor(id))
	found := ""
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || isPartial(name) {
			continue
		}
		if name == canonical {
			return filepath.Join(s.dir, name), nil
		}
		if found == "" {
			found = filepath.Join(s.dir, name)
		}
	}
	return found, nil
}

func isPartial(name string) bool {
	for _, suffix := range partialSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// List returns every cached entry, sorted by video id.
func (s *Store) List() ([]models.CacheEntry, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	suffix := "." + s.ext
	var out []models.CacheEntry
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, suffix) {
			continue
		}
		id := models.VideoID(strings.TrimSuffix(name, suffix))
		if !id.Valid() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, models.CacheEntry{
			VideoID: id,
			Path:    filepath.Join(s.dir, name),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VideoID < out[j].VideoID })
	return out, nil
}
