// Package models contains the data structures used throughout the gateway.
package models

import (
	"fmt"
	"strings"
	"time"
)

// VideoIDLength is the exact length of a platform video identifier.
const VideoIDLength = 11

// VideoID is an opaque platform video identifier.
type VideoID string

// Valid reports whether the id has the required shape. Only the length is
// checked; the platform decides whether the id exists.
func (id VideoID) Valid() bool {
	return len(id) == VideoIDLength
}

// String returns the id as a plain string.
func (id VideoID) String() string {
	return string(id)
}

// WatchURL returns the canonical watch page URL for the video.
func (id VideoID) WatchURL() string {
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s", id)
}

// DefaultThumbnail returns the platform's default thumbnail URL for the video.
func (id VideoID) DefaultThumbnail() string {
	return fmt.Sprintf("https://i.ytimg.com/vi/%s/hqdefault.jpg", id)
}

// StreamFormat describes one available encoding of a video's media.
type StreamFormat struct {
	// Itag is the platform's format identifier.
	Itag int `json:"itag"`

	// MimeType is the full MIME type including codecs, e.g. `audio/webm; codecs="opus"`.
	MimeType string `json:"mimeType"`

	// Bitrate in bits per second. Zero when the platform did not report one.
	Bitrate int `json:"bitrate"`

	// URL is the direct media URL. Empty when the platform obfuscated it.
	URL string `json:"url,omitempty"`

	// Cipher is the obfuscated signature descriptor. Non-empty means the
	// format must be deciphered by the session that fetched it.
	Cipher string `json:"-"`

	// ContentLength in bytes, zero when unknown.
	ContentLength int64 `json:"contentLength,omitempty"`

	// AudioChannels is zero for video-only formats.
	AudioChannels int `json:"audioChannels,omitempty"`
}

// IsAudio reports whether the MIME type marks the format as audio.
func (f StreamFormat) IsAudio() bool {
	return strings.Contains(f.MimeType, "audio")
}

// NeedsDecipher reports whether the format carries a decipher capability.
func (f StreamFormat) NeedsDecipher() bool {
	return f.Cipher != ""
}

// Container returns the bare MIME type without parameters, e.g. "audio/webm".
func (f StreamFormat) Container() string {
	return strings.TrimSpace(strings.SplitN(f.MimeType, ";", 2)[0])
}

// ResolvedAudio is a fetchable audio URL bound to the video it came from.
type ResolvedAudio struct {
	URL      string  `json:"url"`
	VideoID  VideoID `json:"videoId"`
	MimeType string  `json:"mimeType,omitempty"`
	Bitrate  int     `json:"bitrate,omitempty"`
}

// CacheEntry is a downloaded audio artifact stored on disk.
type CacheEntry struct {
	VideoID VideoID   `json:"videoId"`
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}
