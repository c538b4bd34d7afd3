// Package utils provides utility functions used throughout the gateway.
package utils

import (
	"fmt"
	"regexp"
	"strings"
)

var youtubeRegex = regexp.MustCompile(`(?:youtube\.com\/(?:[^\/\n\s]+\/\S+\/|(?:v|e(?:mbed)?|shorts)\/|\S*?[?&]v=)|youtu\.be\/)([a-zA-Z0-9_-]{11})`)

// ExtractYouTubeID extracts the video ID from a YouTube URL
func ExtractYouTubeID(url string) string {
	matches := youtubeRegex.FindStringSubmatch(url)
	if len(matches) > 1 {
		return matches[1]
	}
	return ""
}

// NormalizeVideoRef accepts either a bare video id or a watch/share URL and
// returns the id. Input that is neither is returned trimmed so that the
// caller's own validation reports it.
func NormalizeVideoRef(ref string) string {
	ref = strings.TrimSpace(ref)
	if LooksLikeVideoID(ref) {
		return ref
	}
	if id := ExtractYouTubeID(ref); id != "" {
		return id
	}
	return ref
}

// TruncateString truncates a string to the specified length
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// FormatDuration formats seconds as MM:SS, or H:MM:SS past the hour.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%02d:%02d", minutes, secs)
}
