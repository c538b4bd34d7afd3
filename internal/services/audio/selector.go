package audio

import (
	"github.com/samber/lo"

	"norelock.dev/listenify/gateway/internal/models"
)

// AudioFormats returns the formats whose MIME type marks them as audio,
// preserving input order.
func AudioFormats(formats []models.StreamFormat) []models.StreamFormat {
	return lo.Filter(formats, func(f models.StreamFormat, _ int) bool {
		return f.IsAudio()
	})
}

// SelectBestAudio returns the index of the audio format with the highest
// bitrate. Equal bitrates keep input order, so the first maximal element wins.
// The second result is false when no format is audio.
func SelectBestAudio(formats []models.StreamFormat) (int, bool) {
	best := -1
	for i, f := range formats {
		if !f.IsAudio() {
			continue
		}
		// strict comparison keeps the earliest of equal bitrates
		if best == -1 || f.Bitrate > formats[best].Bitrate {
			best = i
		}
	}
	return best, best != -1
}
