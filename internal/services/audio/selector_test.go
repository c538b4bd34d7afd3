package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"norelock.dev/listenify/gateway/internal/models"
)

func TestSelectBestAudio(t *testing.T) {
	tests := []struct {
		name    string
		formats []models.StreamFormat
		want    int
		ok      bool
	}{
		{"nil", nil, -1, false},
		{"empty", []models.StreamFormat{}, -1, false},
		{
			"video only",
			[]models.StreamFormat{{MimeType: "video/mp4", Bitrate: 1000}, {MimeType: "video/webm", Bitrate: 900}},
			-1, false,
		},
		{
			"highest audio bitrate",
			[]models.StreamFormat{
				{MimeType: "video/mp4", Bitrate: 1000},
				{MimeType: "audio/webm", Bitrate: 160, URL: "U1"},
				{MimeType: "audio/mp4", Bitrate: 128, URL: "U2"},
			},
			1, true,
		},
		{
			"missing bitrate counts as zero",
			[]models.StreamFormat{{MimeType: "audio/mp4"}, {MimeType: "audio/webm", Bitrate: 1}},
			1, true,
		},
		{
			"ties keep first occurrence",
			[]models.StreamFormat{
				{MimeType: "audio/mp4", Bitrate: 128, URL: "first"},
				{MimeType: "audio/mp4", Bitrate: 128, URL: "second"},
			},
			0, true,
		},
		{
			"tie after lower",
			[]models.StreamFormat{
				{MimeType: "audio/mp4", Bitrate: 64},
				{MimeType: "audio/webm", Bitrate: 160},
				{MimeType: "video/mp4", Bitrate: 5000},
				{MimeType: "audio/mp4", Bitrate: 160},
			},
			1, true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SelectBestAudio(tt.formats)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectBestAudioIsMaximal(t *testing.T) {
	formats := []models.StreamFormat{
		{MimeType: "audio/webm; codecs=\"opus\"", Bitrate: 50},
		{MimeType: "video/mp4", Bitrate: 999999},
		{MimeType: "audio/webm; codecs=\"opus\"", Bitrate: 160},
		{MimeType: "audio/mp4; codecs=\"mp4a.40.2\"", Bitrate: 130},
		{MimeType: "audio/mp4; codecs=\"mp4a.40.5\"", Bitrate: 48},
	}

	idx, ok := SelectBestAudio(formats)
	assert.True(t, ok)
	assert.True(t, formats[idx].IsAudio())
	for _, f := range AudioFormats(formats) {
		assert.GreaterOrEqual(t, formats[idx].Bitrate, f.Bitrate)
	}
}

func TestAudioFormats(t *testing.T) {
	formats := []models.StreamFormat{
		{Itag: 1, MimeType: "video/mp4"},
		{Itag: 2, MimeType: "audio/mp4"},
		{Itag: 3, MimeType: "audio/webm"},
	}
	got := AudioFormats(formats)
	assert.Len(t, got, 2)
	assert.Equal(t, 2, got[0].Itag)
	assert.Equal(t, 3, got[1].Itag)
}
