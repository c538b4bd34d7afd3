// Package audio resolves platform videos into fetchable audio URLs and keeps a
// disk cache of downloaded audio.
package audio

import (
	"errors"
	"net/http"

	"norelock.dev/listenify/gateway/internal/utils"
)

// Resolution errors. Callers wrap them with context using fmt.Errorf("%w: ...")
// so errors.Is keeps working; utils.StatusCode maps them to HTTP statuses.
var (
	// ErrInvalidID is returned when the video id is not 11 characters long.
	ErrInvalidID = utils.BadRequestError("video id must be exactly 11 characters", nil)

	// ErrBackendUnavailable is returned when the backend session cannot be established.
	ErrBackendUnavailable = utils.NewAppError(nil, "backend session unavailable", http.StatusInternalServerError)

	// ErrMetadataFetchFailed is returned when the platform rejects the id or returns no streaming data.
	ErrMetadataFetchFailed = utils.NewAppError(nil, "failed to fetch streaming metadata", http.StatusInternalServerError)

	// ErrNoAudioFormat is returned when metadata has no audio-capable format.
	ErrNoAudioFormat = utils.NewAppError(nil, "no audio format available", http.StatusInternalServerError)

	// ErrUrlUnresolvable is returned when the selected format has neither a direct URL nor a working decipher.
	ErrUrlUnresolvable = utils.NewAppError(nil, "audio url could not be resolved", http.StatusInternalServerError)

	// ErrDownloadFailed is returned when a download produced no matching output file.
	ErrDownloadFailed = utils.NewAppError(nil, "audio download failed", http.StatusInternalServerError)
)

// Outcome labels used for logging and metrics.
const (
	OutcomeOK                 = "ok"
	OutcomeInvalidID          = "invalid_id"
	OutcomeBackendUnavailable = "backend_unavailable"
	OutcomeMetadataFailed     = "metadata_fetch_failed"
	OutcomeNoAudioFormat      = "no_audio_format"
	OutcomeUrlUnresolvable    = "url_unresolvable"
	OutcomeDownloadFailed     = "download_failed"
	OutcomeError              = "error"
)

// Outcome classifies err into one of the outcome labels.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrInvalidID):
		return OutcomeInvalidID
	case errors.Is(err, ErrBackendUnavailable):
		return OutcomeBackendUnavailable
	case errors.Is(err, ErrMetadataFetchFailed):
		return OutcomeMetadataFailed
	case errors.Is(err, ErrNoAudioFormat):
		return OutcomeNoAudioFormat
	case errors.Is(err, ErrUrlUnresolvable):
		return OutcomeUrlUnresolvable
	case errors.Is(err, ErrDownloadFailed):
		return OutcomeDownloadFailed
	default:
		return OutcomeError
	}
}
