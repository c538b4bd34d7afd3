package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"norelock.dev/listenify/gateway/internal/config"
	"norelock.dev/listenify/gateway/internal/services/audio"
	"norelock.dev/listenify/gateway/internal/utils"
	"norelock.dev/listenify/gateway/pkg/mediaproxy"
)

// Stream outcome labels.
const (
	StreamRedirected  = "redirected"
	StreamCompleted   = "completed"
	StreamFailed      = "failed"
	StreamInterrupted = "interrupted"
)

// AudioHandler serves audio URLs, streams and downloads.
type AudioHandler struct {
	resolver AudioResolver
	store    AudioStore
	streamer AudioStreamer
	delivery config.DeliveryConfig
	metrics  Metrics
	logger   *utils.Logger
}

// NewAudioHandler creates a new audio handler. store may be nil when the
// download mode is redirect.
func NewAudioHandler(
	resolver AudioResolver,
	store AudioStore,
	streamer AudioStreamer,
	delivery config.DeliveryConfig,
	metrics Metrics,
	logger *utils.Logger,
) *AudioHandler {
	return &AudioHandler{
		resolver: resolver,
		store:    store,
		streamer: streamer,
		delivery: delivery,
		metrics:  metricsOrNop(metrics),
		logger:   logger.Named("audio_handler"),
	}
}

// AudioURL handles requests for the resolved audio URL of a video.
func (h *AudioHandler) AudioURL(w http.ResponseWriter, r *http.Request) {
	id := videoIDParam(r)

	resolved, err := h.resolver.ResolveAudioURL(r.Context(), id)
	if err != nil {
		utils.RespondWithError(w, utils.StatusCode(err), err.Error())
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, resolved)
}

// Stream handles requests to play a video's audio, either by redirecting to
// the resolved URL or by proxying its bytes.
func (h *AudioHandler) Stream(w http.ResponseWriter, r *http.Request) {
	id := videoIDParam(r)

	resolved, err := h.resolver.ResolveAudioURL(r.Context(), id)
	if err != nil {
		utils.RespondWithText(w, utils.StatusCode(err), err.Error())
		return
	}

	if h.delivery.StreamMode != config.ModeProxy {
		h.metrics.ObserveStream(StreamRedirected)
		http.Redirect(w, r, resolved.URL, http.StatusFound)
		return
	}

	err = h.streamer.Stream(w, r, resolved.URL)
	switch {
	case err == nil:
		h.metrics.ObserveStream(StreamCompleted)
	case errors.Is(err, mediaproxy.ErrStreamInterrupted):
		h.metrics.ObserveStream(StreamInterrupted)
		h.logger.Warn("Stream interrupted", "videoId", id, "error", err)
		// headers are already out; only the connection can signal failure
		panic(http.ErrAbortHandler)
	default:
		h.metrics.ObserveStream(StreamFailed)
		h.logger.Error("Failed to open stream", err, "videoId", id)
		utils.RespondWithText(w, http.StatusInternalServerError, err.Error())
	}
}

// Download handles requests to download a video's audio as a file.
func (h *AudioHandler) Download(w http.ResponseWriter, r *http.Request) {
	id := videoIDParam(r)
	if !id.Valid() {
		utils.RespondWithText(w, http.StatusBadRequest, audio.ErrInvalidID.Error())
		return
	}

	if h.delivery.DownloadMode != config.ModeFile || h.store == nil {
		http.Redirect(w, r, "/api/stream/"+id.String(), http.StatusFound)
		return
	}

	path, err := h.store.GetOrDownload(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to download audio", err, "videoId", id)
		utils.RespondWithText(w, utils.StatusCode(err), err.Error())
		return
	}

	f, err := os.Open(path)
	if err != nil {
		h.logger.Error("Failed to open cached audio", err, "videoId", id, "path", path)
		utils.RespondWithText(w, http.StatusInternalServerError, "cached audio unavailable")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		utils.RespondWithText(w, http.StatusInternalServerError, "cached audio unavailable")
		return
	}

	name := id.String() + "." + audio.DefaultAudioExt
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(w, r, name, info.ModTime(), f)
}
