// Package handlers contains HTTP handlers for the API.
package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"norelock.dev/listenify/gateway/internal/models"
	"norelock.dev/listenify/gateway/internal/services/system"
)

// AudioResolver turns a video id into a fetchable audio URL.
type AudioResolver interface {
	ResolveAudioURL(ctx context.Context, id models.VideoID) (*models.ResolvedAudio, error)
}

// AudioStore returns the local path of a video's audio, downloading it on a miss.
type AudioStore interface {
	GetOrDownload(ctx context.Context, id models.VideoID) (string, error)
}

// AudioStreamer pipes a remote audio URL to the client.
type AudioStreamer interface {
	Stream(w http.ResponseWriter, r *http.Request, url string) error
}

// Searcher searches the platform catalog.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) (*models.SearchResponse, error)
}

// HealthReporter reports component health.
type HealthReporter interface {
	GetHealth(ctx context.Context) system.SystemHealth
}

// Metrics receives handler-level observations.
type Metrics interface {
	ObserveStream(outcome string)
	ObserveSearch(err error)
}

type nopMetrics struct{}

func (nopMetrics) ObserveStream(string) {}
func (nopMetrics) ObserveSearch(error) {}

func metricsOrNop(m Metrics) Metrics {
	if m == nil {
		return nopMetrics{}
	}
	return m
}

// videoIDParam reads the videoId path parameter as sent. Validation is left
// to the engine.
func videoIDParam(r *http.Request) models.VideoID {
	return models.VideoID(chi.URLParam(r, "videoId"))
}
