package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"norelock.dev/listenify/gateway/internal/config"
	"norelock.dev/listenify/gateway/internal/models"
	"norelock.dev/listenify/gateway/internal/services/system"
	"norelock.dev/listenify/gateway/internal/utils"
)

type stubResolver struct{}

func (stubResolver) ResolveAudioURL(ctx context.Context, id models.VideoID) (*models.ResolvedAudio, error) {
	return &models.ResolvedAudio{URL: "https://cdn.example/" + id.String(), VideoID: id}, nil
}

type stubSearcher struct{}

func (stubSearcher) Search(ctx context.Context, query string, limit int) (*models.SearchResponse, error) {
	return &models.SearchResponse{Items: []models.SearchResult{}}, nil
}

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	cfg := config.CreateDefaultConfig()
	cfg.Delivery.StreamMode = config.ModeRedirect
	cfg.Delivery.DownloadMode = config.ModeRedirect

	return NewRouter(cfg, Dependencies{
		Resolver: stubResolver{},
		Search:   stubSearcher{},
		Metrics:  system.NewMetricsService(prometheus.NewRegistry(), utils.NewNopLogger()),
	}, utils.NewNopLogger())
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestRouterRoutes(t *testing.T) {
	r := newTestRouter(t)

	rec := get(r, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Content-Type"))

	rec = get(r, "/api/audio-url/dQw4w9WgXcQ")
	require.Equal(t, http.StatusOK, rec.Code)
	var resolved models.ResolvedAudio
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resolved))
	assert.Equal(t, "https://cdn.example/dQw4w9WgXcQ", resolved.URL)

	rec = get(r, "/api/stream/dQw4w9WgXcQ")
	assert.Equal(t, http.StatusFound, rec.Code)

	rec = get(r, "/api/download/dQw4w9WgXcQ")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/api/stream/dQw4w9WgXcQ", rec.Header().Get("Location"))

	rec = get(r, "/api/search?q=test")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[]}`, rec.Body.String())

	rec = get(r, "/health/details")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouterExposesMetrics(t *testing.T) {
	r := newTestRouter(t)
	get(r, "/api/stream/dQw4w9WgXcQ")

	rec := get(r, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `gateway_http_requests_total{method="GET",path="/api/stream/{videoId}",status="302"} 1`)
	assert.Contains(t, rec.Body.String(), `gateway_audio_streams_total{outcome="redirected"} 1`)
}
