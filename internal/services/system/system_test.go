package system

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"norelock.dev/listenify/gateway/internal/services/audio"
	"norelock.dev/listenify/gateway/internal/utils"
)

type readyProbe bool

func (p readyProbe) Ready() bool { return bool(p) }

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestMetricsServiceObservesAudio(t *testing.T) {
	m := NewMetricsService(prometheus.NewRegistry(), utils.NewNopLogger())

	m.ObserveResolution(audio.OutcomeOK, 10*time.Millisecond)
	m.ObserveResolution(audio.OutcomeOK, 20*time.Millisecond)
	m.ObserveResolution(audio.OutcomeNoAudioFormat, time.Millisecond)
	m.ObserveCacheLookup(true)
	m.ObserveCacheLookup(false)
	m.ObserveDownload(audio.ErrDownloadFailed, time.Second)
	m.ObserveSearch(nil)
	m.ObserveHTTPRequest(http.MethodGet, "/api/audio-url/{videoId}", http.StatusOK, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.resolutionsTotal.WithLabelValues(audio.OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resolutionsTotal.WithLabelValues(audio.OutcomeNoAudioFormat)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookupsTotal.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.downloadsTotal.WithLabelValues(audio.OutcomeDownloadFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/api/audio-url/{videoId}", "200")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gateway_audio_resolutions_total")
}

func TestMetricsServicesDoNotCollide(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetricsService(nil, utils.NewNopLogger())
		NewMetricsService(nil, utils.NewNopLogger())
	})
}

func TestHealthService(t *testing.T) {
	dir := t.TempDir()
	svc := NewHealthService(readyProbe(false), nil, utils.NewNopLogger(), HealthServiceConfig{
		Version:  "test",
		CacheDir: dir,
	})
	svc.CheckHealth(context.Background())

	health := svc.GetHealth(context.Background())
	assert.Equal(t, StatusUp, health.Status)
	require.Len(t, health.Components, 2)
	assert.Equal(t, "backend_session", health.Components[0].Name)
	assert.Equal(t, "cache_dir", health.Components[1].Name)
	assert.Equal(t, "test", health.Version)
}

func TestHealthServiceDegraded(t *testing.T) {
	svc := NewHealthService(
		readyProbe(true),
		pingFunc(func(context.Context) error { return errors.New("connection refused") }),
		utils.NewNopLogger(),
		HealthServiceConfig{CacheDir: filepath.Join(t.TempDir(), "missing")},
	)
	svc.CheckHealth(context.Background())

	health := svc.GetHealth(context.Background())
	assert.Equal(t, StatusDegraded, health.Status)
	require.Len(t, health.Components, 3)
	assert.Equal(t, "redis", health.Components[2].Name)
	assert.Equal(t, StatusDegraded, health.Components[2].Status)
}
