// Package system provides system-level services for monitoring.
package system

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"norelock.dev/listenify/gateway/internal/services/audio"
	"norelock.dev/listenify/gateway/internal/utils"
)

// MetricsService provides application metrics collection functionality.
type MetricsService struct {
	logger   *utils.Logger
	gatherer prometheus.Gatherer

	// HTTP metrics
	httpRequestsTotal      *prometheus.CounterVec
	httpRequestDuration    *prometheus.HistogramVec
	httpRequestsInProgress *prometheus.GaugeVec

	// Audio metrics
	resolutionsTotal   *prometheus.CounterVec
	resolutionDuration prometheus.Histogram
	cacheLookupsTotal  *prometheus.CounterVec
	downloadsTotal     *prometheus.CounterVec
	downloadDuration   prometheus.Histogram
	streamsTotal       *prometheus.CounterVec

	// Search metrics
	searchesTotal *prometheus.CounterVec
}

// NewMetricsService creates a new metrics service registering its collectors
// with reg. A nil reg uses a fresh registry with the Go and process collectors.
func NewMetricsService(reg *prometheus.Registry, logger *utils.Logger) *MetricsService {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	m := &MetricsService{
		logger:   logger.Named("metrics_service"),
		gatherer: reg,
	}

	factory := promauto.With(reg)
	m.initHTTPMetrics(factory)
	m.initAudioMetrics(factory)
	m.initSearchMetrics(factory)

	return m
}

// Handler returns an HTTP handler for exposing metrics.
func (m *MetricsService) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// initHTTPMetrics initializes HTTP-related metrics.
func (m *MetricsService) initHTTPMetrics(factory promauto.Factory) {
	m.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	m.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	m.httpRequestsInProgress = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gateway_http_requests_in_progress",
			Help: "Number of HTTP requests currently in progress",
		},
		[]string{"method"},
	)
}

// initAudioMetrics initializes resolution and cache metrics.
func (m *MetricsService) initAudioMetrics(factory promauto.Factory) {
	m.resolutionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_audio_resolutions_total",
			Help: "Total number of audio URL resolutions by outcome",
		},
		[]string{"outcome"},
	)

	m.resolutionDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gateway_audio_resolution_duration_seconds",
			Help:    "Duration of audio URL resolutions in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	m.cacheLookupsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_audio_cache_lookups_total",
			Help: "Total number of audio cache lookups by result",
		},
		[]string{"result"},
	)

	m.downloadsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_audio_downloads_total",
			Help: "Total number of audio downloads by outcome",
		},
		[]string{"outcome"},
	)

	m.downloadDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gateway_audio_download_duration_seconds",
			Help:    "Duration of audio downloads in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	m.streamsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_audio_streams_total",
			Help: "Total number of proxied audio streams by outcome",
		},
		[]string{"outcome"},
	)
}

// initSearchMetrics initializes search metrics.
func (m *MetricsService) initSearchMetrics(factory promauto.Factory) {
	m.searchesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_searches_total",
			Help: "Total number of catalog searches by outcome",
		},
		[]string{"outcome"},
	)
}

// ObserveHTTPRequest records metrics for an HTTP request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// IncHTTPRequestsInProgress increments the in-progress HTTP requests counter.
func (m *MetricsService) IncHTTPRequestsInProgress(method string) {
	m.httpRequestsInProgress.WithLabelValues(method).Inc()
}

// DecHTTPRequestsInProgress decrements the in-progress HTTP requests counter.
func (m *MetricsService) DecHTTPRequestsInProgress(method string) {
	m.httpRequestsInProgress.WithLabelValues(method).Dec()
}

// ObserveResolution records one audio URL resolution.
func (m *MetricsService) ObserveResolution(outcome string, elapsed time.Duration) {
	m.resolutionsTotal.WithLabelValues(outcome).Inc()
	m.resolutionDuration.Observe(elapsed.Seconds())
}

// ObserveCacheLookup records an audio cache hit or miss.
func (m *MetricsService) ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookupsTotal.WithLabelValues(result).Inc()
}

// ObserveDownload records one completed download attempt.
func (m *MetricsService) ObserveDownload(err error, elapsed time.Duration) {
	m.downloadsTotal.WithLabelValues(audio.Outcome(err)).Inc()
	m.downloadDuration.Observe(elapsed.Seconds())
}

// ObserveStream records the outcome of a proxied stream.
func (m *MetricsService) ObserveStream(outcome string) {
	m.streamsTotal.WithLabelValues(outcome).Inc()
}

// ObserveSearch records one catalog search.
func (m *MetricsService) ObserveSearch(err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.searchesTotal.WithLabelValues(outcome).Inc()
}

var _ audio.Observer = (*MetricsService)(nil)
