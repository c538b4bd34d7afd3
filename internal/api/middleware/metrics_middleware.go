package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// RequestObserver records per-request HTTP metrics.
type RequestObserver interface {
	ObserveHTTPRequest(method, path string, status int, duration time.Duration)
	IncHTTPRequestsInProgress(method string)
	DecHTTPRequestsInProgress(method string)
}

// MetricsMiddleware records request counts and latencies labelled by route
// pattern, so path parameters do not inflate cardinality.
type MetricsMiddleware struct {
	observer RequestObserver
}

// NewMetricsMiddleware creates a new metrics middleware.
func NewMetricsMiddleware(observer RequestObserver) *MetricsMiddleware {
	return &MetricsMiddleware{observer: observer}
}

// Metrics is a middleware that records HTTP metrics.
func (m *MetricsMiddleware) Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.observer.IncHTTPRequestsInProgress(r.Method)
		defer m.observer.DecHTTPRequestsInProgress(r.Method)

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			m.observer.ObserveHTTPRequest(r.Method, routePattern(r), statusOf(ww), time.Since(start))
		}()

		next.ServeHTTP(ww, r)
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
