package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"norelock.dev/listenify/gateway/internal/utils"
)

// LoggerMiddleware handles request logging for the API.
type LoggerMiddleware struct {
	logger *utils.Logger
}

// NewLoggerMiddleware creates a new logger middleware.
func NewLoggerMiddleware(logger *utils.Logger) *LoggerMiddleware {
	return &LoggerMiddleware{
		logger: logger.Named("http"),
	}
}

// Logger is a middleware that logs HTTP requests.
func (m *LoggerMiddleware) Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// the wrapper keeps http.Flusher so proxied streams still flush
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		// deferred so aborted streams are logged while their panic unwinds
		defer func() {
			m.logger.Info("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", statusOf(ww),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start).String(),
				"ip", utils.GetRequestIP(r),
				"requestId", chimw.GetReqID(r.Context()),
				"userAgent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// statusOf reports the written status, treating an untouched response as 200.
func statusOf(ww chimw.WrapResponseWriter) int {
	if ww.Status() == 0 {
		return http.StatusOK
	}
	return ww.Status()
}
