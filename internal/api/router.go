// Package api provides the HTTP API for the gateway.
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"norelock.dev/listenify/gateway/internal/api/handlers"
	appMiddleware "norelock.dev/listenify/gateway/internal/api/middleware"
	"norelock.dev/listenify/gateway/internal/config"
	"norelock.dev/listenify/gateway/internal/services/system"
	"norelock.dev/listenify/gateway/internal/utils"
)

// Router is the main HTTP router for the API.
type Router struct {
	*chi.Mux
	logger *utils.Logger
}

// Dependencies are the services the router exposes. Store, Search, Health
// and Metrics are optional.
type Dependencies struct {
	Resolver handlers.AudioResolver
	Store    handlers.AudioStore
	Streamer handlers.AudioStreamer
	Search   handlers.Searcher
	Health   handlers.HealthReporter
	Metrics  *system.MetricsService
}

// NewRouter creates a new API router.
func NewRouter(cfg *config.Config, deps Dependencies, logger *utils.Logger) *Router {
	r := chi.NewRouter()
	apiLogger := logger.Named("api")

	recoveryMiddleware := appMiddleware.NewRecoveryMiddleware(apiLogger)
	loggerMiddleware := appMiddleware.NewLoggerMiddleware(apiLogger)

	corsConfig := appMiddleware.DefaultCORSConfig()
	if len(cfg.CORS.AllowedOrigins) > 0 {
		corsConfig.AllowedOrigins = cfg.CORS.AllowedOrigins
	}
	corsMiddleware := appMiddleware.NewCORSMiddleware(corsConfig, apiLogger)

	var metrics handlers.Metrics
	if deps.Metrics != nil {
		metrics = deps.Metrics
	}

	audioHandler := handlers.NewAudioHandler(deps.Resolver, deps.Store, deps.Streamer, cfg.Delivery, metrics, apiLogger)
	healthHandler := handlers.NewHealthHandler(deps.Health, apiLogger)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(loggerMiddleware.Logger)
	r.Use(recoveryMiddleware.Recovery)
	if deps.Metrics != nil {
		r.Use(appMiddleware.NewMetricsMiddleware(deps.Metrics).Metrics)
	}
	r.Use(corsMiddleware.CORS)

	r.Get("/health", healthHandler.Check)
	r.Get("/health/details", healthHandler.Details)
	if deps.Metrics != nil {
		r.Method("GET", "/metrics", deps.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		if deps.Search != nil {
			searchHandler := handlers.NewSearchHandler(deps.Search, cfg.Search.DefaultLimit, metrics, apiLogger)
			r.Get("/search", searchHandler.Search)
		}
		r.Get("/audio-url/{videoId}", audioHandler.AudioURL)
		r.Get("/stream/{videoId}", audioHandler.Stream)
		r.Get("/download/{videoId}", audioHandler.Download)
	})

	return &Router{
		Mux:    r,
		logger: apiLogger,
	}
}
