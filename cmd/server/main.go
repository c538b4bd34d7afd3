package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"norelock.dev/listenify/gateway/internal/api"
	"norelock.dev/listenify/gateway/internal/config"
	"norelock.dev/listenify/gateway/internal/db/redis"
	"norelock.dev/listenify/gateway/internal/services/audio"
	"norelock.dev/listenify/gateway/internal/services/media"
	"norelock.dev/listenify/gateway/internal/services/system"
	"norelock.dev/listenify/gateway/pkg/mediaproxy"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	warnings := config.ValidateAndFixConfig(cfg)

	logger := config.ConfigureLogger(cfg)
	defer logger.Sync()

	for _, warning := range warnings {
		logger.Warn("Configuration adjusted", "warning", warning)
	}
	logger.Info("Starting audio gateway", "version", version, "environment", cfg.Environment, "backend", cfg.Audio.Backend)

	metrics := system.NewMetricsService(nil, logger)

	// Resolution engine
	session := audio.NewSession(backendFactory(cfg.Audio), logger, audio.WithInitTimeout(cfg.Audio.InitTimeout))
	resolver := audio.NewResolver(session, logger,
		audio.WithResolveTimeout(cfg.Audio.ResolveTimeout),
		audio.WithObserver(metrics),
	)

	// Audio cache, filled by transcoding the resolved stream
	store, err := audio.NewStore(cfg.Cache.Dir, audio.NewYtdlpDownloader(cfg.Cache.Extension, resolver), logger,
		audio.WithDownloadTimeout(cfg.Download.Timeout),
		audio.WithExtension(cfg.Cache.Extension),
		audio.WithStoreObserver(metrics),
	)
	if err != nil {
		logger.Fatal("Failed to create audio cache", err, "dir", cfg.Cache.Dir)
	}
	if err := store.EnsureDir(); err != nil {
		logger.Fatal("Failed to create audio cache directory", err, "dir", store.Dir())
	}

	// Search, optionally cached in Redis
	var (
		resultCache media.ResultCache
		redisPinger system.Pinger
	)
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis unavailable, search results will not be cached", "error", err)
		} else {
			defer redisClient.Close()
			resultCache = redisClient
			redisPinger = redisClient
		}
	}

	searchService := media.NewSearchService(
		media.NewYouTubeProvider(cfg.Search.YouTubeAPIKey, logger),
		resultCache,
		media.SearchOptions{
			DefaultLimit: cfg.Search.DefaultLimit,
			MaxLimit:     cfg.Search.MaxLimit,
			CacheTTL:     cfg.Search.CacheTTL,
		},
		logger,
	)

	healthService := system.NewHealthService(session, redisPinger, logger, system.HealthServiceConfig{
		Version:     version,
		Environment: cfg.Environment,
		CacheDir:    store.Dir(),
	})
	healthService.Start(ctx)

	router := api.NewRouter(cfg, api.Dependencies{
		Resolver: resolver,
		Store:    store,
		Streamer: mediaproxy.NewStreamer(),
		Search:   searchService,
		Health:   healthService,
		Metrics:  metrics,
	}, logger)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("Starting HTTP server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", err)
	}

	logger.Info("Server shutdown complete")
}

// backendFactory selects the platform client for the configured backend.
func backendFactory(cfg config.AudioConfig) audio.BackendFactory {
	if cfg.Backend == config.BackendYtdlp {
		return audio.NewYtdlpFactory()
	}
	return audio.NewYouTubeFactory(audio.YouTubeOptions{
		HTTPTimeout: cfg.HTTPTimeout,
		ProxyURL:    cfg.ProxyURL,
	})
}
