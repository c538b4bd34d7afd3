// Package config provides functionality for loading and accessing application configuration.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"norelock.dev/listenify/gateway/internal/utils"
)

// ValidateAndFixConfig checks the configuration for values that load but are
// unlikely to work, fixing those that have a safe replacement. It returns a
// warning for every finding.
func ValidateAndFixConfig(config *Config) []string {
	var warnings []string

	minTimeout := 1 * time.Second
	maxTimeout := 5 * time.Minute

	if config.Server.ReadTimeout < minTimeout {
		warnings = append(warnings, fmt.Sprintf("Server read timeout is too short (%v), setting to %v", config.Server.ReadTimeout, minTimeout))
		config.Server.ReadTimeout = minTimeout
	} else if config.Server.ReadTimeout > maxTimeout {
		warnings = append(warnings, fmt.Sprintf("Server read timeout is too long (%v), setting to %v", config.Server.ReadTimeout, maxTimeout))
		config.Server.ReadTimeout = maxTimeout
	}

	// zero disables the write timeout; small positive values cut streams short
	if config.Server.WriteTimeout > 0 && config.Server.WriteTimeout < minTimeout {
		warnings = append(warnings, fmt.Sprintf("Server write timeout is too short (%v), setting to %v", config.Server.WriteTimeout, minTimeout))
		config.Server.WriteTimeout = minTimeout
	}
	if config.Server.WriteTimeout > 0 && config.Delivery.StreamMode == ModeProxy {
		warnings = append(warnings, fmt.Sprintf("Server write timeout (%v) will cut proxied streams longer than it", config.Server.WriteTimeout))
	}

	if config.Server.IdleTimeout < minTimeout {
		warnings = append(warnings, fmt.Sprintf("Server idle timeout is too short (%v), setting to %v", config.Server.IdleTimeout, minTimeout))
		config.Server.IdleTimeout = minTimeout
	}

	if config.Server.ShutdownTimeout <= 0 {
		warnings = append(warnings, "Server shutdown timeout is not set, setting to 10s")
		config.Server.ShutdownTimeout = 10 * time.Second
	}

	if config.Audio.ResolveTimeout <= 0 {
		warnings = append(warnings, "Audio resolve timeout is not set, setting to 20s")
		config.Audio.ResolveTimeout = 20 * time.Second
	} else if config.Audio.ResolveTimeout > maxTimeout {
		warnings = append(warnings, fmt.Sprintf("Audio resolve timeout is too long (%v), setting to %v", config.Audio.ResolveTimeout, maxTimeout))
		config.Audio.ResolveTimeout = maxTimeout
	}

	if config.Audio.InitTimeout <= 0 {
		warnings = append(warnings, "Audio init timeout is not set, setting to 30s")
		config.Audio.InitTimeout = 30 * time.Second
	}

	if config.Download.Timeout <= 0 {
		warnings = append(warnings, "Download timeout is not set, setting to 5m")
		config.Download.Timeout = 5 * time.Minute
	}

	// downloads are always served as <id>.mp3
	if config.Cache.Extension != "mp3" {
		warnings = append(warnings, fmt.Sprintf("Cache extension %q is not supported, setting to %q", config.Cache.Extension, "mp3"))
		config.Cache.Extension = "mp3"
	}

	if info, err := os.Stat(config.Cache.Dir); err == nil && !info.IsDir() {
		warnings = append(warnings, fmt.Sprintf("Cache dir is not a directory: %s", config.Cache.Dir))
	}

	if config.Search.YouTubeAPIKey == "" {
		warnings = append(warnings, "YouTube API key is not set, search will fail")
	}

	if config.Redis.Enabled {
		for _, addr := range config.Redis.Addresses {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("Invalid Redis address: %s", addr))
				continue
			}

			if host == "" {
				warnings = append(warnings, fmt.Sprintf("Redis address has empty host: %s", addr))
			}

			if port == "" {
				warnings = append(warnings, fmt.Sprintf("Redis address has empty port: %s", addr))
			}
		}
		if len(config.Redis.Addresses) > 1 {
			warnings = append(warnings, fmt.Sprintf("Only the first Redis address is used: %s", config.Redis.Addresses[0]))
		}
	}

	if len(config.CORS.AllowedOrigins) == 0 {
		warnings = append(warnings, "No CORS origins are allowed, adding '*' as default")
		config.CORS.AllowedOrigins = []string{"*"}
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}

	if !validLevels[strings.ToLower(config.Logging.Level)] {
		warnings = append(warnings, fmt.Sprintf("Invalid logging level: %s, setting to 'info'", config.Logging.Level))
		config.Logging.Level = "info"
	}

	validFormats := map[string]bool{
		"json":    true,
		"console": true,
	}

	if !validFormats[strings.ToLower(config.Logging.Format)] {
		warnings = append(warnings, fmt.Sprintf("Invalid logging format: %s, setting to 'json'", config.Logging.Format))
		config.Logging.Format = "json"
	}

	for _, path := range config.Logging.OutputPaths {
		if path == "stdout" || path == "stderr" {
			continue
		}
		dir := filepath.Dir(path)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			warnings = append(warnings, fmt.Sprintf("Log output directory does not exist: %s", dir))
		}
	}

	return warnings
}

// ConfigureLogger builds the application logger from the logging section.
func ConfigureLogger(config *Config) *utils.Logger {
	return utils.NewLogger(utils.LoggerOptions{
		Development:      config.Environment == "development",
		Format:           config.Logging.Format,
		Level:            utils.ParseLevel(config.Logging.Level),
		OutputPaths:      config.Logging.OutputPaths,
		ErrorOutputPaths: config.Logging.ErrorOutputPaths,
	})
}

// CreateDefaultConfig creates the default configuration
func CreateDefaultConfig() *Config {
	config := &Config{}

	config.Environment = "development"

	config.Server.Port = 8080
	config.Server.Host = "0.0.0.0"
	config.Server.ReadTimeout = 15 * time.Second
	config.Server.IdleTimeout = 60 * time.Second
	config.Server.ShutdownTimeout = 10 * time.Second

	config.Audio.Backend = BackendYouTube
	config.Audio.ResolveTimeout = 20 * time.Second
	config.Audio.InitTimeout = 30 * time.Second
	config.Audio.HTTPTimeout = 15 * time.Second

	config.Cache.Dir = "./data/audio"
	config.Cache.Extension = "mp3"
	config.Download.Timeout = 5 * time.Minute

	config.Delivery.StreamMode = ModeProxy
	config.Delivery.DownloadMode = ModeFile

	config.Search.DefaultLimit = 20
	config.Search.MaxLimit = 50
	config.Search.CacheTTL = 10 * time.Minute

	config.Redis.Addresses = []string{"localhost:6379"}
	config.Redis.MaxRetries = 3
	config.Redis.PoolSize = 20
	config.Redis.MinIdleConns = 2
	config.Redis.DialTimeout = 5 * time.Second
	config.Redis.ReadTimeout = 3 * time.Second
	config.Redis.WriteTimeout = 3 * time.Second
	config.Redis.IdleTimeout = 300 * time.Second

	config.CORS.AllowedOrigins = []string{"*"}

	config.Logging.Level = "info"
	config.Logging.Format = "json"
	config.Logging.OutputPaths = []string{"stdout"}
	config.Logging.ErrorOutputPaths = []string{"stderr"}

	return config
}
