// Package config provides functionality for loading and accessing application configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"
)

// Backend names accepted by audio.backend.
const (
	BackendYouTube = "youtube"
	BackendYtdlp   = "ytdlp"
)

// Delivery modes.
const (
	ModeRedirect = "redirect"
	ModeProxy    = "proxy"
	ModeFile     = "file"
)

// Config represents the application configuration
type Config struct {
	// Environment is the current running environment (development, staging, production)
	Environment string `mapstructure:"environment"`

	Server   ServerConfig   `mapstructure:"server"`
	Audio    AudioConfig    `mapstructure:"audio"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Download DownloadConfig `mapstructure:"download"`
	Delivery DeliveryConfig `mapstructure:"delivery"`
	Search   SearchConfig   `mapstructure:"search"`
	Redis    RedisConfig    `mapstructure:"redis"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Port is the HTTP server port
	Port int `mapstructure:"port"`
	// Host is the HTTP server host
	Host string `mapstructure:"host"`
	// ReadTimeout is the maximum duration for reading the entire request
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout bounds writing a response. Zero disables it, which proxied
	// streams need.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// IdleTimeout is the maximum amount of time to wait for the next request
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// AudioConfig configures the resolution engine.
type AudioConfig struct {
	// Backend selects the platform client: youtube or ytdlp
	Backend string `mapstructure:"backend"`
	// ResolveTimeout bounds one resolution including session setup
	ResolveTimeout time.Duration `mapstructure:"resolve_timeout"`
	// InitTimeout bounds one backend session initialisation
	InitTimeout time.Duration `mapstructure:"init_timeout"`
	// HTTPTimeout bounds each request the platform client makes
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	// ProxyURL routes platform traffic through an HTTP proxy
	ProxyURL string `mapstructure:"proxy_url"`
}

// CacheConfig configures the audio file cache.
type CacheConfig struct {
	// Dir is the flat directory holding <id>.<ext> files
	Dir string `mapstructure:"dir"`
	// Extension is the canonical extension of cached files; only mp3 is served
	Extension string `mapstructure:"extension"`
}

// DownloadConfig configures the external downloader.
type DownloadConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// DeliveryConfig selects how audio reaches the client.
type DeliveryConfig struct {
	// StreamMode is redirect or proxy
	StreamMode string `mapstructure:"stream_mode"`
	// DownloadMode is redirect or file
	DownloadMode string `mapstructure:"download_mode"`
}

// SearchConfig configures catalog search.
type SearchConfig struct {
	YouTubeAPIKey string        `mapstructure:"youtube_api_key"`
	DefaultLimit  int           `mapstructure:"default_limit"`
	MaxLimit      int           `mapstructure:"max_limit"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
}

// RedisConfig configures the optional search cache.
type RedisConfig struct {
	// Enabled turns on search result caching
	Enabled bool `mapstructure:"enabled"`
	// Addresses is the list of Redis server addresses
	Addresses []string `mapstructure:"addresses"`
	// Username is the Redis username
	Username string `mapstructure:"username"`
	// Password is the Redis password
	Password string `mapstructure:"password"`
	// Database is the Redis database index
	Database int `mapstructure:"database"`
	// MaxRetries is the maximum number of retries for Redis operations
	MaxRetries int `mapstructure:"max_retries"`
	// PoolSize is the Redis connection pool size
	PoolSize int `mapstructure:"pool_size"`
	// MinIdleConns is the minimum number of idle connections
	MinIdleConns int `mapstructure:"min_idle_conns"`
	// DialTimeout is the timeout for establishing new connections
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	// ReadTimeout is the timeout for Redis reads
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the timeout for Redis writes
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// IdleTimeout is the timeout for idle connections
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

// CORSConfig configures cross-origin access.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	// Level is the logging level
	Level string `mapstructure:"level"`
	// Format is the logging format (json or console)
	Format string `mapstructure:"format"`
	// OutputPaths is the list of output paths for logs
	OutputPaths []string `mapstructure:"output_paths"`
	// ErrorOutputPaths is the list of output paths for error logs
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// LoadConfig loads the configuration from file and environment variables.
// It looks for a configuration file in the following locations:
// 1. Path specified in the CONFIG_FILE environment variable
// 2. ./configs directory
// 3. ../configs directory
// 4. /etc/audio-gateway directory
func LoadConfig() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("app")
	v.SetConfigType("yaml")

	configFile := os.Getenv("CONFIG_FILE")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("/etc/audio-gateway")
	}

	if err := v.ReadInConfig(); err != nil {
		// Without a file the defaults and environment still apply
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// An explicit file is used as-is
	if configFile == "" {
		v.SetConfigName(fmt.Sprintf("app.%s", env))
		if err := v.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to merge environment config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.Environment = env

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets the default values for the configuration
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "0s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Audio engine defaults
	v.SetDefault("audio.backend", BackendYouTube)
	v.SetDefault("audio.resolve_timeout", "20s")
	v.SetDefault("audio.init_timeout", "30s")
	v.SetDefault("audio.http_timeout", "15s")
	v.SetDefault("audio.proxy_url", "")

	v.SetDefault("cache.dir", "./data/audio")
	v.SetDefault("cache.extension", "mp3")
	v.SetDefault("download.timeout", "5m")

	v.SetDefault("delivery.stream_mode", ModeProxy)
	v.SetDefault("delivery.download_mode", ModeFile)

	// Search defaults
	v.SetDefault("search.youtube_api_key", "")
	v.SetDefault("search.default_limit", 20)
	v.SetDefault("search.max_limit", 50)
	v.SetDefault("search.cache_ttl", "10m")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addresses", []string{"localhost:6379"})
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")
	v.SetDefault("redis.idle_timeout", "300s")

	v.SetDefault("cors.allowed_origins", []string{"*"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output_paths", []string{"stdout"})
	v.SetDefault("logging.error_output_paths", []string{"stderr"})
}

// validateConfig reports every problem in the configuration at once
func validateConfig(config *Config) error {
	var result *multierror.Error

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		result = multierror.Append(result, errors.New("server port must be between 1 and 65535"))
	}

	switch config.Audio.Backend {
	case BackendYouTube, BackendYtdlp:
	default:
		result = multierror.Append(result, fmt.Errorf("audio backend must be %q or %q, got %q", BackendYouTube, BackendYtdlp, config.Audio.Backend))
	}

	if config.Audio.ProxyURL != "" {
		if u, err := url.Parse(config.Audio.ProxyURL); err != nil || u.Host == "" {
			result = multierror.Append(result, fmt.Errorf("audio proxy url is invalid: %q", config.Audio.ProxyURL))
		}
	}

	if config.Cache.Dir == "" {
		result = multierror.Append(result, errors.New("cache dir must be set"))
	}

	if config.Delivery.StreamMode != ModeRedirect && config.Delivery.StreamMode != ModeProxy {
		result = multierror.Append(result, fmt.Errorf("delivery stream_mode must be %q or %q", ModeRedirect, ModeProxy))
	}

	if config.Delivery.DownloadMode != ModeRedirect && config.Delivery.DownloadMode != ModeFile {
		result = multierror.Append(result, fmt.Errorf("delivery download_mode must be %q or %q", ModeRedirect, ModeFile))
	}

	if config.Search.MaxLimit < 1 || config.Search.MaxLimit > 50 {
		result = multierror.Append(result, errors.New("search max_limit must be between 1 and 50"))
	}

	if config.Search.DefaultLimit < 1 || config.Search.DefaultLimit > config.Search.MaxLimit {
		result = multierror.Append(result, errors.New("search default_limit must be between 1 and max_limit"))
	}

	if config.Redis.Enabled && len(config.Redis.Addresses) == 0 {
		result = multierror.Append(result, errors.New("at least one Redis address must be provided when redis is enabled"))
	}

	return result.ErrorOrNil()
}

// GetConfigString returns a formatted string with the current configuration
func GetConfigString(config *Config) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Environment: %s\n", config.Environment)
	fmt.Fprintf(&sb, "Server: %s\n", config.Server.Addr())
	fmt.Fprintf(&sb, "Audio Backend: %s (resolve timeout %v)\n", config.Audio.Backend, config.Audio.ResolveTimeout)
	fmt.Fprintf(&sb, "Cache Dir: %s (*.%s)\n", config.Cache.Dir, config.Cache.Extension)
	fmt.Fprintf(&sb, "Delivery: stream=%s download=%s\n", config.Delivery.StreamMode, config.Delivery.DownloadMode)
	fmt.Fprintf(&sb, "Search Cache: redis=%t ttl=%v\n", config.Redis.Enabled, config.Search.CacheTTL)

	return sb.String()
}
