package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsMatchCreateDefaultConfig(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))
	cfg.Environment = "development"

	assert.Equal(t, CreateDefaultConfig(), &cfg)
	assert.NoError(t, validateConfig(&cfg))
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
audio:
  backend: ytdlp
  resolve_timeout: 5s
delivery:
  stream_mode: redirect
  download_mode: redirect
`), 0o644))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("APP_ENV", "test")
	t.Setenv("APP_CACHE_DIR", "/tmp/gateway-audio")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Environment)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, BackendYtdlp, cfg.Audio.Backend)
	assert.Equal(t, 5*time.Second, cfg.Audio.ResolveTimeout)
	assert.Equal(t, ModeRedirect, cfg.Delivery.StreamMode)
	assert.Equal(t, "/tmp/gateway-audio", cfg.Cache.Dir)
	assert.Equal(t, 20, cfg.Search.DefaultLimit)
}

func TestValidateConfigCollectsAllErrors(t *testing.T) {
	cfg := CreateDefaultConfig()
	cfg.Server.Port = 0
	cfg.Audio.Backend = "piped"
	cfg.Audio.ProxyURL = "not-a-proxy"
	cfg.Delivery.StreamMode = "file"
	cfg.Search.DefaultLimit = 80

	err := validateConfig(cfg)
	require.Error(t, err)

	merr, ok := err.(*multierror.Error)
	require.True(t, ok)
	assert.Len(t, merr.Errors, 5)
}

func TestValidateAndFixConfig(t *testing.T) {
	cfg := CreateDefaultConfig()
	cfg.Search.YouTubeAPIKey = "key"
	assert.Empty(t, ValidateAndFixConfig(cfg))

	cfg.Server.ReadTimeout = time.Millisecond
	cfg.Audio.ResolveTimeout = 0
	cfg.Cache.Extension = ".m4a"
	cfg.Logging.Level = "verbose"
	cfg.CORS.AllowedOrigins = nil

	warnings := ValidateAndFixConfig(cfg)
	assert.Len(t, warnings, 5)
	assert.Equal(t, time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 20*time.Second, cfg.Audio.ResolveTimeout)
	assert.Equal(t, "mp3", cfg.Cache.Extension)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
}

func TestValidateAndFixConfigPinsCacheExtension(t *testing.T) {
	for _, ext := range []string{"m4a", ".mp3", "", "MP3"} {
		cfg := CreateDefaultConfig()
		cfg.Search.YouTubeAPIKey = "key"
		cfg.Cache.Extension = ext

		warnings := ValidateAndFixConfig(cfg)
		assert.Len(t, warnings, 1, ext)
		assert.Equal(t, "mp3", cfg.Cache.Extension, ext)
	}
}
