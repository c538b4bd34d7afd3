package system

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"norelock.dev/listenify/gateway/internal/utils"
)

// HealthStatus represents the health status of a component.
type HealthStatus string

const (
	// StatusUp indicates the component is healthy.
	StatusUp HealthStatus = "up"
	// StatusDown indicates the component is unhealthy.
	StatusDown HealthStatus = "down"
	// StatusDegraded indicates the component is functioning but with issues.
	StatusDegraded HealthStatus = "degraded"
)

// ComponentHealth represents the health of a system component.
type ComponentHealth struct {
	Name        string       `json:"name"`
	Status      HealthStatus `json:"status"`
	Description string       `json:"description,omitempty"`
	Latency     int64        `json:"latency_ms,omitempty"` // Response time in milliseconds
	LastChecked time.Time    `json:"last_checked"`
}

// SystemHealth represents the overall health of the system.
type SystemHealth struct {
	Status      HealthStatus      `json:"status"`
	Components  []ComponentHealth `json:"components"`
	Version     string            `json:"version"`
	Environment string            `json:"environment"`
	Uptime      int64             `json:"uptime_seconds"`
	StartTime   time.Time         `json:"start_time"`
	GoVersion   string            `json:"go_version"`
	GoRoutines  int               `json:"go_routines"`
	MemStats    MemoryStats       `json:"memory_stats"`
}

// MemoryStats represents memory usage statistics.
type MemoryStats struct {
	Alloc     uint64 `json:"alloc_bytes"`      // Bytes allocated and still in use
	Sys       uint64 `json:"sys_bytes"`        // Bytes obtained from system
	NumGC     uint32 `json:"num_gc"`           // Number of completed GC cycles
	HeapAlloc uint64 `json:"heap_alloc_bytes"` // Bytes allocated and still in use
}

// SessionProbe reports whether the backend session has been created.
type SessionProbe interface {
	Ready() bool
}

// Pinger is a dependency reachable over the network.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthService provides health checking functionality.
type HealthService struct {
	session  SessionProbe
	redis    Pinger
	cacheDir string

	logger         *utils.Logger
	startTime      time.Time
	version        string
	environment    string
	componentCache map[string]ComponentHealth
	cacheMutex     sync.RWMutex
	checkInterval  time.Duration
}

// HealthServiceConfig contains configuration for the health service.
type HealthServiceConfig struct {
	Version     string
	Environment string
	// CacheDir is the audio cache directory, checked for writability
	CacheDir string
}

// NewHealthService creates a new health service. redisClient may be nil
// when search caching is disabled.
func NewHealthService(
	session SessionProbe,
	redisClient Pinger,
	logger *utils.Logger,
	config HealthServiceConfig,
) *HealthService {
	return &HealthService{
		session:        session,
		redis:          redisClient,
		cacheDir:       config.CacheDir,
		logger:         logger.Named("health_service"),
		startTime:      time.Now(),
		version:        config.Version,
		environment:    config.Environment,
		componentCache: make(map[string]ComponentHealth),
		checkInterval:  30 * time.Second, // Check components every 30 seconds
	}
}

// Start begins periodic health checks.
func (s *HealthService) Start(ctx context.Context) {
	s.logger.Info("Starting health service")

	s.CheckHealth(ctx)

	go func() {
		ticker := time.NewTicker(s.checkInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("Stopping health service")
				return
			case <-ticker.C:
				s.CheckHealth(ctx)
			}
		}
	}()
}

// CheckHealth performs a health check on all system components.
func (s *HealthService) CheckHealth(ctx context.Context) {
	s.logger.Debug("Performing health check")

	s.checkSession()
	s.checkCacheDir()
	if s.redis != nil {
		s.checkRedis(ctx)
	}
}

// GetHealth returns the current health status of the system.
func (s *HealthService) GetHealth(ctx context.Context) SystemHealth {
	// session readiness changes on first use, so it is always fresh
	s.checkSession()

	s.cacheMutex.RLock()
	names := lo.Keys(s.componentCache)
	sort.Strings(names)
	components := make([]ComponentHealth, 0, len(names))
	for _, name := range names {
		components = append(components, s.componentCache[name])
	}
	s.cacheMutex.RUnlock()

	status := StatusUp
	for _, component := range components {
		if component.Status == StatusDown {
			status = StatusDown
			break
		} else if component.Status == StatusDegraded {
			status = StatusDegraded
		}
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return SystemHealth{
		Status:      status,
		Components:  components,
		Version:     s.version,
		Environment: s.environment,
		Uptime:      int64(time.Since(s.startTime).Seconds()),
		StartTime:   s.startTime,
		GoVersion:   runtime.Version(),
		GoRoutines:  runtime.NumGoroutine(),
		MemStats: MemoryStats{
			Alloc:     memStats.Alloc,
			Sys:       memStats.Sys,
			NumGC:     memStats.NumGC,
			HeapAlloc: memStats.HeapAlloc,
		},
	}
}

// checkSession reports the backend session. It is created lazily, so a
// missing session is not a failure.
func (s *HealthService) checkSession() {
	if s.session == nil {
		return
	}

	description := "Backend session is ready"
	if !s.session.Ready() {
		description = "Backend session not initialised yet"
	}
	s.updateComponentHealth("backend_session", StatusUp, description, 0)
}

// checkCacheDir checks that the audio cache directory exists and is writable.
func (s *HealthService) checkCacheDir() {
	if s.cacheDir == "" {
		return
	}

	status := StatusUp
	description := "Cache directory is writable"

	probe, err := os.CreateTemp(s.cacheDir, ".health-*")
	if err != nil {
		status = StatusDegraded
		description = fmt.Sprintf("Cache directory is not writable: %v", err)
		s.logger.Warn("Cache directory health check failed", "dir", s.cacheDir, "error", err)
	} else {
		probe.Close()
		os.Remove(probe.Name())
	}

	s.updateComponentHealth("cache_dir", status, description, 0)
}

// checkRedis checks the health of the Redis connection.
func (s *HealthService) checkRedis(ctx context.Context) {
	componentName := "redis"
	start := time.Now()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := s.redis.Ping(pingCtx)
	latency := time.Since(start).Milliseconds()

	// search works without its cache, so redis can only degrade the service
	status := StatusUp
	description := "Redis connection is healthy"

	if err != nil {
		status = StatusDegraded
		description = "Failed to connect to Redis: " + err.Error()
		s.logger.Error("Redis health check failed", err)
	}

	s.updateComponentHealth(componentName, status, description, latency)
}

// updateComponentHealth updates the health status of a component in the cache.
func (s *HealthService) updateComponentHealth(name string, status HealthStatus, description string, latency int64) {
	s.cacheMutex.Lock()
	defer s.cacheMutex.Unlock()

	s.componentCache[name] = ComponentHealth{
		Name:        name,
		Status:      status,
		Description: description,
		Latency:     latency,
		LastChecked: time.Now(),
	}
}
