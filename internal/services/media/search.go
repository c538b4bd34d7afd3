package media

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"norelock.dev/listenify/gateway/internal/models"
	"norelock.dev/listenify/gateway/internal/utils"
)

// ErrCacheMiss is returned by a ResultCache when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// ResultCache stores search responses. The Redis client satisfies it.
type ResultCache interface {
	GetObject(ctx context.Context, key string, dest any) error
	SetObject(ctx context.Context, key string, value any, expiration time.Duration) error
}

// SearchOptions configures a SearchService.
type SearchOptions struct {
	DefaultLimit int
	MaxLimit     int
	CacheTTL     time.Duration
}

// SearchService runs catalog searches through a provider and normalises the
// results.
type SearchService struct {
	provider Provider
	cache    ResultCache
	opts     SearchOptions
	logger   *utils.Logger
}

// NewSearchService creates a new search service. cache may be nil.
func NewSearchService(provider Provider, cache ResultCache, opts SearchOptions, logger *utils.Logger) *SearchService {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 20
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = 50
	}
	return &SearchService{
		provider: provider,
		cache:    cache,
		opts:     opts,
		logger:   logger.Named("search_service"),
	}
}

// Search returns normalised results for query. The query is trimmed before it
// reaches the cache or the provider. A zero limit selects the default; larger
// limits are clamped to the maximum.
func (s *SearchService) Search(ctx context.Context, query string, limit int) (*models.SearchResponse, error) {
	query = strings.TrimSpace(query)
	if limit <= 0 {
		limit = s.opts.DefaultLimit
	}
	limit = min(limit, s.opts.MaxLimit)

	s.logger.Debug("Searching", "query", query, "limit", limit, "provider", s.provider.GetType())

	key := cacheKey(s.provider.GetType(), query, limit)
	if resp, ok := s.cached(ctx, key); ok {
		return resp, nil
	}

	results, err := s.provider.Search(ctx, query, limit)
	if err != nil {
		s.logger.Error("Failed to search provider", err, "provider", s.provider.GetType(), "query", query)
		return nil, fmt.Errorf("search failed: %w", err)
	}

	if len(results) > limit {
		results = results[:limit]
	}
	for i := range results {
		results[i].Normalize()
	}

	resp := &models.SearchResponse{Items: results}
	if resp.Items == nil {
		resp.Items = []models.SearchResult{}
	}
	s.store(ctx, key, resp)
	return resp, nil
}

func (s *SearchService) cached(ctx context.Context, key string) (*models.SearchResponse, bool) {
	if s.cache == nil || s.opts.CacheTTL <= 0 {
		return nil, false
	}

	var resp models.SearchResponse
	if err := s.cache.GetObject(ctx, key, &resp); err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			s.logger.Warn("Search cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	if resp.Items == nil {
		resp.Items = []models.SearchResult{}
	}
	return &resp, true
}

func (s *SearchService) store(ctx context.Context, key string, resp *models.SearchResponse) {
	if s.cache == nil || s.opts.CacheTTL <= 0 {
		return
	}
	if err := s.cache.SetObject(ctx, key, resp, s.opts.CacheTTL); err != nil {
		s.logger.Warn("Search cache write failed", "key", key, "error", err)
	}
}

func cacheKey(provider, query string, limit int) string {
	return fmt.Sprintf("search:%s:%d:%s", provider, limit, query)
}
