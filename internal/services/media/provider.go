// Package media provides catalog search on top of the platform's data API.
package media

import (
	"context"

	"norelock.dev/listenify/gateway/internal/models"
)

// Provider defines the interface for catalog search providers.
type Provider interface {
	// Search searches the catalog using the given query. Results may have
	// empty optional fields; the caller normalises them.
	Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error)

	// GetType returns the provider type (e.g., "youtube").
	GetType() string
}
