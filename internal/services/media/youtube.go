package media

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"norelock.dev/listenify/gateway/internal/models"
	"norelock.dev/listenify/gateway/internal/utils"
)

// YouTubeProvider implements the Provider interface on the YouTube Data API.
type YouTubeProvider struct {
	apiKey string
	opts   []option.ClientOption
	logger *utils.Logger
}

// NewYouTubeProvider creates a new YouTube provider. Extra client options are
// passed to the API client, e.g. option.WithEndpoint in tests.
func NewYouTubeProvider(apiKey string, logger *utils.Logger, opts ...option.ClientOption) *YouTubeProvider {
	return &YouTubeProvider{
		apiKey: apiKey,
		opts:   opts,
		logger: logger.Named("youtube_provider"),
	}
}

// Search searches for videos on YouTube. Durations are fetched with a single
// batched videos.list call.
func (p *YouTubeProvider) Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	p.logger.Debug("Searching YouTube", "query", query, "limit", limit)

	opts := append([]option.ClientOption{option.WithAPIKey(p.apiKey)}, p.opts...)
	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		p.logger.Error("Failed to create YouTube service", err)
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	response, err := service.Search.List([]string{"id", "snippet"}).
		Q(query).
		Type("video").
		MaxResults(int64(limit)).
		Context(ctx).
		Do()
	if err != nil {
		p.logger.Error("Failed to search YouTube", err, "query", query)
		return nil, fmt.Errorf("failed to search YouTube: %w", err)
	}

	items := lo.Filter(response.Items, func(item *youtube.SearchResult, _ int) bool {
		return item.Id != nil && item.Id.Kind == "youtube#video" && item.Id.VideoId != ""
	})
	ids := lo.Map(items, func(item *youtube.SearchResult, _ int) string {
		return item.Id.VideoId
	})

	durations := p.fetchDurations(ctx, service, ids)

	results := make([]models.SearchResult, 0, len(items))
	for _, item := range items {
		result := models.SearchResult{
			ID:       item.Id.VideoId,
			Duration: durations[item.Id.VideoId],
		}
		if item.Snippet != nil {
			result.Title = item.Snippet.Title
			result.Artist = item.Snippet.ChannelTitle
			result.AuthorID = item.Snippet.ChannelId
			result.Thumbnail = getBestThumbnail(item.Snippet.Thumbnails)
		}
		results = append(results, result)
	}

	return results, nil
}

// fetchDurations returns video durations in seconds keyed by id. Failures are
// logged and leave durations at zero.
func (p *YouTubeProvider) fetchDurations(ctx context.Context, service *youtube.Service, ids []string) map[string]int {
	durations := make(map[string]int, len(ids))
	if len(ids) == 0 {
		return durations
	}

	response, err := service.Videos.List([]string{"contentDetails"}).
		Id(ids...).
		Context(ctx).
		Do()
	if err != nil {
		p.logger.Error("Failed to get video details", err, "count", len(ids))
		return durations
	}

	for _, video := range response.Items {
		if video.ContentDetails == nil {
			continue
		}
		duration, err := parseDuration(video.ContentDetails.Duration)
		if err != nil {
			p.logger.Warn("Failed to parse duration", "duration", video.ContentDetails.Duration, "error", err)
			continue
		}
		durations[video.Id] = duration
	}
	return durations
}

// GetType returns the provider type.
func (p *YouTubeProvider) GetType() string {
	return "youtube"
}

// parseDuration parses an ISO 8601 duration string into seconds.
func parseDuration(isoDuration string) (int, error) {
	duration := strings.TrimPrefix(isoDuration, "P")

	var days, hours, minutes, seconds int

	if idx := strings.Index(duration, "D"); idx != -1 {
		d, err := strconv.Atoi(duration[:idx])
		if err != nil {
			return 0, err
		}
		days = d
		duration = duration[idx+1:]
	}

	duration = strings.TrimPrefix(duration, "T")

	if idx := strings.Index(duration, "H"); idx != -1 {
		h, err := strconv.Atoi(duration[:idx])
		if err != nil {
			return 0, err
		}
		hours = h
		duration = duration[idx+1:]
	}

	if idx := strings.Index(duration, "M"); idx != -1 {
		m, err := strconv.Atoi(duration[:idx])
		if err != nil {
			return 0, err
		}
		minutes = m
		duration = duration[idx+1:]
	}

	if idx := strings.Index(duration, "S"); idx != -1 {
		s, err := strconv.Atoi(duration[:idx])
		if err != nil {
			return 0, err
		}
		seconds = s
	}

	return days*86400 + hours*3600 + minutes*60 + seconds, nil
}

// getBestThumbnail returns the best quality thumbnail URL.
func getBestThumbnail(thumbnails *youtube.ThumbnailDetails) string {
	if thumbnails == nil {
		return ""
	}

	for _, t := range []*youtube.Thumbnail{
		thumbnails.Maxres,
		thumbnails.High,
		thumbnails.Standard,
		thumbnails.Medium,
		thumbnails.Default,
	} {
		if t != nil && t.Url != "" {
			return t.Url
		}
	}
	return ""
}
