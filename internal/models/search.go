package models

// UnknownArtist is reported when the platform returns no author name.
const UnknownArtist = "Unknown"

// SearchResult is a single catalog search hit.
type SearchResult struct {
	// ID is the video id.
	ID string `json:"id"`

	// Title is the video title.
	Title string `json:"title"`

	// Artist is the author/channel name.
	Artist string `json:"artist"`

	// Thumbnail is the best available thumbnail URL.
	Thumbnail string `json:"thumbnail"`

	// Duration in seconds.
	Duration int `json:"duration"`

	// AuthorID is the channel id, empty when unknown.
	AuthorID string `json:"authorId"`
}

// Normalize fills the documented defaults for absent fields.
func (r *SearchResult) Normalize() {
	if r.Artist == "" {
		r.Artist = UnknownArtist
	}
	if r.Thumbnail == "" && r.ID != "" {
		r.Thumbnail = VideoID(r.ID).DefaultThumbnail()
	}
	if r.Duration < 0 {
		r.Duration = 0
	}
}

// SearchRequest carries the query parameters of a search.
type SearchRequest struct {
	Query string `query:"q"`
	Limit int    `query:"limit" validate:"min=1,max=50"`
}

// SearchResponse is the body returned by the search endpoint.
type SearchResponse struct {
	Items []SearchResult `json:"items"`
}
