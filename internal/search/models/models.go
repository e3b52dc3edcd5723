package models

// Result is a single organic web hit normalized across providers.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// ImageResult is a normalized image hit. ThumbnailURL may be empty when a
// provider only returns the full-size asset.
type ImageResult struct {
	Title        string `json:"title"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}
