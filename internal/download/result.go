package download

// ItemResult describes one successfully downloaded item.
type ItemResult struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Uploader string `json:"uploader"`
	Dir      string `json:"dir"`
}

// Result is the structured outcome of a download request. Exactly one of the
// success/failure field groups is meaningful, selected by Success.
type Result struct {
	Success bool   `json:"success"`
	Type    string `json:"type,omitempty"` // video, channel or playlist
	URL     string `json:"url,omitempty"`

	// Success fields
	ID       string       `json:"id,omitempty"`
	Title    string       `json:"title,omitempty"`
	Uploader string       `json:"uploader,omitempty"`
	Dir      string       `json:"dir,omitempty"`
	Duration int          `json:"duration,omitempty"`
	FileSize int64        `json:"filesize,omitempty"`
	Total    int          `json:"total,omitempty"`   // collection: items downloaded
	Skipped  int          `json:"skipped,omitempty"` // collection: entries not fetched
	Videos   []ItemResult `json:"videos,omitempty"`
	Warning  string       `json:"warning,omitempty"`

	// Failure fields
	Error       string `json:"error,omitempty"`
	RateLimited bool   `json:"rate_limited,omitempty"`
	RetryAfter  int    `json:"retry_after,omitempty"` // seconds
}
