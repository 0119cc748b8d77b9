package model

// DownloadRequest is the payload for creating a download task.
type DownloadRequest struct {
	URL               string    `json:"url" binding:"required"`
	Format            string    `json:"format"` // best, 1080p, 720p, audio
	DownloadSubtitles *bool     `json:"download_subtitles"`
	DownloadThumbnail *bool     `json:"download_thumbnail"`
	DownloadPlaylist  bool      `json:"download_playlist"`
	MaxVideos         int       `json:"max_videos"`
	SortOrder         SortOrder `json:"sort_order"`
}

// BatchDownloadRequest creates one task per URL.
type BatchDownloadRequest struct {
	URLs              []string `json:"urls" binding:"required"`
	Format            string   `json:"format"`
	DownloadSubtitles *bool    `json:"download_subtitles"`
}

// DownloadResponse acknowledges a created task.
type DownloadResponse struct {
	TaskID  string     `json:"task_id"`
	Status  TaskStatus `json:"status"`
	Message string     `json:"message"`
}

// TaskListResponse is the paginated task listing.
type TaskListResponse struct {
	Total int             `json:"total"`
	Tasks []*DownloadTask `json:"tasks"`
}
