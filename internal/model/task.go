package model

import "time"

// DownloadTask represents a single download task tracked by the API layer.
// The download service never owns these; it returns results that handlers
// map onto the task.
type DownloadTask struct {
	ID          string     `json:"id"`
	URL         string     `json:"url"`
	Status      TaskStatus `json:"status"`
	Progress    float64    `json:"progress"` // 0 to 100
	Title       string     `json:"title,omitempty"`
	Filename    string     `json:"filename,omitempty"`
	Error       string     `json:"error,omitempty"`
	Warning     string     `json:"warning,omitempty"` // partial success (eg. subtitles failed)
	Type        string     `json:"type"`              // video, channel or playlist
	VideoCount  int        `json:"video_count,omitempty"`
	Uploaded    bool       `json:"uploaded,omitempty"` // pushed to object storage
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Clone returns a copy of the task safe to hand out across goroutines.
func (t *DownloadTask) Clone() *DownloadTask {
	c := *t
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	return &c
}
