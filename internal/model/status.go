package model

// TaskStatus represents the lifecycle state of a download task.
type TaskStatus string

const (
	// TaskStatusPending means the task is queued but not started
	TaskStatusPending TaskStatus = "pending"

	// TaskStatusDownloading means the download is in progress
	TaskStatusDownloading TaskStatus = "downloading"

	// TaskStatusCompleted means the task finished successfully
	TaskStatusCompleted TaskStatus = "completed"

	// TaskStatusFailed means the task failed with an error
	TaskStatusFailed TaskStatus = "failed"
)

// String returns the string representation of TaskStatus.
func (ts TaskStatus) String() string {
	return string(ts)
}

// IsFinished returns true if the task reached a terminal state.
func (ts TaskStatus) IsFinished() bool {
	return ts == TaskStatusCompleted || ts == TaskStatusFailed
}

// SortOrder controls the listing order used for collection downloads.
type SortOrder string

const (
	SortOrderNewest  SortOrder = "newest"
	SortOrderOldest  SortOrder = "oldest"
	SortOrderPopular SortOrder = "popular"
)

// Valid reports whether the sort order is one of the recognized values.
func (so SortOrder) Valid() bool {
	return so == SortOrderNewest || so == SortOrderOldest || so == SortOrderPopular
}
