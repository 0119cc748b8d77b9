package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vidpull/vidpull/internal/download"
	"github.com/vidpull/vidpull/internal/extractor"
	"github.com/vidpull/vidpull/internal/model"
	"github.com/vidpull/vidpull/internal/platform"
)

const defaultTaskListLimit = 50

// newTaskID returns a short random task identifier.
func newTaskID() string {
	return uuid.NewString()[:8]
}

func (s *Server) handleInfo(c *gin.Context) {
	rawURL := c.Query("url")
	if rawURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url parameter is required"})
		return
	}

	info, err := s.downloader.GetInfo(c.Request.Context(), rawURL)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to resolve url: " + err.Error()})
		return
	}

	switch info.Kind {
	case extractor.KindCollection:
		col := info.Collection
		c.JSON(http.StatusOK, gin.H{
			"type":        string(info.Kind),
			"id":          col.ID,
			"title":       col.Title,
			"description": col.Description,
			"uploader":    col.Uploader,
			"video_count": len(col.Entries),
			"videos":      entrySample(col.Entries, infoEntrySample),
		})
	case extractor.KindItem:
		item := info.Item
		c.JSON(http.StatusOK, gin.H{
			"type":               string(info.Kind),
			"id":                 item.ID,
			"title":              item.Title,
			"description":        item.Description,
			"uploader":           item.Uploader,
			"duration":           item.Duration,
			"view_count":         item.ViewCount,
			"upload_date":        item.UploadDate,
			"webpage_url":        item.WebpageURL,
			"thumbnail":          item.Thumbnail,
			"formats":            item.FormatCount,
			"subtitles":          item.Subtitles,
			"automatic_captions": item.AutoCaptions,
			"expected_path":      expectedItemPath(item.Uploader, item.Title),
		})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": "unrecognized media type"})
	}
}

// infoEntrySample bounds the listing preview returned by the info endpoint.
const infoEntrySample = 10

// entrySample returns the first n listing entries as lightweight previews.
func entrySample(entries []extractor.Entry, n int) []gin.H {
	sample := make([]gin.H, 0, n)
	for _, e := range entries {
		if len(sample) == n {
			break
		}
		sample = append(sample, gin.H{"id": e.ID, "title": e.Title})
	}
	return sample
}

// expectedItemPath predicts where a fetch of this item would land, relative to
// the download root.
func expectedItemPath(uploader, title string) string {
	if uploader == "" {
		uploader = "Unknown"
	}
	if title == "" {
		title = "unknown"
	}
	return platform.SanitizeFilename(uploader, platform.DefaultMaxNameLength) +
		"/" + platform.SanitizeFilename(title, platform.DefaultMaxNameLength)
}

func (s *Server) handleDownload(c *gin.Context) {
	var req model.DownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if req.SortOrder != "" && !req.SortOrder.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sort_order: " + string(req.SortOrder)})
		return
	}

	task := s.createTask(req.URL)
	go s.runTask(task.ID, req.URL, optionsFromRequest(req))

	c.JSON(http.StatusAccepted, model.DownloadResponse{
		TaskID:  task.ID,
		Status:  task.Status,
		Message: "download queued",
	})
}

func (s *Server) handleBatchDownload(c *gin.Context) {
	var req model.BatchDownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if len(req.URLs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "urls must not be empty"})
		return
	}

	responses := make([]model.DownloadResponse, 0, len(req.URLs))
	for _, rawURL := range req.URLs {
		rawURL = strings.TrimSpace(rawURL)
		if rawURL == "" {
			continue
		}
		task := s.createTask(rawURL)
		opts := optionsFromRequest(model.DownloadRequest{
			URL:               rawURL,
			Format:            req.Format,
			DownloadSubtitles: req.DownloadSubtitles,
		})
		go s.runTask(task.ID, rawURL, opts)

		responses = append(responses, model.DownloadResponse{
			TaskID:  task.ID,
			Status:  task.Status,
			Message: "download queued",
		})
	}
	if len(responses) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "urls must not be empty"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"total": len(responses), "tasks": responses})
}

func (s *Server) handleListTasks(c *gin.Context) {
	statusFilter := c.Query("status")
	limit := queryInt(c, "limit", defaultTaskListLimit)
	offset := queryInt(c, "offset", 0)

	tasks := s.store.List()
	if statusFilter != "" {
		filtered := tasks[:0]
		for _, task := range tasks {
			if string(task.Status) == statusFilter {
				filtered = append(filtered, task)
			}
		}
		tasks = filtered
	}

	total := len(tasks)
	if offset > len(tasks) {
		offset = len(tasks)
	}
	tasks = tasks[offset:]
	if limit > 0 && len(tasks) > limit {
		tasks = tasks[:limit]
	}

	c.JSON(http.StatusOK, model.TaskListResponse{Total: total, Tasks: tasks})
}

func (s *Server) handleGetTask(c *gin.Context) {
	task, ok := s.store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	if !s.store.Delete(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (s *Server) handleClearTasks(c *gin.Context) {
	removed := s.store.DeleteFinished()
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// createTask registers a pending task for a URL.
func (s *Server) createTask(rawURL string) *model.DownloadTask {
	task := &model.DownloadTask{
		ID:        newTaskID(),
		URL:       rawURL,
		Status:    model.TaskStatusPending,
		Type:      platform.DetectURLType(rawURL).String(),
		CreatedAt: time.Now(),
	}
	s.store.Create(task)
	return task
}

// runTask drives one download to completion in the background and mirrors its
// lifecycle onto the stored task.
func (s *Server) runTask(taskID, rawURL string, opts download.Options) {
	s.store.Update(taskID, func(task *model.DownloadTask) {
		task.Status = model.TaskStatusDownloading
	})

	norm := download.NewNormalizer(func(percent float64) {
		s.store.Update(taskID, func(task *model.DownloadTask) {
			task.Progress = percent
		})
	})

	res := s.downloader.Download(context.Background(), rawURL, opts, norm)

	now := time.Now()
	s.store.Update(taskID, func(task *model.DownloadTask) {
		task.CompletedAt = &now
		if !res.Success {
			task.Status = model.TaskStatusFailed
			task.Error = res.Error
			return
		}

		task.Status = model.TaskStatusCompleted
		task.Progress = 100
		task.Title = res.Title
		task.Warning = res.Warning
		if res.Type != "" {
			task.Type = res.Type
		}
		if len(res.Videos) > 0 {
			task.VideoCount = res.Total
		}
		if file := norm.OutputFile(); file != "" {
			task.Filename = file
		} else {
			task.Filename = res.Dir
		}
	})

	if res.Success {
		s.logger.Printf("server: task %s completed (%d videos)", taskID, res.Total)
	} else {
		s.logger.Printf("server: task %s failed: %s", taskID, res.Error)
		return
	}

	// Completed single items are pushed to object storage right away; the
	// manual upload endpoint stays available for retries.
	if s.storage != nil && res.Type == platform.URLTypeVideo.String() && res.Dir != "" {
		s.uploadCompleted(taskID, res.Dir)
	}
}

// optionsFromRequest maps the API payload onto orchestrator options. Subtitles
// and thumbnails default to on when the request leaves them unset.
func optionsFromRequest(req model.DownloadRequest) download.Options {
	return download.Options{
		Format:            req.Format,
		DownloadPlaylist:  req.DownloadPlaylist,
		MaxVideos:         req.MaxVideos,
		SortOrder:         req.SortOrder,
		DownloadSubtitles: boolOr(req.DownloadSubtitles, true),
		DownloadThumbnail: boolOr(req.DownloadThumbnail, true),
	}
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v := c.Query(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
