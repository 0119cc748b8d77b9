package server

import (
	"context"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vidpull/vidpull/internal/model"
	"github.com/vidpull/vidpull/internal/platform"
	"github.com/vidpull/vidpull/internal/storage"
)

const (
	defaultListMaxKeys     = 100
	defaultPresignDuration = time.Hour
)

// storageReady guards the storage endpoints behind a configured client.
func (s *Server) storageReady(c *gin.Context) bool {
	if s.storage == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "object storage is not configured"})
		return false
	}
	return true
}

func (s *Server) handleStorageStatus(c *gin.Context) {
	if s.storage == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"enabled": true,
		"bucket":  s.storage.Bucket(),
		"region":  s.storage.Region(),
	})
}

func (s *Server) handleStorageList(c *gin.Context) {
	if !s.storageReady(c) {
		return
	}

	prefix := c.Query("prefix")
	marker := c.Query("marker")
	maxKeys := queryInt(c, "max_keys", defaultListMaxKeys)

	// Only first pages are cached; marker pages always hit the bucket.
	cacheable := marker == "" && s.cache != nil
	if cacheable {
		var cached storage.Listing
		if s.cache.Get(c.Request.Context(), prefix, &cached) {
			c.JSON(http.StatusOK, gin.H{"prefix": prefix, "listing": cached, "cached": true})
			return
		}
	}

	listing, err := s.storage.List(c.Request.Context(), prefix, marker, maxKeys)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if cacheable {
		s.cache.Set(c.Request.Context(), prefix, listing)
	}

	c.JSON(http.StatusOK, gin.H{"prefix": prefix, "listing": listing, "cached": false})
}

func (s *Server) handleStorageDeleteFolder(c *gin.Context) {
	if !s.storageReady(c) {
		return
	}
	prefix := c.Query("prefix")
	if prefix == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prefix parameter is required"})
		return
	}

	deleted, err := s.storage.DeleteFolder(c.Request.Context(), prefix)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if s.cache != nil {
		s.cache.Invalidate(c.Request.Context(), prefix)
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted, "prefix": prefix})
}

func (s *Server) handleStorageDeleteFile(c *gin.Context) {
	if !s.storageReady(c) {
		return
	}
	key := c.Query("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key parameter is required"})
		return
	}

	if err := s.storage.DeleteFile(c.Request.Context(), key); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if s.cache != nil {
		if dir := filepath.ToSlash(filepath.Dir(key)); dir != "." {
			s.cache.Invalidate(c.Request.Context(), dir+"/")
		}
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true, "key": key})
}

func (s *Server) handleStoragePresign(c *gin.Context) {
	if !s.storageReady(c) {
		return
	}
	key := c.Query("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key parameter is required"})
		return
	}

	expires := defaultPresignDuration
	if v := c.Query("expires"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "expires must be a positive number of seconds"})
			return
		}
		expires = time.Duration(secs) * time.Second
	}

	signed, err := s.storage.PresignedURL(c.Request.Context(), key, expires)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"key":        key,
		"url":        signed,
		"expires_in": int(expires.Seconds()),
	})
}

// uploadCompleted pushes a finished item directory to the bucket after a
// download. An upload failure never fails the task; it becomes a warning.
func (s *Server) uploadCompleted(taskID, dir string) {
	ctx := context.Background()
	title := filepath.Base(dir)
	uploader := filepath.Base(filepath.Dir(dir))

	result, err := s.storage.UploadFolder(ctx, dir, uploader, title)
	if err != nil {
		s.logger.Printf("server: task %s storage upload failed: %v", taskID, err)
		s.store.Update(taskID, func(t *model.DownloadTask) {
			t.Warning = appendWarning(t.Warning, "storage upload failed: "+err.Error())
		})
		return
	}

	s.store.Update(taskID, func(t *model.DownloadTask) {
		t.Uploaded = true
	})
	if s.cache != nil {
		s.cache.Invalidate(ctx, uploader+"/"+title+"/")
	}
	s.logger.Printf("server: task %s uploaded %d/%d files", taskID, result.Uploaded, result.Total)
}

func appendWarning(existing, msg string) string {
	if existing == "" {
		return msg
	}
	return existing + "; " + msg
}

// handleStorageUpload pushes a completed single-video task's directory to the
// bucket under {uploader}/{title}/.
func (s *Server) handleStorageUpload(c *gin.Context) {
	if !s.storageReady(c) {
		return
	}

	task, ok := s.store.Get(c.Param("task_id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	if task.Status != model.TaskStatusCompleted {
		c.JSON(http.StatusConflict, gin.H{"error": "task is not completed"})
		return
	}
	if task.VideoCount > 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only single-video tasks can be uploaded"})
		return
	}

	dir := task.Filename
	if dir == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "task has no local output"})
		return
	}
	if platform.IsVideoFile(dir) {
		dir = filepath.Dir(dir)
	}

	title := filepath.Base(dir)
	uploader := filepath.Base(filepath.Dir(dir))

	result, err := s.storage.UploadFolder(c.Request.Context(), dir, uploader, title)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	s.store.Update(task.ID, func(t *model.DownloadTask) {
		t.Uploaded = true
	})
	if s.cache != nil {
		s.cache.Invalidate(c.Request.Context(), uploader+"/"+title+"/")
	}

	c.JSON(http.StatusOK, gin.H{"task_id": task.ID, "result": result})
}
