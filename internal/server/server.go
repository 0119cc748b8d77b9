// Package server exposes the download orchestrator, task registry and object
// storage over a gin HTTP API.
package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vidpull/vidpull/internal/cache"
	"github.com/vidpull/vidpull/internal/download"
	"github.com/vidpull/vidpull/internal/extractor"
	"github.com/vidpull/vidpull/internal/storage"
	"github.com/vidpull/vidpull/internal/taskstore"
)

// ServiceName identifies the service in the root and health endpoints.
const ServiceName = "vidpull"

// Downloader is the orchestrator surface the handlers depend on.
type Downloader interface {
	GetInfo(ctx context.Context, url string) (*extractor.Info, error)
	Download(ctx context.Context, url string, opts download.Options, sink extractor.ProgressSink) *download.Result
}

// ObjectStore is the bucket surface the handlers and the post-download upload
// depend on. *storage.Client satisfies it.
type ObjectStore interface {
	Bucket() string
	Region() string
	UploadFolder(ctx context.Context, dir, uploader, title string) (*storage.UploadResult, error)
	List(ctx context.Context, prefix, marker string, maxKeys int) (*storage.Listing, error)
	DeleteFolder(ctx context.Context, prefix string) (int, error)
	DeleteFile(ctx context.Context, key string) error
	PresignedURL(ctx context.Context, key string, expires time.Duration) (string, error)
}

// Server wires handlers to their dependencies. Storage and cache may be nil;
// the corresponding endpoints then report the feature as unavailable.
type Server struct {
	store      taskstore.Store
	downloader Downloader
	storage    ObjectStore
	cache      *cache.ListingCache
	logger     *log.Logger
	version    string
}

// New creates a server.
func New(store taskstore.Store, dl Downloader, st ObjectStore, ca *cache.ListingCache, logger *log.Logger, version string) *Server {
	return &Server{
		store:      store,
		downloader: dl,
		storage:    st,
		cache:      ca,
		logger:     logger,
		version:    version,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/", s.handleRoot)
	router.GET("/health", s.handleHealth)

	api := router.Group("/api")
	{
		api.GET("/version", s.handleVersion)
		api.GET("/info", s.handleInfo)

		api.POST("/download", s.handleDownload)
		api.POST("/download/batch", s.handleBatchDownload)

		api.GET("/tasks", s.handleListTasks)
		api.GET("/tasks/:id", s.handleGetTask)
		api.DELETE("/tasks/:id", s.handleDeleteTask)
		api.DELETE("/tasks", s.handleClearTasks)

		cosGroup := api.Group("/cos")
		{
			cosGroup.GET("/status", s.handleStorageStatus)
			cosGroup.GET("/videos", s.handleStorageList)
			cosGroup.DELETE("/folder", s.handleStorageDeleteFolder)
			cosGroup.DELETE("/file", s.handleStorageDeleteFile)
			cosGroup.GET("/url", s.handleStoragePresign)
			cosGroup.POST("/upload/:task_id", s.handleStorageUpload)
		}
	}

	return router
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": ServiceName,
		"version": s.version,
		"endpoints": gin.H{
			"info":     "GET /api/info?url=...",
			"download": "POST /api/download",
			"batch":    "POST /api/download/batch",
			"tasks":    "GET /api/tasks",
			"storage":  "GET /api/cos/status",
		},
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": ServiceName})
}

func (s *Server) handleVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"version": s.version})
}
