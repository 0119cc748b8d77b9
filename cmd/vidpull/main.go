// Command vidpull runs the download orchestration service: an HTTP API over
// yt-dlp with deduplication, workflow manifests and optional object storage.
package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/vidpull/vidpull/internal/cache"
	"github.com/vidpull/vidpull/internal/config"
	"github.com/vidpull/vidpull/internal/download"
	"github.com/vidpull/vidpull/internal/extractor/ytdlp"
	"github.com/vidpull/vidpull/internal/ledger"
	"github.com/vidpull/vidpull/internal/platform"
	"github.com/vidpull/vidpull/internal/server"
	"github.com/vidpull/vidpull/internal/storage"
	"github.com/vidpull/vidpull/internal/taskstore"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	// A .env file is optional; the environment alone is enough.
	_ = godotenv.Load()

	logger := log.New(os.Stdout, "[vidpull] ", log.LstdFlags)
	cfg := config.Load()

	if err := platform.CreateDirectoryIfNotExists(cfg.DownloadDir); err != nil {
		logger.Fatalf("failed to create download dir %s: %v", cfg.DownloadDir, err)
	}

	led := ledger.New(cfg.DownloadDir, logger)
	engine := ytdlp.New(logger)
	svc := download.NewService(cfg.Download, engine, led, logger)

	store := taskstore.NewMemoryStore()
	var objects server.ObjectStore
	if st := storage.New(cfg.Storage, logger); st != nil {
		logger.Printf("object storage enabled: bucket %s (%s)", st.Bucket(), st.Region())
		objects = st
	} else {
		logger.Println("object storage disabled: credentials not configured")
	}
	ca := cache.New(cfg.Cache, logger)

	srv := server.New(store, svc, objects, ca, logger, version)

	logger.Printf("vidpull %s listening on %s, downloads in %s", version, cfg.Addr(), cfg.DownloadDir)
	if err := srv.Router().Run(cfg.Addr()); err != nil {
		logger.Fatalf("server exited: %v", err)
	}
}
