package config

import (
	"testing"
	"time"

	"github.com/vidpull/vidpull/internal/download"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Host != DefaultHost {
		t.Errorf("Expected host %q, got %q", DefaultHost, cfg.Host)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("Expected port %d, got %d", DefaultPort, cfg.Port)
	}
	if cfg.Download.DownloadDelay != download.DefaultDownloadDelay {
		t.Errorf("Expected delay %s, got %s", download.DefaultDownloadDelay, cfg.Download.DownloadDelay)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DOWNLOAD_DIR", "/data/videos")
	t.Setenv("DOWNLOAD_DELAY", "7")
	t.Setenv("SUBTITLE_LANGUAGES", "en, fr")

	cfg := Load()

	if cfg.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Port)
	}
	if cfg.DownloadDir != "/data/videos" {
		t.Errorf("Expected download dir '/data/videos', got %q", cfg.DownloadDir)
	}
	if cfg.Download.DownloadDir != "/data/videos" {
		t.Errorf("Expected download config dir '/data/videos', got %q", cfg.Download.DownloadDir)
	}
	if cfg.Download.DownloadDelay != 7*time.Second {
		t.Errorf("Expected 7s delay, got %s", cfg.Download.DownloadDelay)
	}
	if len(cfg.Download.SubtitleLanguages) != 2 || cfg.Download.SubtitleLanguages[1] != "fr" {
		t.Errorf("Expected [en fr], got %v", cfg.Download.SubtitleLanguages)
	}
}

func TestLoadBadIntFallsBack(t *testing.T) {
	t.Setenv("PORT", "not-a-number")

	cfg := Load()
	if cfg.Port != DefaultPort {
		t.Errorf("Expected fallback port %d, got %d", DefaultPort, cfg.Port)
	}
}

func TestAddr(t *testing.T) {
	cfg := Config{Host: "127.0.0.1", Port: 8081}
	if cfg.Addr() != "127.0.0.1:8081" {
		t.Errorf("Expected '127.0.0.1:8081', got %q", cfg.Addr())
	}
}
