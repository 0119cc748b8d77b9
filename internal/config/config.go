// Package config loads service settings from the environment with sane
// defaults, so a bare `vidpull` run works out of the box.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vidpull/vidpull/internal/cache"
	"github.com/vidpull/vidpull/internal/download"
	"github.com/vidpull/vidpull/internal/storage"
)

// Default values
const (
	DefaultHost        = "0.0.0.0"
	DefaultPort        = 8081
	DefaultDownloadDir = "./downloads"
	DefaultRedisAddr   = "localhost:6379"
)

// Config is the assembled service configuration.
type Config struct {
	Host        string
	Port        int
	DownloadDir string

	Download download.Config
	Storage  storage.Config
	Cache    cache.Config
}

// Addr returns the host:port listen address.
func (c Config) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Load reads the environment. Call godotenv first if a .env file should
// participate.
func Load() Config {
	downloadDir := getEnv("DOWNLOAD_DIR", DefaultDownloadDir)

	return Config{
		Host:        getEnv("HOST", DefaultHost),
		Port:        getEnvInt("PORT", DefaultPort),
		DownloadDir: downloadDir,

		Download: download.Config{
			DownloadDir:       downloadDir,
			Format:            getEnv("DOWNLOAD_FORMAT", download.DefaultFormat),
			DownloadDelay:     getEnvSeconds("DOWNLOAD_DELAY", download.DefaultDownloadDelay),
			RetryAfter:        getEnvSeconds("RETRY_DELAY", download.DefaultRetryAfter),
			MaxRetries:        getEnvInt("MAX_RETRIES", download.DefaultMaxRetries),
			SocketTimeout:     getEnvSeconds("SOCKET_TIMEOUT", download.DefaultSocketTimeout),
			SubtitleLanguages: getEnvList("SUBTITLE_LANGUAGES", download.DefaultSubtitleLanguages),
		},

		Storage: storage.Config{
			SecretID:  os.Getenv("COS_SECRET_ID"),
			SecretKey: os.Getenv("COS_SECRET_KEY"),
			Bucket:    os.Getenv("COS_BUCKET"),
			Region:    getEnv("COS_REGION", storage.DefaultRegion),
		},

		Cache: cache.Config{
			Addr: getEnv("REDIS_ADDR", DefaultRedisAddr),
			DB:   getEnvInt("REDIS_DB", 0),
			TTL:  getEnvSeconds("CACHE_TTL", cache.DefaultTTL),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvSeconds(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
