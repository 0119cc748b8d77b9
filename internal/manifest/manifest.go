// Package manifest reads and writes the per-item workflow record
// (status.json) that downstream processing stages consult. The manifest is
// created once per downloaded item; later stages flip their own flags.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vidpull/vidpull/internal/extractor"
	"github.com/vidpull/vidpull/internal/platform"
)

// FileName is the manifest file kept inside each item directory.
const FileName = "status.json"

// Reserved subdirectories for downstream processing stages.
const (
	SubtitlesDir = "subtitles"
	AudioDir     = "audio"
	OutputDir    = "output"
)

const filePermissions = 0644

// Stages tracks which workflow steps have run for an item. Downloaded is
// always true once the manifest exists; everything else starts false.
type Stages struct {
	Downloaded          bool `json:"downloaded"`
	SubtitlesExtracted  bool `json:"subtitles_extracted"`
	SubtitlesTranslated bool `json:"subtitles_translated"`
	TTSGenerated        bool `json:"tts_generated"`
	VideoMerged         bool `json:"video_merged"`
	UploadedToStorage   bool `json:"uploaded_to_storage"`
}

// Manifest is the per-item workflow record stored alongside the media.
type Manifest struct {
	VideoID      string            `json:"video_id"`
	Title        string            `json:"title"`
	Uploader     string            `json:"uploader"`
	Duration     int               `json:"duration,omitempty"`
	UploadDate   string            `json:"upload_date,omitempty"`
	OriginalURL  string            `json:"original_url"`
	DownloadTime time.Time         `json:"download_time"`
	Stages       Stages            `json:"processing_status"`
	Files        map[string]string `json:"files"`
	Subtitles    map[string]string `json:"subtitles"`
}

// EnsureProcessingDirs creates the item directory and its reserved subtree.
func EnsureProcessingDirs(itemDir string) error {
	dirs := []string{
		itemDir,
		filepath.Join(itemDir, SubtitlesDir),
		filepath.Join(itemDir, AudioDir),
		filepath.Join(itemDir, OutputDir),
	}
	for _, d := range dirs {
		if err := platform.CreateDirectoryIfNotExists(d); err != nil {
			return fmt.Errorf("failed to create %s: %w", d, err)
		}
	}
	return nil
}

// Write builds the manifest for a freshly fetched item and persists it to
// itemDir. It indexes the files actually present and scans the subtitles
// directory for already-extracted tracks.
func Write(itemDir string, item *extractor.Item) error {
	m := &Manifest{
		VideoID:      item.ID,
		Title:        item.Title,
		Uploader:     item.Uploader,
		Duration:     item.Duration,
		UploadDate:   item.UploadDate,
		OriginalURL:  item.WebpageURL,
		DownloadTime: time.Now(),
		Stages:       Stages{Downloaded: true},
		Files:        indexFiles(itemDir),
		Subtitles:    map[string]string{},
	}

	for lang, file := range scanSubtitles(itemDir) {
		m.Subtitles[lang] = file
		m.Stages.SubtitlesExtracted = true
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	path := filepath.Join(itemDir, FileName)
	if err := os.WriteFile(path, data, filePermissions); err != nil {
		return fmt.Errorf("failed to write manifest %s: %w", path, err)
	}
	return nil
}

// Read loads the manifest from an item directory.
func Read(itemDir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(itemDir, FileName))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}

// indexFiles maps logical names to files present in the item directory.
func indexFiles(itemDir string) map[string]string {
	files := map[string]string{}

	entries, err := os.ReadDir(itemDir)
	if err != nil {
		return files
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		switch {
		case platform.IsVideoFile(name):
			files["video"] = name
		case strings.HasSuffix(name, ".info.json"):
			files["metadata"] = name
		case strings.HasSuffix(name, ".jpg") || strings.HasSuffix(name, ".png") || strings.HasSuffix(name, ".webp"):
			files["thumbnail"] = name
		case strings.HasSuffix(name, ".description"):
			files["description"] = name
		}
	}
	return files
}

// scanSubtitles finds extracted subtitle tracks keyed by language code.
func scanSubtitles(itemDir string) map[string]string {
	subs := map[string]string{}

	entries, err := os.ReadDir(filepath.Join(itemDir, SubtitlesDir))
	if err != nil {
		return subs
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "original.") {
			continue
		}
		lang := strings.TrimPrefix(name, "original.")
		lang = strings.TrimSuffix(lang, ".srt")
		lang = strings.TrimSuffix(lang, ".vtt")
		if lang != "" {
			subs[lang] = name
		}
	}
	return subs
}
