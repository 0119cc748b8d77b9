package platform

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCreateDirectoryIfNotExists(t *testing.T) {
	tempDir := t.TempDir()
	testDir := filepath.Join(tempDir, "nested", "dir")

	if err := CreateDirectoryIfNotExists(testDir); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}

	if _, err := os.Stat(testDir); os.IsNotExist(err) {
		t.Fatalf("Directory was not created: %s", testDir)
	}

	// Second call should not fail
	if err := CreateDirectoryIfNotExists(testDir); err != nil {
		t.Fatalf("Failed to handle existing directory: %v", err)
	}
}

func TestIsVideoFile(t *testing.T) {
	tests := []struct {
		name     string
		expected bool
	}{
		{"video.mp4", true},
		{"clip.WEBM", true},
		{"movie.mkv", true},
		{"/deep/path/video.mp4", true},
		{"original.en.srt", false},
		{"thumbnail.jpg", false},
		{"metadata.info.json", false},
		{"noextension", false},
	}

	for _, tt := range tests {
		if got := IsVideoFile(tt.name); got != tt.expected {
			t.Errorf("IsVideoFile(%q): expected %v, got %v", tt.name, tt.expected, got)
		}
	}
}
