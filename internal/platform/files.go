package platform

import (
	"os"
	"path/filepath"
	"strings"
)

// File permissions
const (
	DefaultDirPermissions = 0755
)

// VideoExtensions are the container formats recognized as primary media.
var VideoExtensions = []string{".mp4", ".webm", ".mkv"}

// CreateDirectoryIfNotExists creates a directory and its parents.
func CreateDirectoryIfNotExists(path string) error {
	return os.MkdirAll(path, DefaultDirPermissions)
}

// IsVideoFile reports whether the file name carries a recognized video
// container extension.
func IsVideoFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, v := range VideoExtensions {
		if ext == v {
			return true
		}
	}
	return false
}
