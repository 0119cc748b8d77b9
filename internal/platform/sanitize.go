package platform

import (
	"regexp"
	"strings"
)

// DefaultMaxNameLength bounds sanitized directory and file names.
const DefaultMaxNameLength = 100

// FallbackName is returned when a name is empty after sanitization.
const FallbackName = "unknown"

var (
	illegalChars  = regexp.MustCompile(`[<>:"/\\|?*]`)
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// SanitizeFilename makes an arbitrary title or author string safe to use as a
// path component. Illegal characters are removed, leading/trailing spaces and
// dots are trimmed, whitespace runs collapse to a single space, and the result
// is truncated to maxLength runes. Empty or all-illegal input yields
// FallbackName. The function is idempotent.
func SanitizeFilename(name string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultMaxNameLength
	}

	name = illegalChars.ReplaceAllString(name, "")
	name = strings.Trim(name, " .")
	name = whitespaceRun.ReplaceAllString(name, " ")

	if runes := []rune(name); len(runes) > maxLength {
		name = strings.Trim(string(runes[:maxLength]), " .")
	}

	if name == "" {
		return FallbackName
	}
	return name
}
