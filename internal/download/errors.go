package download

import "strings"

// Throttling markers recognized in engine error text: HTTP status codes and
// common rate-limit phrasing.
var rateLimitMarkers = []string{"403", "429", "rate limit", "too many requests"}

// isRateLimited reports whether the error text indicates upstream throttling.
func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// isSubtitleError reports whether the error text points at the subtitle
// stage. Combined with a finished primary media event this downgrades a
// failure to a warning.
func isSubtitleError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "subtitle")
}
