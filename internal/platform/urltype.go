package platform

import "strings"

// URLType classifies what a source URL points at.
type URLType string

const (
	// URLTypeVideo is a single downloadable item
	URLTypeVideo URLType = "video"

	// URLTypeChannel is a channel page (listing or identity)
	URLTypeChannel URLType = "channel"

	// URLTypePlaylist is an explicit playlist
	URLTypePlaylist URLType = "playlist"
)

// Channel identity markers: profile/handle, legacy custom, channel ID, user.
var channelMarkers = []string{"/@", "/c/", "/channel/", "/user/"}

// String returns the string representation of URLType.
func (ut URLType) String() string {
	return string(ut)
}

// IsCollection reports whether the URL type denotes a multi-item source.
func (ut URLType) IsCollection() bool {
	return ut == URLTypeChannel || ut == URLTypePlaylist
}

// DetectURLType classifies a URL as video, channel or playlist. It is total:
// any input yields a value, defaulting to a single video.
//
// A channel /videos listing page outranks the playlist check so that
// channel-page URLs carrying stray list parameters are still treated as
// channels; a bare channel identity (no /videos) ranks below playlists.
func DetectURLType(url string) URLType {
	if strings.Contains(url, "/videos") && hasChannelMarker(url) {
		return URLTypeChannel
	}
	if strings.Contains(url, "list=") || strings.Contains(url, "/playlist") {
		return URLTypePlaylist
	}
	if hasChannelMarker(url) {
		return URLTypeChannel
	}
	return URLTypeVideo
}

func hasChannelMarker(url string) bool {
	for _, m := range channelMarkers {
		if strings.Contains(url, m) {
			return true
		}
	}
	return false
}

// PopularSortURL rewrites a channel /videos URL so the upstream lists items
// by popularity. URLs without a /videos segment are returned unchanged.
func PopularSortURL(url string) string {
	if !strings.Contains(url, "/videos") {
		return url
	}
	if !strings.Contains(url, "?") {
		return url + "?view=0&sort=p"
	}
	if !strings.Contains(url, "sort=") {
		return url + "&view=0&sort=p"
	}
	return url
}
