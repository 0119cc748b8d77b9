package extractor

import (
	"context"
	"time"
)

// Kind tags the two result shapes an extraction call can produce.
type Kind string

const (
	// KindItem is a single video/audio asset
	KindItem Kind = "video"

	// KindCollection is a channel or playlist of items
	KindCollection Kind = "playlist"
)

// Item is the resolved metadata of a single downloadable asset.
type Item struct {
	ID           string
	Title        string
	Uploader     string
	Description  string
	WebpageURL   string
	UploadDate   string
	Duration     int   // seconds
	FileSize     int64 // bytes, best estimate
	ViewCount    int64
	Thumbnail    string // thumbnail URL
	FormatCount  int
	Subtitles    []string // available subtitle language codes
	AutoCaptions []string // available auto-generated caption language codes
	Filename     string   // final output path, set after a fetch
}

// Entry is one element of a collection listing. Flat listings carry only
// identifier, title and URL.
type Entry struct {
	ID       string
	Title    string
	Uploader string
	URL      string
}

// Collection is the resolved metadata of a channel or playlist.
type Collection struct {
	ID          string
	Title       string
	Uploader    string
	Description string
	Entries     []Entry
}

// Info is the tagged result variant returned by Probe and Fetch: exactly one
// of Item or Collection is set, selected by Kind.
type Info struct {
	Kind       Kind
	Item       *Item
	Collection *Collection
}

// Phase identifies the stage a progress event belongs to.
type Phase string

const (
	PhaseDownloading Phase = "downloading"
	PhaseFinished    Phase = "finished"
)

// ProgressEvent is one raw transfer update from the engine.
type ProgressEvent struct {
	Phase           Phase
	DownloadedBytes int64
	TotalBytes      int64 // 0 when unknown
	Filename        string
}

// ProgressSink receives transfer events during a fetch. It is invoked
// synchronously from inside the blocking fetch call and must not block.
type ProgressSink interface {
	HandleProgress(ev ProgressEvent)
}

// ProgressFunc adapts a plain function to the ProgressSink interface.
type ProgressFunc func(ev ProgressEvent)

// HandleProgress implements ProgressSink.
func (f ProgressFunc) HandleProgress(ev ProgressEvent) {
	f(ev)
}

// Pacing configures the engine's internal throttling protection. These knobs
// are opaque to the orchestrator, which only sees the final outcome.
type Pacing struct {
	MaxRetries       int
	SocketTimeout    time.Duration
	FragmentDelay    time.Duration
	MaxFragmentDelay time.Duration
}

// FetchOptions configures a fetch call.
type FetchOptions struct {
	Format             string
	OutputTemplate     string
	IncludePlaylist    bool
	ItemCap            int // 0 means unbounded
	ReverseOrder       bool
	WriteSubtitles     bool
	WriteAutoSubtitles bool
	SubtitleLanguages  []string
	WriteThumbnail     bool
	WriteDescription   bool
	WriteInfoJSON      bool
	Pacing             Pacing
}

// Engine is the extraction capability the orchestrator depends on. Both calls
// block on network I/O and are subject to partial failure.
type Engine interface {
	// Probe resolves metadata without fetching media. With flat=true,
	// collection entries carry only identifiers and titles (cheap); with
	// flat=false every entry is fully resolved (expensive).
	Probe(ctx context.Context, url string, flat bool) (*Info, error)

	// Fetch downloads media and requested sidecars, streaming raw progress
	// events into sink (which may be nil).
	Fetch(ctx context.Context, url string, opts FetchOptions, sink ProgressSink) (*Info, error)
}
