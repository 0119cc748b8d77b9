package download

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/vidpull/vidpull/internal/extractor"
	"github.com/vidpull/vidpull/internal/ledger"
	"github.com/vidpull/vidpull/internal/manifest"
	"github.com/vidpull/vidpull/internal/model"
	"github.com/vidpull/vidpull/internal/platform"
)

// Throttling protection defaults. The upstream penalizes rapid requests, so
// every fetch is preceded by an unconditional pacing delay.
const (
	DefaultFormat           = "best"
	DefaultDownloadDelay    = 3 * time.Second
	DefaultRetryAfter       = 30 * time.Second
	DefaultMaxRetries       = 10
	DefaultSocketTimeout    = 30 * time.Second
	DefaultFragmentDelay    = 2 * time.Second
	DefaultMaxFragmentDelay = 5 * time.Second
)

// DefaultSubtitleLanguages are requested when subtitle download is enabled.
var DefaultSubtitleLanguages = []string{"en", "zh-Hans", "zh-Hant", "zh", "ja", "ko"}

// ItemURLTemplate rebuilds a watchable URL from a flat listing entry that
// carries only an identifier.
const ItemURLTemplate = "https://www.youtube.com/watch?v=%s"

// Config tunes the orchestrator. Zero values fall back to the defaults above.
type Config struct {
	DownloadDir       string
	Format            string
	DownloadDelay     time.Duration // before each fetch and between collection entries
	RetryAfter        time.Duration // suggested wait surfaced on rate limiting
	MaxRetries        int
	SocketTimeout     time.Duration
	FragmentDelay     time.Duration
	MaxFragmentDelay  time.Duration
	SubtitleLanguages []string
}

func (c Config) withDefaults() Config {
	if c.Format == "" {
		c.Format = DefaultFormat
	}
	if c.DownloadDelay <= 0 {
		c.DownloadDelay = DefaultDownloadDelay
	}
	if c.RetryAfter <= 0 {
		c.RetryAfter = DefaultRetryAfter
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.SocketTimeout <= 0 {
		c.SocketTimeout = DefaultSocketTimeout
	}
	if c.FragmentDelay <= 0 {
		c.FragmentDelay = DefaultFragmentDelay
	}
	if c.MaxFragmentDelay <= 0 {
		c.MaxFragmentDelay = DefaultMaxFragmentDelay
	}
	if len(c.SubtitleLanguages) == 0 {
		c.SubtitleLanguages = DefaultSubtitleLanguages
	}
	return c
}

// Options are the per-request knobs accepted by Download.
type Options struct {
	Format            string
	DownloadPlaylist  bool
	MaxVideos         int // cap on NEW downloads for collections; 0 means unbounded
	SortOrder         model.SortOrder
	DownloadSubtitles bool
	DownloadThumbnail bool
}

// Service is the download orchestrator. It is stateless across invocations;
// all resumability lives in the ledger and the per-item manifests.
type Service struct {
	cfg    Config
	engine extractor.Engine
	ledger *ledger.Ledger
	logger *log.Logger
}

// NewService creates an orchestrator over the given engine and ledger.
func NewService(cfg Config, engine extractor.Engine, led *ledger.Ledger, logger *log.Logger) *Service {
	return &Service{
		cfg:    cfg.withDefaults(),
		engine: engine,
		ledger: led,
		logger: logger,
	}
}

// GetInfo resolves metadata for a URL without fetching media. Collection
// entries are listed flat.
func (s *Service) GetInfo(ctx context.Context, url string) (*extractor.Info, error) {
	return s.engine.Probe(ctx, url, true)
}

// Download runs one download request to completion. It never returns an
// unhandled fault: every failure is converted into a typed Result. The sink
// (may be nil) receives raw progress events synchronously.
func (s *Service) Download(ctx context.Context, rawURL string, opts Options, sink extractor.ProgressSink) *Result {
	urlType := platform.DetectURLType(rawURL)
	s.logger.Printf("download: url type %s for %s", urlType, rawURL)

	// Collections always enumerate as multi-item sources.
	if urlType.IsCollection() {
		opts.DownloadPlaylist = true
	}

	url := rawURL
	if opts.SortOrder == model.SortOrderPopular {
		url = platform.PopularSortURL(url)
		if url != rawURL {
			s.logger.Printf("download: popular sort, url rewritten to %s", url)
		}
	}

	s.pause(ctx)

	if urlType.IsCollection() && opts.MaxVideos > 0 {
		return s.downloadCollection(ctx, url, urlType, opts, sink)
	}

	tracker := newMediaTracker(sink)
	res, err := s.fetchAll(ctx, url, urlType, opts, tracker)
	if err != nil {
		return s.failureResult(err, tracker, rawURL, urlType)
	}
	return res
}

// fetchAll handles the single-item and uncapped-collection paths: the engine
// enumerates the collection itself as part of one fetch call.
func (s *Service) fetchAll(ctx context.Context, url string, urlType platform.URLType, opts Options, sink extractor.ProgressSink) (*Result, error) {
	reverse := opts.SortOrder == model.SortOrderOldest
	fetchOpts := s.fetchOptions(opts, opts.DownloadPlaylist, opts.MaxVideos, reverse)

	s.logger.Printf("download: starting fetch for %s", url)
	info, err := s.engine.Fetch(ctx, url, fetchOpts, sink)
	if err != nil {
		return nil, err
	}

	switch info.Kind {
	case extractor.KindCollection:
		col := info.Collection
		if col == nil {
			return nil, fmt.Errorf("engine returned collection result without listing for %s", url)
		}
		results := make([]ItemResult, 0, len(col.Entries))
		for _, entry := range col.Entries {
			if entry.ID == "" {
				continue
			}
			s.ledger.Record(entry.ID)

			uploader := platform.SanitizeFilename(orFallback(entry.Uploader, "Unknown"), platform.DefaultMaxNameLength)
			title := platform.SanitizeFilename(orFallback(entry.Title, "unknown"), platform.DefaultMaxNameLength)
			results = append(results, ItemResult{
				ID:       entry.ID,
				Title:    entry.Title,
				Uploader: uploader,
				Dir:      filepath.Join(s.cfg.DownloadDir, uploader, title),
			})
		}
		return &Result{
			Success:  true,
			Type:     urlType.String(),
			URL:      url,
			Title:    col.Title,
			Uploader: col.Uploader,
			Total:    len(results),
			Videos:   results,
			Dir:      s.cfg.DownloadDir,
		}, nil

	case extractor.KindItem:
		item := info.Item
		if item == nil {
			return nil, fmt.Errorf("engine returned no item for %s", url)
		}
		dir, err := s.finalizeItem(item)
		if err != nil {
			return nil, err
		}
		return &Result{
			Success:  true,
			Type:     platform.URLTypeVideo.String(),
			URL:      url,
			ID:       item.ID,
			Title:    item.Title,
			Uploader: item.Uploader,
			Dir:      dir,
			Duration: item.Duration,
			FileSize: item.FileSize,
		}, nil

	default:
		return nil, fmt.Errorf("engine returned unrecognized result for %s", url)
	}
}

// downloadCollection is the bounded multi-item path: enumerate cheaply,
// filter against the ledger, then fetch the selected entries one by one.
func (s *Service) downloadCollection(ctx context.Context, url string, urlType platform.URLType, opts Options, sink extractor.ProgressSink) *Result {
	s.logger.Printf("download: dedup collection download, cap %d", opts.MaxVideos)

	info, err := s.engine.Probe(ctx, url, true)
	if err != nil {
		return s.failureResult(fmt.Errorf("failed to list collection: %w", err), newMediaTracker(nil), url, urlType)
	}
	if info.Kind != extractor.KindCollection || info.Collection == nil {
		return &Result{Success: false, URL: url, Error: "unable to list collection entries"}
	}

	col := info.Collection
	entries := col.Entries
	if opts.SortOrder == model.SortOrderOldest {
		entries = reversed(entries)
	}
	s.logger.Printf("download: collection lists %d entries", len(entries))

	// One ledger read for the whole selection pass. The cap bounds new
	// downloads: entries past the point where it fills are never considered.
	downloaded := s.ledger.Load()
	var selected []extractor.Entry
	for _, entry := range entries {
		if entry.ID == "" {
			continue
		}
		if _, dup := downloaded[entry.ID]; dup {
			continue
		}
		selected = append(selected, entry)
		if len(selected) >= opts.MaxVideos {
			break
		}
	}

	skipped := len(entries) - len(selected)
	if skipped > 0 {
		s.logger.Printf("download: skipping %d entries", skipped)
	}

	if len(selected) == 0 {
		return &Result{
			Success:  true,
			Type:     urlType.String(),
			URL:      url,
			Title:    col.Title,
			Uploader: col.Uploader,
			Total:    0,
			Skipped:  skipped,
			Videos:   []ItemResult{},
		}
	}

	results := make([]ItemResult, 0, len(selected))
	for i, entry := range selected {
		itemURL := entry.URL
		if itemURL == "" {
			itemURL = fmt.Sprintf(ItemURLTemplate, entry.ID)
		}
		s.logger.Printf("download: [%d/%d] %s", i+1, len(selected), orFallback(entry.Title, entry.ID))

		item, err := s.fetchSingle(ctx, itemURL, opts, sink)
		if err != nil {
			// Per-entry failures never abort the rest of the run.
			s.logger.Printf("download: entry %s failed: %v", entry.ID, err)
		} else {
			results = append(results, *item)
		}

		if i < len(selected)-1 {
			s.pause(ctx)
		}
	}

	return &Result{
		Success:  true,
		Type:     urlType.String(),
		URL:      url,
		Title:    col.Title,
		Uploader: col.Uploader,
		Total:    len(results),
		Skipped:  skipped,
		Videos:   results,
		Dir:      s.cfg.DownloadDir,
	}
}

// fetchSingle fetches one item (playlist expansion off) and completes its
// bookkeeping: processing dirs, manifest, ledger.
func (s *Service) fetchSingle(ctx context.Context, url string, opts Options, sink extractor.ProgressSink) (*ItemResult, error) {
	fetchOpts := s.fetchOptions(opts, false, 0, false)

	info, err := s.engine.Fetch(ctx, url, fetchOpts, sink)
	if err != nil {
		return nil, err
	}
	if info.Kind != extractor.KindItem || info.Item == nil {
		return nil, fmt.Errorf("engine returned no item for %s", url)
	}

	dir, err := s.finalizeItem(info.Item)
	if err != nil {
		return nil, err
	}
	return &ItemResult{
		ID:       info.Item.ID,
		Title:    info.Item.Title,
		Uploader: info.Item.Uploader,
		Dir:      dir,
	}, nil
}

// finalizeItem creates the reserved subtree, writes the workflow manifest and
// records the item in the ledger. A manifest write failure is fatal for the
// item: downstream stages consult nothing else.
func (s *Service) finalizeItem(item *extractor.Item) (string, error) {
	uploader := platform.SanitizeFilename(orFallback(item.Uploader, "Unknown"), platform.DefaultMaxNameLength)
	title := platform.SanitizeFilename(orFallback(item.Title, "unknown"), platform.DefaultMaxNameLength)
	dir := filepath.Join(s.cfg.DownloadDir, uploader, title)

	if err := manifest.EnsureProcessingDirs(dir); err != nil {
		return "", err
	}
	if err := manifest.Write(dir, item); err != nil {
		return "", err
	}

	// Write-after-success: a failed fetch must never be marked as done.
	s.ledger.Record(item.ID)
	return dir, nil
}

// failureResult classifies a terminal error into one of three mutually
// exclusive outcomes, checked in order: rate-limited, sidecar-only failure
// with the primary media already finished, generic failure.
func (s *Service) failureResult(err error, tracker *mediaTracker, url string, urlType platform.URLType) *Result {
	if isRateLimited(err) {
		s.logger.Printf("download: rate limited, suggest retry in %s", s.cfg.RetryAfter)
		return &Result{
			Success:     false,
			URL:         url,
			Error:       "rate limited by upstream, retry later",
			RateLimited: true,
			RetryAfter:  int(s.cfg.RetryAfter.Seconds()),
		}
	}

	if isSubtitleError(err) && tracker.FinishedMedia() {
		dir := filepath.Dir(tracker.LastFile())
		s.logger.Printf("download: media fetched, subtitle stage failed: %v", err)
		return &Result{
			Success: true,
			Type:    urlType.String(),
			URL:     url,
			Dir:     dir,
			Warning: fmt.Sprintf("subtitle download failed: %v", err),
		}
	}

	s.logger.Printf("download: failed: %v", err)
	return &Result{Success: false, URL: url, Error: err.Error()}
}

func (s *Service) fetchOptions(opts Options, includePlaylist bool, itemCap int, reverse bool) extractor.FetchOptions {
	format := opts.Format
	if format == "" {
		format = s.cfg.Format
	}
	return extractor.FetchOptions{
		Format:             format,
		OutputTemplate:     s.outputTemplate(),
		IncludePlaylist:    includePlaylist,
		ItemCap:            itemCap,
		ReverseOrder:       reverse,
		WriteSubtitles:     opts.DownloadSubtitles,
		WriteAutoSubtitles: opts.DownloadSubtitles,
		SubtitleLanguages:  s.cfg.SubtitleLanguages,
		WriteThumbnail:     opts.DownloadThumbnail,
		WriteDescription:   true,
		WriteInfoJSON:      true,
		Pacing: extractor.Pacing{
			MaxRetries:       s.cfg.MaxRetries,
			SocketTimeout:    s.cfg.SocketTimeout,
			FragmentDelay:    s.cfg.FragmentDelay,
			MaxFragmentDelay: s.cfg.MaxFragmentDelay,
		},
	}
}

// outputTemplate mirrors the on-disk layout: {root}/{uploader}/{title}/{title}.{ext}.
func (s *Service) outputTemplate() string {
	return filepath.Join(s.cfg.DownloadDir, "%(uploader,channel|Unknown)s", "%(title).100s", "%(title).100s.%(ext)s")
}

// pause applies the fixed pacing delay. The delay is unconditional, not
// adaptive.
func (s *Service) pause(ctx context.Context) {
	if s.cfg.DownloadDelay <= 0 {
		return
	}
	select {
	case <-time.After(s.cfg.DownloadDelay):
	case <-ctx.Done():
	}
}

func orFallback(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func reversed(entries []extractor.Entry) []extractor.Entry {
	out := make([]extractor.Entry, len(entries))
	for i, e := range entries {
		out[len(entries)-1-i] = e
	}
	return out
}
