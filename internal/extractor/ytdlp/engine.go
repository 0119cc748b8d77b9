// Package ytdlp adapts the yt-dlp engine (via github.com/lrstanley/go-ytdlp)
// to the extractor contract.
package ytdlp

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"github.com/vidpull/vidpull/internal/extractor"
)

// Progress events are sampled at this interval during a fetch.
const progressInterval = 500 * time.Millisecond

// Engine runs yt-dlp and converts its loosely-typed results into the tagged
// extractor.Info variant.
type Engine struct {
	logger *log.Logger
}

// New creates a yt-dlp backed engine.
func New(logger *log.Logger) *Engine {
	return &Engine{logger: logger}
}

// Probe implements extractor.Engine.
func (e *Engine) Probe(ctx context.Context, url string, flat bool) (*extractor.Info, error) {
	dl := ytdlp.New().
		SkipDownload().
		DumpSingleJSON().
		NoWarnings().
		IgnoreErrors()

	if flat {
		dl = dl.FlatPlaylist()
	}

	e.logger.Printf("ytdlp: probing %s", url)
	result, err := dl.Run(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("probe failed: %w", err)
	}

	return e.firstInfo(result)
}

// Fetch implements extractor.Engine.
func (e *Engine) Fetch(ctx context.Context, url string, opts extractor.FetchOptions, sink extractor.ProgressSink) (*extractor.Info, error) {
	dl := ytdlp.New().
		Format(opts.Format).
		Output(opts.OutputTemplate).
		IgnoreErrors().
		Continue().
		ConvertThumbnails("jpg")

	if opts.IncludePlaylist {
		dl = dl.YesPlaylist()
	} else {
		dl = dl.NoPlaylist()
	}
	if opts.ItemCap > 0 {
		dl = dl.PlaylistEnd(opts.ItemCap)
	}
	if opts.ReverseOrder {
		dl = dl.PlaylistReverse()
	}

	if opts.WriteSubtitles {
		dl = dl.WriteSubs().SubFormat("srt/vtt/best")
		if len(opts.SubtitleLanguages) > 0 {
			dl = dl.SubLangs(strings.Join(opts.SubtitleLanguages, ","))
		}
	}
	if opts.WriteAutoSubtitles {
		dl = dl.WriteAutoSubs()
	}
	if opts.WriteThumbnail {
		dl = dl.WriteThumbnail()
	}
	if opts.WriteDescription {
		dl = dl.WriteDescription()
	}
	if opts.WriteInfoJSON {
		dl = dl.WriteInfoJSON()
	}

	if p := opts.Pacing; p.MaxRetries > 0 {
		dl = dl.Retries(strconv.Itoa(p.MaxRetries)).
			FragmentRetries(strconv.Itoa(p.MaxRetries))
	}
	if t := opts.Pacing.SocketTimeout; t > 0 {
		dl = dl.SocketTimeout(t.Seconds())
	}
	if d := opts.Pacing.FragmentDelay; d > 0 {
		dl = dl.SleepInterval(d.Seconds())
	}
	if d := opts.Pacing.MaxFragmentDelay; d > 0 {
		dl = dl.MaxSleepInterval(d.Seconds())
	}

	dl.ProgressFunc(progressInterval, func(update ytdlp.ProgressUpdate) {
		if sink == nil {
			return
		}
		ev := extractor.ProgressEvent{
			DownloadedBytes: int64(update.DownloadedBytes),
			TotalBytes:      int64(update.TotalBytes),
			Filename:        update.Filename,
		}
		switch update.Status {
		case ytdlp.ProgressStatusDownloading:
			ev.Phase = extractor.PhaseDownloading
		case ytdlp.ProgressStatusFinished:
			ev.Phase = extractor.PhaseFinished
		default:
			return
		}
		sink.HandleProgress(ev)
	})

	e.logger.Printf("ytdlp: fetching %s (format %s)", url, opts.Format)
	result, err := dl.Run(ctx, url)
	if err != nil {
		return nil, err
	}

	return e.firstInfo(result)
}

// firstInfo converts the first extracted entry of a run result.
func (e *Engine) firstInfo(result *ytdlp.Result) (*extractor.Info, error) {
	infos, err := result.GetExtractedInfo()
	if err != nil {
		return nil, fmt.Errorf("failed to parse extraction result: %w", err)
	}
	if len(infos) == 0 {
		return nil, fmt.Errorf("extraction produced no result")
	}
	return convertInfo(infos[0]), nil
}

func convertInfo(raw *ytdlp.ExtractedInfo) *extractor.Info {
	if string(raw.Type) == "playlist" || len(raw.Entries) > 0 {
		col := &extractor.Collection{
			ID:          raw.ID,
			Title:       strVal(raw.Title),
			Uploader:    uploaderOf(raw),
			Description: strVal(raw.Description),
		}
		for _, entry := range raw.Entries {
			if entry == nil {
				continue
			}
			col.Entries = append(col.Entries, extractor.Entry{
				ID:       entry.ID,
				Title:    strVal(entry.Title),
				Uploader: uploaderOf(entry),
				URL:      firstNonEmpty(strVal(entry.WebpageURL), strVal(entry.URL)),
			})
		}
		return &extractor.Info{Kind: extractor.KindCollection, Collection: col}
	}

	item := &extractor.Item{
		ID:           raw.ID,
		Title:        strVal(raw.Title),
		Uploader:     uploaderOf(raw),
		Description:  strVal(raw.Description),
		WebpageURL:   firstNonEmpty(strVal(raw.WebpageURL), strVal(raw.URL)),
		UploadDate:   strVal(raw.UploadDate),
		Duration:     int(floatVal(raw.Duration)),
		FileSize:     int64(intVal(raw.FileSizeApprox)),
		ViewCount:    int64(floatVal(raw.ViewCount)),
		Thumbnail:    strVal(raw.Thumbnail),
		FormatCount:  len(raw.Formats),
		Subtitles:    languagesOf(raw.Subtitles),
		AutoCaptions: languagesOf(raw.AutomaticCaptions),
		Filename:     strVal(raw.Filename),
	}
	return &extractor.Info{Kind: extractor.KindItem, Item: item}
}

// uploaderOf falls back from uploader to channel, matching the engine's own
// %(uploader,channel)s template semantics.
func uploaderOf(raw *ytdlp.ExtractedInfo) string {
	if v := strVal(raw.Uploader); v != "" {
		return v
	}
	return strVal(raw.Channel)
}

// languagesOf collects the language codes of a subtitle/caption map.
func languagesOf[T any](m map[string]T) []string {
	if len(m) == 0 {
		return nil
	}
	langs := make([]string, 0, len(m))
	for lang := range m {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

func strVal(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func intVal(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func floatVal(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
