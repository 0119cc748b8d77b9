package download

import (
	"testing"

	"github.com/vidpull/vidpull/internal/extractor"
)

func TestNormalizerIgnoresSidecars(t *testing.T) {
	n := NewNormalizer(nil)

	// Subtitle-sized transfer must not move the percentage
	n.HandleProgress(extractor.ProgressEvent{
		Phase:           extractor.PhaseDownloading,
		DownloadedBytes: 10_000,
		TotalBytes:      20_000,
	})

	if n.Percent() != 0 {
		t.Errorf("Expected sidecar transfer to be ignored, got %.1f", n.Percent())
	}
}

func TestNormalizerPercentage(t *testing.T) {
	var updates []float64
	n := NewNormalizer(func(p float64) { updates = append(updates, p) })

	n.HandleProgress(extractor.ProgressEvent{
		Phase:           extractor.PhaseDownloading,
		DownloadedBytes: 50 << 20,
		TotalBytes:      100 << 20,
	})

	if n.Percent() != 50 {
		t.Errorf("Expected 50, got %.1f", n.Percent())
	}
	if len(updates) != 1 || updates[0] != 50 {
		t.Errorf("Expected one update of 50, got %v", updates)
	}
}

func TestNormalizerCapsAt99(t *testing.T) {
	n := NewNormalizer(nil)

	n.HandleProgress(extractor.ProgressEvent{
		Phase:           extractor.PhaseDownloading,
		DownloadedBytes: 100 << 20,
		TotalBytes:      100 << 20,
	})

	if n.Percent() != 99 {
		t.Errorf("Expected completion to be capped at 99, got %.1f", n.Percent())
	}
}

func TestNormalizerUnknownTotalKeepsPrevious(t *testing.T) {
	n := NewNormalizer(nil)

	n.HandleProgress(extractor.ProgressEvent{
		Phase:           extractor.PhaseDownloading,
		DownloadedBytes: 30 << 20,
		TotalBytes:      100 << 20,
	})
	n.HandleProgress(extractor.ProgressEvent{
		Phase:           extractor.PhaseDownloading,
		DownloadedBytes: 40 << 20,
		TotalBytes:      0,
	})

	if n.Percent() != 30 {
		t.Errorf("Expected previous value 30 to be kept on unknown total, got %.1f", n.Percent())
	}
}

func TestNormalizerRecordsOutputFile(t *testing.T) {
	n := NewNormalizer(nil)

	n.HandleProgress(extractor.ProgressEvent{
		Phase:    extractor.PhaseFinished,
		Filename: "/downloads/Creator/Title/Title.en.srt",
	})
	if n.OutputFile() != "" {
		t.Errorf("Expected subtitle finish to be ignored, got %q", n.OutputFile())
	}

	n.HandleProgress(extractor.ProgressEvent{
		Phase:    extractor.PhaseFinished,
		Filename: "/downloads/Creator/Title/Title.mp4",
	})
	if n.OutputFile() != "/downloads/Creator/Title/Title.mp4" {
		t.Errorf("Expected video output file recorded, got %q", n.OutputFile())
	}
}

func TestMediaTrackerForwardsAndTracks(t *testing.T) {
	var forwarded []extractor.ProgressEvent
	tr := newMediaTracker(extractor.ProgressFunc(func(ev extractor.ProgressEvent) {
		forwarded = append(forwarded, ev)
	}))

	tr.HandleProgress(extractor.ProgressEvent{Phase: extractor.PhaseDownloading, DownloadedBytes: 1})
	if tr.FinishedMedia() {
		t.Error("Expected no finished media yet")
	}

	tr.HandleProgress(extractor.ProgressEvent{Phase: extractor.PhaseFinished, Filename: "a.mp4"})
	if !tr.FinishedMedia() {
		t.Error("Expected finished media after video finish event")
	}
	if tr.LastFile() != "a.mp4" {
		t.Errorf("Expected last file 'a.mp4', got %q", tr.LastFile())
	}
	if len(forwarded) != 2 {
		t.Errorf("Expected both events forwarded, got %d", len(forwarded))
	}
}
