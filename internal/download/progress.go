package download

import (
	"sync"

	"github.com/vidpull/vidpull/internal/extractor"
	"github.com/vidpull/vidpull/internal/platform"
)

// Transfers below this size are sidecars (subtitles, thumbnails, metadata)
// and must not move the task percentage.
const sidecarByteThreshold = 1 << 20 // 1 MiB

// maxTransferPercent caps in-flight progress; 100 is only asserted by the
// caller once the whole request succeeds.
const maxTransferPercent = 99

// Normalizer maps raw transfer events onto a monotonic task percentage in
// [0, 99] and captures the produced output filename. It implements
// extractor.ProgressSink; events arrive synchronously from inside the fetch,
// so the handler stays cheap.
type Normalizer struct {
	mu         sync.Mutex
	percent    float64
	outputFile string
	onUpdate   func(percent float64)
}

// NewNormalizer creates a normalizer. onUpdate may be nil; when set it is
// called with the new percentage after each accepted event.
func NewNormalizer(onUpdate func(percent float64)) *Normalizer {
	return &Normalizer{onUpdate: onUpdate}
}

// HandleProgress implements extractor.ProgressSink.
func (n *Normalizer) HandleProgress(ev extractor.ProgressEvent) {
	switch ev.Phase {
	case extractor.PhaseDownloading:
		// Unknown total: keep the previous value instead of resetting.
		if ev.TotalBytes <= 0 || ev.TotalBytes < sidecarByteThreshold {
			return
		}
		percent := float64(ev.DownloadedBytes) / float64(ev.TotalBytes) * 100
		if percent > maxTransferPercent {
			percent = maxTransferPercent
		}

		n.mu.Lock()
		n.percent = percent
		callback := n.onUpdate
		n.mu.Unlock()

		if callback != nil {
			callback(percent)
		}

	case extractor.PhaseFinished:
		if !platform.IsVideoFile(ev.Filename) {
			return
		}
		n.mu.Lock()
		n.outputFile = ev.Filename
		n.mu.Unlock()
	}
}

// Percent returns the last normalized percentage.
func (n *Normalizer) Percent() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.percent
}

// OutputFile returns the primary media path reported by a finished event, or
// empty if none arrived yet.
func (n *Normalizer) OutputFile() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.outputFile
}

// mediaTracker tees progress events to the caller's sink while remembering
// whether a primary media file finished. The orchestrator needs that fact to
// tell a sidecar-only failure apart from a real one.
type mediaTracker struct {
	next extractor.ProgressSink

	mu            sync.Mutex
	finishedMedia bool
	lastFile      string
}

func newMediaTracker(next extractor.ProgressSink) *mediaTracker {
	return &mediaTracker{next: next}
}

// HandleProgress implements extractor.ProgressSink.
func (t *mediaTracker) HandleProgress(ev extractor.ProgressEvent) {
	if ev.Phase == extractor.PhaseFinished && platform.IsVideoFile(ev.Filename) {
		t.mu.Lock()
		t.finishedMedia = true
		t.lastFile = ev.Filename
		t.mu.Unlock()
	}
	if t.next != nil {
		t.next.HandleProgress(ev)
	}
}

func (t *mediaTracker) FinishedMedia() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.finishedMedia
}

func (t *mediaTracker) LastFile() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastFile
}
