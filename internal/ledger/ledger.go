// Package ledger persists the set of already-downloaded item identifiers.
// The file is the source of truth: it is re-read on every query so that
// concurrent processes sharing a download root observe each other's writes.
package ledger

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/gofrs/flock"
)

const (
	// RecordFileName is the ledger file kept at the download root.
	RecordFileName = ".downloaded_items.json"

	// lockFileName guards the read-modify-write cycle across processes.
	lockFileName = ".downloaded_items.lock"

	recordFilePermissions = 0644
)

type recordFile struct {
	VideoIDs []string `json:"video_ids"`
}

// Ledger tracks downloaded item IDs in a single shared JSON file. Mutations
// take an advisory file lock plus a process-local mutex, so concurrent
// recorders merge instead of overwriting each other.
type Ledger struct {
	path     string
	lockPath string
	mu       sync.Mutex
	logger   *log.Logger
}

// New returns a ledger rooted at the given download directory.
func New(downloadDir string, logger *log.Logger) *Ledger {
	return &Ledger{
		path:     filepath.Join(downloadDir, RecordFileName),
		lockPath: filepath.Join(downloadDir, lockFileName),
		logger:   logger,
	}
}

// Load reads the persisted ID set. A missing or unparsable file is treated as
// "nothing recorded yet": dedup is an optimization, never a gate.
func (l *Ledger) Load() map[string]struct{} {
	ids := make(map[string]struct{})

	data, err := os.ReadFile(l.path)
	if err != nil {
		if !os.IsNotExist(err) {
			l.logger.Printf("ledger: failed to read %s: %v", l.path, err)
		}
		return ids
	}

	var rec recordFile
	if err := json.Unmarshal(data, &rec); err != nil {
		l.logger.Printf("ledger: failed to parse %s, treating as empty: %v", l.path, err)
		return ids
	}

	for _, id := range rec.VideoIDs {
		ids[id] = struct{}{}
	}
	return ids
}

// Contains reports whether the ID has been recorded.
func (l *Ledger) Contains(id string) bool {
	_, ok := l.Load()[id]
	return ok
}

// Record adds an ID to the ledger. The whole load-mutate-save sequence runs
// under an exclusive lock. Failures are logged and swallowed.
func (l *Ledger) Record(id string) {
	if id == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fileLock := flock.New(l.lockPath)
	if err := fileLock.Lock(); err != nil {
		l.logger.Printf("ledger: failed to acquire lock %s: %v", l.lockPath, err)
	} else {
		defer func() {
			if err := fileLock.Unlock(); err != nil {
				l.logger.Printf("ledger: failed to release lock: %v", err)
			}
		}()
	}

	ids := l.Load()
	ids[id] = struct{}{}

	sorted := make([]string, 0, len(ids))
	for v := range ids {
		sorted = append(sorted, v)
	}
	sort.Strings(sorted)

	data, err := json.MarshalIndent(recordFile{VideoIDs: sorted}, "", "  ")
	if err != nil {
		l.logger.Printf("ledger: failed to encode record: %v", err)
		return
	}
	if err := os.WriteFile(l.path, data, recordFilePermissions); err != nil {
		l.logger.Printf("ledger: failed to write %s: %v", l.path, err)
	}
}
