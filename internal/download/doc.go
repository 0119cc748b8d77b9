package download

// Package download implements the core orchestration pipeline: URL
// classification, dedup-aware collection enumeration, paced per-item fetching
// through the extraction engine, progress normalization, and workflow
// manifest bookkeeping. All failures surface as typed results, never as
// panics or unhandled errors past Download.
