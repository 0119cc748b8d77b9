package extractor

// Package extractor defines the contract between the download orchestrator
// and the media extraction engine. The engine is an external, network-bound
// collaborator; everything here is the boundary the core depends on.
