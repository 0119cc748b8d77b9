package platform

// Package platform contains small, dependency-free building blocks: filename
// sanitization, URL type detection, and filesystem helpers.
