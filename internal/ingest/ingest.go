package ingest

import (
	"context"
	"time"
)

// FileResult is the per-file collection outcome.
type FileResult struct {
	SourcePath   string
	HashHex      string
	FileExt      string
	Size         int64
	ModifiedAt   time.Time
	Deduplicated bool
	Err          string
}

// DirStats summarizes a collection run.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// Ingestor finds submission inputs on disk.
type Ingestor interface {
	// IngestPath checks and hashes a single file.
	IngestPath(ctx context.Context, path string) (FileResult, error)
	// IngestDirectory collects all matching files under root.
	IngestDirectory(ctx context.Context, root string) ([]FileResult, DirStats, error)
}
