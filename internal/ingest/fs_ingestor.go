package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/pdf2jpk/constants"
	"github.com/joseph-ayodele/pdf2jpk/internal/entity"
)

// FSIngestor reads submission inputs from the local filesystem. Within one
// ingestor, a file whose content hash was already seen is reported as
// deduplicated.
type FSIngestor struct {
	SkipHidden bool
	logger     *slog.Logger
	seen       map[string]string // sha256 -> first path
}

func NewFSIngestor(skipHidden bool, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{SkipHidden: skipHidden, logger: logger, seen: map[string]string{}}
}

func (i *FSIngestor) IngestPath(ctx context.Context, path string) (FileResult, error) {
	var out FileResult
	if err := ctx.Err(); err != nil {
		return out, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, fmt.Errorf("abs path: %w", err)
	}
	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !AllowedExt(ext) {
		i.logger.Warn("unsupported or missing extension", "path", abs, "ext", ext)
		return out, fmt.Errorf("unsupported or missing extension: %q", ext)
	}

	f, err := os.Open(abs)
	if err != nil {
		return out, fmt.Errorf("open: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			i.logger.Warn("close file failed", "path", abs, "error", err)
		}
	}()
	info, err := f.Stat()
	if err != nil {
		return out, fmt.Errorf("stat: %w", err)
	}
	if info.IsDir() {
		return out, fmt.Errorf("%s is a directory", abs)
	}

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return out, fmt.Errorf("hash: %w", err)
	}
	sum := hex.EncodeToString(h.Sum(nil))

	_, dup := i.seen[sum]
	if !dup {
		i.seen[sum] = abs
	}
	return FileResult{
		SourcePath:   abs,
		HashHex:      sum,
		FileExt:      ext,
		Size:         info.Size(),
		ModifiedAt:   info.ModTime().UTC(),
		Deduplicated: dup,
	}, nil
}

// IngestDirectory walks root in lexical order, skips hidden entries if
// configured, and ingests every file with an accepted extension.
func (i *FSIngestor) IngestDirectory(ctx context.Context, root string) ([]FileResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []FileResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, FileResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if i.SkipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, path)
		if err != nil {
			results = append(results, FileResult{SourcePath: path, Err: err.Error()})
			stats.Failed++
			return nil
		}
		results = append(results, r)
		stats.Succeeded++
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}

// Collect resolves a mix of files and directories into submission inputs,
// in argument order. Unreadable or unsupported paths fail the whole call;
// duplicates are dropped.
func (i *FSIngestor) Collect(ctx context.Context, paths []string) ([]entity.SubmittedFile, DirStats, error) {
	var files []entity.SubmittedFile
	var total DirStats

	add := func(r FileResult) {
		if r.Deduplicated {
			i.logger.Info("duplicate input skipped", "path", r.SourcePath, "sha256", r.HashHex)
			return
		}
		files = append(files, entity.SubmittedFile{Path: r.SourcePath, OriginalName: filepath.Base(r.SourcePath)})
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, total, fmt.Errorf("stat %s: %w", p, err)
		}
		if !info.IsDir() {
			total.Scanned++
			total.Matched++
			r, err := i.IngestPath(ctx, p)
			if err != nil {
				total.Failed++
				return nil, total, fmt.Errorf("%s: %w", p, err)
			}
			total.Succeeded++
			if r.Deduplicated {
				total.Deduplicated++
			}
			add(r)
			continue
		}

		results, st, err := i.IngestDirectory(ctx, p)
		total.Scanned += st.Scanned
		total.Matched += st.Matched
		total.Succeeded += st.Succeeded
		total.Deduplicated += st.Deduplicated
		total.Failed += st.Failed
		if err != nil {
			return nil, total, err
		}
		for _, r := range results {
			if r.Err != "" {
				return nil, total, fmt.Errorf("%s: %s", r.SourcePath, r.Err)
			}
			add(r)
		}
	}
	i.logger.Info("inputs collected",
		"files", len(files),
		"scanned", total.Scanned,
		"deduplicated", total.Deduplicated,
	)
	return files, total, nil
}
