package sources

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/joseph-ayodele/pdf2jpk/constants"
	"github.com/joseph-ayodele/pdf2jpk/internal/entity"
)

// Filer identifies the company the records are reported for.
type Filer struct {
	NIP         string
	CompanyName string
}

// Result is what an adapter produced from one file. RawText carries the
// acquired text of PDF inputs so callers can show it when no record survives.
type Result struct {
	Records  []entity.InvoiceRecord
	RawText  string
	Warnings []string
}

// Adapter turns one input file into zero or more raw invoice records.
// Unreadable input or a format mismatch yields an empty Result, not an error.
type Adapter interface {
	Format() constants.SourceFormat
	Parse(ctx context.Context, path string, filer Filer) Result
}

// Registry routes files to adapters by their original extension.
type Registry struct {
	adapters map[constants.SourceFormat]Adapter
	logger   *slog.Logger
}

func NewRegistry(logger *slog.Logger, adapters ...Adapter) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{adapters: make(map[constants.SourceFormat]Adapter), logger: logger}
	for _, a := range adapters {
		r.adapters[a.Format()] = a
	}
	return r
}

// ForExt returns the adapter for an extension such as "pdf" or ".CSV".
func (r *Registry) ForExt(ext string) (Adapter, bool) {
	format := constants.MapExtToFormat(constants.NormalizeExt(ext))
	a, ok := r.adapters[format]
	return a, ok
}

// Parse runs the adapter selected by ext. Files with no matching adapter
// produce an empty Result with a warning.
func (r *Registry) Parse(ctx context.Context, path, ext string, filer Filer) Result {
	if ext == "" {
		ext = filepath.Ext(path)
	}
	a, ok := r.ForExt(ext)
	if !ok {
		r.logger.Warn("no adapter for extension", "path", path, "ext", ext)
		return Result{Warnings: []string{"unsupported extension: " + ext}}
	}
	res := a.Parse(ctx, path, filer)
	for i := range res.Records {
		if res.Records[i].Source == "" {
			res.Records[i].Source = filepath.Base(path)
		}
	}
	r.logger.Debug("source parsed", "path", path, "format", a.Format(), "records", len(res.Records))
	return res
}
