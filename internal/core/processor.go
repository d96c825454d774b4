package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/pdf2jpk/constants"
	"github.com/joseph-ayodele/pdf2jpk/internal/common"
	"github.com/joseph-ayodele/pdf2jpk/internal/entity"
	"github.com/joseph-ayodele/pdf2jpk/internal/jpk"
	"github.com/joseph-ayodele/pdf2jpk/internal/sources"
)

// Error codes for a submission that produced nothing usable.
const (
	CodeNoText  = "NO_TEXT"
	CodeNoMatch = "NO_MATCH"
)

// InputFile is one file of a submission, in submission order.
type InputFile struct {
	Path         string
	OriginalName string
	Ext          string
}

// Outcome is everything one processing run produced.
type Outcome struct {
	Records  []entity.InvoiceRecord
	XML      []byte
	Totals   jpk.Totals
	RawText  string
	Warnings []string
	Duration time.Duration
}

// Processor runs adapters, aggregates, normalizes and synthesizes one submission.
type Processor struct {
	registry *sources.Registry
	builder  *jpk.Builder
	logger   *slog.Logger
}

func NewProcessor(registry *sources.Registry, builder *jpk.Builder, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if builder == nil {
		builder = jpk.NewBuilder()
	}
	return &Processor{registry: registry, builder: builder, logger: logger}
}

// Extract returns the normalized records of all files. It never fails; an
// empty result means nothing usable was found.
func (p *Processor) Extract(ctx context.Context, files []InputFile, meta entity.JobMeta) Outcome {
	start := time.Now()
	filer := sources.Filer{NIP: meta.CompanyNIP, CompanyName: meta.CompanyName}

	names := make([]string, 0, len(files))
	results := make([]sources.Result, 0, len(files))
	for _, f := range files {
		name := f.OriginalName
		if name == "" {
			name = f.Path
		}
		names = append(names, name)
		results = append(results, p.registry.Parse(ctx, f.Path, f.Ext, filer))
	}
	raw, rawText, warnings := Aggregate(names, results)
	records := Normalize(raw, Defaults{SellerNIP: meta.CompanyNIP})

	p.logger.Info("records extracted",
		"files", len(files),
		"raw_records", len(raw),
		"records", len(records),
		"warnings", len(warnings),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return Outcome{Records: records, RawText: rawText, Warnings: warnings, Duration: time.Since(start)}
}

// Process extracts and synthesizes the filing XML. When no record survives,
// the returned error wraps common.ErrNoRecords and the Outcome still carries
// the raw text for diagnosis.
func (p *Processor) Process(ctx context.Context, files []InputFile, meta entity.JobMeta) (Outcome, error) {
	out := p.Extract(ctx, files, meta)
	if len(out.Records) == 0 {
		if strings.TrimSpace(out.RawText) == "" && !hasStructuredInput(files) {
			return out, common.NewAppError(CodeNoText, "no readable text in the submitted files", common.ErrNoRecords)
		}
		return out, common.NewAppError(CodeNoMatch, "no invoice data matched in the submitted files", common.ErrNoRecords)
	}

	xml, totals, err := p.builder.BuildXML(out.Records, jpk.MetaFromJob(meta))
	if err != nil {
		if errors.Is(err, common.ErrNoRecords) {
			return out, err
		}
		return out, fmt.Errorf("build jpk: %w", err)
	}
	out.XML = xml
	out.Totals = totals
	p.logger.Info("jpk built", "rows", totals.Rows, "net", totals.Net.String(), "vat", totals.Vat.String())
	return out, nil
}

// hasStructuredInput reports whether any file is read without text acquisition.
func hasStructuredInput(files []InputFile) bool {
	for _, f := range files {
		ext := f.Ext
		if ext == "" {
			ext = filepath.Ext(f.Path)
		}
		if format := constants.MapExtToFormat(ext); format != "" && format != constants.FormatPDF {
			return true
		}
	}
	return false
}
