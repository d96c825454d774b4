package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/pdf2jpk/internal/app"
	"github.com/joseph-ayodele/pdf2jpk/internal/common"
	"github.com/joseph-ayodele/pdf2jpk/internal/core"
	"github.com/joseph-ayodele/pdf2jpk/internal/entity"
	"github.com/joseph-ayodele/pdf2jpk/internal/export"
	"github.com/joseph-ayodele/pdf2jpk/internal/ingest"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir     = flag.String("dir", "", "directory with invoices to convert (required)")
		out     = flag.String("out", "", "output XML path (optional, defaults to <dir>/../JPK_V7M.xml)")
		report  = flag.String("report", "", "output XLSX review report (optional)")
		nip     = flag.String("nip", "", "filer NIP (default FILER_NIP)")
		company = flag.String("company", "", "filer company name (default FILER_COMPANY_NAME)")
		period  = flag.String("period", "", "reporting period YYYY-MM (optional)")
		diag    = flag.String("diag", "", "write acquired raw text here when nothing matches (optional)")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(filepath.Clean(*dir)), "JPK_V7M.xml")
	}

	cfg, logger, err := app.Setup()
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	ctx := context.Background()

	meta := cfg.Filer.Apply(entity.JobMeta{CompanyNIP: *nip, CompanyName: *company, Period: *period})
	if err := common.ValidateJobMeta(meta); err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	ingestor := ingest.NewFSIngestor(true, logger)
	logger.Info("starting ingestion", "dir", *dir)
	results, stats, err := ingestor.IngestDirectory(ctx, *dir)
	if err != nil {
		logger.Error("failed to ingest directory", "error", err)
		os.Exit(1)
	}

	var inputs []core.InputFile
	for _, r := range results {
		if r.Err != "" || r.Deduplicated {
			continue
		}
		inputs = append(inputs, core.InputFile{Path: r.SourcePath, OriginalName: filepath.Base(r.SourcePath), Ext: r.FileExt})
	}
	logger.Info("ingestion complete",
		"files", len(inputs),
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"failed", stats.Failed,
		"deduplicated", stats.Deduplicated)

	proc, _ := app.NewProcessor(cfg, logger)
	outcome, err := proc.Process(ctx, inputs, meta)
	if err != nil {
		logger.Error("conversion failed", "error", err, "warnings", len(outcome.Warnings))
		if *diag != "" && strings.TrimSpace(outcome.RawText) != "" {
			if werr := os.WriteFile(*diag, []byte(outcome.RawText), 0o644); werr != nil {
				logger.Error("failed to write diagnostic text", "error", werr)
			}
		}
		os.Exit(1)
	}

	if err := os.WriteFile(*out, outcome.XML, 0o644); err != nil {
		logger.Error("failed to write output file", "error", err)
		os.Exit(1)
	}
	if *report != "" {
		data, err := export.NewReporter(logger).RecordsXLSX(filepath.Base(*dir), outcome.Records)
		if err != nil {
			logger.Error("failed to build report", "error", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*report, data, 0o644); err != nil {
			logger.Error("failed to write report", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("batch conversion complete",
		"files", len(inputs),
		"records", outcome.Totals.Rows,
		"net", outcome.Totals.Net.String(),
		"vat", outcome.Totals.Vat.String(),
		"output_file", *out)

	fmt.Printf("Batch conversion complete!\n")
	fmt.Printf("- Files read: %d\n", len(inputs))
	fmt.Printf("- Records: %d\n", outcome.Totals.Rows)
	fmt.Printf("- Net total: %s PLN, VAT total: %s PLN\n", outcome.Totals.Net.String(), outcome.Totals.Vat.String())
	fmt.Printf("- Output: %s\n", *out)
	if *report != "" {
		fmt.Printf("- Report: %s\n", *report)
	}
}
