package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/pdf2jpk/internal/common"
	"github.com/joseph-ayodele/pdf2jpk/internal/core"
	"github.com/joseph-ayodele/pdf2jpk/internal/export"
	"github.com/joseph-ayodele/pdf2jpk/internal/jpk"
	"github.com/joseph-ayodele/pdf2jpk/internal/ocr"
	"github.com/joseph-ayodele/pdf2jpk/internal/repository"
	"github.com/joseph-ayodele/pdf2jpk/internal/sources"
	"github.com/joseph-ayodele/pdf2jpk/internal/worker"
)

// App holds the wired components shared by the binaries.
type App struct {
	Config    *common.Config
	Logger    *slog.Logger
	Extractor *ocr.Extractor
	Processor *core.Processor
	Reporter  *export.Reporter
	Store     repository.JobStore
	Leases    repository.LeaseStore
	Worker    *worker.Worker
}

// OCRConfig maps the configuration section onto the extractor's config.
func OCRConfig(c common.OCRConfig) ocr.Config {
	return ocr.Config{
		Pdftotext:     c.PdfToText,
		Pdftoppm:      c.PdfToPPM,
		Tesseract:     c.Tesseract,
		TesseractLang: c.Languages,
		TessdataDir:   c.TessdataDir,
		DPI:           c.DPI,
		Backends:      c.Backends,
		Rasterizer:    c.Rasterizer,
		ScratchDir:    c.ScratchDir,
	}
}

// NewProcessor wires text acquisition, the three adapters and the synthesizer.
func NewProcessor(cfg *common.Config, logger *slog.Logger) (*core.Processor, *ocr.Extractor) {
	extractor := ocr.NewExtractor(OCRConfig(cfg.OCR), logger)
	registry := sources.NewRegistry(logger,
		sources.NewPDFAdapter(extractor, logger),
		sources.NewTabularAdapter(logger),
		sources.NewJPKAdapter(logger),
	)
	return core.NewProcessor(registry, jpk.NewBuilder(), logger), extractor
}

// New wires the job store, the lease store and the worker on top of the processor.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	proc, extractor := NewProcessor(cfg, logger)

	if err := os.MkdirAll(filepath.Dir(cfg.Store.LeaseDB), 0o755); err != nil {
		return nil, fmt.Errorf("create lease db dir: %w", err)
	}
	leases, err := repository.OpenLeaseStore(ctx, cfg.Store.LeaseDB, logger)
	if err != nil {
		return nil, err
	}
	store, err := repository.NewJobStore(cfg.Store.JobsDir, logger,
		repository.WithDedupe(cfg.Store.DedupeSHA),
		repository.WithLeases(leases),
	)
	if err != nil {
		_ = leases.Close()
		return nil, err
	}
	reporter := export.NewReporter(logger)
	w := worker.New(store, proc, logger,
		worker.WithLeases(leases, cfg.Store.LeaseTTL),
		worker.WithReporter(reporter),
	)
	return &App{
		Config:    cfg,
		Logger:    logger,
		Extractor: extractor,
		Processor: proc,
		Reporter:  reporter,
		Store:     store,
		Leases:    leases,
		Worker:    w,
	}, nil
}

func (a *App) Close() {
	if a.Leases != nil {
		if err := a.Leases.Close(); err != nil {
			a.Logger.Warn("lease store close failed", "error", err)
		}
	}
}

// Setup loads and validates configuration and installs the JSON logger.
func Setup() (*common.Config, *slog.Logger, error) {
	cfg, err := common.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	logger := common.NewLogger(os.Stderr, cfg.Log.Level)
	slog.SetDefault(logger)
	return cfg, logger, nil
}
