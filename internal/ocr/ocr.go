package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "pol+eng"
	TessdataDir   string
	DPI           int // rasterization DPI for scanned PDFs, default 300
	MaxPages      int // 0 = no limit

	// Backends lists structural extractors tried in order:
	// "ledongthuc" | "pdfcpu" | "pdftotext". Empty -> ledongthuc, pdfcpu.
	Backends []string
	// Rasterizer is "pdftoppm" (default) or "fitz".
	Rasterizer string
	// ScratchDir is the parent of per-call temp dirs; empty -> os.TempDir().
	ScratchDir string
}

const (
	MethodNone = ""
	MethodOCR  = "ocr"
)

// AcquireResult is the outcome of text acquisition for one PDF.
type AcquireResult struct {
	Text     string
	Method   string // structural backend name, "ocr", or "" when nothing was found
	Pages    int
	Warnings []string
	Duration time.Duration
}

// Empty reports whether no usable text was obtained.
func (r AcquireResult) Empty() bool { return strings.TrimSpace(r.Text) == "" }

// StructuralExtractor reads embedded text objects from a PDF.
type StructuralExtractor interface {
	Name() string
	ExtractText(ctx context.Context, path string) (text string, pages int, err error)
}

// Rasterizer renders every page of a PDF into outDir and returns the image
// paths in page order.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfPath, outDir string) ([]string, error)
}

// TextRecognizer runs optical character recognition on one page image.
type TextRecognizer interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
}

type Extractor struct {
	cfg        Config
	runner     Runner
	structural []StructuralExtractor
	rasterizer Rasterizer
	recognizer TextRecognizer
	logger     *slog.Logger
}

type Option func(*Extractor)

// WithRunner replaces the command runner used by exec-backed components.
func WithRunner(r Runner) Option { return func(e *Extractor) { e.runner = r } }

func WithStructural(s ...StructuralExtractor) Option {
	return func(e *Extractor) { e.structural = s }
}

func WithRasterizer(r Rasterizer) Option { return func(e *Extractor) { e.rasterizer = r } }

func WithRecognizer(r TextRecognizer) Option { return func(e *Extractor) { e.recognizer = r } }

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "pol+eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if len(cfg.Backends) == 0 {
		cfg.Backends = []string{BackendLedongthuc, BackendPdfcpu}
	}
	e := &Extractor{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
	for _, o := range opts {
		o(e)
	}
	// exec-backed defaults are built after options so they pick up WithRunner.
	if e.structural == nil {
		e.structural = e.defaultStructural()
	}
	if e.rasterizer == nil {
		if cfg.Rasterizer == "fitz" {
			e.rasterizer = FitzRasterizer{DPI: cfg.DPI, MaxPages: cfg.MaxPages}
		} else {
			e.rasterizer = PdftoppmRasterizer{Bin: cfg.Pdftoppm, DPI: cfg.DPI, MaxPages: cfg.MaxPages, Runner: e.runner}
		}
	}
	if e.recognizer == nil {
		e.recognizer = TesseractRecognizer{
			Bin:         cfg.Tesseract,
			Lang:        cfg.TesseractLang,
			TessdataDir: cfg.TessdataDir,
			Runner:      e.runner,
		}
	}
	return e
}

func (e *Extractor) defaultStructural() []StructuralExtractor {
	var out []StructuralExtractor
	for _, name := range e.cfg.Backends {
		switch name {
		case BackendLedongthuc:
			out = append(out, LedongthucExtractor{})
		case BackendPdfcpu:
			out = append(out, PdfcpuExtractor{})
		case BackendPdftotext:
			out = append(out, PdftotextExtractor{Bin: e.cfg.Pdftotext, Runner: e.runner})
		default:
			e.logger.Warn("unknown structural backend ignored", "backend", name)
		}
	}
	return out
}

// Acquire returns the text content of a PDF. Structural backends are tried in
// order and the first non-blank result wins; only when all of them come back
// blank are the pages rasterized and recognized. Failures end up as warnings
// and an empty Text, never as an error.
func (e *Extractor) Acquire(ctx context.Context, path string) AcquireResult {
	start := time.Now()
	var res AcquireResult

	for _, s := range e.structural {
		txt, pages, err := s.ExtractText(ctx, path)
		if pages > res.Pages {
			res.Pages = pages
		}
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %v", s.Name(), err))
			e.logger.Debug("structural extraction failed", "path", path, "backend", s.Name(), "error", err)
			continue
		}
		if strings.TrimSpace(txt) != "" {
			res.Text = Normalize(txt)
			res.Method = s.Name()
			res.Duration = time.Since(start)
			e.logger.Info("text acquired", "path", path, "method", res.Method, "pages", res.Pages,
				"chars", len(res.Text), "duration_ms", res.Duration.Milliseconds())
			return res
		}
	}

	txt, pages, warns, err := e.ocrPages(ctx, path)
	res.Warnings = append(res.Warnings, warns...)
	if pages > 0 {
		res.Pages = pages
	}
	if err != nil {
		res.Warnings = append(res.Warnings, err.Error())
		e.logger.Warn("ocr fallback failed", "path", path, "error", err)
	} else if strings.TrimSpace(txt) != "" {
		res.Text = Normalize(txt)
		res.Method = MethodOCR
	}
	res.Duration = time.Since(start)
	e.logger.Info("text acquired", "path", path, "method", res.Method, "pages", res.Pages,
		"chars", len(res.Text), "warnings", len(res.Warnings), "duration_ms", res.Duration.Milliseconds())
	return res
}

func (e *Extractor) ocrPages(ctx context.Context, path string) (text string, pages int, warnings []string, err error) {
	tmpDir, err := os.MkdirTemp(e.cfg.ScratchDir, "pdf2jpk-ocr-*")
	if err != nil {
		return "", 0, nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer func(dir string) {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			e.logger.Warn("failed to remove scratch dir", "dir", dir, "error", rmErr)
		}
	}(tmpDir)

	images, err := e.rasterizer.Rasterize(ctx, path, tmpDir)
	if err != nil {
		return "", 0, nil, fmt.Errorf("rasterize: %w", err)
	}
	if len(images) == 0 {
		return "", 0, nil, fmt.Errorf("rasterize: no pages rendered")
	}

	var b strings.Builder
	for i, img := range images {
		if ctx.Err() != nil {
			return b.String(), len(images), warnings, ctx.Err()
		}
		txt, rerr := e.recognizer.Recognize(ctx, img)
		if rerr != nil {
			warnings = append(warnings, fmt.Sprintf("page %d: %v", i+1, rerr))
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(txt)
	}
	return b.String(), len(images), warnings, nil
}
