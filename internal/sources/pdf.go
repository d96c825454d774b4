package sources

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/pdf2jpk/constants"
	"github.com/joseph-ayodele/pdf2jpk/internal/extract"
	"github.com/joseph-ayodele/pdf2jpk/internal/ocr"
)

// TextAcquirer obtains the text of a PDF; *ocr.Extractor implements it.
type TextAcquirer interface {
	Acquire(ctx context.Context, path string) ocr.AcquireResult
}

// PDFAdapter acquires text and runs the field extraction engine on it.
type PDFAdapter struct {
	acquirer TextAcquirer
	logger   *slog.Logger
}

func NewPDFAdapter(acquirer TextAcquirer, logger *slog.Logger) *PDFAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFAdapter{acquirer: acquirer, logger: logger}
}

func (a *PDFAdapter) Format() constants.SourceFormat { return constants.FormatPDF }

func (a *PDFAdapter) Parse(ctx context.Context, path string, filer Filer) Result {
	acq := a.acquirer.Acquire(ctx, path)
	res := Result{RawText: acq.Text, Warnings: acq.Warnings}
	if acq.Empty() {
		a.logger.Warn("no text acquired", "path", path, "warnings", len(acq.Warnings))
		return res
	}
	res.Records = extract.NewEngine(filer.NIP, filer.CompanyName, a.logger).ExtractAll(acq.Text)
	a.logger.Info("pdf parsed", "path", path, "method", acq.Method, "records", len(res.Records))
	return res
}
