package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/pdf2jpk/internal/entity"
)

const reportSheet = "Faktury"

var reportHeaders = []string{
	"Lp.",
	"Numer faktury",
	"Data wystawienia",
	"Data sprzedaży",
	"NIP nabywcy",
	"Nabywca",
	"Netto",
	"VAT",
	"Brutto",
	"Stawka VAT",
	"Waluta",
	"Plik źródłowy",
}

// Reporter renders the extracted records as a workbook for manual review.
type Reporter struct {
	logger *slog.Logger
}

func NewReporter(logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{logger: logger}
}

// RecordsXLSX returns the workbook bytes. A totals row follows the records.
func (r *Reporter) RecordsXLSX(jobID string, records []entity.InvoiceRecord) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	for i, h := range reportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(reportSheet, cell, h)
	}

	row := 2
	write := func(col int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(reportSheet, cell, v)
	}
	var net, vat, gross float64
	for i, rec := range records {
		write(1, i+1)
		write(2, rec.InvoiceNumber)
		write(3, rec.IssueDate)
		write(4, rec.SellDate)
		write(5, rec.BuyerNIP)
		write(6, rec.BuyerName)
		write(7, rec.Net().Float())
		write(8, rec.Vat().Float())
		g := rec.Net().Float() + rec.Vat().Float()
		if rec.GrossAmount != nil {
			g = rec.GrossAmount.Float()
		}
		write(9, g)
		write(10, rec.VatRate)
		write(11, rec.Currency)
		write(12, rec.Source)

		net += rec.Net().Float()
		vat += rec.Vat().Float()
		gross += g
		row++
	}
	write(6, "Razem")
	write(7, net)
	write(8, vat)
	write(9, gross)

	if style, err := f.NewStyle(&excelize.Style{NumFmt: 4}); err == nil { // #,##0.00
		last, _ := excelize.CoordinatesToCellName(9, row)
		_ = f.SetCellStyle(reportSheet, "G2", last, style)
	}
	if bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(reportSheet, "A1", "L1", bold)
	}

	_ = f.SetColWidth(reportSheet, "A", "A", 6)
	_ = f.SetColWidth(reportSheet, "B", "B", 24)
	_ = f.SetColWidth(reportSheet, "C", "E", 14)
	_ = f.SetColWidth(reportSheet, "F", "F", 36)
	_ = f.SetColWidth(reportSheet, "G", "I", 14)
	_ = f.SetColWidth(reportSheet, "J", "K", 10)
	_ = f.SetColWidth(reportSheet, "L", "L", 32)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	r.logger.Info("report.xlsx.ok",
		"job_id", jobID,
		"rows", len(records),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
