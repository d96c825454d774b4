package sources

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/pdf2jpk/constants"
	"github.com/joseph-ayodele/pdf2jpk/internal/entity"
	"github.com/joseph-ayodele/pdf2jpk/internal/extract"
	"github.com/joseph-ayodele/pdf2jpk/internal/money"
)

// Column names of the sales-ledger export, matched case-insensitively.
const (
	colSellDate    = "data sprzedaży"
	colInvoice     = "numer faktury"
	colSubsidy     = "numer dopłaty"
	colOrder       = "numer zamówienia"
	colBuyerNIP    = "nip nabywcy"
	colBuyerName   = "nabywca"
	netColPrefix   = "netto "
	vatColPrefix   = "vat "
	utf8BOM        = "\ufeff"
	maxSniffLength = 4096
)

// rateBuckets are the VAT rates the export splits amounts into.
var rateBuckets = []string{"23", "8", "5", "0"}

// RequiredColumns must all be present for a file to be read as a ledger export.
var RequiredColumns = func() []string {
	cols := []string{colSellDate, colInvoice, colSubsidy, colOrder}
	for _, r := range rateBuckets {
		cols = append(cols, netColPrefix+r+"%")
	}
	for _, r := range rateBuckets {
		cols = append(cols, vatColPrefix+r+"%")
	}
	return cols
}()

// TabularAdapter reads sales-ledger exports (CSV/TSV or the first sheet of
// an XLSX workbook) and merges rows sharing an invoice, subsidy or order id.
type TabularAdapter struct {
	logger *slog.Logger
}

func NewTabularAdapter(logger *slog.Logger) *TabularAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &TabularAdapter{logger: logger}
}

func (a *TabularAdapter) Format() constants.SourceFormat { return constants.FormatTabular }

func (a *TabularAdapter) Parse(_ context.Context, path string, _ Filer) Result {
	var rows [][]string
	var err error
	if constants.IsSpreadsheetExt(filepath.Ext(path)) {
		rows, err = readWorkbook(path)
	} else {
		rows, err = readDelimited(path)
	}
	if err != nil {
		a.logger.Warn("tabular read failed", "path", path, "error", err)
		return Result{Warnings: []string{err.Error()}}
	}
	recs, err := ledgerRecords(rows)
	if err != nil {
		a.logger.Warn("not a sales ledger export", "path", path, "error", err)
		return Result{Warnings: []string{err.Error()}}
	}
	a.logger.Info("tabular parsed", "path", path, "rows", len(rows)-1, "records", len(recs))
	return Result{Records: recs}
}

func readWorkbook(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

func readDelimited(path string) ([][]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	b = bytes.TrimPrefix(b, []byte(utf8BOM))

	r := csv.NewReader(bytes.NewReader(b))
	r.Comma = sniffDelimiter(b)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse delimited: %w", err)
	}
	return rows, nil
}

// sniffDelimiter picks the most frequent of ';', '\t' and ',' in the header line.
func sniffDelimiter(b []byte) rune {
	if len(b) > maxSniffLength {
		b = b[:maxSniffLength]
	}
	header := string(b)
	if i := strings.IndexByte(header, '\n'); i >= 0 {
		header = header[:i]
	}
	best, bestN := ';', 0
	for _, c := range []rune{';', '\t', ','} {
		if n := strings.Count(header, string(c)); n > bestN {
			best, bestN = c, n
		}
	}
	return best
}

type ledgerEntry struct {
	rec     entity.InvoiceRecord
	net     money.Amount
	vat     money.Amount
	buckets map[string]bool
}

// ledgerRecords aggregates data rows by key in first-seen order.
func ledgerRecords(rows [][]string) ([]entity.InvoiceRecord, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty file")
	}
	idx := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, utf8BOM)))] = i
	}
	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := idx[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}

	cell := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var order []string
	entries := make(map[string]*ledgerEntry)
	for _, row := range rows[1:] {
		key := firstNonEmpty(cell(row, colInvoice), cell(row, colSubsidy), cell(row, colOrder))
		if key == "" {
			continue
		}
		e, ok := entries[key]
		if !ok {
			e = &ledgerEntry{rec: entity.InvoiceRecord{InvoiceNumber: key}, buckets: map[string]bool{}}
			entries[key] = e
			order = append(order, key)
		}
		if e.rec.SellDate == "" {
			if d, ok := extract.ParseDate(cell(row, colSellDate)); ok {
				e.rec.SellDate, e.rec.IssueDate = d, d
			}
		}
		if e.rec.BuyerNIP == "" {
			e.rec.BuyerNIP = cell(row, colBuyerNIP)
		}
		if e.rec.BuyerName == "" {
			e.rec.BuyerName = cell(row, colBuyerName)
		}
		for _, r := range rateBuckets {
			net, _ := money.ParseLoose(cell(row, netColPrefix+r+"%"))
			vat, _ := money.ParseLoose(cell(row, vatColPrefix+r+"%"))
			e.net += net
			e.vat += vat
			if net != 0 || vat != 0 {
				e.buckets[r] = true
			}
		}
	}

	out := make([]entity.InvoiceRecord, 0, len(order))
	for _, key := range order {
		e := entries[key]
		rec := e.rec
		rec.NetAmount = money.Ptr(e.net)
		rec.VatAmount = money.Ptr(e.vat)
		rec.GrossAmount = money.Ptr(e.net + e.vat)
		if len(e.buckets) == 1 {
			for r := range e.buckets {
				rec.VatRate = r
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
