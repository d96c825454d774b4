package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pdf2jpk/internal/common"
	"github.com/joseph-ayodele/pdf2jpk/internal/entity"
	"github.com/joseph-ayodele/pdf2jpk/internal/money"
	"github.com/joseph-ayodele/pdf2jpk/internal/ocr"
	"github.com/joseph-ayodele/pdf2jpk/internal/sources"
)

const e2eText = "Wartość netto 100,00 PLN\nWartość VAT 23,00 PLN\nFaktura numer: FV/1/2024\nData wystawienia: 2024-03-01\nNIP 1111111111\nNIP 2222222222"

type textByPath map[string]string

func (m textByPath) Acquire(_ context.Context, path string) ocr.AcquireResult {
	return ocr.AcquireResult{Text: m[filepath.Base(path)]}
}

func newProcessor(texts textByPath) *Processor {
	reg := sources.NewRegistry(nil,
		sources.NewPDFAdapter(texts, nil),
		sources.NewTabularAdapter(nil),
		sources.NewJPKAdapter(nil),
	)
	return NewProcessor(reg, nil, nil)
}

var meta = entity.JobMeta{CompanyName: "Firma Testowa", CompanyNIP: "1111111111", OfficeCode: "1475", Purpose: 1}

func TestNormalize(t *testing.T) {
	in := []entity.InvoiceRecord{
		{InvoiceNumber: "  FV/1 ", BuyerNIP: "PL 222-222-22-22"},
		{InvoiceNumber: ""},
		{InvoiceNumber: "FV/2", SellerNIP: "9999999999", Currency: "EUR", BuyerNIP: "brak"},
	}
	out := Normalize(in, Defaults{SellerNIP: "1111111111"})
	require.Len(t, out, 2)

	assert.Equal(t, "FV/1", out[0].InvoiceNumber)
	assert.Equal(t, "1111111111", out[0].SellerNIP)
	assert.Equal(t, "PLN", out[0].Currency)
	assert.Equal(t, "2222222222", out[0].BuyerNIP)

	assert.Equal(t, "9999999999", out[1].SellerNIP, "present values are kept")
	assert.Equal(t, "EUR", out[1].Currency)
	assert.Equal(t, "BRAK", out[1].BuyerNIP)
}

func TestAggregate_PreservesFileOrder(t *testing.T) {
	recs, raw, warns := Aggregate([]string{"a.pdf", "b.csv"}, []sources.Result{
		{Records: []entity.InvoiceRecord{{InvoiceNumber: "A1"}, {InvoiceNumber: "A2"}}, RawText: "tekst A"},
		{Records: []entity.InvoiceRecord{{InvoiceNumber: "B1"}}, Warnings: []string{"missing columns"}},
	})
	require.Len(t, recs, 3)
	assert.Equal(t, []string{"A1", "A2", "B1"}, []string{recs[0].InvoiceNumber, recs[1].InvoiceNumber, recs[2].InvoiceNumber})
	assert.Contains(t, raw, "===== a.pdf =====\ntekst A")
	assert.Equal(t, []string{"b.csv: missing columns"}, warns)
}

func TestProcess_EndToEnd(t *testing.T) {
	p := newProcessor(textByPath{"file-1.pdf": e2eText})
	out, err := p.Process(context.Background(), []InputFile{{Path: "/jobs/j/file-1.pdf", OriginalName: "fv1.pdf", Ext: "pdf"}}, meta)
	require.NoError(t, err)

	require.Len(t, out.Records, 1)
	r := out.Records[0]
	assert.Equal(t, "FV/1/2024", r.InvoiceNumber)
	assert.Equal(t, "2024-03-01", r.IssueDate)
	assert.Equal(t, "2222222222", r.BuyerNIP)
	assert.Equal(t, money.Amount(10000), r.Net())
	assert.Equal(t, money.Amount(2300), r.Vat())
	assert.Equal(t, "1111111111", r.SellerNIP)

	assert.Equal(t, 1, out.Totals.Rows)
	assert.Contains(t, string(out.XML), "<tns:P_19>100.00</tns:P_19>")
	assert.Contains(t, string(out.XML), "<tns:P_20>23.00</tns:P_20>")
	assert.Contains(t, string(out.XML), "<tns:NrKontrahenta>2222222222</tns:NrKontrahenta>")
}

func TestProcess_NoText(t *testing.T) {
	p := newProcessor(textByPath{})
	out, err := p.Process(context.Background(), []InputFile{{Path: "/jobs/j/file-1.pdf", Ext: "pdf"}}, meta)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrNoRecords))
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, CodeNoText, appErr.Code)
	assert.Empty(t, out.XML)
}

func TestProcess_NoMatchKeepsRawText(t *testing.T) {
	p := newProcessor(textByPath{"file-1.pdf": "Paragon fiskalny nr 12"})
	out, err := p.Process(context.Background(), []InputFile{{Path: "/jobs/j/file-1.pdf", OriginalName: "scan.pdf", Ext: "pdf"}}, meta)
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, CodeNoMatch, appErr.Code)
	assert.Contains(t, out.RawText, "Paragon fiskalny nr 12")
}

func TestProcess_MixedSourcesInSubmissionOrder(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "file-2.csv")
	csv := "Data sprzedaży;Numer faktury;Numer dopłaty;Numer zamówienia;Netto 23%;Netto 8%;Netto 5%;Netto 0%;VAT 23%;VAT 8%;VAT 5%;VAT 0%\n" +
		"2 marca 2024;FV/9;;;10,00;;;;2,30;;;\n"
	require.NoError(t, os.WriteFile(csvPath, []byte(csv), 0o644))

	p := newProcessor(textByPath{"file-1.pdf": e2eText})
	out, err := p.Process(context.Background(), []InputFile{
		{Path: filepath.Join(dir, "file-1.pdf"), Ext: "pdf"},
		{Path: csvPath, Ext: "csv"},
	}, meta)
	require.NoError(t, err)
	require.Len(t, out.Records, 2)
	assert.Equal(t, "FV/1/2024", out.Records[0].InvoiceNumber)
	assert.Equal(t, "FV/9", out.Records[1].InvoiceNumber)
	assert.Equal(t, "BRAK", out.Records[1].BuyerNIP)
	assert.Equal(t, money.Amount(11000), out.Totals.Net)
	assert.Contains(t, string(out.XML), "<tns:P_20>25.30</tns:P_20>")
}
