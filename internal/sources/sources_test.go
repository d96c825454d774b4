package sources

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/pdf2jpk/internal/entity"
	"github.com/joseph-ayodele/pdf2jpk/internal/jpk"
	"github.com/joseph-ayodele/pdf2jpk/internal/money"
	"github.com/joseph-ayodele/pdf2jpk/internal/ocr"
)

var testFiler = Filer{NIP: "1111111111", CompanyName: "Firma Testowa"}

type fakeAcquirer struct {
	text  string
	calls int
}

func (f *fakeAcquirer) Acquire(context.Context, string) ocr.AcquireResult {
	f.calls++
	return ocr.AcquireResult{Text: f.text, Method: "fake"}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestPDFAdapter(t *testing.T) {
	acq := &fakeAcquirer{text: "Wartość netto 100,00 PLN\nWartość VAT 23,00 PLN\nFaktura numer: FV/1/2024\nNIP 1111111111\nNIP 2222222222"}
	res := NewPDFAdapter(acq, nil).Parse(context.Background(), "a.pdf", testFiler)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "2222222222", res.Records[0].BuyerNIP)
	assert.Equal(t, acq.text, res.RawText)

	empty := NewPDFAdapter(&fakeAcquirer{text: " "}, nil).Parse(context.Background(), "b.pdf", testFiler)
	assert.Empty(t, empty.Records)

	noMatch := NewPDFAdapter(&fakeAcquirer{text: "Paragon fiskalny"}, nil).Parse(context.Background(), "c.pdf", testFiler)
	assert.Empty(t, noMatch.Records)
	assert.Equal(t, "Paragon fiskalny", noMatch.RawText)
}

const ledgerHeader = "Data sprzedaży;Numer faktury;Numer dopłaty;Numer zamówienia;Netto 23%;Netto 8%;Netto 5%;Netto 0%;VAT 23%;VAT 8%;VAT 5%;VAT 0%"

func TestTabularAdapter_AggregatesByKey(t *testing.T) {
	csv := strings.Join([]string{
		ledgerHeader,
		"15 stycznia 2024;FV/1;;Z-1;100,00;;;;23,00;;;",
		"bad date;FV/1;;;1 000,50;;;;230,12;;;",
		";;D-7;;10,00;;;;abc;;;",
		";;;Z-9;;50,00;;;;4,00;;",
		";;;;999,00;;;;1,00;;;",
		"16 sty 2024;FV/1;;;;;;;;;;",
	}, "\n")
	res := NewTabularAdapter(nil).Parse(context.Background(), writeFile(t, "ledger.csv", csv), testFiler)
	require.Len(t, res.Records, 3)

	fv := res.Records[0]
	assert.Equal(t, "FV/1", fv.InvoiceNumber)
	assert.Equal(t, "2024-01-15", fv.SellDate, "first parsed date is kept")
	assert.Equal(t, "2024-01-15", fv.IssueDate)
	assert.Equal(t, "1100.50", fv.NetAmount.String())
	assert.Equal(t, "253.12", fv.VatAmount.String())
	assert.Equal(t, "1353.62", fv.GrossAmount.String())
	assert.Equal(t, "23", fv.VatRate)

	assert.Equal(t, "D-7", res.Records[1].InvoiceNumber)
	assert.Equal(t, "10.00", res.Records[1].NetAmount.String())
	assert.Equal(t, "0.00", res.Records[1].VatAmount.String(), "unparseable amount counts as zero")
	assert.Empty(t, res.Records[1].SellDate)

	assert.Equal(t, "Z-9", res.Records[2].InvoiceNumber)
	assert.Equal(t, "8", res.Records[2].VatRate)
}

func TestTabularAdapter_MissingColumnYieldsNothing(t *testing.T) {
	header := strings.Replace(ledgerHeader, ";VAT 0%", "", 1)
	csv := header + "\n15 stycznia 2024;FV/1;;;100,00;;;;23,00;;\n"
	res := NewTabularAdapter(nil).Parse(context.Background(), writeFile(t, "ledger.csv", csv), testFiler)
	assert.Empty(t, res.Records)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "vat 0%")
}

func TestTabularAdapter_CommaDelimitedWithBOMAndOptionalColumns(t *testing.T) {
	header := strings.ReplaceAll(ledgerHeader, ";", ",") + ",NIP nabywcy,Nabywca"
	csv := "\ufeff" + header + "\n" + `2024-02-03,FV/2,,,"1.234,50",,,,"283,94",,,,2222222222,Kupiec` + "\n"
	res := NewTabularAdapter(nil).Parse(context.Background(), writeFile(t, "ledger.csv", csv), testFiler)
	require.Len(t, res.Records, 1)
	r := res.Records[0]
	assert.Equal(t, "2024-02-03", r.SellDate)
	assert.Equal(t, "1234.50", r.NetAmount.String())
	assert.Equal(t, "2222222222", r.BuyerNIP)
	assert.Equal(t, "Kupiec", r.BuyerName)
}

func TestTabularAdapter_XLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	cols := strings.Split(ledgerHeader, ";")
	for i, c := range cols {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue(sheet, cell, c))
	}
	require.NoError(t, f.SetCellValue(sheet, "A2", "1 lutego 2024"))
	require.NoError(t, f.SetCellValue(sheet, "B2", "FV/X"))
	require.NoError(t, f.SetCellValue(sheet, "F2", "50,00"))
	require.NoError(t, f.SetCellValue(sheet, "J2", "4,00"))
	p := filepath.Join(t.TempDir(), "ledger.xlsx")
	require.NoError(t, f.SaveAs(p))

	res := NewTabularAdapter(nil).Parse(context.Background(), p, testFiler)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "FV/X", res.Records[0].InvoiceNumber)
	assert.Equal(t, "2024-02-01", res.Records[0].SellDate)
	assert.Equal(t, "54.00", res.Records[0].GrossAmount.String())
	assert.Equal(t, "8", res.Records[0].VatRate)
}

func TestJPKAdapter_RoundTrip(t *testing.T) {
	in := []entity.InvoiceRecord{
		{InvoiceNumber: "FV/1/2024", IssueDate: "2024-03-01", SellDate: "2024-03-01", BuyerNIP: "2222222222",
			BuyerName: "Kupiec", NetAmount: money.Ptr(10000), VatAmount: money.Ptr(2300)},
		{InvoiceNumber: "FV/2/2024", IssueDate: "2024-03-05", SellDate: "2024-02-28",
			NetAmount: money.Ptr(123456), VatAmount: money.Ptr(28395)},
	}
	b := &jpk.Builder{Now: func() time.Time { return time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC) }}
	out, _, err := b.BuildXML(in, jpk.Meta{FilerNIP: "1111111111"})
	require.NoError(t, err)

	res := NewJPKAdapter(nil).Parse(context.Background(), writeFile(t, "jpk.xml", string(out)), Filer{})
	require.Len(t, res.Records, len(in))
	for i, got := range res.Records {
		want := in[i]
		assert.Equal(t, want.InvoiceNumber, got.InvoiceNumber)
		assert.Equal(t, want.IssueDate, got.IssueDate)
		assert.Equal(t, want.SellDate, got.SellDate)
		assert.Equal(t, want.Net(), got.Net())
		assert.Equal(t, want.Vat(), got.Vat())
		assert.Equal(t, "1111111111", got.SellerNIP)
	}
	assert.Empty(t, res.Records[1].BuyerNIP, "BRAK reads back as unknown")
}

func TestJPKAdapter_Unparseable(t *testing.T) {
	res := NewJPKAdapter(nil).Parse(context.Background(), writeFile(t, "bad.xml", "<tns:JPK><oops"), testFiler)
	assert.Empty(t, res.Records)
	assert.NotEmpty(t, res.Warnings)

	res = NewJPKAdapter(nil).Parse(context.Background(), filepath.Join(t.TempDir(), "missing.xml"), testFiler)
	assert.Empty(t, res.Records)
}

func TestRegistry(t *testing.T) {
	acq := &fakeAcquirer{text: "Faktura numer: R/1"}
	reg := NewRegistry(nil, NewPDFAdapter(acq, nil), NewTabularAdapter(nil), NewJPKAdapter(nil))

	for ext, ok := range map[string]bool{"pdf": true, ".CSV": true, "xlsx": true, "xml": true, "docx": false} {
		_, found := reg.ForExt(ext)
		assert.Equal(t, ok, found, ext)
	}

	res := reg.Parse(context.Background(), "/jobs/x/file-1.pdf", "pdf", testFiler)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "file-1.pdf", res.Records[0].Source)

	res = reg.Parse(context.Background(), "/jobs/x/file-2.docx", "docx", testFiler)
	assert.Empty(t, res.Records)
	assert.NotEmpty(t, res.Warnings)
}
