package jpk

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pdf2jpk/internal/common"
	"github.com/joseph-ayodele/pdf2jpk/internal/entity"
	"github.com/joseph-ayodele/pdf2jpk/internal/money"
)

func fixedBuilder() *Builder {
	return &Builder{Now: func() time.Time { return time.Date(2024, 4, 2, 10, 30, 0, 0, time.UTC) }}
}

func rec(no, issue, sell string, net, vat int64) entity.InvoiceRecord {
	return entity.InvoiceRecord{
		InvoiceNumber: no,
		IssueDate:     issue,
		SellDate:      sell,
		NetAmount:     money.Ptr(money.FromMinor(net)),
		VatAmount:     money.Ptr(money.FromMinor(vat)),
	}
}

func TestBuild_TotalsMatchRows(t *testing.T) {
	records := []entity.InvoiceRecord{
		rec("FV/1", "2024-03-01", "", 10000, 2300),
		rec("FV/2", "2024-03-05", "2024-03-04", 12345, 2839),
		{InvoiceNumber: "FV/3", IssueDate: "2024-03-09"},
	}
	doc, totals, err := fixedBuilder().Build(records, Meta{FilerNIP: "1111111111"})
	require.NoError(t, err)

	require.Len(t, doc.Ledger.Sales, 3)
	var net, vat money.Amount
	for i, row := range doc.Ledger.Sales {
		assert.Equal(t, i+1, row.No)
		n, err := money.Parse(row.K19)
		require.NoError(t, err)
		v, err := money.Parse(row.K20)
		require.NoError(t, err)
		net += n
		vat += v
	}
	assert.Equal(t, net, totals.Net)
	assert.Equal(t, vat, totals.Vat)
	assert.Equal(t, "223.45", doc.Declaration.Positions.P19)
	assert.Equal(t, "51.39", doc.Declaration.Positions.P20)
	assert.Equal(t, doc.Declaration.Positions.P19, doc.Declaration.Positions.P37)
	assert.Equal(t, doc.Declaration.Positions.P20, doc.Declaration.Positions.P38)
	assert.Equal(t, doc.Declaration.Positions.P20, doc.Declaration.Positions.P51)
	assert.Equal(t, 3, doc.Ledger.SalesControl.Rows)
	assert.Equal(t, "51.39", doc.Ledger.SalesControl.TaxDue)
	assert.Equal(t, "0.00", doc.Ledger.PurchaseControl.InputTaxTotal)

	assert.Equal(t, "BRAK", doc.Ledger.Sales[0].BuyerNIP)
	assert.Equal(t, "Nabywca", doc.Ledger.Sales[0].BuyerName)
	assert.Empty(t, doc.Ledger.Sales[0].SellDate)
	assert.Equal(t, "2024-03-04", doc.Ledger.Sales[1].SellDate)
	assert.Equal(t, "0.00", doc.Ledger.Sales[2].K19)
}

func TestBuild_EmptyIsNoRecords(t *testing.T) {
	_, _, err := fixedBuilder().Build(nil, Meta{})
	assert.True(t, errors.Is(err, common.ErrNoRecords))

	out, _, err := fixedBuilder().BuildXML([]entity.InvoiceRecord{}, Meta{})
	assert.Error(t, err)
	assert.Empty(t, out)
}

func TestBuild_HeaderAndPeriod(t *testing.T) {
	b := fixedBuilder()
	doc, _, err := b.Build([]entity.InvoiceRecord{rec("A", "2024-02-28", "2024-01-31", 1, 0)}, Meta{})
	require.NoError(t, err)
	assert.Equal(t, 2024, doc.Header.Year)
	assert.Equal(t, 1, doc.Header.Month, "sell date wins over issue date")
	assert.Equal(t, "1475", doc.Header.OfficeCode)
	assert.Equal(t, 1, doc.Header.Purpose.Value)
	assert.Equal(t, "2024-04-02T10:30:00Z", doc.Header.GeneratedAt)

	doc, _, err = b.Build([]entity.InvoiceRecord{rec("A", "2024-02-28", "", 1, 0)}, Meta{Period: "2023-11", Purpose: 2, OfficeCode: "0202"})
	require.NoError(t, err)
	assert.Equal(t, 2023, doc.Header.Year)
	assert.Equal(t, 11, doc.Header.Month)
	assert.Equal(t, 2, doc.Header.Purpose.Value)
	assert.Equal(t, "0202", doc.Header.OfficeCode)

	doc, _, err = b.Build([]entity.InvoiceRecord{{InvoiceNumber: "A"}}, Meta{})
	require.NoError(t, err)
	assert.Equal(t, 4, doc.Header.Month, "falls back to generation time")

	_, _, err = b.Build([]entity.InvoiceRecord{{InvoiceNumber: "A"}}, Meta{Period: "03/2024"})
	assert.Error(t, err)
}

func TestBuildXML_Serialization(t *testing.T) {
	out, _, err := fixedBuilder().BuildXML(
		[]entity.InvoiceRecord{rec("FV/1/2024", "2024-03-01", "", 10000, 2300)},
		Meta{FilerNIP: "1111111111", Email: "biuro@example.pl"},
	)
	require.NoError(t, err)
	xml := string(out)

	assert.True(t, strings.HasPrefix(xml, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, xml, `<tns:JPK xmlns:tns="`+NamespaceTNS+`" xmlns:etd="`+NamespaceETD+`"`)
	assert.Contains(t, xml, `<tns:KodFormularza kodSystemowy="JPK_V7M (2)" wersjaSchemy="1-0E">JPK_VAT</tns:KodFormularza>`)
	assert.Contains(t, xml, `<tns:CelZlozenia poz="P_7">1</tns:CelZlozenia>`)
	assert.Contains(t, xml, `<tns:Miesiac>3</tns:Miesiac>`)
	assert.Contains(t, xml, `<tns:Podmiot1 rola="Podatnik">`)
	assert.Contains(t, xml, `<etd:NIP>1111111111</etd:NIP>`)
	assert.Contains(t, xml, `<tns:Email>biuro@example.pl</tns:Email>`)
	assert.NotContains(t, xml, `tns:Telefon`)
	assert.Contains(t, xml, `<tns:P_19>100.00</tns:P_19>`)
	assert.Contains(t, xml, `<tns:P_20>23.00</tns:P_20>`)
	assert.Contains(t, xml, `<tns:DowodSprzedazy>FV/1/2024</tns:DowodSprzedazy>`)
	assert.Contains(t, xml, `<tns:LiczbaWierszySprzedazy>1</tns:LiczbaWierszySprzedazy>`)

	// ledger controls follow the rows
	assert.Less(t, strings.Index(xml, "</tns:SprzedazWiersz>"), strings.Index(xml, "<tns:SprzedazCtrl>"))
	assert.Less(t, strings.Index(xml, "<tns:SprzedazCtrl>"), strings.Index(xml, "<tns:ZakupCtrl>"))
}
