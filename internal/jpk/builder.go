package jpk

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"time"

	"github.com/joseph-ayodele/pdf2jpk/constants"
	"github.com/joseph-ayodele/pdf2jpk/internal/common"
	"github.com/joseph-ayodele/pdf2jpk/internal/entity"
	"github.com/joseph-ayodele/pdf2jpk/internal/money"
)

// Meta is the filing metadata written next to the records.
type Meta struct {
	OfficeCode string
	Purpose    int
	Period     string // YYYY-MM; empty -> derived from the first record
	FilerNIP   string
	FirstName  string
	LastName   string
	BirthDate  string
	Email      string
	Phone      string
	BuyerName  string // fallback counterparty name
}

// MetaFromJob maps submission metadata onto filing metadata.
func MetaFromJob(m entity.JobMeta) Meta {
	return Meta{
		OfficeCode: m.OfficeCode,
		Purpose:    m.Purpose,
		Period:     m.Period,
		FilerNIP:   m.CompanyNIP,
		FirstName:  m.FirstName,
		LastName:   m.LastName,
		BirthDate:  m.BirthDate,
		Email:      m.Email,
		Phone:      m.Phone,
		BuyerName:  m.BuyerName,
	}
}

// Totals are the running sums written into the declaration and controls.
type Totals struct {
	Rows int
	Net  money.Amount
	Vat  money.Amount
}

type Builder struct {
	// Now stamps DataWytworzeniaJPK; tests pin it.
	Now func() time.Time
}

func NewBuilder() *Builder {
	return &Builder{Now: time.Now}
}

// Build assembles the filing tree. An empty record sequence is the one
// failure mode and returns common.ErrNoRecords.
func (b *Builder) Build(records []entity.InvoiceRecord, meta Meta) (*Document, Totals, error) {
	if len(records) == 0 {
		return nil, Totals{}, common.ErrNoRecords
	}
	now := b.Now().UTC()
	year, month, err := period(records[0], meta.Period, now)
	if err != nil {
		return nil, Totals{}, err
	}

	office := meta.OfficeCode
	if office == "" {
		office = constants.DefaultOfficeCode
	}
	purpose := meta.Purpose
	if purpose == 0 {
		purpose = constants.PurposeFiling
	}
	filerNIP := meta.FilerNIP
	if filerNIP == "" {
		filerNIP = records[0].SellerNIP
	}

	doc := &Document{
		XmlnsTNS: NamespaceTNS,
		XmlnsETD: NamespaceETD,
		XmlnsXSI: NamespaceXSI,
		Header: Header{
			FormCode:    FormCode{Value: "JPK_VAT", SystemCode: "JPK_V7M (2)", SchemaVersion: "1-0E"},
			Variant:     2,
			GeneratedAt: now.Format("2006-01-02T15:04:05Z"),
			SystemName:  constants.SystemName,
			Purpose:     Purpose{Value: purpose, Position: "P_7"},
			OfficeCode:  office,
			Year:        year,
			Month:       month,
		},
		Filer: Filer{
			Role: "Podatnik",
			Person: Person{
				NIP:       filerNIP,
				FirstName: meta.FirstName,
				LastName:  meta.LastName,
				BirthDate: meta.BirthDate,
				Email:     meta.Email,
				Phone:     meta.Phone,
			},
		},
		Declaration: Declaration{
			Header: DeclarationHeader{
				FormCode: DeclarationFormCode{
					Value:         "VAT-7",
					SystemCode:    "VAT-7 (22)",
					TaxCode:       "VAT",
					LiabilityKind: "Z",
					SchemaVersion: "1-0E",
				},
				Variant: 22,
			},
			Instructions: 1,
		},
	}

	var t Totals
	rows := make([]SaleRow, 0, len(records))
	for i, r := range records {
		buyerNIP := r.BuyerNIP
		if buyerNIP == "" {
			buyerNIP = constants.UnknownNIP
		}
		buyerName := firstNonEmpty(r.BuyerName, meta.BuyerName, constants.DefaultBuyerName)
		row := SaleRow{
			No:         i + 1,
			BuyerNIP:   buyerNIP,
			BuyerName:  buyerName,
			DocumentNo: r.InvoiceNumber,
			IssueDate:  r.IssueDate,
			GTU12:      1,
			K19:        r.Net().String(),
			K20:        r.Vat().String(),
		}
		if r.SellDate != "" && r.SellDate != r.IssueDate {
			row.SellDate = r.SellDate
		}
		rows = append(rows, row)
		t.Net += r.Net()
		t.Vat += r.Vat()
	}
	t.Rows = len(rows)

	doc.Declaration.Positions = Positions{
		P19: t.Net.String(),
		P20: t.Vat.String(),
		P37: t.Net.String(),
		P38: t.Vat.String(),
		P51: t.Vat.String(),
	}
	doc.Ledger = Ledger{
		Sales:           rows,
		SalesControl:    SalesControl{Rows: t.Rows, TaxDue: t.Vat.String()},
		PurchaseControl: PurchaseControl{Rows: 0, InputTaxTotal: money.Zero.String()},
	}
	return doc, t, nil
}

// BuildXML builds and serializes the filing.
func (b *Builder) BuildXML(records []entity.InvoiceRecord, meta Meta) ([]byte, Totals, error) {
	doc, t, err := b.Build(records, meta)
	if err != nil {
		return nil, t, err
	}
	out, err := Marshal(doc)
	return out, t, err
}

// Marshal writes the document with an XML declaration and indentation.
func Marshal(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode jpk: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// period resolves the reporting year and month: explicit YYYY-MM first, then
// the first record's sell or issue date, then the generation time.
func period(first entity.InvoiceRecord, explicit string, now time.Time) (int, int, error) {
	if explicit != "" {
		t, err := time.Parse("2006-01", explicit)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid period %q: %w", explicit, err)
		}
		return t.Year(), int(t.Month()), nil
	}
	if d := first.PeriodDate(); len(d) >= 7 {
		y, err1 := strconv.Atoi(d[:4])
		m, err2 := strconv.Atoi(d[5:7])
		if err1 == nil && err2 == nil && m >= 1 && m <= 12 {
			return y, m, nil
		}
	}
	return now.Year(), int(now.Month()), nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
