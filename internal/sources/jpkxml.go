package sources

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joseph-ayodele/pdf2jpk/constants"
	"github.com/joseph-ayodele/pdf2jpk/internal/entity"
	"github.com/joseph-ayodele/pdf2jpk/internal/money"
)

// jpkFile mirrors the parts of a filing that are read back. Tags carry local
// names only, so any namespace prefix matches.
type jpkFile struct {
	XMLName xml.Name `xml:"JPK"`
	Filer   struct {
		Person struct {
			NIP string `xml:"NIP"`
		} `xml:"OsobaFizyczna"`
	} `xml:"Podmiot1"`
	Ledger struct {
		Sales []jpkSaleRow `xml:"SprzedazWiersz"`
	} `xml:"Ewidencja"`
}

type jpkSaleRow struct {
	BuyerNIP   string `xml:"NrKontrahenta"`
	BuyerName  string `xml:"NazwaKontrahenta"`
	DocumentNo string `xml:"DowodSprzedazy"`
	IssueDate  string `xml:"DataWystawienia"`
	SellDate   string `xml:"DataSprzedazy"`
	K19        string `xml:"K_19"`
	K20        string `xml:"K_20"`
}

// JPKAdapter re-reads sales rows from a previously generated filing.
type JPKAdapter struct {
	logger *slog.Logger
}

func NewJPKAdapter(logger *slog.Logger) *JPKAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &JPKAdapter{logger: logger}
}

func (a *JPKAdapter) Format() constants.SourceFormat { return constants.FormatJPK }

func (a *JPKAdapter) Parse(_ context.Context, path string, filer Filer) Result {
	f, err := os.Open(path)
	if err != nil {
		a.logger.Warn("open jpk failed", "path", path, "error", err)
		return Result{Warnings: []string{err.Error()}}
	}
	defer func() { _ = f.Close() }()

	var doc jpkFile
	if err := xml.NewDecoder(f).Decode(&doc); err != nil {
		a.logger.Warn("unparseable jpk", "path", path, "error", err)
		return Result{Warnings: []string{fmt.Sprintf("parse xml: %v", err)}}
	}

	seller := strings.TrimSpace(doc.Filer.Person.NIP)
	if seller == "" {
		seller = filer.NIP
	}
	var out Result
	for i, row := range doc.Ledger.Sales {
		rec := entity.InvoiceRecord{
			InvoiceNumber: strings.TrimSpace(row.DocumentNo),
			IssueDate:     strings.TrimSpace(row.IssueDate),
			SellDate:      strings.TrimSpace(row.SellDate),
			BuyerNIP:      strings.TrimSpace(row.BuyerNIP),
			BuyerName:     strings.TrimSpace(row.BuyerName),
			SellerNIP:     seller,
		}
		if rec.SellDate == "" {
			rec.SellDate = rec.IssueDate
		}
		if rec.BuyerNIP == constants.UnknownNIP {
			rec.BuyerNIP = ""
		}
		net, err1 := money.Parse(strings.TrimSpace(row.K19))
		vat, err2 := money.Parse(strings.TrimSpace(row.K20))
		if err1 != nil || err2 != nil {
			out.Warnings = append(out.Warnings, fmt.Sprintf("row %d: bad amount", i+1))
		}
		if err1 == nil {
			rec.NetAmount = money.Ptr(net)
		}
		if err2 == nil {
			rec.VatAmount = money.Ptr(vat)
		}
		if rec.NetAmount != nil && rec.VatAmount != nil {
			rec.GrossAmount = money.Ptr(net + vat)
		}
		out.Records = append(out.Records, rec)
	}
	a.logger.Info("jpk parsed", "path", path, "records", len(out.Records))
	return out
}
