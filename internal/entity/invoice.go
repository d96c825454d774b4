package entity

import (
	"github.com/joseph-ayodele/pdf2jpk/internal/money"
)

// InvoiceRecord is one sales invoice to report in the ledger.
// Empty strings and nil amounts mean "not found in the source".
type InvoiceRecord struct {
	InvoiceNumber string        `json:"invoice_number"`
	IssueDate     string        `json:"issue_date,omitempty"` // YYYY-MM-DD
	SellDate      string        `json:"sell_date,omitempty"`  // YYYY-MM-DD
	BuyerNIP      string        `json:"buyer_nip,omitempty"`
	SellerNIP     string        `json:"seller_nip,omitempty"`
	NetAmount     *money.Amount `json:"net_amount,omitempty"`
	VatAmount     *money.Amount `json:"vat_amount,omitempty"`
	GrossAmount   *money.Amount `json:"gross_amount,omitempty"`
	VatRate       string        `json:"vat_rate,omitempty"`
	Currency      string        `json:"currency,omitempty"`
	BuyerName     string        `json:"buyer_name,omitempty"`
	SellerName    string        `json:"seller_name,omitempty"`

	// Source names the file the record was read from.
	Source string `json:"source,omitempty"`
}

// Net returns the net amount or zero.
func (r InvoiceRecord) Net() money.Amount {
	if r.NetAmount == nil {
		return money.Zero
	}
	return *r.NetAmount
}

// Vat returns the VAT amount or zero.
func (r InvoiceRecord) Vat() money.Amount {
	if r.VatAmount == nil {
		return money.Zero
	}
	return *r.VatAmount
}

// PeriodDate is the date that places the record in a reporting period:
// sell date first, then issue date.
func (r InvoiceRecord) PeriodDate() string {
	if r.SellDate != "" {
		return r.SellDate
	}
	return r.IssueDate
}
