package core

import (
	"strings"

	"github.com/joseph-ayodele/pdf2jpk/constants"
	"github.com/joseph-ayodele/pdf2jpk/internal/common"
	"github.com/joseph-ayodele/pdf2jpk/internal/entity"
)

// Defaults are the submission-level values used for missing record fields.
type Defaults struct {
	SellerNIP string
	Currency  string
}

// Normalize fills missing fields without overwriting present ones and drops
// records that have no usable invoice number.
func Normalize(records []entity.InvoiceRecord, d Defaults) []entity.InvoiceRecord {
	if d.Currency == "" {
		d.Currency = constants.DefaultCurrency
	}
	out := make([]entity.InvoiceRecord, 0, len(records))
	for _, r := range records {
		r.InvoiceNumber = strings.TrimSpace(r.InvoiceNumber)
		if r.InvoiceNumber == "" {
			continue
		}
		if r.SellerNIP == "" {
			r.SellerNIP = d.SellerNIP
		}
		if r.Currency == "" {
			r.Currency = d.Currency
		}
		switch {
		case r.BuyerNIP == "" || strings.EqualFold(r.BuyerNIP, constants.UnknownNIP):
			r.BuyerNIP = constants.UnknownNIP
		default:
			r.BuyerNIP = common.NormalizeNIP(r.BuyerNIP)
		}
		r.BuyerName = strings.TrimSpace(r.BuyerName)
		r.SellerName = strings.TrimSpace(r.SellerName)
		out = append(out, r)
	}
	return out
}
