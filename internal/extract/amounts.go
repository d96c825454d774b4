package extract

import (
	"regexp"

	"github.com/joseph-ayodele/pdf2jpk/internal/money"
)

// amountPattern is a decimal-comma amount with optional space/NBSP grouping.
const amountPattern = `(\d+(?:[ \x{00A0}]\d{3})*,\d{2})`

var (
	reNet          = regexp.MustCompile(`Warto(?:ść|sc)\s+netto\s+` + amountPattern + `\s+PLN`)
	reVat          = regexp.MustCompile(`Warto(?:ść|sc)\s+VAT\s+` + amountPattern + `\s+PLN`)
	reGross        = regexp.MustCompile(`Warto(?:ść|sc)\s+brutto\s+` + amountPattern + `\s+PLN`)
	reInvoiceValue = regexp.MustCompile(`Warto(?:ść|sc)\s+faktury\s+` + amountPattern + `\s*zł`)
	reRateRow      = regexp.MustCompile(`W tym\s+` + amountPattern + `\s+([0-9]{1,2})\s+` + amountPattern + `\s+` + amountPattern)
	reRateTable    = regexp.MustCompile(`Stawka\s+VAT`)
	reSumPair      = regexp.MustCompile(`Suma:\s*` + amountPattern + `\s*zł\s+` + amountPattern + `\s*zł`)
)

// crossCheckTolerance is strictly greater than any accepted |net+vat-gross|.
const crossCheckTolerance = money.Amount(2)

// amountPair is one net/VAT candidate from a "Suma:" row.
type amountPair struct {
	Net, Vat money.Amount
}

func sumPairs(text string) []amountPair {
	var out []amountPair
	for _, m := range reSumPair.FindAllStringSubmatch(text, -1) {
		net, err1 := money.ParseComma(m[1])
		vat, err2 := money.ParseComma(m[2])
		if err1 != nil || err2 != nil {
			continue
		}
		out = append(out, amountPair{Net: net, Vat: vat})
	}
	return out
}

// lastTablePair returns the last "Suma:" pair after a VAT-rate table header.
func lastTablePair(text string) (amountPair, bool) {
	loc := reRateTable.FindStringIndex(text)
	if loc == nil {
		return amountPair{}, false
	}
	pairs := sumPairs(text[loc[1]:])
	if len(pairs) == 0 {
		return amountPair{}, false
	}
	return pairs[len(pairs)-1], true
}

// crossCheck returns the first candidate whose sum matches gross.
func crossCheck(pairs []amountPair, gross money.Amount) (amountPair, bool) {
	for _, p := range pairs {
		if (p.Net + p.Vat).Within(gross, crossCheckTolerance) {
			return p, true
		}
	}
	return amountPair{}, false
}
