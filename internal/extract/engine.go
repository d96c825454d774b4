package extract

import (
	"log/slog"
	"regexp"

	"github.com/joseph-ayodele/pdf2jpk/internal/entity"
	"github.com/joseph-ayodele/pdf2jpk/internal/money"
)

var (
	reSegmentMarker = regexp.MustCompile(`Warto(?:ść|sc)\s+netto\s+` + amountPattern + `\s+PLN`)

	reInvoiceNumber  = regexp.MustCompile(`(?i)Faktura\s+numer[:\s]*([^\r\n]+)`)
	reInvoiceNumber2 = regexp.MustCompile(`(?i)Numer\s+faktury[:\s]*([A-Z0-9\-_]+)`)
	reIssueDate      = regexp.MustCompile(`Data\s+wystawienia:\s*[^\d\r\n]*?(\d{4}-\d{2}-\d{2})`)
	reSellDate       = regexp.MustCompile(`Data\s+sprzedaży[:\s]*(\d{4}-\d{2}-\d{2})`)
	reInvoiceDelDate = regexp.MustCompile(`Data\s+faktury/Data\s+dostawy:\s*(\d{1,2})\s+(\S+)\s+(\d{4})`)
	reNIPToken       = regexp.MustCompile(`NIP\s+([0-9]{10})`)
	reVATIdentifier  = regexp.MustCompile(`(?i)Numer\s+identyfikatora\s+VAT:\s*(?:PL)?([0-9]{10})`)
)

// RuleWrittenDate is the sell date rule that also sets the issue date.
const RuleWrittenDate = "invoice_delivery_written_date"

// Trace records which rule produced each field.
type Trace map[string]string

// Engine extracts invoice records from acquired PDF text. The filer's own
// tax id and company name are used to tell the counterparty apart.
type Engine struct {
	companyNIP string
	logger     *slog.Logger

	invoiceNumber []Rule
	issueDate     []Rule
	sellDate      []Rule
	buyerNIP      []Rule
	buyerName     []Rule
	net           []Rule
	vat           []Rule
	gross         []Rule
	vatRate       []Rule
}

func NewEngine(companyNIP, companyName string, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{companyNIP: companyNIP, logger: logger}
	e.invoiceNumber = []Rule{
		regexRule("faktura_numer", reInvoiceNumber),
		regexRule("numer_faktury", reInvoiceNumber2),
	}
	e.issueDate = []Rule{regexRule("data_wystawienia", reIssueDate)}
	e.sellDate = []Rule{
		regexRule("data_sprzedazy", reSellDate),
		{Name: RuleWrittenDate, Find: func(text string) (string, bool) {
			m := reInvoiceDelDate.FindStringSubmatch(text)
			if m == nil {
				return "", false
			}
			return WrittenDate(m[1], m[2], m[3])
		}},
	}
	e.buyerNIP = []Rule{
		{Name: "first_foreign_nip", Find: e.firstForeignNIP},
		regexRule("vat_identifier", reVATIdentifier),
	}
	e.buyerName = []Rule{
		partyNameRule(companyName),
		regexRule("sold_by", reSoldBy),
	}
	e.net = []Rule{regexRule("wartosc_netto", reNet)}
	e.vat = []Rule{regexRule("wartosc_vat", reVat)}
	e.gross = []Rule{
		regexRule("wartosc_brutto", reGross),
		regexRule("wartosc_faktury", reInvoiceValue),
	}
	e.vatRate = []Rule{regexGroupRule("w_tym_row", reRateRow, 2)}
	return e
}

func (e *Engine) firstForeignNIP(text string) (string, bool) {
	seen := make(map[string]bool)
	for _, m := range reNIPToken.FindAllStringSubmatch(text, -1) {
		nip := m[1]
		if seen[nip] {
			continue
		}
		seen[nip] = true
		if nip != e.companyNIP {
			return nip, true
		}
	}
	return "", false
}

// Segments splits text before every "Wartość netto <amount> PLN" marker so
// that each marker starts the segment it introduces. Empty parts are dropped.
func Segments(text string) []string {
	locs := reSegmentMarker.FindAllStringIndex(text, -1)
	var parts []string
	prev := 0
	for _, loc := range locs {
		if loc[0] > prev {
			parts = append(parts, text[prev:loc[0]])
		}
		prev = loc[0]
	}
	if prev < len(text) {
		parts = append(parts, text[prev:])
	}
	return parts
}

// ExtractAll returns the records found in a possibly multi-invoice text.
// Segments without an invoice number are dropped; if no segment yields one,
// the whole text is tried once as a single invoice.
func (e *Engine) ExtractAll(text string) []entity.InvoiceRecord {
	var out []entity.InvoiceRecord
	segments := Segments(text)
	for _, seg := range segments {
		rec, _ := e.Extract(seg)
		if rec.InvoiceNumber != "" {
			out = append(out, rec)
		}
	}
	if len(out) > 0 {
		e.logger.Debug("segments extracted", "segments", len(segments), "records", len(out))
		return out
	}
	if rec, trace := e.Extract(text); rec.InvoiceNumber != "" {
		e.logger.Debug("whole text extracted", "segments", len(segments), "rules", trace)
		return []entity.InvoiceRecord{rec}
	}
	return nil
}

// Extract applies every field's rules to one segment. Missing fields stay
// empty; nothing here is an error.
func (e *Engine) Extract(text string) (entity.InvoiceRecord, Trace) {
	var rec entity.InvoiceRecord
	trace := Trace{}

	str := func(field string, rules []Rule, dst *string) {
		if v, rule, ok := FirstMatch(rules, text); ok {
			*dst = v
			trace[field] = rule
		}
	}
	amt := func(field string, rules []Rule) *money.Amount {
		for _, r := range rules {
			v, ok := r.Find(text)
			if !ok {
				continue
			}
			a, err := money.ParseComma(v)
			if err != nil {
				continue
			}
			trace[field] = r.Name
			return &a
		}
		return nil
	}

	str("invoice_number", e.invoiceNumber, &rec.InvoiceNumber)
	str("issue_date", e.issueDate, &rec.IssueDate)
	str("sell_date", e.sellDate, &rec.SellDate)
	if trace["sell_date"] == RuleWrittenDate {
		rec.IssueDate = rec.SellDate
		trace["issue_date"] = RuleWrittenDate
	}
	str("buyer_nip", e.buyerNIP, &rec.BuyerNIP)
	str("buyer_name", e.buyerName, &rec.BuyerName)

	rec.NetAmount = amt("net_amount", e.net)
	rec.VatAmount = amt("vat_amount", e.vat)
	rec.GrossAmount = amt("gross_amount", e.gross)
	str("vat_rate", e.vatRate, &rec.VatRate)

	if rec.NetAmount == nil && rec.VatAmount == nil {
		if p, ok := lastTablePair(text); ok {
			rec.NetAmount, rec.VatAmount = money.Ptr(p.Net), money.Ptr(p.Vat)
			trace["net_amount"], trace["vat_amount"] = "rate_table_last_sum", "rate_table_last_sum"
		}
	}
	if rec.GrossAmount != nil {
		if p, ok := crossCheck(sumPairs(text), *rec.GrossAmount); ok {
			rec.NetAmount, rec.VatAmount = money.Ptr(p.Net), money.Ptr(p.Vat)
			trace["net_amount"], trace["vat_amount"] = "gross_cross_check", "gross_cross_check"
		}
	}
	return rec, trace
}
