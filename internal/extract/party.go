package extract

import (
	"regexp"
	"strings"
)

var (
	reSellerBuyerBlock = regexp.MustCompile(`(?s)Sprzedawca\s+Nabywca.*?NIP\s+[0-9]{10}(.*?)(?:NIP\s+[0-9]{10}|$)`)
	rePostalLine       = regexp.MustCompile(`\d{2}-\d{3}\s+\S+`)
	reIBANPrefix       = regexp.MustCompile(`^PL[0-9]{2}`)
	reSoldBy           = regexp.MustCompile(`Sprzedane\s+przez:\s*([^\r\n]+)`)
)

// partyNameRule scans the block between the first two tax ids after the
// "Sprzedawca Nabywca" header and returns the first line that is not
// boilerplate, joined with the next line unless that one is a label or a
// postal code line.
func partyNameRule(companyName string) Rule {
	company := strings.ToLower(strings.TrimSpace(companyName))
	return Rule{Name: "seller_buyer_block", Find: func(text string) (string, bool) {
		m := reSellerBuyerBlock.FindStringSubmatch(text)
		if m == nil {
			return "", false
		}
		lines := strings.Split(strings.TrimSpace(m[1]), "\n")
		for i := range lines {
			line := strings.TrimSpace(lines[i])
			if isBoilerplate(line, company) {
				continue
			}
			name := line
			if i+1 < len(lines) {
				next := strings.TrimSpace(lines[i+1])
				if next != "" && !hasPrefixFold(next, "NIP") && !rePostalLine.MatchString(next) {
					name += " " + next
				}
			}
			return name, true
		}
		return "", false
	}}
}

func isBoilerplate(line, company string) bool {
	if line == "" {
		return true
	}
	lower := strings.ToLower(line)
	for _, label := range []string{"nip", "sprzedawca", "nabywca"} {
		if strings.HasPrefix(lower, label) {
			return true
		}
	}
	for _, marker := range []string{"@", "tel", "rachunki bankowe", "pko bank"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	if company != "" && strings.Contains(lower, company) {
		return true
	}
	return reIBANPrefix.MatchString(line)
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
