package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// monthNumbers maps Polish month names (genitive, abbreviated, with and
// without diacritics) to two-digit month numbers.
var monthNumbers = map[string]string{
	"sty": "01", "stycznia": "01", "styczeń": "01", "styczen": "01",
	"lut": "02", "lutego": "02", "luty": "02",
	"mar": "03", "marca": "03", "marzec": "03",
	"kwi": "04", "kwietnia": "04", "kwiecień": "04", "kwiecien": "04",
	"maj": "05", "maja": "05",
	"cze": "06", "czerwca": "06", "czerwiec": "06",
	"lip": "07", "lipca": "07", "lipiec": "07",
	"sie": "08", "sierpnia": "08", "sierpień": "08", "sierpien": "08",
	"wrz": "09", "września": "09", "wrzesnia": "09", "wrzesień": "09", "wrzesien": "09",
	"paź": "10", "paz": "10", "października": "10", "pazdziernika": "10", "październik": "10", "pazdziernik": "10",
	"lis": "11", "listopada": "11", "listopad": "11",
	"gru": "12", "grudnia": "12", "grudzień": "12", "grudzien": "12",
}

// MonthNumber resolves a month name such as "stycznia", "sty." or "Wrzesnia".
func MonthNumber(name string) (string, bool) {
	name = strings.TrimRight(strings.ToLower(strings.TrimSpace(name)), ".")
	n, ok := monthNumbers[name]
	return n, ok
}

// WrittenDate builds an ISO date from day, month name and year parts.
func WrittenDate(day, month, year string) (string, bool) {
	mm, ok := MonthNumber(month)
	if !ok {
		return "", false
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > 31 {
		return "", false
	}
	if len(year) != 4 {
		return "", false
	}
	if _, err := strconv.Atoi(year); err != nil {
		return "", false
	}
	iso := fmt.Sprintf("%s-%s-%02d", year, mm, d)
	if _, err := time.Parse("2006-01-02", iso); err != nil {
		return "", false
	}
	return iso, true
}

var reWrittenDate = regexp.MustCompile(`^\s*(\d{1,2})\s+(\S+)\s+(\d{4})`)
var reISODate = regexp.MustCompile(`^\s*(\d{4}-\d{2}-\d{2})`)

// ParseDate accepts "15 stycznia 2024", "15 sty 2024" and "2024-01-15".
func ParseDate(s string) (string, bool) {
	if m := reISODate.FindStringSubmatch(s); m != nil {
		return m[1], true
	}
	if m := reWrittenDate.FindStringSubmatch(s); m != nil {
		return WrittenDate(m[1], m[2], m[3])
	}
	return "", false
}
