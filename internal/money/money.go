// Package money holds currency amounts as integer minor units so sums and
// comparisons are exact.
package money

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Amount is a currency value in minor units (1/100).
type Amount int64

// Zero is the zero amount.
const Zero Amount = 0

// FromMinor builds an amount from minor units.
func FromMinor(v int64) Amount { return Amount(v) }

// Minor returns the amount in minor units.
func (a Amount) Minor() int64 { return int64(a) }

// Float returns an approximate float representation, for display only.
func (a Amount) Float() float64 { return float64(a) / 100 }

// String formats with a decimal point and exactly two fraction digits.
func (a Amount) String() string {
	v := int64(a)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// Abs returns the absolute value.
func (a Amount) Abs() Amount {
	if a < 0 {
		return -a
	}
	return a
}

// Within reports whether |a-b| is strictly below tol.
func (a Amount) Within(b, tol Amount) bool {
	return (a - b).Abs() < tol
}

// MarshalJSON writes the amount as a JSON number with two decimals.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts a JSON number or string.
func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*a = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		s = str
	}
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Parse reads a plain decimal with '.' as separator ("123", "123.4", "-1.05").
// More than two fraction digits are rounded half away from zero.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("money: empty amount")
	}
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	if s == "" {
		return 0, fmt.Errorf("money: invalid amount")
	}
	intPart, frac, _ := strings.Cut(s, ".")
	if intPart == "" {
		intPart = "0"
	}
	whole, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil || strings.ContainsAny(intPart, "+-") {
		return 0, fmt.Errorf("money: invalid amount %q", s)
	}
	var cents int64
	if frac != "" {
		for _, r := range frac {
			if r < '0' || r > '9' {
				return 0, fmt.Errorf("money: invalid amount %q", s)
			}
		}
		padded := frac + "00"
		cents, _ = strconv.ParseInt(padded[:2], 10, 64)
		if len(frac) > 2 && frac[2] >= '5' {
			cents++
		}
	}
	v := whole*100 + cents
	if neg {
		v = -v
	}
	return Amount(v), nil
}

// ParseComma reads an amount written with a decimal comma ("1 234,56").
// Spaces and non-breaking spaces used as grouping are dropped.
func ParseComma(s string) (Amount, error) {
	s = stripGrouping(s)
	return Parse(strings.Replace(s, ",", ".", 1))
}

// ParseLoose reads spreadsheet-style numbers: it accepts either separator as
// decimal mark, with the other one (or spaces) used for thousands grouping.
// Blank or unparseable input yields zero and false.
func ParseLoose(s string) (Amount, bool) {
	s = stripGrouping(s)
	if s == "" {
		return 0, false
	}
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case lastDot >= 0:
		if strings.Count(s, ".") > 1 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}
	v, err := Parse(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

func stripGrouping(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u202f', '\'':
			return -1
		}
		return r
	}, s)
}

// Ptr returns a pointer to a, for optional record fields.
func Ptr(a Amount) *Amount { return &a }
