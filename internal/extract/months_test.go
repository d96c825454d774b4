package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"15 stycznia 2024", "2024-01-15", true},
		{"15 sty 2024", "2024-01-15", true},
		{"15 Sty. 2024", "2024-01-15", true},
		{"3 października 2023", "2023-10-03", true},
		{"3 pazdziernika 2023", "2023-10-03", true},
		{"30 wrzesnia 2023", "2023-09-30", true},
		{"1 paź 2023", "2023-10-01", true},
		{"31 lut 2024", "", false},
		{"29 lutego 2024", "2024-02-29", true},
		{"29 lutego 2023", "", false},
		{"2024-05-31", "2024-05-31", true},
		{"15 foo 2024", "", false},
		{"", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := ParseDate(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMonthNumber(t *testing.T) {
	n, ok := MonthNumber("GRUDNIA")
	assert.True(t, ok)
	assert.Equal(t, "12", n)
	_, ok = MonthNumber("december")
	assert.False(t, ok)
}
