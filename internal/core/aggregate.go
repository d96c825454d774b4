package core

import (
	"strings"

	"github.com/joseph-ayodele/pdf2jpk/internal/entity"
	"github.com/joseph-ayodele/pdf2jpk/internal/sources"
)

// Aggregate concatenates adapter output in file order. Raw text of files is
// joined with a header line per file so a failed job can show what was read.
func Aggregate(names []string, results []sources.Result) (records []entity.InvoiceRecord, rawText string, warnings []string) {
	var raw strings.Builder
	for i, res := range results {
		records = append(records, res.Records...)
		name := ""
		if i < len(names) {
			name = names[i]
		}
		for _, w := range res.Warnings {
			warnings = append(warnings, name+": "+w)
		}
		if strings.TrimSpace(res.RawText) == "" {
			continue
		}
		if raw.Len() > 0 {
			raw.WriteString("\n\n")
		}
		raw.WriteString("===== " + name + " =====\n")
		raw.WriteString(res.RawText)
	}
	return records, raw.String(), warnings
}
