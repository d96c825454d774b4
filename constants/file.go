package constants

import "strings"

// SourceFormat identifies which adapter reads a submitted file.
type SourceFormat string

const (
	FormatPDF     SourceFormat = "PDF"
	FormatTabular SourceFormat = "TABULAR"
	FormatJPK     SourceFormat = "JPK_XML"
)

// AllowedExtensions holds the file extensions accepted for a submission.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"csv":  {},
	"tsv":  {},
	"txt":  {},
	"xlsx": {},
	"xml":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// MapExtToFormat routes an extension to its source format; "" means unsupported.
func MapExtToFormat(ext string) SourceFormat {
	switch NormalizeExt(ext) {
	case "pdf":
		return FormatPDF
	case "csv", "tsv", "txt", "xlsx":
		return FormatTabular
	case "xml":
		return FormatJPK
	default:
		return ""
	}
}

// IsSpreadsheetExt reports whether ext is a binary workbook rather than delimited text.
func IsSpreadsheetExt(ext string) bool {
	return NormalizeExt(ext) == "xlsx"
}
