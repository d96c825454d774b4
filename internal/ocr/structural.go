package ocr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/text/encoding/charmap"
)

const (
	BackendLedongthuc = "ledongthuc"
	BackendPdfcpu     = "pdfcpu"
	BackendPdftotext  = "pdftotext"
)

// LedongthucExtractor reads text rows page by page with github.com/ledongthuc/pdf.
type LedongthucExtractor struct{}

func (LedongthucExtractor) Name() string { return BackendLedongthuc }

func (LedongthucExtractor) ExtractText(_ context.Context, path string) (text string, pages int, err error) {
	// the reader panics on some malformed xref tables
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	pages = r.NumPage()
	var b strings.Builder
	for i := 1; i <= pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, rerr := page.GetTextByRow()
		if rerr != nil {
			return b.String(), pages, fmt.Errorf("page %d: %w", i, rerr)
		}
		for _, row := range rows {
			words := make([]string, 0, len(row.Content))
			for _, w := range row.Content {
				words = append(words, w.S)
			}
			b.WriteString(strings.Join(words, " "))
			b.WriteByte('\n')
		}
	}
	return b.String(), pages, nil
}

// PdfcpuExtractor decodes text-showing operators from page content streams.
// It handles simple (non-CID) fonts only, which is enough for most
// invoice generators that embed WinAnsi text.
type PdfcpuExtractor struct{}

func (PdfcpuExtractor) Name() string { return BackendPdfcpu }

func (PdfcpuExtractor) ExtractText(_ context.Context, path string) (string, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	ctx, err := api.ReadValidateAndOptimize(f, model.NewDefaultConfiguration())
	if err != nil {
		return "", 0, fmt.Errorf("pdfcpu read: %w", err)
	}

	var b strings.Builder
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
		if err != nil || r == nil {
			continue
		}
		data, err := io.ReadAll(r)
		if err != nil {
			continue
		}
		if txt := contentStreamText(data); txt != "" {
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(txt)
		}
	}
	return b.String(), ctx.PageCount, nil
}

var reStringLiteral = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)`)

// contentStreamText keeps one output line per text line of the stream:
// Tj/TJ append to the current line, line moves (Td, TD, T*, ', ") and ET
// start a new one.
func contentStreamText(data []byte) string {
	var out []string
	var cur strings.Builder
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		switch {
		case len(line) == 0:
		case bytes.HasSuffix(line, []byte("Tj")), bytes.HasSuffix(line, []byte("TJ")):
			for _, m := range reStringLiteral.FindAllSubmatch(line, -1) {
				cur.WriteString(unescapePDFString(m[1]))
			}
		case bytes.HasSuffix(line, []byte("'")), bytes.HasSuffix(line, []byte(`"`)):
			flush()
			for _, m := range reStringLiteral.FindAllSubmatch(line, -1) {
				cur.WriteString(unescapePDFString(m[1]))
			}
		case bytes.HasSuffix(line, []byte("Td")), bytes.HasSuffix(line, []byte("TD")),
			bytes.Equal(line, []byte("T*")), bytes.Equal(line, []byte("ET")):
			flush()
		}
	}
	flush()
	return strings.Join(out, "\n")
}

// unescapePDFString resolves literal string escapes and decodes the bytes as
// WinAnsi, the encoding of the standard PDF fonts.
func unescapePDFString(raw []byte) string {
	buf := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' || i+1 >= len(raw) {
			buf = append(buf, c)
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			buf = append(buf, '\n')
		case 'r':
			buf = append(buf, '\r')
		case 't':
			buf = append(buf, '\t')
		case 'b', 'f':
		case '0', '1', '2', '3', '4', '5', '6', '7':
			v := 0
			n := 0
			for n < 3 && i < len(raw) && raw[i] >= '0' && raw[i] <= '7' {
				v = v*8 + int(raw[i]-'0')
				i++
				n++
			}
			i--
			buf = append(buf, byte(v))
		default:
			buf = append(buf, raw[i])
		}
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(buf)
	if err != nil {
		return strings.ToValidUTF8(string(buf), "")
	}
	return string(out)
}

// PdftotextExtractor shells out to poppler's pdftotext.
type PdftotextExtractor struct {
	Bin    string
	Runner Runner
}

func (PdftotextExtractor) Name() string { return BackendPdftotext }

func (p PdftotextExtractor) ExtractText(ctx context.Context, path string) (string, int, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := p.Runner.Run(ctx, p.Bin, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", 0, fmt.Errorf("pdftotext: %w (%s)", err, truncate(string(errb), 512))
	}
	text := string(out)
	// form feed separates pages
	pages := strings.Count(text, "\f")
	if pages == 0 && strings.TrimSpace(text) != "" {
		pages = 1
	}
	return text, pages, nil
}
