package ocr

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/gen2brain/go-fitz"
)

// PdftoppmRasterizer renders pages with poppler's pdftoppm.
type PdftoppmRasterizer struct {
	Bin      string
	DPI      int
	MaxPages int
	Runner   Runner
}

func (p PdftoppmRasterizer) Rasterize(ctx context.Context, pdfPath, outDir string) ([]string, error) {
	prefix := filepath.Join(outDir, "page")
	args := []string{"-r", strconv.Itoa(p.DPI), "-png"}
	if p.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(p.MaxPages))
	}
	args = append(args, pdfPath, prefix)

	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	if _, errb, err := p.Runner.Run(ctx, p.Bin, args...); err != nil {
		return nil, fmt.Errorf("pdftoppm: %w (%s)", err, truncate(string(errb), 512))
	}

	// page-1.png, page-2.png ... zero-padded when there are 10+ pages
	matches, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, err
	}
	sort.Slice(matches, func(i, j int) bool {
		if len(matches[i]) != len(matches[j]) {
			return len(matches[i]) < len(matches[j])
		}
		return matches[i] < matches[j]
	})
	return matches, nil
}

// FitzRasterizer renders pages in-process with MuPDF through go-fitz.
type FitzRasterizer struct {
	DPI      int
	MaxPages int
}

func (f FitzRasterizer) Rasterize(ctx context.Context, pdfPath, outDir string) ([]string, error) {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	n := doc.NumPage()
	if f.MaxPages > 0 && n > f.MaxPages {
		n = f.MaxPages
	}
	paths := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		img, err := doc.ImageDPI(i, float64(f.DPI))
		if err != nil {
			return paths, fmt.Errorf("render page %d: %w", i+1, err)
		}
		out := filepath.Join(outDir, fmt.Sprintf("page-%03d.png", i+1))
		fh, err := os.Create(out)
		if err != nil {
			return paths, err
		}
		err = png.Encode(fh, img)
		if cerr := fh.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return paths, fmt.Errorf("encode page %d: %w", i+1, err)
		}
		paths = append(paths, out)
	}
	return paths, nil
}
