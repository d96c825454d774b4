package ocr

import (
	"context"
	"fmt"
)

// TesseractRecognizer runs tesseract with a bilingual model (pol+eng by default).
type TesseractRecognizer struct {
	Bin         string
	Lang        string
	TessdataDir string
	Runner      Runner
}

func (t TesseractRecognizer) Recognize(ctx context.Context, imagePath string) (string, error) {
	args := []string{imagePath, "stdout", "-l", t.Lang}
	if t.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.TessdataDir)
	}
	// tesseract <file> stdout -l <lang>
	out, errb, err := t.Runner.Run(ctx, t.Bin, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w (%s)", err, truncate(string(errb), 512))
	}
	return string(out), nil
}
