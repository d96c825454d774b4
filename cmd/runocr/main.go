package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/pdf2jpk/internal/app"
	"github.com/joseph-ayodele/pdf2jpk/internal/common"
	"github.com/joseph-ayodele/pdf2jpk/internal/ocr"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "runocr <file.pdf>")
		os.Exit(2)
	}
	path := os.Args[1]
	if _, err := os.Stat(path); err != nil {
		logger.Error("cannot read input", "path", path, "error", err)
		os.Exit(2)
	}

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	extractor := ocr.NewExtractor(app.OCRConfig(cfg.OCR), logger)
	res := extractor.Acquire(ctx, path)

	if res.Empty() {
		logger.Error("text acquisition found nothing",
			"path", path, "warnings", res.Warnings, "duration_ms", res.Duration.Milliseconds())
		os.Exit(1)
	}

	logger.Info("text acquisition OK",
		"method", res.Method,
		"pages", res.Pages,
		"bytes", len(res.Text),
		"warnings", len(res.Warnings),
		"duration_ms", res.Duration.Milliseconds(),
	)
	fmt.Println(res.Text)
}
