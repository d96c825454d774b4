package ocr

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"time"
)

// Runner executes an external tool and returns its captured output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct {
	logger *slog.Logger
}

func (r execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	logger := r.logger
	if logger == nil {
		logger = slog.Default()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout, cmd.Stderr = &stdout, &stderr
	cmd.WaitDelay = 5 * time.Second

	start := time.Now()
	err := cmd.Run()
	attrs := []any{"tool", name, "args", args, "duration_ms", time.Since(start).Milliseconds()}

	switch {
	case errors.Is(err, exec.ErrNotFound):
		logger.Warn("tool not installed", attrs...)
	case err != nil:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			attrs = append(attrs, "exit_code", exitErr.ExitCode())
		}
		logger.Error("tool failed", append(attrs, "error", err, "stderr", truncate(stderr.String(), 8<<10))...)
	default:
		logger.Debug("tool ok", append(attrs, "stdout_bytes", stdout.Len())...)
	}
	return stdout.Bytes(), stderr.Bytes(), err
}

// truncate caps s at max bytes.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
