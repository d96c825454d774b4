package async

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
)

// SpawnDetached starts "<this binary> worker [args]" in its own session and
// returns without waiting. The child performs one sweep and exits.
func SpawnDetached(logger *slog.Logger, args ...string) error {
	if logger == nil {
		logger = slog.Default()
	}
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}
	cmd := detachedCommand(exe, args)
	if err := cmd.Start(); err != nil {
		logger.Error("detached worker start failed", "exe", exe, "error", err)
		return fmt.Errorf("start worker: %w", err)
	}
	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		logger.Warn("detached worker release failed", "pid", pid, "error", err)
	}
	logger.Info("detached worker started", "pid", pid)
	return nil
}

func detachedCommand(exe string, args []string) *exec.Cmd {
	cmd := exec.Command(exe, append([]string{"worker"}, args...)...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Env = os.Environ()
	cmd.SysProcAttr = detachAttr()
	return cmd
}
