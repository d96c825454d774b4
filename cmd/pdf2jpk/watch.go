package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/pdf2jpk/internal/app"
	"github.com/joseph-ayodele/pdf2jpk/internal/async"
	"github.com/joseph-ayodele/pdf2jpk/internal/entity"
	"github.com/joseph-ayodele/pdf2jpk/internal/ingest"
)

var (
	watchMeta     entity.JobMeta
	watchDebounce time.Duration
	watchExisting bool
)

var watchCmd = &cobra.Command{
	Use:   "watch [flags] <dir>...",
	Short: "Turn every invoice file dropped into the directories into a job",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runWatch,
}

func init() {
	metaFlags(watchCmd.Flags(), &watchMeta)
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 2*time.Second, "wait this long after the last write to a file")
	watchCmd.Flags().BoolVar(&watchExisting, "existing", false, "also submit files already present")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	meta, err := resolveMeta(watchMeta)
	if err != nil {
		return err
	}
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	sched := async.NewScheduler(a.Worker, logger,
		async.WithInterval(cfg.Worker.PollInterval),
		async.WithSweepTimeout(cfg.Worker.SweepTimeout),
	)
	sched.Start(ctx)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		sched.Shutdown(shutdownCtx)
	}()

	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       args,
		InitialScan: watchExisting,
		Debounce:    watchDebounce,
		SkipHidden:  true,
	}, logger)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errs:
			if ok {
				logger.Warn("watch error", "error", err)
			}
		case path, ok := <-events:
			if !ok {
				return nil
			}
			submitWatched(ctx, a, meta, path)
			sched.Kick()
		}
	}
}

func submitWatched(ctx context.Context, a *app.App, meta entity.JobMeta, path string) {
	if _, err := os.Stat(path); err != nil {
		// renamed away or removed before the debounce fired
		return
	}
	if insideDir(path, a.Config.Store.JobsDir) {
		return
	}
	job, err := a.Store.Create(ctx, meta, []entity.SubmittedFile{{Path: path, OriginalName: filepath.Base(path)}})
	if err != nil {
		logger.Error("watched file submit failed", "path", path, "error", err)
		return
	}
	logger.Info("watched file submitted", "path", path, "job_id", job.ID)
}

func insideDir(path, dir string) bool {
	absPath, err1 := filepath.Abs(path)
	absDir, err2 := filepath.Abs(dir)
	if err1 != nil || err2 != nil {
		return false
	}
	rel, err := filepath.Rel(absDir, absPath)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
