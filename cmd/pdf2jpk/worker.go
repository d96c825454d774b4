package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/pdf2jpk/internal/app"
	"github.com/joseph-ayodele/pdf2jpk/internal/async"
)

var workerWatch bool

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Process pending jobs (one sweep, or continuously with --watch)",
	Args:  cobra.NoArgs,
	RunE:  runWorker,
}

func init() {
	workerCmd.Flags().BoolVar(&workerWatch, "watch", false, "keep sweeping every worker poll interval")
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if workerWatch {
		s := async.NewScheduler(a.Worker, logger,
			async.WithInterval(cfg.Worker.PollInterval),
			async.WithSweepTimeout(cfg.Worker.SweepTimeout),
		)
		if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}

	st, err := a.Worker.Sweep(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "sweep: scanned=%d done=%d failed=%d busy=%d\n", st.Scanned, st.Done, st.Failed, st.Busy)
	return nil
}
