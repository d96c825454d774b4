package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/pdf2jpk/internal/app"
	"github.com/joseph-ayodele/pdf2jpk/internal/async"
	"github.com/joseph-ayodele/pdf2jpk/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API with a background sweep scheduler",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides HTTP_ADDR)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	opts := []server.Option{
		server.WithFilerDefaults(cfg.Filer),
		server.WithMaxUploadBytes(cfg.Server.MaxUploadBytes),
	}
	if cfg.Server.InlineSweep {
		opts = append(opts, server.WithKicker(sched))
	}
	srv := server.New(a.Store, a.Worker, a.Processor, logger, opts...)

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	return srv.ListenAndServe(ctx, addr)
}
