package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/pdf2jpk/internal/app"
	"github.com/joseph-ayodele/pdf2jpk/internal/async"
	"github.com/joseph-ayodele/pdf2jpk/internal/entity"
	"github.com/joseph-ayodele/pdf2jpk/internal/ingest"
)

var (
	submitMeta   entity.JobMeta
	submitInline bool
	submitDetach bool
	submitHidden bool
)

var submitCmd = &cobra.Command{
	Use:   "submit [flags] <file|dir>...",
	Short: "Create a job from invoice files and directories",
	Long: `submit copies the given files (directories are walked) into a new pending
job. With --inline the job is processed before the command returns; with
--detach a background worker is started for it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSubmit,
}

func init() {
	metaFlags(submitCmd.Flags(), &submitMeta)
	submitCmd.Flags().BoolVar(&submitInline, "inline", false, "run a sweep before returning")
	submitCmd.Flags().BoolVar(&submitDetach, "detach", false, "start a background worker sweep")
	submitCmd.Flags().BoolVar(&submitHidden, "include-hidden", false, "include hidden files when walking directories")
	submitCmd.MarkFlagsMutuallyExclusive("inline", "detach")
	rootCmd.AddCommand(submitCmd)
}

func runSubmit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	meta, err := resolveMeta(submitMeta)
	if err != nil {
		return err
	}

	files, _, err := ingest.NewFSIngestor(!submitHidden, logger).Collect(ctx, args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no supported files found in %v", args)
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	job, err := a.Store.Create(ctx, meta, files)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "job %s created with %d file(s)\n", job.ID, len(job.Files))

	switch {
	case submitInline:
		if _, err := a.Worker.Sweep(ctx); err != nil {
			return err
		}
		done, err := a.Store.Get(ctx, job.ID)
		if err != nil {
			return err
		}
		printJob(out, done)
	case submitDetach:
		if err := async.SpawnDetached(logger, forwardedFlags()...); err != nil {
			return err
		}
		fmt.Fprintln(out, "background worker started")
	}
	return nil
}
