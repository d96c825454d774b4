package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/pdf2jpk/constants"
	"github.com/joseph-ayodele/pdf2jpk/internal/app"
	"github.com/joseph-ayodele/pdf2jpk/internal/entity"
)

var jobsStatus string

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect and delete jobs",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs in creation order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := app.New(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		jobs, err := a.Store.List(cmd.Context())
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSTATUS\tFILES\tRECORDS\tUPDATED\tERROR")
		for _, j := range jobs {
			if jobsStatus != "" && j.Status != constants.JobStatus(jobsStatus) {
				continue
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n",
				j.ID, j.Status, len(j.Files), j.RecordCount, j.UpdatedAt.Format("2006-01-02 15:04:05"), j.Error)
		}
		return tw.Flush()
	},
}

var jobsShowCmd = &cobra.Command{
	Use:   "show <job-id>",
	Short: "Show one job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		job, err := a.Store.Get(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("job %s: %w", args[0], err)
		}
		printJob(cmd.OutOrStdout(), job)
		return nil
	},
}

var jobsDeleteCmd = &cobra.Command{
	Use:   "delete <job-id>...",
	Short: "Delete jobs with their inputs and results",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		for _, id := range args {
			if err := a.Store.Delete(cmd.Context(), id); err != nil {
				return fmt.Errorf("job %s: %w", id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
		}
		return nil
	},
}

func init() {
	jobsListCmd.Flags().StringVar(&jobsStatus, "status", "", "only jobs with this status (pending|done|error)")
	jobsCmd.AddCommand(jobsListCmd, jobsShowCmd, jobsDeleteCmd)
	rootCmd.AddCommand(jobsCmd)
}

func printJob(w io.Writer, j *entity.JobDescriptor) {
	fmt.Fprintf(w, "id:          %s\n", j.ID)
	fmt.Fprintf(w, "status:      %s\n", j.Status)
	fmt.Fprintf(w, "created:     %s\n", j.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "updated:     %s\n", j.UpdatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "company:     %s (NIP %s)\n", j.Meta.CompanyName, j.Meta.CompanyNIP)
	for i, f := range j.Files {
		fmt.Fprintf(w, "file %d:      %s -> %s\n", i+1, f.OriginalName, f.StoredName)
	}
	if j.RecordCount > 0 {
		fmt.Fprintf(w, "records:     %d\n", j.RecordCount)
	}
	if j.ResultFile != "" {
		fmt.Fprintf(w, "result:      %s\n", j.ResultFile)
	}
	if j.ReportFile != "" {
		fmt.Fprintf(w, "report:      %s\n", j.ReportFile)
	}
	if j.DiagnosticFile != "" {
		fmt.Fprintf(w, "diagnostic:  %s\n", j.DiagnosticFile)
	}
	if j.Error != "" {
		fmt.Fprintf(w, "error:       %s\n", j.Error)
	}
}
