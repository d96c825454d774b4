package main

import (
	"fmt"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/pdf2jpk/constants"
	"github.com/joseph-ayodele/pdf2jpk/internal/app"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the job store, the lease database and the OCR tools",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		a, err := app.New(cmd.Context(), cfg, logger)
		if err != nil {
			return fmt.Errorf("store health: FAIL (%w)", err)
		}
		defer a.Close()

		if _, err := a.Leases.Held(cmd.Context(), "healthcheck"); err != nil {
			return fmt.Errorf("lease db health: FAIL (%w)", err)
		}
		fmt.Fprintf(out, "lease db %s: OK\n", cfg.Store.LeaseDB)

		jobs, err := a.Store.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("job store health: FAIL (%w)", err)
		}
		counts := map[constants.JobStatus]int{}
		for _, j := range jobs {
			counts[j.Status]++
		}
		fmt.Fprintf(out, "job store %s: OK (pending=%d done=%d error=%d)\n", cfg.Store.JobsDir,
			counts[constants.JobStatusPending], counts[constants.JobStatusDone], counts[constants.JobStatusError])

		tools := []string{cfg.OCR.Tesseract}
		if cfg.OCR.Rasterizer != "fitz" {
			tools = append(tools, cfg.OCR.PdfToPPM)
		}
		for _, b := range cfg.OCR.Backends {
			if b == "pdftotext" {
				tools = append(tools, cfg.OCR.PdfToText)
			}
		}
		for _, t := range tools {
			if p, err := exec.LookPath(t); err != nil {
				fmt.Fprintf(out, "%s: MISSING (scanned PDFs will yield no text)\n", t)
			} else {
				fmt.Fprintf(out, "%s: %s\n", t, p)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
