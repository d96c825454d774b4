package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/pdf2jpk/internal/app"
	"github.com/joseph-ayodele/pdf2jpk/internal/common"
)

var (
	cfgFile  string
	jobsDir  string
	logLevel string

	cfg    *common.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pdf2jpk",
	Short: "Convert sales invoices into a JPK_V7M filing",
	Long: `pdf2jpk reads sales invoices from PDF files, CSV/XLSX ledgers and earlier
JPK files, and builds the JPK_V7M sales ledger XML. Submissions become jobs
in a file-backed store that a worker sweep processes.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile != "" {
			if err := os.Setenv("PDF2JPK_CONFIG", cfgFile); err != nil {
				return err
			}
		}
		if jobsDir != "" {
			if err := os.Setenv("JOBS_DIR", jobsDir); err != nil {
				return err
			}
			if os.Getenv("LEASE_DB") == "" {
				if err := os.Setenv("LEASE_DB", filepath.Join(jobsDir, "leases.db")); err != nil {
					return err
				}
			}
		}
		if logLevel != "" {
			if err := os.Setenv("LOG_LEVEL", logLevel); err != nil {
				return err
			}
		}
		c, l, err := app.Setup()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg, logger = c, l
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "YAML config file (overrides PDF2JPK_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&jobsDir, "jobs-dir", "", "job store directory (overrides JOBS_DIR)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug|info|warn|error (overrides LOG_LEVEL)")
}

// forwardedFlags repeats the persistent flags for a re-executed worker.
func forwardedFlags() []string {
	var args []string
	if cfgFile != "" {
		args = append(args, "--config", cfgFile)
	}
	if jobsDir != "" {
		args = append(args, "--jobs-dir", jobsDir)
	}
	if logLevel != "" {
		args = append(args, "--log-level", logLevel)
	}
	return args
}
