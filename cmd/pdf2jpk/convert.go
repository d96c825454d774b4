package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/pdf2jpk/internal/app"
	"github.com/joseph-ayodele/pdf2jpk/internal/common"
	"github.com/joseph-ayodele/pdf2jpk/internal/core"
	"github.com/joseph-ayodele/pdf2jpk/internal/entity"
	"github.com/joseph-ayodele/pdf2jpk/internal/export"
	"github.com/joseph-ayodele/pdf2jpk/internal/ingest"
)

var (
	convertMeta    entity.JobMeta
	convertOut     string
	convertReport  string
	convertRecords bool
)

var convertCmd = &cobra.Command{
	Use:   "convert [flags] <file|dir>...",
	Short: "Convert invoices synchronously without creating a job",
	Long: `convert runs extraction and XML synthesis in the foreground. The XML goes
to --out (or stdout). When nothing usable is found, the acquired raw text is
printed instead so the layout can be inspected.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func init() {
	metaFlags(convertCmd.Flags(), &convertMeta)
	convertCmd.Flags().StringVarP(&convertOut, "out", "o", "", "write the XML here instead of stdout")
	convertCmd.Flags().StringVar(&convertReport, "report", "", "also write an XLSX review report")
	convertCmd.Flags().BoolVar(&convertRecords, "records", false, "print extracted records as JSON instead of XML")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	meta, err := resolveMeta(convertMeta)
	if err != nil {
		return err
	}
	files, _, err := ingest.NewFSIngestor(true, logger).Collect(ctx, args)
	if err != nil {
		return err
	}

	inputs := make([]core.InputFile, 0, len(files))
	for _, f := range files {
		inputs = append(inputs, core.InputFile{Path: f.Path, OriginalName: f.OriginalName, Ext: filepath.Ext(f.Path)})
	}

	proc, _ := app.NewProcessor(cfg, logger)
	out, err := proc.Process(ctx, inputs, meta)
	stdout := cmd.OutOrStdout()
	for _, w := range out.Warnings {
		logger.Warn("conversion warning", "warning", w)
	}
	if err != nil {
		if errors.Is(err, common.ErrNoRecords) && strings.TrimSpace(out.RawText) != "" {
			fmt.Fprintln(stdout, out.RawText)
		}
		return err
	}

	if convertRecords {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out.Records); err != nil {
			return err
		}
	} else if convertOut != "" {
		if err := os.WriteFile(convertOut, out.XML, 0o644); err != nil {
			return fmt.Errorf("write xml: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%d record(s) written to %s\n", out.Totals.Rows, convertOut)
	} else {
		if _, err := stdout.Write(out.XML); err != nil {
			return err
		}
	}

	if convertReport != "" {
		data, err := export.NewReporter(logger).RecordsXLSX("convert", out.Records)
		if err != nil {
			return err
		}
		if err := os.WriteFile(convertReport, data, 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	return nil
}
