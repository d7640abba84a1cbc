// =============================================================================
// Budget Report - Report Command
// =============================================================================
//
// This file defines the 'report' command, which joins the three hierarchy
// exports and writes the realization report.
//
// COMMAND USAGE:
//   budgetreport report [files...] [flags]
//
// FLAGS:
//   --format  : Output formats, comma separated (xls, xlsx)
//   --watch   : Re-run whenever the input directory changes
//
// PROCESSING PIPELINE:
//   1. Collect the input files (arguments, or *.json in input_dir)
//   2. Offer them to the program / activity / sub-activity slots
//   3. Read the three files concurrently and join them
//   4. Export every requested format into output_dir
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/budget-report/internal/export"
	"github.com/ginjaninja78/budget-report/internal/ingest"
	"github.com/ginjaninja78/budget-report/internal/session"
	"github.com/ginjaninja78/budget-report/internal/watch"
	"github.com/ginjaninja78/budget-report/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// reportFormats overrides report.formats from the configuration.
var reportFormats []string

// reportWatch keeps the command running and re-runs on input changes.
var reportWatch bool

// =============================================================================
// REPORT COMMAND DEFINITION
// =============================================================================

var reportCmd = &cobra.Command{
	Use:   "report [files...]",
	Short: "Join the hierarchy exports into a realization report",
	Long: `The report command reads the program, activity and sub-activity JSON
exports, joins them into one hierarchical table with grand totals and writes
the table as a spreadsheet.

Files whose names are not one of the three expected names, or that are not
JSON, are reported and skipped. When no files are given, *.json files in the
configured input directory are used.

With --watch the command stays running and rebuilds the report from scratch
every time a JSON file in the input directory changes.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		formats, err := resolveFormats(reportFormats, cfg.Report.ExportFormats())
		if err != nil {
			return err
		}

		if !reportWatch {
			return runReport(cmd.Context(), args, formats)
		}
		if len(args) > 0 {
			return errors.New("--watch reads the input directory; do not pass files")
		}
		return watchReport(cmd.Context(), formats)
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringSliceVar(
		&reportFormats,
		"format",
		nil,
		"Output formats: xls, xlsx (default from config)",
	)

	reportCmd.Flags().BoolVar(
		&reportWatch,
		"watch",
		false,
		"Re-run the report whenever the input directory changes",
	)
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runReport runs the hierarchy pipeline once.
func runReport(ctx context.Context, args []string, formats []export.Format) error {
	if ctx == nil {
		ctx = context.Background()
	}

	fm := utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.OutputNameFormat)

	files, err := collectInputs(fm, args)
	if err != nil {
		return err
	}

	opts := cfg.ReportOptions()
	opts.Logger = logger
	report, err := session.NewReport(opts)
	if err != nil {
		return err
	}

	for _, rejection := range report.AddFiles(files...) {
		fmt.Printf("  Skipped: %v\n", rejection)
	}

	result := report.Run(ctx)
	if result.Notice() {
		fmt.Println(result.Error)
		return nil
	}
	if result.Error != nil {
		return result.Error
	}

	if err := fm.EnsureDirectories(); err != nil {
		return err
	}

	var written []string
	for _, f := range formats {
		doc, err := report.Export(f)
		if err != nil {
			return err
		}
		path, err := fm.WriteDocument(doc)
		if err != nil {
			return err
		}
		written = append(written, path)
	}

	fmt.Println("=== Report Summary ===")
	fmt.Printf("Programs:        %d\n", result.Stats.Programs)
	fmt.Printf("Rows:            %d\n", result.Stats.Rows)
	fmt.Printf("Processing Time: %s\n", result.Stats.ProcessingTime)
	for _, path := range written {
		fmt.Printf("Written:         %s\n", path)
	}

	return nil
}

// watchReport runs the pipeline, then again after every settled change in
// the input directory, until interrupted.
func watchReport(ctx context.Context, formats []export.Format) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rerun := func(ctx context.Context) error {
		return runReport(ctx, nil, formats)
	}

	if err := rerun(ctx); err != nil {
		logger.Error("initial run failed", zap.Error(err))
		fmt.Printf("Error: %v\n", err)
	}

	w := watch.New(cfg.InputDir, logger)
	return w.Run(ctx, func(ctx context.Context) error {
		err := rerun(ctx)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
		}
		return err
	})
}

// =============================================================================
// HELPERS
// =============================================================================

// resolveFormats parses format flags, falling back to the configured list.
func resolveFormats(flags []string, configured []export.Format) ([]export.Format, error) {
	if len(flags) == 0 {
		return configured, nil
	}
	formats := make([]export.Format, 0, len(flags))
	for _, name := range flags {
		f, err := export.ParseFormat(name)
		if err != nil {
			return nil, err
		}
		formats = append(formats, f)
	}
	return formats, nil
}

// collectInputs opens the named files, or every *.json file in the input
// directory when none are named.
func collectInputs(fm *utils.FileManager, args []string) ([]*ingest.File, error) {
	paths := args
	if len(paths) == 0 {
		found, err := fm.DiscoverInputFiles("")
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			return nil, fmt.Errorf("no JSON files found in %s", fm.InputDir)
		}
		paths = found
	}
	return utils.OpenFiles(paths)
}
