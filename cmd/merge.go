// =============================================================================
// Budget Report - Merge Command
// =============================================================================
//
// COMMAND USAGE:
//   budgetreport merge [files...] [flags]
//
// FLAGS:
//   --xlsx    : Also write the merged records as a workbook
//   --stdout  : Print the merged JSON instead of writing data_.json
//
// Arrays are concatenated, objects are combined key by key with later files
// winning; mixing the two is an error and nothing is written.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/budget-report/internal/export"
	"github.com/ginjaninja78/budget-report/internal/session"
	"github.com/ginjaninja78/budget-report/pkg/utils"
)

var (
	mergeXLSX   bool
	mergeStdout bool
)

var mergeCmd = &cobra.Command{
	Use:   "merge [files...]",
	Short: "Merge JSON files into one document",
	Long: `The merge command folds JSON files, in the given order, into one
document: arrays are concatenated and objects are combined key by key, later
files overriding earlier ones. Mixing arrays and objects is an error.

When no files are given, *.json files in the configured input directory are
merged in name order.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		fm := utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.OutputNameFormat)

		files, err := collectInputs(fm, args)
		if err != nil {
			return err
		}

		opts := cfg.MergeOptions()
		opts.Logger = logger
		merge := session.NewMerge(opts)

		for _, rejection := range merge.AddFiles(files...) {
			fmt.Fprintf(os.Stderr, "  Skipped: %v\n", rejection)
		}

		result := merge.Run(cmd.Context())
		if result.Error != nil {
			return result.Error
		}

		formats := []export.Format{export.FormatJSON}
		if mergeXLSX {
			formats = append(formats, export.FormatXLSX)
		}

		if mergeStdout {
			text, _ := merge.Output()
			fmt.Println(string(text))
			formats = formats[1:]
			if len(formats) == 0 {
				return nil
			}
		}

		if err := fm.EnsureDirectories(); err != nil {
			return err
		}

		for _, f := range formats {
			doc, err := merge.Export(f)
			if err != nil {
				return err
			}
			path, err := fm.WriteDocument(doc)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Written: %s\n", path)
		}

		fmt.Fprintf(os.Stderr, "Merged %d file(s) in %s\n", result.Stats.FilesRead, result.Stats.ProcessingTime)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mergeCmd)

	mergeCmd.Flags().BoolVar(&mergeXLSX, "xlsx", false, "Also write the merged records as a workbook")
	mergeCmd.Flags().BoolVar(&mergeStdout, "stdout", false, "Print the merged JSON instead of writing it")
}
