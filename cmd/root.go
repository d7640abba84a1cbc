// =============================================================================
// Budget Report - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every subcommand
// shares the configuration and logger prepared here.
//
// COBRA CLI STRUCTURE:
//   rootCmd (budgetreport)
//   ├── reportCmd  (budgetreport report)
//   ├── mergeCmd   (budgetreport merge)
//   ├── serveCmd   (budgetreport serve)
//   └── versionCmd (budgetreport version)
//
// STARTUP:
//   1. Load .env from the working directory, if present
//   2. Resolve and load the YAML configuration
//   3. Build the zap logger (debug with --verbose, else log_level)
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ginjaninja78/budget-report/internal/config"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the configuration file (--config).
var cfgFile string

// verbose enables debug logging when set to true.
var verbose bool

// cfg is the loaded configuration, set before any subcommand runs.
var cfg *config.Config

// logger is the application logger, set before any subcommand runs.
var logger = zap.NewNop()

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "budgetreport",
	Short: "Budget realization report and JSON merge toolkit",
	Long: `budgetreport joins program, activity and sub-activity budget exports into
a hierarchical realization report, and merges arbitrary JSON files.

Example Usage:
  budgetreport report                          # Use *.json in the input directory
  budgetreport report --format xls,xlsx        # Write both spreadsheet formats
  budgetreport report --watch                  # Re-run whenever inputs change
  budgetreport merge a.json b.json --xlsx      # Merge and also write a workbook
  budgetreport serve --addr :8080              # Start the HTTP API`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env file is not an error.
		_ = godotenv.Load()

		loaded, err := config.Load(config.ResolvePath(cfgFile))
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded

		logger, err = buildLogger(cfg.LogLevel, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},

	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},

	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// buildLogger builds a production zap logger at the given level.
func buildLogger(level string, debug bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if debug {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		zc.Level = zap.NewAtomicLevelAt(lvl)
	}
	return zc.Build()
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"Path to the configuration file (default: $"+config.EnvConfigPath+" or ./"+config.DefaultFile+")",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}
