// =============================================================================
// Budget Report - Configuration Module
// =============================================================================
//
// This module loads the application configuration from a YAML file.
//
// CONFIGURATION FILE (config.yaml):
//   Every setting is optional; a missing file means "all defaults", which
//   reproduces the agriculture office report exactly.
//
// LOOKUP ORDER:
//   1. --config flag
//   2. BUDGETREPORT_CONFIG environment variable (a .env file in the working
//      directory is loaded first, see cmd/root.go)
//   3. config.yaml in the working directory
//   4. no file: defaults
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/budget-report/internal/export"
	"github.com/ginjaninja78/budget-report/internal/hierarchy"
	"github.com/ginjaninja78/budget-report/internal/ingest"
	"github.com/ginjaninja78/budget-report/internal/session"
)

// EnvConfigPath names the environment variable holding the config path.
const EnvConfigPath = "BUDGETREPORT_CONFIG"

// =============================================================================
// CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the application configuration.
type Config struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned for *.json files when no files are given.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir receives the generated downloads.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputNameFormat defines the names of written files.
	// Placeholders:
	//   {name}      - The configured download name (e.g. data_.json)
	//   {stem}      - The download name without extension
	//   {ext}       - The extension including the dot
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//
	// Example: "{stem}_{timestamp}{ext}"
	// Default: "{name}"
	OutputNameFormat string `yaml:"output_name_format"`

	// =========================================================================
	// PIPELINES
	// =========================================================================

	Report ReportConfig `yaml:"report"`
	Merge  MergeConfig  `yaml:"merge"`
	Server ServerConfig `yaml:"server"`
}

// ReportConfig configures the hierarchy report.
type ReportConfig struct {
	// Title and Agency are the two heading lines.
	Title  string `yaml:"title"`
	Agency string `yaml:"agency"`

	// DateLabel prefixes the print date ("Tanggal Cetak").
	DateLabel string `yaml:"date_label"`

	// TotalLabel labels the total row ("Jumlah").
	TotalLabel string `yaml:"total_label"`

	// Headers are the five column headers.
	Headers []string `yaml:"headers"`

	// Files are the accepted input file names.
	Files FileNames `yaml:"files"`

	// RecordsPath is a JSONPath selecting the record array in each file.
	// Default: "$" (the top-level value)
	RecordsPath string `yaml:"records_path"`

	// Formats lists the formats written by the report command.
	// Valid values: "xls", "xlsx"
	// Default: ["xls"]
	Formats []string `yaml:"formats"`

	// OutputFile and WorkbookFile are the .xls and .xlsx download names.
	OutputFile   string `yaml:"output_file"`
	WorkbookFile string `yaml:"workbook_file"`

	// Signature is the closing signature block, one entry per line.
	Signature []SignatureLine `yaml:"signature"`
}

// FileNames are the hierarchy input names.
type FileNames struct {
	Program     string `yaml:"program"`
	Activity    string `yaml:"activity"`
	SubActivity string `yaml:"sub_activity"`
}

// SignatureLine is one line of the signature block.
type SignatureLine struct {
	Text      string `yaml:"text"`
	Underline bool   `yaml:"underline"`
	Spacer    bool   `yaml:"spacer"`
}

// MergeConfig configures the generic merger.
type MergeConfig struct {
	// OutputFile is the JSON download name.
	// Default: "data_.json"
	OutputFile string `yaml:"output_file"`

	// WorkbookFile is the .xlsx download name.
	// Default: "data_.xlsx"
	WorkbookFile string `yaml:"workbook_file"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	// Addr is the listen address.
	// Default: ":8080"
	Addr string `yaml:"addr"`

	// MaxSessions bounds the number of live sessions; the least recently
	// used session is dropped when it is exceeded.
	// Default: 256
	MaxSessions int `yaml:"max_sessions"`

	// MaxUploadBytes bounds the size of one upload request.
	// Default: 33554432 (32 MiB)
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

// =============================================================================
// LOADING
// =============================================================================

// DefaultFile is picked up from the working directory when no path is given.
const DefaultFile = "config.yaml"

// ResolvePath returns the config path from the flag, the environment or
// the working directory, in that order. "" means no file.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env
	}
	if info, err := os.Stat(DefaultFile); err == nil && !info.IsDir() {
		return DefaultFile
	}
	return ""
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var config Config
	applyDefaults(&config)
	return &config
}

// Load reads the configuration file.
//
// PARAMETERS:
//   - configPath: path to the YAML file; "" means defaults only
//
// RETURNS:
//   - A pointer to the Config struct.
//   - An error if the file cannot be read, parsed or validated.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes, defaults and validates configuration YAML.
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&config)

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyDefaults sets default values for any unset configuration options.
func applyDefaults(config *Config) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.OutputNameFormat == "" {
		config.OutputNameFormat = "{name}"
	}

	layout := export.DefaultLayout()
	r := &config.Report
	if r.Title == "" {
		r.Title = layout.Title
	}
	if r.Agency == "" {
		r.Agency = layout.Agency
	}
	if r.DateLabel == "" {
		r.DateLabel = layout.DateLabel
	}
	if r.TotalLabel == "" {
		r.TotalLabel = hierarchy.DefaultTotalLabel
	}
	if len(r.Headers) == 0 {
		r.Headers = layout.Headers
	}

	names := ingest.DefaultSlotNames()
	if r.Files.Program == "" {
		r.Files.Program = names.Program
	}
	if r.Files.Activity == "" {
		r.Files.Activity = names.Activity
	}
	if r.Files.SubActivity == "" {
		r.Files.SubActivity = names.SubActivity
	}

	if r.RecordsPath == "" {
		r.RecordsPath = hierarchy.RootPath
	}
	if len(r.Formats) == 0 {
		r.Formats = []string{string(export.FormatXLS)}
	}
	if r.OutputFile == "" {
		r.OutputFile = session.DefaultReportFile
	}
	if r.WorkbookFile == "" {
		r.WorkbookFile = session.DefaultWorkbookFile
	}
	if r.Signature == nil {
		for _, line := range layout.Signature {
			r.Signature = append(r.Signature, SignatureLine{
				Text:      line.Text,
				Underline: line.Underline,
				Spacer:    line.Spacer,
			})
		}
	}

	if config.Merge.OutputFile == "" {
		config.Merge.OutputFile = session.DefaultMergeFile
	}
	if config.Merge.WorkbookFile == "" {
		config.Merge.WorkbookFile = session.DefaultMergeWorkbookFile
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
	if config.Server.MaxSessions == 0 {
		config.Server.MaxSessions = 256
	}
	if config.Server.MaxUploadBytes == 0 {
		config.Server.MaxUploadBytes = 32 << 20
	}
}

// validate checks values that defaults cannot repair.
func validate(config *Config) error {
	var errs []error

	switch strings.ToLower(config.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level %q is not one of debug, info, warn, error", config.LogLevel))
	}

	if len(config.Report.Headers) != export.Columns {
		errs = append(errs, fmt.Errorf("report.headers must have %d entries, got %d", export.Columns, len(config.Report.Headers)))
	}

	for _, name := range config.Report.Formats {
		f, err := export.ParseFormat(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("report.formats: %w", err))
			continue
		}
		if f == export.FormatJSON {
			errs = append(errs, errors.New("report.formats: json is only available for merge output"))
		}
	}

	if _, err := hierarchy.NewDecoder(config.Report.RecordsPath); err != nil {
		errs = append(errs, fmt.Errorf("report.records_path: %w", err))
	}

	files := config.Report.Files
	if files.Program == files.Activity || files.Program == files.SubActivity || files.Activity == files.SubActivity {
		errs = append(errs, errors.New("report.files must name three different files"))
	}

	if config.Server.MaxSessions < 0 {
		errs = append(errs, fmt.Errorf("server.max_sessions must be positive, got %d", config.Server.MaxSessions))
	}
	if config.Server.MaxUploadBytes < 0 {
		errs = append(errs, fmt.Errorf("server.max_upload_bytes must be positive, got %d", config.Server.MaxUploadBytes))
	}

	return errors.Join(errs...)
}

// =============================================================================
// CONVERSIONS
// =============================================================================

// SlotNames returns the accepted hierarchy file names.
func (r *ReportConfig) SlotNames() ingest.SlotNames {
	return ingest.SlotNames{
		Program:     r.Files.Program,
		Activity:    r.Files.Activity,
		SubActivity: r.Files.SubActivity,
	}
}

// Layout returns the printed furniture of the report.
func (r *ReportConfig) Layout() export.Layout {
	layout := export.Layout{
		Title:     r.Title,
		Agency:    r.Agency,
		DateLabel: r.DateLabel,
		Headers:   append([]string(nil), r.Headers...),
	}
	layout.Signature = make([]export.SignatureLine, 0, len(r.Signature))
	for _, line := range r.Signature {
		layout.Signature = append(layout.Signature, export.SignatureLine{
			Text:      line.Text,
			Underline: line.Underline,
			Spacer:    line.Spacer,
		})
	}
	return layout
}

// ExportFormats returns the configured report formats. Load has already
// validated them.
func (r *ReportConfig) ExportFormats() []export.Format {
	out := make([]export.Format, 0, len(r.Formats))
	for _, name := range r.Formats {
		if f, err := export.ParseFormat(name); err == nil {
			out = append(out, f)
		}
	}
	return out
}

// ReportOptions builds the controller options for the report pipeline.
func (c *Config) ReportOptions() session.ReportOptions {
	return session.ReportOptions{
		Names:        c.Report.SlotNames(),
		RecordsPath:  c.Report.RecordsPath,
		TotalLabel:   c.Report.TotalLabel,
		Layout:       c.Report.Layout(),
		OutputFile:   c.Report.OutputFile,
		WorkbookFile: c.Report.WorkbookFile,
	}
}

// MergeOptions builds the controller options for the merge pipeline.
func (c *Config) MergeOptions() session.MergeOptions {
	return session.MergeOptions{
		OutputFile:   c.Merge.OutputFile,
		WorkbookFile: c.Merge.WorkbookFile,
	}
}
