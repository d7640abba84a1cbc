// =============================================================================
// Budget Report - File Manager Utility
// =============================================================================
//
// This module provides the file system side of the CLI:
//   - Input discovery (*.json in the input directory)
//   - Lazy file handles for the ingest package
//   - Output naming and writing
//
// The pipelines themselves never touch the file system; they see
// *ingest.File handles and return *export.Document values.
//
// =============================================================================

package utils

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/budget-report/internal/export"
	"github.com/ginjaninja78/budget-report/internal/ingest"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for the CLI.
type FileManager struct {
	// InputDir is scanned when no files are named on the command line.
	InputDir string

	// OutputDir receives the written documents.
	OutputDir string

	// NameFormat builds output names, see GenerateOutputFileName.
	NameFormat string

	// Now stamps the {timestamp} placeholder; defaults to time.Now.
	Now func() time.Time
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(inputDir, outputDir, nameFormat string) *FileManager {
	return &FileManager{
		InputDir:   inputDir,
		OutputDir:  outputDir,
		NameFormat: nameFormat,
		Now:        time.Now,
	}
}

// EnsureDirectories creates the output directory if it doesn't exist.
func (fm *FileManager) EnsureDirectories() error {
	if err := os.MkdirAll(fm.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", fm.OutputDir, err)
	}
	return nil
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverInputFiles scans the input directory for files matching the pattern.
//
// PARAMETERS:
//   - pattern: A glob pattern to match files (e.g., "*.json").
//              If empty, defaults to "*.json".
//
// RETURNS:
//   - A sorted slice of file paths.
//   - An error if the pattern is malformed.
func (fm *FileManager) DiscoverInputFiles(pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "*.json"
	}

	files, err := filepath.Glob(filepath.Join(fm.InputDir, pattern))
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}

	var result []string
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil || info.IsDir() {
			continue
		}
		result = append(result, file)
	}
	sort.Strings(result)

	return result, nil
}

// =============================================================================
// FILE LOADING
// =============================================================================

// OpenFile stats a file and returns a handle that reads it on demand.
// The MIME type is guessed from the extension.
func OpenFile(path string) (*ingest.File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("failed to open input file: %s is a directory", path)
	}

	name := filepath.Base(path)
	return ingest.NewFile(name, info.Size(), ingest.DetectMIME(name, ""), func(ctx context.Context) ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return os.ReadFile(path)
	}), nil
}

// OpenFiles opens every path. The first failure stops the scan.
func OpenFiles(paths []string) ([]*ingest.File, error) {
	files := make([]*ingest.File, 0, len(paths))
	for _, path := range paths {
		f, err := OpenFile(path)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName generates an output file name.
//
// PARAMETERS:
//   - format: The format string for the file name.
//             Placeholders:
//               {name}      - The document name (data_.json)
//               {stem}      - The document name without extension
//               {ext}       - The extension including the dot
//               {uuid}      - A random UUID
//               {timestamp} - Timestamp (YYYYMMDD_HHMMSS)
//   - name: The document name.
//   - now:  The time used for {timestamp}.
//
// RETURNS:
//   - The generated file name. An empty format yields name unchanged; a
//     result without the document's extension gets it appended.
//
// EXAMPLE:
//   format: "{stem}_{timestamp}{ext}"
//   name:   "data_.json"
//   output: "data__20261019_100000.json"
func GenerateOutputFileName(format, name string, now time.Time) string {
	if format == "" {
		return name
	}

	ext := filepath.Ext(name)
	replacer := strings.NewReplacer(
		"{name}", name,
		"{stem}", strings.TrimSuffix(name, ext),
		"{ext}", ext,
		"{uuid}", uuid.New().String(),
		"{timestamp}", now.Format("20060102_150405"),
	)
	result := replacer.Replace(format)

	if ext != "" && !strings.HasSuffix(strings.ToLower(result), strings.ToLower(ext)) {
		result += ext
	}

	return result
}

// =============================================================================
// OUTPUT WRITING
// =============================================================================

// WriteDocument writes a rendered document into the output directory.
//
// RETURNS:
//   - The path of the written file.
//   - An error if the file cannot be written.
func (fm *FileManager) WriteDocument(doc *export.Document) (string, error) {
	now := time.Now
	if fm.Now != nil {
		now = fm.Now
	}

	name := GenerateOutputFileName(fm.NameFormat, doc.Name, now())
	path := filepath.Join(fm.OutputDir, name)

	if err := os.WriteFile(path, doc.Data, 0644); err != nil {
		return "", fmt.Errorf("failed to write output file %s: %w", path, err)
	}

	return path, nil
}
