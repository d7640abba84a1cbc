package session

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ginjaninja78/budget-report/internal/export"
	"github.com/ginjaninja78/budget-report/internal/ingest"
	"github.com/ginjaninja78/budget-report/internal/jsonvalue"
	"github.com/ginjaninja78/budget-report/internal/merger"
)

// Default download names of the merge result.
const (
	DefaultMergeFile         = "data_.json"
	DefaultMergeWorkbookFile = "data_.xlsx"
)

// MergeOptions configures a Merge controller.
type MergeOptions struct {
	// OutputFile and WorkbookFile name the .json and .xlsx downloads.
	OutputFile   string
	WorkbookFile string

	Logger *zap.Logger
}

// Merge is the generic JSON merge controller.
type Merge struct {
	status

	opts   MergeOptions
	queue  ingest.Queue
	logger *zap.Logger

	merged jsonvalue.Value
	text   []byte
}

// NewMerge creates a Merge controller.
func NewMerge(opts MergeOptions) *Merge {
	if opts.OutputFile == "" {
		opts.OutputFile = DefaultMergeFile
	}
	if opts.WorkbookFile == "" {
		opts.WorkbookFile = DefaultMergeWorkbookFile
	}
	return &Merge{opts: opts, logger: nopIfNil(opts.Logger)}
}

// AddFiles appends files to the merge list. Non-JSON and duplicate files are
// returned as *ingest.RejectError values. Any previous output is discarded.
func (m *Merge) AddFiles(files ...*ingest.File) []error {
	m.clear()

	var rejected []error
	for _, f := range files {
		if err := m.queue.Add(f); err != nil {
			m.logger.Warn("file rejected", zap.String("file", f.Name), zap.Error(err))
			rejected = append(rejected, err)
			m.lastErr = err.Error()
			continue
		}
		m.logger.Debug("file queued", zap.String("file", f.Name), zap.Int64("size", f.Size))
	}

	m.clearOutput()
	return rejected
}

// Remove deletes the file at index i and discards any previous output,
// error and notice.
func (m *Merge) Remove(i int) error {
	if _, err := m.queue.Remove(i); err != nil {
		return err
	}
	m.clear()
	m.clearOutput()
	return nil
}

// Files returns the queued files in upload order.
func (m *Merge) Files() []*ingest.File {
	return m.queue.Files()
}

// Ready reports whether at least one file is queued.
func (m *Merge) Ready() bool {
	return m.queue.Ready()
}

// Output returns the pretty-printed merge result, if any.
func (m *Merge) Output() ([]byte, bool) {
	return m.text, m.text != nil
}

func (m *Merge) clearOutput() {
	m.merged = jsonvalue.Value{}
	m.text = nil
}

// Run reads the queued files in order and folds them into one document.
// Reading stops at the first file that fails to parse or cannot be combined
// with what came before it; nothing is kept in that case.
func (m *Merge) Run(ctx context.Context) Result {
	startTime := time.Now()
	result := Result{}

	if !m.Ready() {
		result.Error = fmt.Errorf("%w: no JSON files to merge", ErrNotReady)
		m.record(result.Error)
		return result
	}

	m.clear()
	m.clearOutput()

	var folder merger.Folder
	for _, f := range m.queue.Files() {
		data, err := loadFile(ctx, f)
		if err != nil {
			return m.fail(result, err)
		}
		v, err := jsonvalue.Parse(data)
		if err != nil {
			return m.fail(result, wrapParse(f, err))
		}
		result.Stats.FilesRead++

		if err := folder.Add(merger.Source{Name: f.Name, Value: v}); err != nil {
			return m.fail(result, err)
		}
	}
	acc, _ := folder.Result()

	text, err := acc.Pretty()
	if err != nil {
		return m.fail(result, fmt.Errorf("failed to format merged JSON: %w", err))
	}

	m.merged = acc
	m.text = text
	result.Success = true
	result.Stats.Rows = acc.Len()
	result.Stats.Bytes = len(text)
	result.Stats.ProcessingTime = time.Since(startTime)

	m.logger.Info("merge run complete",
		zap.Int("files", result.Stats.FilesRead),
		zap.String("kind", acc.TypeName()),
		zap.Int("bytes", len(text)))

	return result
}

func (m *Merge) fail(result Result, err error) Result {
	m.logger.Error("merge run failed", zap.Error(err))
	result.Error = err
	m.record(err)
	return result
}

// Export renders the merge result in the given format.
func (m *Merge) Export(f export.Format) (*export.Document, error) {
	if m.text == nil {
		return nil, ErrNoOutput
	}

	switch f {
	case export.FormatJSON:
		data := append([]byte(nil), m.text...)
		return &export.Document{Name: m.opts.OutputFile, Format: f, Data: data}, nil

	case export.FormatXLSX:
		data, err := export.RecordsWorkbook(m.merged)
		if err != nil {
			return nil, fmt.Errorf("failed to render %s: %w", f, err)
		}
		return &export.Document{Name: m.opts.WorkbookFile, Format: f, Data: data}, nil
	}

	return nil, fmt.Errorf("%w: merge result cannot be exported as %s", export.ErrUnknownFormat, f)
}
