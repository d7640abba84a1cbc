package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/budget-report/internal/export"
	"github.com/ginjaninja78/budget-report/internal/hierarchy"
	"github.com/ginjaninja78/budget-report/internal/ingest"
	"github.com/ginjaninja78/budget-report/internal/types"
)

// Default download names of the report.
const (
	DefaultReportFile   = "data_program_kegiatan_subkegiatan.xls"
	DefaultWorkbookFile = "data_program_kegiatan_subkegiatan.xlsx"
)

// ReportOptions configures a Report controller.
type ReportOptions struct {
	// Names are the accepted file names per slot.
	Names ingest.SlotNames

	// RecordsPath selects the record array inside each file ("$" = root).
	RecordsPath string

	// TotalLabel labels the total row.
	TotalLabel string

	// Layout is the printed furniture around the table.
	Layout export.Layout

	// OutputFile and WorkbookFile name the .xls and .xlsx downloads.
	OutputFile   string
	WorkbookFile string

	// Now stamps exports; defaults to time.Now.
	Now func() time.Time

	Logger *zap.Logger
}

// Report is the hierarchy pipeline controller.
type Report struct {
	status

	opts    ReportOptions
	decoder *hierarchy.Decoder
	slots   *ingest.Slots
	logger  *zap.Logger

	// data holds the parsed inputs of the last successful read.
	data hierarchy.Dataset

	// output is the last joined report; nil when there is nothing to export.
	output *types.Report
}

// NewReport creates a Report controller.
func NewReport(opts ReportOptions) (*Report, error) {
	if opts.Names == (ingest.SlotNames{}) {
		opts.Names = ingest.DefaultSlotNames()
	}
	if opts.OutputFile == "" {
		opts.OutputFile = DefaultReportFile
	}
	if opts.WorkbookFile == "" {
		opts.WorkbookFile = DefaultWorkbookFile
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	decoder, err := hierarchy.NewDecoder(opts.RecordsPath)
	if err != nil {
		return nil, err
	}

	return &Report{
		opts:    opts,
		decoder: decoder,
		slots:   ingest.NewSlots(opts.Names),
		logger:  nopIfNil(opts.Logger),
	}, nil
}

// =============================================================================
// FILE MANAGEMENT
// =============================================================================

// AddFiles offers files to the slots. Accepted files replace earlier files
// with the same name; rejected files are returned as *ingest.RejectError
// values and the last rejection becomes the visible error. Any previous
// output is discarded.
func (r *Report) AddFiles(files ...*ingest.File) []error {
	r.clear()

	var rejected []error
	for _, f := range files {
		role, err := r.slots.Add(f)
		if err != nil {
			r.logger.Warn("file rejected", zap.String("file", f.Name), zap.Error(err))
			rejected = append(rejected, err)
			r.lastErr = err.Error()
			continue
		}
		r.logger.Debug("file accepted", zap.String("file", f.Name), zap.String("slot", string(role)))
	}

	r.clearOutput()
	return rejected
}

// Remove empties a slot and discards any previous output. Emptying a filled
// slot also clears the visible error and notice.
func (r *Report) Remove(role ingest.Role) bool {
	removed := r.slots.Remove(role)
	if removed {
		r.clear()
	}
	r.clearOutput()
	return removed
}

// Ready reports whether all three files are present.
func (r *Report) Ready() bool {
	return r.slots.Ready()
}

// Slots returns the filled slots in hierarchy order.
func (r *Report) Slots() []ingest.SlotEntry {
	return r.slots.Entries()
}

// Missing returns the names of the files still to be uploaded.
func (r *Report) Missing() []string {
	return r.slots.Missing()
}

// Output returns the last joined report, if any.
func (r *Report) Output() (*types.Report, bool) {
	return r.output, r.output != nil
}

func (r *Report) clearOutput() {
	r.output = nil
}

// =============================================================================
// RUN
// =============================================================================

// Run reads the three files, joins them and keeps the result for export.
//
// PROCESSING STEPS:
//   1. Check that all slots are filled
//   2. Discard the previous output and parsed data
//   3. Read and decode the three files concurrently; any failure aborts
//   4. Join the records into report rows
//   5. Keep the report, or record the "no data" notice when it is empty
func (r *Report) Run(ctx context.Context) Result {
	startTime := time.Now()
	result := Result{}

	if !r.Ready() {
		result.Error = fmt.Errorf("%w: upload %s", ErrNotReady, strings.Join(r.Missing(), ", "))
		r.record(result.Error)
		return result
	}

	r.clear()
	r.clearOutput()
	r.data = hierarchy.Dataset{}

	ds, err := r.read(ctx)
	if err != nil {
		r.logger.Error("report run failed", zap.Error(err))
		result.Error = err
		r.record(err)
		return result
	}
	r.data = ds
	result.Stats.FilesRead = 3

	report := hierarchy.Join(r.data, r.opts.TotalLabel)
	result.Stats.Rows = len(report.Rows)
	result.Stats.Programs = report.Programs
	result.Stats.ProcessingTime = time.Since(startTime)

	if report.Empty() {
		r.logger.Info("report run produced no rows")
		result.Error = ErrNoData
		r.record(ErrNoData)
		return result
	}

	r.output = report
	result.Success = true
	r.logger.Info("report run complete",
		zap.Int("programs", report.Programs),
		zap.Int("rows", len(report.Rows)),
		zap.Duration("elapsed", result.Stats.ProcessingTime))

	return result
}

// read loads and decodes the three slots concurrently.
func (r *Report) read(ctx context.Context) (hierarchy.Dataset, error) {
	var ds hierarchy.Dataset
	g, gctx := errgroup.WithContext(ctx)

	program := r.slots.Get(ingest.RoleProgram)
	activity := r.slots.Get(ingest.RoleActivity)
	sub := r.slots.Get(ingest.RoleSubActivity)

	g.Go(func() error {
		data, err := loadFile(gctx, program)
		if err != nil {
			return err
		}
		ds.Programs, err = r.decoder.Programs(data)
		return wrapParse(program, err)
	})
	g.Go(func() error {
		data, err := loadFile(gctx, activity)
		if err != nil {
			return err
		}
		ds.Activities, err = r.decoder.Activities(data)
		return wrapParse(activity, err)
	})
	g.Go(func() error {
		data, err := loadFile(gctx, sub)
		if err != nil {
			return err
		}
		ds.SubActivities, err = r.decoder.SubActivities(data)
		return wrapParse(sub, err)
	})

	if err := g.Wait(); err != nil {
		return hierarchy.Dataset{}, err
	}
	return ds, nil
}

// =============================================================================
// EXPORT
// =============================================================================

// Export renders the last report in the given format.
func (r *Report) Export(f export.Format) (*export.Document, error) {
	if r.output == nil {
		return nil, ErrNoOutput
	}

	layout := r.opts.Layout
	layout.PrintedAt = r.opts.Now()

	sheet, err := export.NewSheet(r.output, layout)
	if err != nil {
		return nil, err
	}

	switch f {
	case export.FormatXLS:
		data, err := export.Markup(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to render %s: %w", f, err)
		}
		return &export.Document{Name: r.opts.OutputFile, Format: f, Data: data}, nil

	case export.FormatXLSX:
		data, err := export.Workbook(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to render %s: %w", f, err)
		}
		return &export.Document{Name: r.opts.WorkbookFile, Format: f, Data: data}, nil
	}

	return nil, fmt.Errorf("%w: report cannot be exported as %s", export.ErrUnknownFormat, f)
}

// =============================================================================
// HELPERS
// =============================================================================

func loadFile(ctx context.Context, f *ingest.File) ([]byte, error) {
	data, err := f.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read or parse JSON file %s: %w", f.Name, err)
	}
	return data, nil
}

func wrapParse(f *ingest.File, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("failed to read or parse JSON file %s: %w", f.Name, err)
}
