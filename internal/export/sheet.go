package export

import (
	"errors"
	"time"

	"github.com/ginjaninja78/budget-report/internal/format"
	"github.com/ginjaninja78/budget-report/internal/table"
	"github.com/ginjaninja78/budget-report/internal/types"
)

// =============================================================================
// REPORT LAYOUT
// =============================================================================

const (
	// Columns is the number of report columns.
	Columns = 5

	// LabelColumns is the number of leading label columns; they are the ones
	// collapsed into row spans and spanned by the total label.
	LabelColumns = 3
)

// ErrEmptyReport is returned when there are no body rows to export.
var ErrEmptyReport = errors.New("report has no rows to export")

// SignatureLine is one line of the closing signature block.
type SignatureLine struct {
	// Text is the line content.
	Text string

	// Underline marks the signatory's name.
	Underline bool

	// Spacer marks the tall blank line left for the handwritten signature.
	Spacer bool
}

// Layout holds the fixed furniture printed around the table.
type Layout struct {
	Title     string
	Agency    string
	DateLabel string
	Headers   []string
	Signature []SignatureLine

	// PrintedAt is stamped under the title. Zero means time.Now().
	PrintedAt time.Time
}

// DefaultHeaders returns the five column headers.
func DefaultHeaders() []string {
	return []string{"Program", "Kegiatan", "Sub Kegiatan", "Anggaran (Rp)", "Realisasi Rill (Rp)"}
}

// DefaultSignature returns the signature block of the agriculture office.
func DefaultSignature() []SignatureLine {
	return []SignatureLine{
		{Text: "a.n. Kepala Dinas Pertanian Kab. Grobogan"},
		{Text: "Plt. Sekretaris"},
		{Text: "Kepala Bidang Sarpras & Perlindungan Tanaman"},
		{Spacer: true},
		{Text: "Slamet Waluyono, S.H., M.M", Underline: true},
		{Text: "Pembina Utama Muda"},
		{Text: "NIP. 198606132010011012"},
	}
}

// DefaultLayout returns the agriculture office report layout.
func DefaultLayout() Layout {
	return Layout{
		Title:     "LAPORAN REALISASI ANGGARAN",
		Agency:    "DINAS PERTANIAN KABUPATEN GROBOGAN",
		DateLabel: "Tanggal Cetak",
		Headers:   DefaultHeaders(),
		Signature: DefaultSignature(),
	}
}

// =============================================================================
// SHEET
// =============================================================================

// Sheet is a report prepared for rendering: body rows collapsed, furniture
// resolved. Both writers render the same Sheet.
type Sheet struct {
	Layout Layout

	// Stamp is the date line, e.g. "Tanggal Cetak: 19 Oktober 2026".
	Stamp string

	// Body holds the collapsed body rows, Columns cells each.
	Body [][]table.Cell

	// Kinds holds the row kind of each body row.
	Kinds []types.RowKind

	// Total is the trailing total row.
	Total types.DisplayRow
}

// NewSheet collapses a report's body rows and resolves the layout.
//
// PARAMETERS:
//   - report: the joined report
//   - layout: furniture; empty fields fall back to DefaultLayout
//
// RETURNS:
//   - The sheet, or ErrEmptyReport when the report has no body rows.
func NewSheet(report *types.Report, layout Layout) (*Sheet, error) {
	if report.Empty() {
		return nil, ErrEmptyReport
	}

	layout = withDefaults(layout)

	grid := make([][]string, len(report.Rows))
	kinds := make([]types.RowKind, len(report.Rows))
	for i, row := range report.Rows {
		grid[i] = row.Cells()
		kinds[i] = row.Kind
	}

	return &Sheet{
		Layout: layout,
		Stamp:  layout.DateLabel + ": " + format.LongDate(layout.PrintedAt),
		Body:   table.Collapse(grid, LabelColumns),
		Kinds:  kinds,
		Total:  report.Total,
	}, nil
}

func withDefaults(l Layout) Layout {
	def := DefaultLayout()
	if l.Title == "" {
		l.Title = def.Title
	}
	if l.Agency == "" {
		l.Agency = def.Agency
	}
	if l.DateLabel == "" {
		l.DateLabel = def.DateLabel
	}
	if len(l.Headers) != Columns {
		l.Headers = def.Headers
	}
	if l.Signature == nil {
		l.Signature = def.Signature
	}
	if l.PrintedAt.IsZero() {
		l.PrintedAt = time.Now()
	}
	return l
}

// isAmountColumn reports whether column c holds a currency amount.
func isAmountColumn(c int) bool {
	return c >= LabelColumns
}
