// =============================================================================
// Budget Report - Shared Types
// =============================================================================
//
// This package contains the record and row types shared by the hierarchy
// joiner, the table collapser, the exporters and the session controllers.
// Keeping them here avoids import cycles between those packages.
//
// HIERARCHY:
//   Program (id_program)
//   └── Activity (id_giat, id_program -> Program)
//       └── SubActivity (id_sub_giat, id_giat -> Activity)
//
// =============================================================================

package types

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// SOURCE RECORDS
// =============================================================================

// Program is the top level of the budget hierarchy (data_program.json).
type Program struct {
	// ID is the raw id_program value.
	ID ID

	// Name is nama_program as found in the source file.
	Name string

	// Anggaran is the budgeted amount (raw JSON value, see format.ParseAmount).
	Anggaran any

	// Realisasi is realisasi_rill, the realized amount.
	Realisasi any
}

// Activity is a kegiatan row (data_kegiatan.json).
type Activity struct {
	ID        ID
	ProgramID ID
	Name      string
	Anggaran  any
	Realisasi any
}

// SubActivity is a sub kegiatan row (data_sub_kegiatan.json).
type SubActivity struct {
	ID         ID
	ActivityID ID
	Name       string
	Anggaran   any
	Realisasi  any
}

// =============================================================================
// DISPLAY ROWS
// =============================================================================

// RowKind tags a display row for export styling only.
type RowKind string

const (
	RowProgram     RowKind = "program"
	RowActivity    RowKind = "activity"
	RowSubActivity RowKind = "sub-activity"
	RowTotal       RowKind = "total"
)

// DisplayRow is one rendered line of the report. All five columns are text
// exactly as displayed; numeric re-encoding happens in the exporter.
type DisplayRow struct {
	Program     string
	Activity    string
	SubActivity string
	Anggaran    string
	Realisasi   string
	Kind        RowKind
}

// Cells returns all five columns in order.
func (r DisplayRow) Cells() []string {
	return []string{r.Program, r.Activity, r.SubActivity, r.Anggaran, r.Realisasi}
}

// Report is the outcome of one join run.
type Report struct {
	// Rows are the body rows in traversal order (no total row).
	Rows []DisplayRow

	// Total is the trailing "Jumlah" row. Its Program field holds the label,
	// which spans the three label columns when rendered.
	Total DisplayRow

	// TotalAnggaran and TotalRealisasi are the program-level grand totals.
	TotalAnggaran  decimal.Decimal
	TotalRealisasi decimal.Decimal

	// Programs is the number of program rows emitted.
	Programs int
}

// Empty reports whether the run produced nothing to show.
func (r *Report) Empty() bool {
	return r == nil || len(r.Rows) == 0
}
