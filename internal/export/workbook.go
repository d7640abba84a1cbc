package export

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/budget-report/internal/format"
	"github.com/ginjaninja78/budget-report/internal/types"
)

// ReportSheetName is the worksheet holding the report in .xlsx exports.
const ReportSheetName = "Laporan"

// amountFormat is the Excel number format of amount cells.
const amountFormat = "#,##0"

// spacerRowHeight is the height in points of the signature spacer row.
const spacerRowHeight = 52.5

// reportStyles holds the style IDs registered in one workbook.
type reportStyles struct {
	title  int
	agency int
	stamp  int
	header int
	label  map[types.RowKind]int
	amount map[types.RowKind]int
	total  int
	sign   int
	name   int
}

// Workbook renders the sheet as an .xlsx workbook.
//
// LAYOUT:
//   Row 1-3   title, agency and date stamp, merged across A:E
//   Row 4     column headers
//   Row 5..   body rows; collapsed labels become vertically merged cells
//   next      total row, label merged across A:C
//   +2..      signature block in C:E
//
// Amounts are stored as numbers with the "#,##0" format so they sum and sort
// in the spreadsheet.
func Workbook(sheet *Sheet) ([]byte, error) {
	if sheet == nil {
		return nil, ErrEmptyReport
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ReportSheetName); err != nil {
		return nil, fmt.Errorf("failed to name worksheet: %w", err)
	}

	styles, err := registerReportStyles(f)
	if err != nil {
		return nil, fmt.Errorf("failed to register styles: %w", err)
	}

	w := &sheetWriter{f: f, name: ReportSheetName}

	w.banner(1, sheet.Layout.Title, styles.title)
	w.banner(2, sheet.Layout.Agency, styles.agency)
	w.banner(3, sheet.Stamp, styles.stamp)

	for c, h := range sheet.Layout.Headers {
		w.set(c+1, 4, h, styles.header)
	}

	const firstBodyRow = 5
	for r, cells := range sheet.Body {
		rowNum := firstBodyRow + r
		kind := sheet.Kinds[r]

		for c, cell := range cells {
			col := c + 1
			if isAmountColumn(c) {
				w.set(col, rowNum, amountValue(cell.Text), styles.amount[kind])
				continue
			}

			if cell.Hidden {
				w.style(col, rowNum, styles.label[kind])
				continue
			}
			w.set(col, rowNum, cell.Text, styles.label[kind])
			if cell.RowSpan > 1 {
				w.merge(col, rowNum, col, rowNum+cell.RowSpan-1)
			}
		}
	}

	totalRow := firstBodyRow + len(sheet.Body)
	w.set(1, totalRow, sheet.Total.Program, styles.total)
	w.style(2, totalRow, styles.total)
	w.style(3, totalRow, styles.total)
	w.merge(1, totalRow, LabelColumns, totalRow)
	w.set(4, totalRow, amountValue(sheet.Total.Anggaran), styles.amount[types.RowTotal])
	w.set(5, totalRow, amountValue(sheet.Total.Realisasi), styles.amount[types.RowTotal])

	signRow := totalRow + 2
	for i, line := range sheet.Layout.Signature {
		rowNum := signRow + i
		switch {
		case line.Spacer:
			if w.err == nil {
				w.err = f.SetRowHeight(ReportSheetName, rowNum, spacerRowHeight)
			}
		case line.Underline:
			w.set(3, rowNum, line.Text, styles.name)
		default:
			w.set(3, rowNum, line.Text, styles.sign)
		}
		w.merge(3, rowNum, Columns, rowNum)
	}

	if w.err == nil {
		w.err = f.SetColWidth(ReportSheetName, "A", "C", 42)
	}
	if w.err == nil {
		w.err = f.SetColWidth(ReportSheetName, "D", "E", 20)
	}
	if w.err != nil {
		return nil, fmt.Errorf("failed to write worksheet: %w", w.err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// amountValue converts a displayed amount into the number stored in a cell.
func amountValue(text string) any {
	d, err := decimal.NewFromString(format.ExportNumber(text))
	if err != nil {
		return 0
	}
	if d.IsInteger() {
		return d.IntPart()
	}
	f, _ := d.Float64()
	return f
}

// =============================================================================
// STYLES
// =============================================================================

// styleDef pairs a style with the field receiving its registered ID.
type styleDef struct {
	target *int
	style  *excelize.Style
}

func registerReportStyles(f *excelize.File) (*reportStyles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	fill := func(color string) excelize.Fill {
		return excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}}
	}
	numFmt := amountFormat

	var defs []styleDef
	s := &reportStyles{
		label:  make(map[types.RowKind]int),
		amount: make(map[types.RowKind]int),
	}

	add := func(target *int, style *excelize.Style) {
		defs = append(defs, styleDef{target: target, style: style})
	}

	add(&s.title, &excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 16},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	add(&s.agency, &excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	add(&s.stamp, &excelize.Style{
		Font:      &excelize.Font{Size: 10},
		Alignment: &excelize.Alignment{Horizontal: "right"},
	})
	add(&s.header, &excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      fill("CCFBF1"),
		Border:    border,
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})

	kinds := []struct {
		kind  types.RowKind
		font  *excelize.Font
		color string
	}{
		{types.RowProgram, &excelize.Font{Bold: true}, "F0FDF4"},
		{types.RowActivity, &excelize.Font{Italic: true}, "F7FEE7"},
		{types.RowSubActivity, &excelize.Font{}, "FFFFFF"},
		{types.RowTotal, &excelize.Font{Bold: true}, "E0F2F1"},
	}
	labelIDs := make([]int, len(kinds))
	amountIDs := make([]int, len(kinds))
	for i, k := range kinds {
		add(&labelIDs[i], &excelize.Style{
			Font:      k.font,
			Fill:      fill(k.color),
			Border:    border,
			Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "top", WrapText: true},
		})
		add(&amountIDs[i], &excelize.Style{
			Font:         k.font,
			Fill:         fill(k.color),
			Border:       border,
			Alignment:    &excelize.Alignment{Horizontal: "right", Vertical: "top"},
			CustomNumFmt: &numFmt,
		})
	}
	add(&s.total, &excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      fill("E0F2F1"),
		Border:    border,
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "top"},
	})
	add(&s.sign, &excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	add(&s.name, &excelize.Style{
		Font:      &excelize.Font{Underline: "single"},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	for _, d := range defs {
		id, err := f.NewStyle(d.style)
		if err != nil {
			return nil, err
		}
		*d.target = id
	}

	for i, k := range kinds {
		s.label[k.kind] = labelIDs[i]
		s.amount[k.kind] = amountIDs[i]
	}
	return s, nil
}

// =============================================================================
// SHEET WRITER
// =============================================================================

// sheetWriter records the first error so cell writes read as a flat list.
type sheetWriter struct {
	f    *excelize.File
	name string
	err  error
}

func (w *sheetWriter) cell(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil && w.err == nil {
		w.err = err
	}
	return name
}

func (w *sheetWriter) set(col, row int, value any, style int) {
	if w.err != nil {
		return
	}
	axis := w.cell(col, row)
	if w.err != nil {
		return
	}
	if w.err = w.f.SetCellValue(w.name, axis, value); w.err != nil {
		return
	}
	w.err = w.f.SetCellStyle(w.name, axis, axis, style)
}

func (w *sheetWriter) style(col, row int, style int) {
	if w.err != nil {
		return
	}
	axis := w.cell(col, row)
	if w.err != nil {
		return
	}
	w.err = w.f.SetCellStyle(w.name, axis, axis, style)
}

func (w *sheetWriter) merge(fromCol, fromRow, toCol, toRow int) {
	if w.err != nil {
		return
	}
	from := w.cell(fromCol, fromRow)
	to := w.cell(toCol, toRow)
	if w.err != nil {
		return
	}
	w.err = w.f.MergeCell(w.name, from, to)
}

// banner writes a full-width line merged across all report columns.
func (w *sheetWriter) banner(row int, text string, style int) {
	w.set(1, row, text, style)
	w.merge(1, row, Columns, row)
}
