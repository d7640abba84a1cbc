package export

import (
	"encoding/json"
	"errors"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/budget-report/internal/jsonvalue"
)

// RecordsSheetName is the worksheet holding merged records in .xlsx exports.
const RecordsSheetName = "Data"

// ErrNotTabular is returned when a merged document has no table shape.
var ErrNotTabular = errors.New("merged data cannot be laid out as a table")

// RecordsWorkbook lays out a merged JSON document as a worksheet.
//
// SHAPES:
//   - array of objects -> one row per object, header = union of keys in
//                         first-seen order
//   - object           -> two columns, key and value
//   - anything else    -> ErrNotTabular
//
// Nested arrays and objects are written as compact JSON text.
func RecordsWorkbook(v jsonvalue.Value) ([]byte, error) {
	var header []string
	var rows [][]jsonvalue.Value

	switch v.Kind() {
	case jsonvalue.Sequence:
		columns := orderedmap.New[string, int]()
		items := v.Items()
		for i, item := range items {
			if item.Kind() != jsonvalue.Mapping {
				return nil, fmt.Errorf("%w: element %d is %s", ErrNotTabular, i, item.TypeName())
			}
			for _, field := range item.Fields() {
				if _, ok := columns.Get(field.Key); !ok {
					columns.Set(field.Key, columns.Len())
				}
			}
		}
		for pair := columns.Oldest(); pair != nil; pair = pair.Next() {
			header = append(header, pair.Key)
		}
		for _, item := range items {
			row := make([]jsonvalue.Value, len(header))
			for _, field := range item.Fields() {
				idx, _ := columns.Get(field.Key)
				row[idx] = field.Value
			}
			rows = append(rows, row)
		}

	case jsonvalue.Mapping:
		header = []string{"key", "value"}
		for _, field := range v.Fields() {
			rows = append(rows, []jsonvalue.Value{jsonvalue.String(field.Key), field.Value})
		}

	default:
		return nil, fmt.Errorf("%w: top-level value is %s", ErrNotTabular, v.TypeName())
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", RecordsSheetName); err != nil {
		return nil, fmt.Errorf("failed to name worksheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"CCFBF1"}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register styles: %w", err)
	}

	w := &sheetWriter{f: f, name: RecordsSheetName}
	for c, h := range header {
		w.set(c+1, 1, h, headerStyle)
	}
	for r, row := range rows {
		for c, cell := range row {
			value, err := cellValue(cell)
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", r+1, header[c], err)
			}
			if value == nil {
				continue
			}
			if w.err == nil {
				axis := w.cell(c+1, r+2)
				if w.err == nil {
					w.err = f.SetCellValue(RecordsSheetName, axis, value)
				}
			}
		}
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

// cellValue maps a JSON value to what a cell stores. Missing and null values
// leave the cell empty.
func cellValue(v jsonvalue.Value) (any, error) {
	if v.Kind() != jsonvalue.Scalar {
		b, err := v.MarshalJSON()
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}

	switch s := v.Scalar().(type) {
	case nil:
		return nil, nil
	case json.Number:
		if i, err := s.Int64(); err == nil {
			return i, nil
		}
		if f, err := s.Float64(); err == nil {
			return f, nil
		}
		return s.String(), nil
	default:
		return s, nil
	}
}
