// =============================================================================
// Budget Report - Record Decoding
// =============================================================================
//
// This module decodes the three hierarchy input files into typed records.
//
// Each file must hold an array of JSON objects. Exports produced by other
// tools sometimes wrap the array (e.g. {"data": [...]}); the optional
// records_path JSONPath selector picks the array out of such a wrapper.
//
// FIELD MAPPING:
//   data_program.json:      id_program, nama_program, anggaran, realisasi_rill
//   data_kegiatan.json:     id_giat, id_program, nama_giat, anggaran, realisasi_rill
//   data_sub_kegiatan.json: id_sub_giat, id_giat, nama_sub_giat, anggaran, realisasi_rill
//
// =============================================================================

package hierarchy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ohler55/ojg/jp"

	"github.com/ginjaninja78/budget-report/internal/format"
	"github.com/ginjaninja78/budget-report/internal/types"
)

// =============================================================================
// FIELD NAMES
// =============================================================================

const (
	FieldProgramID     = "id_program"
	FieldProgramName   = "nama_program"
	FieldActivityID    = "id_giat"
	FieldActivityName  = "nama_giat"
	FieldSubActivityID = "id_sub_giat"
	FieldSubName       = "nama_sub_giat"
	FieldAnggaran      = "anggaran"
	FieldRealisasi     = "realisasi_rill"
)

// RootPath selects the document itself.
const RootPath = "$"

var (
	// ErrNotArray is returned when the selected value is not a JSON array.
	ErrNotArray = errors.New("expected a JSON array of records")

	// ErrNotObject is returned when an array element is not a JSON object.
	ErrNotObject = errors.New("expected every record to be a JSON object")
)

// =============================================================================
// DECODER
// =============================================================================

// Decoder turns raw file content into records.
type Decoder struct {
	path jp.Expr
}

// NewDecoder creates a decoder for the given records_path selector.
// An empty path or "$" uses the top-level value.
//
// PARAMETERS:
//   - recordsPath: JSONPath expression selecting the record array
//
// RETURNS:
//   - The decoder, or an error when the expression does not parse.
func NewDecoder(recordsPath string) (*Decoder, error) {
	recordsPath = strings.TrimSpace(recordsPath)
	if recordsPath == "" || recordsPath == RootPath {
		return &Decoder{}, nil
	}

	x, err := jp.ParseString(recordsPath)
	if err != nil {
		return nil, fmt.Errorf("invalid records_path %q: %w", recordsPath, err)
	}
	return &Decoder{path: x}, nil
}

// Records parses data and returns the selected array of objects.
func (d *Decoder) Records(data []byte) ([]map[string]any, error) {
	root, err := decodeDocument(data)
	if err != nil {
		return nil, err
	}

	selected := root
	if d != nil && d.path != nil {
		found := d.path.Get(root)
		switch len(found) {
		case 0:
			return nil, fmt.Errorf("records_path %s matched nothing: %w", d.path, ErrNotArray)
		case 1:
			selected = found[0]
		default:
			selected = found
		}
	}

	items, ok := selected.([]any)
	if !ok {
		return nil, fmt.Errorf("found %s: %w", describe(selected), ErrNotArray)
	}

	records := make([]map[string]any, 0, len(items))
	for i, item := range items {
		rec, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("record %d is %s: %w", i, describe(item), ErrNotObject)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Programs decodes data_program.json content.
func (d *Decoder) Programs(data []byte) ([]types.Program, error) {
	records, err := d.Records(data)
	if err != nil {
		return nil, err
	}

	out := make([]types.Program, 0, len(records))
	for _, rec := range records {
		out = append(out, types.Program{
			ID:        idField(rec, FieldProgramID),
			Name:      format.Label(rec[FieldProgramName]),
			Anggaran:  rec[FieldAnggaran],
			Realisasi: rec[FieldRealisasi],
		})
	}
	return out, nil
}

// Activities decodes data_kegiatan.json content.
func (d *Decoder) Activities(data []byte) ([]types.Activity, error) {
	records, err := d.Records(data)
	if err != nil {
		return nil, err
	}

	out := make([]types.Activity, 0, len(records))
	for _, rec := range records {
		out = append(out, types.Activity{
			ID:        idField(rec, FieldActivityID),
			ProgramID: idField(rec, FieldProgramID),
			Name:      format.Label(rec[FieldActivityName]),
			Anggaran:  rec[FieldAnggaran],
			Realisasi: rec[FieldRealisasi],
		})
	}
	return out, nil
}

// SubActivities decodes data_sub_kegiatan.json content.
func (d *Decoder) SubActivities(data []byte) ([]types.SubActivity, error) {
	records, err := d.Records(data)
	if err != nil {
		return nil, err
	}

	out := make([]types.SubActivity, 0, len(records))
	for _, rec := range records {
		out = append(out, types.SubActivity{
			ID:         idField(rec, FieldSubActivityID),
			ActivityID: idField(rec, FieldActivityID),
			Name:       format.Label(rec[FieldSubName]),
			Anggaran:   rec[FieldAnggaran],
			Realisasi:  rec[FieldRealisasi],
		})
	}
	return out, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func decodeDocument(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after top-level value")
	}
	return root, nil
}

func idField(rec map[string]any, key string) types.ID {
	v, ok := rec[key]
	return types.ID{Raw: v, Present: ok}
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "an object"
	case []any:
		return "an array"
	case string:
		return "a string"
	case json.Number:
		return "a number"
	case bool:
		return "a boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
