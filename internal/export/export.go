// =============================================================================
// Budget Report - Export Formats
// =============================================================================
//
// This package turns a joined report (or a merged JSON document) into the
// files users download.
//
// FORMATS:
//   xls   Office HTML dialect; opened and auto-formatted by spreadsheet apps
//   xlsx  Native workbook written with excelize
//   json  Pretty-printed merge result (see jsonvalue.Value.Pretty)
//
// Every format is a pure rendering of its input: the only transformation is
// re-encoding displayed amounts as bare numbers.
//
// =============================================================================

package export

import (
	"errors"
	"fmt"
	"strings"
)

// Format identifies a download format.
type Format string

const (
	FormatXLS  Format = "xls"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// ErrUnknownFormat is returned by ParseFormat for unsupported names.
var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat converts a user-supplied name ("xls", ".XLSX") into a Format.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "."))
	switch f {
	case FormatXLS, FormatXLSX, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ContentType returns the MIME type used when serving the format.
func (f Format) ContentType() string {
	switch f {
	case FormatXLS:
		return "application/vnd.ms-excel;charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatJSON:
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

// Document is one rendered download.
type Document struct {
	// Name is the file name offered to the user.
	Name string

	// Format is the rendering format.
	Format Format

	// Data is the file content.
	Data []byte
}

// ContentType returns the MIME type of the document.
func (d *Document) ContentType() string {
	return d.Format.ContentType()
}
