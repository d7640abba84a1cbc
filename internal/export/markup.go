// =============================================================================
// Budget Report - Spreadsheet Markup Writer
// =============================================================================
//
// This module writes a report as an Office HTML document (.xls). Spreadsheet
// applications open such files directly, keep row/column spans, and honor the
// mso-number-format hint so amount columns are treated as numbers.
//
// DOCUMENT STRUCTURE:
//
//   <html xmlns:o=... xmlns:x=... xmlns=...>
//     <head>...</head>
//     <body>
//       <table>                                   <!-- report table -->
//         <tr><th colspan="5">TITLE</th></tr>
//         <tr><th colspan="5">AGENCY</th></tr>
//         <tr><th colspan="5">Tanggal Cetak: ...</th></tr>
//         <tr><th>Program</th>...</tr>            <!-- header row -->
//         <tbody>
//           <tr>
//             <td rowspan="3">Program A</td>      <!-- collapsed label -->
//             ...
//             <td class="num">1500000</td>        <!-- re-encoded amount -->
//           </tr>
//           <tr><td colspan="3">Jumlah</td>...</tr>
//         </tbody>
//       </table>
//       <br>
//       <table>...signature block...</table>
//     </body>
//   </html>
//
// =============================================================================

package export

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/ginjaninja78/budget-report/internal/format"
	"github.com/ginjaninja78/budget-report/internal/types"
)

// =============================================================================
// MARKUP OPTIONS
// =============================================================================

// MarkupOptions contains options for markup generation.
type MarkupOptions struct {
	// Indent is the string used for indentation.
	// Default: "  " (two spaces)
	Indent string

	// Charset is declared in the document head.
	// Default: "UTF-8"
	Charset string

	// NumberFormat is the mso-number-format applied to amount cells.
	// Default: "#,##0"
	NumberFormat string

	// SpacerHeight is the CSS height of the signature spacer line.
	// Default: "70px"
	SpacerHeight string
}

// DefaultMarkupOptions returns the default markup options.
func DefaultMarkupOptions() MarkupOptions {
	return MarkupOptions{
		Indent:       "  ",
		Charset:      "UTF-8",
		NumberFormat: "#,##0",
		SpacerHeight: "70px",
	}
}

// Inline styles per row kind.
const (
	cellStyle        = "border: 1px solid black; padding: 4px; vertical-align: top; text-align: left;"
	headerStyle      = "text-align: center; font-weight: bold; background-color: #ccfbf1;"
	programStyle     = "font-weight: bold; background-color: #f0fdf4;"
	activityStyle    = "font-style: italic; background-color: #f7fee7;"
	subActivityStyle = "background-color: #ffffff;"
	totalStyle       = "font-weight: bold; background-color: #e0f2f1;"
	titleStyle       = "text-align: center; font-weight: bold;"
	dateStyle        = "text-align: right; font-size: 10pt;"
	amountStyle      = "text-align: right;"
	signatureStyle   = "text-align: center;"
)

func rowStyle(kind types.RowKind) string {
	switch kind {
	case types.RowProgram:
		return programStyle
	case types.RowActivity:
		return activityStyle
	case types.RowSubActivity:
		return subActivityStyle
	case types.RowTotal:
		return totalStyle
	default:
		return ""
	}
}

// =============================================================================
// MARKUP GENERATION
// =============================================================================

// Markup renders the sheet with default options.
func Markup(sheet *Sheet) ([]byte, error) {
	return MarkupWithOptions(sheet, DefaultMarkupOptions())
}

// MarkupWithOptions renders the sheet as an Office HTML document.
//
// PARAMETERS:
//   - sheet: the prepared report
//   - options: generation options
//
// RETURNS:
//   - The document bytes.
//   - An error if the sheet is malformed.
func MarkupWithOptions(sheet *Sheet, options MarkupOptions) ([]byte, error) {
	if sheet == nil {
		return nil, ErrEmptyReport
	}

	report, err := buildReportTable(sheet, options)
	if err != nil {
		return nil, fmt.Errorf("failed to build report table: %w", err)
	}

	doc := element{
		name: "html",
		attrs: []attr{
			{"xmlns:o", "urn:schemas-microsoft-com:office:office"},
			{"xmlns:x", "urn:schemas-microsoft-com:office:excel"},
			{"xmlns", "http://www.w3.org/TR/REC-html40"},
		},
		children: []element{
			{
				name: "head",
				children: []element{
					{name: "meta", attrs: []attr{{"charset", options.Charset}}, void: true},
					{name: "style", text: documentCSS(options), raw: true},
				},
			},
			{
				name: "body",
				children: []element{
					report,
					{name: "br", void: true},
					buildSignatureTable(sheet, options),
				},
			},
		},
	}

	var buffer bytes.Buffer
	buffer.WriteString("<!DOCTYPE html>\n")
	writeElement(&buffer, doc, options.Indent, 0)

	return buffer.Bytes(), nil
}

func documentCSS(options MarkupOptions) string {
	return fmt.Sprintf("table { border-collapse: collapse; } .num { mso-number-format:\"%s\"; }", options.NumberFormat)
}

// buildReportTable constructs the title rows, header row, body and total.
func buildReportTable(sheet *Sheet, options MarkupOptions) (element, error) {
	tbl := element{
		name:  "table",
		attrs: []attr{{"style", "border-collapse: collapse; width: 100%;"}},
	}

	span := strconv.Itoa(Columns)
	tbl.children = append(tbl.children,
		row(th(sheet.Layout.Title, attr{"colspan", span}, attr{"style", titleStyle + " font-size: 16pt;"})),
		row(th(sheet.Layout.Agency, attr{"colspan", span}, attr{"style", titleStyle + " font-size: 12pt;"})),
		row(th(sheet.Stamp, attr{"colspan", span}, attr{"style", dateStyle})),
	)

	header := element{name: "tr"}
	for _, h := range sheet.Layout.Headers {
		header.children = append(header.children, th(h, attr{"style", headerStyle + " " + cellStyle}))
	}
	tbl.children = append(tbl.children, header)

	body := element{name: "tbody"}
	for r, cells := range sheet.Body {
		if len(cells) != Columns {
			return element{}, fmt.Errorf("row %d has %d cells, want %d", r+1, len(cells), Columns)
		}

		style := cellStyle + " " + rowStyle(sheet.Kinds[r])
		tr := element{name: "tr"}
		for c, cell := range cells {
			if cell.Hidden {
				continue
			}

			td := element{name: "td", text: cell.Text}
			if cell.RowSpan > 1 {
				td.attrs = append(td.attrs, attr{"rowspan", strconv.Itoa(cell.RowSpan)})
			}
			if isAmountColumn(c) {
				td.text = format.ExportNumber(cell.Text)
				td.attrs = append(td.attrs, attr{"class", "num"}, attr{"style", style + " " + amountStyle})
			} else {
				td.attrs = append(td.attrs, attr{"style", style})
			}
			tr.children = append(tr.children, td)
		}
		body.children = append(body.children, tr)
	}

	totalRowStyle := cellStyle + " " + totalStyle
	body.children = append(body.children, row(
		element{name: "td", text: sheet.Total.Program, attrs: []attr{
			{"colspan", strconv.Itoa(LabelColumns)},
			{"style", totalRowStyle + " text-align: center;"},
		}},
		element{name: "td", text: format.ExportNumber(sheet.Total.Anggaran), attrs: []attr{
			{"class", "num"}, {"style", totalRowStyle + " " + amountStyle},
		}},
		element{name: "td", text: format.ExportNumber(sheet.Total.Realisasi), attrs: []attr{
			{"class", "num"}, {"style", totalRowStyle + " " + amountStyle},
		}},
	))
	tbl.children = append(tbl.children, body)

	return tbl, nil
}

// buildSignatureTable places each signature line under the amount columns.
func buildSignatureTable(sheet *Sheet, options MarkupOptions) element {
	tbl := element{
		name:  "table",
		attrs: []attr{{"style", "width: 100%; border-collapse: collapse;"}},
	}

	for _, line := range sheet.Layout.Signature {
		td := element{name: "td", attrs: []attr{{"colspan", strconv.Itoa(Columns - 2)}}}
		switch {
		case line.Spacer:
			td.attrs = append(td.attrs, attr{"style", signatureStyle + " height: " + options.SpacerHeight + ";"})
		case line.Underline:
			td.attrs = append(td.attrs, attr{"style", signatureStyle})
			td.children = []element{{name: "u", text: line.Text}}
		default:
			td.attrs = append(td.attrs, attr{"style", signatureStyle})
			td.text = line.Text
		}
		tbl.children = append(tbl.children, row(element{name: "td"}, element{name: "td"}, td))
	}

	return tbl
}

// =============================================================================
// ELEMENT TREE
// =============================================================================

type attr struct {
	name  string
	value string
}

// element is a markup element with either text or children.
type element struct {
	name     string
	attrs    []attr
	text     string
	children []element

	// raw writes text without escaping (style sheets).
	raw bool

	// void elements have no closing tag.
	void bool
}

func row(cells ...element) element {
	return element{name: "tr", children: cells}
}

func th(text string, attrs ...attr) element {
	return element{name: "th", text: text, attrs: attrs}
}

// writeElement writes an element to the buffer with indentation.
func writeElement(buffer *bytes.Buffer, el element, indent string, level int) {
	for i := 0; i < level; i++ {
		buffer.WriteString(indent)
	}

	buffer.WriteString("<")
	buffer.WriteString(el.name)
	for _, a := range el.attrs {
		fmt.Fprintf(buffer, " %s=\"%s\"", a.name, escapeMarkup(a.value))
	}
	buffer.WriteString(">")

	if el.void {
		buffer.WriteString("\n")
		return
	}

	if len(el.children) == 0 {
		if el.raw {
			buffer.WriteString(el.text)
		} else {
			buffer.WriteString(escapeMarkup(el.text))
		}
	} else {
		buffer.WriteString("\n")
		for _, child := range el.children {
			writeElement(buffer, child, indent, level+1)
		}
		for i := 0; i < level; i++ {
			buffer.WriteString(indent)
		}
	}

	buffer.WriteString("</")
	buffer.WriteString(el.name)
	buffer.WriteString(">\n")
}

// escapeMarkup escapes special characters for HTML text and attributes.
func escapeMarkup(s string) string {
	var buffer bytes.Buffer

	for _, r := range s {
		switch r {
		case '&':
			buffer.WriteString("&amp;")
		case '<':
			buffer.WriteString("&lt;")
		case '>':
			buffer.WriteString("&gt;")
		case '"':
			buffer.WriteString("&quot;")
		case '\'':
			buffer.WriteString("&#39;")
		default:
			buffer.WriteRune(r)
		}
	}

	return buffer.String()
}
