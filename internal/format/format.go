// =============================================================================
// Budget Report - Value Formatting
// =============================================================================
//
// This module converts raw record values into the text shown in the report
// and back into the bare numbers written to spreadsheets.
//
// FORMATTING RULES:
//   - Labels:   lowercase everything, then capitalize the first letter of each
//               whitespace-delimited word ("BELANJA PEGAWAI" -> "Belanja Pegawai")
//   - Amounts:  zero or non-numeric -> "-", otherwise Rupiah with Indonesian
//               grouping and no forced fraction digits ("Rp 1.500.000")
//   - Export:   display text -> signed bare number ("Rp 1.500.000" -> "1500000")
//   - Dates:    Indonesian long form ("19 Oktober 2026")
//
// The currency and locale are fixed; the report is only ever produced in
// Rupiah for an Indonesian audience.
//
// =============================================================================

package format

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// Placeholder is shown for empty columns and zero amounts.
const Placeholder = "-"

// CurrencySymbol prefixes every displayed amount.
const CurrencySymbol = "Rp"

// maxFractionDigits matches the minor unit of IDR.
const maxFractionDigits = 2

// nbsp separates the currency symbol from the number.
const nbsp = "\u00a0"

// numericPrefix matches the leading number of a string, the same way a
// lenient float parser reads "1500abc" as 1500.
var numericPrefix = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)

// exportStrip removes everything except digits, commas and minus signs.
var exportStrip = regexp.MustCompile(`[^0-9,-]`)

var monthNames = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// =============================================================================
// LABELS
// =============================================================================

// TitleCase lowercases s and uppercases the first letter of every
// whitespace-delimited token. Whitespace is preserved as-is.
func TitleCase(s string) string {
	if s == "" {
		return ""
	}

	lower := []rune(strings.ToLower(s))
	atStart := true
	for i, r := range lower {
		if unicode.IsSpace(r) {
			atStart = true
			continue
		}
		if atStart {
			lower[i] = unicode.ToUpper(r)
		}
		atStart = false
	}

	return string(lower)
}

// Label converts a raw name value into label text. Strings pass through,
// null/absent become empty, anything else is rendered as its JSON text.
func Label(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

// =============================================================================
// AMOUNTS
// =============================================================================

// ParseAmount converts a raw amount value into a decimal.
//
// PARAMETERS:
//   - v: the value decoded from JSON (json.Number, float64, string, bool, nil).
//
// RETURNS:
//   - The amount. Absent, null, boolean and non-numeric values are zero.
//     Strings are read up to the end of their leading number.
func ParseAmount(v any) decimal.Decimal {
	switch x := v.(type) {
	case json.Number:
		if d, err := decimal.NewFromString(x.String()); err == nil {
			return d
		}
	case float64:
		return decimal.NewFromFloat(x)
	case int:
		return decimal.NewFromInt(int64(x))
	case int64:
		return decimal.NewFromInt(x)
	case decimal.Decimal:
		return x
	case string:
		if d, ok := parsePrefix(x); ok {
			return d
		}
	}
	return decimal.Zero
}

// parsePrefix reads the leading number of s, ignoring leading whitespace.
func parsePrefix(s string) (decimal.Decimal, bool) {
	m := numericPrefix.FindString(strings.TrimLeftFunc(s, unicode.IsSpace))
	if m == "" {
		return decimal.Zero, false
	}
	// "12." is a valid prefix but not a valid decimal literal.
	m = strings.TrimSuffix(m, ".")
	d, err := decimal.NewFromString(m)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// DisplayAmount renders a raw amount value for the report.
func DisplayAmount(v any) string {
	return DisplayDecimal(ParseAmount(v))
}

// DisplayDecimal renders an amount as Rupiah, or Placeholder when it is zero.
func DisplayDecimal(d decimal.Decimal) string {
	if d.IsZero() {
		return Placeholder
	}

	f, _ := d.Abs().Round(maxFractionDigits).Float64()
	p := message.NewPrinter(language.Indonesian)
	text := CurrencySymbol + nbsp + p.Sprint(number.Decimal(f, number.MaxFractionDigits(maxFractionDigits)))

	if d.IsNegative() {
		return "-" + text
	}
	return text
}

// ExportNumber re-encodes a displayed amount as a bare number so spreadsheet
// applications read it as numeric. Currency symbols and thousands separators
// are dropped and the decimal comma becomes a point. Zero and unparseable
// text yield "0".
func ExportNumber(text string) string {
	cleaned := exportStrip.ReplaceAllString(text, "")
	cleaned = strings.Replace(cleaned, ",", ".", 1)

	d, ok := parsePrefix(cleaned)
	if !ok || d.IsZero() {
		return "0"
	}
	return d.String()
}

// =============================================================================
// DATES
// =============================================================================

// LongDate formats t as an Indonesian long date, e.g. "19 Oktober 2026".
func LongDate(t time.Time) string {
	return fmt.Sprintf("%d %s %d", t.Day(), monthNames[t.Month()-1], t.Year())
}
