package format

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTitleCase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"BELANJA PEGAWAI", "Belanja Pegawai"},
		{"program   penunjang\turusan", "Program   Penunjang\tUrusan"},
		{"  leading space", "  Leading Space"},
		{"sarana-prasarana pertanian", "Sarana-prasarana Pertanian"},
		{"x", "X"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, TitleCase(tt.in))
		})
	}
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "", Label(nil))
	assert.Equal(t, "Nama", Label("Nama"))
	assert.Equal(t, "12", Label(json.Number("12")))
	assert.Equal(t, "true", Label(true))
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"number", json.Number("1500000"), "1500000"},
		{"fraction", json.Number("1500.25"), "1500.25"},
		{"float", 42.5, "42.5"},
		{"numeric string", "2500", "2500"},
		{"string with suffix", "1500abc", "1500"},
		{"string with leading space", "  7", "7"},
		{"trailing point", "12.", "12"},
		{"non-numeric string", "abc", "0"},
		{"empty string", "", "0"},
		{"null", nil, "0"},
		{"bool", true, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAmount(tt.in).String())
		})
	}
}

func TestDisplayAmount(t *testing.T) {
	assert.Equal(t, "-", DisplayAmount(json.Number("0")))
	assert.Equal(t, "-", DisplayAmount("tidak ada"))
	assert.Equal(t, "-", DisplayAmount(nil))
	assert.Equal(t, "Rp\u00a01.500.000", DisplayAmount(json.Number("1500000")))
	assert.Equal(t, "Rp\u00a0999", DisplayAmount("999"))
	assert.Equal(t, "-Rp\u00a01.500", DisplayDecimal(decimal.NewFromInt(-1500)))
}

func TestExportNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Rp\u00a01.500.000", "1500000"},
		{"Rp\u00a01.500,5", "1500.5"},
		{"-Rp\u00a01.500", "-1500"},
		{"-", "0"},
		{"", "0"},
		{"Rp\u00a00", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ExportNumber(tt.in))
		})
	}
}

func TestDisplayThenExport(t *testing.T) {
	for _, v := range []int64{1, 12, 1500, 2750000, 123456789} {
		d := decimal.NewFromInt(v)
		assert.Equal(t, d.String(), ExportNumber(DisplayDecimal(d)))
	}
}

func TestLongDate(t *testing.T) {
	ts := time.Date(2026, time.October, 19, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, "19 Oktober 2026", LongDate(ts))

	ts = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "1 Januari 2025", LongDate(ts))
}
