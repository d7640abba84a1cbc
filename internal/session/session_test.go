package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/ginjaninja78/budget-report/internal/export"
	"github.com/ginjaninja78/budget-report/internal/ingest"
	"github.com/ginjaninja78/budget-report/internal/merger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var fixedNow = func() time.Time { return time.Date(2026, time.October, 19, 10, 0, 0, 0, time.UTC) }

func jsonFile(name, content string) *ingest.File {
	return ingest.FromBytes(name, ingest.JSONMIMEType, []byte(content))
}

func newReport(t *testing.T) *Report {
	t.Helper()

	r, err := NewReport(ReportOptions{Now: fixedNow, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	return r
}

func addHierarchy(t *testing.T, r *Report, programs, activities, subs string) {
	t.Helper()

	rejected := r.AddFiles(
		jsonFile("data_program.json", programs),
		jsonFile("data_kegiatan.json", activities),
		jsonFile("data_sub_kegiatan.json", subs),
	)
	require.Empty(t, rejected)
}

// =============================================================================
// REPORT
// =============================================================================

func TestReportRun(t *testing.T) {
	r := newReport(t)
	addHierarchy(t, r,
		`[{"id_program": 1, "nama_program": "PERTANIAN", "anggaran": 1000, "realisasi_rill": 500}]`,
		`[{"id_giat": 1, "id_program": 1, "nama_giat": "PUPUK", "anggaran": 1000, "realisasi_rill": 500}]`,
		`[]`,
	)
	require.True(t, r.Ready())

	result := r.Run(context.Background())
	require.NoError(t, result.Error)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Stats.FilesRead)
	assert.Equal(t, 2, result.Stats.Rows)
	assert.Equal(t, 1, result.Stats.Programs)
	assert.Empty(t, r.LastError())

	report, ok := r.Output()
	require.True(t, ok)
	assert.Equal(t, "Pertanian", report.Rows[0].Program)

	doc, err := r.Export(export.FormatXLS)
	require.NoError(t, err)
	assert.Equal(t, DefaultReportFile, doc.Name)
	assert.Contains(t, string(doc.Data), "Tanggal Cetak: 19 Oktober 2026")

	doc, err = r.Export(export.FormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, DefaultWorkbookFile, doc.Name)
	assert.NotEmpty(t, doc.Data)

	_, err = r.Export(export.FormatJSON)
	assert.ErrorIs(t, err, export.ErrUnknownFormat)
}

func TestReportNotReady(t *testing.T) {
	r := newReport(t)
	r.AddFiles(jsonFile("data_program.json", `[]`))

	result := r.Run(context.Background())
	assert.ErrorIs(t, result.Error, ErrNotReady)
	assert.Contains(t, r.LastError(), "data_kegiatan.json")

	_, err := r.Export(export.FormatXLS)
	assert.ErrorIs(t, err, ErrNoOutput)
}

func TestReportParseFailureAbortsRun(t *testing.T) {
	r := newReport(t)
	addHierarchy(t, r, `[]`, `[]`, `[]`)
	addHierarchy(t, r,
		`[{"id_program": 1, "nama_program": "a", "anggaran": 1}]`,
		`[]`,
		`[{"id_sub_giat": `,
	)

	result := r.Run(context.Background())
	require.Error(t, result.Error)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error.Error(), "failed to read or parse JSON file data_sub_kegiatan.json")
	assert.Equal(t, result.Error.Error(), r.LastError())

	_, ok := r.Output()
	assert.False(t, ok)
	assert.Empty(t, r.data.Programs)
}

func TestReportReadErrorAbortsRun(t *testing.T) {
	r := newReport(t)
	broken := ingest.NewFile("data_kegiatan.json", 10, ingest.JSONMIMEType, func(ctx context.Context) ([]byte, error) {
		return nil, errors.New("disk gone")
	})

	require.Empty(t, r.AddFiles(jsonFile("data_program.json", `[]`), broken, jsonFile("data_sub_kegiatan.json", `[]`)))

	result := r.Run(context.Background())
	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "disk gone")
	assert.Contains(t, result.Error.Error(), "data_kegiatan.json")
}

func TestReportEmptyProgramsIsNotice(t *testing.T) {
	r := newReport(t)
	addHierarchy(t, r, `[]`, `[{"id_giat": 1, "id_program": 1}]`, `[]`)

	result := r.Run(context.Background())
	assert.True(t, result.Notice())
	assert.False(t, result.Success)
	assert.Empty(t, r.LastError())
	assert.Equal(t, ErrNoData.Error(), r.Notice())

	_, err := r.Export(export.FormatXLS)
	assert.ErrorIs(t, err, ErrNoOutput)
}

func TestReportChangesClearOutput(t *testing.T) {
	r := newReport(t)
	addHierarchy(t, r, `[{"id_program": 1, "nama_program": "a", "anggaran": 1}]`, `[]`, `[]`)

	require.True(t, r.Run(context.Background()).Success)
	_, ok := r.Output()
	require.True(t, ok)

	assert.True(t, r.Remove(ingest.RoleActivity))
	_, ok = r.Output()
	assert.False(t, ok)
	assert.False(t, r.Ready())

	r.AddFiles(jsonFile("data_kegiatan.json", `[]`))
	require.True(t, r.Run(context.Background()).Success)

	rejected := r.AddFiles(jsonFile("unknown.json", `[]`))
	require.Len(t, rejected, 1)
	assert.True(t, ingest.IsRejection(rejected[0]))
	assert.Contains(t, r.LastError(), "unknown.json")
	_, ok = r.Output()
	assert.False(t, ok)
}

func TestReportRemoveClearsError(t *testing.T) {
	r := newReport(t)
	addHierarchy(t, r, `[{`, `[]`, `[]`)

	require.False(t, r.Run(context.Background()).Success)
	require.Contains(t, r.LastError(), "data_program.json")

	assert.True(t, r.Remove(ingest.RoleProgram))
	assert.Empty(t, r.LastError())
	assert.Empty(t, r.Notice())

	// Emptying an already empty slot is not a successful action.
	r.AddFiles(jsonFile("unknown.json", `[]`))
	require.NotEmpty(t, r.LastError())
	assert.False(t, r.Remove(ingest.RoleProgram))
	assert.NotEmpty(t, r.LastError())
}

func TestReportRemoveClearsNotice(t *testing.T) {
	r := newReport(t)
	addHierarchy(t, r, `[]`, `[]`, `[]`)

	require.True(t, r.Run(context.Background()).Notice())
	require.NotEmpty(t, r.Notice())

	assert.True(t, r.Remove(ingest.RoleSubActivity))
	assert.Empty(t, r.Notice())
}

func TestReportRecordsPath(t *testing.T) {
	r, err := NewReport(ReportOptions{RecordsPath: "$.data", Now: fixedNow})
	require.NoError(t, err)

	addHierarchy(t, r, `{"data": [{"id_program": 1, "nama_program": "x", "anggaran": 5}]}`, `{"data": []}`, `{"data": []}`)

	result := r.Run(context.Background())
	require.NoError(t, result.Error)
	assert.Equal(t, 1, result.Stats.Programs)
}

func TestReportCanceledContext(t *testing.T) {
	r := newReport(t)
	addHierarchy(t, r, `[]`, `[]`, `[]`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := r.Run(ctx)
	assert.ErrorIs(t, result.Error, context.Canceled)
}

// =============================================================================
// MERGE
// =============================================================================

func TestMergeRun(t *testing.T) {
	m := NewMerge(MergeOptions{Logger: zaptest.NewLogger(t)})
	require.Empty(t, m.AddFiles(jsonFile("a.json", `[1,2]`), jsonFile("b.json", `[3]`)))

	result := m.Run(context.Background())
	require.NoError(t, result.Error)
	assert.Equal(t, 2, result.Stats.FilesRead)
	assert.Equal(t, 3, result.Stats.Rows)

	text, ok := m.Output()
	require.True(t, ok)
	assert.Equal(t, "[\n  1,\n  2,\n  3\n]", string(text))

	doc, err := m.Export(export.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, DefaultMergeFile, doc.Name)
	assert.Equal(t, text, doc.Data)

	_, err = m.Export(export.FormatXLSX)
	assert.ErrorIs(t, err, export.ErrNotTabular)
}

func TestMergeObjects(t *testing.T) {
	m := NewMerge(MergeOptions{})
	m.AddFiles(jsonFile("a.json", `{"a":1}`), jsonFile("b.json", `{"a":2,"b":3}`))

	require.True(t, m.Run(context.Background()).Success)

	text, _ := m.Output()
	assert.Equal(t, "{\n  \"a\": 2,\n  \"b\": 3\n}", string(text))

	doc, err := m.Export(export.FormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, DefaultMergeWorkbookFile, doc.Name)
}

func TestMergeIncompatible(t *testing.T) {
	m := NewMerge(MergeOptions{})
	m.AddFiles(jsonFile("a.json", `[1]`), jsonFile("b.json", `{"a":1}`), jsonFile("c.json", `not json`))

	result := m.Run(context.Background())

	var incompatible *merger.IncompatibleError
	require.True(t, errors.As(result.Error, &incompatible))
	assert.Equal(t, "b.json", incompatible.File)
	assert.Equal(t, 2, result.Stats.FilesRead)
	assert.Contains(t, m.LastError(), "b.json")

	_, ok := m.Output()
	assert.False(t, ok)
}

func TestMergeRemoveClearsError(t *testing.T) {
	m := NewMerge(MergeOptions{})
	m.AddFiles(jsonFile("a.json", `[1]`), jsonFile("b.json", `{"a":1}`))

	require.False(t, m.Run(context.Background()).Success)
	require.Contains(t, m.LastError(), "incompatible data types")

	assert.ErrorIs(t, m.Remove(5), ingest.ErrIndexOutOfRange)
	assert.NotEmpty(t, m.LastError())

	require.NoError(t, m.Remove(1))
	assert.Empty(t, m.LastError())

	require.True(t, m.Run(context.Background()).Success)
}

func TestMergeParseFailure(t *testing.T) {
	m := NewMerge(MergeOptions{})
	m.AddFiles(jsonFile("a.json", `[1]`), jsonFile("b.json", `[1,`))

	result := m.Run(context.Background())
	require.Error(t, result.Error)
	assert.True(t, strings.HasPrefix(result.Error.Error(), "failed to read or parse JSON file b.json"))
}

func TestMergeQueueRules(t *testing.T) {
	m := NewMerge(MergeOptions{})

	assert.ErrorIs(t, m.Run(context.Background()).Error, ErrNotReady)

	rejected := m.AddFiles(jsonFile("a.json", `[1]`), jsonFile("a.json", `[2]`))
	require.Len(t, rejected, 1)
	assert.Contains(t, m.LastError(), "already in the list")
	assert.Len(t, m.Files(), 1)

	require.True(t, m.Run(context.Background()).Success)
	assert.Empty(t, m.LastError())

	require.NoError(t, m.Remove(0))
	_, ok := m.Output()
	assert.False(t, ok)
	assert.False(t, m.Ready())
	assert.ErrorIs(t, m.Remove(0), ingest.ErrIndexOutOfRange)

	_, err := m.Export(export.FormatJSON)
	assert.ErrorIs(t, err, ErrNoOutput)
}
