package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/ginjaninja78/budget-report/internal/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	programsJSON   = `[{"id_program": 1, "nama_program": "PERTANIAN", "anggaran": 3000, "realisasi_rill": 1500}]`
	activitiesJSON = `[{"id_giat": 10, "id_program": 1, "nama_giat": "Pupuk", "anggaran": 3000, "realisasi_rill": 1500}]`
	subsJSON       = `[{"id_sub_giat": 100, "id_giat": 10, "nama_sub_giat": "Subsidi", "anggaran": 1000, "realisasi_rill": 500},
	                   {"id_sub_giat": 101, "id_giat": 10, "nama_sub_giat": "Distribusi", "anggaran": 2000, "realisasi_rill": 1000}]`
)

type upload struct {
	name, content string
}

func newTestHandler(t *testing.T, size int) http.Handler {
	t.Helper()

	now := func() time.Time { return time.Date(2026, time.October, 19, 10, 0, 0, 0, time.UTC) }
	store, err := NewStore(size, session.ReportOptions{Now: now}, session.MergeOptions{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return NewHandler(store, 1<<20, zaptest.NewLogger(t)).Routes()
}

func do(t *testing.T, h http.Handler, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()

	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func uploadFiles(t *testing.T, h http.Handler, path string, files ...upload) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := mw.CreateFormFile(uploadField, f.name)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	return do(t, h, http.MethodPost, path, &body, mw.FormDataContentType())
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func createSession(t *testing.T, h http.Handler) string {
	t.Helper()

	rec := do(t, h, http.MethodPost, "/api/sessions", nil, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[map[string]string](t, rec)["id"]
	require.NotEmpty(t, id)
	return id
}

// =============================================================================
// SESSIONS
// =============================================================================

func TestHealthz(t *testing.T) {
	h := newTestHandler(t, 4)
	createSession(t, h)

	rec := do(t, h, http.MethodGet, "/healthz", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(1), body["sessions"])
}

func TestUnknownSession(t *testing.T) {
	h := newTestHandler(t, 4)

	rec := do(t, h, http.MethodGet, "/api/sessions/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionEviction(t *testing.T) {
	h := newTestHandler(t, 1)
	first := createSession(t, h)
	second := createSession(t, h)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/sessions/"+first, nil, "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/sessions/"+second, nil, "").Code)
}

// =============================================================================
// REPORT PIPELINE
// =============================================================================

func TestReportFlow(t *testing.T) {
	h := newTestHandler(t, 4)
	id := createSession(t, h)
	base := "/api/sessions/" + id + "/report"

	rec := do(t, h, http.MethodPost, base+"/run", nil, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = uploadFiles(t, h, base+"/files",
		upload{"data_program.json", programsJSON},
		upload{"data_kegiatan.json", activitiesJSON},
		upload{"data_sub_kegiatan.json", subsJSON},
		upload{"other.json", `[]`},
	)
	require.Equal(t, http.StatusOK, rec.Code)
	up := decode[uploadView](t, rec)
	require.Len(t, up.Rejected, 1)
	assert.Contains(t, up.Rejected[0], "other.json")
	require.NotNil(t, up.Report)
	assert.True(t, up.Report.Ready)
	assert.Len(t, up.Report.Files, 3)

	rec = do(t, h, http.MethodGet, base+"/export", nil, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, base+"/run", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	run := decode[reportRunView](t, rec)
	require.Len(t, run.Rows, 4)
	assert.Equal(t, "3000", run.TotalAnggaran)
	assert.Equal(t, 1, run.Stats.Programs)

	// The "-" placeholders of the program and activity rows share one cell.
	assert.Equal(t, "Pertanian", run.Rows[0].Cells[0].Text)
	require.Len(t, run.Rows[0].Cells, 5)
	assert.Equal(t, 2, run.Rows[0].Cells[2].RowSpan)
	assert.Len(t, run.Rows[1].Cells, 4)
	require.Len(t, run.Rows[3].Cells, 5)
	assert.Equal(t, "Distribusi", run.Rows[3].Cells[2].Text)
	assert.Equal(t, 3, run.Total.Cells[0].ColSpan)

	rec = do(t, h, http.MethodGet, base+"/export?format=xls", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), session.DefaultReportFile)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/vnd.ms-excel")
	assert.Contains(t, rec.Body.String(), "Tanggal Cetak: 19 Oktober 2026")

	rec = do(t, h, http.MethodGet, base+"/export?format=xlsx", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), session.DefaultWorkbookFile)

	rec = do(t, h, http.MethodGet, base+"/export?format=pdf", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, base+"/export?format=json", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodDelete, base+"/files/activity", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[reportView](t, rec)
	assert.False(t, view.Ready)
	assert.False(t, view.HasOutput)
	assert.Equal(t, []string{"data_kegiatan.json"}, view.Missing)

	rec = do(t, h, http.MethodDelete, base+"/files/activity", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodDelete, base+"/files/budget", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportNotice(t *testing.T) {
	h := newTestHandler(t, 4)
	id := createSession(t, h)
	base := "/api/sessions/" + id + "/report"

	uploadFiles(t, h, base+"/files",
		upload{"data_program.json", `[]`},
		upload{"data_kegiatan.json", activitiesJSON},
		upload{"data_sub_kegiatan.json", `[]`},
	)

	rec := do(t, h, http.MethodPost, base+"/run", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, session.ErrNoData.Error(), decode[map[string]any](t, rec)["notice"])

	rec = do(t, h, http.MethodGet, "/api/sessions/"+id, nil, "")
	state := decode[sessionView](t, rec)
	assert.Equal(t, session.ErrNoData.Error(), state.Report.Notice)
	assert.Empty(t, state.Report.Error)
}

func TestReportParseError(t *testing.T) {
	h := newTestHandler(t, 4)
	id := createSession(t, h)
	base := "/api/sessions/" + id + "/report"

	uploadFiles(t, h, base+"/files",
		upload{"data_program.json", `[{`},
		upload{"data_kegiatan.json", `[]`},
		upload{"data_sub_kegiatan.json", `[]`},
	)

	rec := do(t, h, http.MethodPost, base+"/run", nil, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["error"], "data_program.json")

	rec = do(t, h, http.MethodGet, "/api/sessions/"+id, nil, "")
	require.NotEmpty(t, decode[sessionView](t, rec).Report.Error)

	rec = do(t, h, http.MethodDelete, base+"/files/program", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[reportView](t, rec).Error)
}

func TestUploadRequiresMultipart(t *testing.T) {
	h := newTestHandler(t, 4)
	id := createSession(t, h)

	rec := do(t, h, http.MethodPost, "/api/sessions/"+id+"/merge/files", bytes.NewBufferString("{}"), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// MERGE PIPELINE
// =============================================================================

func TestMergeFlow(t *testing.T) {
	h := newTestHandler(t, 4)
	id := createSession(t, h)
	base := "/api/sessions/" + id + "/merge"

	rec := uploadFiles(t, h, base+"/files",
		upload{"a.json", `[1, 2]`},
		upload{"b.json", `[3]`},
		upload{"a.json", `[1, 2]`},
		upload{"notes.txt", `hello`},
	)
	require.Equal(t, http.StatusOK, rec.Code)
	up := decode[uploadView](t, rec)
	assert.Len(t, up.Rejected, 2)
	require.NotNil(t, up.Merge)
	assert.Len(t, up.Merge.Files, 2)

	rec = do(t, h, http.MethodPost, base+"/run", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	run := decode[mergeRunView](t, rec)
	assert.Equal(t, "[\n  1,\n  2,\n  3\n]", run.Text)
	assert.Equal(t, 3, run.Stats.Rows)

	rec = do(t, h, http.MethodGet, base+"/export", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), session.DefaultMergeFile)
	assert.Equal(t, run.Text, rec.Body.String())

	rec = do(t, h, http.MethodDelete, base+"/files/5", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, h, http.MethodDelete, base+"/files/x", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodDelete, base+"/files/0", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[mergeView](t, rec)
	require.Len(t, view.Files, 1)
	assert.Equal(t, "b.json", view.Files[0].Name)
	assert.False(t, view.HasOutput)
}

func TestMergeIncompatible(t *testing.T) {
	h := newTestHandler(t, 4)
	id := createSession(t, h)
	base := "/api/sessions/" + id + "/merge"

	uploadFiles(t, h, base+"/files", upload{"a.json", `[1]`}, upload{"b.json", `{"a": 1}`})

	rec := do(t, h, http.MethodPost, base+"/run", nil, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["error"], "incompatible data types")

	rec = do(t, h, http.MethodGet, base+"/export", nil, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodDelete, base+"/files/1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[mergeView](t, rec)
	assert.Empty(t, view.Error)
	assert.Len(t, view.Files, 1)
}

// =============================================================================
// SERVER
// =============================================================================

func TestServerShutdown(t *testing.T) {
	srv := New("127.0.0.1:0", http.NotFoundHandler(), zaptest.NewLogger(t))

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, srv.Shutdown(context.Background()))
	require.NoError(t, <-done)
}
