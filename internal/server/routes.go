package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ginjaninja78/budget-report/internal/export"
	"github.com/ginjaninja78/budget-report/internal/ingest"
	"github.com/ginjaninja78/budget-report/internal/session"
	"github.com/ginjaninja78/budget-report/internal/table"
	"github.com/ginjaninja78/budget-report/internal/types"
)

// uploadField is the multipart field carrying uploaded files.
const uploadField = "files"

// defaultMaxMemory bounds in-memory upload parts when no upload limit is set.
const defaultMaxMemory = 32 << 20

// =============================================================================
// HANDLER
// =============================================================================

// Handler serves the session API.
type Handler struct {
	store          *Store
	maxUploadBytes int64
	logger         *zap.Logger
}

// NewHandler creates the API handler.
func NewHandler(store *Store, maxUploadBytes int64, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, maxUploadBytes: maxUploadBytes, logger: logger}
}

// Routes returns the API mux.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.healthz)
	mux.HandleFunc("POST /api/sessions", h.createSession)
	mux.HandleFunc("GET /api/sessions/{id}", h.withWorkspace(h.getSession))

	mux.HandleFunc("POST /api/sessions/{id}/report/files", h.withWorkspace(h.reportUpload))
	mux.HandleFunc("DELETE /api/sessions/{id}/report/files/{slot}", h.withWorkspace(h.reportRemove))
	mux.HandleFunc("POST /api/sessions/{id}/report/run", h.withWorkspace(h.reportRun))
	mux.HandleFunc("GET /api/sessions/{id}/report/export", h.withWorkspace(h.reportExport))

	mux.HandleFunc("POST /api/sessions/{id}/merge/files", h.withWorkspace(h.mergeUpload))
	mux.HandleFunc("DELETE /api/sessions/{id}/merge/files/{index}", h.withWorkspace(h.mergeRemove))
	mux.HandleFunc("POST /api/sessions/{id}/merge/run", h.withWorkspace(h.mergeRun))
	mux.HandleFunc("GET /api/sessions/{id}/merge/export", h.withWorkspace(h.mergeExport))

	return mux
}

type workspaceHandler func(w http.ResponseWriter, r *http.Request, ws *Workspace)

// withWorkspace resolves {id} and runs next with the workspace locked, so
// one session only ever sees one action at a time.
func (h *Handler) withWorkspace(next workspaceHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := h.store.Get(r.PathValue("id"))
		if !ok {
			writeError(w, http.StatusNotFound, errors.New("session not found"))
			return
		}
		ws.mu.Lock()
		defer ws.mu.Unlock()
		next(w, r, ws)
	}
}

// =============================================================================
// SESSIONS
// =============================================================================

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": h.store.Len()})
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	ws, err := h.store.Create()
	if err != nil {
		h.logger.Error("failed to create session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": ws.ID})
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	writeJSON(w, http.StatusOK, sessionView{
		ID:     ws.ID,
		Report: newReportView(ws.Report),
		Merge:  newMergeView(ws.Merge),
	})
}

// =============================================================================
// REPORT PIPELINE
// =============================================================================

func (h *Handler) reportUpload(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	files, err := h.readUpload(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	rejected := ws.Report.AddFiles(files...)
	writeJSON(w, http.StatusOK, uploadView{
		Rejected: messages(rejected),
		Report:   ptr(newReportView(ws.Report)),
	})
}

func (h *Handler) reportRemove(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	role, err := ingest.ParseRole(r.PathValue("slot"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if !ws.Report.Remove(role) {
		writeError(w, http.StatusNotFound, fmt.Errorf("slot %s is empty", role))
		return
	}
	writeJSON(w, http.StatusOK, newReportView(ws.Report))
}

func (h *Handler) reportRun(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	result := ws.Report.Run(r.Context())
	if !result.Success {
		writeRunFailure(w, result)
		return
	}

	report, _ := ws.Report.Output()
	writeJSON(w, http.StatusOK, newReportRunView(report, result.Stats))
}

func (h *Handler) reportExport(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	f, err := formatParam(r, export.FormatXLS)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	doc, err := ws.Report.Export(f)
	h.writeDocument(w, doc, err)
}

// =============================================================================
// MERGE PIPELINE
// =============================================================================

func (h *Handler) mergeUpload(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	files, err := h.readUpload(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	rejected := ws.Merge.AddFiles(files...)
	writeJSON(w, http.StatusOK, uploadView{
		Rejected: messages(rejected),
		Merge:    ptr(newMergeView(ws.Merge)),
	})
}

func (h *Handler) mergeRemove(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	i, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid file index %q", r.PathValue("index")))
		return
	}
	if err := ws.Merge.Remove(i); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, newMergeView(ws.Merge))
}

func (h *Handler) mergeRun(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	result := ws.Merge.Run(r.Context())
	if !result.Success {
		writeRunFailure(w, result)
		return
	}

	text, _ := ws.Merge.Output()
	writeJSON(w, http.StatusOK, mergeRunView{Text: string(text), Stats: newStatsView(result.Stats)})
}

func (h *Handler) mergeExport(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	f, err := formatParam(r, export.FormatJSON)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	doc, err := ws.Merge.Export(f)
	h.writeDocument(w, doc, err)
}

// =============================================================================
// REQUEST HELPERS
// =============================================================================

// readUpload reads every file of the multipart field "files" into memory.
// The MIME type comes from the part header, or the extension when the
// browser sent a generic type.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) ([]*ingest.File, error) {
	maxMemory := int64(defaultMaxMemory)
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
		maxMemory = h.maxUploadBytes
	}
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[uploadField]
	if len(headers) == 0 {
		return nil, fmt.Errorf("no files in field %q", uploadField)
	}

	files := make([]*ingest.File, 0, len(headers))
	for _, fh := range headers {
		data, err := readPart(fh)
		if err != nil {
			return nil, err
		}
		mimeType := ingest.DetectMIME(fh.Filename, fh.Header.Get("Content-Type"))
		files = append(files, ingest.FromBytes(fh.Filename, mimeType, data))
	}
	return files, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	part, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
	}
	defer part.Close()

	data, err := io.ReadAll(part)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload %s: %w", fh.Filename, err)
	}
	return data, nil
}

func formatParam(r *http.Request, fallback export.Format) (export.Format, error) {
	name := r.URL.Query().Get("format")
	if name == "" {
		return fallback, nil
	}
	return export.ParseFormat(name)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeRunFailure maps an unsuccessful run: the empty-result notice is a
// normal answer, missing inputs a conflict, everything else unprocessable.
func writeRunFailure(w http.ResponseWriter, result session.Result) {
	switch {
	case result.Notice():
		writeJSON(w, http.StatusOK, map[string]any{"notice": result.Error.Error(), "stats": newStatsView(result.Stats)})
	case errors.Is(result.Error, session.ErrNotReady):
		writeError(w, http.StatusConflict, result.Error)
	default:
		writeError(w, http.StatusUnprocessableEntity, result.Error)
	}
}

func (h *Handler) writeDocument(w http.ResponseWriter, doc *export.Document, err error) {
	switch {
	case errors.Is(err, session.ErrNoOutput):
		writeError(w, http.StatusConflict, err)
		return
	case errors.Is(err, export.ErrUnknownFormat):
		writeError(w, http.StatusBadRequest, err)
		return
	case err != nil:
		h.logger.Error("export failed", zap.Error(err))
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	w.Header().Set("Content-Type", doc.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Data)
}

func messages(errs []error) []string {
	out := make([]string, 0, len(errs))
	for _, err := range errs {
		out = append(out, err.Error())
	}
	return out
}

func ptr[T any](v T) *T { return &v }

// =============================================================================
// VIEWS
// =============================================================================

type sessionView struct {
	ID     string     `json:"id"`
	Report reportView `json:"report"`
	Merge  mergeView  `json:"merge"`
}

type fileView struct {
	Slot  string `json:"slot,omitempty"`
	Index *int   `json:"index,omitempty"`
	Name  string `json:"name"`
	Size  int64  `json:"size"`
}

type reportView struct {
	Files     []fileView `json:"files"`
	Missing   []string   `json:"missing"`
	Ready     bool       `json:"ready"`
	HasOutput bool       `json:"has_output"`
	Error     string     `json:"error,omitempty"`
	Notice    string     `json:"notice,omitempty"`
}

func newReportView(r *session.Report) reportView {
	v := reportView{
		Files:   []fileView{},
		Missing: r.Missing(),
		Ready:   r.Ready(),
		Error:   r.LastError(),
		Notice:  r.Notice(),
	}
	if v.Missing == nil {
		v.Missing = []string{}
	}
	for _, e := range r.Slots() {
		v.Files = append(v.Files, fileView{Slot: string(e.Role), Name: e.File.Name, Size: e.File.Size})
	}
	_, v.HasOutput = r.Output()
	return v
}

type mergeView struct {
	Files     []fileView `json:"files"`
	Ready     bool       `json:"ready"`
	HasOutput bool       `json:"has_output"`
	Error     string     `json:"error,omitempty"`
	Notice    string     `json:"notice,omitempty"`
}

func newMergeView(m *session.Merge) mergeView {
	v := mergeView{
		Files: []fileView{},
		Ready: m.Ready(),
		Error: m.LastError(),
	}
	v.Notice = m.Notice()
	for i, f := range m.Files() {
		v.Files = append(v.Files, fileView{Index: ptr(i), Name: f.Name, Size: f.Size})
	}
	_, v.HasOutput = m.Output()
	return v
}

type uploadView struct {
	Rejected []string    `json:"rejected"`
	Report   *reportView `json:"report,omitempty"`
	Merge    *mergeView  `json:"merge,omitempty"`
}

type statsView struct {
	FilesRead      int   `json:"files_read"`
	Rows           int   `json:"rows"`
	Programs       int   `json:"programs,omitempty"`
	Bytes          int   `json:"bytes,omitempty"`
	ProcessingTime int64 `json:"processing_time_ms"`
}

func newStatsView(s session.Stats) statsView {
	return statsView{
		FilesRead:      s.FilesRead,
		Rows:           s.Rows,
		Programs:       s.Programs,
		Bytes:          s.Bytes,
		ProcessingTime: s.ProcessingTime.Milliseconds(),
	}
}

type mergeRunView struct {
	Text  string    `json:"text"`
	Stats statsView `json:"stats"`
}

// cellView is one visible cell of the collapsed table.
type cellView struct {
	Text    string `json:"text"`
	RowSpan int    `json:"rowspan,omitempty"`
	ColSpan int    `json:"colspan,omitempty"`
}

type rowView struct {
	Kind  types.RowKind `json:"kind"`
	Cells []cellView    `json:"cells"`
}

type reportRunView struct {
	Rows           []rowView `json:"rows"`
	Total          rowView   `json:"total"`
	TotalAnggaran  string    `json:"total_anggaran"`
	TotalRealisasi string    `json:"total_realisasi"`
	Stats          statsView `json:"stats"`
}

// newReportRunView lays the report out the way the page shows it: repeated
// labels collapsed into spanning cells, covered cells left out.
func newReportRunView(report *types.Report, stats session.Stats) reportRunView {
	grid := make([][]string, len(report.Rows))
	for i, row := range report.Rows {
		grid[i] = row.Cells()
	}
	collapsed := table.Collapse(grid, export.LabelColumns)

	v := reportRunView{
		Rows:           make([]rowView, 0, len(collapsed)),
		TotalAnggaran:  report.TotalAnggaran.String(),
		TotalRealisasi: report.TotalRealisasi.String(),
		Stats:          newStatsView(stats),
	}
	for i, cells := range collapsed {
		row := rowView{Kind: report.Rows[i].Kind, Cells: []cellView{}}
		for _, c := range cells {
			if c.Hidden {
				continue
			}
			row.Cells = append(row.Cells, newCellView(c))
		}
		v.Rows = append(v.Rows, row)
	}

	total := report.Total
	v.Total = rowView{Kind: types.RowTotal, Cells: []cellView{
		{Text: total.Program, ColSpan: export.LabelColumns},
		{Text: total.Anggaran},
		{Text: total.Realisasi},
	}}

	return v
}

func newCellView(c table.Cell) cellView {
	v := cellView{Text: c.Text}
	if c.RowSpan > 1 {
		v.RowSpan = c.RowSpan
	}
	if c.ColSpan > 1 {
		v.ColSpan = c.ColSpan
	}
	return v
}
