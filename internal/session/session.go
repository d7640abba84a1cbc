// =============================================================================
// Budget Report - Pipeline Sessions
// =============================================================================
//
// This package contains the two pipeline controllers. A controller owns
// everything one user's pipeline needs between actions: the accepted files,
// the parsed data of the last run, the rendered output and the most recent
// error or notice.
//
// CONTROLLERS:
//   Report  three hierarchy files -> joined table -> .xls / .xlsx download
//   Merge   any number of JSON files -> folded document -> .json / .xlsx
//
// CONCURRENCY:
//   A controller must be used by one goroutine at a time; callers that share
//   one (the HTTP server) serialize access. Report.Run reads its three files
//   concurrently and only keeps the data when all of them succeed.
//
// =============================================================================

package session

import (
	"errors"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotReady is returned when a run is requested before its inputs are
	// complete.
	ErrNotReady = errors.New("required files have not been uploaded")

	// ErrNoData is returned by a run that produced nothing to show. It is a
	// notice, not a failure.
	ErrNoData = errors.New("no matching data found to display")

	// ErrNoOutput is returned when a download is requested without a
	// successful run since the last change.
	ErrNoOutput = errors.New("no output available; run the pipeline first")
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of one pipeline run.
type Result struct {
	// Success indicates whether the run produced output.
	Success bool

	// Error contains the reason the run produced no output.
	// ErrNoData marks an empty result rather than a failure.
	Error error

	// Stats contains run statistics.
	Stats Stats
}

// Notice reports whether the run ended with the "nothing to show" notice.
func (r Result) Notice() bool {
	return errors.Is(r.Error, ErrNoData)
}

// Stats contains statistics about a run.
type Stats struct {
	// FilesRead is the number of input files read and parsed.
	FilesRead int

	// Rows is the number of body rows (report) or top-level elements or
	// fields (merge) produced.
	Rows int

	// Programs is the number of program rows (report only).
	Programs int

	// Bytes is the size of the rendered output (merge only).
	Bytes int

	// ProcessingTime is the time taken by the run.
	ProcessingTime time.Duration
}

// status tracks the user-visible error and notice of a controller.
type status struct {
	lastErr string
	notice  string
}

func (s *status) clear() {
	s.lastErr = ""
	s.notice = ""
}

// record stores the outcome of an action: ErrNoData becomes the notice,
// any other error the last error.
func (s *status) record(err error) {
	s.clear()
	switch {
	case err == nil:
	case errors.Is(err, ErrNoData):
		s.notice = err.Error()
	default:
		s.lastErr = err.Error()
	}
}

// LastError returns the most recent error message, or "".
func (s *status) LastError() string { return s.lastErr }

// Notice returns the most recent notice, or "".
func (s *status) Notice() string { return s.notice }

func nopIfNil(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
