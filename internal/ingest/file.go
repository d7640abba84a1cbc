// =============================================================================
// Budget Report - File Ingestion
// =============================================================================
//
// This package holds uploaded files until a pipeline runs.
//
// Files are accepted by metadata only (name, size, MIME type); their content
// is read when the pipeline runs, the way a browser keeps File handles until
// a reader is started.
//
// REJECTION RULES:
//   - MIME type other than application/json     -> RejectMIME
//   - hierarchy file with an unrecognized name  -> RejectName
//   - merge file already listed (same name+size) -> RejectDuplicate
//
// Rejected files are never stored.
//
// =============================================================================

package ingest

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

// JSONMIMEType is the only MIME type accepted by either pipeline.
const JSONMIMEType = "application/json"

// Loader reads a file's content.
type Loader func(ctx context.Context) ([]byte, error)

// File is a handle to an uploaded file.
type File struct {
	// Name is the base name as supplied by the user.
	Name string

	// Size is the content length in bytes.
	Size int64

	// MIMEType is the declared media type without parameters.
	MIMEType string

	load Loader
}

// NewFile creates a handle whose content is produced by load.
func NewFile(name string, size int64, mimeType string, load Loader) *File {
	return &File{Name: name, Size: size, MIMEType: mimeType, load: load}
}

// FromBytes creates a handle over in-memory content.
func FromBytes(name, mimeType string, data []byte) *File {
	content := append([]byte(nil), data...)
	return NewFile(name, int64(len(content)), mimeType, func(ctx context.Context) ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return content, nil
	})
}

// Load reads the file content.
func (f *File) Load(ctx context.Context) ([]byte, error) {
	if f.load == nil {
		return nil, fmt.Errorf("file %s has no content source", f.Name)
	}
	return f.load(ctx)
}

// DetectMIME normalizes a declared media type, falling back to the file
// extension when nothing specific was declared (browsers often send
// application/octet-stream for local files).
func DetectMIME(name, declared string) string {
	declared = strings.TrimSpace(declared)
	if declared != "" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil {
			declared = mt
		}
	}
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}

	byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if mt, _, err := mime.ParseMediaType(byExt); err == nil {
		return mt
	}
	return declared
}

// =============================================================================
// REJECTIONS
// =============================================================================

// RejectKind classifies a rejected file.
type RejectKind string

const (
	RejectMIME      RejectKind = "mime"
	RejectName      RejectKind = "name"
	RejectDuplicate RejectKind = "duplicate"
)

// RejectError reports a file that was not accepted.
type RejectError struct {
	Kind RejectKind
	File string

	// Expected lists the accepted names for RejectName.
	Expected []string
}

func (e *RejectError) Error() string {
	switch e.Kind {
	case RejectMIME:
		return fmt.Sprintf("file '%s' is not a valid JSON file", e.File)
	case RejectName:
		return fmt.Sprintf("file '%s' is not recognized; upload %s", e.File, quoteList(e.Expected))
	case RejectDuplicate:
		return fmt.Sprintf("file '%s' is already in the list", e.File)
	default:
		return fmt.Sprintf("file '%s' was rejected", e.File)
	}
}

// IsRejection reports whether err is a RejectError.
func IsRejection(err error) bool {
	var re *RejectError
	return errors.As(err, &re)
}

func checkMIME(f *File) error {
	if f.MIMEType != JSONMIMEType {
		return &RejectError{Kind: RejectMIME, File: f.Name}
	}
	return nil
}

func quoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + n + "'"
	}
	switch len(quoted) {
	case 0:
		return "a recognized file"
	case 1:
		return quoted[0]
	default:
		return strings.Join(quoted[:len(quoted)-1], ", ") + " or " + quoted[len(quoted)-1]
	}
}
