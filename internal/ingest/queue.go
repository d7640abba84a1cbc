package ingest

import (
	"errors"
	"fmt"
)

// ErrIndexOutOfRange is returned by Queue.Remove for a bad index.
var ErrIndexOutOfRange = errors.New("file index out of range")

// Queue is the ordered list of files for the generic merger.
type Queue struct {
	files []*File
}

// Add appends f unless a file with the same name and size is already listed.
func (q *Queue) Add(f *File) error {
	if err := checkMIME(f); err != nil {
		return err
	}
	for _, existing := range q.files {
		if existing.Name == f.Name && existing.Size == f.Size {
			return &RejectError{Kind: RejectDuplicate, File: f.Name}
		}
	}
	q.files = append(q.files, f)
	return nil
}

// Remove deletes the file at index i; later files shift up.
func (q *Queue) Remove(i int) (*File, error) {
	if i < 0 || i >= len(q.files) {
		return nil, fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, i, len(q.files))
	}
	removed := q.files[i]
	q.files = append(q.files[:i:i], q.files[i+1:]...)
	return removed, nil
}

// Files returns the listed files in upload order.
func (q *Queue) Files() []*File {
	return append([]*File(nil), q.files...)
}

// Len returns the number of listed files.
func (q *Queue) Len() int {
	return len(q.files)
}

// Ready reports whether there is at least one file to merge.
func (q *Queue) Ready() bool {
	return len(q.files) > 0
}
