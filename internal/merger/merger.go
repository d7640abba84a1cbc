// =============================================================================
// Budget Report - JSON Merger
// =============================================================================
//
// This module folds any number of JSON documents into one.
//
// FOLD RULES (left to right, first document taken as-is):
//   array  + array   -> concatenation, duplicates kept
//   object + object  -> shallow union, the later document wins per key;
//                       existing keys keep their position, new keys append
//   anything else    -> IncompatibleError naming the later file
//
// Nested values are replaced wholesale, never merged recursively. Inputs are
// never modified; every step builds a new value.
//
// =============================================================================

package merger

import (
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/ginjaninja78/budget-report/internal/jsonvalue"
)

// Source is one parsed input document.
type Source struct {
	// Name is the file name, used in error messages.
	Name string

	// Value is the parsed document.
	Value jsonvalue.Value
}

// IncompatibleError reports a fold step whose operands cannot be combined.
type IncompatibleError struct {
	// File is the name of the document that could not be folded in.
	File string

	// Have is the type of the accumulated value.
	Have string

	// Got is the type of the offending document.
	Got string
}

func (e *IncompatibleError) Error() string {
	return fmt.Sprintf("incompatible data types: cannot merge %s from %s into %s", e.Got, e.File, e.Have)
}

// Folder accumulates documents one at a time, for callers that read and parse
// their inputs lazily and stop at the first failure. The zero value is ready
// to use.
type Folder struct {
	acc jsonvalue.Value
	n   int
}

// Add folds src into the accumulated value. On error the accumulated value is
// left as it was before the call.
func (f *Folder) Add(src Source) error {
	if f.n == 0 {
		f.acc = src.Value
		f.n++
		return nil
	}
	acc, err := Combine(f.acc, src)
	if err != nil {
		return err
	}
	f.acc = acc
	f.n++
	return nil
}

// Len returns the number of documents folded so far.
func (f *Folder) Len() int { return f.n }

// Result returns the merged value, or ok=false when nothing was added.
func (f *Folder) Result() (jsonvalue.Value, bool) {
	return f.acc, f.n > 0
}

// Fold merges sources in order.
//
// PARAMETERS:
//   - sources: parsed documents in upload order
//
// RETURNS:
//   - The merged value and true, or ok=false when sources is empty
//   - An *IncompatibleError when two documents cannot be combined; no
//     partial result is returned in that case
func Fold(sources []Source) (merged jsonvalue.Value, ok bool, err error) {
	var folder Folder
	for _, src := range sources {
		if err := folder.Add(src); err != nil {
			return jsonvalue.Value{}, false, err
		}
	}
	merged, ok = folder.Result()
	return merged, ok, nil
}

// Combine folds one document into an accumulated value.
func Combine(acc jsonvalue.Value, src Source) (jsonvalue.Value, error) {
	switch {
	case acc.Kind() == jsonvalue.Sequence && src.Value.Kind() == jsonvalue.Sequence:
		items := acc.Items()
		items = append(items, src.Value.Items()...)
		return jsonvalue.NewSequence(items...), nil

	case acc.Kind() == jsonvalue.Mapping && src.Value.Kind() == jsonvalue.Mapping:
		fields := orderedmap.New[string, jsonvalue.Value]()
		for _, f := range acc.Fields() {
			fields.Set(f.Key, f.Value)
		}
		for _, f := range src.Value.Fields() {
			fields.Set(f.Key, f.Value)
		}
		return jsonvalue.FromFieldMap(fields), nil
	}

	return jsonvalue.Value{}, &IncompatibleError{
		File: src.Name,
		Have: acc.TypeName(),
		Got:  src.Value.TypeName(),
	}
}
