// =============================================================================
// Budget Report - JSON Values
// =============================================================================
//
// This package models an arbitrary JSON document as a tagged union so the
// merger can tell sequences, mappings and scalars apart without reflecting
// over interface{} trees.
//
// PROPERTIES:
//   - Object keys keep their document order (wk8/go-ordered-map)
//   - Number literals are kept verbatim ("1.50" stays "1.50")
//   - Duplicate object keys: the last value wins, the first position is kept
//   - Values are immutable once built; accessors return copies
//
// =============================================================================

package jsonvalue

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Kind is the shape of a Value.
type Kind int

const (
	// Scalar covers strings, numbers, booleans and null.
	Scalar Kind = iota
	// Sequence is a JSON array.
	Sequence
	// Mapping is a JSON object.
	Mapping
)

func (k Kind) String() string {
	switch k {
	case Sequence:
		return "sequence"
	case Mapping:
		return "mapping"
	default:
		return "scalar"
	}
}

// FieldMap is the ordered key/value storage of a Mapping.
type FieldMap = orderedmap.OrderedMap[string, Value]

// Value is one JSON value.
type Value struct {
	kind   Kind
	scalar any
	items  []Value
	fields *FieldMap
}

// Field is one key/value pair of a Mapping.
type Field struct {
	Key   string
	Value Value
}

// =============================================================================
// CONSTRUCTORS
// =============================================================================

// NewScalar wraps a string, json.Number, bool or nil.
func NewScalar(v any) Value {
	return Value{kind: Scalar, scalar: v}
}

// Null is the JSON null value.
func Null() Value { return NewScalar(nil) }

// String builds a string scalar.
func String(s string) Value { return NewScalar(s) }

// Number builds a number scalar from its literal.
func Number(lit string) Value { return NewScalar(json.Number(lit)) }

// NewSequence builds an array from items. The slice is copied.
func NewSequence(items ...Value) Value {
	return Value{kind: Sequence, items: append([]Value{}, items...)}
}

// NewMapping builds an object from pairs in order.
func NewMapping(pairs ...Field) Value {
	m := orderedmap.New[string, Value]()
	for _, p := range pairs {
		m.Set(p.Key, p.Value)
	}
	return Value{kind: Mapping, fields: m}
}

// FromFieldMap builds an object that takes ownership of m.
func FromFieldMap(m *FieldMap) Value {
	if m == nil {
		m = orderedmap.New[string, Value]()
	}
	return Value{kind: Mapping, fields: m}
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Kind returns the shape of v.
func (v Value) Kind() Kind { return v.kind }

// Scalar returns the wrapped string, json.Number, bool or nil.
func (v Value) Scalar() any { return v.scalar }

// Items returns a copy of a Sequence's elements.
func (v Value) Items() []Value {
	return append([]Value{}, v.items...)
}

// Len returns the number of elements or fields.
func (v Value) Len() int {
	switch v.kind {
	case Sequence:
		return len(v.items)
	case Mapping:
		return v.fields.Len()
	default:
		return 0
	}
}

// Fields returns a Mapping's pairs in order.
func (v Value) Fields() []Field {
	if v.kind != Mapping {
		return nil
	}
	out := make([]Field, 0, v.fields.Len())
	for pair := v.fields.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, Field{Key: pair.Key, Value: pair.Value})
	}
	return out
}

// Get looks up a Mapping field.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != Mapping {
		return Value{}, false
	}
	return v.fields.Get(key)
}

// TypeName describes v for error messages.
func (v Value) TypeName() string {
	switch v.kind {
	case Sequence:
		return "array"
	case Mapping:
		return "object"
	}
	switch v.scalar.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v.scalar)
	}
}

// Equal reports whether v and o hold the same document. Numbers compare by
// value and object keys must appear in the same order.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}

	switch v.kind {
	case Sequence:
		if len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	case Mapping:
		a, b := v.Fields(), o.Fields()
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i].Key != b[i].Key || !a[i].Value.Equal(b[i].Value) {
				return false
			}
		}
		return true
	}

	an, aok := v.scalar.(json.Number)
	bn, bok := o.scalar.(json.Number)
	if aok && bok {
		ad, aerr := decimal.NewFromString(an.String())
		bd, berr := decimal.NewFromString(bn.String())
		if aerr == nil && berr == nil {
			return ad.Equal(bd)
		}
		return an == bn
	}
	return v.scalar == o.scalar
}

// =============================================================================
// PARSING
// =============================================================================

// ErrTrailingData is returned when a document holds more than one value.
var ErrTrailingData = errors.New("unexpected data after top-level value")

// Parse decodes one JSON document.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := parseValue(dec)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Value{}, ErrTrailingData
	}
	return v, nil
}

func parseValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err == io.EOF {
		return Value{}, io.ErrUnexpectedEOF
	}
	if err != nil {
		return Value{}, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return NewScalar(tok), nil
	}

	switch delim {
	case '[':
		items := []Value{}
		for dec.More() {
			item, err := parseValue(dec)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		if _, err := dec.Token(); err != nil {
			return Value{}, err
		}
		return Value{kind: Sequence, items: items}, nil

	case '{':
		fields := orderedmap.New[string, Value]()
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return Value{}, err
			}
			key, ok := kt.(string)
			if !ok {
				return Value{}, fmt.Errorf("invalid object key %v", kt)
			}
			val, err := parseValue(dec)
			if err != nil {
				return Value{}, err
			}
			fields.Set(key, val)
		}
		if _, err := dec.Token(); err != nil {
			return Value{}, err
		}
		return Value{kind: Mapping, fields: fields}, nil
	}

	return Value{}, fmt.Errorf("unexpected delimiter %q", rune(delim))
}

// =============================================================================
// ENCODING
// =============================================================================

// MarshalJSON writes v compactly without HTML escaping.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Pretty writes v with two-space indentation and no trailing newline.
func (v Value) Pretty() ([]byte, error) {
	compact, err := v.MarshalJSON()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, "", "  "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case Sequence:
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil

	case Mapping:
		buf.WriteByte('{')
		i := 0
		for pair := v.fields.Oldest(); pair != nil; pair = pair.Next() {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeString(buf, pair.Key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := pair.Value.encode(buf); err != nil {
				return err
			}
			i++
		}
		buf.WriteByte('}')
		return nil
	}

	switch s := v.scalar.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if s {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case json.Number:
		buf.WriteString(s.String())
	case string:
		return encodeString(buf, s)
	default:
		return fmt.Errorf("unsupported scalar %T", s)
	}
	return nil
}

func encodeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}
