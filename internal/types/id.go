package types

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// ID is a record identifier as it appeared in the source JSON. Identifiers
// may be strings or numbers (or anything else a hand-edited export holds), so
// the raw value is kept and interpreted on demand.
type ID struct {
	// Raw is a string, json.Number, bool or nil.
	Raw any

	// Present is false when the field was absent from the record.
	Present bool
}

// StringID builds a string identifier.
func StringID(s string) ID { return ID{Raw: s, Present: true} }

// NumberID builds a numeric identifier from its JSON literal.
func NumberID(n string) ID { return ID{Raw: json.Number(n), Present: true} }

// Key returns the index key used to group children under a parent.
// Strings compare by text and numbers by value, so 1 and 1.0 share a key
// while 1 and "1" do not. Null and a missing field are distinct keys.
func (id ID) Key() string {
	if !id.Present {
		return "u:"
	}
	switch v := id.Raw.(type) {
	case string:
		return "s:" + v
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return "n:" + v.String()
		}
		return "n:" + d.String()
	case bool:
		if v {
			return "b:true"
		}
		return "b:false"
	case nil:
		return "null"
	default:
		return "x:"
	}
}

// String renders the identifier for logs.
func (id ID) String() string {
	if !id.Present {
		return "<missing>"
	}
	switch v := id.Raw.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		return "null"
	}
}

// numeric is the value used by the numeric branch of Compare. Missing, null
// and non-numeric values count as zero.
func (id ID) numeric() decimal.Decimal {
	switch v := id.Raw.(type) {
	case json.Number:
		if d, err := decimal.NewFromString(v.String()); err == nil {
			return d
		}
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return decimal.Zero
		}
		if d, err := decimal.NewFromString(s); err == nil {
			return d
		}
	case bool:
		if v {
			return decimal.NewFromInt(1)
		}
	}
	return decimal.Zero
}

// Compare orders identifiers: lexicographically when both are strings,
// numerically otherwise.
func Compare(a, b ID) int {
	as, aok := a.Raw.(string)
	bs, bok := b.Raw.(string)
	if a.Present && b.Present && aok && bok {
		return strings.Compare(as, bs)
	}
	return a.numeric().Cmp(b.numeric())
}
