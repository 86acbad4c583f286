package filter

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ValueKind identifies the underlying type of a Value.
type ValueKind int

const (
	// KindString is a scalar string value.
	KindString ValueKind = iota
	// KindInt is a scalar integer value.
	KindInt
	// KindList is an ordered list of strings, used for multi-valued
	// attributes such as group membership.
	KindList
)

// Value is one attribute value of a record: a string, an integer, or an
// ordered list of strings. The zero Value is the empty string.
type Value struct {
	kind ValueKind
	str  string
	num  int64
	list []string
}

// StringValue creates a string Value.
func StringValue(s string) Value {
	return Value{kind: KindString, str: s}
}

// IntValue creates an integer Value.
func IntValue(n int64) Value {
	return Value{kind: KindInt, num: n}
}

// ListValue creates a multi-valued Value from the given elements.
func ListValue(elems ...string) Value {
	return Value{kind: KindList, list: elems}
}

// Kind returns the kind of the value.
func (v Value) Kind() ValueKind {
	return v.kind
}

// IsEmpty reports whether the value is an empty string or an empty list.
// Integers are never empty.
func (v Value) IsEmpty() bool {
	switch v.kind {
	case KindString:
		return v.str == ""
	case KindList:
		return len(v.list) == 0
	default:
		return false
	}
}

// Strings returns the value as a slice of strings: a one-element slice for
// scalars (integers are formatted in base 10), or the list elements for a
// multi-valued attribute. The result must not be modified.
func (v Value) Strings() []string {
	switch v.kind {
	case KindInt:
		return []string{strconv.FormatInt(v.num, 10)}
	case KindList:
		return v.list
	default:
		return []string{v.str}
	}
}

// Int returns the integer value and whether the value is an integer.
func (v Value) Int() (int64, bool) {
	return v.num, v.kind == KindInt
}

// String returns a display form of the value.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.num, 10)
	case KindList:
		return "[" + strings.Join(v.list, ";") + "]"
	default:
		return v.str
	}
}

// MarshalJSON encodes the value as its natural JSON type: string, number,
// or array of strings.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindInt:
		return json.Marshal(v.num)
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	default:
		return json.Marshal(v.str)
	}
}

// UnmarshalJSON decodes a string, number, or array of strings into a Value.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case nil:
		*v = StringValue("")
	case string:
		*v = StringValue(t)
	case float64:
		*v = IntValue(int64(t))
	case []interface{}:
		elems := make([]string, len(t))
		for i, e := range t {
			s, ok := e.(string)
			if !ok {
				return fmt.Errorf("filter: list attribute element %d is %T, want string", i, e)
			}
			elems[i] = s
		}
		*v = ListValue(elems...)
	default:
		return fmt.Errorf("filter: unsupported attribute value type %T", raw)
	}
	return nil
}

// Record is one directory entry: a mapping from attribute name to value.
// Attribute lookup is case-insensitive; original key spelling is preserved.
// The evaluator treats records as immutable and never modifies them.
type Record map[string]Value

// Get returns the value for an attribute, trying an exact key match first
// and falling back to a case-insensitive scan.
func (r Record) Get(attribute string) (Value, bool) {
	if v, ok := r[attribute]; ok {
		return v, true
	}
	for name, v := range r {
		if strings.EqualFold(name, attribute) {
			return v, true
		}
	}
	return Value{}, false
}

// Has reports whether the record has the attribute, case-insensitively.
func (r Record) Has(attribute string) bool {
	_, ok := r.Get(attribute)
	return ok
}
