package value

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// --------------------------------------------------------------------------
// Kind
// --------------------------------------------------------------------------

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// --------------------------------------------------------------------------
// Value
// --------------------------------------------------------------------------

// Value is a closed variant over the data shapes the store accepts:
// null, bool, number, string, array of Value and mapping of string to Value.
// The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	num  float64
	str  string
	arr  []Value
	obj  map[string]Value
}

// Null returns the null value.
func Null() Value {
	return Value{kind: KindNull}
}

// Bool returns a boolean value.
func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// Number returns a numeric value.
func Number(f float64) Value {
	return Value{kind: KindNumber, num: f}
}

// Int returns a numeric value from an integer.
func Int(i int64) Value {
	return Value{kind: KindNumber, num: float64(i)}
}

// String returns a string value.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// Array returns an array value holding the given elements.
func Array(elems ...Value) Value {
	return Value{kind: KindArray, arr: elems}
}

// Object returns an object value holding the given fields.
func Object(fields map[string]Value) Value {
	return Value{kind: KindObject, obj: fields}
}

// Kind returns the variant this value holds.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether the value is null.
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// AsBool returns the boolean payload. The second return value reports
// whether the value actually is a bool.
func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// AsNumber returns the numeric payload.
func (v Value) AsNumber() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// AsString returns the string payload.
func (v Value) AsString() (string, bool) {
	return v.str, v.kind == KindString
}

// AsArray returns the array payload. The returned slice is shared, not a
// copy.
func (v Value) AsArray() ([]Value, bool) {
	return v.arr, v.kind == KindArray
}

// AsObject returns the object payload. The returned map is shared, not a
// copy.
func (v Value) AsObject() (map[string]Value, bool) {
	return v.obj, v.kind == KindObject
}

// --------------------------------------------------------------------------
// Validation and Comparison
// --------------------------------------------------------------------------

// Validate checks that the value can be losslessly round-tripped through
// JSON. The only constructible values that cannot are non-finite numbers.
func (v Value) Validate() error {
	switch v.kind {
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return fmt.Errorf("number %v is not serializable", v.num)
		}
	case KindArray:
		for _, e := range v.arr {
			if err := e.Validate(); err != nil {
				return err
			}
		}
	case KindObject:
		for _, e := range v.obj {
			if err := e.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Equal reports deep structural equality of two values.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindNumber:
		return v.num == other.num
	case KindString:
		return v.str == other.str
	case KindArray:
		if len(v.arr) != len(other.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(other.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.obj) != len(other.obj) {
			return false
		}
		for k, e := range v.obj {
			o, ok := other.obj[k]
			if !ok || !e.Equal(o) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// --------------------------------------------------------------------------
// JSON Encoding
// --------------------------------------------------------------------------

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindNumber:
		return json.Marshal(v.num)
	case KindString:
		return json.Marshal(v.str)
	case KindArray:
		if v.arr == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.arr)
	case KindObject:
		if v.obj == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.obj)
	default:
		return nil, fmt.Errorf("unknown value kind %d", v.kind)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = fromAny(raw)
	return nil
}

// fromAny converts the result of a generic json.Unmarshal into a Value.
func fromAny(raw interface{}) Value {
	switch t := raw.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case float64:
		return Number(t)
	case string:
		return String(t)
	case []interface{}:
		elems := make([]Value, len(t))
		for i, e := range t {
			elems[i] = fromAny(e)
		}
		return Array(elems...)
	case map[string]interface{}:
		fields := make(map[string]Value, len(t))
		for k, e := range t {
			fields[k] = fromAny(e)
		}
		return Object(fields)
	default:
		// json.Unmarshal into interface{} never yields other types
		return Null()
	}
}

// --------------------------------------------------------------------------
// Display and Parsing
// --------------------------------------------------------------------------

// String renders the value in its JSON form, with object keys sorted for
// stable output. Intended for display; use MarshalJSON for encoding.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindString:
		b, _ := json.Marshal(v.str)
		return string(b)
	case KindArray:
		out := "["
		for i, e := range v.arr {
			if i > 0 {
				out += ","
			}
			out += e.String()
		}
		return out + "]"
	case KindObject:
		keys := make([]string, 0, len(v.obj))
		for k := range v.obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := "{"
		for i, k := range keys {
			if i > 0 {
				out += ","
			}
			kb, _ := json.Marshal(k)
			out += string(kb) + ":" + v.obj[k].String()
		}
		return out + "}"
	default:
		return "<invalid>"
	}
}

// Parse converts literal text typed by a user into a Value. Valid JSON
// (numbers, booleans, null, quoted strings, arrays, objects) is taken as
// such, anything else becomes a plain string.
func Parse(literal string) Value {
	var v Value
	if err := json.Unmarshal([]byte(literal), &v); err == nil {
		return v
	}
	return String(literal)
}
