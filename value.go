package mcptools

import (
	"encoding/json"
	"strconv"
)

// Kind tags the primitive carried by a Value.
type Kind int

const (
	KindInvalid Kind = iota
	KindString
	KindNumber
	KindBoolean
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return TypeString
	case KindNumber:
		return TypeNumber
	case KindBoolean:
		return TypeBoolean
	default:
		return "invalid"
	}
}

// Value is a validated tool argument: exactly one of string, number or
// boolean.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
}

func StringValue(s string) Value { return Value{kind: KindString, str: s} }

func NumberValue(f float64) Value { return Value{kind: KindNumber, num: f} }

func BooleanValue(b bool) Value { return Value{kind: KindBoolean, b: b} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsValid() bool { return v.kind != KindInvalid }

func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == KindNumber }

func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBoolean }

// String renders the value the way tool output embeds it. Numbers use the
// shortest decimal form that round-trips.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return FormatNumber(v.num)
	case KindBoolean:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// FormatNumber formats f without exponent and without trailing zeros.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// valueOf converts a decoded JSON value, or a Go primitive handed in by an
// in-process caller, into a Value. The second result names the JSON type of
// raw and is meaningful whether or not the conversion succeeded.
func valueOf(raw any) (Value, string) {
	switch x := raw.(type) {
	case nil:
		return Value{}, "null"
	case string:
		return StringValue(x), TypeString
	case bool:
		return BooleanValue(x), TypeBoolean
	case float64:
		return NumberValue(x), TypeNumber
	case float32:
		return NumberValue(float64(x)), TypeNumber
	case int:
		return NumberValue(float64(x)), TypeNumber
	case int8:
		return NumberValue(float64(x)), TypeNumber
	case int16:
		return NumberValue(float64(x)), TypeNumber
	case int32:
		return NumberValue(float64(x)), TypeNumber
	case int64:
		return NumberValue(float64(x)), TypeNumber
	case uint:
		return NumberValue(float64(x)), TypeNumber
	case uint8:
		return NumberValue(float64(x)), TypeNumber
	case uint16:
		return NumberValue(float64(x)), TypeNumber
	case uint32:
		return NumberValue(float64(x)), TypeNumber
	case uint64:
		return NumberValue(float64(x)), TypeNumber
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Value{}, "invalid number"
		}
		return NumberValue(f), TypeNumber
	case []any:
		return Value{}, "array"
	case map[string]any:
		return Value{}, "object"
	default:
		return Value{}, "unknown"
	}
}

// Arguments is the validated argument bag handed to a tool handler. It holds
// only the properties declared by the tool's schema.
type Arguments map[string]Value

// GetString returns the named string argument.
func (a Arguments) GetString(name string) (string, bool) {
	v, ok := a[name]
	if !ok {
		return "", false
	}
	return v.AsString()
}

// GetNumber returns the named numeric argument.
func (a Arguments) GetNumber(name string) (float64, bool) {
	v, ok := a[name]
	if !ok {
		return 0, false
	}
	return v.AsNumber()
}

// GetBool returns the named boolean argument.
func (a Arguments) GetBool(name string) (bool, bool) {
	v, ok := a[name]
	if !ok {
		return false, false
	}
	return v.AsBool()
}
