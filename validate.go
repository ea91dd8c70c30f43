package mcptools

import (
	"math"
	"sort"
)

// Primitive property types a ToolInputSchema may declare.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
)

const schemaTypeObject = "object"

func supportedType(t string) bool {
	switch t {
	case TypeString, TypeNumber, TypeInteger, TypeBoolean:
		return true
	}
	return false
}

// Validate checks arguments against schema and returns the declared
// properties as typed values. Properties the schema does not declare are
// ignored. Required fields are checked in declared order, then declared
// properties in name order, and the first violation is returned.
func Validate(schema ToolInputSchema, arguments map[string]any) (Arguments, error) {
	for _, field := range schema.Required {
		if _, ok := arguments[field]; !ok {
			return nil, &ValidationError{Reason: MissingRequiredField, Field: field}
		}
	}

	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	validated := make(Arguments, len(names))
	for _, name := range names {
		raw, ok := arguments[name]
		if !ok {
			continue
		}
		expected := schema.Properties[name].Type
		v, actual := valueOf(raw)
		if !matches(expected, v) {
			if expected == TypeInteger && actual == TypeNumber {
				actual = "non-integer number"
			}
			return nil, &ValidationError{
				Reason:   TypeMismatch,
				Field:    name,
				Expected: expected,
				Actual:   actual,
			}
		}
		validated[name] = v
	}
	return validated, nil
}

func matches(expected string, v Value) bool {
	switch expected {
	case TypeString:
		return v.kind == KindString
	case TypeNumber:
		return v.kind == KindNumber
	case TypeInteger:
		return v.kind == KindNumber && v.num == math.Trunc(v.num) && !math.IsInf(v.num, 0)
	case TypeBoolean:
		return v.kind == KindBoolean
	}
	return false
}
