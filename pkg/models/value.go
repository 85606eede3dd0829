package models

import (
	"encoding/json"
	"time"
)

// ValueKind enumerates the closed set of value variants crossing the
// database boundary. Driver values are converted into this set exactly
// once, by the result projector's converter.
type ValueKind int

const (
	ValueNull ValueKind = iota
	ValueInt
	ValueFloat
	ValueText
	ValueBool
	ValueTime
)

// String returns the string representation of the value kind.
func (k ValueKind) String() string {
	switch k {
	case ValueNull:
		return "null"
	case ValueInt:
		return "integer"
	case ValueFloat:
		return "float"
	case ValueText:
		return "text"
	case ValueBool:
		return "boolean"
	case ValueTime:
		return "datetime"
	default:
		return "unknown"
	}
}

// Value is a tagged variant for a single database cell. NULL is an
// explicit variant, never an empty string.
type Value struct {
	Kind  ValueKind
	Int   int64
	Float float64
	Text  string
	Bool  bool
	Time  time.Time
}

// Null returns the explicit null value.
func Null() Value { return Value{Kind: ValueNull} }

// NewInt returns an integer value.
func NewInt(v int64) Value { return Value{Kind: ValueInt, Int: v} }

// NewFloat returns a floating-point value.
func NewFloat(v float64) Value { return Value{Kind: ValueFloat, Float: v} }

// NewText returns a text value.
func NewText(v string) Value { return Value{Kind: ValueText, Text: v} }

// NewBool returns a boolean value.
func NewBool(v bool) Value { return Value{Kind: ValueBool, Bool: v} }

// NewTime returns a date/time value.
func NewTime(v time.Time) Value { return Value{Kind: ValueTime, Time: v} }

// IsNull reports whether the value is the null variant.
func (v Value) IsNull() bool { return v.Kind == ValueNull }

// Native returns the transport-safe representation: nil for null,
// RFC 3339 text for date/time, and the underlying Go value otherwise.
func (v Value) Native() interface{} {
	switch v.Kind {
	case ValueNull:
		return nil
	case ValueInt:
		return v.Int
	case ValueFloat:
		return v.Float
	case ValueText:
		return v.Text
	case ValueBool:
		return v.Bool
	case ValueTime:
		return v.Time.Format(time.RFC3339)
	default:
		return nil
	}
}

// MarshalJSON implements json.Marshaler using the native representation.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Native())
}
