package simvar

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrConversion is returned when a raw value cannot be coerced into the
// variable's value kind.
var ErrConversion = errors.New("value conversion failed")

// Kind is the closed set of value shapes a variable can hold. It is
// derived from the unit and never set independently.
type Kind uint8

const (
	KindReal Kind = iota
	KindInt
	KindBool
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindReal:
		return "real"
	case KindInt:
		return "integer"
	case KindBool:
		return "boolean"
	case KindString:
		return "string"
	}
	return "unknown"
}

// Value is a tagged variant over the four kinds. The zero Value is a real 0.
type Value struct {
	kind Kind
	f    float64
	i    int64
	b    int32
	s    string
}

func RealValue(f float64) Value  { return Value{kind: KindReal, f: f} }
func IntValue(i int64) Value     { return Value{kind: KindInt, i: i} }
func StringValue(s string) Value { return Value{kind: KindString, s: s} }
func BoolValue(b bool) Value {
	if b {
		return Value{kind: KindBool, b: 1}
	}
	return Value{kind: KindBool}
}

// ZeroValue returns the empty value of kind k.
func ZeroValue(k Kind) Value { return Value{kind: k} }

func (v Value) Kind() Kind { return v.kind }

// Float returns a numeric view of the value. Strings parse or yield 0.
func (v Value) Float() float64 {
	switch v.kind {
	case KindInt:
		return float64(v.i)
	case KindBool:
		return float64(v.b)
	case KindString:
		f, _ := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		return f
	}
	return v.f
}

// Int returns the value as an integer, rounding reals.
func (v Value) Int() int64 {
	switch v.kind {
	case KindReal:
		return int64(math.Round(v.f))
	case KindBool:
		return int64(v.b)
	case KindString:
		i, _ := strconv.ParseInt(strings.TrimSpace(v.s), 10, 64)
		return i
	}
	return v.i
}

func (v Value) Bool() bool {
	switch v.kind {
	case KindReal:
		return v.f != 0
	case KindInt:
		return v.i != 0
	case KindString:
		b, _ := strconv.ParseBool(strings.TrimSpace(v.s))
		return b
	}
	return v.b != 0
}

// String returns the unformatted textual representation.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindBool:
		return strconv.FormatBool(v.b != 0)
	case KindString:
		return v.s
	}
	return strconv.FormatFloat(v.f, 'f', -1, 64)
}

// Interface returns the Go value suitable for fmt verbs.
func (v Value) Interface() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindBool:
		return v.b != 0
	case KindString:
		return v.s
	}
	return v.f
}

// Within reports whether o differs from v by less than epsilon. Strings
// compare by equality. Values of different kinds never match.
func (v Value) Within(o Value, epsilon float64) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.s == o.s
	case KindBool:
		return v.b == o.b
	case KindInt:
		if v.i == o.i {
			return true
		}
		return math.Abs(float64(v.i)-float64(o.i)) < epsilon
	}
	if v.f == o.f {
		return true
	}
	return math.Abs(v.f-o.f) < epsilon
}

// Coerce converts a raw value received from the simulator, or parsed from
// a definition file, into kind k.
func Coerce(raw any, k Kind) (Value, error) {
	switch k {
	case KindString:
		return coerceString(raw)
	case KindBool:
		f, err := toFloat(raw)
		if err != nil {
			if s, ok := raw.(string); ok {
				if b, perr := strconv.ParseBool(strings.TrimSpace(s)); perr == nil {
					return BoolValue(b), nil
				}
			}
			return Value{}, err
		}
		return BoolValue(f != 0), nil
	case KindInt:
		switch r := raw.(type) {
		case int64:
			return IntValue(r), nil
		case string:
			if i, err := strconv.ParseInt(strings.TrimSpace(r), 10, 64); err == nil {
				return IntValue(i), nil
			}
		}
		f, err := toFloat(raw)
		if err != nil {
			return Value{}, err
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Value{}, fmt.Errorf("%w: %v is not an integer", ErrConversion, raw)
		}
		return IntValue(int64(math.Round(f))), nil
	}
	f, err := toFloat(raw)
	if err != nil {
		return Value{}, err
	}
	return RealValue(f), nil
}

func coerceString(raw any) (Value, error) {
	switch r := raw.(type) {
	case string:
		return StringValue(r), nil
	case []byte:
		if idx := bytes.IndexByte(r, 0); idx >= 0 {
			r = r[:idx]
		}
		return StringValue(string(r)), nil
	case nil:
		return Value{}, fmt.Errorf("%w: nil value", ErrConversion)
	}
	return StringValue(fmt.Sprint(raw)), nil
}

func toFloat(raw any) (float64, error) {
	switch r := raw.(type) {
	case float64:
		return r, nil
	case float32:
		return float64(r), nil
	case int:
		return float64(r), nil
	case int32:
		return float64(r), nil
	case int64:
		return float64(r), nil
	case uint32:
		return float64(r), nil
	case uint64:
		return float64(r), nil
	case bool:
		if r {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := ParseNumber(r)
		if err != nil {
			return 0, err
		}
		return f, nil
	}
	return 0, fmt.Errorf("%w: unsupported raw type %T", ErrConversion, raw)
}

// ParseNumber parses a user or simulator supplied number. A single decimal
// comma is accepted in place of a dot.
func ParseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty number", ErrConversion)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err == nil {
		return f, nil
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		if f, err2 := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64); err2 == nil {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %q is not a number", ErrConversion, s)
}
