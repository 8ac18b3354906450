package simvar

import (
	"errors"
	"math"
	"testing"
)

func TestClassifyUnit(t *testing.T) {
	tests := []struct {
		unit string
		want Kind
	}{
		{"string", KindString},
		{"Bool", KindBool},
		{"boolean", KindBool},
		{"Enum", KindInt},
		{"position 16k", KindInt},
		{"Frequency_BCD16", KindInt},
		{"feet", KindReal},
		{"percent over 100", KindReal},
		{"radians", KindReal},
		{"", KindReal},
	}

	for _, tt := range tests {
		t.Run(tt.unit, func(t *testing.T) {
			if got := ClassifyUnit(tt.unit); got != tt.want {
				t.Errorf("ClassifyUnit(%q) = %v, want %v", tt.unit, got, tt.want)
			}
		})
	}
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		name    string
		raw     any
		kind    Kind
		want    Value
		wantErr bool
	}{
		{"float to real", 1.25, KindReal, RealValue(1.25), false},
		{"int32 to real", int32(7), KindReal, RealValue(7), false},
		{"float to int rounds", 2.6, KindInt, IntValue(3), false},
		{"int64 to int", int64(-4), KindInt, IntValue(-4), false},
		{"int32 to bool", int32(1), KindBool, BoolValue(true), false},
		{"zero to bool", 0.0, KindBool, BoolValue(false), false},
		{"string to bool", "true", KindBool, BoolValue(true), false},
		{"bytes to string", []byte("N123AB\x00\x00junk"), KindString, StringValue("N123AB"), false},
		{"number to string", 3.5, KindString, StringValue("3.5"), false},
		{"decimal comma", "1,5", KindReal, RealValue(1.5), false},
		{"garbage to real", "abc", KindReal, Value{}, true},
		{"unsupported type", struct{}{}, KindReal, Value{}, true},
		{"nan to int", math.NaN(), KindInt, Value{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(tt.raw, tt.kind)
			if tt.wantErr {
				if !errors.Is(err, ErrConversion) {
					t.Fatalf("Coerce(%v) error = %v, want ErrConversion", tt.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Coerce(%v) unexpected error: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("Coerce(%v) = %#v, want %#v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestValue_Within(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		eps  float64
		want bool
	}{
		{"equal reals, zero epsilon", RealValue(1), RealValue(1), 0, true},
		{"below epsilon", RealValue(1), RealValue(1.05), 0.1, true},
		{"at epsilon", RealValue(1), RealValue(1.5), 0.5, false},
		{"above epsilon", RealValue(1), RealValue(2), 0.5, false},
		{"ints below epsilon", IntValue(10), IntValue(11), 2, true},
		{"ints at the limits", IntValue(math.MaxInt64), IntValue(math.MinInt64), 1, false},
		{"ints of opposite sign", IntValue(-5), IntValue(5), 3, false},
		{"strings equal", StringValue("a"), StringValue("a"), 100, true},
		{"strings differ", StringValue("a"), StringValue("b"), 100, false},
		{"bools", BoolValue(true), BoolValue(false), 100, false},
		{"kind mismatch", RealValue(1), IntValue(1), 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Within(tt.b, tt.eps); got != tt.want {
				t.Errorf("Within() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseNumber(t *testing.T) {
	if f, err := ParseNumber(" 42.5 "); err != nil || f != 42.5 {
		t.Errorf("ParseNumber(42.5) = %v, %v", f, err)
	}
	if _, err := ParseNumber(""); !errors.Is(err, ErrConversion) {
		t.Errorf("ParseNumber(\"\") error = %v, want ErrConversion", err)
	}
	if _, err := ParseNumber("1,000.5"); !errors.Is(err, ErrConversion) {
		t.Errorf("ParseNumber(1,000.5) error = %v, want ErrConversion", err)
	}
}
