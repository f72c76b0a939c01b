package kvstore

import (
	"encoding/hex"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestValueEncoding(t *testing.T) {
	tests := []struct {
		input    Value
		expected string
	}{
		{Null(), "00"},
		{Bool(false), "01 00"},
		{Bool(true), "01 01"},
		{Int(0), "02 0000000000000000"},
		{Int(0x42), "02 0000000000000042"},
		{Int(-1), "02 ffffffffffffffff"},
		{Float(1.0), "03 3ff0000000000000"},
		{Float(math.Inf(-1)), "03 fff0000000000000"},
		{Text(""), "04"},
		{Text("test"), "04 74657374"},
		{Text("héllo"), "04 68c3a96c6c6f"},
	}
	for _, test := range tests {
		expected := strings.ReplaceAll(test.expected, " ", "")
		a := hex.EncodeToString(test.input.Encode())
		if a != expected {
			t.Errorf("** Encode(%v) = %v, wanted %v", test.input, a, expected)
			continue
		}
		decoded, err := DecodeValue(test.input.Encode())
		if err != nil {
			t.Errorf("** DecodeValue(%s) failed: %v", a, err)
		} else if !decoded.Equal(test.input) {
			t.Errorf("** DecodeValue(%s) = %v, wanted %v", a, decoded, test.input)
		}
	}
}

func TestValueRoundTripSpecialFloats(t *testing.T) {
	for _, f := range []float64{0.0, math.Copysign(0, -1), math.NaN(), math.Inf(1), math.Inf(-1)} {
		orig := Float(f)
		decoded := must(DecodeValue(orig.Encode()))
		if !decoded.Equal(orig) {
			t.Errorf("** float %v did not round-trip bit-for-bit", f)
		}
		got, ok := decoded.Float()
		if !ok {
			t.Fatalf("** decoded %v is not a float", f)
		}
		if math.Float64bits(got) != math.Float64bits(f) {
			t.Errorf("** float bits changed: %x != %x", math.Float64bits(got), math.Float64bits(f))
		}
	}
}

func TestValueDecodeErrors(t *testing.T) {
	tests := []struct {
		data     string
		sentinel error
	}{
		{"", ErrTruncated},
		{"01", ErrTruncated},         // bool without payload
		{"02 00000000000000", ErrTruncated}, // 7-byte int
		{"03 0000", ErrTruncated},
		{"7f", ErrUnknownTag},
		{"ff 00", ErrUnknownTag},
	}
	for _, test := range tests {
		data := must(hex.DecodeString(strings.ReplaceAll(test.data, " ", "")))
		_, err := DecodeValue(data)
		if err == nil {
			t.Errorf("** DecodeValue(%q) succeeded, wanted error", test.data)
			continue
		}
		if !errors.Is(err, test.sentinel) {
			t.Errorf("** DecodeValue(%q) = %v, wanted %v", test.data, err, test.sentinel)
		}
		var de *DataError
		if !errors.As(err, &de) {
			t.Errorf("** DecodeValue(%q) error is %T, wanted *DataError", test.data, err)
		}
	}

	// Malformed but not truncated.
	for _, data := range []string{"00 01", "01 02", "01 0000", "02 000000000000000000"} {
		raw := must(hex.DecodeString(strings.ReplaceAll(data, " ", "")))
		if _, err := DecodeValue(raw); err == nil {
			t.Errorf("** DecodeValue(%q) succeeded, wanted error", data)
		}
	}
}

func TestValueNoCoercion(t *testing.T) {
	v := Int(42)
	if _, ok := v.Float(); ok {
		t.Errorf("** int value readable as float")
	}
	if _, ok := v.Text(); ok {
		t.Errorf("** int value readable as text")
	}
	if _, ok := v.Bool(); ok {
		t.Errorf("** int value readable as bool")
	}
}
