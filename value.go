package kvstore

import (
	"encoding/binary"
	"math"
	"strconv"
)

// Kind identifies which variant a Value holds.
type Kind byte

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Storage tags. These are the on-disk format; new types require a
// deliberate format bump, never an ad-hoc extension.
const (
	tagNull byte = iota
	tagBool
	tagInt
	tagFloat
	tagText
)

const scalarPayloadLen = 8

// Value is a scalar stored in a database: null, bool, int64, float64 or
// text. The zero Value is null. Numeric variants are kept as raw bits so
// that NaN payloads and negative zero survive a round trip unchanged.
type Value struct {
	kind Kind
	bits uint64
	str  string
}

func Null() Value            { return Value{} }
func Bool(v bool) Value      { return Value{kind: KindBool, bits: boolBits(v)} }
func Int(v int64) Value      { return Value{kind: KindInt, bits: uint64(v)} }
func Float(v float64) Value  { return Value{kind: KindFloat, bits: math.Float64bits(v)} }
func Text(v string) Value    { return Value{kind: KindText, str: v} }

func boolBits(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) Bool() (bool, bool) {
	return v.bits != 0, v.kind == KindBool
}

func (v Value) Int() (int64, bool) {
	return int64(v.bits), v.kind == KindInt
}

func (v Value) Float() (float64, bool) {
	return math.Float64frombits(v.bits), v.kind == KindFloat
}

func (v Value) Text() (string, bool) {
	return v.str, v.kind == KindText
}

// Equal compares values exactly; floats compare bit for bit, so NaN equals
// an identically-encoded NaN and 0.0 differs from -0.0.
func (v Value) Equal(o Value) bool {
	return v.kind == o.kind && v.bits == o.bits && v.str == o.str
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.bits != 0)
	case KindInt:
		return strconv.FormatInt(int64(v.bits), 10)
	case KindFloat:
		return strconv.FormatFloat(math.Float64frombits(v.bits), 'g', -1, 64)
	case KindText:
		return v.str
	default:
		return "<invalid>"
	}
}

// Encode returns the tagged storage encoding of v. Encoding is total and
// deterministic: every value has exactly one encoding.
func (v Value) Encode() []byte {
	switch v.kind {
	case KindNull:
		return []byte{tagNull}
	case KindBool:
		if v.bits != 0 {
			return []byte{tagBool, 1}
		}
		return []byte{tagBool, 0}
	case KindInt, KindFloat:
		buf := make([]byte, 1+scalarPayloadLen)
		if v.kind == KindInt {
			buf[0] = tagInt
		} else {
			buf[0] = tagFloat
		}
		binary.BigEndian.PutUint64(buf[1:], v.bits)
		return buf
	case KindText:
		buf := make([]byte, 1+len(v.str))
		buf[0] = tagText
		copy(buf[1:], v.str)
		return buf
	default:
		panic("invalid value kind")
	}
}

// DecodeValue parses the tagged storage encoding. Unrecognized tags and
// short payloads are hard errors; nothing decodes to a silent default.
func DecodeValue(data []byte) (Value, error) {
	if len(data) == 0 {
		return Value{}, dataErrf(data, 0, ErrTruncated, "empty value")
	}
	payload := data[1:]
	switch data[0] {
	case tagNull:
		if len(payload) != 0 {
			return Value{}, dataErrf(data, 1, nil, "null value with payload")
		}
		return Null(), nil
	case tagBool:
		if len(payload) < 1 {
			return Value{}, dataErrf(data, 1, ErrTruncated, "bool value")
		}
		if len(payload) > 1 || payload[0] > 1 {
			return Value{}, dataErrf(data, 1, nil, "malformed bool value")
		}
		return Bool(payload[0] == 1), nil
	case tagInt, tagFloat:
		kind := KindInt
		if data[0] == tagFloat {
			kind = KindFloat
		}
		if len(payload) < scalarPayloadLen {
			return Value{}, dataErrf(data, 1, ErrTruncated, "%d-byte payload for %v value", len(payload), kind)
		}
		if len(payload) > scalarPayloadLen {
			return Value{}, dataErrf(data, 1, nil, "oversized numeric value")
		}
		bits := binary.BigEndian.Uint64(payload)
		if data[0] == tagInt {
			return Int(int64(bits)), nil
		}
		return Value{kind: KindFloat, bits: bits}, nil
	case tagText:
		return Text(string(payload)), nil
	default:
		return Value{}, dataErrf(data, 0, ErrUnknownTag, "tag 0x%02x", data[0])
	}
}
