package common

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
)

const (
	PageSize     int = 4096
	IntSize      int = 4
	LongSize     int = 8
	FloatSize    int = 4
	BoolSize     int = 1
	StringLength int = 32
)

// Type is the value-type tag of a column. Two columns are join compatible
// exactly when their tags are equal.
type Type int8

const (
	// For uninitialized Values
	DefaultType Type = iota
	IntType
	LongType
	FloatType
	BoolType
	StringType
)

// Size returns the fixed-width storage size of the type in bytes
func (t Type) Size() int {
	switch t {
	case IntType:
		return IntSize
	case LongType:
		return LongSize
	case FloatType:
		return FloatSize
	case BoolType:
		return BoolSize
	case StringType:
		return StringLength
	default:
		panic("unknown type")
	}
}

func (t Type) String() string {
	switch t {
	case IntType:
		return "int"
	case LongType:
		return "long"
	case FloatType:
		return "float"
	case BoolType:
		return "bool"
	case StringType:
		return "string"
	}
	return "unknown"
}

// ParseType maps a type name as printed by Type.String back to its tag.
func ParseType(name string) (Type, bool) {
	switch name {
	case "int":
		return IntType, true
	case "long":
		return LongType, true
	case "float":
		return FloatType, true
	case "bool":
		return BoolType, true
	case "string":
		return StringType, true
	}
	return DefaultType, false
}

// ObjectID is a unique identifier for a table in the database.
type ObjectID uint32

// Value represents a (deserialized) data item in a record.
type Value struct {
	t           Type
	underlyingI int64
	underlyingF float64
	underlyingS string
}

// AsValue extracts a value of type t from a raw storage buffer.
func AsValue(t Type, source []byte) Value {
	val := Value{t: t}
	switch t {
	case IntType:
		val.underlyingI = int64(int32(binary.LittleEndian.Uint32(source)))
	case LongType:
		val.underlyingI = int64(binary.LittleEndian.Uint64(source))
	case FloatType:
		val.underlyingF = float64(math.Float32frombits(binary.LittleEndian.Uint32(source)))
	case BoolType:
		if source[0] != 0 {
			val.underlyingI = 1
		}
	case StringType:
		Assert(len(source) >= StringLength, "string too short")
		realLen := StringLength
		for i := 0; i < StringLength; i++ {
			if source[i] == 0 {
				realLen = i
				break
			}
		}
		val.underlyingS = string(source[:realLen])
	default:
		panic("unknown type")
	}
	return val
}

// WriteTo serializes the value into the provided buffer, which must hold at least v.Type().Size() bytes.
func (v Value) WriteTo(data []byte) {
	Assert(len(data) >= v.t.Size(), "buffer too small")
	switch v.t {
	case IntType:
		binary.LittleEndian.PutUint32(data, uint32(int32(v.underlyingI)))
	case LongType:
		binary.LittleEndian.PutUint64(data, uint64(v.underlyingI))
	case FloatType:
		binary.LittleEndian.PutUint32(data, math.Float32bits(float32(v.underlyingF)))
	case BoolType:
		data[0] = byte(v.underlyingI)
	case StringType:
		n := copy(data[:StringLength], v.underlyingS)
		clear(data[n:StringLength])
	}
}

// IsNil returns true if the Value is uninitialized.
func (v Value) IsNil() bool {
	return v.t == DefaultType
}

func NewIntValue(v int32) Value {
	return Value{t: IntType, underlyingI: int64(v)}
}

func NewLongValue(v int64) Value {
	return Value{t: LongType, underlyingI: v}
}

func NewFloatValue(v float32) Value {
	return Value{t: FloatType, underlyingF: float64(v)}
}

func NewBoolValue(v bool) Value {
	val := Value{t: BoolType}
	if v {
		val.underlyingI = 1
	}
	return val
}

// NewStringValue creates a new string Value. Strings longer than StringLength do not fit a column.
func NewStringValue(v string) Value {
	if len(v) > StringLength {
		panic("string too long")
	}
	return Value{t: StringType, underlyingS: v}
}

// Type returns the type of the Value.
func (v Value) Type() Type {
	return v.t
}

// IntValue returns the underlying integer of an int or long value.
func (v Value) IntValue() int64 {
	Assert(v.t == IntType || v.t == LongType, "value of type %s is not integral", v.t)
	return v.underlyingI
}

func (v Value) FloatValue() float32 {
	Assert(v.t == FloatType, "value of type %s is not a float", v.t)
	return float32(v.underlyingF)
}

func (v Value) BoolValue() bool {
	Assert(v.t == BoolType, "value of type %s is not a bool", v.t)
	return v.underlyingI != 0
}

func (v Value) StringValue() string {
	Assert(v.t == StringType, "value of type %s is not a string", v.t)
	return v.underlyingS
}

// Float projects the value onto the real line. Strings map to a value that preserves
// the ordering of their first eight bytes.
func (v Value) Float() float64 {
	switch v.t {
	case IntType, LongType, BoolType:
		return float64(v.underlyingI)
	case FloatType:
		return v.underlyingF
	case StringType:
		var prefix [8]byte
		copy(prefix[:], v.underlyingS)
		return float64(binary.BigEndian.Uint64(prefix[:]))
	}
	panic("unknown type")
}

// Compare compares two Values of the same type.
// Returns -1 if v < other, 0 if v == other, 1 if v > other.
func (v Value) Compare(other Value) int {
	Assert(v.t == other.t, "type mismatch in comparison: %s vs %s", v.t, other.t)

	switch v.t {
	case IntType, LongType, BoolType:
		return cmp.Compare(v.underlyingI, other.underlyingI)
	case FloatType:
		return cmp.Compare(v.underlyingF, other.underlyingF)
	case StringType:
		return cmp.Compare(v.underlyingS, other.underlyingS)
	}
	panic("unreachable")
}

// Equals reports whether both values have the same type and compare equal.
func (v Value) Equals(other Value) bool {
	return v.t == other.t && v.Compare(other) == 0
}

func (v Value) String() string {
	switch v.t {
	case IntType, LongType:
		return strconv.FormatInt(v.underlyingI, 10)
	case FloatType:
		return strconv.FormatFloat(v.underlyingF, 'g', -1, 32)
	case BoolType:
		return strconv.FormatBool(v.underlyingI != 0)
	case StringType:
		return v.underlyingS
	}
	return fmt.Sprintf("<%s>", v.t)
}

// TransactionID identifies a transaction for its lifetime.
type TransactionID uint64

const InvalidTransactionID TransactionID = 0
