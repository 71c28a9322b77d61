package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_Encoding(t *testing.T) {
	values := []Value{
		NewIntValue(-42),
		NewLongValue(1 << 40),
		NewFloatValue(3.5),
		NewBoolValue(true),
		NewBoolValue(false),
		NewStringValue("alice"),
		NewStringValue(""),
	}
	for _, v := range values {
		t.Run(v.Type().String()+"/"+v.String(), func(t *testing.T) {
			buf := make([]byte, v.Type().Size())
			v.WriteTo(buf)
			got := AsValue(v.Type(), buf)
			assert.True(t, v.Equals(got), "expected %v, got %v", v, got)
		})
	}
}

func TestValue_StringOverwritesTail(t *testing.T) {
	buf := make([]byte, StringLength)
	NewStringValue("a much longer string").WriteTo(buf)
	NewStringValue("short").WriteTo(buf)
	assert.Equal(t, "short", AsValue(StringType, buf).StringValue())
}

func TestValue_CompareTypeMismatchPanics(t *testing.T) {
	assert.Panics(t, func() {
		NewIntValue(1).Compare(NewLongValue(1))
	})
	assert.False(t, NewIntValue(1).Equals(NewLongValue(1)))
}

func TestValue_FloatPreservesStringOrder(t *testing.T) {
	assert.Less(t, NewStringValue("apple").Float(), NewStringValue("banana").Float())
	assert.Equal(t, float64(7), NewIntValue(7).Float())
}

func TestType_ParseRoundTrip(t *testing.T) {
	for _, typ := range []Type{IntType, LongType, FloatType, BoolType, StringType} {
		parsed, ok := ParseType(typ.String())
		require.True(t, ok)
		assert.Equal(t, typ, parsed)
	}
	_, ok := ParseType("decimal")
	assert.False(t, ok)
}

func TestIsErrorCode(t *testing.T) {
	err := NewError(AmbiguousColumnError, "column %s", "x")
	assert.True(t, IsErrorCode(err, AmbiguousColumnError))
	assert.False(t, IsErrorCode(err, ColumnNotFoundError))
	assert.Contains(t, err.Error(), "AmbiguousColumnError")
	assert.False(t, IsErrorCode(nil, ColumnNotFoundError))
}
