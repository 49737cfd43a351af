package functions

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/cypherfn/pkg/ast"
	"github.com/orneryd/cypherfn/pkg/value"
)

// call runs fn with a single argument through a call node named name.
func call(t *testing.T, fn ScalarFunction, name string, args ...value.Value) (value.Value, error) {
	t.Helper()
	return fn.Call(context.Background(), NewEvaluationContext(), ast.NewFunctionCall(name), args)
}

// ========================================
// Shared conversion table
// ========================================

func TestIntegerConversion_BothVariants(t *testing.T) {
	tests := []struct {
		name string
		in   value.Value
		want value.Value
	}{
		{"null", value.NewNull(), value.NewNull()},
		{"integer", value.NewInteger(42), value.NewInteger(42)},
		{"negative integer", value.NewInteger(-9), value.NewInteger(-9)},
		{"max int64", value.NewInteger(math.MaxInt64), value.NewInteger(math.MaxInt64)},
		{"float down", value.NewFloat(2.9), value.NewInteger(2)},
		{"negative float floors", value.NewFloat(-2.1), value.NewInteger(-3)},
		{"negative half floors", value.NewFloat(-1.5), value.NewInteger(-2)},
		{"integral float", value.NewFloat(7), value.NewInteger(7)},
		{"negative zero", value.NewFloat(math.Copysign(0, -1)), value.NewInteger(0)},
		{"small negative", value.NewFloat(-0.0001), value.NewInteger(-1)},
		{"min int64 as float", value.NewFloat(-9223372036854775808.0), value.NewInteger(math.MinInt64)},
		{"true", value.NewBool(true), value.NewInteger(1)},
		{"false", value.NewBool(false), value.NewInteger(0)},
		{"int string", value.NewString("42"), value.NewInteger(42)},
		{"negative int string", value.NewString("-7"), value.NewInteger(-7)},
		{"plus sign", value.NewString("+5"), value.NewInteger(5)},
		{"float string", value.NewString("3.9"), value.NewInteger(3)},
		{"negative float string", value.NewString("-3.9"), value.NewInteger(-4)},
		{"exponent string", value.NewString("1.5e2"), value.NewInteger(150)},
		{"not a number", value.NewString("abc"), value.NewNull()},
		{"empty string", value.NewString(""), value.NewNull()},
		{"surrounding space", value.NewString(" 42 "), value.NewNull()},
		{"hex float syntax", value.NewString("0x1p4"), value.NewNull()},
		{"underscores", value.NewString("1_000"), value.NewNull()},

		// Finite floats outside int64 saturate at the bounds.
		{"2^63", value.NewFloat(9223372036854775808.0), value.NewInteger(math.MaxInt64)},
		{"huge", value.NewFloat(1e300), value.NewInteger(math.MaxInt64)},
		{"huge negative", value.NewFloat(-1e300), value.NewInteger(math.MinInt64)},
		{"max float", value.NewFloat(math.MaxFloat64), value.NewInteger(math.MaxInt64)},

		// Numeric strings never fail.
		{"huge string", value.NewString("1e300"), value.NewInteger(math.MaxInt64)},
		{"huge negative string", value.NewString("-1e300"), value.NewInteger(math.MinInt64)},
		{"out of range string", value.NewString("1e400"), value.NewInteger(math.MaxInt64)},
		{"int64 overflow string", value.NewString("99999999999999999999"), value.NewInteger(math.MaxInt64)},
		{"int64 underflow string", value.NewString("-99999999999999999999"), value.NewInteger(math.MinInt64)},
		{"NaN string", value.NewString("NaN"), value.NewInteger(0)},
		{"Infinity string", value.NewString("Infinity"), value.NewInteger(math.MaxInt64)},
		{"negative Infinity string", value.NewString("-Infinity"), value.NewInteger(math.MinInt64)},
	}

	for _, fn := range []struct {
		name string
		impl ScalarFunction
	}{
		{"toInteger", ToInteger{}},
		{"toIntegerOrNull", ToIntegerOrNull{}},
	} {
		for _, tt := range tests {
			t.Run(fn.name+"/"+tt.name, func(t *testing.T) {
				got, err := call(t, fn.impl, fn.name, tt.in)
				require.NoError(t, err)
				assert.True(t, value.Equal(tt.want, got), "got %s, want %s", got, tt.want)
			})
		}
	}
}

func TestIntegerConversion_Overflow(t *testing.T) {
	inputs := []struct {
		name string
		in   value.Value
	}{
		{"NaN", value.NewFloat(math.NaN())},
		{"+Inf", value.NewFloat(math.Inf(1))},
		{"-Inf", value.NewFloat(math.Inf(-1))},
	}

	for _, fn := range []struct {
		name string
		impl ScalarFunction
	}{
		{"toInteger", ToInteger{}},
		{"toIntegerOrNull", ToIntegerOrNull{}},
	} {
		for _, tt := range inputs {
			t.Run(fn.name+"/"+tt.name, func(t *testing.T) {
				got, err := call(t, fn.impl, fn.name, tt.in)
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrOverflow)
				assert.True(t, got.IsNull())

				var fe *FunctionError
				require.True(t, errors.As(err, &fe))
				assert.Equal(t, Overflow, fe.Kind)
				assert.Equal(t, fn.name, fe.FunctionName)
			})
		}
	}
}

func TestIntegerConversion_ArgumentCount(t *testing.T) {
	argLists := map[string][]value.Value{
		"none": nil,
		"two":  {value.NewInteger(1), value.NewInteger(2)},
		"three": {
			value.NewNull(), value.NewNull(), value.NewNull(),
		},
	}
	for _, fn := range []struct {
		name string
		impl ScalarFunction
	}{
		{"toInteger", ToInteger{}},
		{"toIntegerOrNull", ToIntegerOrNull{}},
		{"toIntegerList", ToIntegerList{}},
	} {
		for label, args := range argLists {
			t.Run(fn.name+"/"+label, func(t *testing.T) {
				_, err := call(t, fn.impl, fn.name, args...)
				assert.ErrorIs(t, err, ErrInvalidArgumentCount)
				assert.EqualError(t, err, fn.name+": invalid argument count")
			})
		}
	}
}

// ========================================
// Strict vs OrNull divergence
// ========================================

func TestToInteger_RejectsUnsupportedKinds(t *testing.T) {
	others := []value.Value{
		value.NewList([]value.Value{value.NewInteger(1)}),
		value.NewMap(map[string]value.Value{"a": value.NewInteger(1)}),
		value.NewDuration(time.Second),
	}
	for _, in := range others {
		t.Run(in.Kind().String(), func(t *testing.T) {
			got, err := call(t, ToInteger{}, "toInteger", in)
			assert.True(t, got.IsNull())
			assert.ErrorIs(t, err, ErrInvalidArgument)
			assert.EqualError(t, err, "toInteger: invalid argument at index 0")

			var fe *FunctionError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, InvalidArgument, fe.Kind)
			assert.Equal(t, 0, fe.Index)
		})
	}
}

func TestToIntegerOrNull_ReturnsNullForUnsupportedKinds(t *testing.T) {
	others := []value.Value{
		value.NewList(nil),
		value.NewMap(nil),
		value.NewDuration(-time.Hour),
	}
	for _, in := range others {
		t.Run(in.Kind().String(), func(t *testing.T) {
			got, err := call(t, ToIntegerOrNull{}, "toIntegerOrNull", in)
			require.NoError(t, err)
			assert.True(t, got.IsNull())
		})
	}
}

func TestErrorsCarryCallSiteName(t *testing.T) {
	_, err := call(t, ToInteger{}, "TOINTEGER", value.NewList(nil))
	assert.EqualError(t, err, "TOINTEGER: invalid argument at index 0")

	_, err = ToInteger{}.Call(context.Background(), nil, nil, nil)
	assert.EqualError(t, err, "toInteger: invalid argument count", "falls back to canonical name")
}

// ========================================
// toIntegerList
// ========================================

func TestToIntegerList(t *testing.T) {
	in := value.NewList([]value.Value{
		value.NewString("1"),
		value.NewFloat(2.7),
		value.NewBool(true),
		value.NewString("x"),
		value.NewList([]value.Value{value.NewInteger(3)}),
		value.NewNull(),
		value.NewFloat(-0.5),
	})
	want := value.NewList([]value.Value{
		value.NewInteger(1),
		value.NewInteger(2),
		value.NewInteger(1),
		value.NewNull(),
		value.NewNull(),
		value.NewNull(),
		value.NewInteger(-1),
	})

	got, err := call(t, ToIntegerList{}, "toIntegerList", in)
	require.NoError(t, err)
	assert.True(t, value.Equal(want, got), "got %s", got)
}

func TestToIntegerList_EdgeCases(t *testing.T) {
	got, err := call(t, ToIntegerList{}, "toIntegerList", value.NewNull())
	require.NoError(t, err)
	assert.True(t, got.IsNull())

	got, err = call(t, ToIntegerList{}, "toIntegerList", value.NewList(nil))
	require.NoError(t, err)
	assert.Equal(t, value.KindList, got.Kind())
	assert.Empty(t, got.List())

	_, err = call(t, ToIntegerList{}, "toIntegerList", value.NewString("1"))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = call(t, ToIntegerList{}, "toIntegerList",
		value.NewList([]value.Value{value.NewInteger(1), value.NewFloat(math.NaN())}))
	assert.ErrorIs(t, err, ErrOverflow)

	got, err = call(t, ToIntegerList{}, "toIntegerList",
		value.NewList([]value.Value{value.NewFloat(1e300), value.NewString("NaN")}))
	require.NoError(t, err)
	assert.Equal(t, "[9223372036854775807, 0]", got.String())
}

func TestFunctionErrorUnwrap(t *testing.T) {
	assert.Nil(t, (&FunctionError{FunctionName: "f"}).Unwrap())
	assert.Equal(t, "f: ErrorKind(0)", (&FunctionError{FunctionName: "f"}).Error())
	assert.False(t, errors.Is(overflow("f"), ErrInvalidArgument))
}
