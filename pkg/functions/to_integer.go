package functions

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/orneryd/cypherfn/pkg/ast"
	"github.com/orneryd/cypherfn/pkg/value"
)

// coercion is the outcome of coerceInteger. Entry points map it to their
// own error policy.
type coercion int

const (
	coerced     coercion = iota // result holds INTEGER or NULL
	overflowed                  // FLOAT is NaN or ±Inf
	invalidType                 // kind has no integer conversion
)

// Bounds of int64 as float64. 2^63 itself does not fit, so anything at or
// above it saturates.
const (
	minInt64Float = -9223372036854775808.0
	maxInt64Float = 9223372036854775808.0
)

// coerceInteger is the integer coercion table shared by every function in
// this file.
//
//	NULL            → NULL
//	INTEGER i       → i
//	FLOAT f         → floor(f) saturated to int64, overflow if NaN or ±Inf
//	BOOLEAN         → 1 / 0
//	STRING s        → base-10 int64, else decimal float floored, else NULL;
//	                  never an error
//	LIST/MAP/...    → invalid type
//
// Floor rounds toward negative infinity: -1.5 becomes -2.
func coerceInteger(v value.Value) (value.Value, coercion) {
	switch v.Kind() {
	case value.KindNull:
		return value.NewNull(), coerced
	case value.KindInteger:
		return v, coerced
	case value.KindFloat:
		if !v.Representable() {
			return value.NewNull(), overflowed
		}
		return floorToInteger(v.Float()), coerced
	case value.KindBool:
		if v.Bool() {
			return value.NewInteger(1), coerced
		}
		return value.NewInteger(0), coerced
	case value.KindString:
		return parseInteger(v.Str()), coerced
	case value.KindList, value.KindMap, value.KindDuration:
		return value.NewNull(), invalidType
	}
	return value.NewNull(), invalidType
}

// parseInteger tries an integer literal first, then a decimal float.
// Text that is neither is NULL. Strings never fail: out of range numbers
// saturate and "NaN" becomes 0.
func parseInteger(s string) value.Value {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return value.NewInteger(i)
	}
	if isHexLiteral(s) {
		return value.NewNull()
	}
	// "1e400" parses to ±Inf with ErrRange; it saturates like any other
	// out of range value.
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return value.NewNull()
	}
	return floorToInteger(f)
}

// isHexLiteral rejects strconv's hexadecimal float syntax ("0x1p-2").
func isHexLiteral(s string) bool {
	s = strings.TrimLeft(s, "+-")
	return strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")
}

// floorToInteger floors f and saturates at the int64 bounds.
//
//	floorToInteger(1e300)  // MaxInt64
//	floorToInteger(-1e300) // MinInt64
//	floorToInteger(NaN)    // 0
func floorToInteger(f float64) value.Value {
	fl := math.Floor(f)
	switch {
	case math.IsNaN(fl):
		return value.NewInteger(0)
	case fl >= maxInt64Float:
		return value.NewInteger(math.MaxInt64)
	case fl < minInt64Float:
		return value.NewInteger(math.MinInt64)
	}
	return value.NewInteger(int64(fl))
}

// ToInteger implements toInteger(expression :: ANY) :: INTEGER.
//
// Conversion follows coerceInteger. Values of any other kind (lists, maps,
// durations) fail with an InvalidArgument error at index 0.
//
// Example:
//
//	toInteger(2.9)    // 2
//	toInteger(-2.1)   // -3
//	toInteger('42')   // 42
//	toInteger('3.9')  // 3
//	toInteger('abc')  // null
//	toInteger(true)   // 1
//	toInteger([1])    // error: invalid argument at index 0
//	toInteger(1, 2)   // error: invalid argument count
type ToInteger struct{}

// Call implements ScalarFunction.
func (ToInteger) Call(_ context.Context, _ *EvaluationContext, expr *ast.FunctionCall, args []value.Value) (value.Value, error) {
	name := callName(expr, "toInteger")
	if len(args) != 1 {
		return value.NewNull(), invalidArgumentCount(name)
	}
	result, outcome := coerceInteger(args[0])
	switch outcome {
	case overflowed:
		return value.NewNull(), overflow(name)
	case invalidType:
		return value.NewNull(), invalidArgument(name, 0)
	}
	return result, nil
}

// ToIntegerOrNull implements toIntegerOrNull(expression :: ANY) :: INTEGER.
//
// Same as ToInteger except that values with no integer conversion return
// null. A wrong argument count and a NaN or infinite float are still errors.
//
// Example:
//
//	toIntegerOrNull('7')      // 7
//	toIntegerOrNull([1, 2])   // null
//	toIntegerOrNull()         // error: invalid argument count
//	toIntegerOrNull(1e300)    // 9223372036854775807
//	toIntegerOrNull(0.0/0.0)  // error: overflow
type ToIntegerOrNull struct{}

// Call implements ScalarFunction.
func (ToIntegerOrNull) Call(_ context.Context, _ *EvaluationContext, expr *ast.FunctionCall, args []value.Value) (value.Value, error) {
	name := callName(expr, "toIntegerOrNull")
	if len(args) != 1 {
		return value.NewNull(), invalidArgumentCount(name)
	}
	result, outcome := coerceInteger(args[0])
	switch outcome {
	case overflowed:
		return value.NewNull(), overflow(name)
	case invalidType:
		return value.NewNull(), nil
	}
	return result, nil
}

// ToIntegerList implements toIntegerList(input :: LIST<ANY>) :: LIST<INTEGER>.
//
// Each element is converted like toIntegerOrNull. A null input returns
// null; any other non-list input fails at index 0.
//
// Example:
//
//	toIntegerList(['1', 2.7, true, 'x', [3]])  // [1, 2, 1, null, null]
type ToIntegerList struct{}

// Call implements ScalarFunction.
func (ToIntegerList) Call(_ context.Context, _ *EvaluationContext, expr *ast.FunctionCall, args []value.Value) (value.Value, error) {
	name := callName(expr, "toIntegerList")
	if len(args) != 1 {
		return value.NewNull(), invalidArgumentCount(name)
	}
	switch args[0].Kind() {
	case value.KindNull:
		return value.NewNull(), nil
	case value.KindList:
	default:
		return value.NewNull(), invalidArgument(name, 0)
	}

	items := args[0].List()
	out := make([]value.Value, len(items))
	for i, item := range items {
		result, outcome := coerceInteger(item)
		switch outcome {
		case overflowed:
			return value.NewNull(), overflow(name)
		case invalidType:
			result = value.NewNull()
		}
		out[i] = result
	}
	return value.NewList(out), nil
}
