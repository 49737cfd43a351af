// Package functions implements Cypher scalar functions for the integer
// coercion family: toInteger, toInt, toIntegerOrNull and toIntegerList.
//
// Every function implements ScalarFunction and is a stateless value, safe to
// call from any number of goroutines at once. Functions never log and never
// retry; a failing call returns a *FunctionError built at the point of
// detection and the evaluator decides what to do with it.
//
// # Strict vs OrNull
//
// toInteger and toIntegerOrNull share one coercion table. They only differ
// for values that are not NULL, INTEGER, FLOAT, BOOLEAN or STRING:
//
//	toInteger([1])       // error: toInteger: invalid argument at index 0
//	toIntegerOrNull([1]) // null
//
// Both still fail on a wrong argument count and on float overflow.
//
// Example:
//
//	reg := functions.DefaultRegistry()
//	call := ast.NewFunctionCall("toInteger")
//	v, err := reg.Invoke(ctx, functions.NewEvaluationContext(), call,
//		[]value.Value{value.NewFloat(-1.5)})
//	// v == INTEGER -2
//
// ELI12:
//
// toInteger is a strict cashier: hand over a bus ticket instead of money and
// you get turned away. toIntegerOrNull is a relaxed cashier: it rings up
// "nothing" (null) and moves on. Both still refuse if you hand over two
// things at once, or a number too big to fit in the till.
package functions

import (
	"context"

	"github.com/orneryd/cypherfn/pkg/ast"
	"github.com/orneryd/cypherfn/pkg/value"
)

// EvaluationContext carries per-query evaluator state (parameters, the
// query start time) into function calls. The integer coercion functions
// accept it without reading it.
type EvaluationContext struct {
	Parameters map[string]value.Value
}

// NewEvaluationContext returns an empty context.
func NewEvaluationContext() *EvaluationContext {
	return &EvaluationContext{Parameters: map[string]value.Value{}}
}

// ScalarFunction is a builtin taking already-evaluated arguments and
// returning one value.
//
// expr is the call site; implementations read expr.Name to label errors.
// args are owned by the callee for the duration of the call.
type ScalarFunction interface {
	Call(ctx context.Context, evalCtx *EvaluationContext, expr *ast.FunctionCall, args []value.Value) (value.Value, error)
}

// ScalarFunctionFunc adapts a plain function to ScalarFunction.
type ScalarFunctionFunc func(ctx context.Context, evalCtx *EvaluationContext, expr *ast.FunctionCall, args []value.Value) (value.Value, error)

// Call implements ScalarFunction.
func (f ScalarFunctionFunc) Call(ctx context.Context, evalCtx *EvaluationContext, expr *ast.FunctionCall, args []value.Value) (value.Value, error) {
	return f(ctx, evalCtx, expr, args)
}

// callName returns the display name for error labels.
func callName(expr *ast.FunctionCall, fallback string) string {
	if expr == nil || expr.Name == "" {
		return fallback
	}
	return expr.Name
}
