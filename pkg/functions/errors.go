package functions

import (
	"errors"
	"fmt"
)

// Sentinel errors. Every *FunctionError unwraps to exactly one of the first
// three, so callers can test the failure kind with errors.Is.
var (
	ErrInvalidArgumentCount = errors.New("invalid argument count")
	ErrOverflow             = errors.New("overflow")
	ErrInvalidArgument      = errors.New("invalid argument")

	ErrUnknownFunction  = errors.New("functions: unknown function")
	ErrFunctionDisabled = errors.New("functions: function disabled")
	ErrAlreadyExists    = errors.New("functions: function already registered")
)

// ErrorKind classifies a FunctionError.
type ErrorKind int

const (
	InvalidArgumentCount ErrorKind = iota + 1
	Overflow
	InvalidArgument
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidArgumentCount:
		return "invalid argument count"
	case Overflow:
		return "overflow"
	case InvalidArgument:
		return "invalid argument"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// FunctionError is returned by a scalar function that rejects its input.
//
// FunctionName is the name as it appeared at the call site, not the
// registry's canonical name, so "TOINTEGER([1])" reports "TOINTEGER".
// Index is only meaningful for InvalidArgument.
//
// Example:
//
//	_, err := functions.ToInteger{}.Call(ctx, nil, call, args)
//	var fe *functions.FunctionError
//	if errors.As(err, &fe) && fe.Kind == functions.InvalidArgument {
//		fmt.Println("bad argument at", fe.Index)
//	}
//	if errors.Is(err, functions.ErrOverflow) {
//		// ...
//	}
type FunctionError struct {
	FunctionName string
	Kind         ErrorKind
	Index        int
}

func invalidArgumentCount(name string) *FunctionError {
	return &FunctionError{FunctionName: name, Kind: InvalidArgumentCount}
}

func overflow(name string) *FunctionError {
	return &FunctionError{FunctionName: name, Kind: Overflow}
}

func invalidArgument(name string, index int) *FunctionError {
	return &FunctionError{FunctionName: name, Kind: InvalidArgument, Index: index}
}

// Error implements the error interface.
func (e *FunctionError) Error() string {
	if e.Kind == InvalidArgument {
		return fmt.Sprintf("%s: invalid argument at index %d", e.FunctionName, e.Index)
	}
	return fmt.Sprintf("%s: %s", e.FunctionName, e.Kind)
}

// Unwrap returns the sentinel matching Kind.
func (e *FunctionError) Unwrap() error {
	switch e.Kind {
	case InvalidArgumentCount:
		return ErrInvalidArgumentCount
	case Overflow:
		return ErrOverflow
	case InvalidArgument:
		return ErrInvalidArgument
	}
	return nil
}
