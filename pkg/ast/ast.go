// Package ast holds the expression nodes that scalar functions receive.
//
// Functions only read FunctionCall.Name (to label errors with the name the
// query author typed), so the node is deliberately small. ParseFunctionCall
// builds one from source text such as "toInteger('42')", splitting the
// argument list at top-level commas.
package ast

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCall is returned when source text is not a single function call.
var ErrInvalidCall = errors.New("ast: invalid function call")

// FunctionCall represents a function call expression.
type FunctionCall struct {
	Name      string   // Name as written in the query (case preserved)
	Arguments []string // Raw argument expressions, trimmed
	RawText   string   // Original text of the call
	StartPos  int      // Position in original query
}

// NewFunctionCall returns a call node with the given name and no source text.
func NewFunctionCall(name string) *FunctionCall {
	return &FunctionCall{Name: name, RawText: name + "()"}
}

// String returns the call's raw text.
func (f *FunctionCall) String() string {
	if f == nil {
		return ""
	}
	return f.RawText
}

// ParseFunctionCall parses "name(arg, arg, ...)".
//
// Quotes, backticks and nested brackets are respected when splitting
// arguments, so "f('a,b', [1, 2])" has two arguments. Argument text is not
// evaluated.
//
// Example:
//
//	call, err := ast.ParseFunctionCall("toIntegerOrNull( '3.9' )")
//	// call.Name == "toIntegerOrNull", call.Arguments == []string{"'3.9'"}
func ParseFunctionCall(src string) (*FunctionCall, error) {
	text := strings.TrimSpace(src)
	start := strings.Index(src, text)

	open := strings.IndexByte(text, '(')
	if open <= 0 || !strings.HasSuffix(text, ")") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCall, src)
	}
	name := strings.TrimSpace(text[:open])
	if !isIdentifier(name) {
		return nil, fmt.Errorf("%w: bad function name %q", ErrInvalidCall, name)
	}

	args, closeAt, err := splitArguments(text, open+1)
	if err != nil {
		return nil, err
	}
	if closeAt != len(text)-1 {
		return nil, fmt.Errorf("%w: trailing input after %q", ErrInvalidCall, text[:closeAt+1])
	}

	return &FunctionCall{
		Name:      name,
		Arguments: args,
		RawText:   text,
		StartPos:  start,
	}, nil
}

// splitArguments scans from pos (just after '(') to the matching ')'.
// It returns the trimmed arguments and the index of the closing paren.
func splitArguments(text string, pos int) ([]string, int, error) {
	var (
		args  []string
		depth int
		quote byte
		from  = pos
	)
	for i := pos; i < len(text); i++ {
		c := text[i]
		if quote != 0 {
			switch {
			case c == '\\' && quote != '`':
				i++
			case c == quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
		case '(', '[', '{':
			depth++
		case ']', '}':
			depth--
		case ')':
			if depth == 0 {
				last := strings.TrimSpace(text[from:i])
				if last != "" {
					args = append(args, last)
				} else if len(args) > 0 {
					return nil, 0, fmt.Errorf("%w: empty argument", ErrInvalidCall)
				}
				return args, i, nil
			}
			depth--
		case ',':
			if depth == 0 {
				arg := strings.TrimSpace(text[from:i])
				if arg == "" {
					return nil, 0, fmt.Errorf("%w: empty argument", ErrInvalidCall)
				}
				args = append(args, arg)
				from = i + 1
			}
		}
	}
	return nil, 0, fmt.Errorf("%w: unbalanced parentheses", ErrInvalidCall)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '.':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
