// Package value provides the dynamic value model used by cypherfn functions.
//
// A Value is a closed tagged union: exactly one Kind is active and the payload
// is only reachable through the accessor matching that kind. Functions switch
// on Kind() rather than type-asserting arbitrary interface{} values, so adding
// a new kind shows up in every switch that has to handle it.
//
// Supported kinds mirror the Cypher type system subset that scalar functions
// operate on:
//
//   - NULL
//   - INTEGER (int64)
//   - FLOAT (float64, may be NaN or ±Inf)
//   - BOOLEAN
//   - STRING
//   - LIST
//   - MAP
//   - DURATION
//
// Example:
//
//	v := value.NewFloat(3.9)
//	switch v.Kind() {
//	case value.KindFloat:
//		fmt.Println(v.Float()) // 3.9
//	}
//
// ELI12:
//
// Think of a Value like a labelled box. The label says what is inside
// ("number", "text", "list"...) and you are only allowed to take out the
// thing the label promises. The zero box has the label "nothing" (NULL).
package value

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Kind identifies which variant of Value is active.
type Kind int

const (
	KindNull Kind = iota
	KindInteger
	KindFloat
	KindBool
	KindString
	KindList
	KindMap
	KindDuration
)

// String returns the Cypher type name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "NULL"
	case KindInteger:
		return "INTEGER"
	case KindFloat:
		return "FLOAT"
	case KindBool:
		return "BOOLEAN"
	case KindString:
		return "STRING"
	case KindList:
		return "LIST"
	case KindMap:
		return "MAP"
	case KindDuration:
		return "DURATION"
	}
	return "UNKNOWN"
}

// Value is a dynamically typed Cypher value.
//
// The zero Value is NULL. Values are immutable once constructed; List and Map
// payloads must not be modified by callers after construction.
type Value struct {
	kind Kind
	data any
}

// NewNull returns the NULL value.
func NewNull() Value { return Value{} }

// NewInteger returns an INTEGER value.
func NewInteger(i int64) Value { return Value{kind: KindInteger, data: i} }

// NewFloat returns a FLOAT value. NaN and ±Inf are accepted.
func NewFloat(f float64) Value { return Value{kind: KindFloat, data: f} }

// NewBool returns a BOOLEAN value.
func NewBool(b bool) Value { return Value{kind: KindBool, data: b} }

// NewString returns a STRING value.
func NewString(s string) Value { return Value{kind: KindString, data: s} }

// NewList returns a LIST value. A nil slice produces an empty list.
func NewList(items []Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindList, data: items}
}

// NewMap returns a MAP value. A nil map produces an empty map.
func NewMap(entries map[string]Value) Value {
	if entries == nil {
		entries = map[string]Value{}
	}
	return Value{kind: KindMap, data: entries}
}

// NewDuration returns a DURATION value.
func NewDuration(d time.Duration) Value { return Value{kind: KindDuration, data: d} }

// Kind reports the active variant.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is NULL.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Integer returns the INTEGER payload, or 0 for other kinds.
func (v Value) Integer() int64 {
	i, _ := v.data.(int64)
	return i
}

// Float returns the FLOAT payload, or 0 for other kinds.
func (v Value) Float() float64 {
	f, _ := v.data.(float64)
	return f
}

// Bool returns the BOOLEAN payload, or false for other kinds.
func (v Value) Bool() bool {
	b, _ := v.data.(bool)
	return b
}

// Str returns the STRING payload, or "" for other kinds.
func (v Value) Str() string {
	s, _ := v.data.(string)
	return s
}

// List returns the LIST payload, or nil for other kinds.
func (v Value) List() []Value {
	l, _ := v.data.([]Value)
	return l
}

// Map returns the MAP payload, or nil for other kinds.
func (v Value) Map() map[string]Value {
	m, _ := v.data.(map[string]Value)
	return m
}

// Duration returns the DURATION payload, or 0 for other kinds.
func (v Value) Duration() time.Duration {
	d, _ := v.data.(time.Duration)
	return d
}

// Representable reports whether a FLOAT holds a standard double, that is
// neither NaN nor an infinity. Non-FLOAT values are never representable.
func (v Value) Representable() bool {
	if v.kind != KindFloat {
		return false
	}
	f := v.Float()
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Equal reports whether a and b have the same kind and the same payload.
//
// No numeric widening happens: INTEGER 1 and FLOAT 1.0 are not Equal.
// NaN is never equal to anything, including itself.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindInteger:
		return a.Integer() == b.Integer()
	case KindFloat:
		return a.Float() == b.Float()
	case KindBool:
		return a.Bool() == b.Bool()
	case KindString:
		return a.Str() == b.Str()
	case KindList:
		la, lb := a.List(), b.List()
		if len(la) != len(lb) {
			return false
		}
		for i := range la {
			if !Equal(la[i], lb[i]) {
				return false
			}
		}
		return true
	case KindMap:
		ma, mb := a.Map(), b.Map()
		if len(ma) != len(mb) {
			return false
		}
		for k, va := range ma {
			vb, ok := mb[k]
			if !ok || !Equal(va, vb) {
				return false
			}
		}
		return true
	case KindDuration:
		return a.Duration() == b.Duration()
	}
	return false
}

// String renders v the way a Cypher shell prints results.
//
//	NewInteger(42).String()            // 42
//	NewFloat(2).String()               // 2.0
//	NewString("hi").String()           // "hi"
//	NewList(...).String()              // [1, "a", null]
//	NewDuration(90*time.Second).String() // PT1M30S
func (v Value) String() string {
	var sb strings.Builder
	v.writeTo(&sb)
	return sb.String()
}

func (v Value) writeTo(sb *strings.Builder) {
	switch v.kind {
	case KindNull:
		sb.WriteString("null")
	case KindInteger:
		sb.WriteString(strconv.FormatInt(v.Integer(), 10))
	case KindFloat:
		sb.WriteString(formatFloat(v.Float()))
	case KindBool:
		sb.WriteString(strconv.FormatBool(v.Bool()))
	case KindString:
		sb.WriteString(strconv.Quote(v.Str()))
	case KindList:
		sb.WriteByte('[')
		for i, item := range v.List() {
			if i > 0 {
				sb.WriteString(", ")
			}
			item.writeTo(sb)
		}
		sb.WriteByte(']')
	case KindMap:
		m := v.Map()
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeKey(sb, k)
			sb.WriteString(": ")
			m[k].writeTo(sb)
		}
		sb.WriteByte('}')
	case KindDuration:
		sb.WriteString(formatDuration(v.Duration()))
	}
}

// writeKey writes k bare when it is an identifier and backtick-quoted
// otherwise, doubling any backtick inside.
func writeKey(sb *strings.Builder, k string) {
	if isIdentifier(k) {
		sb.WriteString(k)
		return
	}
	sb.WriteByte('`')
	sb.WriteString(strings.ReplaceAll(k, "`", "``"))
	sb.WriteByte('`')
}

func isIdentifier(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentPart(s[i]) {
			return false
		}
	}
	return true
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// formatDuration renders d as an ISO-8601 duration limited to days and below.
func formatDuration(d time.Duration) string {
	if d == 0 {
		return "PT0S"
	}
	var sb strings.Builder
	// uint64 holds the magnitude of math.MinInt64, which -d cannot.
	n := uint64(d)
	if d < 0 {
		sb.WriteByte('-')
		n = uint64(-(d + 1)) + 1
	}
	const (
		second = uint64(time.Second)
		minute = uint64(time.Minute)
		hour   = uint64(time.Hour)
		day    = 24 * hour
	)
	sb.WriteByte('P')
	if days := n / day; days > 0 {
		sb.WriteString(strconv.FormatUint(days, 10))
		sb.WriteByte('D')
	}
	n %= day
	if n == 0 {
		return sb.String()
	}
	sb.WriteByte('T')
	if hours := n / hour; hours > 0 {
		sb.WriteString(strconv.FormatUint(hours, 10))
		sb.WriteByte('H')
	}
	n %= hour
	if minutes := n / minute; minutes > 0 {
		sb.WriteString(strconv.FormatUint(minutes, 10))
		sb.WriteByte('M')
	}
	n %= minute
	if n > 0 {
		sb.WriteString(strconv.FormatUint(n/second, 10))
		if frac := n % second; frac > 0 {
			sb.WriteByte('.')
			digits := strconv.FormatUint(frac, 10)
			digits = strings.Repeat("0", 9-len(digits)) + digits
			sb.WriteString(strings.TrimRight(digits, "0"))
		}
		sb.WriteByte('S')
	}
	return sb.String()
}
