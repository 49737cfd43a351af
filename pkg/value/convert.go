package value

import (
	"time"
)

// FromGo converts a native Go value into a Value.
// Returns (value, true) on success, (NULL, false) for unsupported types.
//
// Supported types:
//   - nil → NULL
//   - Value (returned as-is)
//   - int, int8, int16, int32, int64, uint, uint8, uint16, uint32 → INTEGER
//   - uint64 → INTEGER when it fits in int64
//   - float32, float64 → FLOAT
//   - bool → BOOLEAN
//   - string → STRING
//   - time.Duration → DURATION
//   - []any, []Value, []string, []int64, []float64 → LIST
//   - map[string]any, map[string]Value → MAP
//
// Example:
//
//	v, ok := FromGo(int32(7))              // INTEGER 7, true
//	v, ok := FromGo([]any{1, "a", nil})    // LIST [1, "a", null], true
//	v, ok := FromGo(struct{}{})            // NULL, false
//
// ELI12:
//
// Go has lots of different number boxes (int, int32, uint...). Cypher only
// has one whole-number box. FromGo moves whatever you hand it into the right
// Cypher box, and tells you false when there is no box that fits.
func FromGo(v any) (Value, bool) {
	switch val := v.(type) {
	case nil:
		return NewNull(), true
	case Value:
		return val, true
	case int:
		return NewInteger(int64(val)), true
	case int8:
		return NewInteger(int64(val)), true
	case int16:
		return NewInteger(int64(val)), true
	case int32:
		return NewInteger(int64(val)), true
	case int64:
		return NewInteger(val), true
	case uint:
		if uint64(val) > 1<<63-1 {
			return NewNull(), false
		}
		return NewInteger(int64(val)), true
	case uint8:
		return NewInteger(int64(val)), true
	case uint16:
		return NewInteger(int64(val)), true
	case uint32:
		return NewInteger(int64(val)), true
	case uint64:
		if val > 1<<63-1 {
			return NewNull(), false
		}
		return NewInteger(int64(val)), true
	case float32:
		return NewFloat(float64(val)), true
	case float64:
		return NewFloat(val), true
	case bool:
		return NewBool(val), true
	case string:
		return NewString(val), true
	case time.Duration:
		return NewDuration(val), true
	case []Value:
		return NewList(val), true
	case []any:
		items := make([]Value, len(val))
		for i, item := range val {
			converted, ok := FromGo(item)
			if !ok {
				return NewNull(), false
			}
			items[i] = converted
		}
		return NewList(items), true
	case []string:
		items := make([]Value, len(val))
		for i, s := range val {
			items[i] = NewString(s)
		}
		return NewList(items), true
	case []int64:
		items := make([]Value, len(val))
		for i, n := range val {
			items[i] = NewInteger(n)
		}
		return NewList(items), true
	case []float64:
		items := make([]Value, len(val))
		for i, f := range val {
			items[i] = NewFloat(f)
		}
		return NewList(items), true
	case map[string]Value:
		return NewMap(val), true
	case map[string]any:
		entries := make(map[string]Value, len(val))
		for k, item := range val {
			converted, ok := FromGo(item)
			if !ok {
				return NewNull(), false
			}
			entries[k] = converted
		}
		return NewMap(entries), true
	}
	return NewNull(), false
}

// Go converts v back into plain Go values: nil, int64, float64, bool,
// string, time.Duration, []any and map[string]any.
func (v Value) Go() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindInteger:
		return v.Integer()
	case KindFloat:
		return v.Float()
	case KindBool:
		return v.Bool()
	case KindString:
		return v.Str()
	case KindList:
		list := v.List()
		out := make([]any, len(list))
		for i, item := range list {
			out[i] = item.Go()
		}
		return out
	case KindMap:
		m := v.Map()
		out := make(map[string]any, len(m))
		for k, item := range m {
			out[k] = item.Go()
		}
		return out
	case KindDuration:
		return v.Duration()
	}
	return nil
}
