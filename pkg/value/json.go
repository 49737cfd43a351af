package value

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// encodedValue is the JSON form of a Value. The type tag keeps INTEGER and
// FLOAT apart after a round trip, which plain JSON numbers cannot do.
//
//	{"type":"INTEGER","value":42}
//	{"type":"FLOAT","value":"3.5"}
//	{"type":"LIST","value":[{"type":"NULL"}]}
type encodedValue struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`
}

// MarshalJSON implements json.Marshaler.
// Floats are written as strings so NaN and ±Inf survive.
func (v Value) MarshalJSON() ([]byte, error) {
	enc := encodedValue{Type: v.kind.String()}
	var (
		payload any
		err     error
	)
	switch v.kind {
	case KindNull:
		return json.Marshal(enc)
	case KindInteger:
		payload = v.Integer()
	case KindFloat:
		payload = strconv.FormatFloat(v.Float(), 'g', -1, 64)
	case KindBool:
		payload = v.Bool()
	case KindString:
		payload = v.Str()
	case KindList:
		payload = v.List()
	case KindMap:
		payload = v.Map()
	case KindDuration:
		payload = int64(v.Duration())
	default:
		return nil, fmt.Errorf("value: cannot marshal kind %d", v.kind)
	}
	if enc.Value, err = json.Marshal(payload); err != nil {
		return nil, err
	}
	return json.Marshal(enc)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var enc encodedValue
	if err := json.Unmarshal(data, &enc); err != nil {
		return fmt.Errorf("value: decoding envelope: %w", err)
	}
	switch enc.Type {
	case "NULL":
		*v = NewNull()
	case "INTEGER":
		var i int64
		if err := json.Unmarshal(enc.Value, &i); err != nil {
			return fmt.Errorf("value: decoding INTEGER: %w", err)
		}
		*v = NewInteger(i)
	case "FLOAT":
		var s string
		if err := json.Unmarshal(enc.Value, &s); err != nil {
			return fmt.Errorf("value: decoding FLOAT: %w", err)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil && !isRangeError(err) {
			return fmt.Errorf("value: decoding FLOAT: %w", err)
		}
		*v = NewFloat(f)
	case "BOOLEAN":
		var b bool
		if err := json.Unmarshal(enc.Value, &b); err != nil {
			return fmt.Errorf("value: decoding BOOLEAN: %w", err)
		}
		*v = NewBool(b)
	case "STRING":
		var s string
		if err := json.Unmarshal(enc.Value, &s); err != nil {
			return fmt.Errorf("value: decoding STRING: %w", err)
		}
		*v = NewString(s)
	case "LIST":
		var items []Value
		if err := json.Unmarshal(enc.Value, &items); err != nil {
			return fmt.Errorf("value: decoding LIST: %w", err)
		}
		*v = NewList(items)
	case "MAP":
		var entries map[string]Value
		if err := json.Unmarshal(enc.Value, &entries); err != nil {
			return fmt.Errorf("value: decoding MAP: %w", err)
		}
		*v = NewMap(entries)
	case "DURATION":
		var ns int64
		if err := json.Unmarshal(enc.Value, &ns); err != nil {
			return fmt.Errorf("value: decoding DURATION: %w", err)
		}
		*v = NewDuration(time.Duration(ns))
	default:
		return fmt.Errorf("value: unknown type %q", enc.Type)
	}
	return nil
}

// isRangeError reports a ParseFloat overflow, which still yields ±Inf.
func isRangeError(err error) bool {
	return errors.Is(err, strconv.ErrRange)
}
