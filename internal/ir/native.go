package ir

import (
	"fmt"
	"time"
)

// StorageTimestampLayout is the fixed-width UTC form timestamps take in
// storage. Fixed width keeps lexical order equal to chronological order.
const StorageTimestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Native converts v to the Go value bound as a SQL parameter. Dates and
// timestamps become ISO-8601 text.
func Native(v Value) any {
	switch val := v.(type) {
	case nil:
		return nil
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case Bool:
		return bool(val)
	case Date:
		return val.String()
	case Timestamp:
		return val.Time.UTC().Format(StorageTimestampLayout)
	default:
		panic(fmt.Sprintf("ir.Native: unhandled value %T", v))
	}
}

// FromNative converts a scanned SQL value into a Value of the declared
// kind. A nil raw value yields a nil Value (null).
func FromNative(raw any, kind Kind) (Value, error) {
	if raw == nil {
		return nil, nil
	}
	if b, ok := raw.([]byte); ok {
		raw = string(b)
	}

	switch kind {
	case KindString:
		if s, ok := raw.(string); ok {
			return String(s), nil
		}
	case KindInt:
		if n, ok := raw.(int64); ok {
			return Int(n), nil
		}
	case KindFloat:
		switch n := raw.(type) {
		case float64:
			return Float(n), nil
		case int64:
			return Float(float64(n)), nil
		}
	case KindBool:
		switch b := raw.(type) {
		case bool:
			return Bool(b), nil
		case int64:
			return Bool(b != 0), nil
		}
	case KindDate:
		switch t := raw.(type) {
		case time.Time:
			return NewDate(t), nil
		case string:
			parsed, err := time.Parse(DateLayout, t)
			if err != nil {
				return nil, fmt.Errorf("date column: %w", err)
			}
			return NewDate(parsed), nil
		}
	case KindTimestamp:
		switch t := raw.(type) {
		case time.Time:
			return Timestamp{Time: t.UTC()}, nil
		case string:
			parsed, err := parseTimestamp(t)
			if err != nil {
				return nil, err
			}
			return Timestamp{Time: parsed}, nil
		}
	default:
		return nil, fmt.Errorf("unknown value kind %q", kind)
	}
	return nil, fmt.Errorf("cannot read %T as %s", raw, kind)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("timestamp column: unrecognized format %q", s)
}
