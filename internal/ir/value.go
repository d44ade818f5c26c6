package ir

import (
	"fmt"
	"slices"
	"strconv"
	"time"
	"unicode/utf16"
)

// Kind identifies the variant of a Value.
type Kind string

const (
	KindString    Kind = "string"
	KindInt       Kind = "int"
	KindFloat     Kind = "float"
	KindBool      Kind = "bool"
	KindDate      Kind = "date"
	KindTimestamp Kind = "timestamp"
)

// ParseKind maps a kind name to its Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindString, KindInt, KindFloat, KindBool, KindDate, KindTimestamp:
		return k, nil
	}
	return "", fmt.Errorf("unknown value kind %q", s)
}

// Ordered reports whether values of kind k support GT/LT/GE/LE.
func (k Kind) Ordered() bool {
	return k != KindBool
}

// Value is a sealed interface over the typed values the query engine
// compares. A nil Value stands for null wherever a field may be absent.
type Value interface {
	Kind() Kind
	value() // Sealed
}

// String is a text value.
type String string

func (String) Kind() Kind { return KindString }
func (String) value()     {}

// Int is a 64-bit signed integer value.
type Int int64

func (Int) Kind() Kind { return KindInt }
func (Int) value()     {}

// Float is a 64-bit floating point value.
type Float float64

func (Float) Kind() Kind { return KindFloat }
func (Float) value()     {}

// Bool is a boolean value.
type Bool bool

func (Bool) Kind() Kind { return KindBool }
func (Bool) value()     {}

// Date is a calendar date without a time component.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func (Date) Kind() Kind { return KindDate }
func (Date) value()     {}

// NewDate builds a Date from a time, dropping the clock part.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string {
	return d.Time().Format(DateLayout)
}

// Timestamp is a point in time read from storage. Literal coercion
// never produces one; it exists so timestamp columns can be compared
// against Date literals.
type Timestamp struct {
	Time time.Time
}

func (Timestamp) Kind() Kind { return KindTimestamp }
func (Timestamp) value()     {}

func (t Timestamp) String() string {
	return t.Time.UTC().Format(TimestampLayout)
}

const (
	DateLayout      = "2006-01-02"
	TimestampLayout = time.RFC3339Nano
)

// Format renders v the way it appears inside entity identifiers and
// text output. Null renders as "null".
func Format(v Value) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case String:
		return string(val)
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Float:
		return strconv.FormatFloat(float64(val), 'f', -1, 64)
	case Bool:
		return strconv.FormatBool(bool(val))
	case Date:
		return val.String()
	case Timestamp:
		return val.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// SortedKeys returns the keys of m in RFC 8785 order (UTF-16 code units).
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings by UTF-16 code units. Go's native
// string order is by UTF-8 bytes, which differs above the BMP.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	for i := 0; i < min(len(a16), len(b16)); i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}
