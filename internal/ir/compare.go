package ir

import (
	"cmp"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrIncomparable is returned by Compare when two values have no
// defined ordering relative to each other.
var ErrIncomparable = errors.New("values are not comparable")

// Compare orders a against b, returning -1, 0 or 1.
//
// Int and Float compare numerically with each other. Date and Timestamp
// compare on the time line, a Date standing for midnight UTC. Bool
// orders false before true. Any other mix of kinds, or a nil operand,
// fails with ErrIncomparable.
func Compare(a, b Value) (int, error) {
	if a == nil || b == nil {
		return 0, ErrIncomparable
	}

	switch x := a.(type) {
	case String:
		if y, ok := b.(String); ok {
			return strings.Compare(string(x), string(y)), nil
		}
	case Int:
		switch y := b.(type) {
		case Int:
			return cmp.Compare(x, y), nil
		case Float:
			return cmp.Compare(float64(x), float64(y)), nil
		}
	case Float:
		switch y := b.(type) {
		case Float:
			return cmp.Compare(x, y), nil
		case Int:
			return cmp.Compare(float64(x), float64(y)), nil
		}
	case Bool:
		if y, ok := b.(Bool); ok {
			return compareBool(bool(x), bool(y)), nil
		}
	case Date, Timestamp:
		if ta, ok := instant(a); ok {
			if tb, ok := instant(b); ok {
				return ta.Compare(tb), nil
			}
		}
	}
	return 0, fmt.Errorf("%w: %s and %s", ErrIncomparable, a.Kind(), b.Kind())
}

// Equal reports whether a and b compare equal. Incomparable values are
// never equal.
func Equal(a, b Value) bool {
	c, err := Compare(a, b)
	return err == nil && c == 0
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}

func instant(v Value) (time.Time, bool) {
	switch t := v.(type) {
	case Date:
		return t.Time(), true
	case Timestamp:
		return t.Time, true
	}
	return time.Time{}, false
}
