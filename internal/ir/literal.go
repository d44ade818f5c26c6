package ir

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidLiteral means the literal has a recognized shape but its
	// value cannot be represented (integer overflow, impossible date).
	ErrInvalidLiteral = errors.New("invalid literal value")

	// ErrUnsupportedLiteralType means the literal matches no recognized shape.
	ErrUnsupportedLiteralType = errors.New("unsupported literal type")
)

// LiteralError reports a literal that could not be coerced.
type LiteralError struct {
	Text string
	Err  error
}

func (e *LiteralError) Error() string {
	return fmt.Sprintf("%v: %q", e.Err, e.Text)
}

func (e *LiteralError) Unwrap() error {
	return e.Err
}

var (
	integerPattern = regexp.MustCompile(`^-?\d+$`)
	decimalPattern = regexp.MustCompile(`^-?\d+\.\d+$`)
	datePattern    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Coerce converts raw literal text into a typed Value. The first
// matching shape wins:
//
//  1. 'quoted' text becomes a String with one layer of quotes removed
//  2. -?digits becomes an Int
//  3. -?digits.digits becomes a Float
//  4. true/false, any case, becomes a Bool
//  5. YYYY-MM-DD becomes a Date
//
// negate flips the sign of numbers and the truth of booleans. It is
// ignored for strings and dates.
func Coerce(text string, negate bool) (Value, error) {
	switch {
	case isQuoted(text):
		return String(text[1 : len(text)-1]), nil

	case integerPattern.MatchString(text):
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, &LiteralError{Text: text, Err: ErrInvalidLiteral}
		}
		if negate {
			if n == minInt64 {
				return nil, &LiteralError{Text: text, Err: ErrInvalidLiteral}
			}
			n = -n
		}
		return Int(n), nil

	case decimalPattern.MatchString(text):
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, &LiteralError{Text: text, Err: ErrInvalidLiteral}
		}
		if negate {
			f = -f
		}
		return Float(f), nil

	case strings.EqualFold(text, "true"), strings.EqualFold(text, "false"):
		b := strings.EqualFold(text, "true")
		if negate {
			b = !b
		}
		return Bool(b), nil

	case datePattern.MatchString(text):
		t, err := time.Parse(DateLayout, text)
		if err != nil {
			return nil, &LiteralError{Text: text, Err: ErrInvalidLiteral}
		}
		return NewDate(t), nil
	}

	return nil, &LiteralError{Text: text, Err: ErrUnsupportedLiteralType}
}

const minInt64 = -1 << 63

func isQuoted(text string) bool {
	return len(text) >= 2 && text[0] == '\'' && text[len(text)-1] == '\''
}
