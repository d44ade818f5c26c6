package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/shopfloor/internal/ir"
	"github.com/roach88/shopfloor/internal/predicate"
	"github.com/roach88/shopfloor/internal/query"
	"github.com/roach88/shopfloor/internal/querysql"
	"github.com/roach88/shopfloor/internal/store"
)

var (
	// ErrPropertyNotFound means a single-property read named a property
	// the entity set does not declare.
	ErrPropertyNotFound = errors.New("property not found")

	// ErrInvalidExpand means the requested expand depth was negative.
	ErrInvalidExpand = errors.New("invalid expand depth")
)

// Class says who is at fault for a failed request.
type Class string

const (
	// ClassClient covers malformed or unsupported requests.
	ClassClient Class = "client"

	// ClassNotFound covers well-formed requests that address nothing.
	ClassNotFound Class = "not_found"

	// ClassInternal covers everything else.
	ClassInternal Class = "internal"
)

// ErrorCode is the stable, machine-readable name of a failure.
type ErrorCode string

const (
	ErrCodeInvalidLiteral             ErrorCode = "INVALID_LITERAL"
	ErrCodeUnsupportedLiteralType     ErrorCode = "UNSUPPORTED_LITERAL_TYPE"
	ErrCodeUnsupportedExpressionShape ErrorCode = "UNSUPPORTED_EXPRESSION_SHAPE"
	ErrCodeUnsupportedComparison      ErrorCode = "UNSUPPORTED_COMPARISON"
	ErrCodeUnsupportedMethod          ErrorCode = "UNSUPPORTED_METHOD"
	ErrCodeEmptyKeySet                ErrorCode = "EMPTY_KEY_SET"
	ErrCodeInvalidLimit               ErrorCode = "INVALID_LIMIT"
	ErrCodeInvalidOffset              ErrorCode = "INVALID_OFFSET"
	ErrCodeUnsupportedSearch          ErrorCode = "UNSUPPORTED_SEARCH"
	ErrCodeInvalidExpand              ErrorCode = "INVALID_EXPAND"
	ErrCodeUnknownField               ErrorCode = "UNKNOWN_FIELD"
	ErrCodeUnknownEntitySet           ErrorCode = "UNKNOWN_ENTITY_SET"
	ErrCodeUnknownNavigation          ErrorCode = "UNKNOWN_NAVIGATION"
	ErrCodeEntityNotFound             ErrorCode = "ENTITY_NOT_FOUND"
	ErrCodePropertyNotFound           ErrorCode = "PROPERTY_NOT_FOUND"
	ErrCodeInvalidValue               ErrorCode = "INVALID_VALUE"
	ErrCodeKeyImmutable               ErrorCode = "KEY_IMMUTABLE"
	ErrCodeDuplicateKey               ErrorCode = "DUPLICATE_KEY"
	ErrCodeCancelled                  ErrorCode = "CANCELLED"
	ErrCodeInternal                   ErrorCode = "INTERNAL"
)

// classification maps each sentinel to its code and class. Order
// matters only if one error wraps several sentinels; the first match
// wins.
var classification = []struct {
	err   error
	code  ErrorCode
	class Class
}{
	{ir.ErrInvalidLiteral, ErrCodeInvalidLiteral, ClassClient},
	{ir.ErrUnsupportedLiteralType, ErrCodeUnsupportedLiteralType, ClassClient},
	{predicate.ErrUnsupportedExpressionShape, ErrCodeUnsupportedExpressionShape, ClassClient},
	{predicate.ErrUnsupportedComparison, ErrCodeUnsupportedComparison, ClassClient},
	{predicate.ErrUnsupportedMethod, ErrCodeUnsupportedMethod, ClassClient},
	{predicate.ErrEmptyKeySet, ErrCodeEmptyKeySet, ClassClient},
	{query.ErrInvalidLimit, ErrCodeInvalidLimit, ClassClient},
	{query.ErrInvalidOffset, ErrCodeInvalidOffset, ClassClient},
	{query.ErrUnsupportedSearch, ErrCodeUnsupportedSearch, ClassClient},
	{ErrInvalidExpand, ErrCodeInvalidExpand, ClassClient},
	{querysql.ErrUnknownField, ErrCodeUnknownField, ClassClient},
	{store.ErrUnknownEntitySet, ErrCodeUnknownEntitySet, ClassClient},
	{store.ErrUnknownNavigation, ErrCodeUnknownNavigation, ClassClient},
	{store.ErrInvalidValue, ErrCodeInvalidValue, ClassClient},
	{store.ErrKeyImmutable, ErrCodeKeyImmutable, ClassClient},
	{store.ErrDuplicateKey, ErrCodeDuplicateKey, ClassClient},
	{store.ErrEntityNotFound, ErrCodeEntityNotFound, ClassNotFound},
	{ErrPropertyNotFound, ErrCodePropertyNotFound, ClassNotFound},
	{context.Canceled, ErrCodeCancelled, ClassInternal},
	{context.DeadlineExceeded, ErrCodeCancelled, ClassInternal},
}

// RequestError is what every failed engine call returns.
//
// RequestError includes structured fields for diagnostics. The wrapped
// error stays reachable, so errors.Is(err, store.ErrEntityNotFound)
// works on a RequestError.
type RequestError struct {
	// Code identifies the failure.
	Code ErrorCode

	// Class says who is at fault.
	Class Class

	// Message is a human-readable description.
	Message string

	// RequestID identifies the failed request.
	RequestID string

	// Details contains additional context, such as the offending
	// expression or literal.
	Details map[string]string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("%s: %s (request=%s)", e.Code, e.Message, e.RequestID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Classify returns the code and class of err. A RequestError reports
// its own fields; anything else is matched against the known sentinels
// and falls back to ErrCodeInternal.
func Classify(err error) (ErrorCode, Class) {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Code, re.Class
	}
	for _, c := range classification {
		if errors.Is(err, c.err) {
			return c.code, c.class
		}
	}
	return ErrCodeInternal, ClassInternal
}

// NewRequestError classifies err and wraps it for requestID. A nil err
// yields nil.
func NewRequestError(requestID string, err error) *RequestError {
	if err == nil {
		return nil
	}
	var re *RequestError
	if errors.As(err, &re) {
		return re
	}
	code, class := Classify(err)
	return &RequestError{
		Code:      code,
		Class:     class,
		Message:   err.Error(),
		RequestID: requestID,
		Details:   details(err),
		Err:       err,
	}
}

func details(err error) map[string]string {
	d := make(map[string]string)
	var ce *predicate.CompileError
	if errors.As(err, &ce) && ce.Expr != "" {
		d["expression"] = ce.Expr
	}
	var le *ir.LiteralError
	if errors.As(err, &le) {
		d["literal"] = le.Text
	}
	if len(d) == 0 {
		return nil
	}
	return d
}

// IsClientError returns true if err was caused by the request itself.
// Uses errors.As to handle wrapped errors.
func IsClientError(err error) bool {
	_, class := Classify(err)
	return err != nil && class == ClassClient
}

// IsNotFound returns true if err means the request addressed nothing.
func IsNotFound(err error) bool {
	_, class := Classify(err)
	return err != nil && class == ClassNotFound
}
