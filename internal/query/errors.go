package query

import "errors"

var (
	// ErrInvalidLimit means a limit was not positive.
	ErrInvalidLimit = errors.New("invalid limit")

	// ErrInvalidOffset means an offset was negative.
	ErrInvalidOffset = errors.New("invalid offset")

	// ErrUnsupportedSearch means a free-text search term was supplied.
	// Search has no defined semantics and is refused outright.
	ErrUnsupportedSearch = errors.New("search is not supported")
)
