package query

import (
	"fmt"
	"math"
)

const (
	DefaultLimit  = 100
	DefaultOffset = 0
)

// Window is a validated limit/offset pair. The zero Window is not
// valid; start from DefaultWindow.
type Window struct {
	limit  uint32
	offset uint32
}

// DefaultWindow returns {limit: 100, offset: 0}.
func DefaultWindow() Window {
	return Window{limit: DefaultLimit, offset: DefaultOffset}
}

// Limit returns the maximum number of rows.
func (w Window) Limit() uint32 { return w.limit }

// Offset returns the number of rows to skip.
func (w Window) Offset() uint32 { return w.offset }

// WithLimit returns a copy of w with limit n. n must be positive.
//
// Known permissiveness: no upper bound is enforced. Any hard cap on
// page size belongs to the storage layer.
func (w Window) WithLimit(n int64) (Window, error) {
	if n <= 0 || n > math.MaxUint32 {
		return w, fmt.Errorf("%w: %d", ErrInvalidLimit, n)
	}
	w.limit = uint32(n)
	return w, nil
}

// WithOffset returns a copy of w with offset n. n must not be negative.
func (w Window) WithOffset(n int64) (Window, error) {
	if n < 0 || n > math.MaxUint32 {
		return w, fmt.Errorf("%w: %d", ErrInvalidOffset, n)
	}
	w.offset = uint32(n)
	return w, nil
}

// NewWindow applies optional top/skip values to the default window.
func NewWindow(top, skip *int64) (Window, error) {
	return DefaultWindow().Apply(top, skip)
}

// Apply returns a copy of w with the non-nil top/skip values applied.
func (w Window) Apply(top, skip *int64) (Window, error) {
	var err error
	if top != nil {
		if w, err = w.WithLimit(*top); err != nil {
			return w, err
		}
	}
	if skip != nil {
		if w, err = w.WithOffset(*skip); err != nil {
			return w, err
		}
	}
	return w, nil
}

func (w Window) String() string {
	return fmt.Sprintf("{limit:%d offset:%d}", w.limit, w.offset)
}
