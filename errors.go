package pixsort

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInputShape reports channel arrays whose lengths disagree with
	// the offset array, or a channel count that does not match the supplied
	// arrays. No sorting work is done when it is returned.
	ErrInvalidInputShape = errors.New("pixsort: invalid input shape")

	// ErrNaNValue is returned under NaNReject when a channel holds a NaN.
	ErrNaNValue = errors.New("pixsort: NaN value")
)

func shapeError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInputShape, fmt.Sprintf(format, args...))
}
