package spectral

import (
	"errors"
	"fmt"
)

// ErrInsufficientData matches every *InsufficientDataError.
var ErrInsufficientData = errors.New("insufficient data")

// InsufficientDataError reports a slice whose power cannot be computed.
type InsufficientDataError struct {
	Slice  int
	Label  string
	Reason string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("slice %d (%s): %s", e.Slice, e.Label, e.Reason)
}

func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}
