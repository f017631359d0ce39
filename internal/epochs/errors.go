package epochs

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCondition matches every *MissingConditionError.
	ErrMissingCondition = errors.New("missing condition")
	// ErrIncompatibleMerge matches every *IncompatibleMergeError.
	ErrIncompatibleMerge = errors.New("incompatible merge")
	// ErrInvalidTrials is returned by New when trial data does not fit the layout.
	ErrInvalidTrials = errors.New("invalid trials")
)

// MissingConditionError reports a tag that is absent from a store's vocabulary.
type MissingConditionError struct {
	Condition Condition
}

func (e *MissingConditionError) Error() string {
	return fmt.Sprintf("condition %q not in vocabulary", e.Condition)
}

func (e *MissingConditionError) Is(target error) bool {
	return target == ErrMissingCondition
}

// IncompatibleMergeError reports two stores that cannot be concatenated.
type IncompatibleMergeError struct {
	Reason string
}

func (e *IncompatibleMergeError) Error() string {
	return "cannot concatenate epochs: " + e.Reason
}

func (e *IncompatibleMergeError) Is(target error) bool {
	return target == ErrIncompatibleMerge
}
