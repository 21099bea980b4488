package services

import (
	"errors"
	"fmt"
)

// ErrValidation wraps all request-shape failures so handlers can map them
// to a 400 uniformly.
var ErrValidation = errors.New("validation failed")

func validationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// QuantityConflictError is raised when an edit's submitted quantity disagrees
// with the count computed from cumulative deaths. It is surfaced to the
// caller as a choice rather than silently resolved; resubmitting with a
// QuantityResolution settles it.
type QuantityConflictError struct {
	BatchID  string `json:"batchId"`
	Given    int    `json:"givenQuantity"`
	Expected int    `json:"expectedQuantity"`
}

func (e *QuantityConflictError) Error() string {
	return fmt.Sprintf("batch %s: submitted quantity %d disagrees with computed quantity %d",
		e.BatchID, e.Given, e.Expected)
}
