package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidCycleCount is returned when a run asks for fewer than one cycle.
var ErrInvalidCycleCount = errors.New("cycle count must be at least 1")

// InvalidScheduleError reports an unusable vendor schedule entry
type InvalidScheduleError struct {
	ProductID string
	Field     string
	Value     string
	Reason    string
}

func (e *InvalidScheduleError) Error() string {
	if e.ProductID != "" {
		return fmt.Sprintf("invalid schedule for product %s: %s %q: %s", e.ProductID, e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("invalid schedule: %s %q: %s", e.Field, e.Value, e.Reason)
}

// DuplicateKeyError reports a product id seen twice in one dataset
type DuplicateKeyError struct {
	Dataset   string
	ProductID string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate product_id %q in %s", e.ProductID, e.Dataset)
}

// MissingFieldError reports a required field that is absent for a product
type MissingFieldError struct {
	ProductID string
	Field     string
	Reason    string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("product %s: %s (%s)", e.ProductID, e.Reason, e.Field)
}

// Skipped converts the error into its report entry.
func (e *MissingFieldError) Skipped() SkippedProduct {
	return SkippedProduct{ProductID: e.ProductID, Field: e.Field, Reason: e.Reason}
}

// EmptyInputError reports that a run has no products to work on
type EmptyInputError struct {
	Dataset string
}

func (e *EmptyInputError) Error() string {
	return fmt.Sprintf("no products found in %s", e.Dataset)
}

// IsAbort reports whether err is a structural input error that aborts a whole run.
func IsAbort(err error) bool {
	var (
		schedErr *InvalidScheduleError
		dupErr   *DuplicateKeyError
		missErr  *MissingFieldError
		emptyErr *EmptyInputError
	)
	return errors.As(err, &schedErr) ||
		errors.As(err, &dupErr) ||
		errors.As(err, &missErr) ||
		errors.As(err, &emptyErr) ||
		errors.Is(err, ErrInvalidCycleCount)
}
