package shop

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when an identity does not resolve in the current catalog.
// Aggregates skip such entries; it is never shown to the shopper as an error.
var ErrNotFound = errors.New("product not found in catalog")

var errNoSource = errors.New("no catalog source configured")

// FetchError reports a failed catalog or order-history fetch. The previous
// (or fixture) state stays in place.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ValidationError reports order input the shopper has to fix. Fields holds the
// offending field names ("cart" when there is nothing to order).
type ValidationError struct {
	Fields  []string
	Message string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s (%s)", e.Message, strings.Join(e.Fields, ", "))
}

// SubmissionError reports that the backend did not accept the order.
// The cart is untouched and the order may be retried.
type SubmissionError struct {
	OrderID string
	Err     error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit order %s: %v", e.OrderID, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is (or wraps) a *ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsSubmission reports whether err is (or wraps) a *SubmissionError
func IsSubmission(err error) bool {
	var se *SubmissionError
	return errors.As(err, &se)
}
