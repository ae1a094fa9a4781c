package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNetwork    = errors.New("network error")
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrSubmission = errors.New("order submission failed")
	ErrFetch      = errors.New("cart fetch failed")
)

// StatusError is a catalog response with a non-success status.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return true
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// FetchError is a failed hydration. ProductID is set when a single product request caused it.
type FetchError struct {
	ProductID string
	Err       error
}

func (e *FetchError) Error() string {
	if e.ProductID == "" {
		return fmt.Sprintf("fetch cart: %v", e.Err)
	}
	return fmt.Sprintf("fetch product %s: %v", e.ProductID, e.Err)
}

func (e *FetchError) Is(target error) bool { return target == ErrFetch }

func (e *FetchError) Unwrap() error { return e.Err }

// SubmissionError wraps the cause of a failed order POST. The cart is left untouched.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("place order: %v", e.Err)
}

func (e *SubmissionError) Is(target error) bool { return target == ErrSubmission }

func (e *SubmissionError) Unwrap() error { return e.Err }
