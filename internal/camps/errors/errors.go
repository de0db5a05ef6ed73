package errors

import "errors"

var (
	ErrNotFound = errors.New("camp not found")

	ErrInvalidID = errors.New("invalid camp ID format")

	// ErrPreconditionFailed means a conditional write matched no document:
	// the camp is missing, full, closed, or the participant's membership
	// differs from what the filter required. The service re-reads to
	// classify which.
	ErrPreconditionFailed = errors.New("camp precondition failed")
)
