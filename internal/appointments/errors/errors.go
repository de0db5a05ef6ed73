package errors

import "errors"

var (
	ErrNotFound = errors.New("appointment not found")

	ErrInvalidID = errors.New("invalid appointment ID format")

	// ErrPreconditionFailed means a conditional write matched no document:
	// the appointment is missing, its version moved, or its payment status
	// differs from what the filter required. The service re-reads to
	// classify which.
	ErrPreconditionFailed = errors.New("appointment precondition failed")
)
