package domain

import "errors"

var (
	// ErrPersonNotFound signals that no person matched the lookup.
	ErrPersonNotFound = errors.New("person not found")
	// ErrInvalidArgument signals a malformed caller parameter.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidPolygon signals a polygon that cannot be used as a geo predicate.
	ErrInvalidPolygon = errors.New("invalid polygon")
	// ErrDuplicateDNI signals a write that would break dni uniqueness.
	ErrDuplicateDNI = errors.New("duplicate dni")
	// ErrBatchTooLarge signals a batch above the configured size limit.
	ErrBatchTooLarge = errors.New("batch too large")
)
