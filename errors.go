package peopledir

import "github.com/kailas-cloud/peopledir/internal/domain"

// Sentinel errors returned by the client. Use errors.Is to match them.
var (
	ErrPersonNotFound  = domain.ErrPersonNotFound
	ErrInvalidArgument = domain.ErrInvalidArgument
	ErrInvalidPolygon  = domain.ErrInvalidPolygon
	ErrDuplicateDNI    = domain.ErrDuplicateDNI
	ErrBatchTooLarge   = domain.ErrBatchTooLarge
)
