package attendance

import "errors"

// Error taxonomy surfaced to HTTP handlers. Callers classify with errors.Is
// and map to a status code; the wrapped text carries the human message.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidArgument = errors.New("invalid argument")
)
