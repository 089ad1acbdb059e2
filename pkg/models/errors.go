package models

import "errors"

// Error taxonomy. Callers wrap these with fmt.Errorf("...: %w", ...) so
// handlers can map them with errors.Is. Anything that is neither a
// validation nor a not-found error is treated as a storage failure and
// surfaced as-is.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
)
