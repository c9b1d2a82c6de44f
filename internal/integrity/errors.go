package integrity

import "errors"

// ErrInvalidInput is returned when a digest list or file mapping cannot be
// committed to: it is empty, or one of its digests is not a 64-character hex
// string. Callers match it with errors.Is.
var ErrInvalidInput = errors.New("invalid integrity input")
