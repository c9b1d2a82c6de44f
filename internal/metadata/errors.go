package metadata

import "errors"

// ErrFileTooLarge is returned when a file exceeds the extractor size limit.
var ErrFileTooLarge = errors.New("file too large for metadata extraction")

// ErrMalformed is returned when a file does not parse as its format.
var ErrMalformed = errors.New("malformed file")
