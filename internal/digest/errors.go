package digest

import "errors"

// ErrUnknownAlgorithm is returned when a fingerprint algorithm name is not recognized.
var ErrUnknownAlgorithm = errors.New("unknown fingerprint algorithm")
