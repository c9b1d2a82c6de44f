package report

import "errors"

// ErrNoEvents is returned when no JSONL event could be read from the
// given log paths.
var ErrNoEvents = errors.New("no events found in .jsonl logs")
