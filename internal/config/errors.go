package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoInputDir is returned when --input-dir is missing.
	ErrNoInputDir = errors.New("no input directory specified: use --input-dir")

	// ErrNoOutputDir is returned when --output-dir is missing.
	ErrNoOutputDir = errors.New("no output directory specified: use --output-dir")

	// ErrSameInputOutput is returned when cleaning would overwrite the originals.
	ErrSameInputOutput = errors.New("input and output directories must differ")

	// ErrNoLogPath is returned when the event log path is empty.
	ErrNoLogPath = errors.New("no log path specified: use --log-path")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid workers: must be positive")

	// ErrInvalidFingerprint is returned for an unknown fingerprint algorithm.
	ErrInvalidFingerprint = errors.New("invalid fingerprint algorithm")

	// ErrInvalidAITimeout is returned when the summarizer timeout is not positive.
	ErrInvalidAITimeout = errors.New("invalid AI timeout: must be positive")

	// ErrConflictingReportFormats is returned when more than one output
	// format flag is given to a command that prints a single report.
	ErrConflictingReportFormats = errors.New("conflicting report formats: choose only one of --json, --markdown and --html")
)
