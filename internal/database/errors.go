package database

import "errors"

var (
	// ErrRunNotFound is returned when no run has the requested ID.
	ErrRunNotFound = errors.New("run not found")

	// ErrNilRun is returned when SaveRun is called without a run.
	ErrNilRun = errors.New("run must not be nil")

	// ErrDatabaseNotFound is returned by Open when the database file is
	// missing and creation was not requested.
	ErrDatabaseNotFound = errors.New("database not found")
)
