package summarizer

import "errors"

var (
	// ErrNoCredentials is returned when no API key is available for the remote model.
	ErrNoCredentials = errors.New("no API key configured for the summarizer")

	// ErrRemoteStatus is returned when the endpoint answers with a non-2xx status.
	ErrRemoteStatus = errors.New("summarizer endpoint returned an error status")

	// ErrEmptyResponse is returned when the endpoint answers without any text.
	ErrEmptyResponse = errors.New("summarizer endpoint returned no content")
)
