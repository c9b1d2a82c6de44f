package cleaner

import "errors"

var (
	// ErrUnsupportedFormat is returned in strict mode for files no stripper handles.
	ErrUnsupportedFormat = errors.New("unsupported format for metadata cleaning")

	// ErrSamePath is returned when input and output name the same file.
	ErrSamePath = errors.New("cleaner input and output are the same file")

	// ErrCompressedMetadata is returned for PDFs that keep metadata in
	// compressed streams, which cannot be blanked in place.
	ErrCompressedMetadata = errors.New("metadata stored in compressed PDF streams")
)
