package agua

import "errors"

var (
	// ErrUnsupportedFormat is returned for unrecognized input or output formats.
	ErrUnsupportedFormat = errors.New("agua: unsupported format")

	// ErrNoRows is returned when an input file contains no data rows.
	ErrNoRows = errors.New("agua: input contains no rows")

	// ErrEmptyGraph is returned when an operation needs a graph but none has
	// been built or imported yet.
	ErrEmptyGraph = errors.New("agua: graph is empty")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("agua: invalid configuration")

	// ErrStoreClosed is returned when operating on a closed pipeline.
	ErrStoreClosed = errors.New("agua: pipeline is closed")
)
