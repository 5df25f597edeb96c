package configfile

import "errors"

var (
	// ErrFileNotFound is returned when a file ID or its content does not exist.
	ErrFileNotFound = errors.New("configfile: not found")

	// ErrInvalidFile is returned for uploads that fail validation.
	ErrInvalidFile = errors.New("configfile: invalid file")
)
