package statement

import "errors"

var (
	// ErrDirectoryNotFound is returned when a statement directory does not exist.
	ErrDirectoryNotFound = errors.New("statement directory not found")

	// ErrNoLoadableFiles is returned when yearly files exist but none could be parsed.
	ErrNoLoadableFiles = errors.New("no loadable statement files")

	// ErrMissingColumns is returned by the column resolvers when required headers are absent.
	ErrMissingColumns = errors.New("missing required columns")
)
