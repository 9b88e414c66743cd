package analytics

import "errors"

// Lookup outcomes that views render as informational states rather than failures.
var (
	ErrNotFound   = errors.New("no rows for the requested combination")
	ErrNoMatch    = errors.New("no route matches the search")
	ErrEmptyQuery = errors.New("no search text entered")
)
