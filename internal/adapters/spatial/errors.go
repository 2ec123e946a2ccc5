package spatial

import "errors"

// Sentinel kinds for index construction errors.
var (
	ErrEmpty       = errors.New("no points to index")
	ErrOutOfMemory = errors.New("index memory budget exceeded")
	ErrTimeout     = errors.New("index load timed out")
)
