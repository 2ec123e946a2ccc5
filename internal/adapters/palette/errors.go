package palette

import "errors"

// Sentinel kinds for palette errors.
var (
	ErrUnavailable = errors.New("palette unavailable")
	ErrCorrupt     = errors.New("palette corrupt")
	ErrNotFound    = errors.New("palette record not found")
)
