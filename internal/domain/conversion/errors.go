package conversion

import "errors"

// Sentinel kinds for conversion errors.
var (
	ErrUnknownStrategy = errors.New("unknown conversion strategy")
	ErrTooFewPairs     = errors.New("not enough calibration pairs to fit a matrix")
	ErrSingular        = errors.New("calibration pairs do not determine a matrix")
)
