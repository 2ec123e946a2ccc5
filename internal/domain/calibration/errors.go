package calibration

import "errors"

// Sentinel kinds for calibration failures. Sanity failures leave the last
// good calibration untouched.
var (
	ErrInvertedReference = errors.New("black reference is not darker than white reference")
	ErrUnexpectedHue     = errors.New("hue reference does not show the expected dominant channel")
	ErrNotReady          = errors.New("black and white references required first")
	ErrNoSignal          = errors.New("reference sample has no usable signal")
	ErrDecode            = errors.New("calibration data decode failed")
)
