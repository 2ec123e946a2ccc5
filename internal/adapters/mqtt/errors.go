package mqtt

import "errors"

var (
	// ErrConnect is returned when the broker connection cannot be established.
	ErrConnect = errors.New("mqtt connect failed")

	// ErrTimeout is returned when the broker does not acknowledge in time.
	ErrTimeout = errors.New("mqtt publish timed out")
)
