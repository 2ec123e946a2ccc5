package sensor

import "errors"

var (
	// ErrProtocol is returned for a response line the codec cannot parse.
	ErrProtocol = errors.New("sensor protocol error")

	// ErrDevice is returned when the sensor head answers with ERR.
	ErrDevice = errors.New("sensor reported error")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("sensor closed")
)
