package app

import "errors"

var (
	// ErrNotStarted is returned by operations that need a started engine.
	ErrNotStarted = errors.New("engine not started")

	// ErrNoSensor is returned by Start when no sampler was provided.
	ErrNoSensor = errors.New("no sensor configured")
)
