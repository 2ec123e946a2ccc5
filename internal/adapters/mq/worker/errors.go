package worker

import "errors"

// ErrStopped is returned when Shutdown is called on a pool that already stopped.
var ErrStopped = errors.New("worker pool stopped")
