package app

import (
	"time"

	"github.com/okian/huematch/internal/adapters/mq/worker"
	"github.com/okian/huematch/internal/domain/calibration"
	"github.com/okian/huematch/pkg/logger"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithSensor sets the measurement head.
func WithSensor(s Sensor) Option {
	return func(e *Engine) {
		if s != nil {
			e.sensor = s
		}
	}
}

// WithIllumination sets the light source used during calibration and by
// automatic brightness control.
func WithIllumination(il calibration.Illumination) Option {
	return func(e *Engine) {
		if il != nil {
			e.illumination = il
		}
	}
}

// WithPersistence stores calibration across restarts.
func WithPersistence(p calibration.Persistence) Option {
	return func(e *Engine) {
		if p != nil {
			e.persistence = p
		}
	}
}

// WithHistory records every completed cycle.
func WithHistory(h History) Option {
	return func(e *Engine) {
		if h != nil {
			e.history = h
		}
	}
}

// WithPublishers adds report sinks. A log sink is always attached.
func WithPublishers(ps ...worker.Publisher) Option {
	return func(e *Engine) {
		for _, p := range ps {
			if p != nil {
				e.publishers = append(e.publishers, p)
			}
		}
	}
}

// WithClock sets the time source used for capture timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithIDGenerator sets the capture ID generator.
func WithIDGenerator(f func() string) Option {
	return func(e *Engine) {
		if f != nil {
			e.newID = f
		}
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}
