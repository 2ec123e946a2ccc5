package calibration

import (
	"time"

	"github.com/okian/huematch/pkg/logger"
)

// Option applies a configuration option to the Machine.
type Option func(*Machine)

// WithTuning sets the static conversion constants.
func WithTuning(t Tuning) Option {
	return func(m *Machine) {
		m.tuning = t
	}
}

// WithIllumination lets captures switch the light source.
func WithIllumination(il Illumination) Option {
	return func(m *Machine) {
		m.illumination = il
	}
}

// WithPersistence saves calibration after every successful change.
func WithPersistence(p Persistence) Option {
	return func(m *Machine) {
		m.persistence = p
	}
}

// WithSampleDelay sets the pause between averaged samples.
func WithSampleDelay(d time.Duration) Option {
	return func(m *Machine) {
		if d >= 0 {
			m.sampleDelay = d
		}
	}
}

// WithDefaultSamples sets the sample count used when a caller passes n <= 0.
func WithDefaultSamples(n int) Option {
	return func(m *Machine) {
		if n > 0 {
			m.defaultSamples = n
		}
	}
}

// WithLEDBrightness sets the light level used for lit captures.
func WithLEDBrightness(level uint8) Option {
	return func(m *Machine) {
		m.ledBrightness = level
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets a custom logger for the machine.
func WithLogger(l logger.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.logger = l
		}
	}
}
