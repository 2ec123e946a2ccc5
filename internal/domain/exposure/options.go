package exposure

import (
	"time"

	"github.com/okian/huematch/internal/domain/model"
	"github.com/okian/huematch/pkg/logger"
)

// Option applies a configuration option to a Controller.
type Option func(*Controller)

// WithThresholds sets the mean saturation ratios that count as too bright
// and too dark. Ignored unless 0 <= low < high.
func WithThresholds(low, high float64) Option {
	return func(c *Controller) {
		if low >= 0 && high > low {
			c.low, c.high = low, high
		}
	}
}

// WithPersistence sets how many consecutive cycles must agree before a step.
func WithPersistence(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.persistence = n
		}
	}
}

// WithWindow sets the number of ratios averaged.
func WithWindow(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.ring = make([]float64, n)
		}
	}
}

// WithIntegrationRange sets the step and the bounds of the integration time.
func WithIntegrationRange(step, minMs, maxMs float64) Option {
	return func(c *Controller) {
		if step > 0 && minMs > 0 && maxMs >= minMs {
			c.stepMs, c.minMs, c.maxMs = step, minMs, maxMs
		}
	}
}

// WithInitial sets the starting gain and integration time.
func WithInitial(gain model.Gain, integrationMs float64) Option {
	return func(c *Controller) {
		c.settings = Settings{Gain: gain, IntegrationMs: integrationMs}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// BrightnessOption applies a configuration option to a Brightness controller.
type BrightnessOption func(*Brightness)

// WithTarget sets the accepted signal band and the hysteresis margin around it.
func WithTarget(minCounts, maxCounts, hysteresis uint16) BrightnessOption {
	return func(b *Brightness) {
		if maxCounts > minCounts && hysteresis <= minCounts {
			b.targetMin, b.targetMax = int(minCounts), int(maxCounts)
			b.holdLow, b.holdHigh = int(minCounts)-int(hysteresis), int(maxCounts)+int(hysteresis)
		}
	}
}

// WithBrightnessLimits sets the step and the allowed brightness range.
func WithBrightnessLimits(step, minLevel, maxLevel uint8) BrightnessOption {
	return func(b *Brightness) {
		if step > 0 && maxLevel >= minLevel {
			b.step, b.minLevel, b.maxLevel = int(step), int(minLevel), int(maxLevel)
		}
	}
}

// WithSettleDelay sets the minimum time between two adjustments.
func WithSettleDelay(d time.Duration) BrightnessOption {
	return func(b *Brightness) {
		if d >= 0 {
			b.settle = d
		}
	}
}

// WithBrightnessClock replaces time.Now.
func WithBrightnessClock(now func() time.Time) BrightnessOption {
	return func(b *Brightness) {
		if now != nil {
			b.now = now
		}
	}
}
