// Package exposure keeps the sensor inside its linear range.
//
// Controller adjusts integration time from a moving average of how close
// the brightest channel sits to saturation. Brightness does the same for the
// illumination source.
package exposure

import (
	"context"
	"sync"

	"github.com/okian/huematch/internal/domain/model"
	"github.com/okian/huematch/pkg/logger"
	"github.com/okian/huematch/pkg/metrics"
)

// Default controller configuration.
const (
	defaultWindow      = 5
	defaultPersistence = 3
	defaultHigh        = 0.9
	defaultLow         = 0.3

	// One ATIME cycle of the sensor is 2.78ms.
	defaultStepMs        = 10.0
	defaultMinMs         = 2.78
	defaultMaxMs         = 711.0
	defaultIntegrationMs = 91.74
)

// Settings is what the controller asks the sampler to use.
type Settings struct {
	Gain          model.Gain
	IntegrationMs float64
}

// Controller owns the exposure state.
type Controller struct {
	mu sync.Mutex

	settings  Settings
	ring      []float64
	next      int
	filled    int
	highCount int
	lowCount  int

	high, low   float64
	persistence int
	stepMs      float64
	minMs       float64
	maxMs       float64

	logger logger.Logger
}

// NewController creates a controller at the default settings.
func NewController(opts ...Option) *Controller {
	c := &Controller{
		settings:    Settings{Gain: model.Gain16x, IntegrationMs: defaultIntegrationMs},
		ring:        make([]float64, defaultWindow),
		high:        defaultHigh,
		low:         defaultLow,
		persistence: defaultPersistence,
		stepMs:      defaultStepMs,
		minMs:       defaultMinMs,
		maxMs:       defaultMaxMs,
		logger:      logger.Get().Named("exposure"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.settings.IntegrationMs = clamp(c.settings.IntegrationMs, c.minMs, c.maxMs)
	metrics.UpdateIntegrationTime(c.settings.IntegrationMs)
	return c
}

// Update feeds one cycle's brightest raw channel. It returns the new
// settings and true when integration time changed; the caller applies them.
// A zero threshold carries no information and is ignored.
func (c *Controller) Update(rawMax, threshold uint16) (Settings, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if threshold == 0 {
		return c.settings, false
	}

	c.ring[c.next] = float64(rawMax) / float64(threshold)
	c.next = (c.next + 1) % len(c.ring)
	if c.filled < len(c.ring) {
		c.filled++
	}
	mean := c.meanLocked()
	metrics.UpdateSaturationRatio(mean)

	switch {
	case mean > c.high:
		c.lowCount = 0
		c.highCount++
		if c.highCount < c.persistence {
			return c.settings, false
		}
		c.highCount = 0
		return c.stepLocked(-c.stepMs, "down", mean)
	case mean < c.low:
		c.highCount = 0
		c.lowCount++
		if c.lowCount < c.persistence {
			return c.settings, false
		}
		c.lowCount = 0
		return c.stepLocked(c.stepMs, "up", mean)
	default:
		c.highCount, c.lowCount = 0, 0
		return c.settings, false
	}
}

func (c *Controller) stepLocked(delta float64, direction string, mean float64) (Settings, bool) {
	next := clamp(c.settings.IntegrationMs+delta, c.minMs, c.maxMs)
	if next == c.settings.IntegrationMs {
		return c.settings, false
	}
	c.settings.IntegrationMs = next
	metrics.RecordExposureAdjustment(direction)
	metrics.UpdateIntegrationTime(next)
	c.logger.Debug(context.Background(), "integration time adjusted",
		logger.String("direction", direction),
		logger.Float64("mean_ratio", mean),
		logger.Float64("integration_ms", next))
	return c.settings, true
}

func (c *Controller) meanLocked() float64 {
	if c.filled == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < c.filled; i++ {
		sum += c.ring[i]
	}
	return sum / float64(c.filled)
}

// Settings returns the current settings.
func (c *Controller) Settings() Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// MeanRatio returns the current moving average.
func (c *Controller) MeanRatio() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.meanLocked()
}

// Reset clears the history and counters but keeps the settings.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.ring)
	c.next, c.filled, c.highCount, c.lowCount = 0, 0, 0, 0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
