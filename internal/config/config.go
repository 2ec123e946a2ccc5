// Package config defines engine configuration and loading.
//
// Keys are flat and snake_case so the same name works in YAML and, with the
// HUEMATCH_ prefix, as an environment variable.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// MetricsAddr is the listen address of the /metrics endpoint; empty disables it.
	MetricsAddr string `koanf:"metrics_addr"`

	// CycleIntervalMS is the period of the measurement loop.
	CycleIntervalMS int `koanf:"cycle_interval_ms"`

	// Palette.
	PalettePath          string `koanf:"palette_path"`
	PaletteFallback      bool   `koanf:"palette_fallback"`
	PerceptualRefinement bool   `koanf:"perceptual_refinement"`
	LinearBudgetMS       int    `koanf:"linear_budget_ms"`

	// Spatial index.
	IndexEnabled      bool `koanf:"index_enabled"`
	IndexMaxPoints    int  `koanf:"index_max_points"`
	IndexTimeoutMS    int  `koanf:"index_timeout_ms"`
	IndexMemoryBudget int  `koanf:"index_memory_budget"`

	// Sensor. An empty device selects the built-in simulator.
	SensorDevice    string `koanf:"sensor_device"`
	SensorBaud      int    `koanf:"sensor_baud"`
	SensorTimeoutMS int    `koanf:"sensor_timeout_ms"`
	SampleCount     int    `koanf:"sample_count"`
	SampleDelayMS   int    `koanf:"sample_delay_ms"`
	LEDBrightness   int    `koanf:"led_brightness"`
	AutoBrightness  bool   `koanf:"auto_brightness"`

	// Conversion.
	ConversionStrategy string  `koanf:"conversion_strategy"`
	IRFactor1          float64 `koanf:"ir_factor1"`
	IRFactor2          float64 `koanf:"ir_factor2"`
	DynamicIR          bool    `koanf:"dynamic_ir"`
	SmoothingFactor    float64 `koanf:"smoothing_factor"`

	// Exposure.
	ExposureHigh        float64 `koanf:"exposure_high"`
	ExposureLow         float64 `koanf:"exposure_low"`
	ExposurePersistence int     `koanf:"exposure_persistence"`
	SaturationThreshold int     `koanf:"saturation_threshold"`

	// Lookup debounce.
	DebounceDelta      int `koanf:"debounce_delta"`
	DebounceIntervalMS int `koanf:"debounce_interval_ms"`

	// Storage. An empty path keeps calibration and history in memory only.
	StoragePath string `koanf:"storage_path"`
	HistorySize int    `koanf:"history_size"`

	// Reporting. An empty broker logs reports instead of publishing them.
	MQTTBroker      string `koanf:"mqtt_broker"`
	MQTTTopic       string `koanf:"mqtt_topic"`
	MQTTClientID    string `koanf:"mqtt_client_id"`
	ReportQueueSize int    `koanf:"report_queue_size"`
}

var strategies = []string{"matrix", "quadratic", "normalized_srgb", "uncalibrated"}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		MetricsAddr:          ":9090",
		CycleIntervalMS:      200,
		PalettePath:          "data/palette.bin",
		PaletteFallback:      true,
		PerceptualRefinement: true,
		LinearBudgetMS:       2000,
		IndexEnabled:         true,
		IndexMaxPoints:       4500,
		IndexTimeoutMS:       20_000,
		IndexMemoryBudget:    4 << 20,
		SensorBaud:           115200,
		SensorTimeoutMS:      500,
		SampleCount:          7,
		SampleDelayMS:        3,
		LEDBrightness:        180,
		ConversionStrategy:   "normalized_srgb",
		IRFactor1:            0.05,
		IRFactor2:            0.025,
		ExposureHigh:         0.9,
		ExposureLow:          0.3,
		ExposurePersistence:  3,
		SaturationThreshold:  60000,
		DebounceDelta:        2,
		DebounceIntervalMS:   250,
		HistorySize:          30,
		MQTTTopic:            "huematch/matches",
		MQTTClientID:         "huematch",
		ReportQueueSize:      1024,
	}
}

// Validate reports the first invalid setting, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}
	switch {
	case c.CycleIntervalMS <= 0:
		return invalid("cycle_interval_ms must be positive")
	case c.PalettePath == "" && !c.PaletteFallback:
		return invalid("palette_path is required when palette_fallback is off")
	case c.SampleCount <= 0:
		return invalid("sample_count must be positive")
	case c.SampleDelayMS < 0:
		return invalid("sample_delay_ms must not be negative")
	case c.LEDBrightness < 0 || c.LEDBrightness > 255:
		return invalid("led_brightness must be within 0..255")
	case !validStrategy(c.ConversionStrategy):
		return invalid("conversion_strategy %q is not one of %s", c.ConversionStrategy, strings.Join(strategies, ", "))
	case c.SmoothingFactor < 0 || c.SmoothingFactor >= 1:
		return invalid("smoothing_factor must be within [0, 1)")
	case c.ExposureLow < 0 || c.ExposureHigh <= c.ExposureLow:
		return invalid("exposure_low must be below exposure_high")
	case c.ExposurePersistence <= 0:
		return invalid("exposure_persistence must be positive")
	case c.SaturationThreshold <= 0 || c.SaturationThreshold > 65535:
		return invalid("saturation_threshold must be within 1..65535")
	case c.DebounceDelta < 0 || c.DebounceDelta > 255:
		return invalid("debounce_delta must be within 0..255")
	case c.DebounceIntervalMS < 0:
		return invalid("debounce_interval_ms must not be negative")
	case c.HistorySize <= 0:
		return invalid("history_size must be positive")
	case c.ReportQueueSize <= 0:
		return invalid("report_queue_size must be positive")
	case c.MQTTBroker != "" && c.MQTTTopic == "":
		return invalid("mqtt_topic is required with mqtt_broker")
	}
	return nil
}

func validStrategy(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, v := range strategies {
		if s == v {
			return true
		}
	}
	return false
}

// CycleInterval returns CycleIntervalMS as a duration.
func (c *Config) CycleInterval() time.Duration { return ms(c.CycleIntervalMS) }

// SampleDelay returns SampleDelayMS as a duration.
func (c *Config) SampleDelay() time.Duration { return ms(c.SampleDelayMS) }

// LinearBudget returns LinearBudgetMS as a duration.
func (c *Config) LinearBudget() time.Duration { return ms(c.LinearBudgetMS) }

// IndexTimeout returns IndexTimeoutMS as a duration.
func (c *Config) IndexTimeout() time.Duration { return ms(c.IndexTimeoutMS) }

// SensorTimeout returns SensorTimeoutMS as a duration.
func (c *Config) SensorTimeout() time.Duration { return ms(c.SensorTimeoutMS) }

// DebounceInterval returns DebounceIntervalMS as a duration.
func (c *Config) DebounceInterval() time.Duration { return ms(c.DebounceIntervalMS) }

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }
