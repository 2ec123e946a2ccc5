// Package app wires the palette, calibration, conversion, exposure and
// matching components into the measurement engine.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/huematch/internal/adapters/mq/queue"
	"github.com/okian/huematch/internal/adapters/mq/worker"
	"github.com/okian/huematch/internal/adapters/palette"
	"github.com/okian/huematch/internal/adapters/spatial"
	"github.com/okian/huematch/internal/config"
	"github.com/okian/huematch/internal/domain/calibration"
	"github.com/okian/huematch/internal/domain/conversion"
	"github.com/okian/huematch/internal/domain/debounce"
	"github.com/okian/huematch/internal/domain/exposure"
	"github.com/okian/huematch/internal/domain/match"
	"github.com/okian/huematch/internal/domain/model"
	"github.com/okian/huematch/pkg/logger"
	"github.com/okian/huematch/pkg/metrics"
)

const drainTimeout = 5 * time.Second

// VividTarget is the sRGB the vivid-white reference should render as.
var VividTarget = model.RGB8{R: 247, G: 248, B: 244}

// Sensor is the measurement head.
type Sensor interface {
	calibration.Sampler
	SetGain(ctx context.Context, g model.Gain) error
	SetIntegrationTime(ctx context.Context, ms float64) error
}

// History keeps recent captures.
type History interface {
	AppendCapture(ctx context.Context, c model.Capture) error
	Captures(ctx context.Context) ([]model.Capture, error)
}

// Engine runs the measurement cycle.
type Engine struct {
	mu  sync.RWMutex
	cfg *config.Config

	// collaborators
	sensor       Sensor
	illumination calibration.Illumination
	persistence  calibration.Persistence
	history      History
	publishers   []worker.Publisher

	// built by Start
	palette    *palette.Store
	index      spatial.NearestColorIndex
	machine    *calibration.Machine
	converter  conversion.Converter
	smoother   *conversion.Smoother
	exposure   *exposure.Controller
	brightness *exposure.Brightness
	orch       *match.Orchestrator
	queue      *queue.InMemoryQueue
	pool       *worker.Pool
	poolCancel context.CancelFunc

	// cycleMu serialises everything that drives the sensor.
	cycleMu sync.Mutex
	cycles  int64
	last    model.Capture

	started bool
	now     func() time.Time
	newID   func() string
	logger  logger.Logger
}

// New constructs an Engine. Nothing touches hardware until Start.
func New(cfg *config.Config, opts ...Option) *Engine {
	if cfg == nil {
		cfg = config.New()
	}
	e := &Engine{
		cfg:   cfg,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.history == nil {
		e.history = newMemoryHistory(cfg.HistorySize)
	}
	return e
}

// Start builds the components and brings the sensor to its initial settings.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return nil
	}
	if e.logger == nil {
		e.logger = logger.Get().Named("engine")
	}
	if e.sensor == nil {
		return ErrNoSensor
	}
	cfg := e.cfg

	strategy, err := conversion.ParseStrategy(cfg.ConversionStrategy)
	if err != nil {
		return err
	}
	if e.converter, err = conversion.New(strategy); err != nil {
		return err
	}
	e.smoother = &conversion.Smoother{Factor: cfg.SmoothingFactor}

	e.palette = e.openPalette(ctx)
	e.index = e.buildIndex(ctx)

	tuning := calibration.DefaultTuning()
	tuning.IRFactor1 = cfg.IRFactor1
	tuning.IRFactor2 = cfg.IRFactor2
	tuning.DynamicIR = cfg.DynamicIR

	machineOpts := []calibration.Option{
		calibration.WithTuning(tuning),
		calibration.WithDefaultSamples(cfg.SampleCount),
		calibration.WithSampleDelay(cfg.SampleDelay()),
		calibration.WithLEDBrightness(uint8(cfg.LEDBrightness)),
	}
	if e.illumination != nil {
		machineOpts = append(machineOpts, calibration.WithIllumination(e.illumination))
	}
	if e.persistence != nil {
		machineOpts = append(machineOpts, calibration.WithPersistence(e.persistence))
	}
	e.machine = calibration.NewMachine(machineOpts...)
	if restored, err := e.machine.Restore(ctx); err != nil {
		e.logger.Warn(ctx, "stored calibration unusable; starting uncalibrated", logger.Error(err))
	} else if restored {
		e.logger.Info(ctx, "calibration restored", logger.String("state", e.machine.State().String()))
	}

	e.exposure = exposure.NewController(
		exposure.WithThresholds(cfg.ExposureLow, cfg.ExposureHigh),
		exposure.WithPersistence(cfg.ExposurePersistence),
	)
	e.brightness = exposure.NewBrightness(uint8(cfg.LEDBrightness))

	e.queue = queue.NewInMemoryQueue(queue.WithCapacity(cfg.ReportQueueSize))
	e.orch = match.New(e.palette,
		match.WithIndex(e.index),
		match.WithReporter(e.queue),
		match.WithGuard(debounce.New(
			debounce.WithDelta(uint8(cfg.DebounceDelta)),
			debounce.WithMinInterval(cfg.DebounceInterval()),
		)),
	)

	sinks := append([]worker.Publisher{worker.NewLogPublisher(nil)}, e.publishers...)
	e.pool = worker.NewPool(1, e.queue, sinks)
	poolCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.poolCancel = cancel
	e.pool.Start(poolCtx)

	settings := e.exposure.Settings()
	if err := e.sensor.SetGain(ctx, settings.Gain); err != nil {
		e.abortLocked(ctx)
		return fmt.Errorf("initial gain: %w", err)
	}
	if err := e.sensor.SetIntegrationTime(ctx, settings.IntegrationMs); err != nil {
		e.abortLocked(ctx)
		return fmt.Errorf("initial integration time: %w", err)
	}
	metrics.UpdateIntegrationTime(settings.IntegrationMs)
	if e.illumination != nil {
		if err := e.illumination.SetBrightness(ctx, e.brightness.Level()); err != nil {
			e.abortLocked(ctx)
			return fmt.Errorf("initial brightness: %w", err)
		}
	}

	e.started = true
	e.logger.Info(ctx, "engine started",
		logger.String("strategy", string(strategy)),
		logger.Int("palette_records", e.palette.Count()),
		logger.Any("index_built", e.index.IsBuilt()),
		logger.Any("calibrated", e.machine.IsCalibrated()),
		logger.Int("publishers", len(sinks)),
	)
	return nil
}

func (e *Engine) openPalette(ctx context.Context) *palette.Store {
	opts := []palette.Option{
		palette.WithPerceptualRefinement(e.cfg.PerceptualRefinement),
		palette.WithSearchBudget(e.cfg.LinearBudget()),
	}
	store, err := palette.Open(ctx, e.cfg.PalettePath, opts...)
	if err == nil {
		return store
	}
	if e.cfg.PaletteFallback {
		e.logger.Warn(ctx, "palette unavailable; using built-in colours",
			logger.String("path", e.cfg.PalettePath), logger.Error(err))
		return palette.Fallback(opts...)
	}
	e.logger.Warn(ctx, "palette unavailable; names will be coarse classes only",
		logger.String("path", e.cfg.PalettePath), logger.Error(err))
	return store
}

func (e *Engine) buildIndex(ctx context.Context) spatial.NearestColorIndex {
	if !e.cfg.IndexEnabled {
		return spatial.Noop{}
	}
	kd := spatial.NewKDTree(
		spatial.WithMaxPoints(e.cfg.IndexMaxPoints),
		spatial.WithLoadTimeout(e.cfg.IndexTimeout()),
		spatial.WithMemoryBudget(e.cfg.IndexMemoryBudget),
	)
	if err := kd.Load(ctx, e.palette); err != nil {
		// lookups scan records past kd.Covered() linearly
		e.logger.Warn(ctx, "spatial index incomplete; linear search covers the rest",
			logger.Any("built", kd.IsBuilt()),
			logger.Int("covered", kd.Covered()),
			logger.Int("records", e.palette.Count()),
			logger.Error(err))
	}
	return kd
}

func (e *Engine) abortLocked(ctx context.Context) {
	e.shutdownPool(ctx)
}

func (e *Engine) shutdownPool(ctx context.Context) {
	if e.pool == nil {
		return
	}
	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
	defer cancel()
	if err := e.pool.Shutdown(drainCtx); err != nil && !errors.Is(err, worker.ErrStopped) {
		e.logger.Warn(ctx, "report drain incomplete", logger.Error(err))
	}
	e.poolCancel()
}

// Stop drains pending reports and stops the engine.
func (e *Engine) Stop(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		return
	}
	e.logger.Info(ctx, "stopping engine")
	e.shutdownPool(ctx)
	e.started = false
	e.logger.Info(ctx, "engine stopped")
}

// RunCycle performs one measurement: average n samples, adjust exposure,
// convert, match and record the capture.
func (e *Engine) RunCycle(ctx context.Context) (model.Capture, error) {
	e.mu.RLock()
	started := e.started
	e.mu.RUnlock()
	if !started {
		return model.Capture{}, ErrNotStarted
	}

	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()

	start := time.Now()
	raw, err := calibration.Average(ctx, e.sensor, e.cfg.SampleCount, e.cfg.SampleDelay())
	if err != nil {
		metrics.RecordCycle("sensor_error", msSince(start))
		return model.Capture{}, fmt.Errorf("sample: %w", err)
	}

	e.adjustExposure(ctx, raw)

	rgb := e.converter.Convert(raw, e.machine.Snapshot())
	rgb = e.smoother.Apply(rgb)

	res, err := e.orch.FindColorNameErr(ctx, rgb)
	if err != nil {
		metrics.RecordCycle("busy", msSince(start))
		return model.Capture{}, err
	}

	c := model.Capture{
		ID:       e.newID(),
		At:       e.now(),
		Raw:      raw,
		RGB:      rgb,
		Name:     res.Name,
		Method:   res.Method,
		Duration: res.Duration,
	}
	if err := e.history.AppendCapture(ctx, c); err != nil {
		e.logger.Warn(ctx, "capture not recorded", logger.Error(err))
	}
	e.cycles++
	e.last = c

	metrics.RecordCycle("ok", msSince(start))
	e.logger.Debug(ctx, "cycle complete",
		logger.String("rgb", rgb.Hex()),
		logger.String("name", res.Name),
		logger.String("method", res.Method.String()),
	)
	return c, nil
}

func (e *Engine) adjustExposure(ctx context.Context, raw model.RawSample) {
	if settings, changed := e.exposure.Update(raw.Max(), uint16(e.cfg.SaturationThreshold)); changed {
		if err := e.sensor.SetIntegrationTime(ctx, settings.IntegrationMs); err != nil {
			metrics.RecordSensorError("atime")
			e.logger.Warn(ctx, "integration time not applied", logger.Error(err))
		}
	}

	if !e.cfg.AutoBrightness || e.illumination == nil {
		return
	}
	level, adj := e.brightness.Update(raw.Max())
	if adj != exposure.Increased && adj != exposure.Decreased {
		return
	}
	if err := e.illumination.SetBrightness(ctx, level); err != nil {
		e.logger.Warn(ctx, "brightness not applied", logger.Error(err))
	}
}

// Lookup names c directly, bypassing the sensor.
func (e *Engine) Lookup(ctx context.Context, c model.RGB8) (model.MatchResult, error) {
	e.mu.RLock()
	orch := e.orch
	e.mu.RUnlock()
	if orch == nil {
		return model.MatchResult{}, ErrNotStarted
	}
	return orch.FindColorNameErr(ctx, c)
}

// Captures returns the recorded history, newest first.
func (e *Engine) Captures(ctx context.Context) ([]model.Capture, error) {
	return e.history.Captures(ctx)
}

// GetStats returns engine statistics for monitoring.
func (e *Engine) GetStats() map[string]interface{} {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stats := map[string]interface{}{
		"started":  e.started,
		"strategy": e.cfg.ConversionStrategy,
	}
	if !e.started {
		return stats
	}

	e.cycleMu.Lock()
	stats["cycles"] = e.cycles
	stats["lastMatch"] = e.last.Name
	e.cycleMu.Unlock()

	stats["calibrated"] = e.machine.IsCalibrated()
	stats["calibrationState"] = e.machine.State().String()
	stats["paletteRecords"] = e.palette.Count()
	stats["palettePath"] = e.palette.Path()
	stats["indexBuilt"] = e.index.IsBuilt()
	stats["indexNodes"] = e.index.NodeCount()
	stats["queueLength"] = e.queue.Len(context.Background())
	stats["integrationMs"] = e.exposure.Settings().IntegrationMs
	stats["ledLevel"] = e.brightness.Level()
	return stats
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
