package calibration

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/huematch/internal/domain/model"
	"github.com/okian/huematch/pkg/logger"
	"github.com/okian/huematch/pkg/metrics"
)

// Default capture configuration.
const (
	defaultSamples       = 7
	defaultSampleDelay   = 3 * time.Millisecond
	defaultLEDBrightness = 128

	// blackNoiseCeiling is the per-channel count treated as "no longer black".
	blackNoiseCeiling = 0.05 * model.FullScale
	// whiteTarget is the per-channel level of an ideal white capture.
	whiteTarget = 0.70 * model.FullScale
	// vividScaleMin and vividScaleMax bound the target-scale correction.
	vividScaleMin = 0.5
	vividScaleMax = 2.0
)

// Sampler reads one raw measurement.
type Sampler interface {
	Read(ctx context.Context) (model.RawSample, error)
}

// Illumination controls the sensor head's light source.
type Illumination interface {
	SetBrightness(ctx context.Context, level uint8) error
}

// Persistence stores calibration as one unit.
type Persistence interface {
	Save(ctx context.Context, d Data) error
	Load(ctx context.Context) (Data, bool, error)
}

// UnscaledConverter renders a raw sample before target-scale correction.
type UnscaledConverter interface {
	ConvertUnscaled(raw model.RawSample, p *Params) model.RGB8
}

// Machine is the calibration state machine. It is the single owner of Data;
// readers take immutable Params snapshots via Snapshot.
type Machine struct {
	mu     sync.Mutex
	data   Data
	tuning Tuning

	params     atomic.Pointer[Params]
	generation uint64

	illumination   Illumination
	persistence    Persistence
	sampleDelay    time.Duration
	defaultSamples int
	ledBrightness  uint8
	now            func() time.Time

	logger logger.Logger
}

// NewMachine creates an uncalibrated machine.
func NewMachine(opts ...Option) *Machine {
	m := &Machine{
		data:           defaultData(),
		tuning:         DefaultTuning(),
		sampleDelay:    defaultSampleDelay,
		defaultSamples: defaultSamples,
		ledBrightness:  defaultLEDBrightness,
		now:            time.Now,
		logger:         logger.Get().Named("calibration"),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.data.LEDBrightness = m.ledBrightness
	m.publishLocked()
	return m
}

// Snapshot returns the current conversion parameters.
func (m *Machine) Snapshot() *Params { return m.params.Load() }

// Data returns a copy of the calibration data.
func (m *Machine) Data() Data {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data
}

// IsCalibrated reports whether black and white are captured and ordered.
func (m *Machine) IsCalibrated() bool { return m.Snapshot().Calibrated }

// State returns the calibration progress.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.data.Calibrated && (m.data.Blue.Valid || m.data.Yellow.Valid):
		return StateHueReferencesCaptured
	case m.data.Calibrated:
		return StateCalibrated
	case m.data.Black.Valid:
		return StateBlackCaptured
	default:
		return StateUncalibrated
	}
}

// Restore loads persisted calibration, if any. Data failing the ordering
// check is loaded but not marked calibrated.
func (m *Machine) Restore(ctx context.Context) (bool, error) {
	if m.persistence == nil {
		return false, nil
	}
	d, ok, err := m.persistence.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("load calibration: %w", err)
	}
	if !ok {
		return false, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	d.Version = DataVersion
	d.Calibrated = d.Black.Valid && d.White.Valid && ordered(d.Black, d.White)
	if d.Black.Valid && d.White.Valid && !d.Calibrated {
		m.logger.Warn(ctx, "stored calibration has inverted references; ignoring calibrated flag")
	}
	if d.VividScale == ([3]float64{}) {
		d.VividScale = [3]float64{1, 1, 1}
	}
	m.data = d
	m.publishLocked()
	m.logger.Info(ctx, "calibration restored", logger.Any("calibrated", d.Calibrated))
	return true, nil
}

// CaptureBlack records the black reference with the light source off.
// If a white reference exists, black must stay darker on every channel.
func (m *Machine) CaptureBlack(ctx context.Context, s Sampler, n int) (Reference, error) {
	if err := m.light(ctx, 0); err != nil {
		return Reference{}, err
	}
	defer m.restoreLight(ctx)

	ref, err := m.average(ctx, s, n)
	if err != nil {
		return Reference{}, m.fail(ctx, "black", "sample", err)
	}
	total := float64(ref.X) + float64(ref.Y) + float64(ref.Z)
	ref.Quality = clamp01(1 - total/(3*blackNoiseCeiling))

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data.White.Valid && !ordered(ref, m.data.White) {
		return Reference{}, m.fail(ctx, "black", "inverted", ErrInvertedReference)
	}
	m.data.Black = ref
	m.commitLocked(ctx, "black")
	return ref, nil
}

// CaptureWhite records the white reference. The capture is rejected without
// touching stored data unless black is darker on X, Y and Z.
func (m *Machine) CaptureWhite(ctx context.Context, s Sampler, n int) (Reference, error) {
	if err := m.light(ctx, m.ledBrightness); err != nil {
		return Reference{}, err
	}
	ref, err := m.average(ctx, s, n)
	if err != nil {
		return Reference{}, m.fail(ctx, "white", "sample", err)
	}
	mean := (float64(ref.X) + float64(ref.Y) + float64(ref.Z)) / 3
	ref.Quality = clamp01(mean / whiteTarget)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data.Black.Valid && !ordered(m.data.Black, ref) {
		m.logger.Warn(ctx, "white capture rejected",
			logger.Any("black", m.data.Black.Sample()),
			logger.Any("white", ref.Sample()))
		return Reference{}, m.fail(ctx, "white", "inverted", ErrInvertedReference)
	}
	m.data.White = ref
	m.commitLocked(ctx, "white")
	return ref, nil
}

// CaptureHueReference records a blue or yellow validation target. The named
// channel share (Z for blue, X+Y for yellow) of the black-corrected signal
// must reach minRatio; minRatio <= 0 selects the default for the hue.
func (m *Machine) CaptureHueReference(ctx context.Context, s Sampler, n int, hue Hue, minRatio float64) (Reference, error) {
	m.mu.Lock()
	ready := m.data.Calibrated
	black := m.data.Black
	m.mu.Unlock()
	if !ready {
		return Reference{}, m.fail(ctx, hue.String(), "not_ready", ErrNotReady)
	}
	if minRatio <= 0 {
		minRatio = DefaultBlueRatio
		if hue == HueYellow {
			minRatio = DefaultYellowRatio
		}
	}

	if err := m.light(ctx, m.ledBrightness); err != nil {
		return Reference{}, err
	}
	ref, err := m.average(ctx, s, n)
	if err != nil {
		return Reference{}, m.fail(ctx, hue.String(), "sample", err)
	}

	x := math.Max(float64(ref.X)-float64(black.X), 0)
	y := math.Max(float64(ref.Y)-float64(black.Y), 0)
	z := math.Max(float64(ref.Z)-float64(black.Z), 0)
	total := x + y + z
	if total <= 0 {
		return Reference{}, m.fail(ctx, hue.String(), "no_signal", ErrNoSignal)
	}
	share := z / total
	if hue == HueYellow {
		share = (x + y) / total
	}
	if share < minRatio {
		return Reference{}, m.fail(ctx, hue.String(), "unexpected_hue",
			fmt.Errorf("%w: %s share %.3f below %.3f", ErrUnexpectedHue, hue, share, minRatio))
	}
	ref.Quality = clamp01(share)

	m.mu.Lock()
	defer m.mu.Unlock()
	// black or white may have been recaptured or reset while sampling
	if !m.data.Calibrated || !m.data.Black.same(black) {
		return Reference{}, m.fail(ctx, hue.String(), "stale",
			fmt.Errorf("%w: calibration changed during %s capture", ErrNotReady, hue))
	}
	if hue == HueYellow {
		m.data.Yellow = ref
	} else {
		m.data.Blue = ref
	}
	m.commitLocked(ctx, hue.String())
	return ref, nil
}

// CalibrateVivid measures a reference sample of known color and stores the
// per-channel correction target/actual applied after gamma encoding.
func (m *Machine) CalibrateVivid(ctx context.Context, s Sampler, n int, target model.RGB8, conv UnscaledConverter) ([3]float64, error) {
	if !m.IsCalibrated() {
		return [3]float64{}, m.fail(ctx, "vivid", "not_ready", ErrNotReady)
	}
	if err := m.light(ctx, m.ledBrightness); err != nil {
		return [3]float64{}, err
	}
	ref, err := m.average(ctx, s, n)
	if err != nil {
		return [3]float64{}, m.fail(ctx, "vivid", "sample", err)
	}
	got := conv.ConvertUnscaled(ref.Sample(), m.Snapshot())
	actual := [3]float64{float64(got.R), float64(got.G), float64(got.B)}
	want := [3]float64{float64(target.R), float64(target.G), float64(target.B)}

	var scale [3]float64
	for i := range scale {
		if actual[i] < 1 {
			return [3]float64{}, m.fail(ctx, "vivid", "no_signal", ErrNoSignal)
		}
		scale[i] = math.Min(math.Max(want[i]/actual[i], vividScaleMin), vividScaleMax)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.VividTarget = target
	m.data.VividScale = scale
	m.commitLocked(ctx, "vivid")
	return scale, nil
}

// Tuning returns the static conversion constants in use.
func (m *Machine) Tuning() Tuning {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tuning
}

// SetTuning replaces the static conversion constants, for example with a
// freshly fitted matrix, and publishes a new snapshot.
func (m *Machine) SetTuning(ctx context.Context, t Tuning) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tuning = t
	m.publishLocked()
	m.logger.Info(ctx, "conversion tuning replaced")
}

// Reset returns every reference to its default and clears the calibrated flag.
func (m *Machine) Reset(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = defaultData()
	m.data.LEDBrightness = m.ledBrightness
	m.commitLocked(ctx, "reset")
}

// average reads n samples with the machine's delay and stamps the mean.
func (m *Machine) average(ctx context.Context, s Sampler, n int) (Reference, error) {
	if n <= 0 {
		n = m.defaultSamples
	}
	raw, err := Average(ctx, s, n, m.sampleDelay)
	if err != nil {
		return Reference{}, err
	}
	return Reference{
		X:         raw.X,
		Y:         raw.Y,
		Z:         raw.Z,
		IR1:       raw.IR1,
		IR2:       raw.IR2,
		Valid:     true,
		Timestamp: m.now(),
	}, nil
}

func (m *Machine) light(ctx context.Context, level uint8) error {
	if m.illumination == nil {
		return nil
	}
	if err := m.illumination.SetBrightness(ctx, level); err != nil {
		return fmt.Errorf("set illumination: %w", err)
	}
	return nil
}

// restoreLight turns the light source back on after a dark capture. It runs
// even when ctx is already cancelled.
func (m *Machine) restoreLight(ctx context.Context) {
	if err := m.light(context.WithoutCancel(ctx), m.ledBrightness); err != nil {
		metrics.RecordErrorByComponent("calibration", "illumination")
		m.logger.Error(ctx, "light source not restored after black capture",
			logger.Int("level", int(m.ledBrightness)),
			logger.Error(err))
	}
}

// commitLocked recomputes derived state, publishes a snapshot and persists.
func (m *Machine) commitLocked(ctx context.Context, kind string) {
	m.data.Version = DataVersion
	m.data.Calibrated = m.data.Black.Valid && m.data.White.Valid && ordered(m.data.Black, m.data.White)
	m.data.UpdatedAt = m.now()
	m.publishLocked()

	metrics.RecordCalibrationCapture(kind)
	m.logger.Info(ctx, "calibration updated",
		logger.String("step", kind),
		logger.Any("calibrated", m.data.Calibrated))

	if m.persistence != nil {
		if err := m.persistence.Save(ctx, m.data); err != nil {
			metrics.RecordErrorByComponent("calibration", "persist")
			m.logger.Error(ctx, "calibration save failed", logger.Error(err))
		}
	}
}

func (m *Machine) publishLocked() {
	m.generation++
	m.params.Store(BuildParams(m.data, m.tuning, m.generation))
	metrics.UpdateCalibrated(m.data.Calibrated)
}

func (m *Machine) fail(ctx context.Context, kind, reason string, err error) error {
	metrics.RecordCalibrationFailure(kind, reason)
	m.logger.Warn(ctx, "calibration step failed",
		logger.String("step", kind),
		logger.String("reason", reason),
		logger.Error(err))
	return err
}

func clamp01(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}
