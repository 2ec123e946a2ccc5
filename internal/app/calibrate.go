package app

import (
	"context"

	"github.com/okian/huematch/internal/domain/calibration"
	"github.com/okian/huematch/internal/domain/conversion"
	"github.com/okian/huematch/pkg/logger"
)

// CaptureBlack records the black reference.
func (e *Engine) CaptureBlack(ctx context.Context) (calibration.Reference, error) {
	return e.calibrate(ctx, func(m *calibration.Machine) (calibration.Reference, error) {
		return m.CaptureBlack(ctx, e.sensor, e.cfg.SampleCount)
	})
}

// CaptureWhite records the white reference.
func (e *Engine) CaptureWhite(ctx context.Context) (calibration.Reference, error) {
	return e.calibrate(ctx, func(m *calibration.Machine) (calibration.Reference, error) {
		return m.CaptureWhite(ctx, e.sensor, e.cfg.SampleCount)
	})
}

// CaptureHue records a blue or yellow validation target with the default
// channel share threshold.
func (e *Engine) CaptureHue(ctx context.Context, hue calibration.Hue) (calibration.Reference, error) {
	return e.calibrate(ctx, func(m *calibration.Machine) (calibration.Reference, error) {
		return m.CaptureHueReference(ctx, e.sensor, e.cfg.SampleCount, hue, 0)
	})
}

// CalibrateVivid scales output so the current target renders as VividTarget.
func (e *Engine) CalibrateVivid(ctx context.Context) ([3]float64, error) {
	var scale [3]float64
	_, err := e.calibrate(ctx, func(m *calibration.Machine) (calibration.Reference, error) {
		conv, ok := e.converter.(calibration.UnscaledConverter)
		if !ok {
			conv = conversion.NormalizedSRGB{}
		}
		var err error
		scale, err = m.CalibrateVivid(ctx, e.sensor, e.cfg.SampleCount, VividTarget, conv)
		return calibration.Reference{}, err
	})
	return scale, err
}

// ResetCalibration discards every reference.
func (e *Engine) ResetCalibration(ctx context.Context) error {
	_, err := e.calibrate(ctx, func(m *calibration.Machine) (calibration.Reference, error) {
		m.Reset(ctx)
		return calibration.Reference{}, nil
	})
	return err
}

// FitColorMatrix solves the matrix strategy's coefficients from measured
// pairs and installs them.
func (e *Engine) FitColorMatrix(ctx context.Context, pairs []conversion.Pair) error {
	_, err := e.calibrate(ctx, func(m *calibration.Machine) (calibration.Reference, error) {
		t, err := conversion.FitTuning(m.Tuning(), pairs)
		if err != nil {
			return calibration.Reference{}, err
		}
		m.SetTuning(ctx, t)
		return calibration.Reference{}, nil
	})
	return err
}

// Calibration returns a copy of the current calibration data.
func (e *Engine) Calibration() (calibration.Data, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.started {
		return calibration.Data{}, ErrNotStarted
	}
	return e.machine.Data(), nil
}

// calibrate runs step with the sensor to itself. A successful step changes
// what every colour converts to, so cached lookups and smoothing history
// are dropped.
func (e *Engine) calibrate(ctx context.Context, step func(*calibration.Machine) (calibration.Reference, error)) (calibration.Reference, error) {
	e.mu.RLock()
	started := e.started
	e.mu.RUnlock()
	if !started {
		return calibration.Reference{}, ErrNotStarted
	}

	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()

	ref, err := step(e.machine)
	if err != nil {
		return ref, err
	}
	e.orch.Invalidate()
	e.smoother.Reset()
	e.logger.Info(ctx, "calibration step applied", logger.String("state", e.machine.State().String()))
	return ref, nil
}
