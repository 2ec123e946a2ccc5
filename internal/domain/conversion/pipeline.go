// Package conversion turns raw tristimulus samples into calibrated RGB.
//
// A Converter is chosen once from configuration; every call receives the
// current immutable calibration snapshot.
package conversion

import (
	"fmt"
	"math"
	"strings"

	"github.com/okian/huematch/internal/domain/calibration"
	"github.com/okian/huematch/internal/domain/model"
)

// Strategy names a conversion algorithm.
type Strategy string

// Supported strategies.
const (
	StrategyMatrix         Strategy = "matrix"
	StrategyQuadratic      Strategy = "quadratic"
	StrategyNormalizedSRGB Strategy = "normalized_srgb"
	StrategyUncalibrated   Strategy = "uncalibrated"
)

// Converter maps a raw sample to 8-bit RGB.
type Converter interface {
	Convert(raw model.RawSample, p *calibration.Params) model.RGB8
	Strategy() Strategy
}

// ParseStrategy accepts a strategy name, case-insensitively.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case StrategyMatrix, StrategyQuadratic, StrategyNormalizedSRGB, StrategyUncalibrated:
		return st, nil
	case "":
		return StrategyNormalizedSRGB, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

// New returns the converter for a strategy.
func New(s Strategy) (Converter, error) {
	switch s {
	case StrategyMatrix:
		return Matrix{}, nil
	case StrategyQuadratic:
		return Quadratic{}, nil
	case StrategyNormalizedSRGB, "":
		return NormalizedSRGB{}, nil
	case StrategyUncalibrated:
		return Uncalibrated{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

// compensateIR subtracts the infrared leakage term from X, Y and Z.
// Negative results are clipped to zero.
func compensateIR(raw model.RawSample, p *calibration.Params) [3]float64 {
	f1, f2 := p.IRFactor1, p.IRFactor2
	ir1, ir2 := float64(raw.IR1), float64(raw.IR2)
	if p.DynamicIR && raw.Y > 0 && (ir1+ir2)/float64(raw.Y) > p.IRThreshold {
		f1, f2 = p.HighIRFactor1, p.HighIRFactor2
	}
	leak := f1*ir1 + f2*ir2
	return [3]float64{
		math.Max(float64(raw.X)-leak, 0),
		math.Max(float64(raw.Y)-leak, 0),
		math.Max(float64(raw.Z)-leak, 0),
	}
}

// clampByte clamps v to [0, limit] (limit <= 255) and rounds.
func clampByte(v, limit float64) uint8 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if limit > 255 {
		limit = 255
	}
	if v > limit {
		v = limit
	}
	return uint8(math.Round(v))
}

func toRGB8(v [3]float64, limit float64) model.RGB8 {
	return model.RGB8{R: clampByte(v[0], limit), G: clampByte(v[1], limit), B: clampByte(v[2], limit)}
}

// Matrix applies IR compensation, then a bright or dark 3x3 matrix plus offset.
type Matrix struct{}

func (Matrix) Strategy() Strategy { return StrategyMatrix }

func (Matrix) Convert(raw model.RawSample, p *calibration.Params) model.RGB8 {
	xyz := compensateIR(raw, p)
	m := p.DarkMatrix
	if xyz[1] > p.BrightnessThreshold {
		m = p.BrightMatrix
	}
	rgb := m.Apply(xyz)
	for i := range rgb {
		rgb[i] += p.Offset[i]
	}
	return toRGB8(rgb, p.SaturationLimit)
}

// Quadratic fits each output channel to a polynomial of one input channel.
type Quadratic struct{}

func (Quadratic) Strategy() Strategy { return StrategyQuadratic }

func (Quadratic) Convert(raw model.RawSample, p *calibration.Params) model.RGB8 {
	xyz := compensateIR(raw, p)
	coeffs := p.DarkQuadratic
	if xyz[1] > p.BrightnessThreshold {
		coeffs = p.BrightQuadratic
	}
	var rgb [3]float64
	for i := range rgb {
		rgb[i] = coeffs[i].Eval(xyz[i])
	}
	return toRGB8(rgb, p.SaturationLimit)
}
