package conversion

import (
	"math"

	"github.com/okian/huematch/internal/domain/calibration"
	"github.com/okian/huematch/internal/domain/model"
)

// xyzToLinearSRGB is the standard D65 XYZ to linear sRGB matrix.
var xyzToLinearSRGB = calibration.Matrix{
	3.2406, -1.5372, -0.4986,
	-0.9689, 1.8758, 0.0415,
	0.0557, -0.2040, 1.0570,
}

// whiteRow holds xyzToLinearSRGB·(1,1,1); dividing by it maps a normalized
// white to linear RGB exactly 1.0.
var whiteRow = xyzToLinearSRGB.Apply([3]float64{1, 1, 1})

const (
	gammaLinearLimit  = 0.0031308
	uncalibratedGamma = 1 / 2.2
)

// EncodeGamma applies the sRGB transfer curve to a linear value in [0,1].
func EncodeGamma(c float64) float64 {
	if c <= gammaLinearLimit {
		return 12.92 * c
	}
	return 1.055*math.Pow(c, 1/2.4) - 0.055
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(math.Max(v, 0), 1)
}

// NormalizedSRGB subtracts black, normalizes by the black..white span,
// converts to gamma-encoded sRGB with white pinned at 255, and finally
// applies the vivid target-scale correction.
type NormalizedSRGB struct{}

func (NormalizedSRGB) Strategy() Strategy { return StrategyNormalizedSRGB }

func (n NormalizedSRGB) Convert(raw model.RawSample, p *calibration.Params) model.RGB8 {
	enc := n.encoded(raw, p)
	for i := range enc {
		enc[i] *= p.VividScale[i]
	}
	return toRGB8(enc, 255)
}

// ConvertUnscaled stops before the vivid correction.
func (n NormalizedSRGB) ConvertUnscaled(raw model.RawSample, p *calibration.Params) model.RGB8 {
	return toRGB8(n.encoded(raw, p), 255)
}

func (NormalizedSRGB) encoded(raw model.RawSample, p *calibration.Params) [3]float64 {
	in := [3]float64{float64(raw.X), float64(raw.Y), float64(raw.Z)}
	var norm [3]float64
	for i := range norm {
		rng := math.Max(p.Range[i], calibration.MinRange)
		norm[i] = math.Max(in[i]-p.Black[i], 0) / rng
	}
	lin := xyzToLinearSRGB.Apply(norm)
	var out [3]float64
	for i := range out {
		out[i] = EncodeGamma(clamp01(lin[i]/whiteRow[i])) * 255
	}
	return out
}

// Uncalibrated treats the raw counts as absolute XYZ. Only useful to compare
// against the calibrated strategies.
type Uncalibrated struct{}

func (Uncalibrated) Strategy() Strategy { return StrategyUncalibrated }

func (Uncalibrated) Convert(raw model.RawSample, _ *calibration.Params) model.RGB8 {
	xyz := [3]float64{
		float64(raw.X) / model.FullScale,
		float64(raw.Y) / model.FullScale,
		float64(raw.Z) / model.FullScale,
	}
	lin := xyzToLinearSRGB.Apply(xyz)
	var out [3]float64
	for i := range out {
		out[i] = math.Pow(clamp01(lin[i]), uncalibratedGamma) * 255
	}
	return toRGB8(out, 255)
}
