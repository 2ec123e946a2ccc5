package calibration

import "math"

// Matrix is a row-major 3x3 matrix.
type Matrix [9]float64

// Apply returns m·v.
func (m Matrix) Apply(v [3]float64) [3]float64 {
	return [3]float64{
		m[0]*v[0] + m[1]*v[1] + m[2]*v[2],
		m[3]*v[0] + m[4]*v[1] + m[5]*v[2],
		m[6]*v[0] + m[7]*v[1] + m[8]*v[2],
	}
}

// Quadratic holds a·x² + b·x + c.
type Quadratic struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
	C float64 `json:"c"`
}

// Eval evaluates the polynomial at x.
func (q Quadratic) Eval(x float64) float64 { return q.A*x*x + q.B*x + q.C }

// Tuning holds the operator-supplied conversion constants that do not come
// from reference captures.
type Tuning struct {
	IRFactor1     float64
	IRFactor2     float64
	DynamicIR     bool
	IRThreshold   float64 // (IR1+IR2)/Y ratio above which the high factors apply
	HighIRFactor1 float64
	HighIRFactor2 float64

	BrightMatrix Matrix
	DarkMatrix   Matrix
	Offset       [3]float64

	BrightQuadratic [3]Quadratic
	DarkQuadratic   [3]Quadratic

	// BrightnessThreshold splits bright/dark on compensated Y. When
	// calibrated it is placed at BrightnessFraction of the black..white span.
	BrightnessThreshold float64
	BrightnessFraction  float64

	SaturationLimit float64
}

// DefaultTuning returns the factory constants of the sensor head.
func DefaultTuning() Tuning {
	quad := [3]Quadratic{
		{A: 5.756615248518086e-06, B: -0.10824971353127427, C: 663.2283515839658},
		{A: 7.700364703908128e-06, B: -0.14873455804115546, C: 855.288778468652},
		{A: -2.7588632792769936e-06, B: 0.04959423885676833, C: 35.55576869603341},
	}
	return Tuning{
		IRFactor1:     0.05,
		IRFactor2:     0.025,
		IRThreshold:   0.25,
		HighIRFactor1: 0.20,
		HighIRFactor2: 0.20,
		BrightMatrix: Matrix{
			0.1054, -0.017, -0.026,
			-0.017, 0.0785, 0.0017,
			0.0052, -0.01, 0.1268,
		},
		DarkMatrix: Matrix{
			0.037, -0.012, -0.008,
			-0.012, 0.032, 0.002,
			0.002, -0.004, 0.058,
		},
		BrightQuadratic:     quad,
		DarkQuadratic:       quad,
		BrightnessThreshold: 8000,
		BrightnessFraction:  0.15,
		SaturationLimit:     255,
	}
}

// Params is an immutable snapshot of everything a converter needs. A new
// snapshot is built whenever calibration data changes; it is never mutated.
type Params struct {
	Generation uint64
	Calibrated bool

	Black [3]float64 // X, Y, Z
	White [3]float64
	Range [3]float64 // max(white-black, minRange)

	IRFactor1     float64
	IRFactor2     float64
	DynamicIR     bool
	IRThreshold   float64
	HighIRFactor1 float64
	HighIRFactor2 float64

	BrightMatrix Matrix
	DarkMatrix   Matrix
	Offset       [3]float64

	BrightQuadratic [3]Quadratic
	DarkQuadratic   [3]Quadratic

	BrightnessThreshold float64
	SaturationLimit     float64

	VividScale [3]float64
}

// MinRange floors every per-channel divisor.
const MinRange = 1.0

// BuildParams derives a conversion snapshot. It is the only reader of raw
// reference fields.
func BuildParams(d Data, t Tuning, generation uint64) *Params {
	p := &Params{
		Generation:      generation,
		Calibrated:      d.Calibrated,
		Black:           d.Black.xyz(),
		White:           d.White.xyz(),
		IRFactor1:       t.IRFactor1,
		IRFactor2:       t.IRFactor2,
		DynamicIR:       t.DynamicIR,
		IRThreshold:     t.IRThreshold,
		HighIRFactor1:   t.HighIRFactor1,
		HighIRFactor2:   t.HighIRFactor2,
		BrightMatrix:    t.BrightMatrix,
		DarkMatrix:      t.DarkMatrix,
		Offset:          t.Offset,
		BrightQuadratic: t.BrightQuadratic,
		DarkQuadratic:   t.DarkQuadratic,
		SaturationLimit: t.SaturationLimit,
		VividScale:      d.VividScale,
	}
	if !d.Black.Valid {
		p.Black = [3]float64{}
	}
	if !d.White.Valid {
		p.White = [3]float64{65535, 65535, 65535}
	}
	for i := range p.Range {
		p.Range[i] = math.Max(p.White[i]-p.Black[i], MinRange)
	}
	if p.SaturationLimit <= 0 {
		p.SaturationLimit = 255
	}
	for i, s := range p.VividScale {
		if s <= 0 || math.IsNaN(s) || math.IsInf(s, 0) {
			p.VividScale[i] = 1
		}
	}

	p.BrightnessThreshold = t.BrightnessThreshold
	if d.Calibrated && t.BrightnessFraction > 0 {
		p.BrightnessThreshold = p.Black[1] + t.BrightnessFraction*p.Range[1]
	}
	return p
}
