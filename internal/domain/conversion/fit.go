package conversion

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/okian/huematch/internal/domain/calibration"
)

// Pair is one measured patch: the IR-compensated sensor reading and the RGB
// the patch is known to have.
type Pair struct {
	XYZ [3]float64
	RGB [3]float64
}

// MinFitPairs is the smallest number of patches that determines a matrix
// with offset.
const MinFitPairs = 4

const rankTolerance = 1e-10

// SolveMatrix fits rgb = M·xyz + offset over pairs by least squares.
func SolveMatrix(pairs []Pair) (calibration.Matrix, [3]float64, error) {
	var m calibration.Matrix
	var offset [3]float64
	if len(pairs) < MinFitPairs {
		return m, offset, fmt.Errorf("%w: have %d, need %d", ErrTooFewPairs, len(pairs), MinFitPairs)
	}

	n := len(pairs)
	A := mat.NewDense(n, 4, nil)
	B := mat.NewDense(n, 3, nil)
	for i, p := range pairs {
		A.SetRow(i, []float64{p.XYZ[0], p.XYZ[1], p.XYZ[2], 1})
		B.SetRow(i, p.RGB[:])
	}

	var qr mat.QR
	qr.Factorize(A)

	var r mat.Dense
	qr.RTo(&r)
	lead := math.Abs(r.At(0, 0))
	for i := 0; i < 4; i++ {
		if math.Abs(r.At(i, i)) <= lead*rankTolerance {
			return m, offset, fmt.Errorf("%w: rank deficient at column %d", ErrSingular, i)
		}
	}

	var coef mat.Dense
	if err := qr.SolveTo(&coef, false, B); err != nil {
		return m, offset, fmt.Errorf("%w: %v", ErrSingular, err)
	}

	// coef is 4x3: rows are X, Y, Z, 1; columns are R, G, B.
	for ch := 0; ch < 3; ch++ {
		for in := 0; in < 3; in++ {
			m[ch*3+in] = coef.At(in, ch)
		}
		offset[ch] = coef.At(3, ch)
	}
	return m, offset, nil
}

// FitTuning returns t with its bright and dark matrices replaced by a fit
// over pairs.
func FitTuning(t calibration.Tuning, pairs []Pair) (calibration.Tuning, error) {
	m, offset, err := SolveMatrix(pairs)
	if err != nil {
		return t, err
	}
	t.BrightMatrix = m
	t.DarkMatrix = m
	t.Offset = offset
	return t, nil
}
