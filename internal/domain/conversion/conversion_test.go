package conversion_test

import (
	"errors"
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/huematch/internal/domain/calibration"
	"github.com/okian/huematch/internal/domain/conversion"
	"github.com/okian/huematch/internal/domain/model"
)

var (
	black = calibration.Reference{X: 1000, Y: 1100, Z: 900, Valid: true}
	white = calibration.Reference{X: 41000, Y: 43100, Z: 38900, Valid: true}
)

func calibratedParams(scale [3]float64) *calibration.Params {
	return calibration.BuildParams(calibration.Data{
		Version:    calibration.DataVersion,
		Black:      black,
		White:      white,
		VividScale: scale,
		Calibrated: true,
	}, calibration.DefaultTuning(), 1)
}

func TestNormalizedSRGB(t *testing.T) {
	Convey("Given a calibrated snapshot", t, func() {
		p := calibratedParams([3]float64{1, 1, 1})
		conv := conversion.NormalizedSRGB{}

		Convey("The white reference renders as full white", func() {
			got := conv.ConvertUnscaled(white.Sample(), p)
			So(got, ShouldResemble, model.RGB8{R: 255, G: 255, B: 255})
		})

		Convey("The black reference renders as black", func() {
			So(conv.Convert(black.Sample(), p), ShouldResemble, model.RGB8{})
		})

		Convey("Readings below black clip to zero", func() {
			So(conv.Convert(model.RawSample{X: 10, Y: 10, Z: 10}, p), ShouldResemble, model.RGB8{})
		})

		Convey("A half-span reading is mid grey after gamma", func() {
			raw := model.RawSample{X: 21000, Y: 22100, Z: 19900}
			So(conv.Convert(raw, p), ShouldResemble, model.RGB8{R: 188, G: 188, B: 188})
		})

		Convey("Readings above white saturate", func() {
			raw := model.RawSample{X: 65535, Y: 65535, Z: 65535}
			So(conv.Convert(raw, p), ShouldResemble, model.RGB8{R: 255, G: 255, B: 255})
		})

		Convey("The vivid scale applies after encoding", func() {
			scaled := calibratedParams([3]float64{0.8, 1, 1})
			So(conv.Convert(white.Sample(), scaled), ShouldResemble, model.RGB8{R: 204, G: 255, B: 255})
			So(conv.ConvertUnscaled(white.Sample(), scaled), ShouldResemble, model.RGB8{R: 255, G: 255, B: 255})
		})
	})
}

func TestMatrixAndQuadratic(t *testing.T) {
	p := calibration.BuildParams(calibration.Data{VividScale: [3]float64{1, 1, 1}}, calibration.DefaultTuning(), 1)

	Convey("The matrix strategy uses the dark matrix below the threshold", t, func() {
		got := conversion.Matrix{}.Convert(model.RawSample{X: 2000, Y: 2100, Z: 1900}, p)
		So(got, ShouldResemble, model.RGB8{R: 34, G: 47, B: 106})
	})

	Convey("The matrix strategy clamps bright readings", t, func() {
		got := conversion.Matrix{}.Convert(model.RawSample{X: 30000, Y: 32000, Z: 28000, IR1: 1000, IR2: 1000}, p)
		So(got.R, ShouldEqual, 255)
	})

	Convey("Heavy IR leakage never goes negative", t, func() {
		got := conversion.Matrix{}.Convert(model.RawSample{X: 10, Y: 10, Z: 10, IR1: 60000, IR2: 60000}, p)
		So(got, ShouldResemble, model.RGB8{})
	})

	Convey("Dynamic IR switches to the high factors for IR-heavy light", t, func() {
		tuning := calibration.DefaultTuning()
		tuning.DynamicIR = true
		dyn := calibration.BuildParams(calibration.Data{VividScale: [3]float64{1, 1, 1}}, tuning, 1)
		raw := model.RawSample{X: 2000, Y: 2000, Z: 2000, IR1: 500, IR2: 500}

		So(conversion.Matrix{}.Convert(raw, dyn), ShouldResemble, model.RGB8{R: 31, G: 40, B: 101})
		So(conversion.Matrix{}.Convert(raw, p).R, ShouldEqual, 33)
	})

	Convey("The quadratic strategy evaluates each channel", t, func() {
		got := conversion.Quadratic{}.Convert(model.RawSample{X: 9000, Y: 9500, Z: 8000}, p)
		So(got, ShouldResemble, model.RGB8{R: 155, G: 137, B: 255})
	})
}

func TestUncalibrated(t *testing.T) {
	Convey("Full-scale raw counts map through the plain sRGB matrix", t, func() {
		got := conversion.Uncalibrated{}.Convert(model.RawSample{X: 65535, Y: 65535, Z: 65535}, nil)
		So(got, ShouldResemble, model.RGB8{R: 255, G: 249, B: 244})
	})
}

func TestNewAndParse(t *testing.T) {
	Convey("Strategy names resolve", t, func() {
		for _, name := range []string{"matrix", "Quadratic", " normalized_srgb ", "uncalibrated"} {
			st, err := conversion.ParseStrategy(name)
			So(err, ShouldBeNil)
			conv, err := conversion.New(st)
			So(err, ShouldBeNil)
			So(conv.Strategy(), ShouldEqual, st)
		}
		st, err := conversion.ParseStrategy("")
		So(err, ShouldBeNil)
		So(st, ShouldEqual, conversion.StrategyNormalizedSRGB)
	})

	Convey("Unknown strategies are rejected", t, func() {
		_, err := conversion.ParseStrategy("lut")
		So(errors.Is(err, conversion.ErrUnknownStrategy), ShouldBeTrue)
		_, err = conversion.New("lut")
		So(errors.Is(err, conversion.ErrUnknownStrategy), ShouldBeTrue)
	})
}

func TestSolveMatrix(t *testing.T) {
	Convey("Given patches generated from a known affine map", t, func() {
		want := calibration.Matrix{
			0.01, -0.002, 0.0005,
			-0.003, 0.012, 0.001,
			0.0002, -0.001, 0.015,
		}
		wantOffset := [3]float64{2, -1, 0.5}
		var pairs []conversion.Pair
		for _, xyz := range [][3]float64{
			{1000, 1200, 900}, {20000, 21000, 5000}, {4000, 15000, 3000},
			{3000, 2500, 22000}, {30000, 31000, 29000}, {12000, 9000, 16000},
		} {
			rgb := want.Apply(xyz)
			for i := range rgb {
				rgb[i] += wantOffset[i]
			}
			pairs = append(pairs, conversion.Pair{XYZ: xyz, RGB: rgb})
		}

		Convey("The least-squares fit recovers it", func() {
			m, offset, err := conversion.SolveMatrix(pairs)
			So(err, ShouldBeNil)
			for i := range m {
				So(m[i], ShouldAlmostEqual, want[i], 1e-8)
			}
			for i := range offset {
				So(offset[i], ShouldAlmostEqual, wantOffset[i], 1e-6)
			}
		})

		Convey("FitTuning installs the matrix for both brightness bands", func() {
			tuned, err := conversion.FitTuning(calibration.DefaultTuning(), pairs)
			So(err, ShouldBeNil)
			So(math.Abs(tuned.BrightMatrix[0]-want[0]), ShouldBeLessThan, 1e-8)
			So(tuned.DarkMatrix, ShouldResemble, tuned.BrightMatrix)
		})
	})

	Convey("Too few patches are rejected", t, func() {
		_, _, err := conversion.SolveMatrix(make([]conversion.Pair, 3))
		So(errors.Is(err, conversion.ErrTooFewPairs), ShouldBeTrue)
	})

	Convey("Identical patches do not determine a matrix", t, func() {
		p := conversion.Pair{XYZ: [3]float64{100, 100, 100}, RGB: [3]float64{1, 1, 1}}
		_, _, err := conversion.SolveMatrix([]conversion.Pair{p, p, p, p})
		So(errors.Is(err, conversion.ErrSingular), ShouldBeTrue)
	})
}

func TestSmoother(t *testing.T) {
	Convey("The first value passes through and later ones blend", t, func() {
		s := &conversion.Smoother{Factor: 0.5}
		So(s.Apply(model.RGB8{R: 100}), ShouldResemble, model.RGB8{R: 100})
		So(s.Apply(model.RGB8{R: 200}), ShouldResemble, model.RGB8{R: 150})
		s.Reset()
		So(s.Apply(model.RGB8{R: 10}), ShouldResemble, model.RGB8{R: 10})
	})

	Convey("A zero factor disables smoothing", t, func() {
		s := &conversion.Smoother{}
		s.Apply(model.RGB8{G: 100})
		So(s.Apply(model.RGB8{G: 0}), ShouldResemble, model.RGB8{})
	})
}
