package model_test

import (
	"testing"

	model "github.com/okian/huematch/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestRGB8(t *testing.T) {
	convey.Convey("Given an RGB8 value", t, func() {
		c := model.RGB8{R: 255, G: 8, B: 0}

		convey.Convey("Then it should render as hex and rgb()", func() {
			convey.So(c.Hex(), convey.ShouldEqual, "#ff0800")
			convey.So(c.String(), convey.ShouldEqual, "rgb(255,8,0)")
		})
	})
}

func TestRawSample_Max(t *testing.T) {
	convey.Convey("Given raw samples", t, func() {
		convey.So(model.RawSample{X: 1, Y: 9, Z: 3}.Max(), convey.ShouldEqual, 9)
		convey.So(model.RawSample{X: 10, Y: 9, Z: 30, IR1: 60000}.Max(), convey.ShouldEqual, 30)
		convey.So(model.RawSample{}.Max(), convey.ShouldEqual, 0)
	})
}

func TestGain(t *testing.T) {
	convey.Convey("Given each gain step", t, func() {
		convey.So(model.Gain1x.Multiplier(), convey.ShouldEqual, 1)
		convey.So(model.Gain4x.Multiplier(), convey.ShouldEqual, 4)
		convey.So(model.Gain16x.Multiplier(), convey.ShouldEqual, 16)
		convey.So(model.Gain64x.String(), convey.ShouldEqual, "64x")
	})
}

func TestMethodAndStatus(t *testing.T) {
	convey.Convey("Given methods and statuses", t, func() {
		convey.So(model.MethodIndex.String(), convey.ShouldEqual, "index")
		convey.So(model.MethodLinear.String(), convey.ShouldEqual, "linear")
		convey.So(model.MethodHeuristic.String(), convey.ShouldEqual, "heuristic")
		convey.So(model.MethodCached.String(), convey.ShouldEqual, "cached")
		convey.So(model.Method(42).String(), convey.ShouldEqual, "unknown")
		convey.So(model.StatusBusy.String(), convey.ShouldEqual, "busy")
		convey.So(model.StatusOK.String(), convey.ShouldEqual, "ok")
	})
}
