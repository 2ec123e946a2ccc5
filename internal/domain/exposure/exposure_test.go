package exposure_test

import (
	"testing"
	"time"

	"github.com/okian/huematch/internal/domain/exposure"
	"github.com/okian/huematch/internal/domain/model"
	"github.com/okian/huematch/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const threshold = 60000

func newController() *exposure.Controller {
	return exposure.NewController(
		exposure.WithInitial(model.Gain16x, 100),
		exposure.WithIntegrationRange(10, 50, 130),
	)
}

func TestControllerStable(t *testing.T) {
	Convey("A constant mid-range ratio never changes integration time", t, func() {
		c := newController()
		for i := 0; i < 50; i++ {
			s, changed := c.Update(threshold/2, threshold)
			So(changed, ShouldBeFalse)
			So(s.IntegrationMs, ShouldEqual, 100)
		}
		So(c.MeanRatio(), ShouldAlmostEqual, 0.5, 1e-9)
	})
}

func TestControllerSaturation(t *testing.T) {
	Convey("Given a controller at 100ms", t, func() {
		c := newController()

		Convey("Saturated readings shorten integration after three cycles", func() {
			_, changed := c.Update(threshold, threshold)
			So(changed, ShouldBeFalse)
			_, changed = c.Update(threshold, threshold)
			So(changed, ShouldBeFalse)
			s, changed := c.Update(threshold, threshold)
			So(changed, ShouldBeTrue)
			So(s.IntegrationMs, ShouldEqual, 90)
			So(s.Gain, ShouldEqual, model.Gain16x)

			Convey("And the counter restarts", func() {
				_, changed = c.Update(threshold, threshold)
				So(changed, ShouldBeFalse)
			})
		})

		Convey("Dark readings lengthen integration up to the cap", func() {
			var last exposure.Settings
			for i := 0; i < 30; i++ {
				last, _ = c.Update(1000, threshold)
			}
			So(last.IntegrationMs, ShouldEqual, 130)
			So(c.Settings().IntegrationMs, ShouldEqual, 130)
		})

		Convey("Saturated readings shorten integration down to the floor", func() {
			for i := 0; i < 30; i++ {
				c.Update(threshold, threshold)
			}
			So(c.Settings().IntegrationMs, ShouldEqual, 50)
		})

		Convey("A reading between thresholds resets the persistence count", func() {
			c.Update(threshold, threshold)
			c.Update(threshold, threshold)
			// Pulls the five-slot mean back under 0.9.
			c.Update(0, threshold)
			_, changed := c.Update(threshold, threshold)
			So(changed, ShouldBeFalse)
		})

		Convey("A zero threshold is ignored", func() {
			s, changed := c.Update(500, 0)
			So(changed, ShouldBeFalse)
			So(s.IntegrationMs, ShouldEqual, 100)
			So(c.MeanRatio(), ShouldEqual, 0)
		})

		Convey("Reset clears the history", func() {
			c.Update(threshold, threshold)
			c.Reset()
			So(c.MeanRatio(), ShouldEqual, 0)
		})
	})
}

func TestBrightness(t *testing.T) {
	Convey("Given a brightness controller at level 100", t, func() {
		clock := time.Unix(0, 0)
		b := exposure.NewBrightness(100,
			exposure.WithBrightnessClock(func() time.Time { return clock }),
			exposure.WithSettleDelay(time.Second),
		)

		Convey("Readings inside the hysteresis band hold", func() {
			for _, v := range []uint16{43001, 50000, 59999} {
				level, adj := b.Update(v)
				So(adj, ShouldEqual, exposure.Hold)
				So(level, ShouldEqual, 100)
			}
		})

		Convey("A bright reading lowers the level", func() {
			level, adj := b.Update(62000)
			So(adj, ShouldEqual, exposure.Decreased)
			So(level, ShouldEqual, 90)

			Convey("And the next change waits for the settle delay", func() {
				_, adj = b.Update(62000)
				So(adj, ShouldEqual, exposure.Settling)
				clock = clock.Add(time.Second)
				level, adj = b.Update(62000)
				So(adj, ShouldEqual, exposure.Decreased)
				So(level, ShouldEqual, 80)
			})
		})

		Convey("A dark reading raises the level up to the maximum", func() {
			var level uint8
			var adj exposure.Adjustment
			for i := 0; i < 20; i++ {
				level, adj = b.Update(1000)
				clock = clock.Add(time.Second)
			}
			So(level, ShouldEqual, 220)
			So(adj, ShouldEqual, exposure.AtMax)
			So(adj.String(), ShouldEqual, "at_max")
		})
	})
}
