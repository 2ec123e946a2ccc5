package spatial

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/okian/huematch/internal/domain/model"
	"github.com/okian/huematch/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func randomPoints(rng *rand.Rand, n int) []model.ColorPoint {
	pts := make([]model.ColorPoint, n)
	for i := range pts {
		pts[i] = model.ColorPoint{
			R:     uint8(rng.Intn(256)),
			G:     uint8(rng.Intn(256)),
			B:     uint8(rng.Intn(256)),
			Index: i,
		}
	}
	return pts
}

func sqDist(p model.ColorPoint, c model.RGB8) int {
	dr := int(p.R) - int(c.R)
	dg := int(p.G) - int(c.G)
	db := int(p.B) - int(c.B)
	return dr*dr + dg*dg + db*db
}

func bruteForce(pts []model.ColorPoint, c model.RGB8) int {
	best := -1
	for _, p := range pts {
		if d := sqDist(p, c); best < 0 || d < best {
			best = d
		}
	}
	return best
}

func TestKDTree_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, size := range []int{2, 3, 17, 256, 4500} {
		pts := randomPoints(rng, size)
		idx := NewKDTree()
		if err := idx.Build(context.Background(), pts); err != nil {
			t.Fatalf("build %d: %v", size, err)
		}
		if idx.NodeCount() != size {
			t.Errorf("expected %d nodes, got %d", size, idx.NodeCount())
		}
		for q := 0; q < 500; q++ {
			c := model.RGB8{R: uint8(rng.Intn(256)), G: uint8(rng.Intn(256)), B: uint8(rng.Intn(256))}
			got, ok := idx.FindNearest(c)
			if !ok {
				t.Fatalf("size %d: no result for %v", size, c)
			}
			if want := bruteForce(pts, c); sqDist(got, c) != want {
				t.Fatalf("size %d query %v: index distance %d, brute force %d", size, c, sqDist(got, c), want)
			}
			if pts[got.Index] != got {
				t.Fatalf("returned point does not carry its own record index: %+v", got)
			}
		}
	}
}

func TestKDTree_DuplicatesAndClusters(t *testing.T) {
	pts := make([]model.ColorPoint, 0, 300)
	for i := 0; i < 100; i++ {
		pts = append(pts,
			model.ColorPoint{R: 10, G: 10, B: 10, Index: len(pts)},
			model.ColorPoint{R: 10, G: 200, B: 10, Index: len(pts) + 1},
			model.ColorPoint{R: 10, G: 10, B: byte(i), Index: len(pts) + 2},
		)
	}
	idx := NewKDTree()
	if err := idx.Build(context.Background(), pts); err != nil {
		t.Fatalf("build: %v", err)
	}
	rng := rand.New(rand.NewSource(11))
	for q := 0; q < 300; q++ {
		c := model.RGB8{R: uint8(rng.Intn(256)), G: uint8(rng.Intn(256)), B: uint8(rng.Intn(256))}
		got, _ := idx.FindNearest(c)
		if want := bruteForce(pts, c); sqDist(got, c) != want {
			t.Fatalf("query %v: got %d want %d", c, sqDist(got, c), want)
		}
	}
}

func TestKDTree_Degenerate(t *testing.T) {
	Convey("Given an index built from no points", t, func() {
		idx := NewKDTree()
		err := idx.Build(context.Background(), nil)

		Convey("Then it reports empty and answers nothing", func() {
			So(err, ShouldEqual, ErrEmpty)
			So(idx.IsBuilt(), ShouldBeFalse)
			_, ok := idx.FindNearest(model.RGB8{R: 1, G: 2, B: 3})
			So(ok, ShouldBeFalse)
			So(idx.NodeCount(), ShouldEqual, 0)
			So(idx.MemoryUsage(), ShouldEqual, 0)
			So(idx.Covered(), ShouldEqual, 0)
		})
	})

	Convey("Given an index with a single point at record zero", t, func() {
		idx := NewKDTree()
		only := model.ColorPoint{R: 40, G: 50, B: 60, Index: 0}
		So(idx.Build(context.Background(), []model.ColorPoint{only}), ShouldBeNil)

		Convey("Then every query returns that point", func() {
			for _, c := range []model.RGB8{{}, {R: 255, G: 255, B: 255}, {R: 40, G: 50, B: 60}} {
				got, ok := idx.FindNearest(c)
				So(ok, ShouldBeTrue)
				So(got, ShouldResemble, only)
			}
			So(idx.IsBuilt(), ShouldBeTrue)
			So(idx.NodeCount(), ShouldEqual, 1)
			So(idx.MemoryUsage(), ShouldBeGreaterThan, 0)
		})
	})
}

func TestKDTree_Limits(t *testing.T) {
	Convey("Given a point cap smaller than the palette", t, func() {
		pts := randomPoints(rand.New(rand.NewSource(3)), 100)
		idx := NewKDTree(WithMaxPoints(10))
		So(idx.Build(context.Background(), pts), ShouldBeNil)

		Convey("Then only the first points in palette order are indexed", func() {
			So(idx.NodeCount(), ShouldEqual, 10)
			So(idx.Covered(), ShouldEqual, 10)
			for q := 0; q < 50; q++ {
				got, ok := idx.FindNearest(model.RGB8{R: uint8(q * 5), G: 128, B: uint8(255 - q*5)})
				So(ok, ShouldBeTrue)
				So(got.Index, ShouldBeLessThan, 10)
			}
		})
	})

	Convey("Given a memory budget too small for the tree", t, func() {
		pts := randomPoints(rand.New(rand.NewSource(5)), 64)
		idx := NewKDTree()
		So(idx.Build(context.Background(), pts), ShouldBeNil)
		So(idx.IsBuilt(), ShouldBeTrue)

		small := NewKDTree(WithMemoryBudget(nodeSize * 10))
		err := small.Build(context.Background(), pts)

		Convey("Then the build fails and nothing partial is exposed", func() {
			So(err, ShouldEqual, ErrOutOfMemory)
			So(small.IsBuilt(), ShouldBeFalse)
			_, ok := small.FindNearest(model.RGB8{})
			So(ok, ShouldBeFalse)
		})

		Convey("And a failed rebuild discards the previous tree", func() {
			tight := NewKDTree(WithMemoryBudget(nodeSize * 70))
			So(tight.Build(context.Background(), pts), ShouldBeNil)
			So(tight.Build(context.Background(), append(pts, pts...)), ShouldEqual, ErrOutOfMemory)
			So(tight.IsBuilt(), ShouldBeFalse)
		})
	})

	Convey("Given a cancelled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		idx := NewKDTree()
		err := idx.Build(ctx, randomPoints(rand.New(rand.NewSource(1)), 10))
		So(errors.Is(err, context.Canceled), ShouldBeTrue)
		So(idx.IsBuilt(), ShouldBeFalse)
	})
}

type slowSource struct {
	pts   []model.ColorPoint
	delay time.Duration
}

func (s slowSource) Count() int { return len(s.pts) }
func (s slowSource) PointAt(i int) model.ColorPoint {
	time.Sleep(s.delay)
	return s.pts[i]
}

func TestKDTree_Load(t *testing.T) {
	Convey("Given a fast point source", t, func() {
		pts := randomPoints(rand.New(rand.NewSource(9)), 200)
		idx := NewKDTree()
		So(idx.Load(context.Background(), slowSource{pts: pts}), ShouldBeNil)
		So(idx.NodeCount(), ShouldEqual, 200)
		So(idx.Covered(), ShouldEqual, 200)
	})

	Convey("Given a source slower than the load timeout", t, func() {
		pts := randomPoints(rand.New(rand.NewSource(9)), 1000)
		idx := NewKDTree(WithLoadTimeout(20 * time.Millisecond))
		err := idx.Load(context.Background(), slowSource{pts: pts, delay: time.Millisecond})

		Convey("Then the gathered subset is indexed and the timeout reported", func() {
			So(errors.Is(err, ErrTimeout), ShouldBeTrue)
			So(idx.IsBuilt(), ShouldBeTrue)
			So(idx.NodeCount(), ShouldBeGreaterThan, 0)
			So(idx.NodeCount(), ShouldBeLessThan, 1000)
			So(idx.Covered(), ShouldEqual, idx.NodeCount())
		})
	})
}

func TestNoop(t *testing.T) {
	var idx NearestColorIndex = Noop{}
	if idx.IsBuilt() || idx.NodeCount() != 0 || idx.MemoryUsage() != 0 || idx.Covered() != 0 {
		t.Error("noop index should be empty")
	}
	if _, ok := idx.FindNearest(model.RGB8{}); ok {
		t.Error("noop index should never answer")
	}
}
