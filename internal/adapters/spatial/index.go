// Package spatial provides nearest-color lookup over palette points.
package spatial

import "github.com/okian/huematch/internal/domain/model"

// NearestColorIndex answers nearest-neighbour queries in RGB space.
type NearestColorIndex interface {
	// FindNearest returns the indexed point closest to c. ok is false when
	// the index holds no points.
	FindNearest(c model.RGB8) (point model.ColorPoint, ok bool)
	IsBuilt() bool
	// Covered is the number of leading palette points the index holds.
	// Points at or past it are not indexed.
	Covered() int
	NodeCount() int
	MemoryUsage() int
}

// PointSource is anything that can hand out palette points by position.
type PointSource interface {
	Count() int
	PointAt(i int) model.ColorPoint
}

// Noop is an index that is never built; lookups always miss.
type Noop struct{}

var _ NearestColorIndex = Noop{}

func (Noop) FindNearest(model.RGB8) (model.ColorPoint, bool) { return model.ColorPoint{}, false }
func (Noop) IsBuilt() bool                                    { return false }
func (Noop) Covered() int                                     { return 0 }
func (Noop) NodeCount() int                                   { return 0 }
func (Noop) MemoryUsage() int                                 { return 0 }
