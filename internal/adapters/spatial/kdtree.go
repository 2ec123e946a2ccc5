package spatial

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/okian/huematch/internal/domain/model"
	"github.com/okian/huematch/pkg/logger"
	"github.com/okian/huematch/pkg/metrics"
)

// Default index configuration.
const (
	defaultMaxPoints    = 4500
	defaultLoadTimeout  = 20 * time.Second
	defaultMemoryBudget = 4 << 20
	clockCheckEvery     = 64
)

// KD-tree over RGB points. Nodes split on the median of the axis for their
// depth, cycling R, G, B. Queries use squared Euclidean distance and prune a
// subtree when the splitting plane is at least as far as the best match.

type node struct {
	point model.ColorPoint
	axis  uint8
	left  *node
	right *node
}

var nodeSize = int(unsafe.Sizeof(node{}))

func coord(p model.ColorPoint, axis uint8) int {
	switch axis {
	case 0:
		return int(p.R)
	case 1:
		return int(p.G)
	default:
		return int(p.B)
	}
}

func queryCoord(c model.RGB8, axis uint8) int {
	switch axis {
	case 0:
		return int(c.R)
	case 1:
		return int(c.G)
	default:
		return int(c.B)
	}
}

// tree is an immutable, fully built index over the first covered points
// of the palette.
type tree struct {
	root    *node
	nodes   int
	bytes   int
	covered int
}

// KDTree implements NearestColorIndex. A tree is published only once it is
// completely built, so concurrent readers never see one under construction.
// A published tree may still cover only a prefix of the palette; Covered
// reports how much, and callers search the rest linearly.
type KDTree struct {
	maxPoints    int
	loadTimeout  time.Duration
	memoryBudget int

	current atomic.Pointer[tree]
	logger  logger.Logger
}

var _ NearestColorIndex = (*KDTree)(nil)

// NewKDTree creates an empty, unbuilt index.
func NewKDTree(opts ...Option) *KDTree {
	t := &KDTree{
		maxPoints:    defaultMaxPoints,
		loadTimeout:  defaultLoadTimeout,
		memoryBudget: defaultMemoryBudget,
		logger:       logger.Get().Named("spatial"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Load copies up to maxPoints points from src, in order, and builds the tree.
// If the load timeout expires first, the points gathered so far are indexed
// and ErrTimeout is returned alongside a usable index whose Covered count is
// below src.Count().
func (t *KDTree) Load(ctx context.Context, src PointSource) error {
	total := src.Count()
	n := min(total, t.maxPoints)
	deadline := time.Now().Add(t.loadTimeout)

	pts := make([]model.ColorPoint, 0, n)
	timedOut := false
	for i := 0; i < n; i++ {
		if i%clockCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			if time.Now().After(deadline) {
				timedOut = true
				break
			}
		}
		pts = append(pts, src.PointAt(i))
	}
	if total > n {
		t.logger.Warn(ctx, "palette exceeds index cap; tail searched linearly",
			logger.Int("records", total), logger.Int("cap", t.maxPoints))
	}

	if err := t.Build(ctx, pts); err != nil {
		return err
	}
	if timedOut {
		metrics.RecordIndexBuildFailure("timeout")
		return fmt.Errorf("%w: indexed %d of %d points", ErrTimeout, len(pts), n)
	}
	return nil
}

// Build replaces the index with a tree over points (capped at maxPoints).
// On failure the previous tree is discarded and the index is left unbuilt.
func (t *KDTree) Build(ctx context.Context, points []model.ColorPoint) error {
	start := time.Now()
	t.current.Store(nil)

	if len(points) == 0 {
		metrics.RecordIndexBuildFailure("empty")
		return ErrEmpty
	}
	if len(points) > t.maxPoints {
		points = points[:t.maxPoints]
	}
	work := slices.Clone(points)

	b := &builder{ctx: ctx, budget: t.memoryBudget}
	root := b.build(work, 0)
	if b.err != nil {
		reason := "out_of_memory"
		if !errors.Is(b.err, ErrOutOfMemory) {
			reason = "cancelled"
		}
		metrics.RecordIndexBuildFailure(reason)
		t.logger.Warn(ctx, "index build abandoned", logger.Error(b.err), logger.Int("nodes", b.nodes))
		return b.err
	}

	tr := &tree{root: root, nodes: b.nodes, bytes: b.nodes * nodeSize, covered: len(points)}
	t.current.Store(tr)

	elapsed := time.Since(start)
	metrics.RecordIndexBuild(float64(elapsed.Microseconds())/1000, tr.nodes, tr.bytes)
	t.logger.Info(ctx, "index built",
		logger.Int("nodes", tr.nodes),
		logger.Int("bytes", tr.bytes),
		logger.String("elapsed", elapsed.String()),
	)
	return nil
}

type builder struct {
	ctx    context.Context
	budget int
	nodes  int
	err    error
}

func (b *builder) build(pts []model.ColorPoint, depth int) *node {
	if len(pts) == 0 || b.err != nil {
		return nil
	}
	if (b.nodes+1)*nodeSize > b.budget {
		b.err = ErrOutOfMemory
		return nil
	}
	if b.nodes%clockCheckEvery == 0 {
		if err := b.ctx.Err(); err != nil {
			b.err = err
			return nil
		}
	}

	axis := uint8(depth % 3)
	slices.SortFunc(pts, func(x, y model.ColorPoint) int {
		return coord(x, axis) - coord(y, axis)
	})
	mid := len(pts) / 2
	n := &node{point: pts[mid], axis: axis}
	b.nodes++
	n.left = b.build(pts[:mid], depth+1)
	n.right = b.build(pts[mid+1:], depth+1)
	return n
}

// FindNearest returns the closest indexed point to c.
func (t *KDTree) FindNearest(c model.RGB8) (model.ColorPoint, bool) {
	tr := t.current.Load()
	if tr == nil || tr.root == nil {
		return model.ColorPoint{}, false
	}
	s := search{query: c, best: math.MaxInt}
	s.visit(tr.root)
	return s.point, s.found
}

type search struct {
	query model.RGB8
	point model.ColorPoint
	best  int
	found bool
}

func (s *search) visit(n *node) {
	if n == nil {
		return
	}
	dr := int(s.query.R) - int(n.point.R)
	dg := int(s.query.G) - int(n.point.G)
	db := int(s.query.B) - int(n.point.B)
	if d := dr*dr + dg*dg + db*db; d < s.best {
		s.best = d
		s.point = n.point
		s.found = true
	}

	diff := queryCoord(s.query, n.axis) - coord(n.point, n.axis)
	near, far := n.left, n.right
	if diff >= 0 {
		near, far = n.right, n.left
	}
	s.visit(near)
	if diff*diff < s.best {
		s.visit(far)
	}
}

// IsBuilt reports whether a tree is available for queries.
func (t *KDTree) IsBuilt() bool { return t.current.Load() != nil }

// NodeCount returns the number of nodes in the current tree.
func (t *KDTree) NodeCount() int {
	if tr := t.current.Load(); tr != nil {
		return tr.nodes
	}
	return 0
}

// Covered returns how many leading palette points the current tree holds.
func (t *KDTree) Covered() int {
	if tr := t.current.Load(); tr != nil {
		return tr.covered
	}
	return 0
}

// MemoryUsage estimates the bytes held by tree nodes.
func (t *KDTree) MemoryUsage() int {
	if tr := t.current.Load(); tr != nil {
		return tr.bytes
	}
	return 0
}

// Reset discards the current tree.
func (t *KDTree) Reset() { t.current.Store(nil) }
