// Package match resolves a measured colour to a palette name.
//
// Lookups try the spatial index, then a linear scan of the palette, then a
// coarse classifier, so a routine lookup always yields a name.
package match

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/okian/huematch/internal/adapters/spatial"
	"github.com/okian/huematch/internal/domain/classify"
	"github.com/okian/huematch/internal/domain/colorspace"
	"github.com/okian/huematch/internal/domain/debounce"
	"github.com/okian/huematch/internal/domain/model"
	"github.com/okian/huematch/internal/domain/types"
	"github.com/okian/huematch/pkg/logger"
	"github.com/okian/huematch/pkg/metrics"
)

// Store is the palette as seen by the orchestrator.
type Store interface {
	Count() int
	Get(index int) (model.ColorRecord, error)
	FindClosestLinear(ctx context.Context, c model.RGB8) (model.ColorRecord, float64, bool)
	FindClosestLinearFrom(ctx context.Context, c model.RGB8, from int) (model.ColorRecord, float64, bool)
}

// Classifier names a colour without a palette.
type Classifier interface {
	Classify(c model.RGB8) classify.Class
}

// Reporter accepts lookup reports without blocking.
type Reporter interface {
	Enqueue(ctx context.Context, r types.MatchReport) bool
}

// Orchestrator owns the lookup state. It is safe to call from several
// goroutines; overlapping calls are refused with ErrBusy.
type Orchestrator struct {
	store      Store
	index      spatial.NearestColorIndex
	classifier Classifier
	guard      *debounce.Guard
	reporter   Reporter
	newID      func() string
	now        func() time.Time

	logger logger.Logger
}

// New creates an orchestrator over store. A nil store behaves as empty.
func New(store Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:      store,
		index:      spatial.Noop{},
		classifier: classify.NewHeuristic(),
		guard:      debounce.New(),
		newID:      uuid.NewString,
		now:        time.Now,
		logger:     logger.Get().Named("match"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// FindColorName returns the best name for c. Busy lookups come back with
// StatusBusy and an empty name.
func (o *Orchestrator) FindColorName(ctx context.Context, c model.RGB8) model.MatchResult {
	r, _ := o.FindColorNameErr(ctx, c)
	return r
}

// FindColorNameErr is FindColorName with ErrBusy surfaced.
func (o *Orchestrator) FindColorNameErr(ctx context.Context, c model.RGB8) (model.MatchResult, error) {
	if !o.guard.TryAcquire() {
		metrics.RecordMatchBusy()
		o.logger.Debug(ctx, "lookup rejected, another is running")
		return model.MatchResult{Status: model.StatusBusy}, ErrBusy
	}
	defer o.guard.Release()

	start := o.now()
	if cached, ok := o.guard.Cached(c); ok {
		metrics.RecordMatchCacheHit()
		o.report(ctx, cached, model.MethodCached, o.now().Sub(start))
		return cached, nil
	}

	r := o.lookup(ctx, c)
	r.Duration = o.now().Sub(start)
	r.Status = model.StatusOK

	o.guard.Record(c, r)
	metrics.RecordMatch(r.Method.String(), float64(r.Duration.Microseconds())/1000)
	o.report(ctx, r, r.Method, r.Duration)
	return r, nil
}

// Invalidate drops the cached result so the next lookup runs in full.
func (o *Orchestrator) Invalidate() { o.guard.Forget() }

func (o *Orchestrator) lookup(ctx context.Context, c model.RGB8) model.MatchResult {
	if o.index.IsBuilt() {
		if r, ok := o.viaIndex(ctx, c); ok {
			return r
		}
		metrics.RecordMatchFallback("index")
	}

	if o.store != nil && o.store.Count() > 0 {
		if rec, dist, ok := o.store.FindClosestLinear(ctx, c); ok {
			return fromRecord(rec, model.MethodLinear, dist)
		}
		metrics.RecordMatchFallback("linear")
		o.logger.Warn(ctx, "linear scan found nothing, classifying", logger.String("rgb", c.String()))
	}

	class := o.classifier.Classify(c)
	return model.MatchResult{Name: class.String(), Method: model.MethodHeuristic}
}

func (o *Orchestrator) viaIndex(ctx context.Context, c model.RGB8) (model.MatchResult, bool) {
	p, ok := o.index.FindNearest(c)
	if !ok || o.store == nil {
		return model.MatchResult{}, false
	}
	rec, err := o.store.Get(p.Index)
	if err != nil {
		o.logger.Warn(ctx, "index points outside palette",
			logger.Int("index", p.Index),
			logger.Error(err))
		return model.MatchResult{}, false
	}
	dist := colorspace.EuclideanRGB(c.R, c.G, c.B, rec.R, rec.G, rec.B)

	// records past the indexed prefix are only reachable by scanning
	if covered, count := o.index.Covered(), o.store.Count(); covered < count {
		if tail, _, ok := o.store.FindClosestLinearFrom(ctx, c, covered); ok {
			if d := colorspace.EuclideanRGB(c.R, c.G, c.B, tail.R, tail.G, tail.B); d < dist {
				return fromRecord(tail, model.MethodLinear, d), true
			}
		}
	}
	return fromRecord(rec, model.MethodIndex, dist), true
}

func fromRecord(rec model.ColorRecord, m model.Method, dist float64) model.MatchResult {
	return model.MatchResult{
		Name:     rec.Name,
		Code:     rec.Code,
		RGB:      rec.RGB(),
		Method:   m,
		Distance: dist,
	}
}

func (o *Orchestrator) report(ctx context.Context, r model.MatchResult, m model.Method, d time.Duration) {
	if o.reporter == nil {
		return
	}
	ev := types.MatchReport{
		ID:             o.newID(),
		Method:         m.String(),
		DurationMicros: d.Microseconds(),
		MatchedName:    r.Name,
		Code:           r.Code,
		Hex:            r.RGB.Hex(),
		Timestamp:      o.now().UnixMilli(),
	}
	if !o.reporter.Enqueue(ctx, ev) {
		metrics.RecordReportDropped()
	}
}
