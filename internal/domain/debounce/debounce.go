// Package debounce tracks the last colour lookup so repeated readings of the
// same patch are answered from cache and overlapping lookups are refused.
package debounce

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/huematch/internal/domain/model"
)

const (
	defaultDelta       = 2
	defaultMinInterval = 250 * time.Millisecond
)

// Guard holds the lookup state owned by one orchestrator.
type Guard struct {
	inProgress atomic.Bool

	mu      sync.Mutex
	has     bool
	lastRGB model.RGB8
	last    model.MatchResult
	lastAt  time.Time

	delta       int
	minInterval time.Duration
	now         func() time.Time
}

// New creates a guard with no cached result.
func New(opts ...Option) *Guard {
	g := &Guard{
		delta:       defaultDelta,
		minInterval: defaultMinInterval,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// TryAcquire marks a lookup as in progress. It returns false if one already is.
func (g *Guard) TryAcquire() bool {
	return g.inProgress.CompareAndSwap(false, true)
}

// Release ends the lookup started by a successful TryAcquire.
func (g *Guard) Release() {
	g.inProgress.Store(false)
}

// InProgress reports whether a lookup is running.
func (g *Guard) InProgress() bool { return g.inProgress.Load() }

// Cached returns the last result when c is within delta of the last colour
// and the last lookup is younger than the minimum interval.
func (g *Guard) Cached(c model.RGB8) (model.MatchResult, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.has || g.minInterval == 0 {
		return model.MatchResult{}, false
	}
	if g.now().Sub(g.lastAt) >= g.minInterval {
		return model.MatchResult{}, false
	}
	if !within(c, g.lastRGB, g.delta) {
		return model.MatchResult{}, false
	}
	return g.last, true
}

// Record remembers a completed lookup.
func (g *Guard) Record(c model.RGB8, r model.MatchResult) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.has = true
	g.lastRGB = c
	g.last = r
	g.lastAt = g.now()
}

// Forget drops the cached result, e.g. after recalibration.
func (g *Guard) Forget() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.has = false
	g.last = model.MatchResult{}
}

func within(a, b model.RGB8, delta int) bool {
	return absDiff(a.R, b.R) <= delta && absDiff(a.G, b.G) <= delta && absDiff(a.B, b.B) <= delta
}

func absDiff(a, b uint8) int {
	d := int(a) - int(b)
	if d < 0 {
		return -d
	}
	return d
}
