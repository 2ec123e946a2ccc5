package match

import (
	"time"

	"github.com/okian/huematch/internal/adapters/spatial"
	"github.com/okian/huematch/internal/domain/debounce"
	"github.com/okian/huematch/pkg/logger"
)

// Option applies a configuration option to an Orchestrator.
type Option func(*Orchestrator)

// WithIndex sets the fast-path index. Without it every lookup scans.
func WithIndex(idx spatial.NearestColorIndex) Option {
	return func(o *Orchestrator) {
		if idx != nil {
			o.index = idx
		}
	}
}

// WithClassifier replaces the last-resort classifier.
func WithClassifier(c Classifier) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.classifier = c
		}
	}
}

// WithGuard replaces the debounce state.
func WithGuard(g *debounce.Guard) Option {
	return func(o *Orchestrator) {
		if g != nil {
			o.guard = g
		}
	}
}

// WithReporter sets where lookup reports are sent.
func WithReporter(r Reporter) Option {
	return func(o *Orchestrator) {
		o.reporter = r
	}
}

// WithIDGenerator sets the report ID source.
func WithIDGenerator(f func() string) Option {
	return func(o *Orchestrator) {
		if f != nil {
			o.newID = f
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}
