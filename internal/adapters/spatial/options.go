package spatial

import (
	"time"

	"github.com/okian/huematch/pkg/logger"
)

// Option applies a configuration option to the KDTree.
type Option func(*KDTree)

// WithMaxPoints caps how many palette points are indexed. Points beyond the
// cap (in palette order) are left to the linear fallback.
func WithMaxPoints(n int) Option {
	return func(t *KDTree) {
		if n > 0 {
			t.maxPoints = n
		}
	}
}

// WithLoadTimeout bounds the wall-clock time spent loading points.
func WithLoadTimeout(d time.Duration) Option {
	return func(t *KDTree) {
		if d > 0 {
			t.loadTimeout = d
		}
	}
}

// WithMemoryBudget bounds the bytes the tree nodes may occupy.
func WithMemoryBudget(bytes int) Option {
	return func(t *KDTree) {
		if bytes > 0 {
			t.memoryBudget = bytes
		}
	}
}

// WithLogger sets a custom logger for the index.
func WithLogger(l logger.Logger) Option {
	return func(t *KDTree) {
		if l != nil {
			t.logger = l
		}
	}
}
