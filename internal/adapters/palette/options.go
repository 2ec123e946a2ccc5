package palette

import (
	"time"

	"github.com/okian/huematch/pkg/logger"
)

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithPerceptualRefinement toggles CIEDE2000 refinement in FindClosestLinear.
// When disabled the scan ranks candidates by RGB distance only.
func WithPerceptualRefinement(enabled bool) Option {
	return func(s *Store) {
		s.refine = enabled
	}
}

// WithSearchBudget bounds the wall-clock time of one linear scan.
func WithSearchBudget(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.searchBudget = d
		}
	}
}

// WithNearPerfect sets the early-exit distances for RGB and CIEDE2000 scans.
func WithNearPerfect(rgb, deltaE float64) Option {
	return func(s *Store) {
		if rgb >= 0 {
			s.nearPerfectRGB = rgb
		}
		if deltaE >= 0 {
			s.nearPerfectDE = deltaE
		}
	}
}

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}
