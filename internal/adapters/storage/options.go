package storage

import "github.com/okian/huematch/pkg/logger"

const defaultHistorySize = 30

// Option configures a Store.
type Option func(*Store)

// WithHistorySize sets how many captures are kept.
func WithHistorySize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.historySize = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}
