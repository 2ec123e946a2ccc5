package debounce

import "time"

// Option applies a configuration option to a Guard.
type Option func(*Guard)

// WithDelta sets the largest per-channel difference still treated as the
// same colour.
func WithDelta(delta uint8) Option {
	return func(g *Guard) {
		g.delta = int(delta)
	}
}

// WithMinInterval sets how long a result stays reusable.
// Zero disables caching.
func WithMinInterval(d time.Duration) Option {
	return func(g *Guard) {
		if d >= 0 {
			g.minInterval = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) {
		if now != nil {
			g.now = now
		}
	}
}
