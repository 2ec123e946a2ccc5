package mqtt

import (
	"time"

	"github.com/okian/huematch/pkg/logger"
)

// Option configures a Publisher.
type Option func(*Publisher)

// WithQoS sets the MQTT quality of service for published reports.
func WithQoS(qos byte) Option {
	return func(p *Publisher) {
		if qos <= 2 {
			p.qos = qos
		}
	}
}

// WithRetained marks published reports as retained so late subscribers see
// the most recent match.
func WithRetained(retained bool) Option {
	return func(p *Publisher) {
		p.retained = retained
	}
}

// WithTimeout bounds how long Publish waits for the broker acknowledgement.
func WithTimeout(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Publisher) {
		if l != nil {
			p.logger = l
		}
	}
}
