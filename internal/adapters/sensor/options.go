package sensor

import "github.com/okian/huematch/pkg/logger"

// Option configures a Device.
type Option func(*Device)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(d *Device) {
		if l != nil {
			d.logger = l
		}
	}
}
