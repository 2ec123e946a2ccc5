package worker

import (
	"context"

	"github.com/okian/huematch/pkg/logger"
)

// LogPublisher writes each report to the structured log. It is always
// attached so a bench run without a broker still shows every lookup.
type LogPublisher struct {
	logger logger.Logger
}

// NewLogPublisher returns a LogPublisher using l, or the named default.
func NewLogPublisher(l logger.Logger) *LogPublisher {
	if l == nil {
		l = logger.Get().Named("report")
	}
	return &LogPublisher{logger: l}
}

func (p *LogPublisher) Name() string { return "log" }

func (p *LogPublisher) Publish(ctx context.Context, e Event) error { //nolint:gocritic // hugeParam: matches Publisher
	p.logger.Info(ctx, "match",
		logger.String("id", e.ID),
		logger.String("method", e.Method),
		logger.String("name", e.MatchedName),
		logger.String("hex", e.Hex),
		logger.Any("duration_us", e.DurationMicros),
	)
	return nil
}
