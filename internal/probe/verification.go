package probe

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/huematch/internal/adapters/palette"
	"github.com/okian/huematch/internal/domain/model"
	"github.com/okian/huematch/pkg/logger"
)

// ErrExactMismatch is returned when an exact palette color came back with a
// different name.
var ErrExactMismatch = errors.New("exact palette colors were misnamed")

// verifyResults checks exact palette hits and counts how often the service
// agrees with a local linear scan. Index answers may legitimately differ
// from the perceptual scan, so agreement is reported but never fails a run.
func verifyResults(ctx context.Context, pal *palette.Store, results []Result, stats *Stats) error {
	log := logger.Get().Named("probe")
	stats.Methods = make(map[string]int)

	for _, r := range results {
		if r.Code != http.StatusOK {
			continue
		}
		stats.Methods[r.Answer.Method]++
		if r.Query.Expect != "" {
			stats.ExactChecked++
			if r.Answer.Name != r.Query.Expect {
				stats.ExactMissed++
				log.Warn(ctx, "exact color misnamed",
					logger.String("want", r.Query.Expect),
					logger.String("got", r.Answer.Name),
					logger.String("method", r.Answer.Method))
			}
		}
		rec, _, ok := pal.FindClosestLinear(ctx, model.RGB8{R: r.Query.R, G: r.Query.G, B: r.Query.B})
		if ok && rec.Name == r.Answer.Name {
			stats.Agreed++
		}
	}

	if stats.ExactMissed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrExactMismatch, stats.ExactMissed, stats.ExactChecked)
	}
	return nil
}
