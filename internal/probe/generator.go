package probe

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/okian/huematch/internal/adapters/palette"
	"github.com/okian/huematch/pkg/logger"
)

// Every exactEvery-th query is an unmodified palette entry.
const exactEvery = 4

// generateQueries builds n queries from a seeded source so a run can be
// repeated. A quarter are exact palette colors, the rest uniform random.
func generateQueries(ctx context.Context, n int, seed uint64, pal *palette.Store, stats *Stats) ([]Query, error) {
	logger.Get().Info(ctx, "generating lookups", logger.Int("count", n), logger.Any("seed", seed))

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	queries := make([]Query, n)
	for i := range queries {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("context cancelled during generation: %w", ctx.Err())
		}
		if pal.Count() > 0 && i%exactEvery == 0 {
			rec, err := pal.Get(rng.IntN(pal.Count()))
			if err != nil {
				return nil, fmt.Errorf("failed to read palette record: %w", err)
			}
			queries[i] = Query{R: rec.R, G: rec.G, B: rec.B, Expect: rec.Name}
			continue
		}
		v := rng.Uint32()
		queries[i] = Query{R: uint8(v), G: uint8(v >> 8), B: uint8(v >> 16)}
	}

	stats.Generated = len(queries)
	return queries, nil
}
