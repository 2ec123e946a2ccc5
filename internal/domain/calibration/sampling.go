package calibration

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/huematch/internal/domain/model"
)

// Average reads n samples with delay between them and returns the rounded
// per-channel mean. n below one reads a single sample.
func Average(ctx context.Context, s Sampler, n int, delay time.Duration) (model.RawSample, error) {
	if n < 1 {
		n = 1
	}
	var sx, sy, sz, si1, si2 uint64
	for i := 0; i < n; i++ {
		if i > 0 && delay > 0 {
			select {
			case <-ctx.Done():
				return model.RawSample{}, ctx.Err()
			case <-time.After(delay):
			}
		}
		raw, err := s.Read(ctx)
		if err != nil {
			return model.RawSample{}, fmt.Errorf("read sample %d: %w", i, err)
		}
		sx += uint64(raw.X)
		sy += uint64(raw.Y)
		sz += uint64(raw.Z)
		si1 += uint64(raw.IR1)
		si2 += uint64(raw.IR2)
	}
	mean := func(sum uint64) uint16 { return uint16((sum + uint64(n)/2) / uint64(n)) }
	return model.RawSample{X: mean(sx), Y: mean(sy), Z: mean(sz), IR1: mean(si1), IR2: mean(si2)}, nil
}
