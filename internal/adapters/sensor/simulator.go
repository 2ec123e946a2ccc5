package sensor

import (
	"context"
	"math"
	"sync"

	"github.com/okian/huematch/internal/domain/model"
)

// Simulator reference conditions: a surface's counts are given at these
// settings and scale linearly away from them.
const (
	simRefIntegrationMs = 100.0
	simRefGain          = 16
	simRefLevel         = 180
)

// Simulator is a deterministic stand-in for the sensor head.
type Simulator struct {
	mu            sync.Mutex
	surface       model.RawSample
	dark          model.RawSample
	gain          model.Gain
	integrationMs float64
	level         uint8
	jitter        int
	reads         int
}

// NewSimulator returns a simulator looking at a mid-grey surface at the
// reference settings.
func NewSimulator() *Simulator {
	return &Simulator{
		surface:       model.RawSample{X: 20000, Y: 21000, Z: 19000, IR1: 300, IR2: 280},
		dark:          model.RawSample{X: 1000, Y: 1100, Z: 900},
		gain:          model.Gain16x,
		integrationMs: simRefIntegrationMs,
		level:         simRefLevel,
	}
}

// SetSurface sets the counts the surface produces at reference settings.
func (s *Simulator) SetSurface(raw model.RawSample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.surface = raw
}

// SetJitter sets the amplitude of the repeating noise pattern added to reads.
func (s *Simulator) SetJitter(counts int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jitter = counts
}

func (s *Simulator) Read(ctx context.Context) (model.RawSample, error) {
	if err := ctx.Err(); err != nil {
		return model.RawSample{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	scale := (s.integrationMs / simRefIntegrationMs) *
		(float64(s.gain.Multiplier()) / simRefGain) *
		(float64(s.level) / simRefLevel)

	// -j, 0, +j, 0, ...
	noise := 0
	switch s.reads % 4 {
	case 0:
		noise = -s.jitter
	case 2:
		noise = s.jitter
	}
	s.reads++

	ch := func(surface, dark uint16) uint16 {
		v := float64(dark) + float64(surface)*scale + float64(noise)
		return uint16(math.Round(math.Max(0, math.Min(model.FullScale, v))))
	}
	return model.RawSample{
		X:   ch(s.surface.X, s.dark.X),
		Y:   ch(s.surface.Y, s.dark.Y),
		Z:   ch(s.surface.Z, s.dark.Z),
		IR1: ch(s.surface.IR1, s.dark.IR1),
		IR2: ch(s.surface.IR2, s.dark.IR2),
	}, nil
}

func (s *Simulator) SetGain(_ context.Context, g model.Gain) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gain = g
	return nil
}

// SetIntegrationTime snaps ms to the register grid like the real head.
func (s *Simulator) SetIntegrationTime(_ context.Context, ms float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.integrationMs = MillisFromATime(ATimeFromMillis(ms))
	return nil
}

func (s *Simulator) SetBrightness(_ context.Context, level uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.level = level
	return nil
}

// IntegrationMs reports the integration time in effect.
func (s *Simulator) IntegrationMs() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.integrationMs
}

func (s *Simulator) Close() error { return nil }
