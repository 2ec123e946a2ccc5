package conversion

import "github.com/okian/huematch/internal/domain/model"

// Smoother blends successive outputs. Factor is the weight given to the
// previous value; zero disables smoothing.
type Smoother struct {
	Factor float64

	prev   [3]float64
	primed bool
}

// Apply returns the smoothed colour and remembers it.
func (s *Smoother) Apply(c model.RGB8) model.RGB8 {
	cur := [3]float64{float64(c.R), float64(c.G), float64(c.B)}
	if !s.primed || s.Factor <= 0 {
		s.prev, s.primed = cur, true
		return c
	}
	f := s.Factor
	if f > 1 {
		f = 1
	}
	for i := range cur {
		s.prev[i] = f*s.prev[i] + (1-f)*cur[i]
	}
	return toRGB8(s.prev, 255)
}

// Reset forgets the history.
func (s *Smoother) Reset() { s.prev, s.primed = [3]float64{}, false }
