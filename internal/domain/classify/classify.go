// Package classify names a colour coarsely when no palette can be searched.
package classify

import "github.com/okian/huematch/internal/domain/model"

// Default thresholds.
const (
	defaultLightMin = 200
	defaultDarkMax  = 50
)

// Class is a coarse colour family.
type Class uint8

// Classes, in evaluation order.
const (
	Light Class = iota
	Dark
	Red
	Green
	Blue
	Mixed
)

var names = [...]string{
	Light: "Light Color",
	Dark:  "Dark Color",
	Red:   "Red Tone",
	Green: "Green Tone",
	Blue:  "Blue Tone",
	Mixed: "Mixed Color",
}

// String returns the display name of the class.
func (c Class) String() string {
	if int(c) < len(names) {
		return names[c]
	}
	return "Unknown"
}

// Option configures a Heuristic.
type Option func(*Heuristic)

// WithLightMin sets the value every channel must exceed for Light.
func WithLightMin(v uint8) Option {
	return func(h *Heuristic) { h.lightMin = v }
}

// WithDarkMax sets the value every channel must stay below for Dark.
func WithDarkMax(v uint8) Option {
	return func(h *Heuristic) { h.darkMax = v }
}

// Heuristic classifies by brightness, then by the dominant channel.
type Heuristic struct {
	lightMin uint8
	darkMax  uint8
}

// NewHeuristic returns a classifier with the default thresholds.
func NewHeuristic(opts ...Option) *Heuristic {
	h := &Heuristic{lightMin: defaultLightMin, darkMax: defaultDarkMax}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Classify never fails; ties between channels are Mixed.
func (h *Heuristic) Classify(c model.RGB8) Class {
	switch {
	case c.R > h.lightMin && c.G > h.lightMin && c.B > h.lightMin:
		return Light
	case c.R < h.darkMax && c.G < h.darkMax && c.B < h.darkMax:
		return Dark
	case c.R > c.G && c.R > c.B:
		return Red
	case c.G > c.R && c.G > c.B:
		return Green
	case c.B > c.R && c.B > c.G:
		return Blue
	default:
		return Mixed
	}
}
