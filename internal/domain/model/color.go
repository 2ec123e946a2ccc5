// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"time"
)

// FullScale is the largest count a sensor channel can report.
const FullScale = 65535

// RGB8 is an 8-bit per channel sRGB triple.
type RGB8 struct {
	R uint8
	G uint8
	B uint8
}

// String renders the triple as rgb(r,g,b).
func (c RGB8) String() string {
	return fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B)
}

// Hex renders the triple as #rrggbb.
func (c RGB8) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// RawSample is a single sensor reading: tristimulus plus two infrared channels.
type RawSample struct {
	X   uint16
	Y   uint16
	Z   uint16
	IR1 uint16
	IR2 uint16
}

// Max returns the largest of the tristimulus channels.
func (s RawSample) Max() uint16 {
	m := s.X
	if s.Y > m {
		m = s.Y
	}
	if s.Z > m {
		m = s.Z
	}
	return m
}

// ColorRecord is one named palette entry.
type ColorRecord struct {
	Name      string
	Code      string
	R         uint8
	G         uint8
	B         uint8
	LRV       float64 // light reflectance value, 0..100
	ID        uint32
	LightText bool
}

// RGB returns the record's color.
func (r ColorRecord) RGB() RGB8 { return RGB8{R: r.R, G: r.G, B: r.B} }

// ColorPoint is a palette color plus the position of its record in the store.
type ColorPoint struct {
	R     uint8
	G     uint8
	B     uint8
	Index int
}

// Gain is the analog gain applied by the sensor front end.
type Gain uint8

// Supported gain steps.
const (
	Gain1x Gain = iota
	Gain4x
	Gain16x
	Gain64x
)

// Multiplier returns the numeric gain factor.
func (g Gain) Multiplier() int {
	switch g {
	case Gain4x:
		return 4
	case Gain16x:
		return 16
	case Gain64x:
		return 64
	default:
		return 1
	}
}

func (g Gain) String() string {
	return fmt.Sprintf("%dx", g.Multiplier())
}

// Capture is one completed sampling cycle kept in the capture history.
type Capture struct {
	ID       string
	At       time.Time
	Raw      RawSample
	RGB      RGB8
	Name     string
	Method   Method
	Duration time.Duration
}
