// Package calibration owns the sensor's reference measurements and derives
// the immutable conversion parameters the rest of the engine reads.
package calibration

import (
	"time"

	"github.com/okian/huematch/internal/domain/model"
)

// DataVersion is the current persisted layout version.
const DataVersion = 2

// Reference is the averaged reading of one reference target.
type Reference struct {
	X         uint16    `json:"x"`
	Y         uint16    `json:"y"`
	Z         uint16    `json:"z"`
	IR1       uint16    `json:"ir1"`
	IR2       uint16    `json:"ir2"`
	Quality   float64   `json:"quality"`
	Valid     bool      `json:"valid"`
	Timestamp time.Time `json:"timestamp"`
}

// Sample returns the reference as a raw sample.
func (r Reference) Sample() model.RawSample {
	return model.RawSample{X: r.X, Y: r.Y, Z: r.Z, IR1: r.IR1, IR2: r.IR2}
}

// same reports whether o is the same capture as r.
func (r Reference) same(o Reference) bool {
	return r.Sample() == o.Sample() && r.Valid == o.Valid && r.Timestamp.Equal(o.Timestamp)
}

func (r Reference) xyz() [3]float64 {
	return [3]float64{float64(r.X), float64(r.Y), float64(r.Z)}
}

// Data is the complete persisted calibration.
type Data struct {
	Version       int        `json:"version"`
	Black         Reference  `json:"black"`
	White         Reference  `json:"white"`
	Blue          Reference  `json:"blue"`
	Yellow        Reference  `json:"yellow"`
	VividTarget   model.RGB8 `json:"vivid_target"`
	VividScale    [3]float64 `json:"vivid_scale"`
	Calibrated    bool       `json:"calibrated"`
	LEDBrightness uint8      `json:"led_brightness"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// defaultData is the uncalibrated state: black at zero, white at full scale.
func defaultData() Data {
	return Data{
		Version: DataVersion,
		White: Reference{
			X: model.FullScale, Y: model.FullScale, Z: model.FullScale,
		},
		VividScale: [3]float64{1, 1, 1},
	}
}

// ordered reports whether black is strictly darker than white on X, Y and Z.
func ordered(black, white Reference) bool {
	return black.X < white.X && black.Y < white.Y && black.Z < white.Z
}

// State is the calibration progress.
type State uint8

// Calibration states.
const (
	StateUncalibrated State = iota
	StateBlackCaptured
	StateCalibrated
	StateHueReferencesCaptured
)

func (s State) String() string {
	switch s {
	case StateBlackCaptured:
		return "black_captured"
	case StateCalibrated:
		return "calibrated"
	case StateHueReferencesCaptured:
		return "hue_references_captured"
	default:
		return "uncalibrated"
	}
}

// Hue names an optional validation reference.
type Hue uint8

// Hue references.
const (
	HueBlue Hue = iota
	HueYellow
)

func (h Hue) String() string {
	if h == HueYellow {
		return "yellow"
	}
	return "blue"
}

// Default dominance ratios for hue references.
const (
	DefaultBlueRatio   = 0.35
	DefaultYellowRatio = 0.60
)
