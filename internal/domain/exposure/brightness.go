package exposure

import (
	"time"

	"github.com/okian/huematch/pkg/metrics"
)

// Default illumination control.
const (
	defaultTargetMin  = 45000
	defaultTargetMax  = 58000
	defaultHysteresis = 2000
	defaultLevelStep  = 10
	defaultMinLevel   = 20
	defaultMaxLevel   = 220
	defaultSettle     = 500 * time.Millisecond
)

// Adjustment is the outcome of one brightness update.
type Adjustment uint8

// Brightness outcomes.
const (
	Hold Adjustment = iota
	Increased
	Decreased
	AtMin
	AtMax
	Settling
)

func (a Adjustment) String() string {
	switch a {
	case Increased:
		return "increased"
	case Decreased:
		return "decreased"
	case AtMin:
		return "at_min"
	case AtMax:
		return "at_max"
	case Settling:
		return "settling"
	default:
		return "hold"
	}
}

// Brightness steers the illumination level so the brightest channel lands
// in the target band. Readings inside the band widened by the hysteresis
// margin never cause a change.
type Brightness struct {
	level     int
	step      int
	minLevel  int
	maxLevel  int
	targetMin int
	targetMax int
	holdLow   int
	holdHigh  int

	settle time.Duration
	last   time.Time
	now    func() time.Time
}

// NewBrightness starts at the given level.
func NewBrightness(level uint8, opts ...BrightnessOption) *Brightness {
	b := &Brightness{
		level:     int(level),
		step:      defaultLevelStep,
		minLevel:  defaultMinLevel,
		maxLevel:  defaultMaxLevel,
		targetMin: defaultTargetMin,
		targetMax: defaultTargetMax,
		holdLow:   defaultTargetMin - defaultHysteresis,
		holdHigh:  defaultTargetMax + defaultHysteresis,
		settle:    defaultSettle,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Level returns the current illumination level.
func (b *Brightness) Level() uint8 { return uint8(b.level) }

// Update feeds the averaged brightest channel and returns the level to apply.
func (b *Brightness) Update(maxChannel uint16) (uint8, Adjustment) {
	now := b.now()
	if !b.last.IsZero() && now.Sub(b.last) < b.settle {
		return b.Level(), Settling
	}
	v := int(maxChannel)
	switch {
	case v > b.holdLow && v < b.holdHigh:
		return b.Level(), Hold
	case v > b.targetMax:
		if b.level <= b.minLevel {
			return b.Level(), AtMin
		}
		b.level = max(b.level-b.step, b.minLevel)
		b.last = now
		metrics.RecordBrightnessAdjustment(Decreased.String())
		return b.Level(), Decreased
	case v < b.targetMin:
		if b.level >= b.maxLevel {
			return b.Level(), AtMax
		}
		b.level = min(b.level+b.step, b.maxLevel)
		b.last = now
		metrics.RecordBrightnessAdjustment(Increased.String())
		return b.Level(), Increased
	default:
		return b.Level(), Hold
	}
}
