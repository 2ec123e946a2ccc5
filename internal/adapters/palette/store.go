package palette

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"time"

	"github.com/okian/huematch/internal/domain/colorspace"
	"github.com/okian/huematch/internal/domain/model"
	"github.com/okian/huematch/pkg/logger"
	"github.com/okian/huematch/pkg/metrics"
)

// Default search configuration.
const (
	defaultSearchBudget   = 2 * time.Second
	defaultNearPerfectRGB = 3.0
	defaultNearPerfectDE  = 1.0
	// lightChannelMin marks a color as "light" when every channel exceeds it.
	lightChannelMin = 200
	// prefilterMargin skips CIEDE2000 for candidates this much further (RGB)
	// than the closest candidate seen so far.
	prefilterMargin = 60.0
	// deadlineCheckEvery controls how often the scan looks at the clock.
	deadlineCheckEvery = 256
)

// Reader is the read side of a palette, as used by the match orchestrator.
type Reader interface {
	Count() int
	Get(index int) (model.ColorRecord, error)
	FindClosestLinear(ctx context.Context, c model.RGB8) (model.ColorRecord, float64, bool)
	FindClosestLinearFrom(ctx context.Context, c model.RGB8, from int) (model.ColorRecord, float64, bool)
}

// Store serves records from an in-memory copy of a palette file.
// It is immutable after Open and safe for concurrent use.
type Store struct {
	path       string
	data       []byte
	version    uint32
	recordSize int
	offsets    []int // v1 only
	count      int

	refine         bool
	searchBudget   time.Duration
	nearPerfectRGB float64
	nearPerfectDE  float64

	logger logger.Logger
}

func newStore(opts ...Option) *Store {
	s := &Store{
		refine:         true,
		searchBudget:   defaultSearchBudget,
		nearPerfectRGB: defaultNearPerfectRGB,
		nearPerfectDE:  defaultNearPerfectDE,
		logger:         logger.Get().Named("palette"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open loads the palette at path. It always returns a usable Store; when the
// error is non-nil the store is empty (Count()==0). A missing file yields
// ErrUnavailable and a malformed one ErrCorrupt.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	s := newStore(opts...)
	s.path = path

	data, err := os.ReadFile(path) //nolint:gosec // palette path comes from operator config
	if err != nil {
		metrics.RecordPaletteLoadError("unavailable")
		if errors.Is(err, fs.ErrNotExist) {
			return s, fmt.Errorf("%w: %s", ErrUnavailable, path)
		}
		return s, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := s.load(data); err != nil {
		metrics.RecordPaletteLoadError("corrupt")
		s.logger.Error(ctx, "palette rejected", logger.String("path", path), logger.Error(err))
		return s, err
	}

	metrics.UpdatePaletteRecords(s.count)
	s.logger.Info(ctx, "palette loaded",
		logger.String("path", path),
		logger.Int("records", s.count),
		logger.Int("version", int(s.version)),
	)
	return s, nil
}

// Load parses an in-memory palette image with the same rules as Open.
func Load(data []byte, opts ...Option) (*Store, error) {
	s := newStore(opts...)
	if err := s.load(data); err != nil {
		return s, err
	}
	return s, nil
}

func (s *Store) load(data []byte) error {
	h, err := decodeHeader(data)
	if err != nil {
		return err
	}
	count := int(h.count)
	switch h.version {
	case Version1:
		offsets, err := indexV1(data, count)
		if err != nil {
			return err
		}
		s.offsets = offsets
	case Version2:
		need := HeaderSize + count*int(h.recordSize)
		if count < 0 || need < HeaderSize || len(data) < need {
			return fmt.Errorf("%w: %d records of %d bytes need %d bytes, have %d",
				ErrCorrupt, count, h.recordSize, need, len(data))
		}
		s.recordSize = int(h.recordSize)
	}
	s.data = data
	s.version = h.version
	s.count = count
	return nil
}

// Path returns the file the store was opened from.
func (s *Store) Path() string { return s.path }

// Version returns the on-disk format version.
func (s *Store) Version() uint32 { return s.version }

// Count returns the number of records.
func (s *Store) Count() int { return s.count }

func (s *Store) offset(i int) int {
	if s.version == Version1 {
		return s.offsets[i]
	}
	return HeaderSize + i*s.recordSize
}

// rgbAt reads only the color of record i.
func (s *Store) rgbAt(i int) (r, g, b uint8) {
	o := s.offset(i)
	return s.data[o], s.data[o+1], s.data[o+2]
}

// Get returns record i, or ErrNotFound when i is out of range.
func (s *Store) Get(i int) (model.ColorRecord, error) {
	if i < 0 || i >= s.count {
		return model.ColorRecord{}, fmt.Errorf("%w: index %d of %d", ErrNotFound, i, s.count)
	}
	o := s.offset(i)
	if s.version == Version1 {
		return decodeV1(s.data[o:]), nil
	}
	return decodeV2(s.data[o : o+s.recordSize]), nil
}

// PointAt returns the color point of record i. i must be in range.
func (s *Store) PointAt(i int) model.ColorPoint {
	r, g, b := s.rgbAt(i)
	return model.ColorPoint{R: r, G: g, B: b, Index: i}
}

// Points returns up to limit color points in palette order. A limit <= 0
// returns every record.
func (s *Store) Points(limit int) []model.ColorPoint {
	n := s.count
	if limit > 0 && limit < n {
		n = limit
	}
	pts := make([]model.ColorPoint, n)
	for i := 0; i < n; i++ {
		pts[i] = s.PointAt(i)
	}
	return pts
}

func isLight(r, g, b uint8) bool {
	return r > lightChannelMin && g > lightChannelMin && b > lightChannelMin
}

// FindClosestLinear scans every record for the one closest to c.
//
// Light queries, or scans with refinement disabled, rank by RGB distance and
// stop early under nearPerfectRGB. Otherwise candidates that survive an RGB
// prefilter are ranked by CIEDE2000 and the scan stops under nearPerfectDE.
// The scan also stops when ctx is done or the search budget runs out, in
// which case the best candidate so far is returned.
func (s *Store) FindClosestLinear(ctx context.Context, c model.RGB8) (model.ColorRecord, float64, bool) {
	return s.FindClosestLinearFrom(ctx, c, 0)
}

// FindClosestLinearFrom is FindClosestLinear restricted to records at index
// from and above. It finds nothing when from is at or past Count.
func (s *Store) FindClosestLinearFrom(ctx context.Context, c model.RGB8, from int) (model.ColorRecord, float64, bool) {
	if from < 0 {
		from = 0
	}
	if from >= s.count {
		return model.ColorRecord{}, 0, false
	}
	start := time.Now()
	deadline := start.Add(s.searchBudget)
	perceptual := s.refine && !isLight(c.R, c.G, c.B)
	threshold := s.nearPerfectRGB
	var query colorspace.Lab
	if perceptual {
		threshold = s.nearPerfectDE
		query = colorspace.RGBToLab(c.R, c.G, c.B)
	}

	best := math.MaxFloat64
	bestRGB := math.MaxFloat64
	bestIdx := -1
	scanned := 0
	for i := from; i < s.count; i++ {
		if scanned%deadlineCheckEvery == 0 && scanned > 0 {
			if ctx.Err() != nil || time.Now().After(deadline) {
				s.logger.Warn(ctx, "linear scan cut short",
					logger.Int("scanned", scanned), logger.Int("records", s.count-from))
				break
			}
		}
		scanned++
		r, g, b := s.rgbAt(i)
		rgbDist := colorspace.EuclideanRGB(c.R, c.G, c.B, r, g, b)
		d := rgbDist
		if perceptual {
			if rgbDist > bestRGB+prefilterMargin {
				continue
			}
			d = colorspace.CIEDE2000(query, colorspace.RGBToLab(r, g, b))
		}
		if rgbDist < bestRGB {
			bestRGB = rgbDist
		}
		if d < best {
			best = d
			bestIdx = i
			if d < threshold {
				break
			}
		}
	}
	metrics.RecordLinearScan(float64(time.Since(start).Microseconds())/1000, scanned)

	if bestIdx < 0 {
		return model.ColorRecord{}, 0, false
	}
	rec, err := s.Get(bestIdx)
	if err != nil {
		return model.ColorRecord{}, 0, false
	}
	return rec, best, true
}
