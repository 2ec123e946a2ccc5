// Command palette-convert turns a JSON or YAML colour list into a binary
// palette file.
//
//	palette-convert -in colors.yaml -out data/palette.bin
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/okian/huematch/internal/adapters/palette"
	"github.com/okian/huematch/internal/domain/model"
	"github.com/okian/huematch/pkg/logger"
)

// sourceColor is one entry of the source list.
type sourceColor struct {
	Name      string  `json:"name" yaml:"name"`
	Code      string  `json:"code" yaml:"code"`
	R         int     `json:"r" yaml:"r"`
	G         int     `json:"g" yaml:"g"`
	B         int     `json:"b" yaml:"b"`
	LRV       float64 `json:"lrv" yaml:"lrv"`
	ID        uint32  `json:"id" yaml:"id"`
	LightText bool    `json:"lightText" yaml:"lightText"`
}

var errInvalidSource = errors.New("invalid colour source")

func main() {
	var (
		in      = flag.String("in", "", "source list (.json, .yaml or .yml)")
		out     = flag.String("out", "data/palette.bin", "palette file to write")
		version = flag.Uint("version", uint(palette.Version2), "palette format version (1 or 2)")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	ctx := context.Background()
	log := logger.Get().Named("palette-convert")

	n, err := convert(*in, *out, uint32(*version))
	if err != nil {
		log.Error(ctx, "conversion failed", logger.String("in", *in), logger.Error(err))
		os.Exit(1)
	}
	log.Info(ctx, "palette written", logger.String("out", *out), logger.Int("records", n))
}

func convert(in, out string, version uint32) (int, error) {
	if in == "" {
		return 0, fmt.Errorf("%w: -in is required", errInvalidSource)
	}
	data, err := os.ReadFile(in) //nolint:gosec // operator supplied path
	if err != nil {
		return 0, err
	}
	records, err := decode(filepath.Ext(in), data)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", in, err)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o750); err != nil {
		return 0, err
	}
	if err := palette.WriteFile(out, records, version); err != nil {
		return 0, err
	}
	return len(records), nil
}

func decode(ext string, data []byte) ([]model.ColorRecord, error) {
	var src []sourceColor
	switch strings.ToLower(ext) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&src); err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidSource, err)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&src); err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidSource, err)
		}
	default:
		return nil, fmt.Errorf("%w: unknown extension %q", errInvalidSource, ext)
	}

	records := make([]model.ColorRecord, 0, len(src))
	for i, c := range src {
		if strings.TrimSpace(c.Name) == "" {
			return nil, fmt.Errorf("%w: entry %d has no name", errInvalidSource, i)
		}
		for _, v := range []int{c.R, c.G, c.B} {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("%w: %s: channel %d out of range", errInvalidSource, c.Name, v)
			}
		}
		records = append(records, model.ColorRecord{
			Name:      c.Name,
			Code:      c.Code,
			R:         uint8(c.R),
			G:         uint8(c.G),
			B:         uint8(c.B),
			LRV:       c.LRV,
			ID:        c.ID,
			LightText: c.LightText,
		})
	}
	return records, nil
}
