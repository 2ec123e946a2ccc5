package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/huematch/internal/adapters/palette"
	"github.com/okian/huematch/internal/domain/model"
	"github.com/okian/huematch/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const yamlSource = `
- name: Bright Red
  code: 10YR68
  r: 218
  g: 59
  b: 59
  lrv: 25
  id: 8
- name: Pure Brilliant White
  code: 10BB83
  r: 255
  g: 255
  b: 255
  lrv: 89
  id: 1
  lightText: false
`

const jsonSource = `[
  {"name": "Sky Blue", "code": "70BG65", "r": 135, "g": 206, "b": 235, "lrv": 55, "id": 10, "lightText": false}
]`

func TestConvert(t *testing.T) {
	cases := []struct {
		name    string
		file    string
		body    string
		version uint32
		want    []string
	}{
		{"yaml v2", "colors.yaml", yamlSource, palette.Version2, []string{"Bright Red", "Pure Brilliant White"}},
		{"yml v1", "colors.yml", yamlSource, palette.Version1, []string{"Bright Red", "Pure Brilliant White"}},
		{"json", "colors.json", jsonSource, palette.Version2, []string{"Sky Blue"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			in := filepath.Join(dir, tc.file)
			out := filepath.Join(dir, "out", "palette.bin")
			require.NoError(t, os.WriteFile(in, []byte(tc.body), 0o600))

			n, err := convert(in, out, tc.version)
			require.NoError(t, err)
			assert.Equal(t, len(tc.want), n)

			store, err := palette.Open(context.Background(), out)
			require.NoError(t, err)
			require.Equal(t, len(tc.want), store.Count())
			assert.Equal(t, tc.version, store.Version())
			for i, name := range tc.want {
				rec, err := store.Get(i)
				require.NoError(t, err)
				assert.Equal(t, name, rec.Name)
			}
		})
	}
}

func TestConvertRecordFields(t *testing.T) {
	recs, err := decode(".yaml", []byte(yamlSource))
	require.NoError(t, err)
	assert.Equal(t, model.ColorRecord{Name: "Bright Red", Code: "10YR68", R: 218, G: 59, B: 59, LRV: 25, ID: 8}, recs[0])
}

func TestConvertRejects(t *testing.T) {
	cases := []struct {
		name string
		ext  string
		body string
	}{
		{"unknown extension", ".csv", "a,b"},
		{"bad json", ".json", "{"},
		{"unknown field", ".json", `[{"name":"x","hue":3}]`},
		{"missing name", ".yaml", "- r: 1\n  g: 2\n  b: 3\n"},
		{"channel range", ".yaml", "- name: x\n  r: 300\n  g: 0\n  b: 0\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := decode(tc.ext, []byte(tc.body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errInvalidSource))
		})
	}

	_, err := convert("", "x", palette.Version2)
	assert.ErrorIs(t, err, errInvalidSource)
}
