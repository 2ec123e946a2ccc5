package palette

import (
	"bytes"

	"github.com/okian/huematch/internal/domain/model"
)

// fallbackRecords is a small built-in palette used when no palette file can
// be loaded.
var fallbackRecords = []model.ColorRecord{
	{Name: "Pure Brilliant White", Code: "10BB83", R: 255, G: 255, B: 255, LRV: 89, ID: 1},
	{Name: "Natural White", Code: "10BB31", R: 252, G: 251, B: 247, LRV: 85, ID: 2},
	{Name: "Antique White", Code: "20YY83", R: 248, G: 243, B: 234, LRV: 82, ID: 3},
	{Name: "Light Grey", Code: "00NN79", R: 200, G: 200, B: 200, LRV: 65, ID: 4},
	{Name: "Medium Grey", Code: "00NN53", R: 135, G: 135, B: 135, LRV: 35, ID: 5},
	{Name: "Charcoal", Code: "00NN21", R: 54, G: 54, B: 54, LRV: 8, ID: 6},
	{Name: "Pure Black", Code: "00NN05", R: 13, G: 13, B: 13, LRV: 2, ID: 7},
	{Name: "Bright Red", Code: "10YR68", R: 218, G: 59, B: 59, LRV: 25, ID: 8},
	{Name: "Forest Green", Code: "30GY25", R: 34, G: 102, B: 34, LRV: 15, ID: 9},
	{Name: "Sky Blue", Code: "70BG65", R: 135, G: 206, B: 235, LRV: 55, ID: 10},
}

// FromRecords builds a store over records held in memory.
func FromRecords(records []model.ColorRecord, opts ...Option) (*Store, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, records, Version2); err != nil {
		return newStore(opts...), err
	}
	return Load(buf.Bytes(), opts...)
}

// Fallback returns the built-in emergency palette.
func Fallback(opts ...Option) *Store {
	s, err := FromRecords(fallbackRecords, opts...)
	if err != nil {
		// The built-in records always encode.
		panic(err)
	}
	s.path = "builtin"
	return s
}
