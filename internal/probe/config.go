// Package probe drives concurrent color lookups against a running huematch
// service and checks the answers against a local copy of the palette.
package probe

import "time"

// Config holds configuration for a probe run.
type Config struct {
	BaseURL     string        // Base URL of the service
	Lookups     int           // Number of lookups to submit
	Workers     int           // Number of concurrent workers
	Timeout     time.Duration // HTTP request timeout
	PalettePath string        // Palette the service was started with; empty uses the built-in one
	Seed        uint64        // Seed for the color generator
	OutputFile  string        // Optional JSON dump of every lookup result
	Verbose     bool          // Enable per-request logging
}

// Query is one color to look up. Expect is set when the color is an exact
// palette entry and the service must answer with that name.
type Query struct {
	R      uint8  `json:"r"`
	G      uint8  `json:"g"`
	B      uint8  `json:"b"`
	Expect string `json:"expect,omitempty"`
}

// Answer mirrors the service's lookup response.
type Answer struct {
	Name       string  `json:"name"`
	Code       string  `json:"code"`
	Hex        string  `json:"hex"`
	Method     string  `json:"method"`
	Distance   float64 `json:"distance"`
	DurationUs int64   `json:"duration_us"`
	Status     string  `json:"status"`
}

// Result pairs a query with what the service said about it.
type Result struct {
	Query  Query  `json:"query"`
	Answer Answer `json:"answer"`
	Code   int    `json:"http_status"`
	Err    string `json:"error,omitempty"`
}

// Stats holds probe statistics.
type Stats struct {
	Generated    int
	Submitted    int
	Successful   int
	Busy         int
	Failed       int
	ExactChecked int
	ExactMissed  int
	Agreed       int
	Methods      map[string]int
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
}
