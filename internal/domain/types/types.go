// Package types contains wire types shared by the reporting adapters.
package types

// MatchReport is the observability event emitted after every lookup.
type MatchReport struct {
	ID             string `json:"id"`
	Method         string `json:"method"`
	DurationMicros int64  `json:"duration_us"`
	MatchedName    string `json:"matched_name"`
	Code           string `json:"code,omitempty"`
	Hex            string `json:"hex"`
	Timestamp      int64  `json:"ts"`
}
