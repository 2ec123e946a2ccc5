package model

import "time"

// Method identifies which search path produced a match.
type Method uint8

// Search paths, fastest first.
const (
	MethodIndex Method = iota
	MethodLinear
	MethodHeuristic
	MethodCached
)

func (m Method) String() string {
	switch m {
	case MethodIndex:
		return "index"
	case MethodLinear:
		return "linear"
	case MethodHeuristic:
		return "heuristic"
	case MethodCached:
		return "cached"
	default:
		return "unknown"
	}
}

// Status tells the caller whether the lookup actually ran.
type Status uint8

// Lookup outcomes.
const (
	StatusOK Status = iota
	StatusBusy
)

func (s Status) String() string {
	if s == StatusBusy {
		return "busy"
	}
	return "ok"
}

// MatchResult is the answer to a color name lookup.
type MatchResult struct {
	Name     string
	Code     string
	RGB      RGB8 // color of the matched record; zero for heuristic matches
	Method   Method
	Distance float64
	Duration time.Duration
	Status   Status
}
