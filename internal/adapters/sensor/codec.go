// Package sensor talks to the tristimulus sensor head.
//
// The head speaks a line protocol over a serial link. Every command is one
// ASCII line and is answered by exactly one line:
//
//	READ        -> OK <x> <y> <z> <ir1> <ir2>
//	GAIN <n>    -> OK            n in 1, 4, 16, 64
//	ATIME <n>   -> OK            integration register, (n+1) * 2.78ms
//	LED <n>     -> OK            illumination level 0..255
//
// Failures come back as "ERR <message>".
package sensor

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/okian/huematch/internal/domain/model"
)

// IntegrationStepMs is the duration of one integration register step.
const IntegrationStepMs = 2.78

// Command verbs.
const (
	cmdRead  = "READ"
	cmdGain  = "GAIN"
	cmdATime = "ATIME"
	cmdLED   = "LED"
)

// FormatCommand renders a command line without the terminator.
func FormatCommand(verb string, args ...int) string {
	if len(args) == 0 {
		return verb
	}
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, verb)
	for _, a := range args {
		parts = append(parts, strconv.Itoa(a))
	}
	return strings.Join(parts, " ")
}

// ParseResponse splits an answer line into its payload fields.
func ParseResponse(line string) ([]string, error) {
	line = strings.TrimSpace(line)
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty line", ErrProtocol)
	}
	switch fields[0] {
	case "OK":
		return fields[1:], nil
	case "ERR":
		return nil, fmt.Errorf("%w: %s", ErrDevice, strings.TrimSpace(strings.TrimPrefix(line, "ERR")))
	default:
		return nil, fmt.Errorf("%w: unexpected %q", ErrProtocol, line)
	}
}

// ParseSample decodes the five channel counts of a READ answer.
func ParseSample(fields []string) (model.RawSample, error) {
	if len(fields) != 5 {
		return model.RawSample{}, fmt.Errorf("%w: want 5 channels, got %d", ErrProtocol, len(fields))
	}
	var v [5]uint16
	for i, f := range fields {
		n, err := strconv.ParseUint(f, 10, 16)
		if err != nil {
			return model.RawSample{}, fmt.Errorf("%w: channel %d: %w", ErrProtocol, i, err)
		}
		v[i] = uint16(n)
	}
	return model.RawSample{X: v[0], Y: v[1], Z: v[2], IR1: v[3], IR2: v[4]}, nil
}

// ATimeFromMillis converts an integration time to the nearest register value.
func ATimeFromMillis(ms float64) uint8 {
	steps := math.Round(ms/IntegrationStepMs) - 1
	switch {
	case steps < 0:
		return 0
	case steps > math.MaxUint8:
		return math.MaxUint8
	}
	return uint8(steps)
}

// MillisFromATime is the inverse of ATimeFromMillis.
func MillisFromATime(atime uint8) float64 {
	return float64(int(atime)+1) * IntegrationStepMs
}
