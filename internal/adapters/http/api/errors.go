package api

import (
	"context"
	"errors"
	"net/http"

	app "github.com/okian/huematch/internal/app"
	"github.com/okian/huematch/internal/domain/calibration"
	"github.com/okian/huematch/internal/domain/conversion"
	"github.com/okian/huematch/internal/domain/match"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest  = errors.New("bad request")
	ErrUnknownStep = errors.New("unknown calibration step")
)

// classify maps an engine error to a status and a stable error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, match.ErrBusy):
		return http.StatusTooManyRequests, "busy"
	case errors.Is(err, calibration.ErrInvertedReference),
		errors.Is(err, calibration.ErrUnexpectedHue),
		errors.Is(err, calibration.ErrNoSignal):
		return http.StatusConflict, "calibration_rejected"
	case errors.Is(err, calibration.ErrNotReady):
		return http.StatusConflict, "calibration_incomplete"
	case errors.Is(err, conversion.ErrTooFewPairs), errors.Is(err, conversion.ErrSingular):
		return http.StatusUnprocessableEntity, "fit_failed"
	case errors.Is(err, app.ErrNotStarted),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeFailure(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}
