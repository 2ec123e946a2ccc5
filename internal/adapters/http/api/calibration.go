package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/huematch/internal/domain/calibration"
	"github.com/okian/huematch/internal/domain/conversion"
)

// CalibrationDependencies defines the interface for calibration operations.
type CalibrationDependencies interface {
	Calibration() (calibration.Data, error)
	CaptureBlack(ctx context.Context) (calibration.Reference, error)
	CaptureWhite(ctx context.Context) (calibration.Reference, error)
	CaptureHue(ctx context.Context, hue calibration.Hue) (calibration.Reference, error)
	CalibrateVivid(ctx context.Context) ([3]float64, error)
	ResetCalibration(ctx context.Context) error
	FitColorMatrix(ctx context.Context, pairs []conversion.Pair) error
}

// CalibrationHandler handles calibration requests.
type CalibrationHandler struct {
	deps CalibrationDependencies
}

// NewCalibrationHandler creates a new calibration handler.
func NewCalibrationHandler(deps CalibrationDependencies) *CalibrationHandler {
	return &CalibrationHandler{deps: deps}
}

type fitRequest struct {
	Pairs []struct {
		XYZ [3]float64 `json:"xyz"`
		RGB [3]float64 `json:"rgb"`
	} `json:"pairs"`
}

type statusResponse struct {
	Status string `json:"status"`
}

// HandleGetCalibration handles GET /calibration requests.
func (h *CalibrationHandler) HandleGetCalibration(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	data, err := h.deps.Calibration()
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// HandleStep handles POST /calibration/{step}, where step is one of black,
// white, blue, yellow, vivid, reset or matrix.
func (h *CalibrationHandler) HandleStep(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	step := strings.TrimPrefix(r.URL.Path, "/calibration/")
	ctx := r.Context()

	var (
		body any
		err  error
	)
	switch step {
	case "black":
		body, err = h.deps.CaptureBlack(ctx)
	case "white":
		body, err = h.deps.CaptureWhite(ctx)
	case "blue":
		body, err = h.deps.CaptureHue(ctx, calibration.HueBlue)
	case "yellow":
		body, err = h.deps.CaptureHue(ctx, calibration.HueYellow)
	case "vivid":
		var scale [3]float64
		scale, err = h.deps.CalibrateVivid(ctx)
		body = map[string][3]float64{"scale": scale}
	case "reset":
		err = h.deps.ResetCalibration(ctx)
		body = statusResponse{Status: "reset"}
	case "matrix":
		var pairs []conversion.Pair
		if pairs, err = decodePairs(r); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		err = h.deps.FitColorMatrix(ctx, pairs)
		body = statusResponse{Status: "fitted"}
	default:
		writeError(w, http.StatusNotFound, "not_found", fmt.Errorf("%w: %q", ErrUnknownStep, step))
		return
	}
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func decodePairs(r *http.Request) ([]conversion.Pair, error) {
	var req fitRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	pairs := make([]conversion.Pair, 0, len(req.Pairs))
	for _, p := range req.Pairs {
		pairs = append(pairs, conversion.Pair{XYZ: p.XYZ, RGB: p.RGB})
	}
	return pairs, nil
}
