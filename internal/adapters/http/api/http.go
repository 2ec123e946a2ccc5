// Package api exposes the engine's control surface over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/huematch/internal/domain/calibration"
	"github.com/okian/huematch/internal/domain/conversion"
	"github.com/okian/huematch/internal/domain/model"
	"github.com/okian/huematch/pkg/metrics"
)

// defaultMaxCaptures caps /captures when the server is built without a limit.
const defaultMaxCaptures = 100

// Dependencies required by HTTP handlers. The engine satisfies it; tests
// use a fake.
type Dependencies interface {
	StatsProvider

	Lookup(ctx context.Context, c model.RGB8) (model.MatchResult, error)
	Captures(ctx context.Context) ([]model.Capture, error)

	Calibration() (calibration.Data, error)
	CaptureBlack(ctx context.Context) (calibration.Reference, error)
	CaptureWhite(ctx context.Context) (calibration.Reference, error)
	CaptureHue(ctx context.Context, hue calibration.Hue) (calibration.Reference, error)
	CalibrateVivid(ctx context.Context) ([3]float64, error)
	ResetCalibration(ctx context.Context) error
	FitColorMatrix(ctx context.Context, pairs []conversion.Pair) error
}

// Server wires HTTP routes for the control API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	lookupHandler      *LookupHandler
	capturesHandler    *CapturesHandler
	calibrationHandler *CalibrationHandler
}

// NewServer creates a new API server with all handlers. maxCaptures bounds
// the limit accepted by /captures; values below 1 use the default.
func NewServer(deps Dependencies, maxCaptures int) *Server {
	if maxCaptures < 1 {
		maxCaptures = defaultMaxCaptures
	}
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		lookupHandler:      NewLookupHandler(deps),
		capturesHandler:    NewCapturesHandler(deps, maxCaptures),
		calibrationHandler: NewCalibrationHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/lookup", MetricsMiddleware(s.lookupHandler.HandleLookup, "lookup"))
	mux.HandleFunc("/captures", MetricsMiddleware(s.capturesHandler.HandleGetCaptures, "captures"))
	mux.HandleFunc("/calibration", MetricsMiddleware(s.calibrationHandler.HandleGetCalibration, "calibration"))
	mux.HandleFunc("/calibration/", MetricsMiddleware(s.calibrationHandler.HandleStep, "calibration_step"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
