package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/huematch/internal/domain/model"
)

// CapturesDependencies defines the interface for capture history reads.
type CapturesDependencies interface {
	Captures(ctx context.Context) ([]model.Capture, error)
}

// CapturesHandler handles capture history requests.
type CapturesHandler struct {
	deps     CapturesDependencies
	maxLimit int
}

// NewCapturesHandler creates a new captures handler.
func NewCapturesHandler(deps CapturesDependencies, maxLimit int) *CapturesHandler {
	return &CapturesHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

type captureResponse struct {
	ID         string    `json:"id"`
	At         time.Time `json:"at"`
	Raw        [5]uint16 `json:"raw"`
	Hex        string    `json:"hex"`
	Name       string    `json:"name"`
	Method     string    `json:"method"`
	DurationUs int64     `json:"duration_us"`
}

// HandleGetCaptures handles GET /captures?limit=N requests. Without a limit
// the whole history is returned, newest first.
func (h *CapturesHandler) HandleGetCaptures(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n := h.maxLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: limit must be a positive integer", ErrBadRequest))
			return
		}
		if v > h.maxLimit {
			writeError(w, http.StatusBadRequest, "limit_exceeded", fmt.Errorf("%w: limit above %d", ErrBadRequest, h.maxLimit))
			return
		}
		n = v
	}

	caps, err := h.deps.Captures(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	if len(caps) > n {
		caps = caps[:n]
	}
	out := make([]captureResponse, 0, len(caps))
	for _, c := range caps {
		out = append(out, captureResponse{
			ID:         c.ID,
			At:         c.At,
			Raw:        [5]uint16{c.Raw.X, c.Raw.Y, c.Raw.Z, c.Raw.IR1, c.Raw.IR2},
			Hex:        c.RGB.Hex(),
			Name:       c.Name,
			Method:     c.Method.String(),
			DurationUs: c.Duration.Microseconds(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}
