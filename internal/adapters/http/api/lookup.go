package api

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/huematch/internal/domain/model"
)

// LookupDependencies defines the interface for color name lookups.
type LookupDependencies interface {
	Lookup(ctx context.Context, c model.RGB8) (model.MatchResult, error)
}

// LookupHandler handles /lookup requests.
type LookupHandler struct {
	deps LookupDependencies
}

// NewLookupHandler creates a new lookup handler.
func NewLookupHandler(deps LookupDependencies) *LookupHandler {
	return &LookupHandler{deps: deps}
}

// lookupRequest is the POST /lookup body. Pointers tell a missing channel
// apart from zero.
type lookupRequest struct {
	R *int `json:"r"`
	G *int `json:"g"`
	B *int `json:"b"`
}

func (l lookupRequest) validate() (model.RGB8, error) {
	var out [3]uint8
	for i, ch := range []struct {
		name string
		v    *int
	}{{"r", l.R}, {"g", l.G}, {"b", l.B}} {
		if ch.v == nil {
			return model.RGB8{}, fmt.Errorf("%w: missing %s", ErrBadRequest, ch.name)
		}
		if *ch.v < 0 || *ch.v > 255 {
			return model.RGB8{}, fmt.Errorf("%w: %s out of range 0..255", ErrBadRequest, ch.name)
		}
		out[i] = uint8(*ch.v)
	}
	return model.RGB8{R: out[0], G: out[1], B: out[2]}, nil
}

type matchResponse struct {
	Name       string  `json:"name"`
	Code       string  `json:"code"`
	Hex        string  `json:"hex"`
	Method     string  `json:"method"`
	Distance   float64 `json:"distance"`
	DurationUs int64   `json:"duration_us"`
	Status     string  `json:"status"`
}

func newMatchResponse(m model.MatchResult) matchResponse {
	return matchResponse{
		Name:       m.Name,
		Code:       m.Code,
		Hex:        m.RGB.Hex(),
		Method:     m.Method.String(),
		Distance:   m.Distance,
		DurationUs: m.Duration.Microseconds(),
		Status:     m.Status.String(),
	}
}

// HandleLookup handles GET /lookup?hex=rrggbb and POST /lookup {"r","g","b"}.
func (h *LookupHandler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	var (
		c   model.RGB8
		err error
	)
	switch r.Method {
	case http.MethodGet:
		c, err = parseHex(r.URL.Query().Get("hex"))
	case http.MethodPost:
		var req lookupRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err = dec.Decode(&req); err != nil {
			err = fmt.Errorf("%w: %v", ErrBadRequest, err)
			break
		}
		c, err = req.validate()
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	res, err := h.deps.Lookup(r.Context(), c)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newMatchResponse(res))
}

// parseHex accepts rrggbb with or without a leading '#'.
func parseHex(s string) (model.RGB8, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return model.RGB8{}, fmt.Errorf("%w: hex must be 6 digits", ErrBadRequest)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return model.RGB8{}, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return model.RGB8{R: b[0], G: b[1], B: b[2]}, nil
}
