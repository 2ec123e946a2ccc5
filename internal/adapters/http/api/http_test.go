package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/huematch/internal/adapters/http/api"
	app "github.com/okian/huematch/internal/app"
	"github.com/okian/huematch/internal/domain/calibration"
	"github.com/okian/huematch/internal/domain/conversion"
	"github.com/okian/huematch/internal/domain/match"
	"github.com/okian/huematch/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type mockEngine struct {
	lookups   []model.RGB8
	lookupErr error
	captures  []model.Capture
	stepErr   error
	steps     []string
	pairs     []conversion.Pair
}

func (m *mockEngine) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true, "cycles": 3}
}

func (m *mockEngine) Lookup(_ context.Context, c model.RGB8) (model.MatchResult, error) {
	m.lookups = append(m.lookups, c)
	if m.lookupErr != nil {
		return model.MatchResult{Status: model.StatusBusy}, m.lookupErr
	}
	return model.MatchResult{
		Name:     "Bright Red",
		Code:     "R-01",
		RGB:      model.RGB8{R: 220, G: 50, B: 50},
		Method:   model.MethodIndex,
		Distance: 4.5,
		Duration: 120 * time.Microsecond,
	}, nil
}

func (m *mockEngine) Captures(context.Context) ([]model.Capture, error) {
	return m.captures, nil
}

func (m *mockEngine) Calibration() (calibration.Data, error) {
	return calibration.Data{Version: calibration.DataVersion, Calibrated: true}, nil
}

func (m *mockEngine) step(name string) (calibration.Reference, error) {
	m.steps = append(m.steps, name)
	if m.stepErr != nil {
		return calibration.Reference{}, m.stepErr
	}
	return calibration.Reference{X: 100, Y: 110, Z: 90, Valid: true}, nil
}

func (m *mockEngine) CaptureBlack(context.Context) (calibration.Reference, error) {
	return m.step("black")
}

func (m *mockEngine) CaptureWhite(context.Context) (calibration.Reference, error) {
	return m.step("white")
}

func (m *mockEngine) CaptureHue(_ context.Context, hue calibration.Hue) (calibration.Reference, error) {
	return m.step(hue.String())
}

func (m *mockEngine) CalibrateVivid(context.Context) ([3]float64, error) {
	_, err := m.step("vivid")
	return [3]float64{1.1, 1.2, 1.3}, err
}

func (m *mockEngine) ResetCalibration(context.Context) error {
	_, err := m.step("reset")
	return err
}

func (m *mockEngine) FitColorMatrix(_ context.Context, pairs []conversion.Pair) error {
	m.pairs = pairs
	_, err := m.step("matrix")
	return err
}

func serve(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
	return out
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockEngine{}
		mux := http.NewServeMux()
		api.NewServer(deps, 10).Register(mux)

		Convey("Then health reports ok", func() {
			w := serve(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["status"], ShouldEqual, "ok")
		})

		Convey("Then stats come from the provider", func() {
			w := serve(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["cycles"], ShouldEqual, float64(3))
		})

		Convey("Then metrics are exposed", func() {
			serve(mux, http.MethodGet, "/healthz", "")
			w := serve(mux, http.MethodGet, "/metrics", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "http_requests_total")
		})

		Convey("Then unknown paths are not found", func() {
			w := serve(mux, http.MethodGet, "/unknown", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then wrong methods are not found", func() {
			So(serve(mux, http.MethodPost, "/healthz", "").Code, ShouldEqual, http.StatusNotFound)
			So(serve(mux, http.MethodDelete, "/lookup", "").Code, ShouldEqual, http.StatusNotFound)
			So(serve(mux, http.MethodGet, "/calibration/black", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestLookupHandler(t *testing.T) {
	Convey("Given a lookup handler", t, func() {
		deps := &mockEngine{}
		mux := http.NewServeMux()
		api.NewServer(deps, 10).Register(mux)

		Convey("When looking up by hex", func() {
			w := serve(mux, http.MethodGet, "/lookup?hex=%23dc3232", "")

			Convey("Then the match is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["name"], ShouldEqual, "Bright Red")
				So(body["hex"], ShouldEqual, "#dc3232")
				So(body["method"], ShouldEqual, "index")
				So(body["status"], ShouldEqual, "ok")
				So(body["duration_us"], ShouldEqual, float64(120))
				So(deps.lookups, ShouldResemble, []model.RGB8{{R: 220, G: 50, B: 50}})
			})
		})

		Convey("When posting channels", func() {
			w := serve(mux, http.MethodPost, "/lookup", `{"r":0,"g":128,"b":255}`)

			Convey("Then zero is accepted as a value", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lookups, ShouldResemble, []model.RGB8{{R: 0, G: 128, B: 255}})
			})
		})

		Convey("When the request is malformed", func() {
			cases := []struct {
				method, target, body string
			}{
				{http.MethodGet, "/lookup", ""},
				{http.MethodGet, "/lookup?hex=zzzzzz", ""},
				{http.MethodGet, "/lookup?hex=fff", ""},
				{http.MethodPost, "/lookup", `{"r":1,"g":2}`},
				{http.MethodPost, "/lookup", `{"r":1,"g":2,"b":256}`},
				{http.MethodPost, "/lookup", `{"r":-1,"g":2,"b":3}`},
				{http.MethodPost, "/lookup", `{"r":1,"g":2,"b":3,"a":4}`},
				{http.MethodPost, "/lookup", `not json`},
			}
			for _, tc := range cases {
				Convey(fmt.Sprintf("Then %s %s %s is rejected", tc.method, tc.target, tc.body), func() {
					w := serve(mux, tc.method, tc.target, tc.body)
					So(w.Code, ShouldEqual, http.StatusBadRequest)
					So(decode(w)["code"], ShouldEqual, "bad_request")
					So(deps.lookups, ShouldBeEmpty)
				})
			}
		})

		Convey("When the engine is busy", func() {
			deps.lookupErr = match.ErrBusy
			w := serve(mux, http.MethodGet, "/lookup?hex=000000", "")

			Convey("Then the request is refused with 429", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				So(decode(w)["code"], ShouldEqual, "busy")
			})
		})

		Convey("When the engine is not started", func() {
			deps.lookupErr = app.ErrNotStarted
			w := serve(mux, http.MethodGet, "/lookup?hex=000000", "")

			Convey("Then the service is unavailable", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			})
		})
	})
}

func TestCapturesHandler(t *testing.T) {
	Convey("Given a history of three captures", t, func() {
		at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		deps := &mockEngine{captures: []model.Capture{
			{ID: "c3", At: at, RGB: model.RGB8{R: 255, G: 255, B: 255}, Name: "White", Method: model.MethodCached},
			{ID: "c2", At: at, Name: "Grey", Method: model.MethodLinear},
			{ID: "c1", At: at, Name: "Black", Method: model.MethodIndex},
		}}
		mux := http.NewServeMux()
		api.NewServer(deps, 2).Register(mux)

		Convey("When no limit is given", func() {
			w := serve(mux, http.MethodGet, "/captures", "")

			Convey("Then the server cap applies", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var out []map[string]interface{}
				So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
				So(len(out), ShouldEqual, 2)
				So(out[0]["id"], ShouldEqual, "c3")
				So(out[0]["hex"], ShouldEqual, "#ffffff")
				So(out[0]["method"], ShouldEqual, "cached")
			})
		})

		Convey("When a limit of one is given", func() {
			w := serve(mux, http.MethodGet, "/captures?limit=1", "")

			Convey("Then only the newest capture is returned", func() {
				var out []map[string]interface{}
				So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
				So(len(out), ShouldEqual, 1)
				So(out[0]["name"], ShouldEqual, "White")
			})
		})

		Convey("When the limit is invalid or too large", func() {
			So(serve(mux, http.MethodGet, "/captures?limit=0", "").Code, ShouldEqual, http.StatusBadRequest)
			So(serve(mux, http.MethodGet, "/captures?limit=abc", "").Code, ShouldEqual, http.StatusBadRequest)
			w := serve(mux, http.MethodGet, "/captures?limit=3", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, "limit_exceeded")
		})
	})
}

func TestCalibrationHandler(t *testing.T) {
	Convey("Given a calibration handler", t, func() {
		deps := &mockEngine{}
		mux := http.NewServeMux()
		api.NewServer(deps, 0).Register(mux)

		Convey("When reading the calibration", func() {
			w := serve(mux, http.MethodGet, "/calibration", "")

			Convey("Then the persisted layout is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["version"], ShouldEqual, float64(calibration.DataVersion))
				So(body["calibrated"], ShouldBeTrue)
			})
		})

		Convey("When running each step", func() {
			for _, step := range []string{"black", "white", "blue", "yellow", "vivid", "reset"} {
				w := serve(mux, http.MethodPost, "/calibration/"+step, "")
				So(w.Code, ShouldEqual, http.StatusOK)
			}

			Convey("Then every step reaches the engine in order", func() {
				So(deps.steps, ShouldResemble, []string{"black", "white", "blue", "yellow", "vivid", "reset"})
			})
		})

		Convey("When the vivid step succeeds", func() {
			w := serve(mux, http.MethodPost, "/calibration/vivid", "")

			Convey("Then the scale is returned", func() {
				So(decode(w)["scale"], ShouldResemble, []interface{}{1.1, 1.2, 1.3})
			})
		})

		Convey("When fitting a matrix", func() {
			w := serve(mux, http.MethodPost, "/calibration/matrix",
				`{"pairs":[{"xyz":[1,2,3],"rgb":[0.1,0.2,0.3]},{"xyz":[4,5,6],"rgb":[0.4,0.5,0.6]}]}`)

			Convey("Then the pairs are forwarded", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.pairs, ShouldResemble, []conversion.Pair{
					{XYZ: [3]float64{1, 2, 3}, RGB: [3]float64{0.1, 0.2, 0.3}},
					{XYZ: [3]float64{4, 5, 6}, RGB: [3]float64{0.4, 0.5, 0.6}},
				})
			})
		})

		Convey("When the matrix body is malformed", func() {
			w := serve(mux, http.MethodPost, "/calibration/matrix", `{"pairs":"nope"}`)

			Convey("Then it is rejected before reaching the engine", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(deps.steps, ShouldBeEmpty)
			})
		})

		Convey("When the step is unknown", func() {
			w := serve(mux, http.MethodPost, "/calibration/green", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(deps.steps, ShouldBeEmpty)
		})

		Convey("When the engine rejects a step", func() {
			cases := []struct {
				err    error
				status int
				code   string
			}{
				{calibration.ErrInvertedReference, http.StatusConflict, "calibration_rejected"},
				{calibration.ErrUnexpectedHue, http.StatusConflict, "calibration_rejected"},
				{calibration.ErrNoSignal, http.StatusConflict, "calibration_rejected"},
				{calibration.ErrNotReady, http.StatusConflict, "calibration_incomplete"},
				{conversion.ErrTooFewPairs, http.StatusUnprocessableEntity, "fit_failed"},
				{fmt.Errorf("wrapped: %w", app.ErrNotStarted), http.StatusServiceUnavailable, "unavailable"},
				{fmt.Errorf("sensor exploded"), http.StatusInternalServerError, "internal_error"},
			}
			for _, tc := range cases {
				Convey(fmt.Sprintf("Then %q maps to %d", tc.err, tc.status), func() {
					deps.stepErr = tc.err
					w := serve(mux, http.MethodPost, "/calibration/white", "")
					So(w.Code, ShouldEqual, tc.status)
					So(decode(w)["code"], ShouldEqual, tc.code)
				})
			}
		})
	})
}
