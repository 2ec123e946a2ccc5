package probe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/huematch/internal/adapters/palette"
	"github.com/okian/huematch/internal/domain/model"
	"github.com/okian/huematch/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// fakeService answers lookups from the built-in palette. Every busyEvery-th
// request is refused; a non-empty fixed name replaces every answer.
func fakeService(busyEvery int64, fixed string) *httptest.Server {
	pal := palette.Fallback()
	var n int64
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("/lookup", func(w http.ResponseWriter, r *http.Request) {
		if busyEvery > 0 && atomic.AddInt64(&n, 1)%busyEvery == 0 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"code":"busy"}`))
			return
		}
		var q struct{ R, G, B uint8 }
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		rec, d, _ := pal.FindClosestLinear(r.Context(), model.RGB8{R: q.R, G: q.G, B: q.B})
		name := rec.Name
		if fixed != "" {
			name = fixed
		}
		_ = json.NewEncoder(w).Encode(Answer{Name: name, Code: rec.Code, Method: "linear", Distance: d, Status: "ok"})
	})
	return httptest.NewServer(mux)
}

func TestGenerateQueries(t *testing.T) {
	convey.Convey("Given a seeded generator over the built-in palette", t, func() {
		ctx := context.Background()
		pal := palette.Fallback()
		stats := &Stats{}

		a, err := generateQueries(ctx, 40, 7, pal, stats)
		convey.So(err, convey.ShouldBeNil)
		b, err := generateQueries(ctx, 40, 7, pal, &Stats{})
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then the same seed gives the same queries", func() {
			convey.So(a, convey.ShouldResemble, b)
			convey.So(stats.Generated, convey.ShouldEqual, 40)
		})

		convey.Convey("Then every fourth query is an exact palette color", func() {
			for i, q := range a {
				if i%exactEvery == 0 {
					convey.So(q.Expect, convey.ShouldNotBeEmpty)
				} else {
					convey.So(q.Expect, convey.ShouldBeEmpty)
				}
			}
		})

		convey.Convey("Then a cancelled context stops generation", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := generateQueries(cctx, 10, 1, pal, &Stats{})
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a service that answers from the same palette", t, func() {
		srv := fakeService(5, "")
		defer srv.Close()
		out := filepath.Join(t.TempDir(), "out", "results.json")

		cfg := &Config{
			BaseURL:    srv.URL,
			Lookups:    50,
			Workers:    4,
			Timeout:    time.Second,
			Seed:       3,
			OutputFile: out,
		}

		convey.Convey("When the probe runs", func() {
			stats, err := Run(context.Background(), cfg)

			convey.Convey("Then it succeeds and accounts for every lookup", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(stats.Submitted, convey.ShouldEqual, 50)
				convey.So(stats.Busy, convey.ShouldEqual, 10)
				convey.So(stats.Successful, convey.ShouldEqual, 40)
				convey.So(stats.Failed, convey.ShouldEqual, 0)
				convey.So(stats.ExactMissed, convey.ShouldEqual, 0)
				convey.So(stats.Agreed, convey.ShouldEqual, 40)
				convey.So(stats.Methods["linear"], convey.ShouldEqual, 40)
			})

			convey.Convey("Then results are written in query order", func() {
				data, err := os.ReadFile(out)
				convey.So(err, convey.ShouldBeNil)
				var results []Result
				convey.So(json.Unmarshal(data, &results), convey.ShouldBeNil)
				convey.So(len(results), convey.ShouldEqual, 50)
				convey.So(results[0].Query.Expect, convey.ShouldNotBeEmpty)
			})
		})
	})

	convey.Convey("Given a service that misnames colors", t, func() {
		srv := fakeService(0, "Not A Color")
		defer srv.Close()

		convey.Convey("Then the run reports exact mismatches", func() {
			stats, err := Run(context.Background(), &Config{BaseURL: srv.URL, Lookups: 8, Workers: 2, Timeout: time.Second})
			convey.So(errors.Is(err, ErrExactMismatch), convey.ShouldBeTrue)
			convey.So(stats.ExactMissed, convey.ShouldEqual, stats.ExactChecked)
			convey.So(stats.ExactChecked, convey.ShouldEqual, 2)
		})
	})

	convey.Convey("Given an unhealthy service", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		convey.Convey("Then the run stops before submitting", func() {
			stats, err := Run(context.Background(), &Config{BaseURL: srv.URL, Lookups: 5, Workers: 1, Timeout: time.Second})
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(stats.Submitted, convey.ShouldEqual, 0)
		})
	})
}
