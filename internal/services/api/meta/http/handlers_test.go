package http

import (
	"context"
	"encoding/json"
	"errors"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	phttp "murmur/internal/platform/net/http"
	loops "murmur/internal/services/loops/domain"

	"github.com/go-chi/chi/v5"
)

type pingFn func(context.Context) error

func (f pingFn) Ping(ctx context.Context) error { return f(ctx) }

type fakeLoops []loops.Status

func (f fakeLoops) Snapshot() []loops.Status { return f }

func ok(context.Context) error { return nil }

func readyOf(t *testing.T, d Deps) ReadyResponse {
	t.Helper()
	mux := chi.NewRouter()
	Register(phttp.AdaptChi(mux), d)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodGet, "/ready", nil))
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	var env struct {
		Data ReadyResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return env.Data
}

func TestReady(t *testing.T) {
	t.Parallel()

	down := pingFn(func(context.Context) error { return errors.New("connection refused") })

	cases := []struct {
		name   string
		deps   Deps
		want   string
		checks int
	}{
		{"all ok", Deps{Checks: []Check{{Name: "pg", Pinger: pingFn(ok)}}}, "ok", 1},
		{"skipped store", Deps{Checks: []Check{{Name: "pg", Pinger: pingFn(ok)}, {Name: "ch"}}}, "ok", 2},
		{"store down", Deps{Checks: []Check{{Name: "pg", Pinger: down}}}, "fail", 1},
		{"loop halted", Deps{
			Checks: []Check{{Name: "pg", Pinger: pingFn(ok)}},
			Loops:  fakeLoops{{Name: "mentions", State: "running"}, {Name: "content", State: "halted", LastError: "auth"}},
		}, "degraded", 2},
		{"loops running", Deps{Loops: fakeLoops{{Name: "mentions", State: "cooling_down"}}}, "ok", 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			got := readyOf(t, c.deps)
			if got.Status != c.want || len(got.Checks) != c.checks {
				t.Fatalf("ready = %+v", got)
			}
		})
	}
}

func TestServiceUptime(t *testing.T) {
	t.Parallel()
	start := time.Date(2026, 3, 3, 13, 0, 0, 0, time.UTC)
	mux := chi.NewRouter()
	Register(phttp.AdaptChi(mux), Deps{
		ServiceName: "murmur",
		StartedAt:   start,
		Now:         func() time.Time { return start.Add(5 * time.Minute) },
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodGet, "/service", nil))
	var env struct {
		Data ServiceResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data.Uptime != 300 || env.Data.Name != "murmur" {
		t.Fatalf("service = %+v", env.Data)
	}

	for _, p := range []string{"/health", "/version"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodGet, p, nil))
		if rec.Code != stdhttp.StatusOK {
			t.Fatalf("%s: status %d", p, rec.Code)
		}
	}
}
