package http

import (
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"

	phttp "murmur/internal/platform/net/http"
	"murmur/internal/services/loops/domain"

	"github.com/go-chi/chi/v5"
)

type fakeStatus []domain.Status

func (f fakeStatus) Snapshot() []domain.Status { return f }

func TestLoopRoutes(t *testing.T) {
	t.Parallel()
	mux := chi.NewRouter()
	Register(phttp.AdaptChi(mux), fakeStatus{
		{Name: "mentions", State: "running", Cycles: 4},
		{Name: "discovery", State: "halted", LastError: "auth: token revoked"},
	})

	cases := []struct {
		path string
		code int
	}{
		{"/", stdhttp.StatusOK},
		{"/mentions", stdhttp.StatusOK},
		{"/targets", stdhttp.StatusNotFound},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodGet, c.path, nil))
		if rec.Code != c.code {
			t.Fatalf("%s: status %d body %s", c.path, rec.Code, rec.Body.String())
		}
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodGet, "/discovery", nil))
	var env struct {
		Data domain.Status `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data.State != "halted" || env.Data.LastError == "" {
		t.Fatalf("status = %+v", env.Data)
	}
}
