package httpkit

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	phttp "murmur/internal/platform/net/http"

	"github.com/go-chi/chi/v5"
)

func TestProtectedWithTokenPort(t *testing.T) {
	t.Parallel()
	m := chi.NewRouter()
	MountAPIV1(phttp.AdaptChi(m), CommonStack(StackOptions{}), func(api Router) {
		Protected(api, NewTokenPort("s3cret", "ops"), func(pr Router) {
			Get(pr, "/whoami", func(r *http.Request) (any, error) { return Operator(r) })
		})
	})

	cases := []struct {
		name   string
		authz  string
		op     string
		status int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong", "Bearer nope", "", http.StatusUnauthorized},
		{"default operator", "Bearer s3cret", "", http.StatusOK},
		{"named operator", "bearer s3cret", "alice", http.StatusOK},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
		if c.authz != "" {
			req.Header.Set("Authorization", c.authz)
		}
		if c.op != "" {
			req.Header.Set(OperatorHeader, c.op)
		}
		rec := httptest.NewRecorder()
		m.ServeHTTP(rec, req)
		if rec.Code != c.status {
			t.Fatalf("%s: status = %d body %s", c.name, rec.Code, rec.Body.String())
		}
	}
}

func TestNilTokenPortDisablesAuth(t *testing.T) {
	t.Parallel()
	if NewTokenPort("  ", "") != nil {
		t.Fatalf("blank token should disable auth")
	}
	m := chi.NewRouter()
	Protected(phttp.AdaptChi(m), nil, func(pr Router) {
		Get(pr, "/open", func(*http.Request) (any, error) { return "ok", nil })
	})
	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/open", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestPostJSONSugar(t *testing.T) {
	t.Parallel()
	type noteIn struct {
		Notes string `json:"notes" validate:"required"`
	}
	m := chi.NewRouter()
	PostJSON(phttp.AdaptChi(m), "/notes", func(_ *http.Request, in noteIn) (any, error) {
		return Created(map[string]string{"notes": in.Notes}), nil
	})

	cases := []struct {
		body   string
		status int
	}{
		{`{"notes":"ok"}`, http.StatusCreated},
		{`{"notes":""}`, http.StatusBadRequest},
		{`{"other":1}`, http.StatusBadRequest},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		m.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/notes", strings.NewReader(c.body)))
		if rec.Code != c.status {
			t.Fatalf("%s: status = %d body %s", c.body, rec.Code, rec.Body.String())
		}
	}
}
