package http

import (
	"bytes"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	perr "murmur/internal/platform/errors"

	"github.com/go-chi/chi/v5"
)

type echoIn struct {
	Text string `json:"text" validate:"required,max=5"`
}

func newRouter() (*chi.Mux, Router) {
	m := chi.NewRouter()
	return m, AdaptChi(m)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return env
}

func TestJSONHandlerBindsAndValidates(t *testing.T) {
	t.Parallel()
	m, r := newRouter()
	r.Route("/v1", func(sub Router) {
		sub.Post("/echo", JSONHandler(func(_ *stdhttp.Request, in echoIn) (any, error) {
			return Created(map[string]string{"text": in.Text}), nil
		}))
	})

	cases := []struct {
		name   string
		body   string
		status int
	}{
		{"ok", `{"text":"hi"}`, stdhttp.StatusCreated},
		{"too long", `{"text":"toolong"}`, stdhttp.StatusBadRequest},
		{"unknown field", `{"text":"hi","x":1}`, stdhttp.StatusBadRequest},
		{"empty", ``, stdhttp.StatusBadRequest},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		m.ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodPost, "/v1/echo", bytes.NewBufferString(c.body)))
		if rec.Code != c.status {
			t.Fatalf("%s: status = %d body %s", c.name, rec.Code, rec.Body.String())
		}
	}
}

func TestErrorEnvelopeAndRetryAfter(t *testing.T) {
	t.Parallel()
	m, r := newRouter()
	r.Get("/limited", JSONHandlerNoBody(func(*stdhttp.Request) (any, error) {
		return nil, perr.WithRetryAfter(perr.New(perr.ErrorCodeTooManyRequests, "slow down"), 1500*time.Millisecond)
	}))

	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodGet, "/limited", nil))
	if rec.Code != stdhttp.StatusTooManyRequests {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "2" {
		t.Fatalf("Retry-After = %q", got)
	}
	env := decode(t, rec)
	if env.Code != perr.ErrorCodeTooManyRequests || env.Error != "slow down" {
		t.Fatalf("envelope = %+v", env)
	}
}

func TestListShape(t *testing.T) {
	t.Parallel()
	m, r := newRouter()
	r.Get("/items", Handle(func(*stdhttp.Request) Response { return List([]int{1, 2}, 2, 50, "") }))

	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodGet, "/items", nil))
	var body struct {
		Data struct {
			Items []int `json:"items"`
			Page  Page  `json:"page"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Data.Items) != 2 || body.Data.Page.Limit != 50 {
		t.Fatalf("body = %+v", body)
	}
}
