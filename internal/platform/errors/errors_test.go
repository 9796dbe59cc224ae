package errors

import (
	"context"
	stderrs "errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestHTTPStatusCodeMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code ErrorCode
		want int
	}{
		{ErrorCodeNotFound, http.StatusNotFound},
		{ErrorCodeConflict, http.StatusConflict},
		{ErrorCodeValidation, http.StatusBadRequest},
		{ErrorCodeUnauthorized, http.StatusUnauthorized},
		{ErrorCodePolicyDenied, http.StatusForbidden},
		{ErrorCodeTooManyRequests, http.StatusTooManyRequests},
		{ErrorCodeCircuitOpen, http.StatusServiceUnavailable},
		{ErrorCodeGeneration, http.StatusBadGateway},
		{ErrorCodeDB, http.StatusInternalServerError},
		{9999, http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := HTTPStatusCode(c.code); got != c.want {
			t.Fatalf("HTTPStatusCode(%v) = %d, want %d", c.code, got, c.want)
		}
	}
}

func TestWrapKeepsCodeThroughFmtWrapping(t *testing.T) {
	t.Parallel()

	src := stderrs.New("root")
	e := Wrap(src, ErrorCodeDB, "db failed")
	outer := fmt.Errorf("outer: %w", e)

	if !IsCode(outer, ErrorCodeDB) {
		t.Fatalf("CodeOf(outer) = %v, want db", CodeOf(outer))
	}
	if Root(outer) != src {
		t.Fatalf("Root did not reach the original cause")
	}
	if got := e.Error(); got != "db failed: root" {
		t.Fatalf("Error() = %q", got)
	}
	if CodeOf(src) != ErrorCodeUnknown {
		t.Fatalf("foreign error should map to unknown")
	}
}

func TestRetryAfterRoundTrip(t *testing.T) {
	t.Parallel()

	e := WithRetryAfter(Newf(ErrorCodeTooManyRequests, "slow down"), 7*time.Second)
	if got := RetryAfterOf(e); got != 7*time.Second {
		t.Fatalf("RetryAfterOf = %v, want 7s", got)
	}

	foreign := WithRetryAfter(stderrs.New("429"), time.Second)
	if !IsCode(foreign, ErrorCodeTooManyRequests) {
		t.Fatalf("foreign error should be wrapped as rate limited, got %v", CodeOf(foreign))
	}
	if RetryAfterOf(stderrs.New("x")) != 0 {
		t.Fatalf("plain error should carry no hint")
	}
	if WithRetryAfter(nil, time.Second) != nil {
		t.Fatalf("nil in should be nil out")
	}
}

func TestWithFieldIsCopyOnWrite(t *testing.T) {
	t.Parallel()

	base := New(ErrorCodeValidation, "bad")
	withField := WithField(base, "content")

	b, _ := As(base)
	f, _ := As(withField)
	if b.Field() != "" || f.Field() != "content" {
		t.Fatalf("field leak: base=%q copy=%q", b.Field(), f.Field())
	}
	if WireFrom(withField).Field != "content" {
		t.Fatalf("wire lost field")
	}
}

func TestCodeStringIsStable(t *testing.T) {
	t.Parallel()

	if ErrorCodePolicyDenied.String() != "policy_denied" || ErrorCodeTooManyRequests.String() != "rate_limited" {
		t.Fatalf("unexpected code names")
	}
	if ErrorCode(9999).String() != "unknown" {
		t.Fatalf("default name should be unknown")
	}
}

func TestFromPostgresMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code string
		want ErrorCode
	}{
		{"23505", ErrorCodeDuplicateKey},
		{"23503", ErrorCodeInvalidArgument},
		{"23514", ErrorCodeValidation},
		{"57P03", ErrorCodeUnavailable},
		{"40001", ErrorCodeDB},
	}
	for _, c := range cases {
		err := FromPostgres(&pgconn.PgError{Code: c.code}, "op")
		if CodeOf(err) != c.want {
			t.Fatalf("FromPostgres(%s) = %v, want %v", c.code, CodeOf(err), c.want)
		}
	}

	if FromPostgres(nil, "x") != nil {
		t.Fatalf("nil passthrough broken")
	}
	already := Conflictf("nope")
	if FromPostgres(already, "x") != already {
		t.Fatalf("classified errors should pass through")
	}
	if !IsCode(FromPostgres(context.DeadlineExceeded, "x"), ErrorCodeUnavailable) {
		t.Fatalf("deadline should map to unavailable")
	}
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	if !IsRetryable(&pgconn.PgError{Code: "40001"}) {
		t.Fatalf("serialization failure should be retryable")
	}
	if IsRetryable(&pgconn.PgError{Code: "23505"}) {
		t.Fatalf("unique violation should not be retryable")
	}
	if IsRetryable(context.Canceled) {
		t.Fatalf("cancellation is never retryable")
	}
	if !IsRetryable(stderrs.New("commit unexpectedly resulted in rollback")) {
		t.Fatalf("commit rollback text should be retryable")
	}
}
