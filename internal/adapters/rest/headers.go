package rest

import (
	"net/http"
	"strconv"
	"time"
)

// parseRateHeaders reads both the X-RateLimit-* and x-rate-limit-* spellings
func parseRateHeaders(h http.Header) (remaining int, reset time.Time, retryAfter int) {
	remaining = -1
	if v := first(h, "X-RateLimit-Remaining", "X-Rate-Limit-Remaining"); v != "" {
		remaining = atoi(v)
	}
	if sec := atoi(first(h, "X-RateLimit-Reset", "X-Rate-Limit-Reset")); sec > 0 {
		reset = time.Unix(int64(sec), 0).UTC()
	}
	retryAfter = atoi(h.Get("Retry-After"))
	return
}

// computeWait prefers Retry-After, then the window reset once the quota is spent
func computeWait(remaining int, reset time.Time, retryAfter int, now time.Time) time.Duration {
	if retryAfter > 0 {
		return time.Duration(retryAfter) * time.Second
	}
	if remaining == 0 && reset.After(now) {
		return reset.Sub(now)
	}
	return 0
}

func first(h http.Header, keys ...string) string {
	for _, k := range keys {
		if v := h.Get(k); v != "" {
			return v
		}
	}
	return ""
}

func atoi(s string) int {
	if s == "" {
		return 0
	}
	i, _ := strconv.Atoi(s)
	return i
}
