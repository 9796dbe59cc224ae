// Package rest is the resilient JSON client shared by the platform adapters
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	perr "murmur/internal/platform/errors"
	"murmur/internal/platform/logger"
	"murmur/internal/platform/metrics"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	defaultTimeout   = 20 * time.Second
	defaultRetryBase = 500 * time.Millisecond
	defaultRetryMax  = 10 * time.Second
	maxBody          = 4 << 20
)

var requestsTotal = metrics.Factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: metrics.Namespace,
	Name:      "upstream_requests_total",
	Help:      "Outbound API requests by client and status class",
}, []string{"client", "status"})

// Options configures a Client
type Options struct {
	// Name labels logs and metrics
	Name      string
	BaseURL   string
	UserAgent string
	Timeout   time.Duration

	// MaxRetries applies to transport errors and 5xx only. Zero disables
	// retries, which non-idempotent writers rely on
	MaxRetries int
	RetryBase  time.Duration
	RetryMax   time.Duration

	// Authorize decorates every request, usually with a bearer token
	Authorize func(*http.Request)
}

// Client issues JSON requests with retries and maps failures onto perr codes
type Client struct {
	http *http.Client
	opts Options
	exec failsafe.Executor[*http.Response]
	log  logger.Logger
	now  func() time.Time
}

// New builds a Client with defaults for zero options
func New(o Options) *Client {
	if o.Name == "" {
		o.Name = "rest"
	}
	if o.UserAgent == "" {
		o.UserAgent = "murmur"
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryBase <= 0 {
		o.RetryBase = defaultRetryBase
	}
	if o.RetryMax < o.RetryBase {
		o.RetryMax = max(defaultRetryMax, o.RetryBase)
	}

	policy := retrypolicy.NewBuilder[*http.Response]().
		WithBackoff(o.RetryBase, o.RetryMax).
		WithMaxRetries(o.MaxRetries).
		WithJitterFactor(0.1).
		HandleIf(func(_ *http.Response, err error) bool { return retryable(err) }).
		Build()

	return &Client{
		http: &http.Client{Timeout: o.Timeout},
		opts: o,
		exec: failsafe.With(policy),
		log:  *logger.Named(o.Name),
		now:  time.Now,
	}
}

// StatusError is a non-2xx response
type StatusError struct {
	Status     int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Body)
}

// retryable reports whether another attempt may succeed. Rate limits are not
// retried here; the caller's loop waits them out
func retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status >= 500 || se.Status == http.StatusRequestTimeout
	}
	return true
}

// Do sends body as JSON to path with query and decodes the response into out.
// out and body may be nil
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "%s: encode request", c.opts.Name)
		}
		payload = b
	}
	target := c.opts.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	attempt := 0
	var last error
	resp, err := c.exec.WithContext(ctx).Get(func() (*http.Response, error) {
		resp, err := c.once(ctx, method, target, path, payload, attempt)
		attempt++
		last = err
		return resp, err
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if last != nil {
			err = last
		}
		return c.classify(err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Error().Err(cerr).Str("path", path).Msg("close body failed")
		}
	}()

	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(out); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "%s: decode %s", c.opts.Name, path)
	}
	return nil
}

// once performs a single attempt. Any non-2xx response is consumed and
// returned as a *StatusError
func (c *Client) once(ctx context.Context, method, target, path string, payload []byte, attempt int) (*http.Response, error) {
	var rdr io.Reader
	if payload != nil {
		rdr = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rdr)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "%s: new request", c.opts.Name)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.opts.Authorize != nil {
		c.opts.Authorize(req)
	}

	start := c.now()
	resp, err := c.http.Do(req)
	lat := c.now().Sub(start)
	if err != nil {
		requestsTotal.WithLabelValues(c.opts.Name, "transport").Inc()
		c.log.Warn().Err(err).Str("path", path).Int("attempt", attempt).Msg("transport error")
		return nil, err
	}

	rem, reset, retryAfter := parseRateHeaders(resp.Header)
	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Int("attempt", attempt).
		Dur("latency", lat).
		Int("rate_remaining", rem).
		Time("rate_reset", reset).
		Msg("upstream response")
	requestsTotal.WithLabelValues(c.opts.Name, statusClass(resp.StatusCode)).Inc()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	tail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	_ = resp.Body.Close()
	return nil, &StatusError{
		Status:     resp.StatusCode,
		Body:       string(tail),
		RetryAfter: computeWait(rem, reset, retryAfter, c.now()),
	}
}

// classify maps a final failure onto the error taxonomy the loops understand
func (c *Client) classify(err error) error {
	var se *StatusError
	if !errors.As(err, &se) {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "%s: transport", c.opts.Name)
	}
	switch {
	case se.Status == http.StatusTooManyRequests:
		return perr.WithRetryAfter(perr.Wrapf(se, perr.ErrorCodeTooManyRequests, "%s: rate limited", c.opts.Name), se.RetryAfter)
	case se.Status == http.StatusUnauthorized:
		return perr.Wrapf(se, perr.ErrorCodeUnauthorized, "%s: unauthorized", c.opts.Name)
	case se.Status == http.StatusForbidden:
		return perr.Wrapf(se, perr.ErrorCodeForbidden, "%s: forbidden", c.opts.Name)
	case se.Status == http.StatusNotFound:
		return perr.Wrapf(se, perr.ErrorCodeNotFound, "%s: not found", c.opts.Name)
	case se.Status == http.StatusConflict:
		return perr.Wrapf(se, perr.ErrorCodeConflict, "%s: conflict", c.opts.Name)
	case se.Status == http.StatusBadRequest || se.Status == http.StatusUnprocessableEntity:
		return perr.Wrapf(se, perr.ErrorCodeInvalidArgument, "%s: rejected", c.opts.Name)
	case se.Status >= 500 || se.Status == http.StatusRequestTimeout:
		return perr.Wrapf(se, perr.ErrorCodeUnavailable, "%s: upstream unavailable", c.opts.Name)
	default:
		return perr.Wrapf(se, perr.ErrorCodeUnknown, "%s: unexpected status", c.opts.Name)
	}
}

func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}
