// Package http provides the telemetry read endpoints
package http

import (
	stdhttp "net/http"
	"strings"
	"time"

	"murmur/internal/modkit/httpkit"
	perr "murmur/internal/platform/errors"
	"murmur/internal/services/telemetry/domain"
)

// DefaultWindow applies when since is omitted
const DefaultWindow = 24 * time.Hour

// Register mounts telemetry endpoints
func Register(r httpkit.Router, rep domain.ReporterPort, now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	h := &handlers{rep: rep, now: now}

	// counts of scored, replied, posted and thread rows since a time
	httpkit.Get(r, "/counts", h.counts)

	// generation token totals per provider and model
	httpkit.Get(r, "/usage", h.usage)
}

type handlers struct {
	rep domain.ReporterPort
	now func() time.Time
}

// swagger:route GET /telemetry/counts Telemetry telemetryCounts
// @Summary Action counts since a point in time
// @Tags Telemetry
// @Produce json
// @Param since query string false "RFC3339 time or a duration back from now such as 24h"
// @Success 200 {object} domain.Counts "ok"
// @Router /telemetry/counts [get]
func (h *handlers) counts(r *stdhttp.Request) (any, error) {
	since, err := ParseSince(r.URL.Query().Get("since"), h.now())
	if err != nil {
		return nil, err
	}
	return h.rep.ActionCountsSince(r.Context(), since)
}

// swagger:route GET /telemetry/usage Telemetry telemetryUsage
// @Summary Generation usage totals
// @Tags Telemetry
// @Produce json
// @Param since query string false "RFC3339 time or a duration back from now"
// @Success 200 {array} domain.UsageTotal "ok"
// @Router /telemetry/usage [get]
func (h *handlers) usage(r *stdhttp.Request) (any, error) {
	since, err := ParseSince(r.URL.Query().Get("since"), h.now())
	if err != nil {
		return nil, err
	}
	out, err := h.rep.UsageSince(r.Context(), since)
	if out == nil {
		out = []domain.UsageTotal{}
	}
	return out, err
}

// ParseSince accepts an RFC3339 timestamp or a positive duration measured back from now
func ParseSince(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now.Add(-DefaultWindow), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return now.Add(-d), nil
	}
	return time.Time{}, perr.WithField(perr.InvalidArgf("since must be RFC3339 or a positive duration"), "since")
}
