package main

import (
	"context"
	"encoding/json"
	"io"
	"time"

	perr "murmur/internal/platform/errors"
	safety "murmur/internal/services/safety/domain"
	telemetry "murmur/internal/services/telemetry/domain"
)

// Report is the -mode report payload
type Report struct {
	Since  time.Time              `json:"since"`
	Counts telemetry.Counts       `json:"counts"`
	Usage  []telemetry.UsageTotal `json:"usage"`
	Window safety.Usage           `json:"window"`
}

// report writes action counts and generation usage since the given time,
// plus the safety counters of the current windows, as indented JSON
func report(ctx context.Context, rep telemetry.ReporterPort, guard safety.UsagePort, since time.Time, w io.Writer) error {
	counts, err := rep.ActionCountsSince(ctx, since)
	if err != nil {
		return perr.Wrap(err, perr.CodeOf(err), "report: action counts")
	}
	usage, err := rep.UsageSince(ctx, since)
	if err != nil {
		return perr.Wrap(err, perr.CodeOf(err), "report: usage")
	}
	if usage == nil {
		usage = []telemetry.UsageTotal{}
	}
	window, err := guard.Usage(ctx)
	if err != nil {
		return perr.Wrap(err, perr.CodeOf(err), "report: safety windows")
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Report{Since: since.UTC(), Counts: counts, Usage: usage, Window: window})
}
