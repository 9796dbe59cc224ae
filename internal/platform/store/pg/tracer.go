package pg

import (
	"context"
	"strings"

	"murmur/internal/platform/logger"
	"murmur/internal/platform/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// maxSQL caps how much statement text a log line carries
const maxSQL = 1024

// QueryEvent describes one executed statement
type QueryEvent struct {
	SQL       string
	Args      any
	ElapsedUS int64
	Err       error
	Slow      bool
}

// QueryTracer receives query events from the sql adapter
type QueryTracer interface {
	OnQuery(ctx context.Context, ev QueryEvent)
}

// Tracer returns a tracer that prints every statement at debug and slow ones at warn
// regardless of the root level. Request and account ids ride along from ctx
func Tracer(root logger.Logger) QueryTracer {
	ll := root.Level(zerolog.DebugLevel).With().Str("component", "pg").Logger()
	return &zlTracer{log: ll}
}

type zlTracer struct{ log logger.Logger }

func (z *zlTracer) OnQuery(ctx context.Context, ev QueryEvent) {
	evt := z.log.Debug()
	if ev.Slow {
		evt = z.log.Warn()
	}
	if id := logger.RequestID(ctx); id != "" {
		evt = evt.Str("request_id", id)
	}
	if id := logger.AccountID(ctx); id != "" {
		evt = evt.Str("account_id", id)
	}

	evt.Float64("elapsed_ms", float64(ev.ElapsedUS)/1000.0).
		Bool("slow", ev.Slow).
		Str("sql", compact(ev.SQL)).
		Interface("args", ev.Args).
		Err(ev.Err).
		Msg("pg query")
}

var queryDuration = metrics.Factory.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: metrics.Namespace,
	Name:      "pg_query_seconds",
	Help:      "Postgres statement latency by outcome.",
	Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
}, []string{"outcome"})

// Metrics returns a tracer that observes statement latency
func Metrics() QueryTracer { return metricTracer{} }

type metricTracer struct{}

func (metricTracer) OnQuery(_ context.Context, ev QueryEvent) {
	queryDuration.WithLabelValues(outcome(ev)).Observe(float64(ev.ElapsedUS) / 1e6)
}

func outcome(ev QueryEvent) string {
	switch {
	case ev.Err != nil:
		return "error"
	case ev.Slow:
		return "slow"
	}
	return "ok"
}

// Multi fans one event out to every non-nil tracer
func Multi(ts ...QueryTracer) QueryTracer {
	out := make(multi, 0, len(ts))
	for _, t := range ts {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}

type multi []QueryTracer

func (m multi) OnQuery(ctx context.Context, ev QueryEvent) {
	for _, t := range m {
		t.OnQuery(ctx, ev)
	}
}

// compact folds whitespace runs into one space and caps the length
func compact(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > maxSQL {
		return string(r[:maxSQL]) + "..."
	}
	return s
}
