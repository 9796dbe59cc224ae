package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"murmur/internal/core/streak"
	perr "murmur/internal/platform/errors"
	"murmur/internal/platform/logger"
	"murmur/internal/platform/metrics"
	dom "murmur/internal/services/loops/domain"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	cyclesTotal = metrics.Factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Name:      "loop_cycles_total",
		Help:      "Loop cycles by loop and outcome",
	}, []string{"loop", "outcome"})

	loopState = metrics.Factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metrics.Namespace,
		Name:      "loop_state",
		Help:      "Loop state (0 running, 1 cooling down, 2 halted)",
	}, []string{"loop"})
)

// runner drives one loop: cycles strictly in sequence, on its own timer
type runner struct {
	name    string
	cycle   func(ctx context.Context) error
	tracker *streak.Tracker
	lease   Lease
	now     func() time.Time
	log     logger.Logger

	mu      sync.Mutex
	cycles  int64
	skipped int64
	lastRun time.Time
}

// Run repeats cycles until ctx ends (nil) or the loop halts (error)
func (r *runner) Run(ctx context.Context) error {
	r.log.Info().Msg("loop started")
	for {
		wait, err := r.step(ctx)
		if err != nil {
			loopState.WithLabelValues(r.name).Set(float64(streak.Halted))
			r.log.Error().Err(err).Msg("loop halted")
			return err
		}
		if ctx.Err() != nil {
			r.log.Info().Msg("loop stopped")
			return nil
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			r.log.Info().Msg("loop stopped")
			return nil
		case <-t.C:
		}
	}
}

// step runs one cycle and returns the delay before the next one
func (r *runner) step(ctx context.Context) (time.Duration, error) {
	if r.lease != nil {
		release, ok, err := r.lease.Acquire(ctx, r.name)
		switch {
		case err != nil:
			return r.fail(ctx, err)
		case !ok:
			r.mu.Lock()
			r.skipped++
			r.mu.Unlock()
			cyclesTotal.WithLabelValues(r.name, "skipped").Inc()
			r.log.Debug().Msg("lease held elsewhere, cycle skipped")
			return r.tracker.Interval(), nil
		}
		defer release()
	}

	err := r.cycle(ctx)
	r.mu.Lock()
	r.cycles++
	r.lastRun = r.now()
	r.mu.Unlock()

	if err == nil {
		r.tracker.Success(r.now())
		cyclesTotal.WithLabelValues(r.name, "ok").Inc()
		loopState.WithLabelValues(r.name).Set(float64(streak.Running))
		return r.tracker.Interval(), nil
	}
	return r.fail(ctx, err)
}

func (r *runner) fail(ctx context.Context, err error) (time.Duration, error) {
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return 0, nil
	}
	le := dom.Classify(err)
	cyclesTotal.WithLabelValues(r.name, string(le.Kind)).Inc()

	if le.Kind == dom.ErrAuth {
		r.tracker.Halt(err)
		return 0, perr.Wrapf(err, perr.ErrorCodeUnauthorized, "loop %s halted: authentication failed", r.name)
	}
	if r.tracker.Failure(le) == streak.Halted {
		return 0, perr.Wrapf(err, perr.ErrorCodeUnavailable, "loop %s halted after repeated failures", r.name)
	}

	wait := r.tracker.Interval()
	if le.Kind == dom.ErrRateLimited {
		wait = r.tracker.Wait(le.RetryAfter)
	}
	snap := r.tracker.Snapshot()
	loopState.WithLabelValues(r.name).Set(float64(r.tracker.State()))
	r.log.Warn().Err(err).Str("kind", string(le.Kind)).Int("streak", snap.Streak).
		Str("state", snap.State).Dur("next", wait).Msg("cycle failed")
	return wait, nil
}

func (r *runner) status() dom.Status {
	snap := r.tracker.Snapshot()
	r.mu.Lock()
	defer r.mu.Unlock()
	st := dom.Status{
		Name:        r.name,
		State:       snap.State,
		Streak:      snap.Streak,
		Escalations: snap.Escalations,
		Interval:    snap.Interval,
		Cycles:      r.cycles,
		Skipped:     r.skipped,
		LastError:   snap.LastError,
	}
	if !r.lastRun.IsZero() {
		t := r.lastRun
		st.LastRun = &t
	}
	if !snap.LastSuccess.IsZero() {
		t := snap.LastSuccess
		st.LastSuccess = &t
	}
	return st
}

// worst picks the error that should drive the tracker when several streams
// failed in one cycle: auth first, then rate limits, then the rest
func worst(errs []error) error {
	var pick error
	rank := -1
	for _, err := range errs {
		if err == nil {
			continue
		}
		r := 0
		switch dom.Classify(err).Kind {
		case dom.ErrAuth:
			r = 3
		case dom.ErrRateLimited:
			r = 2
		case dom.ErrTransient:
			r = 1
		}
		if r > rank {
			pick, rank = err, r
		}
	}
	return pick
}
