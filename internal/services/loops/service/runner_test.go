package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"murmur/internal/core/streak"
	perr "murmur/internal/platform/errors"
	"murmur/internal/platform/logger"
	dom "murmur/internal/services/loops/domain"
)

type stubLease struct {
	held     bool
	err      error
	released atomic.Int32
}

func (l *stubLease) Acquire(context.Context, string) (func(), bool, error) {
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held {
		return nil, false, nil
	}
	return func() { l.released.Add(1) }, true, nil
}

func newRunner(cycle func(context.Context) error, lease Lease) *runner {
	return &runner{
		name:  "test",
		cycle: cycle,
		tracker: streak.New(streak.Config{
			Threshold:      2,
			BackoffFactor:  2,
			BaseInterval:   time.Second,
			MaxInterval:    4 * time.Second,
			MaxEscalations: 1,
		}),
		lease: lease,
		now:   func() time.Time { return t0 },
		log:   logger.Nop(),
	}
}

func TestRunner_BackoffThenHalt(t *testing.T) {
	t.Parallel()
	r := newRunner(func(context.Context) error { return perr.Unavailablef("down") }, nil)
	ctx := context.Background()

	steps := []struct {
		wait  time.Duration
		state string
		halt  bool
	}{
		{time.Second, "running", false},
		{2 * time.Second, "cooling_down", false},
		{2 * time.Second, "cooling_down", false},
		{0, "halted", true},
	}
	for i, s := range steps {
		wait, err := r.step(ctx)
		if (err != nil) != s.halt {
			t.Fatalf("step %d err = %v", i, err)
		}
		if s.halt && !perr.IsCode(err, perr.ErrorCodeUnavailable) {
			t.Fatalf("halt err = %v", err)
		}
		if wait != s.wait {
			t.Fatalf("step %d wait = %s, want %s", i, wait, s.wait)
		}
		if got := r.status().State; got != s.state {
			t.Fatalf("step %d state = %s, want %s", i, got, s.state)
		}
	}
	if st := r.status(); st.Cycles != 4 || st.LastError == "" {
		t.Fatalf("status = %+v", st)
	}
}

func TestRunner_SuccessResetsStreak(t *testing.T) {
	t.Parallel()
	var fail atomic.Bool
	fail.Store(true)
	r := newRunner(func(context.Context) error {
		if fail.Load() {
			return perr.Unavailablef("down")
		}
		return nil
	}, nil)
	ctx := context.Background()
	_, _ = r.step(ctx)
	_, _ = r.step(ctx)

	fail.Store(false)
	wait, err := r.step(ctx)
	if err != nil || wait != time.Second {
		t.Fatalf("wait=%s err=%v", wait, err)
	}
	st := r.status()
	if st.State != "running" || st.Streak != 0 || st.LastSuccess == nil || !st.LastSuccess.Equal(t0) {
		t.Fatalf("status = %+v", st)
	}
}

func TestRunner_RateLimitHonoursRetryAfter(t *testing.T) {
	t.Parallel()
	r := newRunner(func(context.Context) error {
		return perr.WithRetryAfter(perr.Newf(perr.ErrorCodeTooManyRequests, "429"), 30*time.Second)
	}, nil)
	wait, err := r.step(context.Background())
	if err != nil || wait != 30*time.Second {
		t.Fatalf("wait=%s err=%v", wait, err)
	}
}

func TestRunner_AuthHaltsImmediately(t *testing.T) {
	t.Parallel()
	r := newRunner(func(context.Context) error { return perr.Unauthorizedf("401") }, nil)
	_, err := r.step(context.Background())
	if !perr.IsCode(err, perr.ErrorCodeUnauthorized) {
		t.Fatalf("err = %v", err)
	}
	if st := r.status(); st.State != "halted" || st.Streak != 0 {
		t.Fatalf("status = %+v", st)
	}
	if err := r.Run(context.Background()); err == nil {
		t.Fatalf("a halted runner must stop on its next step")
	}
}

func TestRunner_CancelIsNotAFailure(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	r := newRunner(func(ctx context.Context) error {
		cancel()
		return ctx.Err()
	}, nil)
	if err := r.Run(ctx); err != nil {
		t.Fatalf("Run = %v", err)
	}
	if st := r.status(); st.Streak != 0 || st.State != "running" {
		t.Fatalf("status = %+v", st)
	}
}

func TestRunner_LeaseHeldSkipsCycle(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	lease := &stubLease{held: true}
	r := newRunner(func(context.Context) error { calls.Add(1); return nil }, lease)

	wait, err := r.step(context.Background())
	if err != nil || wait != time.Second {
		t.Fatalf("wait=%s err=%v", wait, err)
	}
	if calls.Load() != 0 {
		t.Fatalf("cycle ran without the lease")
	}
	if st := r.status(); st.Skipped != 1 || st.Cycles != 0 {
		t.Fatalf("status = %+v", st)
	}

	lease.held = false
	if _, err := r.step(context.Background()); err != nil {
		t.Fatalf("step: %v", err)
	}
	if calls.Load() != 1 || lease.released.Load() != 1 {
		t.Fatalf("calls=%d released=%d", calls.Load(), lease.released.Load())
	}
}

func TestRunner_LeaseErrorCountsAsFailure(t *testing.T) {
	t.Parallel()
	r := newRunner(func(context.Context) error { return nil }, &stubLease{err: perr.Unavailablef("redis down")})
	if _, err := r.step(context.Background()); err != nil {
		t.Fatalf("step: %v", err)
	}
	if st := r.status(); st.Streak != 1 {
		t.Fatalf("streak = %d", st.Streak)
	}
}

func TestWorst_PrefersAuthThenRateLimit(t *testing.T) {
	t.Parallel()
	other := errors.New("boom")
	transient := perr.Unavailablef("503")
	rate := perr.Newf(perr.ErrorCodeTooManyRequests, "429")
	auth := perr.Unauthorizedf("401")

	cases := []struct {
		name string
		in   []error
		want error
	}{
		{"none", []error{nil, nil}, nil},
		{"single", []error{nil, other}, other},
		{"transient over other", []error{other, transient}, transient},
		{"rate over transient", []error{transient, rate, other}, rate},
		{"auth wins", []error{rate, auth, transient}, auth},
	}
	for _, c := range cases {
		if got := worst(c.in); got != c.want {
			t.Fatalf("%s: worst = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()
	cases := []struct {
		err  error
		want dom.ErrorKind
	}{
		{context.DeadlineExceeded, dom.ErrTransient},
		{perr.Unavailablef("x"), dom.ErrTransient},
		{perr.Newf(perr.ErrorCodeCircuitOpen, "x"), dom.ErrTransient},
		{perr.Newf(perr.ErrorCodeTooManyRequests, "x"), dom.ErrRateLimited},
		{perr.Newf(perr.ErrorCodeForbidden, "x"), dom.ErrAuth},
		{perr.Unauthorizedf("x"), dom.ErrAuth},
		{perr.InvalidArgf("x"), dom.ErrOther},
		{errors.New("x"), dom.ErrOther},
	}
	for _, c := range cases {
		if got := dom.Classify(c.err).Kind; got != c.want {
			t.Fatalf("Classify(%v) = %s, want %s", c.err, got, c.want)
		}
	}
	if dom.Classify(nil) != nil {
		t.Fatalf("Classify(nil) should be nil")
	}
}
