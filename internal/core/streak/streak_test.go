package streak

import (
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func TestThresholdEntersCooldownAndSuccessResets(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 2, 3, 5} {
		tr := New(Config{Threshold: n, BackoffFactor: 2, BaseInterval: time.Second, MaxInterval: time.Minute, MaxEscalations: 3})
		for i := 1; i < n; i++ {
			if s := tr.Failure(errBoom); s != Running {
				t.Fatalf("threshold %d: state after %d failures = %s", n, i, s)
			}
		}
		if s := tr.Failure(errBoom); s != CoolingDown {
			t.Fatalf("threshold %d: state = %s, want cooling_down", n, s)
		}
		if tr.Interval() != 2*time.Second {
			t.Fatalf("threshold %d: interval = %s", n, tr.Interval())
		}

		tr.Success(time.Unix(100, 0))
		if tr.Streak() != 0 || tr.State() != Running || tr.Interval() != time.Second {
			t.Fatalf("threshold %d: success did not reset: %+v", n, tr.Snapshot())
		}
	}
}

func TestBackoffIsCapped(t *testing.T) {
	t.Parallel()

	tr := New(Config{Threshold: 1, BackoffFactor: 3, BaseInterval: time.Second, MaxInterval: 5 * time.Second, MaxEscalations: 10})
	want := []time.Duration{3 * time.Second, 5 * time.Second, 5 * time.Second}
	for i, w := range want {
		tr.Failure(errBoom)
		if got := tr.Interval(); got != w {
			t.Fatalf("escalation %d: interval = %s, want %s", i+1, got, w)
		}
	}
}

func TestEscalationsHalt(t *testing.T) {
	t.Parallel()

	tr := New(Config{Threshold: 2, BackoffFactor: 2, BaseInterval: time.Second, MaxInterval: time.Hour, MaxEscalations: 2})
	var s State
	for range 6 {
		s = tr.Failure(errBoom)
	}
	if s != Halted {
		t.Fatalf("state after 3 escalations = %s, want halted", s)
	}
	tr.Success(time.Now())
	if tr.State() != Halted {
		t.Fatalf("halted must be terminal")
	}
	if tr.Snapshot().LastError != "boom" {
		t.Fatalf("last error not kept: %+v", tr.Snapshot())
	}
}

func TestHaltIsImmediate(t *testing.T) {
	t.Parallel()

	tr := New(Config{})
	tr.Halt(errors.New("401"))
	if tr.State() != Halted || tr.Failure(errBoom) != Halted {
		t.Fatalf("Halt did not stick")
	}
}

func TestWaitHonoursRetryAfter(t *testing.T) {
	t.Parallel()

	tr := New(Config{BaseInterval: 10 * time.Second})
	if got := tr.Wait(time.Minute); got != time.Minute {
		t.Fatalf("Wait = %s", got)
	}
	if got := tr.Wait(time.Second); got != 10*time.Second {
		t.Fatalf("Wait = %s", got)
	}
}

func TestDefaultsAndStateString(t *testing.T) {
	t.Parallel()

	tr := New(Config{})
	if tr.Interval() != time.Minute {
		t.Fatalf("default interval = %s", tr.Interval())
	}
	for s, want := range map[State]string{Running: "running", CoolingDown: "cooling_down", Halted: "halted", State(9): "unknown"} {
		if s.String() != want {
			t.Fatalf("%d.String() = %q", s, s.String())
		}
	}
}
