// Package streak tracks consecutive loop failures and derives backoff and halt decisions
package streak

import (
	"sync"
	"time"
)

// State is the loop lifecycle state
type State uint8

const (
	// Running polls at the base interval
	Running State = iota
	// CoolingDown polls at a backed off interval
	CoolingDown
	// Halted is terminal until the process restarts
	Halted
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case CoolingDown:
		return "cooling_down"
	case Halted:
		return "halted"
	default:
		return "unknown"
	}
}

// Config is immutable once the tracker is built
type Config struct {
	Threshold      int
	BackoffFactor  float64
	BaseInterval   time.Duration
	MaxInterval    time.Duration
	MaxEscalations int
}

func (c Config) withDefaults() Config {
	if c.Threshold <= 0 {
		c.Threshold = 3
	}
	if c.BackoffFactor < 1 {
		c.BackoffFactor = 2
	}
	if c.BaseInterval <= 0 {
		c.BaseInterval = time.Minute
	}
	if c.MaxInterval < c.BaseInterval {
		c.MaxInterval = c.BaseInterval
	}
	if c.MaxEscalations < 0 {
		c.MaxEscalations = 0
	}
	return c
}

// Snapshot is a point in time copy for status surfaces
type Snapshot struct {
	State       string    `json:"state"`
	Streak      int       `json:"streak"`
	Escalations int       `json:"escalations"`
	Interval    string    `json:"interval"`
	LastSuccess time.Time `json:"last_success,omitzero"`
	LastError   string    `json:"last_error,omitempty"`
}

// Tracker is safe for concurrent use; the owning loop writes, status readers snapshot
type Tracker struct {
	cfg Config

	mu          sync.Mutex
	state       State
	streak      int
	escalations int
	interval    time.Duration
	lastSuccess time.Time
	lastErr     string
}

// New builds a Tracker in the running state
func New(cfg Config) *Tracker {
	cfg = cfg.withDefaults()
	return &Tracker{cfg: cfg, interval: cfg.BaseInterval}
}

// Failure records one failed cycle and returns the resulting state.
// Every Threshold consecutive failures escalate the backoff once; more than
// MaxEscalations escalations halt the tracker
func (t *Tracker) Failure(err error) State {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == Halted {
		return Halted
	}
	if err != nil {
		t.lastErr = err.Error()
	}
	t.streak++
	if t.streak%t.cfg.Threshold != 0 {
		return t.state
	}

	t.escalations++
	if t.escalations > t.cfg.MaxEscalations {
		t.state = Halted
		return Halted
	}
	t.state = CoolingDown
	next := time.Duration(float64(t.interval) * t.cfg.BackoffFactor)
	t.interval = min(next, t.cfg.MaxInterval)
	return t.state
}

// Success resets the streak, the escalations and the interval
func (t *Tracker) Success(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == Halted {
		return
	}
	t.state = Running
	t.streak = 0
	t.escalations = 0
	t.interval = t.cfg.BaseInterval
	t.lastSuccess = now
	t.lastErr = ""
}

// Halt moves to the terminal state immediately
func (t *Tracker) Halt(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = Halted
	if err != nil {
		t.lastErr = err.Error()
	}
}

// State returns the current state
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Streak returns the consecutive failure count
func (t *Tracker) Streak() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.streak
}

// Interval is the wait before the next cycle
func (t *Tracker) Interval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interval
}

// Wait is the delay before the next cycle given a rate limit hint
func (t *Tracker) Wait(retryAfter time.Duration) time.Duration {
	return max(t.Interval(), retryAfter)
}

// Snapshot copies the tracker state
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		State:       t.state.String(),
		Streak:      t.streak,
		Escalations: t.escalations,
		Interval:    t.interval.String(),
		LastSuccess: t.lastSuccess,
		LastError:   t.lastErr,
	}
}
