// Package breaker wraps a failsafe-go circuit breaker for the outbound write path
package breaker

import (
	"context"
	"errors"
	"time"

	perr "murmur/internal/platform/errors"
	"murmur/internal/platform/logger"
	"murmur/internal/platform/metrics"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/prometheus/client_golang/prometheus"
)

// State is the breaker position
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Config configures a Breaker
type Config struct {
	// Name labels logs and metrics
	Name string

	// Failures is the number of consecutive failures that opens the breaker
	Failures uint

	// Cooldown is how long the breaker stays open before half-opening
	Cooldown time.Duration

	// Trials is the number of successful trial calls that close a half-open breaker
	Trials uint
}

var stateGauge = metrics.Factory.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: metrics.Namespace,
	Name:      "breaker_state",
	Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
}, []string{"breaker"})

// Breaker fails fast after repeated failures and lets trial calls through once the cooldown ends
type Breaker struct {
	cb   circuitbreaker.CircuitBreaker[any]
	name string
}

// New builds a Breaker; zero config values fall back to 5 failures, 60s cooldown, 1 trial
func New(cfg Config) *Breaker {
	if cfg.Name == "" {
		cfg.Name = "breaker"
	}
	if cfg.Failures == 0 {
		cfg.Failures = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = time.Minute
	}
	if cfg.Trials == 0 {
		cfg.Trials = 1
	}
	log := logger.Named("breaker")
	name := cfg.Name

	cb := circuitbreaker.NewBuilder[any]().
		HandleIf(func(_ any, err error) bool { return counts(err) }).
		WithFailureThreshold(cfg.Failures).
		WithDelay(cfg.Cooldown).
		WithSuccessThreshold(cfg.Trials).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			from, to := convert(e.OldState), convert(e.NewState)
			stateGauge.WithLabelValues(name).Set(float64(to))
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		}).
		Build()

	stateGauge.WithLabelValues(name).Set(float64(StateClosed))
	return &Breaker{cb: cb, name: name}
}

// counts reports whether err is a failure of the guarded dependency
// caller side refusals and cancellations leave the breaker alone
func counts(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	switch perr.CodeOf(err) {
	case perr.ErrorCodePolicyDenied, perr.ErrorCodeInvalidArgument, perr.ErrorCodeConflict:
		return false
	}
	return true
}

// Do runs fn through the breaker
// when open it returns a CircuitOpen error without calling fn
func (b *Breaker) Do(fn func() error) error {
	_, err := failsafe.With[any](b.cb).Get(func() (any, error) {
		return nil, fn()
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return perr.Newf(perr.ErrorCodeCircuitOpen, "%s: circuit open", b.name)
	}
	return err
}

// State reports the current position
func (b *Breaker) State() State { return convert(b.cb.State()) }

// Name returns the configured label
func (b *Breaker) Name() string { return b.name }

func convert(s circuitbreaker.State) State {
	switch s {
	case circuitbreaker.HalfOpenState:
		return StateHalfOpen
	case circuitbreaker.OpenState:
		return StateOpen
	default:
		return StateClosed
	}
}
