// Package module wires the posting actor and its submit endpoint
package module

import (
	"context"
	"fmt"

	"murmur/internal/modkit"
	"murmur/internal/modkit/httpkit"
	"murmur/internal/modkit/repokit"
	"murmur/internal/platform/breaker"
	"murmur/internal/services/posting/domain"
	posthttp "murmur/internal/services/posting/http"
	"murmur/internal/services/posting/repo"
	"murmur/internal/services/posting/service"
	safety "murmur/internal/services/safety/domain"
	telemetry "murmur/internal/services/telemetry/domain"
)

// Ports exposed by the posting module
type Ports struct {
	Submit domain.SubmitPort

	// Actor carries Run and the breaker for the process owner
	Actor *service.Actor
}

// Collaborators the posting module needs from its neighbours
type Collaborators struct {
	Writer    domain.WriterPort
	Guard     safety.GuardPort
	Recorder  safety.RecorderPort
	ActionLog telemetry.ActionLogPort
	Publisher service.Publisher
}

// Module wires the posting actor
type Module struct {
	deps  modkit.Deps
	built modkit.Built
	opts  Options
	ports Ports
}

// New constructs the module; non-zero overrides win over config
func New(deps modkit.Deps, c Collaborators, overrides Options, opts ...modkit.Option) *Module {
	o := FromConfig(deps.Cfg)
	if overrides.Buffer != 0 {
		o.Buffer = overrides.Buffer
	}
	if overrides.WriteTimeout != 0 {
		o.WriteTimeout = overrides.WriteTimeout
	}
	if overrides.MinInterval != 0 {
		o.MinInterval = overrides.MinInterval
	}
	if overrides.BreakerFailures != 0 {
		o.BreakerFailures = overrides.BreakerFailures
	}
	if overrides.BreakerCooldown != 0 {
		o.BreakerCooldown = overrides.BreakerCooldown
	}
	if overrides.DirectAPI {
		o.DirectAPI = true
	}

	// row locks on counters and keys should fail fast rather than stall the actor
	db := deps.PG
	if o.LockTimeout > 0 {
		db = repokit.WithBeginHooks(db, repokit.SetLocal("lock_timeout", fmt.Sprintf("%dms", o.LockTimeout.Milliseconds())))
	}

	actor := service.New(db, repo.NewPG(), service.Collaborators{
		Writer:    c.Writer,
		Guard:     c.Guard,
		Recorder:  c.Recorder,
		ActionLog: c.ActionLog,
		Publisher: c.Publisher,
	}, service.Config{
		AccountID:     deps.AccountID,
		Buffer:        o.Buffer,
		WriteTimeout:  o.WriteTimeout,
		RecordTimeout: o.RecordTimeout,
		MinInterval:   o.MinInterval,
		Burst:         o.Burst,
		Breaker: breaker.Config{
			Name:     "posting",
			Failures: uint(max(o.BreakerFailures, 0)),
			Cooldown: o.BreakerCooldown,
			Trials:   uint(max(o.BreakerTrials, 0)),
		},
	})

	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("posting"),
		modkit.WithPrefix("/posts"),
	}, opts...)...)

	return &Module{deps: deps, built: b, opts: o, ports: Ports{Submit: actor, Actor: actor}}
}

// Name returns the module name
func (m *Module) Name() string { return m.built.Name }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Run starts the actor and blocks until ctx ends
func (m *Module) Run(ctx context.Context) error { return m.ports.Actor.Run(ctx) }

// MountRoutes mounts the submit endpoint when direct submissions are enabled
func (m *Module) MountRoutes(r httpkit.Router) {
	if !m.opts.DirectAPI {
		return
	}
	m.built.Mount(r, func(rr httpkit.Router) {
		posthttp.Register(rr, m.ports.Submit)
	})
}
