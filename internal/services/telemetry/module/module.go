// Package module wires the telemetry service and its read endpoints
package module

import (
	"murmur/internal/modkit"
	"murmur/internal/modkit/httpkit"
	"murmur/internal/platform/store"
	"murmur/internal/services/telemetry/domain"
	telhttp "murmur/internal/services/telemetry/http"
	"murmur/internal/services/telemetry/repo"
	"murmur/internal/services/telemetry/service"
)

// Ports exposed by the telemetry module
type Ports struct {
	Log        domain.ActionLogPort
	Reporter   domain.ReporterPort
	Accountant domain.AccountantPort

	// Svc carries Publish, Flush and EnsureMirror for the process owner
	Svc *service.Svc
}

// Module wires telemetry
type Module struct {
	deps  modkit.Deps
	built modkit.Built
	ports Ports
}

// New constructs the module; non-zero overrides win over config
func New(deps modkit.Deps, overrides Options, opts ...modkit.Option) *Module {
	o := FromConfig(deps.Cfg)
	if overrides.Mirror {
		o.Mirror = true
	}
	if overrides.UsageTimeout != 0 {
		o.UsageTimeout = overrides.UsageTimeout
	}

	var mirror store.Clickhouse
	if o.Mirror && deps.CH != nil {
		mirror = deps.CH
	}
	svc := service.New(deps.PG, repo.NewPG(), mirror, service.Config{
		AccountID:    deps.AccountID,
		UsageTimeout: o.UsageTimeout,
	})

	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("telemetry"),
		modkit.WithPrefix("/telemetry"),
	}, opts...)...)

	return &Module{
		deps:  deps,
		built: b,
		ports: Ports{Log: svc, Reporter: svc, Accountant: svc, Svc: svc},
	}
}

// Name returns the module name
func (m *Module) Name() string { return m.built.Name }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// MountRoutes mounts the read endpoints under the module prefix
func (m *Module) MountRoutes(r httpkit.Router) {
	m.built.Mount(r, func(rr httpkit.Router) {
		telhttp.Register(rr, m.ports.Reporter, nil)
	})
}
