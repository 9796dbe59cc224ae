// Package module wires the approval queue and its review endpoints
package module

import (
	"murmur/internal/modkit"
	"murmur/internal/modkit/httpkit"
	"murmur/internal/services/approval/domain"
	apphttp "murmur/internal/services/approval/http"
	"murmur/internal/services/approval/repo"
	"murmur/internal/services/approval/service"
)

// Ports exposed by the approval module
type Ports struct {
	Queue  domain.QueuePort
	Posted domain.PostedPort
}

// Module wires the approval queue
type Module struct {
	deps  modkit.Deps
	built modkit.Built
	ports Ports
}

// New constructs the module; non-zero overrides win over config
func New(deps modkit.Deps, overrides Options, opts ...modkit.Option) *Module {
	o := FromConfig(deps.Cfg)
	if overrides.LowScore != 0 {
		o.LowScore = overrides.LowScore
	}
	if overrides.MaxLength != 0 {
		o.MaxLength = overrides.MaxLength
	}
	if overrides.ListLimit != 0 {
		o.ListLimit = overrides.ListLimit
	}
	if overrides.Banned != nil {
		o.Banned = overrides.Banned
	}
	if overrides.ProductKeywords != nil {
		o.ProductKeywords = overrides.ProductKeywords
	}

	svc := service.New(deps.PG, repo.NewPG(), service.Config{
		AccountID: deps.AccountID,
		ListLimit: o.ListLimit,
		Risk: service.RiskConfig{
			Banned:          o.Banned,
			ProductKeywords: o.ProductKeywords,
			LowScore:        o.LowScore,
			MaxLength:       o.MaxLength,
		},
	})

	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("approval"),
		modkit.WithPrefix("/approvals"),
	}, opts...)...)

	return &Module{deps: deps, built: b, ports: Ports{Queue: svc, Posted: svc}}
}

// Name returns the module name
func (m *Module) Name() string { return m.built.Name }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// MountRoutes mounts the review endpoints under the module prefix
func (m *Module) MountRoutes(r httpkit.Router) {
	m.built.Mount(r, func(rr httpkit.Router) {
		apphttp.Register(rr, m.ports.Queue)
	})
}
