// Package module wires the safety guard and exposes its ports
package module

import (
	"murmur/internal/modkit"
	"murmur/internal/modkit/httpkit"
	"murmur/internal/services/safety/domain"
	safetyhttp "murmur/internal/services/safety/http"
	"murmur/internal/services/safety/repo"
	"murmur/internal/services/safety/service"
)

// Ports exposed by the safety module
type Ports struct {
	Guard    domain.GuardPort
	Recorder domain.RecorderPort
	Usage    domain.UsagePort
}

// Module wires the safety guard and its usage endpoint
type Module struct {
	deps  modkit.Deps
	built modkit.Built
	ports Ports
}

// New constructs the module; non-zero overrides win over config
func New(deps modkit.Deps, overrides Options, opts ...modkit.Option) *Module {
	o := FromConfig(deps.Cfg)
	if overrides.DailyReplies != 0 {
		o.DailyReplies = overrides.DailyReplies
	}
	if overrides.HourlyReplies != 0 {
		o.HourlyReplies = overrides.HourlyReplies
	}
	if overrides.DailyTweets != 0 {
		o.DailyTweets = overrides.DailyTweets
	}
	if len(overrides.Banned) > 0 {
		o.Banned = overrides.Banned
	}

	svc := service.New(deps.PG, repo.NewPG(), service.Config{
		AccountID:       deps.AccountID,
		DailyReplies:    o.DailyReplies,
		HourlyReplies:   o.HourlyReplies,
		AuthorDaily:     o.AuthorDaily,
		DailyTweets:     o.DailyTweets,
		DailyThreads:    o.DailyThreads,
		ProductWindow:   o.ProductWindow,
		ProductMaxRatio: o.ProductMaxRatio,
		ProductKeywords: o.ProductKeywords,
		Banned:          o.Banned,
		BannedLeet:      o.BannedLeet,
	})

	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("safety"),
		modkit.WithPrefix("/safety"),
	}, opts...)...)

	return &Module{deps: deps, built: b, ports: Ports{Guard: svc, Recorder: svc, Usage: svc}}
}

// Name returns the module name
func (m *Module) Name() string { return m.built.Name }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// MountRoutes mounts the usage endpoint under the module prefix
func (m *Module) MountRoutes(r httpkit.Router) {
	m.built.Mount(r, func(rr httpkit.Router) {
		safetyhttp.Register(rr, m.ports.Usage)
	})
}

