// Package module wires the loop engine and its status endpoints
package module

import (
	"context"

	"murmur/internal/core/score"
	"murmur/internal/core/streak"
	"murmur/internal/modkit"
	"murmur/internal/modkit/httpkit"
	"murmur/internal/services/loops/domain"
	loopshttp "murmur/internal/services/loops/http"
	"murmur/internal/services/loops/repo"
	"murmur/internal/services/loops/service"
	posting "murmur/internal/services/posting/domain"
	safety "murmur/internal/services/safety/domain"
	telemetry "murmur/internal/services/telemetry/domain"
)

// Ports exposed by the loops module
type Ports struct {
	Status domain.StatusPort

	// Engine carries Run and RunOnce for the process owner
	Engine *service.Engine
}

// Collaborators the engine needs from adapters and neighbouring modules
type Collaborators struct {
	Fetcher    domain.Fetcher
	Generator  domain.Generator
	Guard      safety.GuardPort
	ActionLog  telemetry.ActionLogPort
	Accountant telemetry.AccountantPort
	Approval   domain.ApprovalQueue
	Poster     posting.SubmitPort
}

// Module wires the loop engine
type Module struct {
	deps  modkit.Deps
	built modkit.Built
	ports Ports
}

// New constructs the module; non-zero overrides win over config
func New(deps modkit.Deps, c Collaborators, overrides Options, opts ...modkit.Option) *Module {
	o := FromConfig(deps.Cfg)
	if overrides.Mode != "" {
		o.Mode = overrides.Mode
	}
	if overrides.UserID != "" {
		o.UserID = overrides.UserID
	}
	if overrides.Queries != nil {
		o.Queries = overrides.Queries
	}
	if overrides.TargetAccounts != nil {
		o.TargetAccounts = overrides.TargetAccounts
	}
	if overrides.Topics != nil {
		o.Topics = overrides.Topics
	}
	if overrides.Threshold != 0 {
		o.Threshold = overrides.Threshold
	}

	scorer := score.New(score.Config{
		Keywords:          o.Keywords,
		Banned:            deps.Cfg.Prefix("SAFETY_").MayCSV("BANNED_PHRASES", nil),
		KeywordWeight:     o.KeywordWeight,
		KeywordCap:        o.KeywordCap,
		EngagementWeight:  o.EngagementWeight,
		EngagementTarget:  o.EngagementTarget,
		FollowerWeight:    o.FollowerWeight,
		RecencyWeight:     o.RecencyWeight,
		RecencyHorizon:    o.RecencyHorizon,
		Threshold:         o.Threshold,
		MinKeywordMatches: o.MinKeywordMatches,
	})

	var lease service.Lease
	if o.Lease && deps.RDS != nil {
		lease = service.NewRedisLease(deps.RDS, deps.AccountID, o.LeaseTTL)
	}

	eng := service.New(deps.PG, repo.NewPG(), service.Collaborators{
		Fetcher:    c.Fetcher,
		Generator:  c.Generator,
		Scorer:     scorer,
		Guard:      c.Guard,
		ActionLog:  c.ActionLog,
		Accountant: c.Accountant,
		Approval:   c.Approval,
		Poster:     c.Poster,
		Lease:      lease,
	}, service.Config{
		AccountID:          deps.AccountID,
		UserID:             o.UserID,
		Mode:               o.Mode,
		Queries:            o.Queries,
		TargetAccounts:     o.TargetAccounts,
		Topics:             o.Topics,
		MaxResults:         o.MaxResults,
		CallTimeout:        o.CallTimeout,
		GenerateTimeout:    o.GenerateTimeout,
		DiscoveryInterval:  o.DiscoveryInterval,
		MentionsInterval:   o.MentionsInterval,
		TargetsInterval:    o.TargetsInterval,
		ContentInterval:    o.ContentInterval,
		DispatchInterval:   o.DispatchInterval,
		ContentThreadEvery: o.ContentThreadEvery,
		DispatchBatch:      o.DispatchBatch,
		DispatchScan:       o.DispatchScan,
		BackoffCap:         o.BackoffCap,
		Streak: streak.Config{
			Threshold:      o.StreakThreshold,
			BackoffFactor:  o.BackoffFactor,
			MaxEscalations: o.MaxEscalations,
		},
	})

	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("loops"),
		modkit.WithPrefix("/loops"),
	}, opts...)...)

	return &Module{deps: deps, built: b, ports: Ports{Status: eng, Engine: eng}}
}

// Name returns the module name
func (m *Module) Name() string { return m.built.Name }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Run starts every configured loop and blocks until they stop
func (m *Module) Run(ctx context.Context) error { return m.ports.Engine.Run(ctx) }

// MountRoutes mounts the status endpoints under the module prefix
func (m *Module) MountRoutes(r httpkit.Router) {
	m.built.Mount(r, func(rr httpkit.Router) {
		loopshttp.Register(rr, m.ports.Status)
	})
}
