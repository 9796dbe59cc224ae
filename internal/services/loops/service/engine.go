// Package service implements the engagement loops and their supervisor
package service

import (
	"context"
	"time"

	"murmur/internal/core/score"
	"murmur/internal/core/streak"
	"murmur/internal/modkit/repokit"
	perr "murmur/internal/platform/errors"
	"murmur/internal/platform/logger"
	dom "murmur/internal/services/loops/domain"
	"murmur/internal/services/loops/repo"
	posting "murmur/internal/services/posting/domain"
	safety "murmur/internal/services/safety/domain"
	telemetry "murmur/internal/services/telemetry/domain"

	"golang.org/x/sync/errgroup"
)

// Loop names
const (
	LoopDiscovery  = "discovery"
	LoopMentions   = "mentions"
	LoopTargets    = "targets"
	LoopContent    = "content"
	LoopDispatcher = "dispatcher"
)

// Config for the loop engine
type Config struct {
	AccountID string

	// UserID is the agent's own platform id, the mentions stream key
	UserID string
	Mode   dom.Mode

	Queries        []string
	TargetAccounts []string
	Topics         []string

	MaxResults      int
	CallTimeout     time.Duration
	GenerateTimeout time.Duration

	DiscoveryInterval time.Duration
	MentionsInterval  time.Duration
	TargetsInterval   time.Duration
	ContentInterval   time.Duration
	DispatchInterval  time.Duration

	// ContentThreadEvery makes every Nth content run a thread, zero never
	ContentThreadEvery int

	// DispatchBatch caps posts per dispatcher cycle and is the page size;
	// DispatchScan caps the approved items one cycle looks at
	DispatchBatch int
	DispatchScan  int

	// BackoffCap bounds a loop's wait at this multiple of its interval
	BackoffCap float64

	// Streak thresholds; BaseInterval and MaxInterval are set per loop
	Streak streak.Config

	Now func() time.Time
}

func (c Config) withDefaults() Config {
	if c.Mode == "" {
		c.Mode = dom.ModeApproval
	}
	if c.MaxResults <= 0 {
		c.MaxResults = 20
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 20 * time.Second
	}
	if c.GenerateTimeout <= 0 {
		c.GenerateTimeout = time.Minute
	}
	for _, d := range []*time.Duration{&c.DiscoveryInterval, &c.MentionsInterval, &c.TargetsInterval, &c.DispatchInterval} {
		if *d <= 0 {
			*d = 5 * time.Minute
		}
	}
	if c.ContentInterval <= 0 {
		c.ContentInterval = 4 * time.Hour
	}
	if c.DispatchBatch <= 0 {
		c.DispatchBatch = 10
	}
	if c.DispatchScan < c.DispatchBatch {
		c.DispatchScan = 10 * c.DispatchBatch
	}
	if c.BackoffCap < 1 {
		c.BackoffCap = 8
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Collaborators are the ports the loops drive. Approval is required in
// approval mode, Poster in direct mode and for the dispatcher
type Collaborators struct {
	Fetcher    dom.Fetcher
	Generator  dom.Generator
	Scorer     *score.Engine
	Guard      safety.GuardPort
	ActionLog  telemetry.ActionLogPort
	Accountant telemetry.AccountantPort
	Approval   dom.ApprovalQueue
	Poster     posting.SubmitPort

	// Lease is optional; without it every replica runs every cycle
	Lease Lease
}

// Engine supervises every configured loop
type Engine struct {
	cursors repo.Repo
	c       Collaborators
	cfg     Config
	log     logger.Logger

	runners []*runner

	// content loop state, touched only by the content runner
	contentRuns int
}

var _ dom.StatusPort = (*Engine)(nil)

// New builds the engine and its loops. A loop without configuration
// (no queries, no user id, no targets, no topics) is not started
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo], c Collaborators, cfg Config) *Engine {
	if db == nil {
		panic("loops.New: nil TxRunner")
	}
	if c.Fetcher == nil || c.Generator == nil || c.Scorer == nil || c.Guard == nil || c.ActionLog == nil {
		panic("loops.New: missing collaborator")
	}
	cfg = cfg.withDefaults()
	if cfg.Mode == dom.ModeApproval && c.Approval == nil {
		panic("loops.New: approval mode needs an approval queue")
	}
	if cfg.Mode == dom.ModeDirect && c.Poster == nil {
		panic("loops.New: direct mode needs a poster")
	}
	if binder == nil {
		binder = repo.NewPG()
	}
	e := &Engine{
		cursors: binder.Bind(db),
		c:       c,
		cfg:     cfg,
		log:     *logger.Named("loops"),
	}

	if len(cfg.Queries) > 0 {
		e.add(LoopDiscovery, cfg.DiscoveryInterval, e.discoveryCycle)
	}
	if cfg.UserID != "" {
		e.add(LoopMentions, cfg.MentionsInterval, e.mentionsCycle)
	}
	if len(cfg.TargetAccounts) > 0 {
		e.add(LoopTargets, cfg.TargetsInterval, e.targetsCycle)
	}
	if len(cfg.Topics) > 0 {
		e.add(LoopContent, cfg.ContentInterval, e.contentCycle)
	}
	if c.Approval != nil && c.Poster != nil {
		e.add(LoopDispatcher, cfg.DispatchInterval, e.dispatchCycle)
	}
	return e
}

func (e *Engine) add(name string, every time.Duration, cycle func(context.Context) error) {
	sc := e.cfg.Streak
	sc.BaseInterval = every
	sc.MaxInterval = time.Duration(float64(every) * e.cfg.BackoffCap)
	e.runners = append(e.runners, &runner{
		name:    name,
		cycle:   cycle,
		tracker: streak.New(sc),
		lease:   e.c.Lease,
		now:     e.cfg.Now,
		log:     e.log.With().Str("loop", name).Str("account", e.cfg.AccountID).Logger(),
	})
}

// Loops lists the configured loop names in start order
func (e *Engine) Loops() []string {
	out := make([]string, 0, len(e.runners))
	for _, r := range e.runners {
		out = append(out, r.name)
	}
	return out
}

// Run starts every loop and blocks until all of them returned. Loops share
// no cancel, so one halted loop leaves the others running. The first halt
// error is returned
func (e *Engine) Run(ctx context.Context) error {
	var g errgroup.Group
	for _, r := range e.runners {
		g.Go(func() error { return r.Run(ctx) })
	}
	return g.Wait()
}

// RunOnce runs a single cycle of the named loop outside the supervisor.
// Callers must not use it while Run is active
func (e *Engine) RunOnce(ctx context.Context, name string) error {
	for _, r := range e.runners {
		if r.name == name {
			return r.cycle(ctx)
		}
	}
	return perr.NotFoundf("loop %s is not configured", name)
}

// Snapshot reports every loop's state
func (e *Engine) Snapshot() []dom.Status {
	out := make([]dom.Status, 0, len(e.runners))
	for _, r := range e.runners {
		out = append(out, r.status())
	}
	return out
}
