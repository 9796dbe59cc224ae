// Package service implements the action log writer, the usage accountant
// and the read side aggregation
package service

import (
	"context"
	"sync"
	"time"

	"murmur/internal/modkit/repokit"
	perr "murmur/internal/platform/errors"
	"murmur/internal/platform/logger"
	"murmur/internal/platform/metrics"
	"murmur/internal/platform/store"
	dom "murmur/internal/services/telemetry/domain"
	"murmur/internal/services/telemetry/repo"

	"github.com/prometheus/client_golang/prometheus"
)

// MirrorTable is the clickhouse table appended rows are copied to
const MirrorTable = "murmur_action_log"

var actionsTotal = metrics.Factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: metrics.Namespace,
	Name:      "actions_total",
	Help:      "Action log rows appended by kind",
}, []string{"kind"})

var tokensTotal = metrics.Factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: metrics.Namespace,
	Name:      "llm_tokens_total",
	Help:      "Generation tokens by provider, model and direction",
}, []string{"provider", "model", "direction"})

// Config for the telemetry service
type Config struct {
	AccountID    string
	UsageTimeout time.Duration
	Now          func() time.Time
}

// Svc implements the telemetry ports
type Svc struct {
	db     repokit.TxRunner
	binder repokit.Binder[repo.Repo]
	repo   repo.Repo
	mirror store.Clickhouse
	cfg    Config
	log    logger.Logger

	inflight sync.WaitGroup
}

var (
	_ dom.ActionLogPort  = (*Svc)(nil)
	_ dom.ReporterPort   = (*Svc)(nil)
	_ dom.AccountantPort = (*Svc)(nil)
)

// New constructs the service; mirror may be nil
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo], mirror store.Clickhouse, cfg Config) *Svc {
	if db == nil {
		panic("telemetry.New: nil TxRunner")
	}
	if binder == nil {
		binder = repo.NewPG()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.UsageTimeout <= 0 {
		cfg.UsageTimeout = 5 * time.Second
	}
	return &Svc{
		db:     db,
		binder: binder,
		repo:   binder.Bind(db),
		mirror: mirror,
		cfg:    cfg,
		log:    *logger.Named("telemetry"),
	}
}

// Append writes one action log row. Rows written through the pool are
// mirrored at once, rows bound to a caller tx are mirrored by Publish after commit
func (s *Svc) Append(ctx context.Context, q repokit.Queryer, e dom.Entry) error {
	if !e.Kind.Valid() {
		return perr.InvalidArgf("telemetry: unknown action kind %q", e.Kind)
	}
	if e.At.IsZero() {
		e.At = s.cfg.Now()
	}
	if q == nil {
		if err := s.repo.Append(ctx, s.cfg.AccountID, e); err != nil {
			return err
		}
		s.Publish(ctx, e)
		return nil
	}
	return s.binder.Bind(q).Append(ctx, s.cfg.AccountID, e)
}

// Publish counts committed rows and copies them to the clickhouse mirror
func (s *Svc) Publish(ctx context.Context, es ...dom.Entry) {
	if len(es) == 0 {
		return
	}
	rows := make([][]any, 0, len(es))
	for _, e := range es {
		actionsTotal.WithLabelValues(string(e.Kind)).Inc()
		at := e.At
		if at.IsZero() {
			at = s.cfg.Now()
		}
		rows = append(rows, []any{s.cfg.AccountID, string(e.Kind), e.TargetID, e.PostID, e.Source, e.Score, e.Meets, at.UTC()})
	}
	if s.mirror == nil {
		return
	}
	s.goDetached(ctx, func(ctx context.Context) {
		if err := s.mirror.Insert(ctx, MirrorTable, rows); err != nil {
			s.log.Warn().Err(err).Int("rows", len(rows)).Msg("action log mirror failed")
		}
	})
}

const mirrorDDL = `CREATE TABLE IF NOT EXISTS ` + MirrorTable + ` (
	account_id String,
	kind LowCardinality(String),
	target_id String,
	post_id String,
	source LowCardinality(String),
	score Float64,
	meets Bool,
	created_at DateTime64(3, 'UTC')
) ENGINE = MergeTree
ORDER BY (account_id, created_at)`

// EnsureMirror creates the clickhouse mirror table, a no-op without a mirror
func (s *Svc) EnsureMirror(ctx context.Context) error {
	if s.mirror == nil {
		return nil
	}
	return perr.WrapIf(s.mirror.Exec(ctx, mirrorDDL), perr.ErrorCodeUnavailable, "telemetry: create mirror table")
}

// ActionCountsSince aggregates the action log from since onwards
func (s *Svc) ActionCountsSince(ctx context.Context, since time.Time) (dom.Counts, error) {
	if since.After(s.cfg.Now()) {
		return dom.Counts{}, perr.InvalidArgf("telemetry: since is in the future")
	}
	return s.repo.CountsSince(ctx, s.cfg.AccountID, since.UTC())
}

// UsageSince sums generation usage per provider and model
func (s *Svc) UsageSince(ctx context.Context, since time.Time) ([]dom.UsageTotal, error) {
	return s.repo.UsageSince(ctx, s.cfg.AccountID, since.UTC())
}

// RecordUsage persists usage in the background; failures are logged only
func (s *Svc) RecordUsage(ctx context.Context, u dom.Usage, purpose string) {
	tokensTotal.WithLabelValues(u.Provider, u.Model, "prompt").Add(float64(max(u.PromptTokens, 0)))
	tokensTotal.WithLabelValues(u.Provider, u.Model, "completion").Add(float64(max(u.CompletionTokens, 0)))
	at := s.cfg.Now()
	s.goDetached(ctx, func(ctx context.Context) {
		if err := s.repo.InsertUsage(ctx, s.cfg.AccountID, u, purpose, at); err != nil {
			logger.C(ctx).Warn().Err(err).Str("purpose", purpose).Msg("usage accounting failed")
		}
	})
}

// Flush waits for background writes or ctx
func (s *Svc) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// goDetached runs fn off the caller's cancellation with a bounded timeout
func (s *Svc) goDetached(ctx context.Context, fn func(context.Context)) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		c, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.UsageTimeout)
		defer cancel()
		fn(c)
	}()
}
