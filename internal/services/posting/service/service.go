// Package service implements the posting actor: one goroutine that owns every
// platform write, consuming a bounded FIFO of submitted actions
package service

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"murmur/internal/modkit/repokit"
	"murmur/internal/platform/breaker"
	perr "murmur/internal/platform/errors"
	"murmur/internal/platform/logger"
	"murmur/internal/platform/metrics"
	dom "murmur/internal/services/posting/domain"
	"murmur/internal/services/posting/repo"
	safety "murmur/internal/services/safety/domain"
	telemetry "murmur/internal/services/telemetry/domain"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

var (
	writesTotal = metrics.Factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Name:      "posting_requests_total",
		Help:      "Posting requests by kind and outcome",
	}, []string{"kind", "outcome"})

	writeSeconds = metrics.Factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metrics.Namespace,
		Name:      "posting_write_seconds",
		Help:      "Platform write latency by kind",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind"})

	queueDepth = metrics.Factory.NewGauge(prometheus.GaugeOpts{
		Namespace: metrics.Namespace,
		Name:      "posting_queue_depth",
		Help:      "Actions waiting for the posting actor",
	})
)

// Publisher receives action log rows after their transaction committed
type Publisher interface {
	Publish(ctx context.Context, es ...telemetry.Entry)
}

// Collaborators are the ports the actor drives
type Collaborators struct {
	Writer    dom.WriterPort
	Guard     safety.GuardPort
	Recorder  safety.RecorderPort
	ActionLog telemetry.ActionLogPort

	// Publisher is optional
	Publisher Publisher
}

// Config for the actor
type Config struct {
	AccountID string

	// Buffer bounds the FIFO of waiting actions
	Buffer int

	// WriteTimeout bounds one platform write, including every part of a thread
	WriteTimeout time.Duration

	// RecordTimeout bounds the bookkeeping transaction after a write
	RecordTimeout time.Duration

	// MinInterval spaces platform writes, zero disables pacing
	MinInterval time.Duration
	Burst       int

	Breaker breaker.Config
	Now     func() time.Time
}

type request struct {
	ctx    context.Context
	action dom.Action
	reply  chan response
}

type response struct {
	res dom.Result
	err error
}

// Actor serializes platform writes
type Actor struct {
	db      repokit.TxRunner
	binder  repokit.Binder[repo.Repo]
	repo    repo.Repo
	c       Collaborators
	cfg     Config
	limiter *rate.Limiter
	br      *breaker.Breaker
	log     logger.Logger

	reqs    chan request
	done    chan struct{}
	running atomic.Bool
}

var _ dom.SubmitPort = (*Actor)(nil)

// New constructs the actor; db, Writer, Guard, Recorder and ActionLog are required
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo], c Collaborators, cfg Config) *Actor {
	if db == nil {
		panic("posting.New: nil TxRunner")
	}
	if c.Writer == nil || c.Guard == nil || c.Recorder == nil || c.ActionLog == nil {
		panic("posting.New: missing collaborator")
	}
	if binder == nil {
		binder = repo.NewPG()
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 64
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	if cfg.RecordTimeout <= 0 {
		cfg.RecordTimeout = 10 * time.Second
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.Breaker.Name == "" {
		cfg.Breaker.Name = "posting"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}
	return &Actor{
		db:      db,
		binder:  binder,
		repo:    binder.Bind(db),
		c:       c,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, cfg.Burst),
		br:      breaker.New(cfg.Breaker),
		log:     *logger.Named("posting"),
		reqs:    make(chan request, cfg.Buffer),
		done:    make(chan struct{}),
	}
}

// Breaker exposes the write breaker for health reporting
func (a *Actor) Breaker() *breaker.Breaker { return a.br }

// Submit queues an action and waits for the actor's answer or ctx
func (a *Actor) Submit(ctx context.Context, act dom.Action) (dom.Result, error) {
	if err := validate(act); err != nil {
		return dom.Result{}, err
	}
	req := request{ctx: ctx, action: act, reply: make(chan response, 1)}

	select {
	case <-a.done:
		return dom.Result{}, perr.Unavailablef("posting: actor stopped")
	default:
	}
	select {
	case a.reqs <- req:
		queueDepth.Inc()
	case <-a.done:
		return dom.Result{}, perr.Unavailablef("posting: actor stopped")
	case <-ctx.Done():
		return dom.Result{}, ctx.Err()
	}

	select {
	case r := <-req.reply:
		return r.res, r.err
	case <-a.done:
		select {
		case r := <-req.reply:
			return r.res, r.err
		default:
			return dom.Result{}, perr.Unavailablef("posting: actor stopped")
		}
	case <-ctx.Done():
		return dom.Result{}, ctx.Err()
	}
}

// Run consumes the queue until ctx ends. Waiting requests are then failed
// with Unavailable; a write already in flight completes first
func (a *Actor) Run(ctx context.Context) error {
	if !a.running.CompareAndSwap(false, true) {
		return perr.Conflictf("posting: actor already running")
	}
	defer close(a.done)
	a.log.Info().Int("buffer", a.cfg.Buffer).Msg("posting actor started")

	stop := func() error {
		n := a.drain()
		a.log.Info().Int("failed_pending", n).Msg("posting actor stopped")
		return nil
	}
	for {
		if ctx.Err() != nil {
			return stop()
		}
		select {
		case <-ctx.Done():
			return stop()
		case req := <-a.reqs:
			queueDepth.Dec()
			res, err := a.handle(ctx, req)
			req.reply <- response{res: res, err: err}
		}
	}
}

func (a *Actor) drain() int {
	n := 0
	for {
		select {
		case req := <-a.reqs:
			queueDepth.Dec()
			req.reply <- response{err: perr.Unavailablef("posting: shutting down")}
			n++
		default:
			return n
		}
	}
}

func (a *Actor) handle(ctx context.Context, req request) (dom.Result, error) {
	act := req.action
	kind := string(act.Kind)
	log := a.log.With().Str("kind", kind).Str("key", act.IdempotencyKey).Str("source", act.Source).Logger()

	if err := req.ctx.Err(); err != nil {
		writesTotal.WithLabelValues(kind, "abandoned").Inc()
		return dom.Result{}, err
	}

	rec, hit, err := a.repo.Lookup(ctx, a.cfg.AccountID, act.IdempotencyKey)
	if err != nil {
		writesTotal.WithLabelValues(kind, "error").Inc()
		return dom.Result{}, err
	}
	if hit {
		writesTotal.WithLabelValues(kind, "duplicate").Inc()
		log.Debug().Str("post_id", rec.PostID).Msg("idempotent hit")
		return dom.Result{PostID: rec.PostID, PostIDs: rec.PostIDs, Duplicate: true}, nil
	}

	d, err := a.recheck(ctx, act)
	if err != nil {
		writesTotal.WithLabelValues(kind, "error").Inc()
		return dom.Result{}, err
	}
	if !d.Allowed {
		writesTotal.WithLabelValues(kind, "denied").Inc()
		log.Info().Str("reason", string(d.Reason)).Msg("posting denied by safety guard")
		return dom.Result{}, d.Err()
	}

	var ids []string
	start := time.Now()
	err = a.br.Do(func() error {
		if err := a.limiter.Wait(ctx); err != nil {
			return perr.Wrap(err, perr.ErrorCodeUnavailable, "posting: shutting down")
		}
		wctx, cancel := context.WithTimeout(context.WithoutCancel(req.ctx), a.cfg.WriteTimeout)
		defer cancel()
		var werr error
		ids, werr = a.write(wctx, act)
		return werr
	})
	writeSeconds.WithLabelValues(kind).Observe(time.Since(start).Seconds())

	if len(ids) == 0 {
		outcome := "error"
		if perr.IsCode(err, perr.ErrorCodeCircuitOpen) {
			outcome = "circuit_open"
		}
		writesTotal.WithLabelValues(kind, outcome).Inc()
		log.Warn().Err(err).Msg("platform write failed")
		return dom.Result{}, err
	}

	res := dom.Result{PostID: ids[0]}
	if act.Kind == dom.KindThread {
		res.PostIDs = ids
	}
	// a partially published thread is still recorded so a retry cannot repost its head
	if rerr := a.record(req.ctx, act, res); rerr != nil {
		log.Error().Err(rerr).Str("post_id", res.PostID).Msg("published but bookkeeping failed")
	}
	if err != nil {
		writesTotal.WithLabelValues(kind, "partial").Inc()
		log.Error().Err(err).Strs("post_ids", ids).Msg("thread partially published")
		return res, perr.Wrapf(err, perr.CodeOf(err), "posting: thread stopped after %d of %d parts", len(ids), len(act.Parts))
	}
	writesTotal.WithLabelValues(kind, "ok").Inc()
	log.Info().Str("post_id", res.PostID).Msg("published")
	return res, nil
}

// recheck asks the guard again right before the write; loop side checks may be stale
func (a *Actor) recheck(ctx context.Context, act dom.Action) (safety.Decision, error) {
	switch act.Kind {
	case dom.KindReply:
		return a.c.Guard.CanReplyTo(ctx, safety.ReplyCheck{
			TargetID:     act.TargetID,
			AuthorHandle: act.TargetAuthor,
			Texts:        []string{act.Text},
		})
	case dom.KindTweet:
		return a.c.Guard.CanPostTweet(ctx, act.Text)
	default:
		return a.c.Guard.CanPostThread(ctx, act.Parts)
	}
}

// write performs the platform calls; a thread is a reply chain under its first part.
// The ids published so far are returned even when a later part fails
func (a *Actor) write(ctx context.Context, act dom.Action) ([]string, error) {
	switch act.Kind {
	case dom.KindReply:
		id, err := a.c.Writer.Reply(ctx, act.Text, act.TargetID, act.Media)
		if err != nil {
			return nil, err
		}
		return []string{id}, nil
	case dom.KindTweet:
		id, err := a.c.Writer.Post(ctx, act.Text, act.Media)
		if err != nil {
			return nil, err
		}
		return []string{id}, nil
	}

	ids := make([]string, 0, len(act.Parts))
	for i, part := range act.Parts {
		var (
			id  string
			err error
		)
		if i == 0 {
			id, err = a.c.Writer.Post(ctx, part, act.Media)
		} else {
			id, err = a.c.Writer.Reply(ctx, part, ids[i-1], nil)
		}
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// record commits the safety counters, the idempotency row and the action log
// row in one transaction, then publishes the log row
func (a *Actor) record(ctx context.Context, act dom.Action, res dom.Result) error {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.RecordTimeout)
	defer cancel()

	now := a.cfg.Now().UTC()
	entry := telemetry.Entry{
		TargetID: act.TargetID,
		PostID:   res.PostID,
		Source:   act.Source,
		Score:    act.Score,
		At:       now,
	}
	switch act.Kind {
	case dom.KindReply:
		entry.Kind = telemetry.ActionReplied
	case dom.KindTweet:
		entry.Kind = telemetry.ActionPosted
	default:
		entry.Kind = telemetry.ActionThreadPosted
	}

	err := repokit.WithTx(rctx, a.db, func(q repokit.Queryer) error {
		var err error
		switch act.Kind {
		case dom.KindReply:
			err = a.c.Recorder.RecordReply(rctx, q, safety.ReplyRecord{
				TargetID: act.TargetID, AuthorHandle: act.TargetAuthor, Content: act.Text,
			})
		case dom.KindTweet:
			err = a.c.Recorder.RecordPost(rctx, q, safety.PostRecord{Kind: safety.PostTweet, Content: act.Text})
		default:
			err = a.c.Recorder.RecordPost(rctx, q, safety.PostRecord{Kind: safety.PostThread, Content: act.Content()})
		}
		if err != nil {
			return err
		}
		if err := a.binder.Bind(q).Save(rctx, a.cfg.AccountID, dom.Record{
			Key: act.IdempotencyKey, Kind: act.Kind, PostID: res.PostID, PostIDs: res.PostIDs, CreatedAt: now,
		}); err != nil {
			return err
		}
		return a.c.ActionLog.Append(rctx, q, entry)
	})
	if err != nil {
		return err
	}
	if a.c.Publisher != nil {
		a.c.Publisher.Publish(rctx, entry)
	}
	return nil
}

func validate(a dom.Action) error {
	if !a.Kind.Valid() {
		return perr.WithField(perr.InvalidArgf("posting: unknown kind %q", a.Kind), "kind")
	}
	if strings.TrimSpace(a.IdempotencyKey) == "" {
		return perr.WithField(perr.InvalidArgf("posting: idempotency key is required"), "idempotency_key")
	}
	switch a.Kind {
	case dom.KindReply:
		if a.TargetID == "" {
			return perr.WithField(perr.InvalidArgf("posting: reply needs a target id"), "target_id")
		}
		fallthrough
	case dom.KindTweet:
		if strings.TrimSpace(a.Text) == "" {
			return perr.WithField(perr.InvalidArgf("posting: text is empty"), "text")
		}
	case dom.KindThread:
		if len(a.Parts) == 0 {
			return perr.WithField(perr.InvalidArgf("posting: thread has no parts"), "parts")
		}
		for _, p := range a.Parts {
			if strings.TrimSpace(p) == "" {
				return perr.WithField(perr.InvalidArgf("posting: thread part is empty"), "parts")
			}
		}
	}
	return nil
}

