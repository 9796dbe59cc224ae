// Package service implements the safety guard
package service

import (
	"context"
	"strings"
	"time"

	"murmur/internal/core/normalize"
	"murmur/internal/core/phrase"
	"murmur/internal/modkit/repokit"
	perr "murmur/internal/platform/errors"
	ptime "murmur/internal/platform/time"
	dom "murmur/internal/services/safety/domain"
	"murmur/internal/services/safety/repo"
)

// Config holds the guard limits. Zero caps disable the matching check
type Config struct {
	AccountID string

	DailyReplies  int
	HourlyReplies int
	AuthorDaily   int
	DailyTweets   int
	DailyThreads  int

	// ProductWindow is the number of trailing posts the ratio is taken over
	ProductWindow   int
	ProductMaxRatio float64
	ProductKeywords []string

	Banned     []string
	BannedLeet bool

	Now func() time.Time
}

// Svc is the safety guard
type Svc struct {
	db     repokit.TxRunner
	binder repokit.Binder[repo.Repo]
	repo   repo.Repo
	cfg    Config

	banned  *phrase.Matcher
	product *phrase.Matcher
}

var (
	_ dom.GuardPort    = (*Svc)(nil)
	_ dom.RecorderPort = (*Svc)(nil)
	_ dom.UsagePort    = (*Svc)(nil)
)

// New constructs the guard; db is required
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo], cfg Config) *Svc {
	if db == nil {
		panic("safety.New: nil TxRunner")
	}
	if binder == nil {
		binder = repo.NewPG()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.ProductWindow <= 0 {
		cfg.ProductWindow = 10
	}
	return &Svc{
		db:      db,
		binder:  binder,
		repo:    binder.Bind(db),
		cfg:     cfg,
		banned:  phrase.New(cfg.Banned, normalize.Options{Leet: cfg.BannedLeet}),
		product: phrase.New(cfg.ProductKeywords, normalize.Options{}),
	}
}

// IsReplied is the read only dedup lookup
func (s *Svc) IsReplied(ctx context.Context, targetID string) (bool, error) {
	if targetID == "" {
		return false, nil
	}
	return s.repo.IsReplied(ctx, s.cfg.AccountID, targetID)
}

// CanReplyTo runs the reply gate
func (s *Svc) CanReplyTo(ctx context.Context, in dom.ReplyCheck) (dom.Decision, error) {
	if strings.TrimSpace(in.TargetID) == "" {
		return dom.Decision{}, perr.InvalidArgf("safety: reply check needs a target id")
	}
	if hits := s.banned.FindAll(in.Texts...); len(hits) > 0 {
		return dom.Deny(dom.ReasonBannedPhrase, hits[0]), nil
	}

	replied, err := s.repo.IsReplied(ctx, s.cfg.AccountID, in.TargetID)
	if err != nil {
		return dom.Decision{}, err
	}
	if replied {
		return dom.Deny(dom.ReasonAlreadyReplied, in.TargetID), nil
	}

	now := s.cfg.Now()
	day, hour := ptime.DayStart(now), ptime.HourStart(now)
	checks := []struct {
		cap    int
		scope  string
		key    string
		window time.Time
		reason dom.Reason
	}{
		{s.cfg.AuthorDaily, repo.ScopeAuthorDay, authorKey(in.AuthorHandle), day, dom.ReasonAuthorDailyCap},
		{s.cfg.DailyReplies, repo.ScopeReplyDay, "", day, dom.ReasonDailyReplyCap},
		{s.cfg.HourlyReplies, repo.ScopeReplyHour, "", hour, dom.ReasonHourlyReplyCap},
	}
	for _, c := range checks {
		if c.cap <= 0 || (c.scope == repo.ScopeAuthorDay && c.key == "") {
			continue
		}
		n, err := s.repo.Count(ctx, s.cfg.AccountID, c.scope, c.key, c.window)
		if err != nil {
			return dom.Decision{}, err
		}
		if n >= c.cap {
			return dom.Deny(c.reason, ""), nil
		}
	}
	return dom.Allow(), nil
}

// CanPostTweet runs the tweet gate. Empty text checks caps only
func (s *Svc) CanPostTweet(ctx context.Context, text string) (dom.Decision, error) {
	return s.canPost(ctx, repo.ScopeTweetDay, s.cfg.DailyTweets, dom.ReasonDailyTweetCap, text)
}

// CanPostThread runs the thread gate. No parts checks caps only
func (s *Svc) CanPostThread(ctx context.Context, parts []string) (dom.Decision, error) {
	return s.canPost(ctx, repo.ScopeThreadDay, s.cfg.DailyThreads, dom.ReasonDailyThreadCap, strings.Join(parts, "\n"))
}

func (s *Svc) canPost(ctx context.Context, scope string, limit int, reason dom.Reason, text string) (dom.Decision, error) {
	if hits := s.banned.Find(text); len(hits) > 0 {
		return dom.Deny(dom.ReasonBannedPhrase, hits[0]), nil
	}
	if limit > 0 {
		n, err := s.repo.Count(ctx, s.cfg.AccountID, scope, "", ptime.DayStart(s.cfg.Now()))
		if err != nil {
			return dom.Decision{}, err
		}
		if n >= limit {
			return dom.Deny(reason, ""), nil
		}
	}
	if text == "" || !s.product.Any(text) {
		return dom.Allow(), nil
	}

	_, promo, err := s.repo.RecentPosts(ctx, s.cfg.AccountID, s.cfg.ProductWindow-1)
	if err != nil {
		return dom.Decision{}, err
	}
	// the candidate counts against a window of fixed size; missing history counts as organic
	if ratio := float64(promo+1) / float64(s.cfg.ProductWindow); ratio > s.cfg.ProductMaxRatio {
		return dom.Deny(dom.ReasonProductRatio, ""), nil
	}
	return dom.Allow(), nil
}

// RecordReply counts a published reply and marks the target as handled
func (s *Svc) RecordReply(ctx context.Context, q repokit.Queryer, r dom.ReplyRecord) error {
	if r.TargetID == "" {
		return perr.InvalidArgf("safety: record reply needs a target id")
	}
	return s.record(ctx, q, func(rp repo.Repo, now time.Time) error {
		if _, err := rp.MarkReplied(ctx, s.cfg.AccountID, r.TargetID, authorKey(r.AuthorHandle), r.Content, now); err != nil {
			return err
		}
		day := ptime.DayStart(now)
		if err := rp.Increment(ctx, s.cfg.AccountID, repo.ScopeReplyDay, "", day); err != nil {
			return err
		}
		if err := rp.Increment(ctx, s.cfg.AccountID, repo.ScopeReplyHour, "", ptime.HourStart(now)); err != nil {
			return err
		}
		if a := authorKey(r.AuthorHandle); a != "" {
			return rp.Increment(ctx, s.cfg.AccountID, repo.ScopeAuthorDay, a, day)
		}
		return nil
	})
}

// RecordPost counts a published tweet or thread
func (s *Svc) RecordPost(ctx context.Context, q repokit.Queryer, r dom.PostRecord) error {
	scope := repo.ScopeTweetDay
	switch r.Kind {
	case dom.PostTweet:
	case dom.PostThread:
		scope = repo.ScopeThreadDay
	default:
		return perr.InvalidArgf("safety: unknown post kind %q", r.Kind)
	}
	return s.record(ctx, q, func(rp repo.Repo, now time.Time) error {
		if err := rp.Increment(ctx, s.cfg.AccountID, scope, "", ptime.DayStart(now)); err != nil {
			return err
		}
		return rp.AddPost(ctx, s.cfg.AccountID, string(r.Kind), s.product.Any(r.Content), now)
	})
}

// record runs fn in the caller's transaction, or in a fresh one when q is nil
func (s *Svc) record(ctx context.Context, q repokit.Queryer, fn func(repo.Repo, time.Time) error) error {
	now := s.cfg.Now()
	if q != nil {
		return fn(s.binder.Bind(q), now)
	}
	return repokit.WithTx(ctx, s.db, func(q repokit.Queryer) error {
		return fn(s.binder.Bind(q), now)
	})
}

// Usage reports the counters of the current windows
func (s *Svc) Usage(ctx context.Context) (dom.Usage, error) {
	now := s.cfg.Now()
	day, hour := ptime.DayStart(now), ptime.HourStart(now)
	var u dom.Usage
	var err error
	for _, c := range []struct {
		dst    *int
		scope  string
		window time.Time
	}{
		{&u.RepliesToday, repo.ScopeReplyDay, day},
		{&u.RepliesHour, repo.ScopeReplyHour, hour},
		{&u.TweetsToday, repo.ScopeTweetDay, day},
		{&u.ThreadsToday, repo.ScopeThreadDay, day},
	} {
		if *c.dst, err = s.repo.Count(ctx, s.cfg.AccountID, c.scope, "", c.window); err != nil {
			return dom.Usage{}, err
		}
	}
	u.RecentPosts, u.RecentPromoed, err = s.repo.RecentPosts(ctx, s.cfg.AccountID, s.cfg.ProductWindow)
	return u, err
}

func authorKey(handle string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(handle), "@"))
}
