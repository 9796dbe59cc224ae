package service

import (
	"context"
	"fmt"

	"murmur/internal/core/score"
	"murmur/internal/platform/logger"
	approval "murmur/internal/services/approval/domain"
	dom "murmur/internal/services/loops/domain"
	"murmur/internal/services/loops/repo"
	posting "murmur/internal/services/posting/domain"
	safety "murmur/internal/services/safety/domain"
	telemetry "murmur/internal/services/telemetry/domain"
)

// stream is one cursor-tracked candidate source
type stream struct {
	loop    string
	scope   string
	key     string
	mention bool
	fetch   func(ctx context.Context, sinceID string, max int) (dom.Page, error)
}

func (e *Engine) discoveryCycle(ctx context.Context) error {
	errs := make([]error, 0, len(e.cfg.Queries))
	for _, q := range e.cfg.Queries {
		errs = append(errs, e.runStream(ctx, stream{
			loop: LoopDiscovery, scope: repo.ScopeSearch, key: q,
			fetch: func(ctx context.Context, since string, max int) (dom.Page, error) {
				return e.c.Fetcher.Search(ctx, q, max, since)
			},
		}))
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return worst(errs)
}

func (e *Engine) mentionsCycle(ctx context.Context) error {
	return e.runStream(ctx, stream{
		loop: LoopMentions, scope: repo.ScopeMentions, key: e.cfg.UserID, mention: true,
		fetch: func(ctx context.Context, since string, max int) (dom.Page, error) {
			return e.c.Fetcher.MentionsSince(ctx, e.cfg.UserID, since, max)
		},
	})
}

func (e *Engine) targetsCycle(ctx context.Context) error {
	errs := make([]error, 0, len(e.cfg.TargetAccounts))
	for _, id := range e.cfg.TargetAccounts {
		errs = append(errs, e.runStream(ctx, stream{
			loop: LoopTargets, scope: repo.ScopeTarget, key: id,
			fetch: func(ctx context.Context, since string, max int) (dom.Page, error) {
				return e.c.Fetcher.UserPostsSince(ctx, id, since, max)
			},
		}))
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return worst(errs)
}

// runStream is one cycle over one stream. The cursor only moves after every
// candidate was handled; per candidate failures are logged and skipped
func (e *Engine) runStream(ctx context.Context, st stream) error {
	log := e.log.With().Str("loop", st.loop).Str("scope", st.scope).Str("key", st.key).Logger()

	since, err := e.cursors.Get(ctx, e.cfg.AccountID, st.scope, st.key)
	if err != nil {
		return err
	}

	fctx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	page, err := st.fetch(fctx, since, e.cfg.MaxResults)
	cancel()
	if err != nil {
		return err
	}

	newest := since
	for _, c := range page.Candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.ID == "" || (since != "" && !dom.IDGreater(c.ID, since)) {
			continue
		}
		e.handleCandidate(ctx, st, c, &log)
		if dom.IDGreater(c.ID, newest) {
			newest = c.ID
		}
	}

	if newest == since {
		return nil
	}
	if _, err := e.cursors.Advance(ctx, e.cfg.AccountID, st.scope, st.key, newest, e.cfg.Now().UTC()); err != nil {
		return err
	}
	log.Debug().Str("from", since).Str("to", newest).Int("candidates", len(page.Candidates)).Msg("cursor advanced")
	return nil
}

// handleCandidate runs dedup, scoring, the coarse gate, generation and the
// hand off for one candidate. It never fails the cycle
func (e *Engine) handleCandidate(ctx context.Context, st stream, c dom.Candidate, log *logger.Logger) {
	clog := log.With().Str("target_id", c.ID).Str("author", c.AuthorHandle).Logger()

	done, err := e.c.Guard.IsReplied(ctx, c.ID)
	if err != nil {
		clog.Warn().Err(err).Msg("dedup check failed, candidate skipped")
		return
	}
	if done {
		clog.Debug().Msg("already replied")
		return
	}

	res := e.c.Scorer.Score(score.Candidate{
		Text:      c.Text,
		CreatedAt: c.CreatedAt,
		Followers: c.AuthorFollowers,
		Likes:     c.Likes,
		Retweets:  c.Retweets,
		Replies:   c.Replies,
	}, e.cfg.Now())
	if err := e.c.ActionLog.Append(ctx, nil, telemetry.Entry{
		Kind: telemetry.ActionScored, TargetID: c.ID, Source: st.loop,
		Score: res.Total, Meets: res.MeetsThreshold, At: e.cfg.Now().UTC(),
	}); err != nil {
		clog.Warn().Err(err).Msg("scored row not recorded")
	}
	if !res.MeetsThreshold {
		clog.Debug().Float64("score", res.Total).Strs("banned", res.Banned).Msg("below threshold")
		return
	}

	d, err := e.c.Guard.CanReplyTo(ctx, safety.ReplyCheck{
		TargetID: c.ID, AuthorHandle: c.AuthorHandle, Texts: []string{c.Text},
	})
	if err != nil {
		clog.Warn().Err(err).Msg("safety gate failed, candidate skipped")
		return
	}
	if !d.Allowed {
		clog.Info().Str("reason", string(d.Reason)).Msg("denied before generation")
		return
	}

	gctx, cancel := context.WithTimeout(ctx, e.cfg.GenerateTimeout)
	gen, err := e.c.Generator.GenerateReply(gctx, c.Text, c.AuthorHandle, st.mention)
	cancel()
	if err != nil {
		clog.Warn().Err(err).Msg("generation failed")
		return
	}
	e.account(ctx, gen, "reply")
	text := gen.Text()
	if text == "" {
		clog.Warn().Msg("generation returned no text")
		return
	}

	if e.cfg.Mode == dom.ModeApproval {
		id, err := e.c.Approval.Enqueue(ctx, approval.EnqueueInput{
			Kind: approval.KindReply, TargetID: c.ID, TargetAuthor: c.AuthorHandle,
			Content: text, Topic: st.key, Archetype: st.loop, Score: res.Total,
		})
		if err != nil {
			clog.Warn().Err(err).Msg("enqueue failed")
			return
		}
		clog.Info().Str("approval_id", id).Float64("score", res.Total).Msg("reply staged for approval")
		return
	}

	out, err := e.c.Poster.Submit(ctx, posting.Action{
		Kind: posting.KindReply, Text: text, TargetID: c.ID, TargetAuthor: c.AuthorHandle,
		IdempotencyKey: fmt.Sprintf("reply:%s", c.ID), Source: st.loop, Score: res.Total,
	})
	if err != nil {
		clog.Warn().Err(err).Msg("reply not posted")
		return
	}
	clog.Info().Str("post_id", out.PostID).Bool("duplicate", out.Duplicate).Msg("replied")
}

// account hands usage to the accountant without waiting on it
func (e *Engine) account(ctx context.Context, g dom.Generation, purpose string) {
	if e.c.Accountant == nil {
		return
	}
	e.c.Accountant.RecordUsage(ctx, g.Usage, purpose)
}
