package service

import (
	"context"
	"fmt"
	"strings"

	perr "murmur/internal/platform/errors"
	approval "murmur/internal/services/approval/domain"
	dom "murmur/internal/services/loops/domain"
	posting "murmur/internal/services/posting/domain"
	safety "murmur/internal/services/safety/domain"
)

// contentCycle produces one original post. Topics rotate per run and every
// ContentThreadEvery-th run is a thread
func (e *Engine) contentCycle(ctx context.Context) error {
	slot := e.contentRuns
	e.contentRuns++
	topic := e.cfg.Topics[slot%len(e.cfg.Topics)]
	thread := e.cfg.ContentThreadEvery > 0 && (slot+1)%e.cfg.ContentThreadEvery == 0

	log := e.log.With().Str("loop", LoopContent).Str("topic", topic).Bool("thread", thread).Logger()

	// coarse gate on the daily caps; the posting queue rechecks the real text
	var (
		d   safety.Decision
		err error
	)
	if thread {
		d, err = e.c.Guard.CanPostThread(ctx, nil)
	} else {
		d, err = e.c.Guard.CanPostTweet(ctx, "")
	}
	if err != nil {
		return err
	}
	if !d.Allowed {
		log.Info().Str("reason", string(d.Reason)).Msg("content skipped")
		return nil
	}

	gctx, cancel := context.WithTimeout(ctx, e.cfg.GenerateTimeout)
	var gen dom.Generation
	if thread {
		gen, err = e.c.Generator.GenerateThread(gctx, topic)
	} else {
		gen, err = e.c.Generator.GenerateTweet(gctx, topic)
	}
	cancel()
	if err != nil {
		return err
	}

	purpose := "tweet"
	if thread {
		purpose = "thread"
	}
	e.account(ctx, gen, purpose)

	texts := nonEmpty(gen.Texts)
	if len(texts) == 0 || (thread && len(texts) < 2) {
		log.Warn().Int("parts", len(texts)).Msg("generation returned too little text")
		return nil
	}

	if e.cfg.Mode == dom.ModeApproval {
		in := approval.EnqueueInput{Kind: approval.KindTweet, Content: texts[0], Topic: topic, Archetype: LoopContent}
		if thread {
			in.Kind = approval.KindThread
			in.Content = ""
			in.Parts = texts
		}
		id, err := e.c.Approval.Enqueue(ctx, in)
		if err != nil {
			return err
		}
		log.Info().Str("approval_id", id).Msg("content staged for approval")
		return nil
	}

	// the slot is the content window, so a restarted process keeps distinct keys
	window := e.cfg.Now().UTC().Unix() / max(1, int64(e.cfg.ContentInterval.Seconds()))
	act := posting.Action{
		Kind:           posting.KindTweet,
		Text:           texts[0],
		IdempotencyKey: fmt.Sprintf("tweet:%s:%d", topic, window),
		Source:         LoopContent,
	}
	if thread {
		act.Kind = posting.KindThread
		act.Text = ""
		act.Parts = texts
		act.IdempotencyKey = fmt.Sprintf("thread:%s:%d", topic, window)
	}
	out, err := e.c.Poster.Submit(ctx, act)
	if err != nil {
		if perr.IsCode(err, perr.ErrorCodePolicyDenied) {
			log.Info().Err(err).Msg("content denied at post time")
			return nil
		}
		return err
	}
	log.Info().Str("post_id", out.PostID).Int("parts", max(1, len(out.PostIDs))).Msg("content posted")
	return nil
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
