package service

import (
	"context"

	perr "murmur/internal/platform/errors"
	approval "murmur/internal/services/approval/domain"
	posting "murmur/internal/services/posting/domain"
	safety "murmur/internal/services/safety/domain"
)

// dispatchCycle publishes approved items oldest first. The approval id is
// the idempotency key, so a crash between publish and MarkPosted resolves
// as a duplicate on the next cycle. Pages are read with a keyset so items
// the guard refuses never hide newer ones; a cycle posts at most
// DispatchBatch items and looks at no more than DispatchScan
func (e *Engine) dispatchCycle(ctx context.Context) error {
	var (
		failed []error
		after  string
		seen   int
		posted int
	)
	for seen < e.cfg.DispatchScan && posted < e.cfg.DispatchBatch {
		items, err := e.c.Approval.Dispatchable(ctx, after, e.cfg.DispatchBatch)
		if err != nil {
			return err
		}
		for _, it := range items {
			if err := ctx.Err(); err != nil {
				return err
			}
			after = it.ID
			seen++
			ok, err := e.dispatch(ctx, it)
			if perr.IsCode(err, perr.ErrorCodeCircuitOpen) {
				return err
			}
			if err != nil {
				failed = append(failed, err)
			}
			if ok {
				posted++
			}
			if seen >= e.cfg.DispatchScan || posted >= e.cfg.DispatchBatch {
				break
			}
		}
		if len(items) < e.cfg.DispatchBatch {
			break
		}
	}
	return worst(failed)
}

// dispatch submits one item. ok is true once the item is posted and marked
func (e *Engine) dispatch(ctx context.Context, it approval.Item) (bool, error) {
	log := e.log.With().Str("loop", LoopDispatcher).Str("approval_id", it.ID).Str("kind", string(it.Kind)).Logger()

	act := posting.Action{
		Kind:           posting.Kind(it.Kind),
		Text:           it.Content,
		TargetID:       it.TargetID,
		TargetAuthor:   it.TargetAuthor,
		Media:          it.Media,
		IdempotencyKey: "approval:" + it.ID,
		Source:         "approval:" + it.ID,
		Score:          it.Score,
	}
	if it.Kind == approval.KindThread {
		act.Text = ""
		act.Parts = it.Parts
	}

	out, err := e.c.Poster.Submit(ctx, act)
	switch {
	case err == nil:
	case perr.IsCode(err, perr.ErrorCodePolicyDenied):
		reason := safety.ReasonOf(err)
		if !reason.Lasting() {
			// stays approved; windows roll over and a later cycle retries
			log.Info().Err(err).Msg("approved item denied at post time")
			return false, nil
		}
		if _, herr := e.c.Approval.Hold(ctx, it.ID, string(reason)); herr != nil {
			log.Error().Err(herr).Str("reason", string(reason)).Msg("approved item not held")
			return false, herr
		}
		log.Warn().Str("reason", string(reason)).Msg("approved item held until its content is edited")
		return false, nil
	case perr.IsCode(err, perr.ErrorCodeCircuitOpen):
		return false, err
	default:
		log.Warn().Err(err).Msg("approved item not posted")
		return false, err
	}

	if _, err := e.c.Approval.MarkPosted(ctx, it.ID, out.PostID); err != nil {
		log.Error().Err(err).Str("post_id", out.PostID).Msg("posted but not marked")
		return false, err
	}
	log.Info().Str("post_id", out.PostID).Bool("duplicate", out.Duplicate).Msg("approved item posted")
	return true, nil
}
