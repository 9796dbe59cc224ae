// Package repo provides the action log and usage persistence
package repo

import (
	"context"
	"time"

	"murmur/internal/modkit/repokit"
	perr "murmur/internal/platform/errors"
	"murmur/internal/platform/store"
	dom "murmur/internal/services/telemetry/domain"
)

// Repo is the telemetry persistence surface
type Repo interface {
	Append(ctx context.Context, account string, e dom.Entry) error
	CountsSince(ctx context.Context, account string, since time.Time) (dom.Counts, error)
	InsertUsage(ctx context.Context, account string, u dom.Usage, purpose string, at time.Time) error
	UsageSince(ctx context.Context, account string, since time.Time) ([]dom.UsageTotal, error)
}

// PG binds the telemetry repo to postgres
type PG struct{}

type queries struct{ q repokit.Queryer }

// NewPG returns the postgres binder
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

func (r *queries) Append(ctx context.Context, account string, e dom.Entry) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO action_log (account_id, kind, target_id, post_id, source, score, meets, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		account, string(e.Kind), e.TargetID, e.PostID, e.Source, e.Score, e.Meets, e.At)
	return perr.FromPostgres(err, "append action log")
}

// CountsSince folds every kind in one grouped scan
func (r *queries) CountsSince(ctx context.Context, account string, since time.Time) (dom.Counts, error) {
	c := dom.Counts{Since: since}
	rows, err := store.Many(ctx, r.q, func(row store.Row) (kindCount, error) {
		var kc kindCount
		err := row.Scan(&kc.kind, &kc.n)
		return kc, err
	}, `
		SELECT kind, count(*)
		FROM action_log
		WHERE account_id = $1 AND created_at >= $2
		GROUP BY kind`, account, since)
	if err != nil {
		return c, perr.FromPostgres(err, "action counts")
	}
	for _, kc := range rows {
		switch dom.ActionKind(kc.kind) {
		case dom.ActionScored:
			c.Scored = kc.n
		case dom.ActionReplied:
			c.Replied = kc.n
		case dom.ActionPosted:
			c.Posted = kc.n
		case dom.ActionThreadPosted:
			c.ThreadsPosted = kc.n
		}
	}
	return c, nil
}

type kindCount struct {
	kind string
	n    int
}

func (r *queries) InsertUsage(ctx context.Context, account string, u dom.Usage, purpose string, at time.Time) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO llm_usage (account_id, provider, model, prompt_tokens, completion_tokens, purpose, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		account, u.Provider, u.Model, u.PromptTokens, u.CompletionTokens, purpose, at)
	return perr.FromPostgres(err, "record usage")
}

func (r *queries) UsageSince(ctx context.Context, account string, since time.Time) ([]dom.UsageTotal, error) {
	out, err := store.Many(ctx, r.q, func(row store.Row) (dom.UsageTotal, error) {
		var u dom.UsageTotal
		err := row.Scan(&u.Provider, &u.Model, &u.Calls, &u.PromptTokens, &u.CompletionTokens)
		return u, err
	}, `
		SELECT provider, model, count(*), COALESCE(sum(prompt_tokens), 0), COALESCE(sum(completion_tokens), 0)
		FROM llm_usage
		WHERE account_id = $1 AND created_at >= $2
		GROUP BY provider, model
		ORDER BY provider, model`, account, since)
	return out, perr.FromPostgres(err, "usage totals")
}
