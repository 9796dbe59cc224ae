// Package repo provides the safety guard persistence
package repo

import (
	"context"
	"time"

	"murmur/internal/modkit/repokit"
	perr "murmur/internal/platform/errors"
)

// Counter scopes
const (
	ScopeReplyDay  = "reply_day"
	ScopeReplyHour = "reply_hour"
	ScopeAuthorDay = "author_day"
	ScopeTweetDay  = "tweet_day"
	ScopeThreadDay = "thread_day"
)

// Repo is the safety persistence surface
type Repo interface {
	Count(ctx context.Context, account, scope, key string, window time.Time) (int, error)
	Increment(ctx context.Context, account, scope, key string, window time.Time) error
	IsReplied(ctx context.Context, account, targetID string) (bool, error)
	MarkReplied(ctx context.Context, account, targetID, author, content string, at time.Time) (bool, error)
	AddPost(ctx context.Context, account, kind string, promotional bool, at time.Time) error
	RecentPosts(ctx context.Context, account string, limit int) (total, promotional int, err error)
}

// PG binds the safety repo to postgres
type PG struct{}

type queries struct{ q repokit.Queryer }

// NewPG returns the postgres binder
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

func (r *queries) Count(ctx context.Context, account, scope, key string, window time.Time) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE((
			SELECT count FROM safety_counters
			WHERE account_id = $1 AND scope = $2 AND key = $3 AND window_start = $4
		), 0)`, account, scope, key, window).Scan(&n)
	return n, perr.FromPostgresf(err, "count %s", scope)
}

// Increment is an atomic upsert so concurrent writers never lose a count
func (r *queries) Increment(ctx context.Context, account, scope, key string, window time.Time) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO safety_counters (account_id, scope, key, window_start, count)
		VALUES ($1, $2, $3, $4, 1)
		ON CONFLICT (account_id, scope, key, window_start)
		DO UPDATE SET count = safety_counters.count + 1`,
		account, scope, key, window)
	return perr.FromPostgresf(err, "increment %s", scope)
}

func (r *queries) IsReplied(ctx context.Context, account, targetID string) (bool, error) {
	var ok bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM safety_replied WHERE account_id = $1 AND target_id = $2)`,
		account, targetID).Scan(&ok)
	return ok, perr.FromPostgres(err, "dedup lookup")
}

func (r *queries) MarkReplied(ctx context.Context, account, targetID, author, content string, at time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO safety_replied (account_id, target_id, author_handle, content, replied_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (account_id, target_id) DO NOTHING`,
		account, targetID, author, content, at)
	if err != nil {
		return false, perr.FromPostgres(err, "dedup insert")
	}
	return tag.RowsAffected() == 1, nil
}

func (r *queries) AddPost(ctx context.Context, account, kind string, promotional bool, at time.Time) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO safety_posts (account_id, kind, promotional, posted_at) VALUES ($1, $2, $3, $4)`,
		account, kind, promotional, at)
	return perr.FromPostgres(err, "record post")
}

func (r *queries) RecentPosts(ctx context.Context, account string, limit int) (int, int, error) {
	var total, promo int
	err := r.q.QueryRow(ctx, `
		SELECT count(*), count(*) FILTER (WHERE promotional)
		FROM (
			SELECT promotional FROM safety_posts
			WHERE account_id = $1
			ORDER BY posted_at DESC, id DESC
			LIMIT $2
		) recent`, account, limit).Scan(&total, &promo)
	return total, promo, perr.FromPostgres(err, "recent posts")
}
