// Package repo provides the per stream cursors
package repo

import (
	"context"
	"time"

	"murmur/internal/modkit/repokit"
	perr "murmur/internal/platform/errors"
	"murmur/internal/platform/store"
)

// Cursor scopes
const (
	ScopeSearch   = "search"
	ScopeMentions = "mentions"
	ScopeTarget   = "target"
)

// Repo persists the newest processed id per stream
type Repo interface {
	// Get returns "" when the stream has no cursor yet
	Get(ctx context.Context, account, scope, key string) (string, error)

	// Advance stores value only when it is a larger snowflake than the
	// stored one and reports whether it moved
	Advance(ctx context.Context, account, scope, key, value string, at time.Time) (bool, error)
}

// PG binds the cursor repo to postgres
type PG struct{}

type queries struct{ q repokit.Queryer }

// NewPG returns the postgres binder
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

func (r *queries) Get(ctx context.Context, account, scope, key string) (string, error) {
	v, err := store.Scalar[string](ctx, r.q, `
		SELECT value FROM cursors WHERE account_id = $1 AND scope = $2 AND key = $3`,
		account, scope, key)
	if perr.IsCode(err, perr.ErrorCodeNotFound) {
		return "", nil
	}
	return v, perr.FromPostgres(err, "read cursor")
}

// Advance compares by length then bytewise under the C collation, matching domain.IDGreater
func (r *queries) Advance(ctx context.Context, account, scope, key, value string, at time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO cursors (account_id, scope, key, value, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (account_id, scope, key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
		WHERE length(EXCLUDED.value) > length(cursors.value)
		   OR (length(EXCLUDED.value) = length(cursors.value)
		       AND EXCLUDED.value COLLATE "C" > cursors.value COLLATE "C")`,
		account, scope, key, value, at)
	if err != nil {
		return false, perr.FromPostgres(err, "advance cursor")
	}
	return tag.RowsAffected() == 1, nil
}
