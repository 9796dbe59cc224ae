// Package repo provides the posting idempotency records
package repo

import (
	"context"
	"time"

	"murmur/internal/modkit/repokit"
	perr "murmur/internal/platform/errors"
	"murmur/internal/platform/store"
	dom "murmur/internal/services/posting/domain"
)

// Repo persists idempotency keys of published actions
type Repo interface {
	Lookup(ctx context.Context, account, key string) (dom.Record, bool, error)
	Save(ctx context.Context, account string, r dom.Record) error
}

// PG binds the posting repo to postgres
type PG struct{}

type queries struct{ q repokit.Queryer }

// NewPG returns the postgres binder
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

func (r *queries) Lookup(ctx context.Context, account, key string) (dom.Record, bool, error) {
	rec, err := store.One(ctx, r.q, func(row store.Row) (dom.Record, error) {
		var (
			rec  dom.Record
			kind string
		)
		err := row.Scan(&rec.Key, &kind, &rec.PostID, &rec.PostIDs, &rec.CreatedAt)
		rec.Kind = dom.Kind(kind)
		return rec, err
	}, `
		SELECT key, kind, post_id, post_ids, created_at
		FROM post_idempotency
		WHERE account_id = $1 AND key = $2`, account, key)
	if perr.IsCode(err, perr.ErrorCodeNotFound) {
		return dom.Record{}, false, nil
	}
	if err != nil {
		return dom.Record{}, false, perr.FromPostgres(err, "lookup idempotency key")
	}
	return rec, true, nil
}

// Save inserts the key; a duplicate key is a conflict
func (r *queries) Save(ctx context.Context, account string, rec dom.Record) error {
	ids := rec.PostIDs
	if ids == nil {
		ids = []string{}
	}
	at := rec.CreatedAt
	if at.IsZero() {
		at = time.Now()
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO post_idempotency (account_id, key, kind, post_id, post_ids, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		account, rec.Key, string(rec.Kind), rec.PostID, ids, at)
	if perr.IsDuplicateKey(err) {
		return perr.Conflictf("idempotency key %s already recorded", rec.Key)
	}
	return perr.FromPostgres(err, "save idempotency key")
}
