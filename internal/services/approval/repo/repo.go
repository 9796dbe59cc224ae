// Package repo provides the approval queue persistence
package repo

import (
	"context"
	"encoding/json"
	"time"

	"murmur/internal/modkit/repokit"
	perr "murmur/internal/platform/errors"
	"murmur/internal/platform/store"
	dom "murmur/internal/services/approval/domain"
)

// Repo is the approval persistence surface. Edits are insert only
type Repo interface {
	Insert(ctx context.Context, account string, it dom.Item) error
	Get(ctx context.Context, account, id string, forUpdate bool) (dom.Item, error)
	List(ctx context.Context, account string, status dom.Status, limit int) ([]dom.Item, error)
	Dispatchable(ctx context.Context, account, after string, limit int) ([]dom.Item, error)
	Transition(ctx context.Context, account, id string, from, to dom.Status, reviewer, notes, postID string, at time.Time) (bool, error)
	Update(ctx context.Context, account string, it dom.Item) error
	AppendEdit(ctx context.Context, e dom.Edit) error
	History(ctx context.Context, id string) ([]dom.Edit, error)
}

// PG binds the approval repo to postgres
type PG struct{}

type queries struct{ q repokit.Queryer }

// NewPG returns the postgres binder
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

const itemColumns = `id::text, kind, target_id, target_author, content, parts, topic, archetype,
	score, status, media, reviewer, review_notes, risk_flags, post_id,
	created_at, updated_at, reviewed_at, posted_at`

func scanItem(row store.Row) (dom.Item, error) {
	var (
		it    dom.Item
		kind  string
		stat  string
		parts []byte
	)
	err := row.Scan(&it.ID, &kind, &it.TargetID, &it.TargetAuthor, &it.Content, &parts, &it.Topic, &it.Archetype,
		&it.Score, &stat, &it.Media, &it.Reviewer, &it.ReviewNotes, &it.RiskFlags, &it.PostID,
		&it.CreatedAt, &it.UpdatedAt, &it.ReviewedAt, &it.PostedAt)
	if err != nil {
		return dom.Item{}, err
	}
	it.Kind, it.Status = dom.Kind(kind), dom.Status(stat)
	if len(parts) > 0 {
		if err := json.Unmarshal(parts, &it.Parts); err != nil {
			return dom.Item{}, perr.Wrap(err, perr.ErrorCodeDB, "decode thread parts")
		}
	}
	return it, nil
}

func encodeParts(parts []string) []byte {
	if len(parts) == 0 {
		return []byte("[]")
	}
	b, _ := json.Marshal(parts)
	return b
}

func nonNil(xs []string) []string {
	if xs == nil {
		return []string{}
	}
	return xs
}

func (r *queries) Insert(ctx context.Context, account string, it dom.Item) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO approval_items
			(id, account_id, kind, target_id, target_author, content, parts, topic, archetype,
			 score, status, media, risk_flags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)`,
		it.ID, account, string(it.Kind), it.TargetID, it.TargetAuthor, it.Content, encodeParts(it.Parts),
		it.Topic, it.Archetype, it.Score, string(it.Status), nonNil(it.Media), nonNil(it.RiskFlags), it.CreatedAt)
	return perr.FromPostgres(err, "insert approval item")
}

func (r *queries) Get(ctx context.Context, account, id string, forUpdate bool) (dom.Item, error) {
	sql := `SELECT ` + itemColumns + ` FROM approval_items WHERE account_id = $1 AND id = $2::uuid`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	it, err := store.One(ctx, r.q, scanItem, sql, account, id)
	if err == perr.ErrNotFound {
		return dom.Item{}, perr.NotFoundf("approval item %s not found", id)
	}
	return it, perr.FromPostgres(err, "get approval item")
}

// List returns items oldest first; an empty status lists every state
func (r *queries) List(ctx context.Context, account string, status dom.Status, limit int) ([]dom.Item, error) {
	items, err := store.Many(ctx, r.q, scanItem, `
		SELECT `+itemColumns+`
		FROM approval_items
		WHERE account_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at, id
		LIMIT $3`, account, string(status), limit)
	return items, perr.FromPostgres(err, "list approval items")
}

// Dispatchable pages approved items that are not held with a keyset on
// (created_at, id)
func (r *queries) Dispatchable(ctx context.Context, account, after string, limit int) ([]dom.Item, error) {
	items, err := store.Many(ctx, r.q, scanItem, `
		SELECT `+itemColumns+`
		FROM approval_items
		WHERE account_id = $1 AND status = $2 AND NOT ($3 = ANY(risk_flags))
		  AND ($4 = '' OR (created_at, id) > (
			SELECT created_at, id FROM approval_items WHERE id = NULLIF($4, '')::uuid))
		ORDER BY created_at, id
		LIMIT $5`, account, string(dom.StatusApproved), dom.RiskHeld, after, limit)
	return items, perr.FromPostgres(err, "list dispatchable approval items")
}

// Transition is a compare-and-set on status; false means the item was not in from
func (r *queries) Transition(ctx context.Context, account, id string, from, to dom.Status, reviewer, notes, postID string, at time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE approval_items SET
			status       = $4,
			reviewer     = CASE WHEN $5 <> '' THEN $5 ELSE reviewer END,
			review_notes = CASE WHEN $6 <> '' THEN $6 ELSE review_notes END,
			post_id      = CASE WHEN $7 <> '' THEN $7 ELSE post_id END,
			reviewed_at  = CASE WHEN $4 IN ('approved', 'rejected') THEN $8 ELSE reviewed_at END,
			posted_at    = CASE WHEN $4 = 'posted' THEN $8 ELSE posted_at END,
			updated_at   = $8
		WHERE account_id = $1 AND id = $2::uuid AND status = $3`,
		account, id, string(from), string(to), reviewer, notes, postID, at)
	if err != nil {
		return false, perr.FromPostgres(err, "transition approval item")
	}
	return tag.RowsAffected() == 1, nil
}

// Update rewrites the editable columns and the derived risk flags
func (r *queries) Update(ctx context.Context, account string, it dom.Item) error {
	err := store.ExecOne(ctx, r.q, `
		UPDATE approval_items SET
			content = $3, parts = $4, topic = $5, archetype = $6,
			review_notes = $7, risk_flags = $8, updated_at = $9
		WHERE account_id = $1 AND id = $2::uuid`,
		account, it.ID, it.Content, encodeParts(it.Parts), it.Topic, it.Archetype,
		it.ReviewNotes, nonNil(it.RiskFlags), it.UpdatedAt)
	if err == perr.ErrNotFound {
		return perr.NotFoundf("approval item %s not found", it.ID)
	}
	return perr.FromPostgres(err, "update approval item")
}

func (r *queries) AppendEdit(ctx context.Context, e dom.Edit) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO approval_edits (approval_id, editor, field, old_value, new_value, created_at)
		VALUES ($1::uuid, $2, $3, $4, $5, $6)`,
		e.ApprovalID, e.Editor, string(e.Field), e.OldValue, e.NewValue, e.CreatedAt)
	return perr.FromPostgres(err, "append approval edit")
}

func (r *queries) History(ctx context.Context, id string) ([]dom.Edit, error) {
	out, err := store.Many(ctx, r.q, func(row store.Row) (dom.Edit, error) {
		var (
			e     dom.Edit
			field string
		)
		err := row.Scan(&e.ID, &e.ApprovalID, &e.Editor, &field, &e.OldValue, &e.NewValue, &e.CreatedAt)
		e.Field = dom.Field(field)
		return e, err
	}, `
		SELECT id, approval_id::text, editor, field, old_value, new_value, created_at
		FROM approval_edits
		WHERE approval_id = $1::uuid
		ORDER BY id`, id)
	return out, perr.FromPostgres(err, "approval history")
}
