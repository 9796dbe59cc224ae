// Package service implements the approval queue
package service

import (
	"context"
	"slices"
	"strings"
	"time"

	"murmur/internal/modkit/repokit"
	perr "murmur/internal/platform/errors"
	"murmur/internal/platform/metrics"
	dom "murmur/internal/services/approval/domain"
	"murmur/internal/services/approval/repo"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// PartSeparator joins thread parts in the content field
const PartSeparator = "\n\n"

// PostingEditor is recorded as the editor of approved -> posted transitions
const PostingEditor = "posting"

var transitions = metrics.Factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: metrics.Namespace,
	Name:      "approval_transitions_total",
	Help:      "Approval item status changes and holds by target",
}, []string{"to"})

// Config for the approval queue
type Config struct {
	AccountID string
	Risk      RiskConfig
	ListLimit int
	Now       func() time.Time
}

// Svc is the approval queue
type Svc struct {
	db     repokit.TxRunner
	binder repokit.Binder[repo.Repo]
	repo   repo.Repo
	cfg    Config
	risk   *assessor
}

var (
	_ dom.QueuePort  = (*Svc)(nil)
	_ dom.PostedPort = (*Svc)(nil)
)

// New constructs the queue; db is required
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo], cfg Config) *Svc {
	if db == nil {
		panic("approval.New: nil TxRunner")
	}
	if binder == nil {
		binder = repo.NewPG()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.ListLimit <= 0 {
		cfg.ListLimit = 100
	}
	return &Svc{db: db, binder: binder, repo: binder.Bind(db), cfg: cfg, risk: newAssessor(cfg.Risk)}
}

// Enqueue stages a new pending item and returns its id
func (s *Svc) Enqueue(ctx context.Context, in dom.EnqueueInput) (string, error) {
	if !in.Kind.Valid() {
		return "", perr.WithField(perr.InvalidArgf("approval: unknown kind %q", in.Kind), "kind")
	}
	if in.Kind == dom.KindReply && strings.TrimSpace(in.TargetID) == "" {
		return "", perr.WithField(perr.InvalidArgf("approval: reply needs a target id"), "target_id")
	}
	content, parts := in.Content, in.Parts
	if in.Kind == dom.KindThread {
		if len(parts) == 0 {
			parts = splitParts(content)
		}
		content = strings.Join(parts, PartSeparator)
	} else {
		parts = nil
	}
	if strings.TrimSpace(content) == "" {
		return "", perr.WithField(perr.InvalidArgf("approval: content is empty"), "content")
	}

	now := s.cfg.Now().UTC()
	it := dom.Item{
		ID:           uuid.NewString(),
		Kind:         in.Kind,
		TargetID:     in.TargetID,
		TargetAuthor: in.TargetAuthor,
		Content:      content,
		Parts:        parts,
		Topic:        in.Topic,
		Archetype:    in.Archetype,
		Score:        in.Score,
		Status:       dom.StatusPending,
		Media:        in.Media,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	it.RiskFlags = s.risk.flags(it)
	if err := s.repo.Insert(ctx, s.cfg.AccountID, it); err != nil {
		return "", err
	}
	transitions.WithLabelValues(string(dom.StatusPending)).Inc()
	return it.ID, nil
}

// Approve moves a pending item to approved
func (s *Svc) Approve(ctx context.Context, id, reviewer string) (dom.Item, error) {
	if strings.TrimSpace(reviewer) == "" {
		return dom.Item{}, perr.WithField(perr.InvalidArgf("approval: reviewer is required"), "reviewer")
	}
	return s.move(ctx, id, dom.StatusPending, dom.StatusApproved, reviewer, "", "")
}

// Reject moves a pending item to rejected
func (s *Svc) Reject(ctx context.Context, id, reviewer, notes string) (dom.Item, error) {
	if strings.TrimSpace(reviewer) == "" {
		return dom.Item{}, perr.WithField(perr.InvalidArgf("approval: reviewer is required"), "reviewer")
	}
	return s.move(ctx, id, dom.StatusPending, dom.StatusRejected, reviewer, notes, "")
}

// MarkPosted moves an approved item to posted once the platform accepted it
func (s *Svc) MarkPosted(ctx context.Context, id, postID string) (dom.Item, error) {
	if postID == "" {
		return dom.Item{}, perr.InvalidArgf("approval: post id is required")
	}
	return s.move(ctx, id, dom.StatusApproved, dom.StatusPosted, PostingEditor, "", postID)
}

// move is the single transition path: lock, compare-and-set, append history
func (s *Svc) move(ctx context.Context, id string, from, to dom.Status, editor, notes, postID string) (dom.Item, error) {
	if err := validID(id); err != nil {
		return dom.Item{}, err
	}
	if !dom.CanMove(from, to) {
		return dom.Item{}, perr.Conflictf("approval: %s -> %s is not a valid transition", from, to)
	}
	var out dom.Item
	err := repokit.WithTx(ctx, s.db, func(q repokit.Queryer) error {
		r := s.binder.Bind(q)
		cur, err := r.Get(ctx, s.cfg.AccountID, id, true)
		if err != nil {
			return err
		}
		if cur.Status != from {
			return perr.Conflictf("approval: item is %s, cannot move to %s", cur.Status, to)
		}
		now := s.cfg.Now().UTC()
		ok, err := r.Transition(ctx, s.cfg.AccountID, id, from, to, reviewerFor(to, editor), notes, postID, now)
		if err != nil {
			return err
		}
		if !ok {
			return perr.Conflictf("approval: item changed concurrently")
		}
		if err := r.AppendEdit(ctx, dom.Edit{
			ApprovalID: id, Editor: editor, Field: dom.FieldStatus,
			OldValue: string(from), NewValue: string(to), CreatedAt: now,
		}); err != nil {
			return err
		}
		out, err = r.Get(ctx, s.cfg.AccountID, id, false)
		return err
	})
	if err != nil {
		return dom.Item{}, err
	}
	transitions.WithLabelValues(string(to)).Inc()
	return out, nil
}

// Edit changes one field of a pending or approved item. Setting a field to
// its current value is a no-op and records nothing; thread content is
// compared after it is split into parts. A content edit recomputes the risk
// flags, which also releases a held item
func (s *Svc) Edit(ctx context.Context, id string, field dom.Field, value, editor string) (dom.Item, error) {
	if err := validID(id); err != nil {
		return dom.Item{}, err
	}
	if !field.Editable() {
		return dom.Item{}, perr.WithField(perr.InvalidArgf("approval: field %q is not editable", field), "field")
	}
	if strings.TrimSpace(editor) == "" {
		return dom.Item{}, perr.WithField(perr.InvalidArgf("approval: editor is required"), "editor")
	}
	if field == dom.FieldContent && strings.TrimSpace(value) == "" {
		return dom.Item{}, perr.WithField(perr.InvalidArgf("approval: content cannot be empty"), "value")
	}

	var out dom.Item
	err := repokit.WithTx(ctx, s.db, func(q repokit.Queryer) error {
		r := s.binder.Bind(q)
		cur, err := r.Get(ctx, s.cfg.AccountID, id, true)
		if err != nil {
			return err
		}
		if !cur.Status.Editable() {
			return perr.Conflictf("approval: %s items cannot be edited", cur.Status)
		}
		next := cur
		switch field {
		case dom.FieldContent:
			next.Content = value
			if cur.Kind == dom.KindThread {
				next.Parts = splitParts(value)
				next.Content = strings.Join(next.Parts, PartSeparator)
			}
			next.RiskFlags = s.risk.flags(next)
		case dom.FieldTopic:
			next.Topic = value
		case dom.FieldArchetype:
			next.Archetype = value
		case dom.FieldNotes:
			next.ReviewNotes = value
		}
		old := cur.Value(field)
		if old == next.Value(field) {
			out = cur
			return nil
		}
		now := s.cfg.Now().UTC()
		next.UpdatedAt = now

		if err := r.Update(ctx, s.cfg.AccountID, next); err != nil {
			return err
		}
		if err := r.AppendEdit(ctx, dom.Edit{
			ApprovalID: id, Editor: editor, Field: field,
			OldValue: old, NewValue: next.Value(field), CreatedAt: now,
		}); err != nil {
			return err
		}
		out = next
		return nil
	})
	return out, err
}

// Dispatchable lists approved items that are not held, oldest first, after
// the item with id after
func (s *Svc) Dispatchable(ctx context.Context, after string, limit int) ([]dom.Item, error) {
	if after != "" {
		if _, err := uuid.Parse(after); err != nil {
			return nil, perr.WithField(perr.InvalidArgf("approval: bad cursor %q", after), "after")
		}
	}
	if limit <= 0 || limit > s.cfg.ListLimit {
		limit = s.cfg.ListLimit
	}
	return s.repo.Dispatchable(ctx, s.cfg.AccountID, after, limit)
}

// Hold flags an approved item so dispatch skips it. The reason lands in the
// history; holding a held item records nothing
func (s *Svc) Hold(ctx context.Context, id, reason string) (dom.Item, error) {
	if err := validID(id); err != nil {
		return dom.Item{}, err
	}
	if strings.TrimSpace(reason) == "" {
		return dom.Item{}, perr.WithField(perr.InvalidArgf("approval: hold reason is required"), "reason")
	}
	var out dom.Item
	err := repokit.WithTx(ctx, s.db, func(q repokit.Queryer) error {
		r := s.binder.Bind(q)
		cur, err := r.Get(ctx, s.cfg.AccountID, id, true)
		if err != nil {
			return err
		}
		if cur.Status != dom.StatusApproved {
			return perr.Conflictf("approval: %s items cannot be held", cur.Status)
		}
		if cur.Held() {
			out = cur
			return nil
		}
		now := s.cfg.Now().UTC()
		next := cur
		next.RiskFlags = append(slices.Clone(cur.RiskFlags), dom.RiskHeld)
		next.UpdatedAt = now
		if err := r.Update(ctx, s.cfg.AccountID, next); err != nil {
			return err
		}
		if err := r.AppendEdit(ctx, dom.Edit{
			ApprovalID: id, Editor: PostingEditor, Field: dom.FieldHold,
			NewValue: reason, CreatedAt: now,
		}); err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		return dom.Item{}, err
	}
	transitions.WithLabelValues(dom.RiskHeld).Inc()
	return out, nil
}

// Get loads one item
func (s *Svc) Get(ctx context.Context, id string) (dom.Item, error) {
	if err := validID(id); err != nil {
		return dom.Item{}, err
	}
	return s.repo.Get(ctx, s.cfg.AccountID, id, false)
}

// List returns items oldest first, filtered by status when set
func (s *Svc) List(ctx context.Context, status dom.Status, limit int) ([]dom.Item, error) {
	if status != "" && !status.Valid() {
		return nil, perr.WithField(perr.InvalidArgf("approval: unknown status %q", status), "status")
	}
	if limit <= 0 || limit > s.cfg.ListLimit {
		limit = s.cfg.ListLimit
	}
	items, err := s.repo.List(ctx, s.cfg.AccountID, status, limit)
	if items == nil && err == nil {
		items = []dom.Item{}
	}
	return items, err
}

// History returns the edit entries of an item oldest first
func (s *Svc) History(ctx context.Context, id string) ([]dom.Edit, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	out, err := s.repo.History(ctx, id)
	if out == nil && err == nil {
		out = []dom.Edit{}
	}
	return out, err
}

func validID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return perr.NotFoundf("approval item %s not found", id)
	}
	return nil
}

// reviewerFor keeps the human reviewer on the item when the posting side moves it
func reviewerFor(to dom.Status, editor string) string {
	if to == dom.StatusPosted {
		return ""
	}
	return editor
}

// splitParts splits thread content on blank lines, dropping empty parts
func splitParts(content string) []string {
	var out []string
	for p := range strings.SplitSeq(strings.ReplaceAll(content, "\r\n", "\n"), PartSeparator) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
