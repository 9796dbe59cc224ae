package service

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"murmur/internal/modkit/repokit"
	perr "murmur/internal/platform/errors"
	approval "murmur/internal/services/approval/domain"
	dom "murmur/internal/services/loops/domain"
	posting "murmur/internal/services/posting/domain"
	safety "murmur/internal/services/safety/domain"
	telemetry "murmur/internal/services/telemetry/domain"
)

type memCursors struct {
	mu sync.Mutex
	m  map[string]string
}

func (m *memCursors) Get(_ context.Context, _, scope, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.m[scope+"/"+key], nil
}

func (m *memCursors) Advance(_ context.Context, _, scope, key, value string, _ time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := scope + "/" + key
	if cur := m.m[k]; cur != "" && !dom.IDGreater(value, cur) {
		return false, nil
	}
	m.m[k] = value
	return true, nil
}

func (m *memCursors) get(scope, key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.m[scope+"/"+key]
}

type fakeFetcher struct {
	mu       sync.Mutex
	pages    map[string][]dom.Candidate // keyed by query or user id
	errs     map[string]error
	sinceLog []string
}

func (f *fakeFetcher) page(key, since string) (dom.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinceLog = append(f.sinceLog, key+"@"+since)
	if err := f.errs[key]; err != nil {
		return dom.Page{}, err
	}
	return dom.Page{Candidates: slices.Clone(f.pages[key])}, nil
}

func (f *fakeFetcher) Search(_ context.Context, q string, _ int, since string) (dom.Page, error) {
	return f.page(q, since)
}

func (f *fakeFetcher) MentionsSince(_ context.Context, uid, since string, _ int) (dom.Page, error) {
	return f.page(uid, since)
}

func (f *fakeFetcher) UserPostsSince(_ context.Context, uid, since string, _ int) (dom.Page, error) {
	return f.page(uid, since)
}

type genCall struct {
	kind, input string
	mention     bool
}

type fakeGen struct {
	mu    sync.Mutex
	calls []genCall
	err   error
}

func (g *fakeGen) record(c genCall) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, c)
	return g.err
}

func usage() telemetry.Usage {
	return telemetry.Usage{Provider: "fake", Model: "m1", PromptTokens: 10, CompletionTokens: 5}
}

func (g *fakeGen) GenerateReply(_ context.Context, text, author string, mention bool) (dom.Generation, error) {
	if err := g.record(genCall{"reply", text, mention}); err != nil {
		return dom.Generation{}, err
	}
	return dom.Generation{Texts: []string{"re @" + author}, Usage: usage()}, nil
}

func (g *fakeGen) GenerateTweet(_ context.Context, topic string) (dom.Generation, error) {
	if err := g.record(genCall{"tweet", topic, false}); err != nil {
		return dom.Generation{}, err
	}
	return dom.Generation{Texts: []string{"on " + topic}, Usage: usage()}, nil
}

func (g *fakeGen) GenerateThread(_ context.Context, topic string) (dom.Generation, error) {
	if err := g.record(genCall{"thread", topic, false}); err != nil {
		return dom.Generation{}, err
	}
	return dom.Generation{Texts: []string{topic + " 1/2", topic + " 2/2"}, Usage: usage()}, nil
}

func (g *fakeGen) snapshot() []genCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.calls)
}

type fakeGuard struct {
	mu      sync.Mutex
	replied map[string]bool
	deny    safety.Reason
	checks  []safety.ReplyCheck
}

func (g *fakeGuard) IsReplied(_ context.Context, id string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.replied[id], nil
}

func (g *fakeGuard) decide() (safety.Decision, error) {
	if g.deny != "" {
		return safety.Deny(g.deny, ""), nil
	}
	return safety.Allow(), nil
}

func (g *fakeGuard) CanReplyTo(_ context.Context, in safety.ReplyCheck) (safety.Decision, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.checks = append(g.checks, in)
	return g.decide()
}

func (g *fakeGuard) CanPostTweet(context.Context, string) (safety.Decision, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.decide()
}

func (g *fakeGuard) CanPostThread(context.Context, []string) (safety.Decision, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.decide()
}

type fakeLog struct {
	mu      sync.Mutex
	entries []telemetry.Entry
	usage   []string
}

func (l *fakeLog) Append(_ context.Context, _ repokit.Queryer, e telemetry.Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	return nil
}

func (l *fakeLog) RecordUsage(_ context.Context, u telemetry.Usage, purpose string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.usage = append(l.usage, purpose+":"+u.Model)
}

func (l *fakeLog) scored() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.entries {
		if e.Kind == telemetry.ActionScored {
			out = append(out, fmt.Sprintf("%s:%t", e.TargetID, e.Meets))
		}
	}
	return out
}

type fakeQueue struct {
	mu       sync.Mutex
	enqueued []approval.EnqueueInput
	approved []approval.Item
	posted   map[string]string
	held     map[string]string
	pages    int
}

func (q *fakeQueue) Enqueue(_ context.Context, in approval.EnqueueInput) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.enqueued = append(q.enqueued, in)
	return fmt.Sprintf("a%d", len(q.enqueued)), nil
}

func (q *fakeQueue) Dispatchable(_ context.Context, after string, limit int) ([]approval.Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pages++
	start := 0
	if after != "" {
		start = slices.IndexFunc(q.approved, func(it approval.Item) bool { return it.ID == after }) + 1
	}
	var out []approval.Item
	for _, it := range q.approved[start:] {
		if it.Status == approval.StatusApproved && !it.Held() && len(out) < limit {
			out = append(out, it)
		}
	}
	return out, nil
}

func (q *fakeQueue) Hold(_ context.Context, id, reason string) (approval.Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, it := range q.approved {
		if it.ID == id {
			q.approved[i].RiskFlags = append(q.approved[i].RiskFlags, approval.RiskHeld)
			if q.held == nil {
				q.held = map[string]string{}
			}
			q.held[id] = reason
			return q.approved[i], nil
		}
	}
	return approval.Item{}, perr.NotFoundf("approval %s not found", id)
}

func (q *fakeQueue) MarkPosted(_ context.Context, id, postID string) (approval.Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, it := range q.approved {
		if it.ID == id {
			q.approved[i].Status = approval.StatusPosted
			if q.posted == nil {
				q.posted = map[string]string{}
			}
			q.posted[id] = postID
			return q.approved[i], nil
		}
	}
	return approval.Item{}, perr.NotFoundf("approval %s not found", id)
}

func (q *fakeQueue) snapshot() []approval.EnqueueInput {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.enqueued)
}

type fakePoster struct {
	mu      sync.Mutex
	actions []posting.Action
	errs    map[string]error // by idempotency key
	seen    map[string]string
	seq     int
}

func (p *fakePoster) Submit(_ context.Context, a posting.Action) (posting.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.actions = append(p.actions, a)
	if err := p.errs[a.IdempotencyKey]; err != nil {
		return posting.Result{}, err
	}
	if p.seen == nil {
		p.seen = map[string]string{}
	}
	if id, ok := p.seen[a.IdempotencyKey]; ok {
		return posting.Result{PostID: id, Duplicate: true}, nil
	}
	p.seq++
	id := fmt.Sprintf("p%d", p.seq)
	p.seen[a.IdempotencyKey] = id
	return posting.Result{PostID: id}, nil
}

func (p *fakePoster) snapshot() []posting.Action {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.actions)
}
