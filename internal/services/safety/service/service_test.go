package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"murmur/internal/modkit/repokit"
	perr "murmur/internal/platform/errors"
	"murmur/internal/platform/store/storetest"
	kit "murmur/internal/platform/testkit"
	dom "murmur/internal/services/safety/domain"
	"murmur/internal/services/safety/repo"
)

type memRepo struct {
	mu       sync.Mutex
	counters map[string]int
	replied  map[string]bool
	posts    []bool
	err      error
}

func newMem() *memRepo {
	return &memRepo{counters: map[string]int{}, replied: map[string]bool{}}
}

func ckey(account, scope, key string, w time.Time) string {
	return fmt.Sprintf("%s|%s|%s|%d", account, scope, key, w.Unix())
}

func (m *memRepo) Count(_ context.Context, account, scope, key string, w time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[ckey(account, scope, key, w)], m.err
}

func (m *memRepo) Increment(_ context.Context, account, scope, key string, w time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[ckey(account, scope, key, w)]++
	return m.err
}

func (m *memRepo) IsReplied(_ context.Context, account, target string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.replied[account+"|"+target], m.err
}

func (m *memRepo) MarkReplied(_ context.Context, account, target, _, _ string, _ time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := account + "|" + target
	fresh := !m.replied[k]
	m.replied[k] = true
	return fresh, m.err
}

func (m *memRepo) AddPost(_ context.Context, _, _ string, promo bool, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts = append(m.posts, promo)
	return m.err
}

func (m *memRepo) RecentPosts(_ context.Context, _ string, limit int) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total, promo := 0, 0
	for i := len(m.posts) - 1; i >= 0 && total < limit; i-- {
		total++
		if m.posts[i] {
			promo++
		}
	}
	return total, promo, m.err
}

func newGuard(t *testing.T, cfg Config) (*Svc, *memRepo, *kit.Clock) {
	t.Helper()
	mem := newMem()
	clock := kit.NewClock(time.Date(2026, 5, 4, 23, 30, 0, 0, time.UTC))
	cfg.AccountID = "acct"
	cfg.Now = clock.Now
	return New(&storetest.Tx{}, repokit.BindFunc[repo.Repo](func(repokit.Queryer) repo.Repo { return mem }), cfg), mem, clock
}

func reply(target, author string, texts ...string) dom.ReplyCheck {
	return dom.ReplyCheck{TargetID: target, AuthorHandle: author, Texts: texts}
}

func TestNewPanicsWithoutDB(t *testing.T) {
	t.Parallel()
	kit.MustPanic(t, func() { New(nil, nil, Config{}) })
}

func TestDedupAfterRecord(t *testing.T) {
	t.Parallel()
	g, _, _ := newGuard(t, Config{})
	ctx := context.Background()

	d, err := g.CanReplyTo(ctx, reply("101", "alice"))
	if err != nil || !d.Allowed {
		t.Fatalf("first check = %+v, %v", d, err)
	}
	if err := g.RecordReply(ctx, nil, dom.ReplyRecord{TargetID: "101", AuthorHandle: "@Alice", Content: "hi"}); err != nil {
		t.Fatalf("RecordReply: %v", err)
	}
	d, _ = g.CanReplyTo(ctx, reply("101", "alice"))
	if d.Allowed || d.Reason != dom.ReasonAlreadyReplied {
		t.Fatalf("after record = %+v", d)
	}
	if ok, _ := g.IsReplied(ctx, "101"); !ok {
		t.Fatalf("IsReplied should be true")
	}
	if !perr.IsCode(d.Err(), perr.ErrorCodePolicyDenied) {
		t.Fatalf("Decision.Err code = %v", perr.CodeOf(d.Err()))
	}
}

func TestReplyCaps(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		cfg    Config
		record []string
		author string
		want   dom.Reason
	}{
		{"author daily cap", Config{AuthorDaily: 2}, []string{"1", "2"}, "ALICE", dom.ReasonAuthorDailyCap},
		{"author cap other author ok", Config{AuthorDaily: 2}, []string{"1", "2"}, "bob", ""},
		{"daily cap", Config{DailyReplies: 3}, []string{"1", "2", "3"}, "bob", dom.ReasonDailyReplyCap},
		{"hourly cap", Config{HourlyReplies: 1, DailyReplies: 10}, []string{"1"}, "bob", dom.ReasonHourlyReplyCap},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			g, _, _ := newGuard(t, c.cfg)
			ctx := context.Background()
			for _, id := range c.record {
				if err := g.RecordReply(ctx, nil, dom.ReplyRecord{TargetID: id, AuthorHandle: "alice"}); err != nil {
					t.Fatalf("RecordReply: %v", err)
				}
			}
			d, err := g.CanReplyTo(ctx, reply("999", c.author))
			if err != nil {
				t.Fatalf("CanReplyTo: %v", err)
			}
			if d.Reason != c.want || d.Allowed != (c.want == "") {
				t.Fatalf("decision = %+v, want reason %q", d, c.want)
			}
		})
	}
}

func TestWindowsRollOverAtUTCBoundaries(t *testing.T) {
	t.Parallel()
	g, _, clock := newGuard(t, Config{DailyReplies: 1, HourlyReplies: 1})
	ctx := context.Background()

	if err := g.RecordReply(ctx, nil, dom.ReplyRecord{TargetID: "1"}); err != nil {
		t.Fatal(err)
	}
	if d, _ := g.CanReplyTo(ctx, reply("2", "")); d.Allowed {
		t.Fatalf("cap should hold within the window")
	}
	clock.Advance(30 * time.Minute)
	if d, _ := g.CanReplyTo(ctx, reply("2", "")); !d.Allowed {
		t.Fatalf("new UTC day should reset caps, got %+v", d)
	}
}

func TestBannedPhrase(t *testing.T) {
	t.Parallel()
	g, _, _ := newGuard(t, Config{Banned: []string{"link in bio"}, BannedLeet: true})
	ctx := context.Background()

	d, _ := g.CanReplyTo(ctx, reply("5", "x", "great point", "L1NK in b10 for more"))
	if d.Allowed || d.Reason != dom.ReasonBannedPhrase || d.Detail != "link in bio" {
		t.Fatalf("decision = %+v", d)
	}
	if d, _ := g.CanPostTweet(ctx, "see link in bio"); d.Reason != dom.ReasonBannedPhrase {
		t.Fatalf("tweet decision = %+v", d)
	}
}

func TestTweetAndThreadCaps(t *testing.T) {
	t.Parallel()
	g, _, _ := newGuard(t, Config{DailyTweets: 1, DailyThreads: 1})
	ctx := context.Background()

	if d, _ := g.CanPostTweet(ctx, ""); !d.Allowed {
		t.Fatalf("coarse tweet check = %+v", d)
	}
	if err := g.RecordPost(ctx, nil, dom.PostRecord{Kind: dom.PostTweet, Content: "hello"}); err != nil {
		t.Fatal(err)
	}
	if d, _ := g.CanPostTweet(ctx, ""); d.Reason != dom.ReasonDailyTweetCap {
		t.Fatalf("tweet cap = %+v", d)
	}
	if d, _ := g.CanPostThread(ctx, nil); !d.Allowed {
		t.Fatalf("threads counted separately, got %+v", d)
	}
	if err := g.RecordPost(ctx, nil, dom.PostRecord{Kind: dom.PostThread, Content: "a\nb"}); err != nil {
		t.Fatal(err)
	}
	if d, _ := g.CanPostThread(ctx, []string{"x"}); d.Reason != dom.ReasonDailyThreadCap {
		t.Fatalf("thread cap = %+v", d)
	}
	if err := g.RecordPost(ctx, nil, dom.PostRecord{Kind: "story"}); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("unknown kind err = %v", err)
	}
}

func TestProductRatio(t *testing.T) {
	t.Parallel()
	g, _, _ := newGuard(t, Config{ProductWindow: 5, ProductMaxRatio: 0.4, ProductKeywords: []string{"murmur pro"}})
	ctx := context.Background()

	promo := "try Murmur Pro today"
	if d, _ := g.CanPostTweet(ctx, promo); !d.Allowed {
		t.Fatalf("first promo = %+v", d)
	}
	_ = g.RecordPost(ctx, nil, dom.PostRecord{Kind: dom.PostTweet, Content: promo})
	if d, _ := g.CanPostTweet(ctx, promo); !d.Allowed {
		t.Fatalf("second promo (2/5) = %+v", d)
	}
	_ = g.RecordPost(ctx, nil, dom.PostRecord{Kind: dom.PostTweet, Content: promo})
	if d, _ := g.CanPostTweet(ctx, promo); d.Reason != dom.ReasonProductRatio {
		t.Fatalf("third promo (3/5) = %+v", d)
	}
	if d, _ := g.CanPostTweet(ctx, "organic thoughts"); !d.Allowed {
		t.Fatalf("organic post must pass the ratio, got %+v", d)
	}
	if d, _ := g.CanPostTweet(ctx, ""); !d.Allowed {
		t.Fatalf("coarse check skips the ratio, got %+v", d)
	}

	for range 3 {
		_ = g.RecordPost(ctx, nil, dom.PostRecord{Kind: dom.PostTweet, Content: "organic"})
	}
	if d, _ := g.CanPostTweet(ctx, promo); !d.Allowed {
		t.Fatalf("promos slid out of the window, got %+v", d)
	}

	u, err := g.Usage(ctx)
	if err != nil || u.TweetsToday != 5 || u.RecentPosts != 5 || u.RecentPromoed != 2 {
		t.Fatalf("Usage = %+v, %v", u, err)
	}
}

func TestStorageErrorsSurface(t *testing.T) {
	t.Parallel()
	g, mem, _ := newGuard(t, Config{})
	mem.err = perr.New(perr.ErrorCodeDB, "down")

	if _, err := g.CanReplyTo(context.Background(), reply("1", "a")); !perr.IsCode(err, perr.ErrorCodeDB) {
		t.Fatalf("err = %v", err)
	}
	if _, err := g.CanReplyTo(context.Background(), reply("", "a")); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("missing target err = %v", err)
	}
}

func TestRecordUsesCallerTransaction(t *testing.T) {
	t.Parallel()
	mem := newMem()
	tx := &storetest.Tx{}
	g := New(tx, repokit.BindFunc[repo.Repo](func(repokit.Queryer) repo.Repo { return mem }), Config{AccountID: "a"})

	err := tx.Tx(context.Background(), func(q repokit.Queryer) error {
		return g.RecordReply(context.Background(), q, dom.ReplyRecord{TargetID: "7"})
	})
	if err != nil {
		t.Fatal(err)
	}
	if tx.Commits() != 1 {
		t.Fatalf("record should not open its own tx inside the caller's, commits = %d", tx.Commits())
	}
	if !mem.replied["a|7"] {
		t.Fatalf("reply not recorded")
	}
}
