package social

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	perr "murmur/internal/platform/errors"
	loops "murmur/internal/services/loops/domain"
)

const mentionsPage = `{
  "data": [
    {"id": "1003", "text": "newest", "author_id": "u1", "created_at": "2026-03-02T10:00:00Z",
     "public_metrics": {"like_count": 4, "retweet_count": 1, "reply_count": 2}},
    {"id": "999", "text": "oldest", "author_id": "u2", "created_at": "2026-03-02T09:00:00Z",
     "public_metrics": {"like_count": 0, "retweet_count": 0, "reply_count": 0}},
    {"id": "1001", "text": "middle", "author_id": "u1", "created_at": "2026-03-02T09:30:00Z",
     "public_metrics": {"like_count": 1, "retweet_count": 0, "reply_count": 0}}
  ],
  "includes": {"users": [
    {"id": "u1", "username": "gopher", "public_metrics": {"followers_count": 1200}},
    {"id": "u2", "username": "rustacean", "public_metrics": {"followers_count": 30}}
  ]},
  "meta": {"newest_id": "1003", "result_count": 3, "next_token": "nt"}
}`

func TestMentionsSince_MapsAndOrders(t *testing.T) {
	t.Parallel()
	var seen atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer app" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("pagination_token") == "nt" {
			_, _ = w.Write([]byte(`{"meta": {"result_count": 0}}`))
			return
		}
		seen.Store(r.URL.Path + "?" + r.URL.RawQuery)
		_, _ = w.Write([]byte(mentionsPage))
	}))
	t.Cleanup(srv.Close)

	c := New(Options{BaseURL: srv.URL, BearerToken: "app", RetryBase: time.Millisecond})
	page, err := c.MentionsSince(context.Background(), "me", "998", 2)
	if err != nil {
		t.Fatalf("MentionsSince: %v", err)
	}

	var ids []string
	for _, cand := range page.Candidates {
		ids = append(ids, cand.ID)
	}
	if !slices.Equal(ids, []string{"999", "1001"}) {
		t.Fatalf("ids = %v", ids)
	}
	first := page.Candidates[0]
	if first.AuthorHandle != "rustacean" || first.AuthorFollowers != 30 || first.Text != "oldest" {
		t.Fatalf("candidate = %+v", first)
	}
	if page.Candidates[1].AuthorFollowers != 1200 || page.Candidates[1].Likes != 1 {
		t.Fatalf("candidate = %+v", page.Candidates[1])
	}
	if page.NextCursor != "" {
		t.Fatalf("next = %q, want exhausted", page.NextCursor)
	}

	q := seen.Load().(string)
	for _, want := range []string{"/2/users/me/mentions", "since_id=998", "max_results=10", "expansions=author_id"} {
		if !strings.Contains(q, want) {
			t.Fatalf("request %q lacks %q", q, want)
		}
	}
}

func TestTimeline_FollowsPagesBackToSince(t *testing.T) {
	t.Parallel()
	tweet := func(id string) string {
		return `{"id": "` + id + `", "text": "t` + id + `", "author_id": "u1", "created_at": "2026-03-02T10:00:00Z"}`
	}
	users := `"includes": {"users": [{"id": "u1", "username": "gopher"}]}`

	tests := []struct {
		name      string
		since     string
		param     string
		endless   bool
		wantCalls int32
		wantIDs   []string
		wantNext  string
	}{
		{
			name: "search walks next_token until exhausted", since: "100", param: "next_token",
			wantCalls: 3, wantIDs: []string{"101", "102", "103", "104", "105", "106"},
		},
		{
			name: "mentions walk pagination_token", since: "100", param: "pagination_token",
			wantCalls: 3, wantIDs: []string{"101", "102", "103", "104", "105", "106"},
		},
		{
			name: "no since reads only the newest page", since: "", param: "next_token",
			wantCalls: 1, wantIDs: []string{"105", "106"}, wantNext: "p1",
		},
		{
			name: "page cap leaves the cursor unfollowed", since: "100", param: "next_token", endless: true,
			wantCalls: pagesMax, wantIDs: []string{"101", "102", "103", "104", "105", "106"}, wantNext: "p5",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := calls.Add(1)
				tok := r.URL.Query().Get(tt.param)
				if want := map[int32]string{1: "", 2: "p1", 3: "p2"}[n]; n <= 3 && tok != want {
					w.WriteHeader(http.StatusBadRequest)
					return
				}
				if r.URL.Query().Get("since_id") != tt.since {
					w.WriteHeader(http.StatusBadRequest)
					return
				}
				switch {
				case n == 1:
					_, _ = w.Write([]byte(`{"data": [` + tweet("106") + `,` + tweet("105") + `],` + users + `, "meta": {"next_token": "p1"}}`))
				case n == 2:
					_, _ = w.Write([]byte(`{"data": [` + tweet("104") + `,` + tweet("103") + `],` + users + `, "meta": {"next_token": "p2"}}`))
				case n == 3 && !tt.endless:
					_, _ = w.Write([]byte(`{"data": [` + tweet("102") + `,` + tweet("101") + `],` + users + `, "meta": {}}`))
				case n == 3:
					_, _ = w.Write([]byte(`{"data": [` + tweet("102") + `,` + tweet("101") + `],` + users + `, "meta": {"next_token": "p3"}}`))
				default:
					_, _ = w.Write([]byte(`{"data": [` + tweet("101") + `], "meta": {"next_token": "p` + strconv.Itoa(int(n)) + `"}}`))
				}
			}))
			t.Cleanup(srv.Close)

			c := New(Options{BaseURL: srv.URL, RetryBase: time.Millisecond})
			var (
				page loops.Page
				err  error
			)
			if tt.param == "pagination_token" {
				page, err = c.MentionsSince(context.Background(), "me", tt.since, 50)
			} else {
				page, err = c.Search(context.Background(), "golang", 50, tt.since)
			}
			if err != nil {
				t.Fatalf("fetch: %v", err)
			}

			var ids []string
			for _, cand := range page.Candidates {
				ids = append(ids, cand.ID)
			}
			if !slices.Equal(ids, tt.wantIDs) {
				t.Fatalf("ids = %v, want %v", ids, tt.wantIDs)
			}
			if page.NextCursor != tt.wantNext {
				t.Fatalf("next = %q, want %q", page.NextCursor, tt.wantNext)
			}
			if got := calls.Load(); got != tt.wantCalls {
				t.Fatalf("calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestTimeline_PageErrorFailsTheFetch(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			_, _ = w.Write([]byte(`{"data": [{"id": "106", "text": "x", "author_id": "u1"}], "meta": {"next_token": "p1"}}`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	c := New(Options{BaseURL: srv.URL, RetryBase: time.Millisecond})
	_, err := c.UserPostsSince(context.Background(), "u9", "100", 20)
	if !perr.IsCode(err, perr.ErrorCodeUnauthorized) {
		t.Fatalf("err = %v, want unauthorized", err)
	}
}

func TestReply_UsesUserTokenAndTarget(t *testing.T) {
	t.Parallel()
	var body createRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/2/tweets" || r.Header.Get("Authorization") != "Bearer user" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"555","text":"x"}}`))
	}))
	t.Cleanup(srv.Close)

	c := New(Options{BaseURL: srv.URL, BearerToken: "app", UserToken: "user"})
	id, err := c.Reply(context.Background(), "thanks!", "42", []string{"m1"})
	if err != nil || id != "555" {
		t.Fatalf("id=%q err=%v", id, err)
	}
	if body.Text != "thanks!" || body.Reply == nil || body.Reply.InReplyTo != "42" || body.Media == nil || body.Media.IDs[0] != "m1" {
		t.Fatalf("body = %+v", body)
	}

	if _, err := c.Reply(context.Background(), "x", "", nil); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("missing target err = %v", err)
	}
}

func TestPost_ServerErrorIsNotRetried(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	c := New(Options{BaseURL: srv.URL, BearerToken: "t", MaxRetries: 5, RetryBase: time.Millisecond})
	_, err := c.Post(context.Background(), "hello", nil)
	if !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("err = %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("write retried: %d calls", calls.Load())
	}
}

func TestSearch_RateLimited(t *testing.T) {
	t.Parallel()
	reset := time.Now().Add(2 * time.Minute).Unix()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("x-rate-limit-remaining", "0")
		w.Header().Set("x-rate-limit-reset", strconv.FormatInt(reset, 10))
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	c := New(Options{BaseURL: srv.URL, BearerToken: "t"})
	_, err := c.Search(context.Background(), "golang", 20, "")
	if !perr.IsCode(err, perr.ErrorCodeTooManyRequests) {
		t.Fatalf("err = %v", err)
	}
	if ra := perr.RetryAfterOf(err); ra <= time.Minute || ra > 2*time.Minute {
		t.Fatalf("retry after = %s", ra)
	}
}
