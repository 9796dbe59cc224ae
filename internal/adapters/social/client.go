// Package social is the platform REST client behind the loop fetcher and the posting writer
package social

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"murmur/internal/adapters/rest"
	perr "murmur/internal/platform/errors"
	loops "murmur/internal/services/loops/domain"
	posting "murmur/internal/services/posting/domain"
)

const (
	baseURLDefault = "https://api.x.com"
	pageMin        = 10
	pageMax        = 100

	// pagesMax bounds how far back one fetch walks toward since_id
	pagesMax = 5

	tweetFields = "created_at,public_metrics,author_id"
	userFields  = "public_metrics,username"
)

// Options configures the Client
type Options struct {
	BaseURL string

	// BearerToken authorizes reads; UserToken authorizes writes and falls
	// back to BearerToken when empty
	BearerToken string
	UserToken   string

	Timeout    time.Duration
	MaxRetries int
	RetryBase  time.Duration
}

// Client implements the loop Fetcher and the posting Writer
type Client struct {
	read  *rest.Client
	write *rest.Client
}

var (
	_ loops.Fetcher      = (*Client)(nil)
	_ posting.WriterPort = (*Client)(nil)
)

// New builds a Client. Writes are never retried in process, a lost response
// could otherwise publish twice
func New(o Options) *Client {
	if o.BaseURL == "" {
		o.BaseURL = baseURLDefault
	}
	if o.UserToken == "" {
		o.UserToken = o.BearerToken
	}
	bearer := func(tok string) func(*http.Request) {
		return func(r *http.Request) {
			if tok != "" {
				r.Header.Set("Authorization", "Bearer "+tok)
			}
		}
	}
	return &Client{
		read: rest.New(rest.Options{
			Name: "social", BaseURL: o.BaseURL, Timeout: o.Timeout,
			MaxRetries: o.MaxRetries, RetryBase: o.RetryBase,
			Authorize: bearer(o.BearerToken),
		}),
		write: rest.New(rest.Options{
			Name: "social_write", BaseURL: o.BaseURL, Timeout: o.Timeout,
			Authorize: bearer(o.UserToken),
		}),
	}
}

// Search implements loops.Fetcher
func (c *Client) Search(ctx context.Context, query string, limit int, sinceID string) (loops.Page, error) {
	q := pageQuery(limit, sinceID)
	q.Set("query", query)
	return c.timeline(ctx, "/2/tweets/search/recent", q, "next_token", limit)
}

// MentionsSince implements loops.Fetcher
func (c *Client) MentionsSince(ctx context.Context, userID, sinceID string, limit int) (loops.Page, error) {
	return c.timeline(ctx, "/2/users/"+url.PathEscape(userID)+"/mentions", pageQuery(limit, sinceID), "pagination_token", limit)
}

// UserPostsSince implements loops.Fetcher. Replies and reposts are excluded
func (c *Client) UserPostsSince(ctx context.Context, userID, sinceID string, limit int) (loops.Page, error) {
	q := pageQuery(limit, sinceID)
	q.Set("exclude", "replies,retweets")
	return c.timeline(ctx, "/2/users/"+url.PathEscape(userID)+"/tweets", q, "pagination_token", limit)
}

// Post implements posting.WriterPort
func (c *Client) Post(ctx context.Context, text string, media []string) (string, error) {
	return c.create(ctx, createRequest{Text: text, Media: mediaOf(media)})
}

// Reply implements posting.WriterPort
func (c *Client) Reply(ctx context.Context, text, targetID string, media []string) (string, error) {
	if targetID == "" {
		return "", perr.InvalidArgf("social: reply needs a target id")
	}
	return c.create(ctx, createRequest{Text: text, Reply: &replyTarget{InReplyTo: targetID}, Media: mediaOf(media)})
}

func (c *Client) create(ctx context.Context, req createRequest) (string, error) {
	var out createResponse
	if err := c.write.Do(ctx, http.MethodPost, "/2/tweets", nil, req, &out); err != nil {
		return "", err
	}
	if out.Data.ID == "" {
		return "", perr.Newf(perr.ErrorCodeUnavailable, "social: create returned no id")
	}
	return out.Data.ID, nil
}

// timeline fetches newest first and returns the result oldest first, bounded
// to limit. With a since_id it follows the page token back toward since_id
// for at most pagesMax pages so a burst larger than one page is not skipped;
// NextCursor carries the token left unfollowed, empty once since_id is reached.
// Without a since_id only the newest page is read
func (c *Client) timeline(ctx context.Context, path string, q url.Values, tokenParam string, limit int) (loops.Page, error) {
	var tl timeline
	next := ""
	for pages := 0; pages < pagesMax; pages++ {
		if next != "" {
			q.Set(tokenParam, next)
		}
		var pg timeline
		if err := c.read.Do(ctx, http.MethodGet, path, q, nil, &pg); err != nil {
			return loops.Page{}, err
		}
		tl.Data = append(tl.Data, pg.Data...)
		tl.Includes.Users = append(tl.Includes.Users, pg.Includes.Users...)
		next = pg.Meta.NextToken
		if next == "" || q.Get("since_id") == "" {
			break
		}
	}
	tl.Meta.NextToken = next

	users := make(map[string]user, len(tl.Includes.Users))
	for _, u := range tl.Includes.Users {
		users[u.ID] = u
	}
	out := make([]loops.Candidate, 0, len(tl.Data))
	dup := make(map[string]struct{}, len(tl.Data))
	for _, t := range tl.Data {
		if _, ok := dup[t.ID]; ok {
			continue
		}
		dup[t.ID] = struct{}{}
		u := users[t.AuthorID]
		out = append(out, loops.Candidate{
			ID:              t.ID,
			Text:            t.Text,
			CreatedAt:       t.CreatedAt,
			AuthorID:        t.AuthorID,
			AuthorHandle:    u.Username,
			AuthorFollowers: u.PublicMetrics.Followers,
			Likes:           t.PublicMetrics.Likes,
			Retweets:        t.PublicMetrics.Retweets,
			Replies:         t.PublicMetrics.Replies,
		})
	}
	slices.SortFunc(out, func(a, b loops.Candidate) int {
		switch {
		case loops.IDGreater(a.ID, b.ID):
			return 1
		case loops.IDGreater(b.ID, a.ID):
			return -1
		}
		return 0
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return loops.Page{Candidates: out, NextCursor: tl.Meta.NextToken}, nil
}

// pageQuery clamps limit to the page window the platform accepts
func pageQuery(limit int, sinceID string) url.Values {
	q := url.Values{}
	q.Set("max_results", strconv.Itoa(min(max(limit, pageMin), pageMax)))
	q.Set("tweet.fields", tweetFields)
	q.Set("expansions", "author_id")
	q.Set("user.fields", userFields)
	if sinceID != "" {
		q.Set("since_id", sinceID)
	}
	return q
}

func mediaOf(ids []string) *mediaRef {
	if len(ids) == 0 {
		return nil
	}
	return &mediaRef{IDs: ids}
}
