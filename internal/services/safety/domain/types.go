// Package domain holds the safety guard types and ports
package domain

import (
	"errors"

	perr "murmur/internal/platform/errors"
)

// Reason names why an action was refused
type Reason string

// Denial reasons
const (
	ReasonAlreadyReplied Reason = "already_replied"
	ReasonAuthorDailyCap Reason = "author_daily_cap"
	ReasonDailyReplyCap  Reason = "daily_reply_cap"
	ReasonHourlyReplyCap Reason = "hourly_reply_cap"
	ReasonBannedPhrase   Reason = "banned_phrase"
	ReasonDailyTweetCap  Reason = "daily_tweet_cap"
	ReasonDailyThreadCap Reason = "daily_thread_cap"
	ReasonProductRatio   Reason = "product_ratio"
)

// Lasting reports whether the refusal holds no matter when the action is
// retried. Cap and ratio refusals clear as windows roll over
func (r Reason) Lasting() bool { return r == ReasonAlreadyReplied || r == ReasonBannedPhrase }

// DeniedError carries the refusal reason behind a PolicyDenied error
type DeniedError struct {
	Reason Reason
	err    error
}

func (e *DeniedError) Error() string { return e.err.Error() }

// Unwrap exposes the PolicyDenied *perr.Error
func (e *DeniedError) Unwrap() error { return e.err }

// ReasonOf returns the refusal reason carried by err, empty when there is none
func ReasonOf(err error) Reason {
	var d *DeniedError
	if errors.As(err, &d) {
		return d.Reason
	}
	return ""
}

// Decision is the outcome of a gate check
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// Allow is the passing decision
func Allow() Decision { return Decision{Allowed: true} }

// Deny builds a refusal
func Deny(r Reason, detail string) Decision { return Decision{Reason: r, Detail: detail} }

// Err turns a refusal into a PolicyDenied error, nil when allowed
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	err := perr.PolicyDeniedf("safety: %s", d.Reason)
	if d.Detail != "" {
		err = perr.PolicyDeniedf("safety: %s (%s)", d.Reason, d.Detail)
	}
	return &DeniedError{Reason: d.Reason, err: err}
}

// ReplyCheck is the input of the reply gate. Empty Texts skips phrase checks
type ReplyCheck struct {
	TargetID     string
	AuthorHandle string
	Texts        []string
}

// PostKind is the kind of an original post
type PostKind string

// Post kinds counted by the guard
const (
	PostTweet  PostKind = "tweet"
	PostThread PostKind = "thread"
)

// ReplyRecord is written after a reply was published
type ReplyRecord struct {
	TargetID     string
	AuthorHandle string
	Content      string
}

// PostRecord is written after a tweet or thread was published
type PostRecord struct {
	Kind    PostKind
	Content string
}

// Usage summarises counters in the current windows
type Usage struct {
	RepliesToday  int `json:"replies_today"`
	RepliesHour   int `json:"replies_hour"`
	TweetsToday   int `json:"tweets_today"`
	ThreadsToday  int `json:"threads_today"`
	RecentPosts   int `json:"recent_posts"`
	RecentPromoed int `json:"recent_promotional"`
}
