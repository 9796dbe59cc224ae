// Package domain holds the posting queue types and ports
package domain

import (
	"strings"
	"time"
)

// Kind is the platform write an action performs
type Kind string

// Action kinds
const (
	KindReply  Kind = "reply"
	KindTweet  Kind = "tweet"
	KindThread Kind = "thread"
)

// Valid reports whether k is a known kind
func (k Kind) Valid() bool { return k == KindReply || k == KindTweet || k == KindThread }

// Action is one outbound write request
type Action struct {
	Kind           Kind
	Text           string
	Parts          []string
	TargetID       string
	TargetAuthor   string
	Media          []string
	IdempotencyKey string

	// Source names the producer: a loop name or approval:<id>
	Source string

	// Score is carried into the action log for replies
	Score float64
}

// Texts returns the texts the action publishes, one per post
func (a Action) Texts() []string {
	if a.Kind == KindThread {
		return a.Parts
	}
	return []string{a.Text}
}

// Content is the single string recorded for the action
func (a Action) Content() string {
	return strings.Join(a.Texts(), "\n\n")
}

// Result is what the actor answers
type Result struct {
	// PostID is the created post, the head of the chain for threads
	PostID  string   `json:"post_id"`
	PostIDs []string `json:"post_ids,omitempty"`

	// Duplicate is true when the idempotency key was already published
	Duplicate bool `json:"duplicate"`
}

// Record is the persisted idempotency entry
type Record struct {
	Key       string
	Kind      Kind
	PostID    string
	PostIDs   []string
	CreatedAt time.Time
}
