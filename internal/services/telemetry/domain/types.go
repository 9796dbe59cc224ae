// Package domain holds the telemetry read model types and ports
package domain

import "time"

// ActionKind is the kind of an action log row
type ActionKind string

// Action kinds
const (
	ActionScored       ActionKind = "scored"
	ActionReplied      ActionKind = "replied"
	ActionPosted       ActionKind = "posted"
	ActionThreadPosted ActionKind = "thread_posted"
)

// Valid reports whether k is a known kind
func (k ActionKind) Valid() bool {
	switch k {
	case ActionScored, ActionReplied, ActionPosted, ActionThreadPosted:
		return true
	}
	return false
}

// Entry is one action log row
type Entry struct {
	Kind     ActionKind `json:"kind"`
	TargetID string     `json:"target_id,omitempty"`
	PostID   string     `json:"post_id,omitempty"`
	Source   string     `json:"source,omitempty"`
	Score    float64    `json:"score"`
	Meets    bool       `json:"meets"`
	At       time.Time  `json:"at"`
}

// Counts aggregates the action log since a point in time
type Counts struct {
	Since         time.Time `json:"since"`
	Scored        int       `json:"scored"`
	Replied       int       `json:"replied"`
	Posted        int       `json:"posted"`
	ThreadsPosted int       `json:"threads_posted"`
}

// Usage is the generation cost metadata of one call
type Usage struct {
	Provider         string `json:"provider"`
	Model            string `json:"model"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
}

// UsageTotal sums usage per provider and model
type UsageTotal struct {
	Provider         string `json:"provider"`
	Model            string `json:"model"`
	Calls            int    `json:"calls"`
	PromptTokens     int64  `json:"prompt_tokens"`
	CompletionTokens int64  `json:"completion_tokens"`
}
