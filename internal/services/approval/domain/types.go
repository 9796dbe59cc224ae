// Package domain holds the approval queue types and ports
package domain

import (
	"slices"
	"time"
)

// Kind is the action an item will perform once posted
type Kind string

// Item kinds
const (
	KindReply  Kind = "reply"
	KindTweet  Kind = "tweet"
	KindThread Kind = "thread"
)

// Valid reports whether k is a known kind
func (k Kind) Valid() bool { return k == KindReply || k == KindTweet || k == KindThread }

// Status is the review state
type Status string

// Review states
const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusPosted   Status = "posted"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusPosted:
		return true
	}
	return false
}

// CanMove reports whether from -> to is an allowed transition
func CanMove(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusApproved || to == StatusRejected
	case StatusApproved:
		return to == StatusPosted
	}
	return false
}

// Editable reports whether items in s accept field edits
func (s Status) Editable() bool { return s == StatusPending || s == StatusApproved }

// Field names an editable attribute
type Field string

// Editable fields plus the synthetic status field used by transition entries
const (
	FieldContent   Field = "content"
	FieldTopic     Field = "topic"
	FieldArchetype Field = "archetype"
	FieldNotes     Field = "notes"
	FieldStatus    Field = "status"
	FieldHold      Field = "hold"
)

// Editable reports whether f can be changed through Edit
func (f Field) Editable() bool {
	switch f {
	case FieldContent, FieldTopic, FieldArchetype, FieldNotes:
		return true
	}
	return false
}

// Risk flags attached to items
const (
	RiskBannedPhrase   = "banned_phrase"
	RiskProductMention = "product_mention"
	RiskContainsLink   = "contains_link"
	RiskOverLength     = "over_length"
	RiskLowScore       = "low_score"
	// RiskHeld keeps an approved item out of dispatch until its content is edited
	RiskHeld = "held"
)

// Item is a staged action awaiting review
type Item struct {
	ID           string     `json:"id"`
	Kind         Kind       `json:"kind"`
	TargetID     string     `json:"target_id,omitempty"`
	TargetAuthor string     `json:"target_author,omitempty"`
	Content      string     `json:"content"`
	Parts        []string   `json:"parts,omitempty"`
	Topic        string     `json:"topic,omitempty"`
	Archetype    string     `json:"archetype,omitempty"`
	Score        float64    `json:"score"`
	Status       Status     `json:"status"`
	Media        []string   `json:"media,omitempty"`
	Reviewer     string     `json:"reviewer,omitempty"`
	ReviewNotes  string     `json:"review_notes,omitempty"`
	RiskFlags    []string   `json:"risk_flags"`
	PostID       string     `json:"post_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	ReviewedAt   *time.Time `json:"reviewed_at,omitempty"`
	PostedAt     *time.Time `json:"posted_at,omitempty"`
}

// Held reports whether dispatch should skip the item
func (it Item) Held() bool { return slices.Contains(it.RiskFlags, RiskHeld) }

// Texts returns the publishable texts, one per post
func (it Item) Texts() []string {
	if it.Kind == KindThread && len(it.Parts) > 0 {
		return it.Parts
	}
	return []string{it.Content}
}

// Value returns the current value of an editable field
func (it Item) Value(f Field) string {
	switch f {
	case FieldContent:
		return it.Content
	case FieldTopic:
		return it.Topic
	case FieldArchetype:
		return it.Archetype
	case FieldNotes:
		return it.ReviewNotes
	case FieldStatus:
		return string(it.Status)
	}
	return ""
}

// Edit is one append only history entry
type Edit struct {
	ID         int64     `json:"id"`
	ApprovalID string    `json:"approval_id"`
	Editor     string    `json:"editor"`
	Field      Field     `json:"field"`
	OldValue   string    `json:"old_value"`
	NewValue   string    `json:"new_value"`
	CreatedAt  time.Time `json:"created_at"`
}

// EnqueueInput stages a new item
type EnqueueInput struct {
	Kind         Kind
	TargetID     string
	TargetAuthor string
	Content      string
	Parts        []string
	Topic        string
	Archetype    string
	Score        float64
	Media        []string
}
