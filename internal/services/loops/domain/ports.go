package domain

import (
	"context"

	approval "murmur/internal/services/approval/domain"
)

// Fetcher reads candidate posts from the platform. Implementations bound
// the page to max and may return fewer
type Fetcher interface {
	Search(ctx context.Context, query string, max int, sinceID string) (Page, error)
	MentionsSince(ctx context.Context, userID, sinceID string, max int) (Page, error)
	UserPostsSince(ctx context.Context, userID, sinceID string, max int) (Page, error)
}

// Generator produces reply and content text
type Generator interface {
	GenerateReply(ctx context.Context, text, author string, mention bool) (Generation, error)
	GenerateTweet(ctx context.Context, topic string) (Generation, error)
	GenerateThread(ctx context.Context, topic string) (Generation, error)
}

// ApprovalQueue is the part of the approval queue the loops drive
type ApprovalQueue interface {
	Enqueue(ctx context.Context, in approval.EnqueueInput) (string, error)
	Dispatchable(ctx context.Context, after string, limit int) ([]approval.Item, error)
	MarkPosted(ctx context.Context, id, postID string) (approval.Item, error)
	Hold(ctx context.Context, id, reason string) (approval.Item, error)
}

// StatusPort reports loop health
type StatusPort interface {
	Snapshot() []Status
}
