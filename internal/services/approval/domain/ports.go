package domain

import "context"

// QueuePort is the approval queue surface
type QueuePort interface {
	Enqueue(ctx context.Context, in EnqueueInput) (string, error)
	Approve(ctx context.Context, id, reviewer string) (Item, error)
	Reject(ctx context.Context, id, reviewer, notes string) (Item, error)
	Edit(ctx context.Context, id string, field Field, value, editor string) (Item, error)
	Get(ctx context.Context, id string) (Item, error)
	List(ctx context.Context, status Status, limit int) ([]Item, error)
	History(ctx context.Context, id string) ([]Edit, error)
}

// PostedPort is the dispatch side of the queue
type PostedPort interface {
	// Dispatchable lists approved items that are not held, oldest first,
	// starting after the item with id after. An empty after starts at the head
	Dispatchable(ctx context.Context, after string, limit int) ([]Item, error)
	MarkPosted(ctx context.Context, id, postID string) (Item, error)
	// Hold flags an approved item the guard will keep refusing
	Hold(ctx context.Context, id, reason string) (Item, error)
}
