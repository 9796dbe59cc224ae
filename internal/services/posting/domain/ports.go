package domain

import "context"

// SubmitPort hands an action to the posting actor and waits for its answer
type SubmitPort interface {
	Submit(ctx context.Context, a Action) (Result, error)
}

// WriterPort is the platform write side. Implementations classify failures
// with perr codes and return the created post id
type WriterPort interface {
	Post(ctx context.Context, text string, media []string) (string, error)
	Reply(ctx context.Context, text, targetID string, media []string) (string, error)
}
