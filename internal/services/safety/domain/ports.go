package domain

import (
	"context"

	"murmur/internal/modkit/repokit"
)

// GuardPort answers gate questions without mutating state
type GuardPort interface {
	IsReplied(ctx context.Context, targetID string) (bool, error)
	CanReplyTo(ctx context.Context, in ReplyCheck) (Decision, error)
	CanPostTweet(ctx context.Context, text string) (Decision, error)
	CanPostThread(ctx context.Context, parts []string) (Decision, error)
}

// RecorderPort is the only writer of counters and dedup rows. q is the
// transaction the caller records in, nil means the guard's own pool
type RecorderPort interface {
	RecordReply(ctx context.Context, q repokit.Queryer, r ReplyRecord) error
	RecordPost(ctx context.Context, q repokit.Queryer, r PostRecord) error
}

// UsagePort reports current window usage
type UsagePort interface {
	Usage(ctx context.Context) (Usage, error)
}
