package domain

import (
	"context"
	"time"

	"murmur/internal/modkit/repokit"
)

// ActionLogPort appends to the action log. q binds the write to the
// caller's transaction, nil uses the service pool
type ActionLogPort interface {
	Append(ctx context.Context, q repokit.Queryer, e Entry) error
}

// ReporterPort is the read side consumed by health and report surfaces
type ReporterPort interface {
	ActionCountsSince(ctx context.Context, since time.Time) (Counts, error)
	UsageSince(ctx context.Context, since time.Time) ([]UsageTotal, error)
}

// AccountantPort records generation usage without blocking the caller
type AccountantPort interface {
	RecordUsage(ctx context.Context, u Usage, purpose string)
}
