package repokit

import (
	"context"
	"time"

	perr "murmur/internal/platform/errors"
)

type guarder interface {
	Guard(context.Context) error
}

// GuardTimeout is the ceiling applied when ctx carries no deadline
const GuardTimeout = 10 * time.Second

// Guard runs st.Guard once at startup and reports failures as Unavailable
func Guard(ctx context.Context, st guarder) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, GuardTimeout)
		defer cancel()
	}
	return perr.WrapIf(st.Guard(ctx), perr.ErrorCodeUnavailable, "dependency guard failed")
}
