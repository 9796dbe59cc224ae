// Package domain holds the loop engine types and ports
package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	perr "murmur/internal/platform/errors"
	telemetry "murmur/internal/services/telemetry/domain"
)

// Mode decides where generated actions go
type Mode string

// Modes
const (
	ModeDirect   Mode = "direct"
	ModeApproval Mode = "approval"
)

// Candidate is a fetched post evaluated for a reply. Never persisted
type Candidate struct {
	ID              string    `json:"id"`
	Text            string    `json:"text"`
	CreatedAt       time.Time `json:"created_at"`
	AuthorID        string    `json:"author_id"`
	AuthorHandle    string    `json:"author_handle"`
	AuthorFollowers int64     `json:"author_followers"`
	Likes           int64     `json:"likes"`
	Retweets        int64     `json:"retweets"`
	Replies         int64     `json:"replies"`
}

// Page is one fetch result in platform order
type Page struct {
	Candidates []Candidate
	NextCursor string
}

// Generation is generated text plus its cost metadata
type Generation struct {
	Texts []string
	Usage telemetry.Usage
}

// Text returns the first generated text
func (g Generation) Text() string {
	if len(g.Texts) == 0 {
		return ""
	}
	return g.Texts[0]
}

// ErrorKind classifies a loop failure
type ErrorKind string

// Error kinds
const (
	ErrTransient   ErrorKind = "transient"
	ErrRateLimited ErrorKind = "rate_limited"
	ErrAuth        ErrorKind = "auth"
	ErrOther       ErrorKind = "other"
)

// LoopError is a classified cycle failure
type LoopError struct {
	Kind       ErrorKind
	RetryAfter time.Duration
	Message    string
	Err        error
}

func (e *LoopError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s (retry after %s): %s", e.Kind, e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *LoopError) Unwrap() error { return e.Err }

// Classify maps err onto the loop error taxonomy
func Classify(err error) *LoopError {
	if err == nil {
		return nil
	}
	var le *LoopError
	if errors.As(err, &le) {
		return le
	}
	out := &LoopError{Kind: ErrOther, Message: err.Error(), Err: err}
	if errors.Is(err, context.DeadlineExceeded) {
		out.Kind = ErrTransient
		return out
	}
	switch perr.CodeOf(err) {
	case perr.ErrorCodeUnavailable, perr.ErrorCodeCircuitOpen:
		out.Kind = ErrTransient
	case perr.ErrorCodeTooManyRequests:
		out.Kind = ErrRateLimited
		out.RetryAfter = perr.RetryAfterOf(err)
	case perr.ErrorCodeUnauthorized, perr.ErrorCodeForbidden:
		out.Kind = ErrAuth
	case perr.ErrorCodeDB:
		if perr.IsRetryable(err) {
			out.Kind = ErrTransient
		}
	}
	return out
}

// Status is the health view of one loop
type Status struct {
	Name        string     `json:"name"`
	State       string     `json:"state"`
	Streak      int        `json:"streak"`
	Escalations int        `json:"escalations"`
	Interval    string     `json:"interval"`
	Cycles      int64      `json:"cycles"`
	Skipped     int64      `json:"skipped"`
	LastRun     *time.Time `json:"last_run,omitempty"`
	LastSuccess *time.Time `json:"last_success,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
}

// IDGreater reports whether snowflake id a sorts after b. Ids are decimal
// strings, so a longer id is larger and equal lengths compare bytewise
func IDGreater(a, b string) bool {
	if len(a) != len(b) {
		return len(a) > len(b)
	}
	return a > b
}
