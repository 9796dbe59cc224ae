// Package storetest provides in-process store fakes for service unit tests
package storetest

import (
	"context"
	"errors"
	"sync"

	"murmur/internal/platform/store"
)

// ErrNoSQL is returned when code under test issues raw SQL against the fake
var ErrNoSQL = errors.New("storetest: raw sql is not supported by the fake")

// Tx is a TxRunner whose transactions run fn inline under one mutex. Repos
// used with it are in-memory fakes bound through a Binder that ignores the
// queryer, so Tx only provides serialization and commit or rollback accounting
type Tx struct {
	mu sync.Mutex

	// Fail makes the next Tx return this error without running fn
	Fail error

	commits   int
	rollbacks int
}

var _ store.TxRunner = (*Tx)(nil)

// Tx runs fn while holding the fake's lock
func (t *Tx) Tx(ctx context.Context, fn func(q store.RowQuerier) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Fail != nil {
		err := t.Fail
		t.Fail = nil
		t.rollbacks++
		return err
	}
	if err := ctx.Err(); err != nil {
		t.rollbacks++
		return err
	}
	if err := fn(t); err != nil {
		t.rollbacks++
		return err
	}
	t.commits++
	return nil
}

// Commits reports successful transactions
func (t *Tx) Commits() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.commits
}

// Rollbacks reports failed transactions
func (t *Tx) Rollbacks() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rollbacks
}

// Exec always fails
func (t *Tx) Exec(context.Context, string, ...any) (store.CommandTag, error) {
	return nil, ErrNoSQL
}

// Query always fails
func (t *Tx) Query(context.Context, string, ...any) (store.Rows, error) {
	return nil, ErrNoSQL
}

// QueryRow returns a row whose Scan fails
func (t *Tx) QueryRow(context.Context, string, ...any) store.Row { return errRow{} }

type errRow struct{}

func (errRow) Scan(...any) error { return ErrNoSQL }
