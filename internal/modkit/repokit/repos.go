// Package repokit provides common types and helpers for repository implementations
package repokit

import (
	"context"

	"murmur/internal/platform/store"
)

// Queryer is the minimal read and write surface for SQL repos
type Queryer = store.RowQuerier

// TxRunner can execute a function inside a transaction
type TxRunner = store.TxRunner

// Row, Rows and CommandTag re-export the store result seams for repo code
type (
	Row        = store.Row
	Rows       = store.Rows
	CommandTag = store.CommandTag
)

// Binder binds a domain repo to the pool or to an open transaction
type Binder[T any] interface {
	Bind(Queryer) T
}

// BindFunc adapts a constructor into a Binder
type BindFunc[T any] func(Queryer) T

// Bind calls the underlying function
func (f BindFunc[T]) Bind(q Queryer) T { return f(q) }

// WithTx runs fn inside a transaction using the provided TxRunner
func WithTx(ctx context.Context, tx TxRunner, fn func(q Queryer) error) error {
	return tx.Tx(ctx, fn)
}
