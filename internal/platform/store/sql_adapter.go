package store

import (
	"context"
	"errors"
	"time"

	perr "murmur/internal/platform/errors"
	"murmur/internal/platform/store/pg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgAdapter wraps pg.PG and implements RowQuerier + TxRunner
// it also emits query trace events when a tracer is configured on pg.PG
type pgAdapter struct {
	p         *pg.PG
	txRetries int
}

func newPGAdapter(p *pg.PG, txRetries int) *pgAdapter {
	if txRetries < 0 {
		txRetries = 0
	}
	return &pgAdapter{p: p, txRetries: txRetries}
}

func (a *pgAdapter) Ping(ctx context.Context) error {
	if a == nil {
		return errors.New("pg: nil adapter")
	}
	var one int
	return a.QueryRow(ctx, "SELECT 1").Scan(&one)
}

func (a *pgAdapter) Close() error { a.p.Close(); return nil }

func (a *pgAdapter) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	start := time.Now()
	ct, err := a.p.Pool.Exec(ctx, sql, args...)
	emit(ctx, a.p.Tracer, a.p.SlowMs, sql, args, start, err)
	return tag{ct}, err
}

func (a *pgAdapter) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	start := time.Now()
	rs, err := a.p.Pool.Query(ctx, sql, args...)
	emit(ctx, a.p.Tracer, a.p.SlowMs, sql, args, start, err)
	if err != nil {
		return nil, err
	}
	return rows{r: rs}, nil
}

func (a *pgAdapter) QueryRow(ctx context.Context, sql string, args ...any) Row {
	start := time.Now()
	r := a.p.Pool.QueryRow(ctx, sql, args...)
	return row{
		r: r,
		after: func(scanErr error) {
			emit(ctx, a.p.Tracer, a.p.SlowMs, sql, args, start, scanErr)
		},
	}
}

// Tx runs fn in a transaction and reruns it on serialization or deadlock failures
// fn must be safe to call more than once
func (a *pgAdapter) Tx(ctx context.Context, fn func(q RowQuerier) error) error {
	var err error
	for attempt := 0; attempt <= a.txRetries; attempt++ {
		err = a.txOnce(ctx, fn)
		if err == nil || !perr.IsRetryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
	}
	return err
}

func (a *pgAdapter) txOnce(ctx context.Context, fn func(q RowQuerier) error) error {
	tx, err := a.p.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	q := txQuerier{tx: tx, tracer: a.p.Tracer, slowMs: a.p.SlowMs}
	if err := fn(q); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// emit sends a query event to the configured tracer
func emit(ctx context.Context, tr pg.QueryTracer, slowMs int, sql string, args []any, start time.Time, err error) {
	if tr == nil {
		return
	}
	elapsedUS := time.Since(start).Microseconds()
	tr.OnQuery(ctx, pg.QueryEvent{
		SQL:       sql,
		Args:      args,
		ElapsedUS: elapsedUS,
		Err:       err,
		Slow:      slowMs >= 0 && elapsedUS >= int64(slowMs)*1000,
	})
}

// adapters for pgx to our tiny Row/Rows/CommandTag

type row struct {
	r     pgx.Row
	after func(error)
}

func (x row) Scan(dst ...any) error {
	err := x.r.Scan(dst...)
	if x.after != nil {
		x.after(err)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return perr.Wrap(err, perr.ErrorCodeNotFound, "not found")
	}
	return err
}

type rows struct{ r pgx.Rows }

func (x rows) Next() bool            { return x.r.Next() }
func (x rows) Scan(dst ...any) error { return x.r.Scan(dst...) }
func (x rows) Err() error            { return x.r.Err() }
func (x rows) Close()                { x.r.Close() }
func (x rows) Columns() []string {
	f := x.r.FieldDescriptions()
	out := make([]string, len(f))
	for i := range f {
		out[i] = f[i].Name
	}
	return out
}

type tag struct{ t pgconn.CommandTag }

func (t tag) String() string      { return t.t.String() }
func (t tag) RowsAffected() int64 { return t.t.RowsAffected() }

// txQuerier uses pgx.Tx to satisfy RowQuerier inside a Tx
type txQuerier struct {
	tx     pgx.Tx
	tracer pg.QueryTracer
	slowMs int
}

func (t txQuerier) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	start := time.Now()
	ct, err := t.tx.Exec(ctx, sql, args...)
	emit(ctx, t.tracer, t.slowMs, sql, args, start, err)
	return tag{ct}, err
}

func (t txQuerier) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	start := time.Now()
	rs, err := t.tx.Query(ctx, sql, args...)
	emit(ctx, t.tracer, t.slowMs, sql, args, start, err)
	if err != nil {
		return nil, err
	}
	return rows{r: rs}, nil
}

func (t txQuerier) QueryRow(ctx context.Context, sql string, args ...any) Row {
	start := time.Now()
	r := t.tx.QueryRow(ctx, sql, args...)
	return row{
		r: r,
		after: func(scanErr error) {
			emit(ctx, t.tracer, t.slowMs, sql, args, start, scanErr)
		},
	}
}
