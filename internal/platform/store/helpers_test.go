package store

import (
	"context"
	"errors"
	"testing"

	perr "murmur/internal/platform/errors"
)

type fakeTag int64

func (f fakeTag) String() string      { return "UPDATE" }
func (f fakeTag) RowsAffected() int64 { return int64(f) }

type fakeRows struct {
	data [][]any
	i    int
	err  error
}

func (r *fakeRows) Next() bool {
	if r.i >= len(r.data) {
		return false
	}
	r.i++
	return true
}

func (r *fakeRows) Scan(dst ...any) error {
	row := r.data[r.i-1]
	for i := range dst {
		switch p := dst[i].(type) {
		case *string:
			*p = row[i].(string)
		case *int:
			*p = row[i].(int)
		}
	}
	return nil
}

func (r *fakeRows) Err() error        { return r.err }
func (r *fakeRows) Close()            {}
func (r *fakeRows) Columns() []string { return []string{"a", "b"} }

type fakeQ struct {
	tag  fakeTag
	rows [][]any
	err  error
}

func (f *fakeQ) Exec(context.Context, string, ...any) (CommandTag, error) { return f.tag, f.err }
func (f *fakeQ) Query(context.Context, string, ...any) (Rows, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &fakeRows{data: f.rows}, nil
}
func (f *fakeQ) QueryRow(context.Context, string, ...any) Row {
	return &oneRow{rows: &fakeRows{data: f.rows}}
}

type oneRow struct{ rows *fakeRows }

func (o *oneRow) Scan(dst ...any) error {
	if !o.rows.Next() {
		return perr.ErrNotFound
	}
	return o.rows.Scan(dst...)
}

func scanPair(r Row) (string, error) {
	var a string
	var b int
	if err := r.Scan(&a, &b); err != nil {
		return "", err
	}
	return a, nil
}

func TestExecOne(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	if err := ExecOne(ctx, &fakeQ{tag: 1}, "UPDATE x"); err != nil {
		t.Fatalf("ExecOne(1) = %v", err)
	}
	if err := ExecOne(ctx, &fakeQ{tag: 0}, "UPDATE x"); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("ExecOne(0) = %v, want not found", err)
	}
	if err := ExecOne(ctx, &fakeQ{tag: 2}, "UPDATE x"); err == nil {
		t.Fatalf("ExecOne(2) should fail")
	}
	boom := errors.New("boom")
	if err := ExecOne(ctx, &fakeQ{err: boom}, "UPDATE x"); !errors.Is(err, boom) {
		t.Fatalf("ExecOne err = %v", err)
	}
}

func TestOneAndMany(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	q := &fakeQ{rows: [][]any{{"a", 1}, {"b", 2}}}
	got, err := Many(ctx, q, scanPair, "SELECT")
	if err != nil || len(got) != 2 || got[1] != "b" {
		t.Fatalf("Many = %v, %v", got, err)
	}
	if _, err := One(ctx, q, scanPair, "SELECT"); err == nil {
		t.Fatalf("One should reject more than one row")
	}
	if _, err := One(ctx, &fakeQ{}, scanPair, "SELECT"); !errors.Is(err, perr.ErrNotFound) {
		t.Fatalf("One on empty = %v", err)
	}
	v, err := One(ctx, &fakeQ{rows: [][]any{{"only", 3}}}, scanPair, "SELECT")
	if err != nil || v != "only" {
		t.Fatalf("One = %q, %v", v, err)
	}
}

func TestScalar(t *testing.T) {
	t.Parallel()
	n, err := Scalar[string](context.Background(), &fakeQ{rows: [][]any{{"v"}}}, "SELECT")
	if err != nil || n != "v" {
		t.Fatalf("Scalar = %q, %v", n, err)
	}
}
