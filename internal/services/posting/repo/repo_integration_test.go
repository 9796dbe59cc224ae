//go:build integration_pg

package repo_test

import (
	"context"
	"slices"
	"testing"
	"time"

	perr "murmur/internal/platform/errors"
	"murmur/internal/platform/store/pgtest"
	dom "murmur/internal/services/posting/domain"
	"murmur/internal/services/posting/repo"
)

func TestIdempotencyRepoAgainstPostgres(t *testing.T) {
	db := pgtest.Start(t)
	r := repo.NewPG().Bind(db)
	ctx := context.Background()
	at := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	if _, hit, err := r.Lookup(ctx, "a", "thread:go:1"); err != nil || hit {
		t.Fatalf("empty Lookup = %v, %v", hit, err)
	}
	rec := dom.Record{Key: "thread:go:1", Kind: dom.KindThread, PostID: "1", PostIDs: []string{"1", "2"}, CreatedAt: at}
	if err := r.Save(ctx, "a", rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := r.Save(ctx, "a", rec); !perr.IsCode(err, perr.ErrorCodeConflict) {
		t.Fatalf("duplicate Save = %v", err)
	}
	got, hit, err := r.Lookup(ctx, "a", "thread:go:1")
	if err != nil || !hit || got.PostID != "1" || !slices.Equal(got.PostIDs, rec.PostIDs) || got.Kind != dom.KindThread {
		t.Fatalf("Lookup = %+v, %v, %v", got, hit, err)
	}
	if _, hit, _ := r.Lookup(ctx, "b", "thread:go:1"); hit {
		t.Fatalf("keys must be per account")
	}
}
