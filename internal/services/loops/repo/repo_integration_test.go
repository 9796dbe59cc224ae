//go:build integration_pg

package repo_test

import (
	"context"
	"testing"
	"time"

	"murmur/internal/platform/store/pgtest"
	"murmur/internal/services/loops/repo"
)

func TestCursorsOnlyMoveForward(t *testing.T) {
	db := pgtest.Start(t)
	r := repo.NewPG().Bind(db)
	ctx := context.Background()
	at := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	got, err := r.Get(ctx, "a", repo.ScopeMentions, "me")
	if err != nil || got != "" {
		t.Fatalf("empty Get = %q, %v", got, err)
	}

	steps := []struct {
		value string
		moved bool
		want  string
	}{
		{"100", true, "100"},
		{"99", false, "100"},
		{"103", true, "103"},
		{"103", false, "103"},
		{"1000", true, "1000"},
		{"999", false, "1000"},
	}
	for _, s := range steps {
		moved, err := r.Advance(ctx, "a", repo.ScopeMentions, "me", s.value, at)
		if err != nil {
			t.Fatalf("Advance(%s): %v", s.value, err)
		}
		if moved != s.moved {
			t.Fatalf("Advance(%s) moved = %v", s.value, moved)
		}
		if got, _ := r.Get(ctx, "a", repo.ScopeMentions, "me"); got != s.want {
			t.Fatalf("after %s cursor = %q, want %q", s.value, got, s.want)
		}
	}

	if got, _ := r.Get(ctx, "a", repo.ScopeSearch, "me"); got != "" {
		t.Fatalf("scopes must not share cursors, got %q", got)
	}
	if got, _ := r.Get(ctx, "b", repo.ScopeMentions, "me"); got != "" {
		t.Fatalf("accounts must not share cursors, got %q", got)
	}
}
