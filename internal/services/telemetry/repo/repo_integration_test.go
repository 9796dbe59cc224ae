//go:build integration_pg

package repo_test

import (
	"context"
	"testing"
	"time"

	"murmur/internal/platform/store/pgtest"
	dom "murmur/internal/services/telemetry/domain"
	"murmur/internal/services/telemetry/repo"
)

func TestTelemetryRepoAgainstPostgres(t *testing.T) {
	db := pgtest.Start(t)
	r := repo.NewPG().Bind(db)
	ctx := context.Background()
	at := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	rows := []dom.Entry{
		{Kind: dom.ActionScored, TargetID: "100", Score: 55, Meets: true, At: at},
		{Kind: dom.ActionScored, TargetID: "101", Score: 12, At: at.Add(time.Minute)},
		{Kind: dom.ActionReplied, TargetID: "100", PostID: "900", At: at.Add(2 * time.Minute)},
		{Kind: dom.ActionThreadPosted, PostID: "901", At: at.Add(3 * time.Minute)},
		{Kind: dom.ActionScored, TargetID: "99", At: at.Add(-time.Hour)},
	}
	for _, e := range rows {
		if err := r.Append(ctx, "a", e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if err := r.Append(ctx, "b", dom.Entry{Kind: dom.ActionPosted, At: at}); err != nil {
		t.Fatalf("Append other account: %v", err)
	}

	c, err := r.CountsSince(ctx, "a", at)
	if err != nil {
		t.Fatalf("CountsSince: %v", err)
	}
	if c.Scored != 2 || c.Replied != 1 || c.Posted != 0 || c.ThreadsPosted != 1 {
		t.Fatalf("counts = %+v", c)
	}

	for range 2 {
		if err := r.InsertUsage(ctx, "a", dom.Usage{Provider: "openai", Model: "m", PromptTokens: 10, CompletionTokens: 3}, "reply", at); err != nil {
			t.Fatalf("InsertUsage: %v", err)
		}
	}
	u, err := r.UsageSince(ctx, "a", at)
	if err != nil || len(u) != 1 || u[0].Calls != 2 || u[0].PromptTokens != 20 || u[0].CompletionTokens != 6 {
		t.Fatalf("UsageSince = %+v, %v", u, err)
	}
}
