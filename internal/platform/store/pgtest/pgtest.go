//go:build integration_pg

// Package pgtest boots a disposable migrated postgres for integration tests
package pgtest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"murmur/internal/platform/store"
	"murmur/internal/platform/store/migrate"

	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Start launches postgres:16-alpine, applies the embedded schema and
// returns the sql seam; the container is removed on test cleanup
func Start(t *testing.T) store.TxRunner {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	t.Cleanup(cancel)

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "postgres",
				"POSTGRES_DB":       "murmur",
			},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("5432/tcp"),
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			).WithDeadline(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	mp, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://postgres:postgres@%s:%s/murmur?sslmode=disable", host, mp.Port())

	s, err := store.Open(ctx, store.Config{
		AppName: "murmur-test",
		PG:      store.PGConfig{Enabled: true, URL: dsn, MaxConns: 4, TxRetries: 3},
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })

	if _, err := migrate.Up(ctx, s.PG); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s.PG
}
