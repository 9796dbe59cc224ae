// Package migrate applies the embedded postgres schema in version order
package migrate

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	"murmur/internal/platform/logger"
	"murmur/internal/platform/store"
)

//go:embed sql/*.sql
var files embed.FS

// lockID serialises concurrent migrators through pg_advisory_xact_lock
const lockID = 0x6d75726d

// Step is one versioned schema file
type Step struct {
	Version int
	Name    string
	SQL     string
}

// Steps returns the embedded migrations sorted by version
func Steps() ([]Step, error) {
	return load(files)
}

func load(fsys fs.FS) ([]Step, error) {
	names, err := fs.Glob(fsys, "sql/*.sql")
	if err != nil {
		return nil, err
	}
	out := make([]Step, 0, len(names))
	for _, n := range names {
		base := strings.TrimPrefix(n, "sql/")
		num, _, ok := strings.Cut(base, "_")
		if !ok {
			return nil, fmt.Errorf("migrate: %s has no version prefix", base)
		}
		v, err := strconv.Atoi(num)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("migrate: bad version in %s", base)
		}
		body, err := fs.ReadFile(fsys, n)
		if err != nil {
			return nil, err
		}
		out = append(out, Step{Version: v, Name: base, SQL: string(body)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	for i := 1; i < len(out); i++ {
		if out[i].Version == out[i-1].Version {
			return nil, fmt.Errorf("migrate: duplicate version %d", out[i].Version)
		}
	}
	return out, nil
}

// Up applies every step newer than the recorded schema version
// each step runs in its own transaction together with its version row
func Up(ctx context.Context, db store.TxRunner) (int, error) {
	steps, err := Steps()
	if err != nil {
		return 0, err
	}
	return apply(ctx, db, steps)
}

func apply(ctx context.Context, db store.TxRunner, steps []Step) (int, error) {
	if db == nil {
		return 0, fmt.Errorf("migrate: db is nil")
	}
	if _, err := db.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		name       TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return 0, fmt.Errorf("migrate: create schema_migrations: %w", err)
	}

	log := logger.Named("migrate")
	applied := 0
	for _, s := range steps {
		err := db.Tx(ctx, func(q store.RowQuerier) error {
			if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, lockID); err != nil {
				return err
			}
			var current int
			if err := q.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
				return fmt.Errorf("read current version: %w", err)
			}
			if current >= s.Version {
				return nil
			}
			if _, err := q.Exec(ctx, s.SQL); err != nil {
				return fmt.Errorf("apply %s: %w", s.Name, err)
			}
			if _, err := q.Exec(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, s.Version, s.Name); err != nil {
				return fmt.Errorf("record %s: %w", s.Name, err)
			}
			applied++
			log.Info().Int("version", s.Version).Str("name", s.Name).Msg("migration applied")
			return nil
		})
		if err != nil {
			return applied, fmt.Errorf("migrate: %w", err)
		}
	}
	return applied, nil
}
