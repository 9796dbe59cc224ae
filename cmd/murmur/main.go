// @title         murmur API
// @version       0.1.0
// @description   Operator surface for the engagement agent: approvals, loop state, direct posting and telemetry

package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"murmur/internal/modkit"
	"murmur/internal/modkit/repokit"
	"murmur/internal/platform/config"
	"murmur/internal/platform/logger"
	"murmur/internal/platform/store"
	"murmur/internal/platform/store/migrate"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		fMode      = flag.String("mode", "run", "run | migrate | report")
		fSince     = flag.Duration("since", 24*time.Hour, "report window, e.g. 24h or 168h")
		fAgentMode = flag.String("agent-mode", "", "override AGENT_MODE: approval | direct")
		fNoHTTP    = flag.Bool("no-http", false, "run the loops and the actor without the HTTP surface")
		fSkipMig   = flag.Bool("skip-migrate", false, "do not apply migrations before run")
	)
	flag.Parse()

	lo := logger.FromEnv()
	if lo.Service == "" {
		lo.Service = "murmur"
	}
	logger.Init(lo)
	l := logger.Get()

	switch *fMode {
	case "run", "migrate", "report":
	default:
		l.Error().Str("mode", *fMode).Msg("unknown -mode; want run, migrate or report")
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := config.New()
	accountID := root.Prefix("AGENT_").MayString("ACCOUNT_ID", "default")
	ctx = logger.WithAccount(ctx, accountID)

	st, err := store.Open(ctx, store.FromConfig(root, "murmur"), store.WithLogger(*l))
	if err != nil {
		l.Error().Err(err).Msg("store.Open failed")
		return 1
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()
	if st.PG == nil {
		l.Error().Msg("SERVICE_PGSQL_URL is required")
		return 1
	}
	if err := repokit.Guard(ctx, st); err != nil {
		l.Error().Err(err).Msg("store not ready")
		return 1
	}

	deps := modkit.FromStore(st, root, accountID)

	switch *fMode {
	case "migrate":
		err = applyMigrations(ctx, st)
	case "report":
		var a *app
		if a, err = wire(deps, overrides{}); err == nil {
			err = report(ctx, a.tel.Reporter, a.safe.Usage, time.Now().Add(-*fSince), os.Stdout)
		}
	case "run":
		if !*fSkipMig {
			err = applyMigrations(ctx, st)
		}
		var a *app
		if err == nil {
			a, err = wire(deps, overrides{agentMode: *fAgentMode})
		}
		if err == nil {
			err = serve(ctx, root, deps, a, !*fNoHTTP)
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		l.Error().Err(err).Str("mode", *fMode).Msg("murmur stopped with error")
		return 1
	}
	return 0
}

func applyMigrations(ctx context.Context, st *store.Store) error {
	n, err := migrate.Up(ctx, st.PG)
	if err != nil {
		return err
	}
	logger.C(ctx).Info().Int("applied", n).Msg("migrations done")
	return nil
}
