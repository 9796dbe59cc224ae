package main

import (
	"context"
	"time"

	"murmur/internal/modkit"
	"murmur/internal/platform/config"
	"murmur/internal/platform/logger"
	phttp "murmur/internal/platform/net/http"
	"murmur/internal/services/api"

	"golang.org/x/sync/errgroup"
)

// serve runs the posting actor, the loop engine and optionally the HTTP surface
// until ctx ends or one of them fails
func serve(ctx context.Context, root config.Conf, deps modkit.Deps, a *app, withHTTP bool) error {
	log := logger.C(ctx)

	if err := a.tel.Svc.EnsureMirror(ctx); err != nil {
		log.Warn().Err(err).Msg("telemetry mirror unavailable; continuing with postgres only")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.posting.Run(gctx) })
	g.Go(func() error {
		err := a.loops.Run(gctx)
		if err == nil && gctx.Err() == nil {
			// every loop halted; keep serving status until shutdown
			log.Warn().Msg("all loops stopped")
		}
		return err
	})

	if withHTTP {
		srv := phttp.NewServer(root)
		opts := api.FromConfig(root)
		opts.Deps = deps
		opts.Modules = a.modules()
		opts.Loops = a.loop.Status
		api.Mount(srv.Router(), opts)

		grace := root.Prefix("API_").MayDuration("SHUTDOWN_GRACE", 10*time.Second)
		g.Go(func() error { return srv.Run(gctx, grace) })
	}

	err := g.Wait()

	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if ferr := a.tel.Svc.Flush(fctx); ferr != nil {
		log.Warn().Err(ferr).Msg("telemetry flush incomplete")
	}
	return err
}
