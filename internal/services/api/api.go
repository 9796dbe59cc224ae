// Package api provides the HTTP API for the application
package api

import (
	"time"

	"murmur/internal/modkit"
	"murmur/internal/modkit/httpkit"
	"murmur/internal/modkit/swaggerkit"
	"murmur/internal/platform/config"
	"murmur/internal/platform/metrics"
	phttp "murmur/internal/platform/net/http"
	metamod "murmur/internal/services/api/meta/module"
	loops "murmur/internal/services/loops/domain"
)

// Options are the API options
type Options struct {
	Config config.Conf
	Deps   modkit.Deps

	// Modules mount behind the bearer token when one is configured
	Modules []modkit.Module

	// Loops feeds the readiness check; may be nil
	Loops loops.StatusPort

	EnableSwagger  bool
	EnableProfiler bool
	Token          string
	Operator       string
	CORSOrigins    []string
	Timeout        time.Duration
	SlowRequest    time.Duration
}

// FromConfig reads API_ settings
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("API_")
	return Options{
		Config:         cfg,
		EnableSwagger:  c.MayBool("SWAGGER", false),
		EnableProfiler: c.MayBool("PROFILER", false),
		Token:          c.MayString("TOKEN", ""),
		Operator:       c.MayString("OPERATOR", "operator"),
		CORSOrigins:    c.MayCSV("CORS_ORIGINS", nil),
		Timeout:        c.MayDuration("TIMEOUT", 30*time.Second),
		SlowRequest:    c.MayDuration("SLOW_REQUEST", time.Second),
	}
}

// Mount mounts the API service onto the given router
func Mount(r phttp.Router, opt Options) {
	r.Handle("/metrics", metrics.Handler())
	swaggerkit.Mount(r, opt.EnableSwagger)
	phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

	auth := httpkit.NewTokenPort(opt.Token, opt.Operator)
	if auth != nil {
		swaggerkit.Register(swaggerkit.RequireBearer("get", "post"))
		swaggerkit.Register(swaggerkit.Public("/meta"))
	}

	meta := metamod.New(opt.Deps, opt.Loops)
	stack := httpkit.CommonStack(httpkit.StackOptions{
		CORSOrigins: opt.CORSOrigins,
		Timeout:     opt.Timeout,
		SlowRequest: opt.SlowRequest,
	})

	httpkit.MountAPIV1(r, stack, func(api httpkit.Router) {
		meta.MountRoutes(api)
		httpkit.Protected(api, auth, func(pr httpkit.Router) {
			for _, m := range opt.Modules {
				m.MountRoutes(pr)
			}
		})
	})
}
