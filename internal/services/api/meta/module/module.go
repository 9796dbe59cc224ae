// Package module wires meta endpoints into the API using a tiny module
package module

import (
	"context"
	"time"

	"murmur/internal/modkit"
	"murmur/internal/modkit/httpkit"
	metahttp "murmur/internal/services/api/meta/http"
	loops "murmur/internal/services/loops/domain"

	"github.com/redis/go-redis/v9"
)

// Module implements the modkit.Module interface
type Module struct {
	built     modkit.Built
	deps      metahttp.Deps
	startedAt time.Time
}

// New constructs a meta module probing every configured store; status may be nil
func New(deps modkit.Deps, status loops.StatusPort, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("meta"),
		modkit.WithPrefix("/meta"),
	}, opts...)...)

	started := time.Now()
	return &Module{
		built:     b,
		startedAt: started,
		deps: metahttp.Deps{
			ServiceName: "murmur",
			StartedAt:   started,
			Checks: []metahttp.Check{
				{Name: "pg", Pinger: pinger(deps.PG)},
				{Name: "ch", Pinger: pinger(deps.CH)},
				{Name: "redis", Pinger: redisPinger(deps.RDS)},
			},
			Loops: status,
		},
	}
}

// pinger returns nil for absent or non pingable seams so /ready reports them skipped
func pinger(v any) metahttp.Pinger {
	if p, ok := v.(metahttp.Pinger); ok && p != nil {
		return p
	}
	return nil
}

type rdsPing struct{ c redis.UniversalClient }

func (p rdsPing) Ping(ctx context.Context) error { return p.c.Ping(ctx).Err() }

func redisPinger(c redis.UniversalClient) metahttp.Pinger {
	if c == nil {
		return nil
	}
	return rdsPing{c: c}
}

// MountRoutes implements the modkit.Module interface
func (m *Module) MountRoutes(r httpkit.Router) {
	m.built.Mount(r, func(rr httpkit.Router) {
		metahttp.Register(rr, m.deps)
	})
}

// Name implements the modkit.Module interface
func (m *Module) Name() string { return m.built.Name }

// Ports implements the modkit.Module interface
func (m *Module) Ports() any { return nil }
