// Package http exposes the safety guard's window usage
package http

import (
	stdhttp "net/http"

	"murmur/internal/modkit/httpkit"
	"murmur/internal/services/safety/domain"
)

// Register mounts safety endpoints
func Register(r httpkit.Router, usage domain.UsagePort) {
	h := &handlers{usage: usage}

	// counters of the current day and hour windows
	httpkit.Get(r, "/usage", h.get)
}

type handlers struct{ usage domain.UsagePort }

// swagger:route GET /safety/usage Safety safetyUsage
// @Summary Counters of the current safety windows
// @Tags Safety
// @Produce json
// @Success 200 {object} domain.Usage "ok"
// @Router /safety/usage [get]
func (h *handlers) get(r *stdhttp.Request) (any, error) {
	return h.usage.Usage(r.Context())
}
