// Package http exposes loop health
package http

import (
	stdhttp "net/http"

	"murmur/internal/modkit/httpkit"
	perr "murmur/internal/platform/errors"
	"murmur/internal/services/loops/domain"
)

// Register mounts the loop status routes
func Register(r httpkit.Router, s domain.StatusPort) {
	h := &handlers{s: s}
	httpkit.Get(r, "/", h.list)
	httpkit.Get(r, "/{name}", h.get)
}

type handlers struct{ s domain.StatusPort }

// swagger:route GET /loops Loops loopList
// @Summary State of every configured loop
// @Tags Loops
// @Produce json
// @Success 200 {array} domain.Status "ok"
// @Router /loops [get]
func (h *handlers) list(_ *stdhttp.Request) (any, error) {
	return h.s.Snapshot(), nil
}

// swagger:route GET /loops/{name} Loops loopGet
// @Summary State of one loop
// @Tags Loops
// @Produce json
// @Param name path string true "discovery, mentions, targets, content or dispatcher"
// @Success 200 {object} domain.Status "ok"
// @Router /loops/{name} [get]
func (h *handlers) get(r *stdhttp.Request) (any, error) {
	name := httpkit.Param(r, "name")
	for _, st := range h.s.Snapshot() {
		if st.Name == name {
			return st, nil
		}
	}
	return nil, perr.NotFoundf("loop %s is not configured", name)
}
