package modkit

import (
	"net/http"

	"murmur/internal/modkit/httpkit"
	pstrings "murmur/internal/platform/strings"
)

// Built is a plain struct with the fields modules care about
type Built struct {
	Name   string
	Prefix string
	Mw     []func(http.Handler) http.Handler
	Ports  any
}

// Build applies Option funcs and returns a plain struct
// a non-empty prefix is normalised to a single leading slash
func Build(opts ...Option) Built {
	var c buildCfg
	for _, o := range opts {
		o(&c)
	}
	if c.prefix != "" {
		c.prefix = pstrings.MustPrefix(c.prefix)
	}
	return Built{
		Name:   c.name,
		Prefix: c.prefix,
		Mw:     append([]func(http.Handler) http.Handler(nil), c.mw...),
		Ports:  c.ports,
	}
}

// Mount registers fn under b.Prefix with b.Mw applied
func (b Built) Mount(r httpkit.Router, fn func(httpkit.Router)) {
	httpkit.MountUnder(r, b.Prefix, b.Mw, fn)
}
