package httpkit

import (
	"net/http"
	"strings"

	perrs "murmur/internal/platform/errors"
	pnet "murmur/internal/platform/net"
)

// Operator returns the authenticated operator from the request context
// when auth is disabled the X-Operator header is trusted as is
func Operator(r *http.Request) (string, error) {
	if op := pnet.Operator(r.Context()); op != "" {
		return op, nil
	}
	if op := strings.TrimSpace(r.Header.Get(OperatorHeader)); op != "" {
		return op, nil
	}
	return "", perrs.Unauthorizedf("missing operator")
}

// Bearer returns the raw bearer token from the Authorization header
func Bearer(r *http.Request) (string, error) {
	authz := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(authz) < len(prefix) || !strings.EqualFold(authz[:len(prefix)], prefix) {
		return "", perrs.Unauthorizedf("missing bearer token")
	}
	raw := strings.TrimSpace(authz[len(prefix):])
	if raw == "" {
		return "", perrs.Unauthorizedf("missing bearer token")
	}
	return raw, nil
}
