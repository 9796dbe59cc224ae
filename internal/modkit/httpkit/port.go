package httpkit

import (
	"crypto/subtle"
	"net/http"
	"strings"

	perrs "murmur/internal/platform/errors"
	"murmur/internal/platform/net/middleware"
)

// OperatorHeader names the reviewer acting through a shared token
const OperatorHeader = "X-Operator"

// TokenPort implements middleware.AuthPort against one shared bearer token
type TokenPort struct {
	token           string
	defaultOperator string
}

// NewTokenPort builds a TokenPort; an empty token yields a nil port (auth disabled)
func NewTokenPort(token, defaultOperator string) middleware.AuthPort {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	if defaultOperator == "" {
		defaultOperator = "operator"
	}
	return &TokenPort{token: token, defaultOperator: defaultOperator}
}

// Parse checks the Authorization bearer token and returns the operator name
func (p *TokenPort) Parse(r *http.Request) (string, error) {
	raw, err := Bearer(r)
	if err != nil {
		return "", err
	}
	if subtle.ConstantTimeCompare([]byte(raw), []byte(p.token)) != 1 {
		return "", perrs.Unauthorizedf("invalid bearer token")
	}
	if op := strings.TrimSpace(r.Header.Get(OperatorHeader)); op != "" {
		return op, nil
	}
	return p.defaultOperator, nil
}
