// Package modkit provides module wiring and core deps
package modkit

import (
	"murmur/internal/modkit/repokit"
	"murmur/internal/platform/config"
	"murmur/internal/platform/logger"
	"murmur/internal/platform/store"

	"github.com/redis/go-redis/v9"
)

// Deps holds core dependencies passed to modules
// optional stores are nil when not configured
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
	PG  repokit.TxRunner
	CH  store.Clickhouse
	RDS redis.UniversalClient

	// AccountID scopes every persisted row to the agent account
	AccountID string
}

// FromStore builds Deps from an opened store
func FromStore(s *store.Store, cfg config.Conf, accountID string) Deps {
	return Deps{Log: s.Log, Cfg: cfg, PG: s.PG, CH: s.CH, RDS: s.RDS, AccountID: accountID}
}
