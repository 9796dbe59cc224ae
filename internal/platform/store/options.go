package store

import (
	"errors"

	"murmur/internal/platform/logger"

	"github.com/redis/go-redis/v9"
)

// Option adjusts a Store before any backend is dialed
type Option func(*Store) error

// WithLogger routes backend warnings such as postgres readiness retries
// through log, tagged as the store component
func WithLogger(log logger.Logger) Option {
	return func(s *Store) error {
		s.Log = log.With().Str("component", "store").Logger()
		return nil
	}
}

// WithRedis hands the Store an already built redis client. Open then skips
// dialing SERVICE_REDIS_ADDR, and Close still closes the client
func WithRedis(rc redis.UniversalClient) Option {
	return func(s *Store) error {
		if rc == nil {
			return errors.New("store: nil redis client")
		}
		s.RDS = rc
		return nil
	}
}
