package module

import (
	"time"

	"murmur/internal/platform/config"
)

// Options configures telemetry
type Options struct {
	// Mirror copies committed action rows to clickhouse when a client is configured
	Mirror       bool
	UsageTimeout time.Duration
}

// FromConfig reads TELEMETRY_*
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("TELEMETRY_")
	return Options{
		Mirror:       c.MayBool("CH_MIRROR", false),
		UsageTimeout: c.MayDuration("USAGE_TIMEOUT", 5*time.Second),
	}
}
