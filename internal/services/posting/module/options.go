package module

import (
	"time"

	"murmur/internal/platform/config"
)

// Options configures the posting actor
type Options struct {
	Buffer        int
	WriteTimeout  time.Duration
	RecordTimeout time.Duration
	MinInterval   time.Duration
	Burst         int
	LockTimeout   time.Duration

	BreakerFailures int
	BreakerCooldown time.Duration
	BreakerTrials   int

	// DirectAPI mounts POST /posts; only meaningful in direct mode
	DirectAPI bool
}

// FromConfig reads POSTING_*
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("POSTING_")
	return Options{
		Buffer:          c.MayInt("BUFFER", 64),
		WriteTimeout:    c.MayDuration("WRITE_TIMEOUT", 30*time.Second),
		RecordTimeout:   c.MayDuration("RECORD_TIMEOUT", 10*time.Second),
		MinInterval:     c.MayDuration("MIN_INTERVAL", 20*time.Second),
		Burst:           c.MayInt("BURST", 1),
		LockTimeout:     c.MayDuration("LOCK_TIMEOUT", 2*time.Second),
		BreakerFailures: c.MayInt("BREAKER_FAILURES", 5),
		BreakerCooldown: c.MayDuration("BREAKER_COOLDOWN", 5*time.Minute),
		BreakerTrials:   c.MayInt("BREAKER_TRIALS", 1),
		DirectAPI:       c.MayBool("DIRECT_API", false),
	}
}
