package social

import (
	"time"

	"murmur/internal/platform/config"
)

// FromConfig reads SOCIAL_
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("SOCIAL_")
	return Options{
		BaseURL:     c.MayString("BASE_URL", baseURLDefault),
		BearerToken: c.MayString("BEARER_TOKEN", ""),
		UserToken:   c.MayString("USER_TOKEN", ""),
		Timeout:     c.MayDuration("TIMEOUT", 15*time.Second),
		MaxRetries:  c.MayInt("MAX_RETRIES", 3),
		RetryBase:   c.MayDuration("RETRY_BASE", 500*time.Millisecond),
	}
}
