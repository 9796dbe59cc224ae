package llm

import (
	"time"

	"murmur/internal/platform/config"
)

// FromConfig reads LLM_
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("LLM_")
	return Options{
		BaseURL:     c.MayString("BASE_URL", baseURLDefault),
		APIKey:      c.MayString("API_KEY", ""),
		Provider:    c.MayString("PROVIDER", "openai"),
		Model:       c.MayString("MODEL", "gpt-4o-mini"),
		Persona:     c.MayString("PERSONA", ""),
		MaxTokens:   c.MayInt("MAX_TOKENS", 400),
		Temperature: c.MayFloat64("TEMPERATURE", 0.7),
		ThreadParts: c.MayInt("THREAD_PARTS", 4),
		MaxChars:    c.MayInt("MAX_CHARS", 280),
		Timeout:     c.MayDuration("TIMEOUT", time.Minute),
		MaxRetries:  c.MayInt("MAX_RETRIES", 2),
		RetryBase:   c.MayDuration("RETRY_BASE", time.Second),
	}
}
