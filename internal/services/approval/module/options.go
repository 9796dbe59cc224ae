package module

import (
	"murmur/internal/platform/config"
)

// Options configures the approval queue
type Options struct {
	LowScore        float64
	MaxLength       int
	ListLimit       int
	Banned          []string
	ProductKeywords []string
}

// FromConfig reads APPROVAL_* and shares the phrase lists with SAFETY_*
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("APPROVAL_")
	s := cfg.Prefix("SAFETY_")
	return Options{
		LowScore:        c.MayFloat64("LOW_SCORE", 50),
		MaxLength:       c.MayInt("MAX_LENGTH", 280),
		ListLimit:       c.MayInt("LIST_LIMIT", 100),
		Banned:          s.MayCSV("BANNED_PHRASES", nil),
		ProductKeywords: s.MayCSV("PRODUCT_KEYWORDS", nil),
	}
}
