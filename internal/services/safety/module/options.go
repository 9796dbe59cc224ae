package module

import "murmur/internal/platform/config"

// Options configures the safety guard
type Options struct {
	DailyReplies    int
	HourlyReplies   int
	AuthorDaily     int
	DailyTweets     int
	DailyThreads    int
	ProductWindow   int
	ProductMaxRatio float64
	ProductKeywords []string
	Banned          []string
	BannedLeet      bool
}

// FromConfig reads SAFETY_*
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("SAFETY_")
	return Options{
		DailyReplies:    c.MayInt("DAILY_REPLIES", 40),
		HourlyReplies:   c.MayInt("HOURLY_REPLIES", 8),
		AuthorDaily:     c.MayInt("AUTHOR_DAILY", 1),
		DailyTweets:     c.MayInt("DAILY_TWEETS", 6),
		DailyThreads:    c.MayInt("DAILY_THREADS", 1),
		ProductWindow:   c.MayInt("PRODUCT_WINDOW", 10),
		ProductMaxRatio: c.MayFloat64("PRODUCT_MAX_RATIO", 0.2),
		ProductKeywords: c.MayCSV("PRODUCT_KEYWORDS", nil),
		Banned:          c.MayCSV("BANNED_PHRASES", nil),
		BannedLeet:      c.MayBool("BANNED_LEET", false),
	}
}
