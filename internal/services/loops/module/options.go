package module

import (
	"time"

	"murmur/internal/platform/config"
	"murmur/internal/services/loops/domain"
)

// Options configures the loop engine
type Options struct {
	UserID string
	Mode   domain.Mode

	Queries        []string
	TargetAccounts []string
	Topics         []string

	MaxResults      int
	CallTimeout     time.Duration
	GenerateTimeout time.Duration

	DiscoveryInterval time.Duration
	MentionsInterval  time.Duration
	TargetsInterval   time.Duration
	ContentInterval   time.Duration
	DispatchInterval  time.Duration

	ContentThreadEvery int
	DispatchBatch      int
	DispatchScan       int

	StreakThreshold int
	BackoffFactor   float64
	BackoffCap      float64
	MaxEscalations  int

	// Lease enables the redis single-runner lease when redis is configured
	Lease    bool
	LeaseTTL time.Duration

	// Score weights, read from SCORE_*
	Keywords          []string
	KeywordWeight     float64
	KeywordCap        float64
	EngagementWeight  float64
	EngagementTarget  float64
	FollowerWeight    float64
	RecencyWeight     float64
	RecencyHorizon    time.Duration
	Threshold         float64
	MinKeywordMatches int
}

// FromConfig reads AGENT_, LOOPS_ and SCORE_. Banned phrases come from SAFETY_
// so the scorer and the guard share one list
func FromConfig(cfg config.Conf) Options {
	a := cfg.Prefix("AGENT_")
	l := cfg.Prefix("LOOPS_")
	s := cfg.Prefix("SCORE_")
	return Options{
		UserID: a.MayString("USER_ID", ""),
		Mode:   domain.Mode(a.MayEnum("MODE", string(domain.ModeApproval), string(domain.ModeDirect), string(domain.ModeApproval))),

		Queries:        l.MayCSV("DISCOVERY_QUERIES", nil),
		TargetAccounts: l.MayCSV("TARGET_ACCOUNTS", nil),
		Topics:         l.MayCSV("CONTENT_TOPICS", nil),

		MaxResults:      l.MayInt("MAX_RESULTS", 20),
		CallTimeout:     l.MayDuration("CALL_TIMEOUT", 20*time.Second),
		GenerateTimeout: l.MayDuration("GENERATE_TIMEOUT", time.Minute),

		DiscoveryInterval: l.MayDuration("DISCOVERY_INTERVAL", 15*time.Minute),
		MentionsInterval:  l.MayDuration("MENTIONS_INTERVAL", 5*time.Minute),
		TargetsInterval:   l.MayDuration("TARGETS_INTERVAL", 30*time.Minute),
		ContentInterval:   l.MayDuration("CONTENT_INTERVAL", 4*time.Hour),
		DispatchInterval:  l.MayDuration("DISPATCH_INTERVAL", time.Minute),

		ContentThreadEvery: l.MayInt("CONTENT_THREAD_EVERY", 0),
		DispatchBatch:      l.MayInt("DISPATCH_BATCH", 10),
		DispatchScan:       l.MayInt("DISPATCH_SCAN", 100),

		StreakThreshold: l.MayInt("STREAK_THRESHOLD", 3),
		BackoffFactor:   l.MayFloat64("BACKOFF_FACTOR", 2),
		BackoffCap:      l.MayFloat64("BACKOFF_CAP", 8),
		MaxEscalations:  l.MayInt("MAX_ESCALATIONS", 3),

		Lease:    l.MayBool("LEASE", true),
		LeaseTTL: l.MayDuration("LEASE_TTL", 10*time.Minute),

		Keywords:          s.MayCSV("KEYWORDS", nil),
		KeywordWeight:     s.MayFloat64("KEYWORD_WEIGHT", 25),
		KeywordCap:        s.MayFloat64("KEYWORD_CAP", 50),
		EngagementWeight:  s.MayFloat64("ENGAGEMENT_WEIGHT", 20),
		EngagementTarget:  s.MayFloat64("ENGAGEMENT_TARGET", 0.05),
		FollowerWeight:    s.MayFloat64("FOLLOWER_WEIGHT", 15),
		RecencyWeight:     s.MayFloat64("RECENCY_WEIGHT", 15),
		RecencyHorizon:    s.MayDuration("RECENCY_HORIZON", 6*time.Hour),
		Threshold:         s.MayFloat64("THRESHOLD", 40),
		MinKeywordMatches: s.MayInt("MIN_KEYWORD_MATCHES", 1),
	}
}
