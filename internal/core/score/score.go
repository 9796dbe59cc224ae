// Package score ranks candidate posts with a deterministic weighted sum
package score

import (
	"math"
	"time"

	"murmur/internal/core/normalize"
	"murmur/internal/core/phrase"
)

// Config is the immutable scoring configuration
type Config struct {
	Keywords []string
	Banned   []string

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

// Defaults returns a balanced configuration with no keywords
func Defaults() Config {
	return Config{
		KeywordWeight:     25,
		KeywordCap:        50,
		EngagementWeight:  20,
		EngagementTarget:  0.05,
		FollowerWeight:    15,
		RecencyWeight:     15,
		RecencyHorizon:    6 * time.Hour,
		Threshold:         40,
		MinKeywordMatches: 1,
	}
}

// Candidate is the scoring view of a fetched post
type Candidate struct {
	Text      string
	CreatedAt time.Time
	Followers int64
	Likes     int64
	Retweets  int64
	Replies   int64
}

// Breakdown exposes each signal contribution
type Breakdown struct {
	Keywords   float64 `json:"keywords"`
	Engagement float64 `json:"engagement"`
	Reach      float64 `json:"reach"`
	Recency    float64 `json:"recency"`
}

// Result is the outcome of scoring one candidate
type Result struct {
	Total          float64   `json:"total"`
	MeetsThreshold bool      `json:"meets_threshold"`
	Matched        []string  `json:"matched"`
	Banned         []string  `json:"banned,omitempty"`
	Signals        Breakdown `json:"signals"`
}

// Engine scores candidates against one Config
type Engine struct {
	cfg      Config
	keywords *phrase.Matcher
	banned   *phrase.Matcher
}

// New builds an Engine. cfg slices are copied through the matchers, so later
// mutation by the caller has no effect
func New(cfg Config) *Engine {
	return &Engine{
		cfg:      cfg,
		keywords: phrase.New(cfg.Keywords, normalize.Options{}),
		banned:   phrase.New(cfg.Banned, normalize.Options{}),
	}
}

// Threshold returns the configured pass mark
func (e *Engine) Threshold() float64 { return e.cfg.Threshold }

// Score evaluates c as of now. Identical inputs always give identical output
func (e *Engine) Score(c Candidate, now time.Time) Result {
	matched := e.keywords.Find(c.Text)
	banned := e.banned.Find(c.Text)

	var b Breakdown
	b.Keywords = math.Min(float64(len(matched))*e.cfg.KeywordWeight, e.cfg.KeywordCap)

	followers := max(c.Followers, 0)
	if e.cfg.EngagementTarget > 0 {
		interactions := float64(max(c.Likes, 0) + 2*max(c.Retweets, 0) + max(c.Replies, 0))
		rate := interactions / float64(max(followers, 1))
		b.Engagement = e.cfg.EngagementWeight * math.Min(1, rate/e.cfg.EngagementTarget)
	}

	b.Reach = e.cfg.FollowerWeight * math.Min(1, math.Log10(float64(followers)+1)/6)

	if e.cfg.RecencyHorizon > 0 {
		age := now.Sub(c.CreatedAt)
		if age < 0 {
			age = 0
		}
		b.Recency = e.cfg.RecencyWeight * math.Max(0, 1-float64(age)/float64(e.cfg.RecencyHorizon))
	}

	total := round4(b.Keywords + b.Engagement + b.Reach + b.Recency)
	if len(banned) > 0 {
		total = 0
	}

	return Result{
		Total: total,
		MeetsThreshold: total >= e.cfg.Threshold &&
			len(matched) >= e.cfg.MinKeywordMatches &&
			len(banned) == 0,
		Matched: matched,
		Banned:  banned,
		Signals: Breakdown{
			Keywords:   round4(b.Keywords),
			Engagement: round4(b.Engagement),
			Reach:      round4(b.Reach),
			Recency:    round4(b.Recency),
		},
	}
}

func round4(v float64) float64 { return math.Round(v*1e4) / 1e4 }
