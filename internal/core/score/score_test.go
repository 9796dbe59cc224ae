package score

import (
	"math"
	"reflect"
	"slices"
	"testing"
	"time"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func cfg() Config {
	c := Defaults()
	c.Keywords = []string{"rust", "golang", "concurrency"}
	c.Banned = []string{"link in bio"}
	return c
}

func TestScore_Signals(t *testing.T) {
	t.Parallel()

	e := New(cfg())
	cases := []struct {
		name    string
		c       Candidate
		total   float64
		meets   bool
		matched []string
	}{
		{
			name:    "every signal saturated",
			c:       Candidate{Text: "Golang concurrency tips", CreatedAt: now, Followers: 999_999, Likes: 50_000},
			total:   50 + 20 + 15 + 15,
			meets:   true,
			matched: []string{"golang", "concurrency"},
		},
		{
			name:    "keyword cap",
			c:       Candidate{Text: "rust golang concurrency", CreatedAt: now.Add(-6 * time.Hour)},
			total:   50,
			meets:   true,
			matched: []string{"rust", "golang", "concurrency"},
		},
		{
			name:    "half recency no reach",
			c:       Candidate{Text: "golang", CreatedAt: now.Add(-3 * time.Hour)},
			total:   25 + 7.5,
			meets:   false,
			matched: []string{"golang"},
		},
		{
			name:  "future timestamp counts as fresh",
			c:     Candidate{Text: "nothing relevant", CreatedAt: now.Add(time.Hour)},
			total: 15,
			meets: false,
		},
		{
			name:  "no keywords never meets",
			c:     Candidate{Text: "hello", CreatedAt: now, Followers: 999_999, Likes: 50_000},
			total: 50,
			meets: false,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := e.Score(c.c, now)
			if math.Abs(r.Total-c.total) > 1e-9 {
				t.Fatalf("Total = %v, want %v (%+v)", r.Total, c.total, r.Signals)
			}
			if r.MeetsThreshold != c.meets {
				t.Fatalf("MeetsThreshold = %v, want %v", r.MeetsThreshold, c.meets)
			}
			if !slices.Equal(r.Matched, c.matched) {
				t.Fatalf("Matched = %v, want %v", r.Matched, c.matched)
			}
		})
	}
}

func TestScore_BannedPhraseZeroes(t *testing.T) {
	t.Parallel()

	e := New(cfg())
	r := e.Score(Candidate{Text: "check out my product, link in bio #golang", CreatedAt: now, Followers: 999_999, Likes: 50_000}, now)
	if r.Total != 0 || r.MeetsThreshold {
		t.Fatalf("banned candidate scored %v meets=%v", r.Total, r.MeetsThreshold)
	}
	if !slices.Equal(r.Banned, []string{"link in bio"}) {
		t.Fatalf("Banned = %v", r.Banned)
	}
}

func TestScore_Deterministic(t *testing.T) {
	t.Parallel()

	c := Candidate{Text: "Rust and golang", CreatedAt: now.Add(-17 * time.Minute), Followers: 1234, Likes: 7, Retweets: 3, Replies: 2}
	a := New(cfg()).Score(c, now)
	for range 50 {
		if b := New(cfg()).Score(c, now); !reflect.DeepEqual(a, b) {
			t.Fatalf("non deterministic: %+v vs %+v", a, b)
		}
	}
}

func TestScore_RoundsToFourDecimals(t *testing.T) {
	t.Parallel()

	r := New(cfg()).Score(Candidate{Text: "golang", CreatedAt: now.Add(-7 * time.Minute), Followers: 321, Likes: 3}, now)
	if scaled := r.Total * 1e4; math.Abs(scaled-math.Round(scaled)) > 1e-6 {
		t.Fatalf("Total %v has more than four decimals", r.Total)
	}
}

func TestScore_ConfigThresholdParametrized(t *testing.T) {
	t.Parallel()

	for _, th := range []float64{10, 25, 40, 90} {
		c := cfg()
		c.Threshold = th
		r := New(c).Score(Candidate{Text: "golang", CreatedAt: now.Add(-6 * time.Hour)}, now)
		if r.MeetsThreshold != (25 >= th) {
			t.Fatalf("threshold %v: meets = %v", th, r.MeetsThreshold)
		}
	}
}
