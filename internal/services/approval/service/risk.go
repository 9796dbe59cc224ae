package service

import (
	"regexp"
	"unicode/utf8"

	"murmur/internal/core/normalize"
	"murmur/internal/core/phrase"
	dom "murmur/internal/services/approval/domain"
)

var linkRe = regexp.MustCompile(`(?i)\bhttps?://|\bwww\.|\b[a-z0-9-]+\.(com|io|dev|app|co|ly|gg|xyz|net|org)\b`)

// RiskConfig tunes the reviewer hints
type RiskConfig struct {
	Banned          []string
	ProductKeywords []string
	LowScore        float64
	MaxLength       int
}

type assessor struct {
	banned   *phrase.Matcher
	product  *phrase.Matcher
	lowScore float64
	maxLen   int
}

func newAssessor(c RiskConfig) *assessor {
	if c.MaxLength <= 0 {
		c.MaxLength = 280
	}
	return &assessor{
		banned:   phrase.New(c.Banned, normalize.Options{}),
		product:  phrase.New(c.ProductKeywords, normalize.Options{}),
		lowScore: c.LowScore,
		maxLen:   c.MaxLength,
	}
}

// flags returns the risk flags of it in a fixed order
func (a *assessor) flags(it dom.Item) []string {
	texts := it.Texts()
	out := []string{}
	if len(a.banned.FindAll(texts...)) > 0 {
		out = append(out, dom.RiskBannedPhrase)
	}
	if len(a.product.FindAll(texts...)) > 0 {
		out = append(out, dom.RiskProductMention)
	}
	for _, t := range texts {
		if linkRe.MatchString(t) {
			out = append(out, dom.RiskContainsLink)
			break
		}
	}
	for _, t := range texts {
		if utf8.RuneCountInString(t) > a.maxLen {
			out = append(out, dom.RiskOverLength)
			break
		}
	}
	if it.Kind == dom.KindReply && a.lowScore > 0 && it.Score < a.lowScore {
		out = append(out, dom.RiskLowScore)
	}
	return out
}
