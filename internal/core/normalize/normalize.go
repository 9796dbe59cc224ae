// Package normalize folds text into the comparison form used by phrase matching
// Pipeline order
// 1 UTF-8 repair drop invalid bytes
// 2 Unicode NFKD so ligatures, fullwidth forms and accents decompose
// 3 Case folding
// 4 Remove zero-width and combining marks
// 5 Width fold remaining fullwidth forms
// 6 NFC recompose
// 7 Optional leet folding eg 4/@->a 0->o 1/!->i 3->e 5/$->s 7->t
// 8 Collapse whitespace to single spaces and trim
package normalize

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Options tunes the pipeline
type Options struct {
	// Leet maps common ASCII lookalikes back to letters
	Leet bool
}

// Normalizer is concurrency safe
type Normalizer struct {
	opt Options
}

var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFKD,
			cases.Fold(),
			runes.Remove(runes.In(unicode.Mn)),
			runes.Remove(runes.In(unicode.Cf)),
			width.Fold,
			norm.NFC,
		)
	},
}

// New constructs a Normalizer
func New(opt Options) *Normalizer { return &Normalizer{opt: opt} }

// Fold normalizes s with default options
func Fold(s string) string { return (&Normalizer{}).Normalize(s) }

// Normalize returns the folded form of s
func (n *Normalizer) Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToValidUTF8(s, "")

	tr := chainPool.Get().(transform.Transformer)
	ns, _, err := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)
	if err != nil {
		ns = strings.ToLower(s)
	}

	if n.opt.Leet {
		ns = leetFold(ns)
	}
	return collapseSpaces(ns)
}

func leetFold(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '4', '@':
			b.WriteRune('a')
		case '0':
			b.WriteRune('o')
		case '1', '!':
			b.WriteRune('i')
		case '3':
			b.WriteRune('e')
		case '5', '$':
			b.WriteRune('s')
		case '7':
			b.WriteRune('t')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// collapseSpaces turns every whitespace run, line breaks included, into one ASCII space
func collapseSpaces(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inWS := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			inWS = true
			continue
		}
		if inWS && b.Len() > 0 {
			b.WriteByte(' ')
		}
		inWS = false
		b.WriteRune(r)
	}
	return b.String()
}
