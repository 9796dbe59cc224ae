// Package phrase finds configured phrases inside free text
//
// Phrases and text are folded through the normalize pipeline, so matching is
// case, width and accent insensitive plain substring matching. Results are
// always reported in configured order with each phrase listed once
package phrase

import (
	"murmur/internal/core/normalize"
)

// Matcher is immutable after New and safe for concurrent use
type Matcher struct {
	phrases []string
	norm    *normalize.Normalizer
	ac      *automaton
}

// New builds a matcher over phrases. Blank phrases and phrases that fold to
// an already configured one are ignored
func New(phrases []string, opt normalize.Options) *Matcher {
	m := &Matcher{norm: normalize.New(opt), ac: newAutomaton()}
	seen := make(map[string]struct{}, len(phrases))
	for _, p := range phrases {
		f := m.norm.Normalize(p)
		if f == "" {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		m.ac.add([]byte(f), len(m.phrases))
		m.phrases = append(m.phrases, p)
	}
	m.ac.build()
	return m
}

// Len reports the number of distinct phrases
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.phrases)
}

// Phrases returns a copy of the configured phrases in order
func (m *Matcher) Phrases() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.phrases...)
}

// Find returns the configured phrases present in text, in configured order
func (m *Matcher) Find(text string) []string {
	if m.Len() == 0 || text == "" {
		return nil
	}
	hit := make([]bool, len(m.phrases))
	n := 0
	m.ac.scan([]byte(m.norm.Normalize(text)), func(id int) bool {
		if !hit[id] {
			hit[id] = true
			n++
		}
		return n < len(m.phrases)
	})
	if n == 0 {
		return nil
	}
	out := make([]string, 0, n)
	for i, ok := range hit {
		if ok {
			out = append(out, m.phrases[i])
		}
	}
	return out
}

// Any reports whether at least one phrase is present in text
func (m *Matcher) Any(text string) bool {
	if m.Len() == 0 || text == "" {
		return false
	}
	found := false
	m.ac.scan([]byte(m.norm.Normalize(text)), func(int) bool {
		found = true
		return false
	})
	return found
}

// FindAll returns the union of matches across several texts in configured order
func (m *Matcher) FindAll(texts ...string) []string {
	if m.Len() == 0 {
		return nil
	}
	hit := make([]bool, len(m.phrases))
	for _, t := range texts {
		for _, p := range m.Find(t) {
			hit[m.index(p)] = true
		}
	}
	var out []string
	for i, ok := range hit {
		if ok {
			out = append(out, m.phrases[i])
		}
	}
	return out
}

func (m *Matcher) index(p string) int {
	for i, q := range m.phrases {
		if q == p {
			return i
		}
	}
	return -1
}
