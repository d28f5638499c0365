package fuzzy

import (
	"errors"
	"fmt"
	"strings"
)

// MaxScore is the highest score PartialRatio returns.
const MaxScore = 100

// Match is the term that cleared the threshold and its score.
type Match struct {
	Term  string
	Score int
}

// Matcher checks text against an ordered list of terms.
type Matcher struct {
	terms     []string
	lowered   []string
	threshold int
}

// NewMatcher builds a Matcher. Term order is significant: when several terms
// clear the threshold the earliest one is reported.
func NewMatcher(terms []string, threshold int) (*Matcher, error) {
	if threshold < 0 || threshold > MaxScore {
		return nil, fmt.Errorf("threshold %d out of range 0-%d", threshold, MaxScore)
	}
	m := &Matcher{threshold: threshold}
	for _, term := range terms {
		trimmed := strings.TrimSpace(term)
		if trimmed == "" {
			continue
		}
		m.terms = append(m.terms, trimmed)
		m.lowered = append(m.lowered, strings.ToLower(trimmed))
	}
	if len(m.terms) == 0 {
		return nil, errors.New("at least one search term is required")
	}
	return m, nil
}

// Match lowercases text and returns the first term whose partial ratio meets
// the threshold.
func (m *Matcher) Match(text string) (Match, bool) {
	lower := strings.ToLower(text)
	for i, term := range m.lowered {
		score := PartialRatio(term, lower)
		if score >= m.threshold {
			return Match{Term: m.terms[i], Score: score}, true
		}
	}
	return Match{}, false
}
