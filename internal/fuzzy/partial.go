// Package fuzzy scores how well a short search term appears inside longer
// OCR text and picks the first configured term that clears a threshold.
package fuzzy

import (
	"math"

	"github.com/pmezard/go-difflib/difflib"
)

// fullMatch is the ratio above which a window is treated as identical.
const fullMatch = 0.995

// PartialRatio returns a 0-100 similarity between the shorter string and the
// best-aligned window of the longer one. Candidate windows start where the
// matching blocks of a character-level SequenceMatcher place the shorter
// string inside the longer one. Empty input scores 0.
func PartialRatio(s1, s2 string) int {
	if s1 == "" || s2 == "" {
		return 0
	}
	shorter, longer := runes(s1), runes(s2)
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}

	blocks := newMatcher(shorter, longer).GetMatchingBlocks()
	best := 0.0
	for _, block := range blocks {
		start := block.B - block.A
		if start < 0 {
			start = 0
		}
		end := start + len(shorter)
		if end > len(longer) {
			end = len(longer)
		}
		ratio := newMatcher(shorter, longer[start:end]).Ratio()
		if ratio > fullMatch {
			return 100
		}
		if ratio > best {
			best = ratio
		}
	}
	return int(math.Round(100 * best))
}

// newMatcher disables the autojunk heuristic: long OCR text repeats common
// letters often enough that autojunk would discard most of them.
func newMatcher(a, b []string) *difflib.SequenceMatcher {
	return difflib.NewMatcherWithJunk(a, b, false, nil)
}

func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
