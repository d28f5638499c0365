package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMatcherValidation(t *testing.T) {
	t.Parallel()

	_, err := NewMatcher([]string{"burn"}, -1)
	require.Error(t, err)
	_, err = NewMatcher([]string{"burn"}, 101)
	require.Error(t, err)
	_, err = NewMatcher([]string{" ", ""}, 80)
	require.Error(t, err)

	m, err := NewMatcher([]string{" Red Bull ", "", "burn"}, 80)
	require.NoError(t, err)
	assert.Equal(t, []string{"Red Bull", "burn"}, m.terms)
	assert.Equal(t, 80, m.threshold)
}

func TestMatcherMatchIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	m, err := NewMatcher([]string{"Red Bull"}, 80)
	require.NoError(t, err)

	got, ok := m.Match("KUN I DAG: REDBULL 4-PACK")
	require.True(t, ok)
	assert.Equal(t, "Red Bull", got.Term)
	assert.GreaterOrEqual(t, got.Score, 80)
}

func TestMatcherEarlierTermWinsTies(t *testing.T) {
	t.Parallel()

	text := "monster energy ultra 0,5 l"
	first, err := NewMatcher([]string{"monster", "energy"}, 80)
	require.NoError(t, err)
	got, ok := first.Match(text)
	require.True(t, ok)
	assert.Equal(t, "monster", got.Term)

	reversed, err := NewMatcher([]string{"energy", "monster"}, 80)
	require.NoError(t, err)
	got, ok = reversed.Match(text)
	require.True(t, ok)
	assert.Equal(t, "energy", got.Term)
}

func TestMatcherThresholdMonotonic(t *testing.T) {
	t.Parallel()

	texts := []string{
		"big sale redbull 2 for 30",
		"fresh bananas",
		"powerade 50cl",
		"batteri aa 8pk",
		"",
	}
	terms := []string{"battery", "red bull", "powerade", "burn"}
	for _, text := range texts {
		matchedAt := -1
		for threshold := MaxScore; threshold >= 0; threshold-- {
			m, err := NewMatcher(terms, threshold)
			require.NoError(t, err)
			_, ok := m.Match(text)
			if ok && matchedAt == -1 {
				matchedAt = threshold
			}
			if matchedAt != -1 {
				assert.Truef(t, ok, "text %q matched at %d but not at lower %d", text, matchedAt, threshold)
			}
		}
	}
}

func TestMatcherDeterministic(t *testing.T) {
	t.Parallel()

	m, err := NewMatcher([]string{"battery", "red bull", "monster"}, 80)
	require.NoError(t, err)

	text := "Monster Energy 24-pack, Red Bull 250ml"
	first, ok1 := m.Match(text)
	second, ok2 := m.Match(text)
	assert.Equal(t, ok1, ok2)
	assert.Equal(t, first, second)
}

func TestMatcherNoMatch(t *testing.T) {
	t.Parallel()

	m, err := NewMatcher([]string{"red bull", "powerking"}, 80)
	require.NoError(t, err)
	_, ok := m.Match("fresh bananas")
	assert.False(t, ok)
}
