package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartialRatio(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		a    string
		b    string
		want int
	}{
		{name: "identical", a: "monster", b: "monster", want: 100},
		{name: "exact substring", a: "monster", b: "tilbud monster energy 0,5l", want: 100},
		{name: "substring either order", a: "tilbud monster energy 0,5l", b: "monster", want: 100},
		{name: "missing space", a: "red bull", b: "redbull", want: 86},
		{name: "missing space in longer text", a: "red bull", b: "big sale redbull 2 for 30", want: 88},
		{name: "empty term", a: "", b: "anything", want: 0},
		{name: "empty text", a: "burn", b: "", want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, PartialRatio(tc.a, tc.b))
		})
	}
}

func TestPartialRatioBounds(t *testing.T) {
	t.Parallel()

	inputs := []string{"a", "battery", "powerade", "kjøttdeig 400g", "ÆØÅ æøå", "x y z"}
	for _, a := range inputs {
		for _, b := range inputs {
			score := PartialRatio(a, b)
			assert.GreaterOrEqual(t, score, 0)
			assert.LessOrEqual(t, score, MaxScore)
		}
	}
}

func TestPartialRatioUnrelatedTextScoresLow(t *testing.T) {
	t.Parallel()

	assert.Less(t, PartialRatio("red bull", "fresh bananas"), 80)
	assert.Less(t, PartialRatio("powerking", "kaffe"), 80)
}
