package collector

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JakeFAU/pris-scanner/internal/scanner"
)

func hitOutcome(store, file, term string) scanner.Outcome {
	return scanner.Outcome{Filename: file, Hit: &scanner.Hit{Store: scanner.Store(store), Filename: file, Term: term, Score: 90}}
}

func TestConsumeKeepsArrivalOrder(t *testing.T) {
	t.Parallel()

	ch := make(chan scanner.Outcome, 5)
	ch <- hitOutcome("kiwi", "kiwi_img3.png", "monster")
	ch <- scanner.Outcome{Filename: "kiwi_img2.png", Err: errors.New("404")}
	ch <- hitOutcome("kiwi", "kiwi_img1.png", "red bull")
	ch <- scanner.Outcome{Filename: "kiwi_img4.png"}
	close(ch)

	c := New()
	var observed []string
	c.Consume(ch, func(o scanner.Outcome) { observed = append(observed, o.Filename) })

	hits := c.Hits()
	assert.Len(t, hits, 2)
	assert.Equal(t, "kiwi_img3.png", hits[0].Filename)
	assert.Equal(t, "kiwi_img1.png", hits[1].Filename)
	assert.Equal(t, 4, c.Processed())
	assert.Equal(t, 1, c.Failed())
	assert.Equal(t, []string{"kiwi_img3.png", "kiwi_img2.png", "kiwi_img1.png", "kiwi_img4.png"}, observed)
}

func TestHitsReturnsCopy(t *testing.T) {
	t.Parallel()

	c := New()
	c.Add(hitOutcome("meny", "meny_img1.jpg", "burn"))
	hits := c.Hits()
	hits[0].Term = "mutated"
	assert.Equal(t, "burn", c.Hits()[0].Term)
}

func TestCollectorAccumulatesAcrossStores(t *testing.T) {
	t.Parallel()

	c := New()
	for _, store := range []string{"kiwi", "spar"} {
		ch := make(chan scanner.Outcome, 1)
		ch <- hitOutcome(store, store+"_img1.png", "trst")
		close(ch)
		c.Consume(ch, nil)
	}
	hits := c.Hits()
	assert.Len(t, hits, 2)
	assert.Equal(t, scanner.Store("kiwi"), hits[0].Store)
	assert.Equal(t, scanner.Store("spar"), hits[1].Store)
}
