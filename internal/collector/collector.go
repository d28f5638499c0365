// Package collector accumulates pipeline outcomes into the run's hit list.
package collector

import (
	"sync"

	"github.com/JakeFAU/pris-scanner/internal/scanner"
)

// Collector records hits in the order outcomes arrive. It is safe for
// concurrent use.
type Collector struct {
	mu        sync.Mutex
	hits      []scanner.Hit
	processed int
	failed    int
}

// New returns an empty Collector.
func New() *Collector {
	return &Collector{}
}

// Add records one outcome.
func (c *Collector) Add(o scanner.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.processed++
	if o.Failed() {
		c.failed++
		return
	}
	if o.Hit != nil {
		c.hits = append(c.hits, *o.Hit)
	}
}

// Consume drains outcomes, calling observe (if non-nil) for each after it has
// been recorded.
func (c *Collector) Consume(outcomes <-chan scanner.Outcome, observe func(scanner.Outcome)) {
	for o := range outcomes {
		c.Add(o)
		if observe != nil {
			observe(o)
		}
	}
}

// Hits returns a copy of the hits in completion order.
func (c *Collector) Hits() []scanner.Hit {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]scanner.Hit(nil), c.hits...)
}

// Processed is the number of outcomes seen.
func (c *Collector) Processed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.processed
}

// Failed is the number of outcomes that carried an error.
func (c *Collector) Failed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failed
}
