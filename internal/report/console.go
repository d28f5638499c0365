// Package report writes the human-readable run transcript.
package report

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/JakeFAU/pris-scanner/internal/scanner"
)

// Console prints progress lines. Methods are safe for concurrent use; each
// line is written atomically.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsole writes to out, or stdout when out is nil.
func NewConsole(out io.Writer) *Console {
	if out == nil {
		out = os.Stdout
	}
	return &Console{out: out}
}

// StoreHeader announces the store about to be fetched.
func (c *Console) StoreHeader(store scanner.Store) {
	c.printf("=== Fetching %s ===\n", store)
}

// ImagesFound reports how many images a catalog page contains.
func (c *Console) ImagesFound(n int) {
	c.printf("Found %d images on page\n", n)
}

// Hit reports a promoted image.
func (c *Console) Hit(filename, term string) {
	c.printf("[HIT] %s (matched: %s)\n", filename, term)
}

// Failure reports an image that could not be processed.
func (c *Console) Failure(filename string, err error) {
	c.printf("Failed %s: %v\n", filename, err)
}

// Summary prints the total and one line per hit in completion order.
func (c *Console) Summary(hits []scanner.Hit) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "\nDone. Total hits saved: %d\n", len(hits))
	for _, h := range hits {
		fmt.Fprintf(c.out, "  %s %s (matched: %s)\n", h.Store, h.Filename, h.Term)
	}
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}
