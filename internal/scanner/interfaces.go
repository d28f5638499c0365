package scanner

import (
	"context"
	"image"
	"time"
)

// PageRenderer drives a browser page. Implementations keep a single page open
// across calls so navigation, waiting and querying act on the same document.
type PageRenderer interface {
	Navigate(ctx context.Context, url string) error
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error
	QueryAttribute(ctx context.Context, selector, attribute string) ([]string, error)
	Close() error
}

// TextRecognizer extracts text from a decoded image.
type TextRecognizer interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
}

// ImageDownloader fetches the raw bytes behind an image URL. Non-success
// statuses are returned as errors.
type ImageDownloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
