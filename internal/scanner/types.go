package scanner

import (
	"time"
)

// Store identifies a grocery chain on the catalog site.
type Store string

// String returns the raw store identifier.
func (s Store) String() string {
	return string(s)
}

// CatalogPage is the transient result of rendering one store's catalog.
// Elements counts every matched element, including those without a source.
type CatalogPage struct {
	Store    Store
	URL      string
	Elements int
	Images   []ImageRef
}

// ImageRef is an image source found on a catalog page. Index is the 1-based
// position of the element on the page and is used to build filenames.
type ImageRef struct {
	Index int
	URL   string
}

// ImageTask is one unit of work for the image pipeline.
type ImageTask struct {
	Store Store
	Image ImageRef
}

// Filename returns the deterministic working-directory name for the task.
func (t ImageTask) Filename() string {
	return ImageFilename(t.Store, t.Image.Index, t.Image.URL)
}

// Hit records an image whose recognized text matched a search term.
type Hit struct {
	Store    Store
	Filename string
	Term     string
	Score    int
}

// Outcome is what the pipeline reports for a single image. Hit is nil when the
// image did not match or failed; Err is set only on failure.
type Outcome struct {
	Task     ImageTask
	Filename string
	Hit      *Hit
	Err      error
	Bytes    int
	Duration time.Duration
}

// Failed reports whether the image could not be processed.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// StoreFailure records a store whose catalog page could not be fetched.
type StoreFailure struct {
	Store Store
	Err   error
}

// RunResult summarizes a complete run.
type RunResult struct {
	RunID     string
	Hits      []Hit
	Processed int
	Failed    int
	Stores    int
	Skipped   []StoreFailure
	Started   time.Time
	Finished  time.Time
}
