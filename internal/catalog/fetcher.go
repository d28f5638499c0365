// Package catalog renders a store's catalog page and lists its images.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/pris-scanner/internal/scanner"
)

// Defaults mirror the catalog site's layout.
const (
	DefaultURLTemplate = "https://mattilbud.no/kundeaviser/%s-no"
	DefaultSelector    = "img"
	DefaultAttribute   = "src"
	DefaultWaitTimeout = 10 * time.Second
)

// ErrPageStatus marks a catalog page whose document came back with an HTTP
// error status.
var ErrPageStatus = errors.New("catalog page returned error status")

// StatusReporter is implemented by renderers that observe the HTTP status of
// the document loaded by the last Navigate. Zero means unknown.
type StatusReporter interface {
	DocumentStatus() int
}

// Config describes where catalog pages live and how images are found on them.
type Config struct {
	URLTemplate string
	Selector    string
	Attribute   string
	WaitTimeout time.Duration
}

// Fetcher turns a store into a CatalogPage using a PageRenderer.
type Fetcher struct {
	cfg      Config
	renderer scanner.PageRenderer
	logger   *zap.Logger
}

// New constructs a Fetcher. Empty config fields fall back to the defaults.
func New(cfg Config, renderer scanner.PageRenderer, logger *zap.Logger) (*Fetcher, error) {
	if renderer == nil {
		return nil, errors.New("renderer is required")
	}
	if cfg.URLTemplate == "" {
		cfg.URLTemplate = DefaultURLTemplate
	}
	if strings.Count(cfg.URLTemplate, "%s") != 1 {
		return nil, fmt.Errorf("url template %q must contain exactly one %%s", cfg.URLTemplate)
	}
	if cfg.Selector == "" {
		cfg.Selector = DefaultSelector
	}
	if cfg.Attribute == "" {
		cfg.Attribute = DefaultAttribute
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = DefaultWaitTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{cfg: cfg, renderer: renderer, logger: logger}, nil
}

// PageURL returns the catalog URL for store.
func (f *Fetcher) PageURL(store scanner.Store) string {
	return fmt.Sprintf(f.cfg.URLTemplate, store)
}

// Fetch navigates to the store's catalog, waits for images and returns their
// sources in page order. A page without images yields an empty CatalogPage.
func (f *Fetcher) Fetch(ctx context.Context, store scanner.Store) (scanner.CatalogPage, error) {
	pageURL := f.PageURL(store)
	page := scanner.CatalogPage{Store: store, URL: pageURL}

	if err := f.renderer.Navigate(ctx, pageURL); err != nil {
		return page, fmt.Errorf("navigate %s: %w", pageURL, err)
	}
	if sr, ok := f.renderer.(StatusReporter); ok {
		if status := sr.DocumentStatus(); status >= http.StatusBadRequest {
			return page, fmt.Errorf("navigate %s: %w: %d", pageURL, ErrPageStatus, status)
		}
	}
	if err := f.renderer.WaitFor(ctx, f.cfg.Selector, f.cfg.WaitTimeout); err != nil {
		return page, fmt.Errorf("wait for %s on %s: %w", f.cfg.Selector, pageURL, err)
	}
	sources, err := f.renderer.QueryAttribute(ctx, f.cfg.Selector, f.cfg.Attribute)
	if err != nil {
		return page, fmt.Errorf("query %s[%s] on %s: %w", f.cfg.Selector, f.cfg.Attribute, pageURL, err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return page, fmt.Errorf("parse page url %s: %w", pageURL, err)
	}
	page.Elements = len(sources)
	page.Images = collectImages(base, sources, f.logger.With(zap.String("store", store.String())))
	return page, nil
}

// collectImages keeps element positions as 1-based indexes even when a source
// is skipped, so filenames stay aligned with the page.
func collectImages(base *url.URL, sources []string, logger *zap.Logger) []scanner.ImageRef {
	images := make([]scanner.ImageRef, 0, len(sources))
	for i, src := range sources {
		src = strings.TrimSpace(src)
		if src == "" {
			continue
		}
		resolved, err := resolve(base, src)
		if err != nil {
			logger.Debug("skipping unparsable image source", zap.String("src", src), zap.Error(err))
			continue
		}
		images = append(images, scanner.ImageRef{Index: i + 1, URL: resolved})
	}
	return images
}

func resolve(base *url.URL, src string) (string, error) {
	ref, err := url.Parse(src)
	if err != nil {
		return "", fmt.Errorf("parse src: %w", err)
	}
	if ref.IsAbs() {
		return src, nil
	}
	return base.ResolveReference(ref).String(), nil
}
