// Package collyfetcher downloads catalog images using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

// DefaultTimeout bounds a single image download when no timeout is configured.
const DefaultTimeout = 15 * time.Second

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	// MaxBodyBytes caps the response size; zero means unlimited.
	MaxBodyBytes int
}

// Downloader implements scanner.ImageDownloader using the Colly collector.
type Downloader struct {
	cfg           Config
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Downloader sharing one pooled transport across downloads.
func New(cfg Config) *Downloader {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	c := colly.NewCollector(
		colly.Async(false),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
		colly.MaxBodySize(cfg.MaxBodyBytes),
	)
	c.WithTransport(newHTTPTransport())
	// Clones share the backend, so the timeout is set once here.
	c.SetRequestTimeout(cfg.Timeout)

	return &Downloader{
		cfg:           cfg,
		baseCollector: c,
	}
}

// Download fetches url and returns the body. Transport errors and non-2xx
// statuses are returned as errors.
func (d *Downloader) Download(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("download canceled: %w", err)
	}
	var (
		body     []byte
		fetchErr error
	)
	collector := d.buildCollector()
	d.configureCollectorHooks(collector, &body, &fetchErr)

	if err := d.runCollector(ctx, collector, url, &fetchErr); err != nil {
		return nil, err
	}
	if body == nil {
		return nil, errors.New("empty response body")
	}
	return body, nil
}

func (d *Downloader) buildCollector() *colly.Collector {
	collector := d.baseCollector.Clone()
	if d.cfg.UserAgent != "" {
		collector.UserAgent = d.cfg.UserAgent
	}
	return collector
}

func (d *Downloader) configureCollectorHooks(hooks collectorHooks, body *[]byte, fetchErr *error) {
	hooks.OnResponse(func(r *colly.Response) {
		*body = append([]byte{}, r.Body...)
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			*fetchErr = &StatusError{Code: r.StatusCode, Err: err}
			return
		}
		*fetchErr = err
	})
}

func (d *Downloader) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("download canceled: %w", ctx.Err())
	case err := <-done:
		if *fetchErr != nil {
			return fmt.Errorf("download %s: %w", url, *fetchErr)
		}
		if err != nil {
			return fmt.Errorf("download %s: %w", url, err)
		}
		return nil
	}
}

// StatusError reports a non-success HTTP status.
type StatusError struct {
	Code int
	Err  error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d %s", e.Code, http.StatusText(e.Code))
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
	}
}
