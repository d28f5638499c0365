// Package headless drives a Chrome page through chromedp.
package headless

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// ErrRendererClosed is returned by calls made after Close.
var ErrRendererClosed = errors.New("renderer closed")

const defaultNavigationTimeout = 45 * time.Second

// Config controls the behavior of the headless renderer.
type Config struct {
	Headless          bool
	NoSandbox         bool
	UserAgent         string
	NavigationTimeout time.Duration
}

// Renderer implements scanner.PageRenderer with one browser and one reused tab.
type Renderer struct {
	cfg         Config
	allocator   context.Context
	allocCancel context.CancelFunc

	mu        sync.Mutex
	tab       context.Context
	tabCancel context.CancelFunc
	meta      *responseMeta
	closed    bool
}

// New creates a renderer. The browser is started lazily on first navigation.
func New(cfg Config) *Renderer {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = defaultNavigationTimeout
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(cfg)...)
	return &Renderer{
		cfg:         cfg,
		allocator:   allocCtx,
		allocCancel: allocCancel,
		meta:        newResponseMeta(),
	}
}

func allocatorOptions(cfg Config) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	opts = append(opts,
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	if cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	return opts
}

// Navigate loads url in the shared tab.
func (r *Renderer) Navigate(ctx context.Context, url string) error {
	tab, err := r.ensureTab()
	if err != nil {
		return err
	}
	r.meta.reset()
	return r.run(ctx, tab, r.cfg.NavigationTimeout,
		r.networkSetupAction(),
		chromedp.Navigate(url),
	)
}

// WaitFor blocks until selector matches at least one element or timeout elapses.
func (r *Renderer) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	tab, err := r.ensureTab()
	if err != nil {
		return err
	}
	return r.run(ctx, tab, timeout, chromedp.WaitReady(selector, chromedp.ByQuery))
}

// QueryAttribute returns attribute for every element matching selector, in
// document order. Elements without the attribute yield an empty string.
func (r *Renderer) QueryAttribute(ctx context.Context, selector, attribute string) ([]string, error) {
	tab, err := r.ensureTab()
	if err != nil {
		return nil, err
	}
	var attrs []map[string]string
	if err := r.run(ctx, tab, r.cfg.NavigationTimeout,
		chromedp.AttributesAll(selector, &attrs, chromedp.ByQueryAll, chromedp.AtLeast(0)),
	); err != nil {
		return nil, err
	}
	return pluckAttribute(attrs, attribute), nil
}

// DocumentStatus returns the HTTP status of the document loaded by the last
// Navigate, or 0 when none was observed.
func (r *Renderer) DocumentStatus() int {
	return r.meta.snapshot()
}

// Close tears down the tab, the browser and the allocator.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if r.tabCancel != nil {
		r.tabCancel()
	}
	r.allocCancel()
	return nil
}

func (r *Renderer) ensureTab() (context.Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRendererClosed
	}
	if r.tab != nil {
		return r.tab, nil
	}
	tab, cancel := chromedp.NewContext(r.allocator)
	chromedp.ListenTarget(tab, r.meta.captureEvent)
	// The first Run allocates the browser; it must not carry a deadline.
	if err := chromedp.Run(tab); err != nil {
		cancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	r.tab, r.tabCancel = tab, cancel
	return r.tab, nil
}

// run executes actions on the long-lived tab. The tab context is not derived
// from ctx, so caller cancellation is observed separately.
func (r *Renderer) run(ctx context.Context, tab context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("chromedp run: %w", err)
	}
	timeoutCtx, cancel := context.WithTimeout(tab, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(timeoutCtx, actions...)
	}()

	select {
	case <-ctx.Done():
		cancel()
		<-done
		return fmt.Errorf("chromedp run: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("chromedp run: %w", err)
		}
		return nil
	}
}

func (r *Renderer) networkSetupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if r.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(r.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

func pluckAttribute(attrs []map[string]string, attribute string) []string {
	values := make([]string, 0, len(attrs))
	for _, a := range attrs {
		values = append(values, a[attribute])
	}
	return values
}

// responseMeta records the status of the first document response after a
// reset. Redirects arrive as request events, so that response is the final
// main document; later document responses belong to iframes.
type responseMeta struct {
	mu     sync.Mutex
	status int
}

func newResponseMeta() *responseMeta {
	return &responseMeta{}
}

func (m *responseMeta) reset() {
	m.mu.Lock()
	m.status = 0
	m.mu.Unlock()
}

func (m *responseMeta) capture(event *network.EventResponseReceived) {
	if event.Type != network.ResourceTypeDocument || event.Response == nil {
		return
	}
	m.mu.Lock()
	if m.status == 0 {
		m.status = int(event.Response.Status)
	}
	m.mu.Unlock()
}

func (m *responseMeta) snapshot() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *responseMeta) captureEvent(ev any) {
	if resp, ok := ev.(*network.EventResponseReceived); ok {
		m.capture(resp)
	}
}
