package headless

import (
	"context"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultsNavigationTimeout(t *testing.T) {
	t.Parallel()

	r := New(Config{Headless: true})
	t.Cleanup(func() { _ = r.Close() })
	assert.Equal(t, defaultNavigationTimeout, r.cfg.NavigationTimeout)

	r2 := New(Config{NavigationTimeout: time.Second})
	t.Cleanup(func() { _ = r2.Close() })
	assert.Equal(t, time.Second, r2.cfg.NavigationTimeout)
}

func TestAllocatorOptionsGrowWithConfig(t *testing.T) {
	t.Parallel()

	base := allocatorOptions(Config{Headless: true})
	extended := allocatorOptions(Config{Headless: true, NoSandbox: true, UserAgent: "ua"})
	assert.Len(t, extended, len(base)+2)
}

func TestRendererClosedRejectsCalls(t *testing.T) {
	t.Parallel()

	r := New(Config{Headless: true})
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	ctx := context.Background()
	require.ErrorIs(t, r.Navigate(ctx, "https://example.com"), ErrRendererClosed)
	require.ErrorIs(t, r.WaitFor(ctx, "img", time.Second), ErrRendererClosed)
	_, err := r.QueryAttribute(ctx, "img", "src")
	require.ErrorIs(t, err, ErrRendererClosed)
}

func TestPluckAttributeKeepsPositions(t *testing.T) {
	t.Parallel()

	attrs := []map[string]string{
		{"src": "a.png", "alt": "first"},
		{"alt": "no source"},
		{"src": "c.webp"},
	}
	assert.Equal(t, []string{"a.png", "", "c.webp"}, pluckAttribute(attrs, "src"))
	assert.Empty(t, pluckAttribute(nil, "src"))
}

func TestResponseMetaCapturesDocumentOnly(t *testing.T) {
	t.Parallel()

	meta := newResponseMeta()
	meta.captureEvent(&network.EventResponseReceived{
		Type:     network.ResourceTypeImage,
		Response: &network.Response{Status: 404, URL: "https://cdn/x.png"},
	})
	assert.Zero(t, meta.snapshot())

	meta.captureEvent(&network.EventResponseReceived{
		Type:     network.ResourceTypeDocument,
		Response: &network.Response{Status: 404, URL: "https://mattilbud.no/kundeaviser/kiwi-no"},
	})
	// An iframe document loaded after the main one does not replace its status.
	meta.captureEvent(&network.EventResponseReceived{
		Type:     network.ResourceTypeDocument,
		Response: &network.Response{Status: 200, URL: "https://ads.example/frame"},
	})
	assert.Equal(t, 404, meta.snapshot())

	meta.reset()
	assert.Zero(t, meta.snapshot())
}

func TestDocumentStatusBeforeNavigate(t *testing.T) {
	t.Parallel()

	r := New(Config{Headless: true})
	t.Cleanup(func() { _ = r.Close() })
	assert.Zero(t, r.DocumentStatus())
}
