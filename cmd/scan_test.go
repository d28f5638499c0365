package cmd

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/pris-scanner/internal/catalog"
	"github.com/JakeFAU/pris-scanner/internal/config"
	"github.com/JakeFAU/pris-scanner/internal/fetcher/headless"
	"github.com/JakeFAU/pris-scanner/internal/progress"
)

func TestLoadConfigFlagOverrides(t *testing.T) {
	cfg, err := loadConfig("", scanFlags{stores: []string{"kiwi", "spar"}, terms: []string{"protein", "barebells"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"kiwi", "spar"}, cfg.StoreList())
	assert.Equal(t, []string{"protein", "barebells"}, cfg.TermList())
	assert.Equal(t, config.PolicyAbort, cfg.Run.OnStoreError)
}

func TestLoadConfigRejectsBlankFlags(t *testing.T) {
	_, err := loadConfig("", scanFlags{terms: []string{"  "}})
	require.Error(t, err)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pris.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stores: [meny]\nrun:\n  workers: 2\n  on_store_error: skip\n"), 0o600))

	cfg, err := loadConfig(path, scanFlags{})
	require.NoError(t, err)
	assert.Equal(t, []string{"meny"}, cfg.StoreList())
	assert.Equal(t, 2, cfg.Run.Workers)
	assert.Equal(t, config.PolicySkip, cfg.Run.OnStoreError)
}

func TestBuildRunnerWiresComponents(t *testing.T) {
	cfg, err := loadConfig("", scanFlags{stores: []string{"kiwi"}})
	require.NoError(t, err)
	root := t.TempDir()
	cfg.Storage.WorkDir = filepath.Join(root, "work")
	cfg.Storage.HitsDir = filepath.Join(root, "hits")

	renderer := headless.New(headless.Config{Headless: true})
	t.Cleanup(func() { _ = renderer.Close() })

	r, err := buildRunner(cfg, renderer, progress.Discard{}, &discardWriter{}, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, r)
}

func TestLoadConfigRejectsDuplicateStores(t *testing.T) {
	_, err := loadConfig("", scanFlags{stores: []string{"kiwi", "kiwi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"kiwi"`)
}

func TestRunScanMetricsListenFailure(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = busy.Close() })

	root := t.TempDir()
	t.Setenv("PRIS_METRICS_LISTEN_ADDR", busy.Addr().String())
	t.Setenv("PRIS_STORAGE_WORK_DIR", filepath.Join(root, "work"))
	t.Setenv("PRIS_STORAGE_HITS_DIR", filepath.Join(root, "hits"))

	err = runScan(context.Background(), scanFlags{stores: []string{"kiwi"}}, &discardWriter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start metrics server")
	assert.NoDirExists(t, filepath.Join(root, "hits"))
}

func TestStartMetricsServerDisabled(t *testing.T) {
	srv, err := startMetricsServer("", prometheus.NewRegistry(), zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, srv)
}

var _ catalog.StatusReporter = (*headless.Renderer)(nil)

func TestRootCommandHasScan(t *testing.T) {
	root := newRootCmd()
	scan, _, err := root.Find([]string{"scan"})
	require.NoError(t, err)
	assert.Equal(t, "scan", scan.Name())
	assert.NotNil(t, scan.Flags().Lookup("store"))
	assert.NotNil(t, scan.Flags().Lookup("term"))
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
