package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/pris-scanner/internal/catalog"
	"github.com/JakeFAU/pris-scanner/internal/clock/system"
	"github.com/JakeFAU/pris-scanner/internal/config"
	collyfetcher "github.com/JakeFAU/pris-scanner/internal/fetcher/colly"
	"github.com/JakeFAU/pris-scanner/internal/fetcher/headless"
	"github.com/JakeFAU/pris-scanner/internal/fuzzy"
	"github.com/JakeFAU/pris-scanner/internal/id/uuid"
	"github.com/JakeFAU/pris-scanner/internal/logging"
	"github.com/JakeFAU/pris-scanner/internal/metrics"
	"github.com/JakeFAU/pris-scanner/internal/ocr/tesseract"
	"github.com/JakeFAU/pris-scanner/internal/pipeline"
	"github.com/JakeFAU/pris-scanner/internal/progress"
	"github.com/JakeFAU/pris-scanner/internal/progress/sinks"
	"github.com/JakeFAU/pris-scanner/internal/report"
	"github.com/JakeFAU/pris-scanner/internal/runner"
	"github.com/JakeFAU/pris-scanner/internal/scanner"
	"github.com/JakeFAU/pris-scanner/internal/storage/local"
)

const shutdownTimeout = 10 * time.Second

type scanFlags struct {
	stores []string
	terms  []string
}

func newScanCmd() *cobra.Command {
	var flags scanFlags
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan every configured store once",
		Long: `Fetches each store's catalog page in order, processes its images with a
bounded worker pool and saves matching images into the hits directory.
The hits directory is emptied before the scan starts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScan(cmd.Context(), flags, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringArrayVar(&flags.stores, "store", nil, "store to scan (repeatable; replaces the configured list)")
	cmd.Flags().StringArrayVar(&flags.terms, "term", nil, "search term (repeatable; replaces the configured list)")
	return cmd
}

func loadConfig(path string, flags scanFlags) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if len(flags.stores) > 0 {
		cfg.Stores = flags.stores
	}
	if len(flags.terms) > 0 {
		cfg.Search.Terms = flags.terms
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}

func runScan(ctx context.Context, flags scanFlags, out io.Writer) error {
	cfg, err := loadConfig(cfgFile, flags)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	reg := metrics.NewRegistry()
	promSink, err := sinks.NewPrometheusSink(reg)
	if err != nil {
		return fmt.Errorf("init metrics sink: %w", err)
	}
	metricsSrv, err := startMetricsServer(cfg.Metrics.ListenAddr, reg, logger)
	if err != nil {
		return err
	}
	// Every return after this point must go through hub.Close.
	hub := progress.NewHub(progress.Config{Logger: logging.Named(logger, "progress")},
		sinks.NewLogSink(logging.Named(logger, "events")), promSink)

	renderer := headless.New(headless.Config{
		Headless:  cfg.Browser.Headless,
		NoSandbox: cfg.Browser.NoSandbox,
		UserAgent: cfg.Browser.UserAgent,
	})

	r, err := buildRunner(cfg, renderer, hub, out, logger)
	var (
		result scanner.RunResult
		runErr error
	)
	if err == nil {
		result, runErr = r.Run(ctx)
	} else {
		runErr = err
	}

	if cerr := renderer.Close(); cerr != nil {
		logger.Warn("renderer close failed", zap.Error(cerr))
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if cerr := hub.Close(shutdownCtx); cerr != nil {
		logger.Warn("progress hub close failed", zap.Error(cerr))
	}
	if werr := metrics.WriteTextfile(reg, cfg.Metrics.Textfile); werr != nil {
		logger.Warn("metrics textfile export failed", zap.Error(werr))
	}
	if metricsSrv != nil {
		if serr := metricsSrv.Shutdown(shutdownCtx); serr != nil {
			logger.Warn("metrics server shutdown failed", zap.Error(serr))
		}
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			logger.Warn("scan interrupted", zap.Int("hits", len(result.Hits)))
			return nil
		}
		return fmt.Errorf("scan: %w", runErr)
	}
	return nil
}

func startMetricsServer(addr string, reg *prometheus.Registry, logger *zap.Logger) (*metrics.Server, error) {
	if addr == "" {
		return nil, nil
	}
	srv, err := metrics.NewServer(addr, reg, logging.Named(logger, "metrics"))
	if err != nil {
		return nil, fmt.Errorf("init metrics server: %w", err)
	}
	if err := srv.Start(); err != nil {
		return nil, fmt.Errorf("start metrics server: %w", err)
	}
	return srv, nil
}

func buildRunner(
	cfg config.Config,
	renderer scanner.PageRenderer,
	events progress.Emitter,
	out io.Writer,
	logger *zap.Logger,
) (*runner.Runner, error) {
	pages, err := catalog.New(catalog.Config{
		URLTemplate: cfg.Catalog.URLTemplate,
		Selector:    cfg.Catalog.Selector,
		Attribute:   cfg.Catalog.Attribute,
		WaitTimeout: cfg.Catalog.WaitTimeout,
	}, renderer, logging.Named(logger, "catalog"))
	if err != nil {
		return nil, fmt.Errorf("init catalog fetcher: %w", err)
	}

	matcher, err := fuzzy.NewMatcher(cfg.TermList(), cfg.Search.Threshold)
	if err != nil {
		return nil, fmt.Errorf("init matcher: %w", err)
	}

	workspace, err := local.New(local.Config{
		WorkDir: cfg.Storage.WorkDir,
		HitsDir: cfg.Storage.HitsDir,
	})
	if err != nil {
		return nil, fmt.Errorf("init workspace: %w", err)
	}

	clock := system.New()
	console := report.NewConsole(out)
	proc, err := pipeline.New(pipeline.Deps{
		Downloader: collyfetcher.New(collyfetcher.Config{
			UserAgent:    cfg.HTTP.UserAgent,
			Timeout:      cfg.HTTP.Timeout,
			MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
		}),
		Recognizer: tesseract.New(tesseract.Config{
			Language:   cfg.OCR.Language,
			Preprocess: cfg.OCR.Preprocess,
		}),
		Matcher:   matcher,
		Workspace: workspace,
		Reporter:  console,
		Clock:     clock,
		Logger:    logging.Named(logger, "pipeline"),
	})
	if err != nil {
		return nil, fmt.Errorf("init pipeline: %w", err)
	}

	stores := make([]scanner.Store, 0, len(cfg.StoreList()))
	for _, s := range cfg.StoreList() {
		stores = append(stores, scanner.Store(s))
	}
	r, err := runner.New(runner.Options{
		Stores:       stores,
		Workers:      cfg.Run.Workers,
		OnStoreError: runner.Policy(cfg.Run.OnStoreError),
	}, runner.Deps{
		Catalog:   pages,
		Processor: proc,
		Workspace: workspace,
		Console:   console,
		Progress:  events,
		Clock:     clock,
		IDs:       uuid.New(),
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init runner: %w", err)
	}
	return r, nil
}
