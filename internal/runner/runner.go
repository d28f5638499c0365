// Package runner drives a complete scan: reset the workspace, walk the
// stores in order, fan each catalog out to the image pipeline, print the
// summary and purge the working directory.
package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/pris-scanner/internal/collector"
	"github.com/JakeFAU/pris-scanner/internal/dispatcher"
	"github.com/JakeFAU/pris-scanner/internal/logging"
	"github.com/JakeFAU/pris-scanner/internal/progress"
	"github.com/JakeFAU/pris-scanner/internal/scanner"
)

// Policy decides what happens when a store's catalog cannot be fetched.
type Policy string

// Store failure policies.
const (
	PolicyAbort Policy = "abort"
	PolicySkip  Policy = "skip"
)

// DefaultWorkers is the per-store concurrency when Options.Workers is unset.
const DefaultWorkers = 5

// CatalogSource lists the images of a store's catalog page.
type CatalogSource interface {
	Fetch(ctx context.Context, store scanner.Store) (scanner.CatalogPage, error)
}

// Workspace owns the directories touched by a run.
type Workspace interface {
	Reset() error
	Purge() error
	Verify() error
}

// Console prints the run-level transcript lines.
type Console interface {
	StoreHeader(store scanner.Store)
	ImagesFound(n int)
	Summary(hits []scanner.Hit)
}

// Options are the run parameters.
type Options struct {
	Stores       []scanner.Store
	Workers      int
	OnStoreError Policy
}

// Deps bundles the collaborators of a Runner.
type Deps struct {
	Catalog   CatalogSource
	Processor dispatcher.Processor
	Workspace Workspace
	Console   Console
	Progress  progress.Emitter
	Clock     scanner.Clock
	IDs       scanner.IDGenerator
	Logger    *zap.Logger
}

// Runner executes scans. A Runner is single-use per Workspace because the
// hits directory may be reset only once.
type Runner struct {
	opts       Options
	deps       Deps
	dispatcher *dispatcher.Dispatcher
	logger     *zap.Logger
}

// New validates opts and deps.
func New(opts Options, deps Deps) (*Runner, error) {
	if len(opts.Stores) == 0 {
		return nil, errors.New("at least one store is required")
	}
	if opts.Workers == 0 {
		opts.Workers = DefaultWorkers
	}
	switch opts.OnStoreError {
	case "":
		opts.OnStoreError = PolicyAbort
	case PolicyAbort, PolicySkip:
	default:
		return nil, fmt.Errorf("unknown store error policy %q", opts.OnStoreError)
	}
	switch {
	case deps.Catalog == nil:
		return nil, errors.New("catalog source is required")
	case deps.Workspace == nil:
		return nil, errors.New("workspace is required")
	case deps.Console == nil:
		return nil, errors.New("console is required")
	case deps.Clock == nil:
		return nil, errors.New("clock is required")
	case deps.IDs == nil:
		return nil, errors.New("id generator is required")
	}
	if deps.Progress == nil {
		deps.Progress = progress.Discard{}
	}
	logger := logging.Named(deps.Logger, "runner")
	d, err := dispatcher.New(deps.Processor, opts.Workers, logging.Named(deps.Logger, "dispatcher"))
	if err != nil {
		return nil, fmt.Errorf("build dispatcher: %w", err)
	}
	return &Runner{opts: opts, deps: deps, dispatcher: d, logger: logger}, nil
}

// Run performs one scan. With PolicyAbort the first catalog failure ends the
// run and is returned; the summary is printed only when every store was
// attempted. The working directory is purged in every case once the hits
// directory has been reset.
func (r *Runner) Run(ctx context.Context) (scanner.RunResult, error) {
	runID, err := r.deps.IDs.NewID()
	if err != nil {
		return scanner.RunResult{}, fmt.Errorf("generate run id: %w", err)
	}
	logger := logging.ForRun(r.logger, runID)
	em := emitter{runID: eventID(runID), clock: r.deps.Clock, out: r.deps.Progress}

	result := scanner.RunResult{RunID: runID, Started: r.deps.Clock.Now()}
	if err := r.deps.Workspace.Reset(); err != nil {
		return result, fmt.Errorf("reset workspace: %w", err)
	}
	em.emit(progress.Event{Stage: progress.StageRunStart})
	logger.Info("run started", zap.Int("stores", len(r.opts.Stores)), zap.Int("workers", r.opts.Workers))

	coll := collector.New()
	runErr := r.scanStores(ctx, &result, coll, em, logger)

	result.Hits = coll.Hits()
	result.Processed = coll.Processed()
	result.Failed = coll.Failed()
	if runErr == nil {
		r.deps.Console.Summary(result.Hits)
	}

	if err := r.deps.Workspace.Purge(); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("purge working directory: %w", err))
	} else if err := r.deps.Workspace.Verify(); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("verify workspace: %w", err))
	}

	result.Finished = r.deps.Clock.Now()
	dur := result.Finished.Sub(result.Started)
	if runErr != nil {
		em.emit(progress.Event{Stage: progress.StageRunError, Dur: dur, Note: runErr.Error()})
		logger.Error("run failed", zap.Error(runErr), zap.Int("hits", len(result.Hits)))
		return result, runErr
	}
	em.emit(progress.Event{Stage: progress.StageRunDone, Dur: dur})
	logger.Info("run finished",
		zap.Int("hits", len(result.Hits)),
		zap.Int("processed", result.Processed),
		zap.Int("failed", result.Failed),
		zap.Int("skipped_stores", len(result.Skipped)),
		zap.Duration("dur", dur))
	return result, nil
}

func (r *Runner) scanStores(
	ctx context.Context,
	result *scanner.RunResult,
	coll *collector.Collector,
	em emitter,
	logger *zap.Logger,
) error {
	for _, store := range r.opts.Stores {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run interrupted before %s: %w", store, err)
		}
		if err := r.scanStore(ctx, store, coll, em, logger); err != nil {
			if r.opts.OnStoreError == PolicySkip && ctx.Err() == nil {
				logger.Warn("skipping store", zap.String("store", store.String()), zap.Error(err))
				result.Skipped = append(result.Skipped, scanner.StoreFailure{Store: store, Err: err})
				continue
			}
			return err
		}
		result.Stores++
	}
	return nil
}

func (r *Runner) scanStore(
	ctx context.Context,
	store scanner.Store,
	coll *collector.Collector,
	em emitter,
	logger *zap.Logger,
) error {
	start := r.deps.Clock.Now()
	r.deps.Console.StoreHeader(store)
	em.emit(progress.Event{Stage: progress.StageStoreStart, Store: store.String()})

	page, err := r.deps.Catalog.Fetch(ctx, store)
	if err != nil {
		em.emit(progress.Event{Stage: progress.StageStoreError, Store: store.String(), Note: err.Error()})
		return fmt.Errorf("fetch catalog for %s: %w", store, err)
	}
	r.deps.Console.ImagesFound(page.Elements)

	tasks := make([]scanner.ImageTask, 0, len(page.Images))
	for _, img := range page.Images {
		tasks = append(tasks, scanner.ImageTask{Store: store, Image: img})
	}
	coll.Consume(r.dispatcher.Run(ctx, tasks), func(o scanner.Outcome) {
		em.emit(imageEvent(o))
	})

	em.emit(progress.Event{
		Stage:  progress.StageStoreDone,
		Store:  store.String(),
		Images: len(tasks),
		Dur:    r.deps.Clock.Now().Sub(start),
	})
	logger.Debug("store done", zap.String("store", store.String()), zap.Int("images", len(tasks)))
	return nil
}

func imageEvent(o scanner.Outcome) progress.Event {
	evt := progress.Event{
		Stage:  progress.StageImageDone,
		Store:  o.Task.Store.String(),
		File:   o.Filename,
		URL:    o.Task.Image.URL,
		Bytes:  int64(o.Bytes),
		Dur:    o.Duration,
		Result: progress.ResultMiss,
	}
	switch {
	case o.Failed():
		evt.Result = progress.ResultFailed
		evt.Note = o.Err.Error()
	case o.Hit != nil:
		evt.Result = progress.ResultHit
		evt.Term = o.Hit.Term
	}
	return evt
}

// eventID maps a run ID onto the binary event form. IDs that are not UUIDs
// are hashed into a name-based UUID.
func eventID(runID string) [16]byte {
	if id, err := progress.ParseRunID(runID); err == nil {
		return id
	}
	return progress.UUIDToBytes(uuid.NewSHA1(uuid.NameSpaceOID, []byte(runID)))
}

type emitter struct {
	runID [16]byte
	clock scanner.Clock
	out   progress.Emitter
}

func (e emitter) emit(evt progress.Event) {
	evt.RunID = e.runID
	evt.TS = e.clock.Now()
	e.out.Emit(evt)
}
