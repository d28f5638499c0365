// Package dispatcher runs image tasks on a bounded pool of workers.
package dispatcher

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/pris-scanner/internal/queue/memory"
	"github.com/JakeFAU/pris-scanner/internal/scanner"
)

// Processor handles one image task. It must report failures through the
// returned Outcome rather than panicking.
type Processor interface {
	Process(ctx context.Context, task scanner.ImageTask) scanner.Outcome
}

// Dispatcher fans tasks out to a fixed number of workers.
type Dispatcher struct {
	processor Processor
	workers   int
	logger    *zap.Logger
}

// New creates a Dispatcher with workers concurrent slots.
func New(processor Processor, workers int, logger *zap.Logger) (*Dispatcher, error) {
	if processor == nil {
		return nil, errors.New("processor is required")
	}
	if workers <= 0 {
		return nil, fmt.Errorf("workers must be > 0, got %d", workers)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{processor: processor, workers: workers, logger: logger}, nil
}

// Run processes tasks with at most Workers in flight and streams each
// Outcome as soon as it completes. The channel closes once every task has
// produced exactly one Outcome. Tasks still queued when ctx ends are
// reported with ctx's error instead of being processed.
func (d *Dispatcher) Run(ctx context.Context, tasks []scanner.ImageTask) <-chan scanner.Outcome {
	results := make(chan scanner.Outcome, len(tasks))

	q := memory.NewQueue(len(tasks))
	for _, task := range tasks {
		// Capacity equals len(tasks), so this never blocks.
		_ = q.Enqueue(context.Background(), task)
	}
	q.Close()

	workers := d.workers
	if workers > len(tasks) {
		workers = len(tasks)
	}

	go func() {
		defer close(results)

		var g errgroup.Group
		for i := 0; i < workers; i++ {
			g.Go(func() error {
				d.work(ctx, q, results)
				return nil
			})
		}
		_ = g.Wait()

		d.cancelRemaining(ctx, q, results)
	}()

	return results
}

func (d *Dispatcher) work(ctx context.Context, q *memory.Queue, results chan<- scanner.Outcome) {
	for {
		task, err := q.Dequeue(ctx)
		if err != nil {
			return
		}
		results <- d.processor.Process(ctx, task)
	}
}

func (d *Dispatcher) cancelRemaining(ctx context.Context, q *memory.Queue, results chan<- scanner.Outcome) {
	if q.Len() == 0 {
		return
	}
	cause := ctx.Err()
	if cause == nil {
		cause = context.Canceled
	}
	d.logger.Warn("dropping queued image tasks", zap.Int("remaining", q.Len()), zap.Error(cause))
	for {
		task, err := q.Dequeue(context.Background())
		if err != nil {
			return
		}
		results <- scanner.Outcome{
			Task:     task,
			Filename: task.Filename(),
			Err:      fmt.Errorf("not started: %w", cause),
		}
	}
}
