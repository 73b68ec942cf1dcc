package workers

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"casesearch/internal/lib/logger/sl"
)

// WorkerPool runs jobs on a fixed number of goroutines. Run blocks until
// Close has been called and every queued job finished, or ctx is done.
type WorkerPool[T any] struct {
	log           *slog.Logger
	workersCount  int
	jobs          chan Job[T]
	Done          chan struct{}
	activeWorkers int32
	onResult      func(Result[T])
	closeOnce     sync.Once
}

func New[T any](log *slog.Logger, numWorkers int, onResult func(Result[T])) *WorkerPool[T] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &WorkerPool[T]{
		log:          log,
		workersCount: numWorkers,
		jobs:         make(chan Job[T]),
		Done:         make(chan struct{}),
		onResult:     onResult,
	}
}

// AddJob blocks until a worker picks the job up or ctx is done.
func (wp *WorkerPool[T]) AddJob(ctx context.Context, job Job[T]) error {
	select {
	case wp.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops intake. Safe to call more than once.
func (wp *WorkerPool[T]) Close() {
	wp.closeOnce.Do(func() { close(wp.jobs) })
}

func (wp *WorkerPool[T]) ActiveWorkersCount() int32 {
	return atomic.LoadInt32(&wp.activeWorkers)
}

func (wp *WorkerPool[T]) Run(ctx context.Context) {
	var wg sync.WaitGroup

	for i := 0; i < wp.workersCount; i++ {
		wg.Add(1)
		go worker(ctx, &wg, wp)
	}

	wg.Wait()
	close(wp.Done)
}

func worker[T any](ctx context.Context, wg *sync.WaitGroup, wp *WorkerPool[T]) {
	defer wg.Done()

	atomic.AddInt32(&wp.activeWorkers, 1)
	defer atomic.AddInt32(&wp.activeWorkers, -1)

	for {
		select {
		case job, ok := <-wp.jobs:
			if !ok {
				return
			}
			result := job.execute(ctx)
			if result.Err != nil {
				wp.log.Debug("Job failed", "job_id", string(job.Description.ID), "job_type", string(job.Description.JobType), sl.Err(result.Err))
			}
			if wp.onResult != nil {
				wp.onResult(result)
			}
		case <-ctx.Done():
			wp.log.Debug("Worker cancelled", sl.Err(ctx.Err()))
			return
		}
	}
}
