package workers

import (
	"context"
	"time"
)

// Task is a unit of work handed out by a Processor.
type Task interface {
	GetID() string
}

// Processor supplies tasks to the pool and settles them.
type Processor[T Task] interface {
	// Checkout claims the next task, or returns ErrNoWorkAvailable. It must
	// be safe for concurrent workers.
	Checkout(ctx context.Context, workerID string) (T, error)

	// Process runs the task and returns its settled form.
	Process(ctx context.Context, task T) (T, error)

	// Complete is called with the processed task after a success.
	Complete(ctx context.Context, task T, took time.Duration) error

	// Fail is called with the checked out task once retries are exhausted.
	Fail(ctx context.Context, task T, err error) error
}

// WorkFunc is one checkout and process cycle of a worker.
type WorkFunc func(ctx context.Context, workerID string) error

// Middleware wraps a WorkFunc with additional behavior
type Middleware func(WorkFunc) WorkFunc

// PreProcessHook runs before Process
type PreProcessHook[T Task] func(ctx context.Context, task T) error

// PostProcessHook runs after Process with its error, if any.
type PostProcessHook[T Task] func(ctx context.Context, task T, err error) error
