package workers

import (
	"sync/atomic"
	"time"
)

// PoolMetrics collects pool orchestration metrics.
type PoolMetrics interface {
	WorkerStarted(pool string)
	WorkerStopped(pool string)
	WorkerPanicked(pool string)
	TaskCheckedOut(pool string)
	TaskCompleted(pool string, took time.Duration)
	TaskFailed(pool string, took time.Duration)
	CheckoutFailed(pool string)
	RetryAttempted(pool string)
}

// NoOpMetrics discards everything.
type NoOpMetrics struct{}

func (NoOpMetrics) WorkerStarted(string)                {}
func (NoOpMetrics) WorkerStopped(string)                {}
func (NoOpMetrics) WorkerPanicked(string)               {}
func (NoOpMetrics) TaskCheckedOut(string)               {}
func (NoOpMetrics) TaskCompleted(string, time.Duration) {}
func (NoOpMetrics) TaskFailed(string, time.Duration)    {}
func (NoOpMetrics) CheckoutFailed(string)               {}
func (NoOpMetrics) RetryAttempted(string)               {}

// Snapshot is a point-in-time view of Counters.
type Snapshot struct {
	WorkersActive  int64 `json:"workers_active"`
	WorkerPanics   int64 `json:"worker_panics"`
	TasksCompleted int64 `json:"tasks_completed"`
	TasksFailed    int64 `json:"tasks_failed"`
	CheckoutErrors int64 `json:"checkout_errors"`
	RetryAttempts  int64 `json:"retry_attempts"`
}

// Counters keeps in-process totals, for tooling output and tests.
type Counters struct {
	workersActive  atomic.Int64
	workerPanics   atomic.Int64
	tasksCompleted atomic.Int64
	tasksFailed    atomic.Int64
	checkoutErrors atomic.Int64
	retryAttempts  atomic.Int64
}

func (c *Counters) WorkerStarted(string)                { c.workersActive.Add(1) }
func (c *Counters) WorkerStopped(string)                { c.workersActive.Add(-1) }
func (c *Counters) WorkerPanicked(string)               { c.workerPanics.Add(1) }
func (c *Counters) TaskCheckedOut(string)               {}
func (c *Counters) TaskCompleted(string, time.Duration) { c.tasksCompleted.Add(1) }
func (c *Counters) TaskFailed(string, time.Duration)    { c.tasksFailed.Add(1) }
func (c *Counters) CheckoutFailed(string)               { c.checkoutErrors.Add(1) }
func (c *Counters) RetryAttempted(string)               { c.retryAttempts.Add(1) }

// Snapshot reads the current totals.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		WorkersActive:  c.workersActive.Load(),
		WorkerPanics:   c.workerPanics.Load(),
		TasksCompleted: c.tasksCompleted.Load(),
		TasksFailed:    c.tasksFailed.Load(),
		CheckoutErrors: c.checkoutErrors.Load(),
		RetryAttempts:  c.retryAttempts.Load(),
	}
}

// Multi fans out to several collectors.
type Multi []PoolMetrics

func (m Multi) WorkerStarted(p string) {
	for _, c := range m {
		c.WorkerStarted(p)
	}
}

func (m Multi) WorkerStopped(p string) {
	for _, c := range m {
		c.WorkerStopped(p)
	}
}

func (m Multi) WorkerPanicked(p string) {
	for _, c := range m {
		c.WorkerPanicked(p)
	}
}

func (m Multi) TaskCheckedOut(p string) {
	for _, c := range m {
		c.TaskCheckedOut(p)
	}
}

func (m Multi) TaskCompleted(p string, took time.Duration) {
	for _, c := range m {
		c.TaskCompleted(p, took)
	}
}

func (m Multi) TaskFailed(p string, took time.Duration) {
	for _, c := range m {
		c.TaskFailed(p, took)
	}
}

func (m Multi) CheckoutFailed(p string) {
	for _, c := range m {
		c.CheckoutFailed(p)
	}
}

func (m Multi) RetryAttempted(p string) {
	for _, c := range m {
		c.RetryAttempted(p)
	}
}
