package workers_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jrazmi/growlog/infrastructure/workers"
)

type testTask struct {
	ID   string
	Done bool
}

func (t testTask) GetID() string { return t.ID }

type stubProcessor struct {
	mu        sync.Mutex
	tasks     []testTask
	completed []testTask
	failed    map[string]error

	checkoutErr error
	processFunc func(ctx context.Context, task testTask) (testTask, error)
}

func newStub(ids ...string) *stubProcessor {
	p := &stubProcessor{failed: map[string]error{}}
	for _, id := range ids {
		p.tasks = append(p.tasks, testTask{ID: id})
	}
	return p
}

func (p *stubProcessor) Checkout(ctx context.Context, workerID string) (testTask, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.checkoutErr != nil {
		return testTask{}, p.checkoutErr
	}
	if len(p.tasks) == 0 {
		return testTask{}, workers.ErrNoWorkAvailable
	}
	task := p.tasks[0]
	p.tasks = p.tasks[1:]
	return task, nil
}

func (p *stubProcessor) Process(ctx context.Context, task testTask) (testTask, error) {
	if p.processFunc != nil {
		return p.processFunc(ctx, task)
	}
	task.Done = true
	return task, nil
}

func (p *stubProcessor) Complete(ctx context.Context, task testTask, took time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed = append(p.completed, task)
	return nil
}

func (p *stubProcessor) Fail(ctx context.Context, task testTask, err error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed[task.ID] = err
	return nil
}

func (p *stubProcessor) settled() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.completed) + len(p.failed)
}

func fast(extra ...workers.Option) []workers.Option {
	return append([]workers.Option{
		workers.WithPollInterval(time.Millisecond),
		workers.WithIdleInterval(2 * time.Millisecond),
		workers.WithRetryDelay(time.Millisecond),
	}, extra...)
}

// run starts the pool and stops it once settled tasks have been handled.
func run(t *testing.T, pool *workers.WorkerPool[testTask], p *stubProcessor, settled int) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- pool.Start(context.Background()) }()

	deadline := time.Now().Add(5 * time.Second)
	for p.settled() < settled {
		if time.Now().After(deadline) {
			pool.Stop()
			t.Fatalf("settled %d tasks, want %d", p.settled(), settled)
		}
		time.Sleep(time.Millisecond)
	}
	pool.Stop()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("pool did not stop")
	}
	return nil
}

func TestPoolProcessesEveryTask(t *testing.T) {
	p := newStub("a", "b", "c", "d")
	var counters workers.Counters
	pool := workers.New[testTask](p, workers.Options{Name: "test", WorkerCount: 2}, fast(workers.WithMetrics(&counters))...)

	if err := run(t, pool, p, 4); err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(p.completed) != 4 {
		t.Fatalf("completed %d tasks, want 4", len(p.completed))
	}
	for _, task := range p.completed {
		if !task.Done {
			t.Errorf("task %s completed without its processed form", task.ID)
		}
	}
	snap := counters.Snapshot()
	if snap.TasksCompleted != 4 || snap.WorkersActive != 0 {
		t.Errorf("snapshot %+v", snap)
	}
	if pool.Running() {
		t.Error("pool still running after stop")
	}
}

func TestPoolRetriesThenFails(t *testing.T) {
	p := newStub("flaky")
	attempts := 0
	p.processFunc = func(ctx context.Context, task testTask) (testTask, error) {
		attempts++
		return task, fmt.Errorf("attempt %d", attempts)
	}
	var counters workers.Counters
	pool := workers.New[testTask](p, workers.Options{MaxRetries: 3}, fast(workers.WithMetrics(&counters))...)

	if err := run(t, pool, p, 1); err != nil {
		t.Fatalf("start: %v", err)
	}
	if attempts != 3 {
		t.Errorf("process called %d times, want 3", attempts)
	}
	err := p.failed["flaky"]
	if err == nil || !strings.Contains(err.Error(), "failed after 3 attempts") {
		t.Errorf("fail error = %v", err)
	}
	if snap := counters.Snapshot(); snap.RetryAttempts != 2 || snap.TasksFailed != 1 {
		t.Errorf("snapshot %+v", snap)
	}
}

func TestPoolRecoversFromTaskPanic(t *testing.T) {
	p := newStub("boom", "fine")
	p.processFunc = func(ctx context.Context, task testTask) (testTask, error) {
		if task.ID == "boom" {
			panic("kaboom")
		}
		return task, nil
	}
	pool := workers.New[testTask](p, workers.Options{MaxRetries: 1}, fast()...)

	if err := run(t, pool, p, 2); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := p.failed["boom"]; err == nil || !strings.Contains(err.Error(), "kaboom") {
		t.Errorf("panic not reported as failure: %v", err)
	}
	if len(p.completed) != 1 || p.completed[0].ID != "fine" {
		t.Errorf("completed %+v", p.completed)
	}
}

func TestPoolShutdownRequest(t *testing.T) {
	p := newStub()
	p.checkoutErr = workers.ErrPoolShutdown
	pool := workers.New[testTask](p, workers.Options{WorkerCount: 3}, fast()...)

	done := make(chan error, 1)
	go func() { done <- pool.Start(context.Background()) }()
	select {
	case err := <-done:
		if !errors.Is(err, workers.ErrPoolShutdown) {
			t.Errorf("got %v, want ErrPoolShutdown", err)
		}
	case <-time.After(5 * time.Second):
		pool.Stop()
		t.Fatal("pool ignored shutdown request")
	}
}

func TestConsecutiveErrorShutdown(t *testing.T) {
	p := newStub()
	p.checkoutErr = errors.New("store down")
	pool := workers.New[testTask](p, workers.Options{}, fast(workers.WithMiddleware(workers.ConsecutiveErrorShutdown(2)))...)

	done := make(chan error, 1)
	go func() { done <- pool.Start(context.Background()) }()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("start: %v", err)
		}
	case <-time.After(5 * time.Second):
		pool.Stop()
		t.Fatal("worker kept running after repeated errors")
	}
}

func TestStartTwice(t *testing.T) {
	p := newStub()
	pool := workers.New[testTask](p, workers.Options{}, fast()...)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- pool.Start(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for !pool.Running() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if err := pool.Start(ctx); !errors.Is(err, workers.ErrPoolRunning) {
		t.Errorf("second start: got %v, want ErrPoolRunning", err)
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("start: %v", err)
	}
}
