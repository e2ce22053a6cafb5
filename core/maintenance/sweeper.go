// Package maintenance holds background jobs over the data-access layer.
package maintenance

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jrazmi/growlog/core/repositories/sessionsrepo"
	"github.com/jrazmi/growlog/core/scaffolding/fop"
	"github.com/jrazmi/growlog/infrastructure/workers"
	"github.com/jrazmi/growlog/sdk/cryptids"
	"github.com/jrazmi/growlog/sdk/logger"
)

// DefaultBatchSize bounds the sessions removed by one sweep.
const DefaultBatchSize = 500

// SweepTask removes up to Limit sessions that expired before Before.
type SweepTask struct {
	ID      string
	Before  time.Time
	Limit   int
	Removed int64
}

func (t SweepTask) GetID() string { return t.ID }

// SessionSweeper deletes expired sessions. It is a workers.Processor; one
// sweep runs at a time however many workers poll it.
type SessionSweeper struct {
	sessions *sessionsrepo.Repository
	log      *logger.Logger
	now      func() time.Time
	batch    int

	mu       sync.Mutex
	sweeping bool
	removed  atomic.Int64
}

var _ workers.Processor[SweepTask] = (*SessionSweeper)(nil)

// NewSessionSweeper returns a sweeper removing at most batch sessions per
// task; batch <= 0 uses DefaultBatchSize.
func NewSessionSweeper(log *logger.Logger, sessions *sessionsrepo.Repository, batch int) *SessionSweeper {
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	return &SessionSweeper{sessions: sessions, log: log, now: time.Now, batch: batch}
}

// WithClock replaces the time source, for tests.
func (s *SessionSweeper) WithClock(now func() time.Time) *SessionSweeper {
	s.now = now
	return s
}

// Removed reports how many sessions the sweeper has deleted.
func (s *SessionSweeper) Removed() int64 {
	return s.removed.Load()
}

// Checkout hands out a sweep when expired sessions exist.
func (s *SessionSweeper) Checkout(ctx context.Context, workerID string) (SweepTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sweeping {
		return SweepTask{}, workers.ErrNoWorkAvailable
	}

	now := s.now().UTC()
	n, err := s.sessions.Count(ctx, fop.FindArgs{Where: sessionsrepo.ExpiredBy(now)})
	if err != nil {
		return SweepTask{}, fmt.Errorf("counting expired sessions: %w", err)
	}
	if n == 0 {
		return SweepTask{}, workers.ErrNoWorkAvailable
	}
	id, err := cryptids.GenerateID()
	if err != nil {
		return SweepTask{}, err
	}
	s.sweeping = true
	s.log.DebugContext(ctx, "sweep checked out", "worker_id", workerID, "expired", n)
	return SweepTask{ID: id, Before: now, Limit: s.batch}, nil
}

func (s *SessionSweeper) Process(ctx context.Context, task SweepTask) (SweepTask, error) {
	n, err := s.sessions.DeleteExpired(ctx, task.Before, task.Limit)
	if err != nil {
		return task, err
	}
	task.Removed = n
	return task, nil
}

func (s *SessionSweeper) Complete(ctx context.Context, task SweepTask, took time.Duration) error {
	s.finish()
	s.removed.Add(task.Removed)
	s.log.InfoContext(ctx, "sweep complete", "task_id", task.ID, "removed", task.Removed, "took", took)
	return nil
}

func (s *SessionSweeper) Fail(ctx context.Context, task SweepTask, err error) error {
	s.finish()
	s.log.ErrorContext(ctx, "sweep failed", "task_id", task.ID, "error", err)
	return nil
}

func (s *SessionSweeper) finish() {
	s.mu.Lock()
	s.sweeping = false
	s.mu.Unlock()
}

// Drain sweeps in batches until no expired session is left and returns the
// number removed.
func (s *SessionSweeper) Drain(ctx context.Context) (int64, error) {
	var total int64
	before := s.now().UTC()
	for {
		n, err := s.sessions.DeleteExpired(ctx, before, s.batch)
		if err != nil {
			return total, err
		}
		total += n
		if n < int64(s.batch) {
			s.removed.Add(total)
			return total, nil
		}
	}
}
