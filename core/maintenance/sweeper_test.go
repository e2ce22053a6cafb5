package maintenance_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jrazmi/growlog/core/maintenance"
	"github.com/jrazmi/growlog/core/repositories"
	"github.com/jrazmi/growlog/core/repositories/sessionsrepo"
	"github.com/jrazmi/growlog/core/repositories/usersrepo"
	"github.com/jrazmi/growlog/core/scaffolding/fop"
	"github.com/jrazmi/growlog/infrastructure/memorydb"
	"github.com/jrazmi/growlog/infrastructure/workers"
	"github.com/jrazmi/growlog/sdk/logger"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T, expired, live int) *sessionsrepo.Repository {
	t.Helper()
	log := logger.NewDiscard()
	engine := repositories.NewEngine(log, memorydb.New())
	users := usersrepo.NewRepository(log, engine)
	sessions := sessionsrepo.NewRepository(log, engine)
	ctx := context.Background()

	u, err := users.Create(ctx, usersrepo.CreateUser{Email: "sweeper@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	for i := range expired + live {
		expires := now.Add(-time.Duration(i+1) * time.Minute)
		if i >= expired {
			expires = now.Add(time.Hour)
		}
		in := sessionsrepo.CreateSession{SessionToken: fmt.Sprintf("token-%d", i), UserID: u.ID, Expires: expires}
		if _, err := sessions.Create(ctx, in); err != nil {
			t.Fatal(err)
		}
	}
	return sessions
}

func TestSweeperCycle(t *testing.T) {
	ctx := context.Background()
	sessions := setup(t, 3, 2)
	s := maintenance.NewSessionSweeper(logger.NewDiscard(), sessions, 2).WithClock(func() time.Time { return now })

	task, err := s.Checkout(ctx, "w1")
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if _, err := s.Checkout(ctx, "w2"); !errors.Is(err, workers.ErrNoWorkAvailable) {
		t.Errorf("second checkout during sweep: got %v", err)
	}
	task, err = s.Process(ctx, task)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if task.Removed != 2 {
		t.Errorf("removed %d, want batch of 2", task.Removed)
	}
	if err := s.Complete(ctx, task, time.Millisecond); err != nil {
		t.Fatal(err)
	}

	task, err = s.Checkout(ctx, "w1")
	if err != nil {
		t.Fatalf("checkout remainder: %v", err)
	}
	if task, err = s.Process(ctx, task); err != nil {
		t.Fatal(err)
	}
	_ = s.Complete(ctx, task, time.Millisecond)

	if _, err := s.Checkout(ctx, "w1"); !errors.Is(err, workers.ErrNoWorkAvailable) {
		t.Errorf("checkout with nothing expired: got %v", err)
	}
	if s.Removed() != 3 {
		t.Errorf("total removed = %d, want 3", s.Removed())
	}
	n, err := sessions.Count(ctx, fop.FindArgs{})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("sessions left = %d, want 2", n)
	}
}

func TestSweeperDrain(t *testing.T) {
	sessions := setup(t, 5, 1)
	s := maintenance.NewSessionSweeper(logger.NewDiscard(), sessions, 2).WithClock(func() time.Time { return now })

	n, err := s.Drain(context.Background())
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if n != 5 {
		t.Errorf("drained %d, want 5", n)
	}
}

func TestSweeperInPool(t *testing.T) {
	sessions := setup(t, 4, 1)
	s := maintenance.NewSessionSweeper(logger.NewDiscard(), sessions, 3).WithClock(func() time.Time { return now })
	pool := workers.New[maintenance.SweepTask](s, workers.Options{
		Name:         "sweeper",
		WorkerCount:  2,
		PollInterval: time.Millisecond,
		IdleInterval: 5 * time.Millisecond,
		MaxRetries:   1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- pool.Start(ctx) }()

	deadline := time.After(3 * time.Second)
	for s.Removed() < 4 {
		select {
		case <-deadline:
			t.Fatalf("pool removed %d sessions, want 4", s.Removed())
		case <-time.After(5 * time.Millisecond):
		}
	}
	pool.Stop()
	if err := <-done; err != nil {
		t.Errorf("pool: %v", err)
	}
}
