package sessionsrepo_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jrazmi/growlog/core/repositories"
	"github.com/jrazmi/growlog/core/repositories/sessionsrepo"
	"github.com/jrazmi/growlog/core/repositories/usersrepo"
	"github.com/jrazmi/growlog/infrastructure/memorydb"
	"github.com/jrazmi/growlog/sdk/logger"
)

func TestExpiry(t *testing.T) {
	log := logger.NewDiscard()
	engine := repositories.NewEngine(log, memorydb.New())
	users := usersrepo.NewRepository(log, engine)
	sessions := sessionsrepo.NewRepository(log, engine)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	u, err := users.Create(ctx, usersrepo.CreateUser{Email: "grower@example.com"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	for token, expires := range map[string]time.Time{
		"stale-1": now.Add(-2 * time.Hour),
		"stale-2": now.Add(-time.Minute),
		"edge":    now,
		"live":    now.Add(time.Hour),
	} {
		if _, err := sessions.Create(ctx, sessionsrepo.CreateSession{SessionToken: token, UserID: u.ID, Expires: expires}); err != nil {
			t.Fatalf("create session %s: %v", token, err)
		}
	}

	s, err := sessions.FindValid(ctx, "live", now)
	if err != nil {
		t.Fatalf("find valid: %v", err)
	}
	if s.UserID != u.ID {
		t.Errorf("session user = %s, want %s", s.UserID, u.ID)
	}
	if _, err := sessions.FindValid(ctx, "edge", now); !errors.Is(err, repositories.ErrNotFound) {
		t.Errorf("session expiring now: got %v, want ErrNotFound", err)
	}

	n, err := sessions.DeleteExpired(ctx, now, 2)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 2 {
		t.Errorf("first sweep removed %d, want 2", n)
	}
	n, err = sessions.DeleteExpired(ctx, now, 0)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 1 {
		t.Errorf("second sweep removed %d, want 1", n)
	}
	if _, err := sessions.FindValid(ctx, "live", now); err != nil {
		t.Errorf("live session swept: %v", err)
	}
}
