package sessionsrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/jrazmi/growlog/core/repositories"
	"github.com/jrazmi/growlog/core/scaffolding/fop"
	"github.com/jrazmi/growlog/core/schema"
	"github.com/jrazmi/growlog/sdk/logger"
)

// Repository provides access to session storage.
type Repository struct {
	*repositories.Delegate[Session]
	log *logger.Logger
}

// NewRepository creates a new Session repository
func NewRepository(log *logger.Logger, engine *repositories.Engine) *Repository {
	return &Repository{
		Delegate: repositories.NewDelegate[Session](engine, schema.Session),
		log:      log,
	}
}

func (r *Repository) FindUnique(ctx context.Context, where SessionWhereUnique, shape ...fop.Shape) (*Session, error) {
	return r.Delegate.FindUnique(ctx, where.Values(), shape...)
}

func (r *Repository) FindUniqueOrError(ctx context.Context, where SessionWhereUnique, shape ...fop.Shape) (Session, error) {
	return r.Delegate.FindUniqueOrError(ctx, where.Values(), shape...)
}

func (r *Repository) Create(ctx context.Context, input CreateSession, shape ...fop.Shape) (Session, error) {
	return r.Delegate.Create(ctx, input.Row(), shape...)
}

func (r *Repository) CreateMany(ctx context.Context, inputs []CreateSession, skipDuplicates bool) (int64, error) {
	rows := make([]repositories.Row, len(inputs))
	for i, in := range inputs {
		rows[i] = in.Row()
	}
	return r.Delegate.CreateMany(ctx, rows, skipDuplicates)
}

func (r *Repository) Update(ctx context.Context, where SessionWhereUnique, input UpdateSession, shape ...fop.Shape) (Session, error) {
	return r.Delegate.Update(ctx, where.Values(), input.Row(), shape...)
}

func (r *Repository) UpdateMany(ctx context.Context, where fop.Predicate, input UpdateSession) (int64, error) {
	return r.Delegate.UpdateMany(ctx, where, input.Row())
}

func (r *Repository) Upsert(ctx context.Context, where SessionWhereUnique, create CreateSession, update UpdateSession, shape ...fop.Shape) (Session, error) {
	return r.Delegate.Upsert(ctx, where.Values(), create.Row(), update.Row(), shape...)
}

func (r *Repository) Delete(ctx context.Context, where SessionWhereUnique, shape ...fop.Shape) (Session, error) {
	return r.Delegate.Delete(ctx, where.Values(), shape...)
}

// FindValid returns the session holding token when it has not expired at
// now, or ErrNotFound.
func (r *Repository) FindValid(ctx context.Context, token string, now time.Time, shape ...fop.Shape) (Session, error) {
	s, err := r.FindUniqueOrError(ctx, ByToken(token), shape...)
	if err != nil {
		return Session{}, err
	}
	if s.Expired(now) {
		return Session{}, fmt.Errorf("session expired at %s: %w", s.Expires.Format(time.RFC3339), repositories.ErrNotFound)
	}
	return s, nil
}

// DeleteExpired removes up to limit sessions expired at now (limit <= 0:
// all of them) and reports how many were removed.
func (r *Repository) DeleteExpired(ctx context.Context, now time.Time, limit int) (int64, error) {
	n, err := r.DeleteMany(ctx, ExpiredBy(now), limit)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		r.log.InfoContext(ctx, "deleted expired sessions", "count", n, "before", now)
	}
	return n, nil
}
