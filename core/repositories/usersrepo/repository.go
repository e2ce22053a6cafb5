package usersrepo

import (
	"context"
	"slices"

	"github.com/jrazmi/growlog/core/repositories"
	"github.com/jrazmi/growlog/core/scaffolding/fop"
	"github.com/jrazmi/growlog/core/schema"
	"github.com/jrazmi/growlog/sdk/logger"
)

// Repository provides access to user storage. It embeds the generic
// delegate for reads and statistics and overrides the methods taking unique
// criteria or write data with typed inputs.
type Repository struct {
	*repositories.Delegate[User]
	log *logger.Logger
}

// NewRepository creates a new User repository
func NewRepository(log *logger.Logger, engine *repositories.Engine) *Repository {
	return &Repository{
		Delegate: repositories.NewDelegate[User](engine, schema.User),
		log:      log,
	}
}

func (r *Repository) FindUnique(ctx context.Context, where UserWhereUnique, shape ...fop.Shape) (*User, error) {
	return r.Delegate.FindUnique(ctx, where.Values(), shape...)
}

func (r *Repository) FindUniqueOrError(ctx context.Context, where UserWhereUnique, shape ...fop.Shape) (User, error) {
	return r.Delegate.FindUniqueOrError(ctx, where.Values(), shape...)
}

func (r *Repository) Create(ctx context.Context, input CreateUser, shape ...fop.Shape) (User, error) {
	return r.Delegate.Create(ctx, input.Row(), shape...)
}

func (r *Repository) CreateMany(ctx context.Context, inputs []CreateUser, skipDuplicates bool) (int64, error) {
	rows := make([]repositories.Row, len(inputs))
	for i, in := range inputs {
		rows[i] = in.Row()
	}
	return r.Delegate.CreateMany(ctx, rows, skipDuplicates)
}

func (r *Repository) Update(ctx context.Context, where UserWhereUnique, input UpdateUser, shape ...fop.Shape) (User, error) {
	return r.Delegate.Update(ctx, where.Values(), input.Row(), shape...)
}

func (r *Repository) UpdateMany(ctx context.Context, where fop.Predicate, input UpdateUser) (int64, error) {
	return r.Delegate.UpdateMany(ctx, where, input.Row())
}

func (r *Repository) Upsert(ctx context.Context, where UserWhereUnique, create CreateUser, update UpdateUser, shape ...fop.Shape) (User, error) {
	return r.Delegate.Upsert(ctx, where.Values(), create.Row(), update.Row(), shape...)
}

func (r *Repository) Delete(ctx context.Context, where UserWhereUnique, shape ...fop.Shape) (User, error) {
	return r.Delegate.Delete(ctx, where.Values(), shape...)
}

// Grant adds permissions to a user, keeping the ones already held.
func (r *Repository) Grant(ctx context.Context, where UserWhereUnique, perms ...schema.Permission) (User, error) {
	var out User
	err := r.Engine().Store.Atomic(ctx, func(s repositories.Storer) error {
		tx := NewRepository(r.log, r.Engine().WithStore(s))
		u, err := tx.FindUniqueOrError(ctx, where, fop.Shape{Select: []string{"id", "permissions"}})
		if err != nil {
			return err
		}
		held := slices.Clone(u.Permissions)
		for _, p := range perms {
			if !slices.Contains(held, p) {
				held = append(held, p)
			}
		}
		now := r.Engine().Time()
		out, err = tx.Update(ctx, ByID(u.ID), UpdateUser{Permissions: &held, UpdatedAt: &now})
		return err
	})
	if err != nil {
		return User{}, err
	}
	r.log.DebugContext(ctx, "granted permissions", "user", out.ID, "permissions", perms)
	return out, nil
}
