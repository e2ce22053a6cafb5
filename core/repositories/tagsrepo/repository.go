package tagsrepo

import (
	"context"

	"github.com/jrazmi/growlog/core/repositories"
	"github.com/jrazmi/growlog/core/scaffolding/fop"
	"github.com/jrazmi/growlog/core/schema"
	"github.com/jrazmi/growlog/sdk/logger"
)

// Repository provides access to tag storage.
type Repository struct {
	*repositories.Delegate[Tag]
	log *logger.Logger
}

// NewRepository creates a new Tag repository
func NewRepository(log *logger.Logger, engine *repositories.Engine) *Repository {
	return &Repository{
		Delegate: repositories.NewDelegate[Tag](engine, schema.Tag),
		log:      log,
	}
}

func (r *Repository) FindUnique(ctx context.Context, where TagWhereUnique, shape ...fop.Shape) (*Tag, error) {
	return r.Delegate.FindUnique(ctx, where.Values(), shape...)
}

func (r *Repository) FindUniqueOrError(ctx context.Context, where TagWhereUnique, shape ...fop.Shape) (Tag, error) {
	return r.Delegate.FindUniqueOrError(ctx, where.Values(), shape...)
}

func (r *Repository) Create(ctx context.Context, input CreateTag, shape ...fop.Shape) (Tag, error) {
	return r.Delegate.Create(ctx, input.Row(), shape...)
}

func (r *Repository) CreateMany(ctx context.Context, inputs []CreateTag, skipDuplicates bool) (int64, error) {
	rows := make([]repositories.Row, len(inputs))
	for i, in := range inputs {
		rows[i] = in.Row()
	}
	return r.Delegate.CreateMany(ctx, rows, skipDuplicates)
}

func (r *Repository) Update(ctx context.Context, where TagWhereUnique, input UpdateTag, shape ...fop.Shape) (Tag, error) {
	return r.Delegate.Update(ctx, where.Values(), input.Row(), shape...)
}

func (r *Repository) UpdateMany(ctx context.Context, where fop.Predicate, input UpdateTag) (int64, error) {
	return r.Delegate.UpdateMany(ctx, where, input.Row())
}

func (r *Repository) Upsert(ctx context.Context, where TagWhereUnique, create CreateTag, update UpdateTag, shape ...fop.Shape) (Tag, error) {
	return r.Delegate.Upsert(ctx, where.Values(), create.Row(), update.Row(), shape...)
}

func (r *Repository) Delete(ctx context.Context, where TagWhereUnique, shape ...fop.Shape) (Tag, error) {
	return r.Delegate.Delete(ctx, where.Values(), shape...)
}
