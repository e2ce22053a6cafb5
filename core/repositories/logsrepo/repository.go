package logsrepo

import (
	"context"

	"github.com/jrazmi/growlog/core/repositories"
	"github.com/jrazmi/growlog/core/scaffolding/fop"
	"github.com/jrazmi/growlog/core/schema"
	"github.com/jrazmi/growlog/sdk/logger"
)

// Repository provides access to grow log storage.
type Repository struct {
	*repositories.Delegate[Log]
	log *logger.Logger
}

// NewRepository creates a new Log repository
func NewRepository(log *logger.Logger, engine *repositories.Engine) *Repository {
	return &Repository{
		Delegate: repositories.NewDelegate[Log](engine, schema.Log),
		log:      log,
	}
}

func (r *Repository) FindUnique(ctx context.Context, where LogWhereUnique, shape ...fop.Shape) (*Log, error) {
	return r.Delegate.FindUnique(ctx, where.Values(), shape...)
}

func (r *Repository) FindUniqueOrError(ctx context.Context, where LogWhereUnique, shape ...fop.Shape) (Log, error) {
	return r.Delegate.FindUniqueOrError(ctx, where.Values(), shape...)
}

func (r *Repository) Create(ctx context.Context, input CreateLog, shape ...fop.Shape) (Log, error) {
	return r.Delegate.Create(ctx, input.Row(), shape...)
}

func (r *Repository) CreateMany(ctx context.Context, inputs []CreateLog, skipDuplicates bool) (int64, error) {
	rows := make([]repositories.Row, len(inputs))
	for i, in := range inputs {
		rows[i] = in.Row()
	}
	return r.Delegate.CreateMany(ctx, rows, skipDuplicates)
}

func (r *Repository) Update(ctx context.Context, where LogWhereUnique, input UpdateLog, shape ...fop.Shape) (Log, error) {
	return r.Delegate.Update(ctx, where.Values(), input.Row(), shape...)
}

func (r *Repository) UpdateMany(ctx context.Context, where fop.Predicate, input UpdateLog) (int64, error) {
	return r.Delegate.UpdateMany(ctx, where, input.Row())
}

func (r *Repository) Upsert(ctx context.Context, where LogWhereUnique, create CreateLog, update UpdateLog, shape ...fop.Shape) (Log, error) {
	return r.Delegate.Upsert(ctx, where.Values(), create.Row(), update.Row(), shape...)
}

func (r *Repository) Delete(ctx context.Context, where LogWhereUnique, shape ...fop.Shape) (Log, error) {
	return r.Delegate.Delete(ctx, where.Values(), shape...)
}

// Latest returns the newest entry of a plant, or nil when it has none.
func (r *Repository) Latest(ctx context.Context, plantID string, shape ...fop.Shape) (*Log, error) {
	args := fop.FindArgs{
		Where:   ForPlant(plantID),
		OrderBy: []fop.Order{fop.Desc("date")},
	}
	if len(shape) > 0 {
		args.Shape = shape[0]
	}
	return r.FindFirst(ctx, args)
}
