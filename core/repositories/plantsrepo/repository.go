package plantsrepo

import (
	"context"
	"time"

	"github.com/jrazmi/growlog/core/repositories"
	"github.com/jrazmi/growlog/core/scaffolding/fop"
	"github.com/jrazmi/growlog/core/schema"
	"github.com/jrazmi/growlog/sdk/logger"
)

// Repository provides access to plant storage.
type Repository struct {
	*repositories.Delegate[Plant]
	log *logger.Logger
}

// NewRepository creates a new Plant repository
func NewRepository(log *logger.Logger, engine *repositories.Engine) *Repository {
	return &Repository{
		Delegate: repositories.NewDelegate[Plant](engine, schema.Plant),
		log:      log,
	}
}

func (r *Repository) FindUnique(ctx context.Context, where PlantWhereUnique, shape ...fop.Shape) (*Plant, error) {
	return r.Delegate.FindUnique(ctx, where.Values(), shape...)
}

func (r *Repository) FindUniqueOrError(ctx context.Context, where PlantWhereUnique, shape ...fop.Shape) (Plant, error) {
	return r.Delegate.FindUniqueOrError(ctx, where.Values(), shape...)
}

func (r *Repository) Create(ctx context.Context, input CreatePlant, shape ...fop.Shape) (Plant, error) {
	return r.Delegate.Create(ctx, input.Row(), shape...)
}

func (r *Repository) CreateMany(ctx context.Context, inputs []CreatePlant, skipDuplicates bool) (int64, error) {
	rows := make([]repositories.Row, len(inputs))
	for i, in := range inputs {
		rows[i] = in.Row()
	}
	return r.Delegate.CreateMany(ctx, rows, skipDuplicates)
}

func (r *Repository) Update(ctx context.Context, where PlantWhereUnique, input UpdatePlant, shape ...fop.Shape) (Plant, error) {
	return r.Delegate.Update(ctx, where.Values(), input.Row(), shape...)
}

func (r *Repository) UpdateMany(ctx context.Context, where fop.Predicate, input UpdatePlant) (int64, error) {
	return r.Delegate.UpdateMany(ctx, where, input.Row())
}

func (r *Repository) Upsert(ctx context.Context, where PlantWhereUnique, create CreatePlant, update UpdatePlant, shape ...fop.Shape) (Plant, error) {
	return r.Delegate.Upsert(ctx, where.Values(), create.Row(), update.Row(), shape...)
}

func (r *Repository) Delete(ctx context.Context, where PlantWhereUnique, shape ...fop.Shape) (Plant, error) {
	return r.Delegate.Delete(ctx, where.Values(), shape...)
}

// Advance moves a plant to stage at the given time. Reaching HARVEST sets
// the harvest date when none is recorded.
func (r *Repository) Advance(ctx context.Context, where PlantWhereUnique, stage schema.Stage, at time.Time) (Plant, error) {
	var out Plant
	err := r.Engine().Store.Atomic(ctx, func(s repositories.Storer) error {
		tx := NewRepository(r.log, r.Engine().WithStore(s))
		current, err := tx.FindUniqueOrError(ctx, where, fop.Shape{Select: []string{"id", "stage", "harvestDate"}})
		if err != nil {
			return err
		}
		at := at.UTC()
		update := UpdatePlant{Stage: &stage, UpdatedAt: &at}
		if stage == schema.StageHarvest && current.HarvestDate == nil {
			update.HarvestDate = fop.Set(at)
		}
		out, err = tx.Update(ctx, ByID(current.ID), update)
		return err
	})
	if err != nil {
		return Plant{}, err
	}
	r.log.DebugContext(ctx, "plant advanced", "plant", out.ID, "stage", stage)
	return out, nil
}
