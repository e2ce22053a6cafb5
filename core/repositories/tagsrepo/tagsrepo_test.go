package tagsrepo_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jrazmi/growlog/core/repositories"
	"github.com/jrazmi/growlog/core/repositories/tagsrepo"
	"github.com/jrazmi/growlog/core/scaffolding/fop"
	"github.com/jrazmi/growlog/infrastructure/memorydb"
	"github.com/jrazmi/growlog/sdk/logger"
)

func newRepo() *tagsrepo.Repository {
	log := logger.NewDiscard()
	return tagsrepo.NewRepository(log, repositories.NewEngine(log, memorydb.New()))
}

func TestCreateManySkipsDuplicates(t *testing.T) {
	tags := newRepo()
	ctx := context.Background()

	n, err := tags.CreateMany(ctx, []tagsrepo.CreateTag{{Name: "Indoor"}, {Name: "Indoor"}}, true)
	if err != nil {
		t.Fatalf("create many: %v", err)
	}
	if n != 1 {
		t.Errorf("created %d, want 1", n)
	}
	total, err := tags.Count(ctx, fop.FindArgs{})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 1 {
		t.Errorf("stored %d tags, want 1", total)
	}

	_, err = tags.CreateMany(ctx, []tagsrepo.CreateTag{{Name: "Outdoor"}, {Name: "Indoor"}}, false)
	if !errors.Is(err, repositories.ErrUniqueViolation) {
		t.Fatalf("got %v, want ErrUniqueViolation", err)
	}
	total, err = tags.Count(ctx, fop.FindArgs{})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 1 {
		t.Errorf("failed batch left %d tags, want 1", total)
	}
}

func TestUpsertByName(t *testing.T) {
	tags := newRepo()
	ctx := context.Background()
	green := "#0f0"

	first, err := tags.Upsert(ctx, tagsrepo.ByName("Autoflower"), tagsrepo.CreateTag{Name: "Autoflower"}, tagsrepo.UpdateTag{Color: fop.Set(green)})
	if err != nil {
		t.Fatalf("upsert create: %v", err)
	}
	if first.Color != nil {
		t.Errorf("created with color %q", *first.Color)
	}

	second, err := tags.Upsert(ctx, tagsrepo.ByName("Autoflower"), tagsrepo.CreateTag{Name: "Autoflower"}, tagsrepo.UpdateTag{Color: fop.Set(green)})
	if err != nil {
		t.Fatalf("upsert update: %v", err)
	}
	if second.ID != first.ID || second.Color == nil || *second.Color != green {
		t.Errorf("second upsert = %+v", second)
	}

	cleared, err := tags.Update(ctx, tagsrepo.ByID(first.ID), tagsrepo.UpdateTag{Color: fop.Null[string]()})
	if err != nil {
		t.Fatalf("clear color: %v", err)
	}
	if cleared.Color != nil {
		t.Errorf("color not cleared: %q", *cleared.Color)
	}
}

func TestFindUniqueRequiresCriteria(t *testing.T) {
	tags := newRepo()

	_, err := tags.FindUnique(context.Background(), tagsrepo.TagWhereUnique{})
	if !errors.Is(err, repositories.ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}
}
