package client

import (
	"context"

	"github.com/jrazmi/growlog/core/repositories"
	"github.com/jrazmi/growlog/core/scaffolding/fop"
	"github.com/jrazmi/growlog/core/schema"
)

// lazyStore connects on the first call and forwards to the backend.
type lazyStore struct {
	conn *connection
}

func (s lazyStore) db(ctx context.Context) (repositories.Database, error) {
	b, err := s.conn.get(ctx)
	if err != nil {
		return nil, err
	}
	return b.db, nil
}

func (s lazyStore) Find(ctx context.Context, m *schema.Model, q repositories.Query) ([]repositories.Row, error) {
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}
	return db.Find(ctx, m, q)
}

func (s lazyStore) Insert(ctx context.Context, m *schema.Model, rows []repositories.Row, skipDuplicates bool) ([]repositories.Row, error) {
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}
	return db.Insert(ctx, m, rows, skipDuplicates)
}

func (s lazyStore) Update(ctx context.Context, m *schema.Model, where fop.Predicate, set repositories.Row) ([]repositories.Row, error) {
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}
	return db.Update(ctx, m, where, set)
}

func (s lazyStore) Delete(ctx context.Context, m *schema.Model, where fop.Predicate, limit int) ([]repositories.Row, error) {
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}
	return db.Delete(ctx, m, where, limit)
}

func (s lazyStore) Aggregate(ctx context.Context, m *schema.Model, q repositories.Query, aggs fop.Aggregates) (fop.AggregateResult, error) {
	db, err := s.db(ctx)
	if err != nil {
		return fop.AggregateResult{}, err
	}
	return db.Aggregate(ctx, m, q, aggs)
}

func (s lazyStore) GroupBy(ctx context.Context, m *schema.Model, q repositories.GroupQuery) ([]fop.GroupRow, error) {
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}
	return db.GroupBy(ctx, m, q)
}

func (s lazyStore) Links(ctx context.Context, link *schema.Link, sources []any) ([]repositories.Pair, error) {
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}
	return db.Links(ctx, link, sources)
}

func (s lazyStore) Link(ctx context.Context, link *schema.Link, pairs []repositories.Pair) error {
	db, err := s.db(ctx)
	if err != nil {
		return err
	}
	return db.Link(ctx, link, pairs)
}

func (s lazyStore) Unlink(ctx context.Context, link *schema.Link, source any, targets []any) error {
	db, err := s.db(ctx)
	if err != nil {
		return err
	}
	return db.Unlink(ctx, link, source, targets)
}

func (s lazyStore) Atomic(ctx context.Context, fn func(repositories.Storer) error) error {
	db, err := s.db(ctx)
	if err != nil {
		return err
	}
	return db.Atomic(ctx, fn)
}

func (s lazyStore) QueryRaw(ctx context.Context, query string, args ...any) ([]repositories.Row, error) {
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}
	return db.QueryRaw(ctx, query, args...)
}

func (s lazyStore) ExecRaw(ctx context.Context, query string, args ...any) (int64, error) {
	db, err := s.db(ctx)
	if err != nil {
		return 0, err
	}
	return db.ExecRaw(ctx, query, args...)
}
