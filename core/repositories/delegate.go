package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"time"

	"github.com/jrazmi/growlog/core/scaffolding/fop"
	"github.com/jrazmi/growlog/core/schema"
)

// Delegate implements the operations shared by every model. T is the record
// type results decode into; Delegate[Row] returns rows as they are.
//
// The per-model repositories embed a Delegate and override the write
// methods with typed inputs.
type Delegate[T any] struct {
	engine *Engine
	model  *schema.Model
}

// NewDelegate returns the delegate of the named model.
func NewDelegate[T any](e *Engine, model string) *Delegate[T] {
	return &Delegate[T]{engine: e, model: e.model(model)}
}

// Model returns the schema model the delegate serves.
func (d *Delegate[T]) Model() *schema.Model {
	return d.model
}

// Engine returns the engine the delegate runs on.
func (d *Delegate[T]) Engine() *Engine {
	return d.engine
}

func (d *Delegate[T]) observe(ctx context.Context, action string, start time.Time, err *error) {
	d.engine.observe(ctx, d.model.Name, action, start, *err)
}

func (d *Delegate[T]) wrap(action string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s %s: %w", d.model.Name, action, err)
}

func shapeOf(shape []fop.Shape) fop.Shape {
	if len(shape) == 0 {
		return fop.Shape{}
	}
	return shape[0]
}

// FindUnique returns the row identified by criteria, or nil when there is
// none. criteria must name a unique key.
func (d *Delegate[T]) FindUnique(ctx context.Context, criteria map[string]any, shape ...fop.Shape) (rec *T, err error) {
	defer d.observe(ctx, "findUnique", time.Now(), &err)
	rows, err := d.findUniqueRows(ctx, d.engine, criteria, shapeOf(shape))
	if err != nil {
		return nil, d.wrap("findUnique", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	out, err := decode[T](rows[0])
	if err != nil {
		return nil, d.wrap("findUnique", err)
	}
	return &out, nil
}

// FindUniqueOrError is FindUnique failing with ErrNotFound on absence.
func (d *Delegate[T]) FindUniqueOrError(ctx context.Context, criteria map[string]any, shape ...fop.Shape) (T, error) {
	rec, err := d.FindUnique(ctx, criteria, shape...)
	if err != nil {
		var zero T
		return zero, err
	}
	if rec == nil {
		var zero T
		return zero, d.wrap("findUniqueOrError", RecordNotFound(d.model.Name, "findUniqueOrError"))
	}
	return *rec, nil
}

func (d *Delegate[T]) findUniqueRows(ctx context.Context, e *Engine, criteria map[string]any, shape fop.Shape) ([]Row, error) {
	where, err := fop.NormalizeUnique(d.model, criteria, "where")
	if err != nil {
		return nil, err
	}
	if shape, err = fop.NormalizeShape(e.Schema, d.model, shape, ""); err != nil {
		return nil, err
	}
	rows, err := e.Store.Find(ctx, d.model, Query{Where: fop.UniquePredicate(where), Take: 1})
	if err != nil {
		return nil, err
	}
	return e.applyShape(ctx, d.model, rows, shape)
}

// FindFirst returns the first row args select, or nil.
func (d *Delegate[T]) FindFirst(ctx context.Context, args fop.FindArgs) (rec *T, err error) {
	defer d.observe(ctx, "findFirst", time.Now(), &err)
	if args.Take == nil || *args.Take >= 0 {
		args.Take = fop.Take(1)
	} else {
		args.Take = fop.Take(-1)
	}
	rows, err := d.findRows(ctx, args)
	if err != nil {
		return nil, d.wrap("findFirst", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	out, err := decode[T](rows[0])
	if err != nil {
		return nil, d.wrap("findFirst", err)
	}
	return &out, nil
}

// FindFirstOrError is FindFirst failing with ErrNotFound on absence.
func (d *Delegate[T]) FindFirstOrError(ctx context.Context, args fop.FindArgs) (T, error) {
	rec, err := d.FindFirst(ctx, args)
	if err != nil {
		var zero T
		return zero, err
	}
	if rec == nil {
		var zero T
		return zero, d.wrap("findFirstOrError", RecordNotFound(d.model.Name, "findFirstOrError"))
	}
	return *rec, nil
}

// FindMany returns the rows args select, in order.
func (d *Delegate[T]) FindMany(ctx context.Context, args fop.FindArgs) (recs []T, err error) {
	defer d.observe(ctx, "findMany", time.Now(), &err)
	rows, err := d.findRows(ctx, args)
	if err != nil {
		return nil, d.wrap("findMany", err)
	}
	recs = make([]T, 0, len(rows))
	for _, r := range rows {
		rec, err := decode[T](r)
		if err != nil {
			return nil, d.wrap("findMany", err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// Iterate runs the query when the sequence is first ranged over and yields
// its rows in order. Ranging again re-issues the query.
func (d *Delegate[T]) Iterate(ctx context.Context, args fop.FindArgs) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		recs, err := d.FindMany(ctx, args)
		if err != nil {
			var zero T
			yield(zero, err)
			return
		}
		for _, rec := range recs {
			if !yield(rec, nil) {
				return
			}
		}
	}
}

func (d *Delegate[T]) findRows(ctx context.Context, args fop.FindArgs) ([]Row, error) {
	args, err := fop.NormalizeFindArgs(d.engine.Schema, d.model, args, "")
	if err != nil {
		return nil, err
	}
	return d.engine.findRows(ctx, d.model, args)
}

// Create inserts one row. data holds field values by name and, for
// many-to-many relations, the ids to connect.
func (d *Delegate[T]) Create(ctx context.Context, data Row, shape ...fop.Shape) (rec T, err error) {
	defer d.observe(ctx, "create", time.Now(), &err)
	row, err := d.create(ctx, data, shapeOf(shape))
	if err != nil {
		return rec, d.wrap("create", err)
	}
	rec, err = decode[T](row)
	return rec, d.wrap("create", err)
}

func (d *Delegate[T]) create(ctx context.Context, data Row, shape fop.Shape) (Row, error) {
	e := d.engine
	shape, err := fop.NormalizeShape(e.Schema, d.model, shape, "")
	if err != nil {
		return nil, err
	}
	scalars, links, err := splitData(d.model, data, "data")
	if err != nil {
		return nil, err
	}
	row, err := e.prepareInsert(d.model, scalars, "data")
	if err != nil {
		return nil, err
	}

	var created Row
	write := func(s Storer) error {
		rows, err := s.Insert(ctx, d.model, []Row{row}, false)
		if err != nil {
			return err
		}
		if len(rows) != 1 {
			return fmt.Errorf("insert returned %d rows", len(rows))
		}
		if err := applyLinks(ctx, s, rows[0][d.model.PrimaryKey().Name], links); err != nil {
			return err
		}
		shaped, err := e.WithStore(s).applyShape(ctx, d.model, rows, shape)
		if err != nil {
			return err
		}
		created = shaped[0]
		return nil
	}
	if len(links) == 0 {
		err = write(e.Store)
	} else {
		err = e.Store.Atomic(ctx, write)
	}
	return created, err
}

// CreateMany inserts rows and reports how many were inserted. With
// skipDuplicates, rows conflicting on a unique key are skipped.
func (d *Delegate[T]) CreateMany(ctx context.Context, data []Row, skipDuplicates bool) (n int64, err error) {
	defer d.observe(ctx, "createMany", time.Now(), &err)
	rows := make([]Row, 0, len(data))
	for i, item := range data {
		path := fmt.Sprintf("data[%d]", i)
		scalars, links, err := splitData(d.model, item, path)
		if err != nil {
			return 0, d.wrap("createMany", err)
		}
		if len(links) > 0 {
			return 0, d.wrap("createMany", fop.Invalid(path, "createMany does not accept relation writes"))
		}
		row, err := d.engine.prepareInsert(d.model, scalars, path)
		if err != nil {
			return 0, d.wrap("createMany", err)
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	inserted, err := d.engine.Store.Insert(ctx, d.model, rows, skipDuplicates)
	if err != nil {
		return 0, d.wrap("createMany", err)
	}
	return int64(len(inserted)), nil
}

// Update changes the row identified by criteria and fails with ErrNotFound
// when there is none. updatedAt is not stamped; callers set it.
func (d *Delegate[T]) Update(ctx context.Context, criteria map[string]any, data Row, shape ...fop.Shape) (rec T, err error) {
	defer d.observe(ctx, "update", time.Now(), &err)
	row, err := d.update(ctx, d.engine, criteria, data, shapeOf(shape))
	if err != nil {
		return rec, d.wrap("update", err)
	}
	rec, err = decode[T](row)
	return rec, d.wrap("update", err)
}

func (d *Delegate[T]) update(ctx context.Context, e *Engine, criteria map[string]any, data Row, shape fop.Shape) (Row, error) {
	where, err := fop.NormalizeUnique(d.model, criteria, "where")
	if err != nil {
		return nil, err
	}
	if shape, err = fop.NormalizeShape(e.Schema, d.model, shape, ""); err != nil {
		return nil, err
	}
	scalars, links, err := splitData(d.model, data, "data")
	if err != nil {
		return nil, err
	}
	set, err := prepareUpdate(d.model, scalars, "data")
	if err != nil {
		return nil, err
	}

	var updated Row
	write := func(s Storer) error {
		var (
			rows []Row
			err  error
		)
		if len(set) == 0 {
			rows, err = s.Find(ctx, d.model, Query{Where: fop.UniquePredicate(where), Take: 1})
		} else {
			rows, err = s.Update(ctx, d.model, fop.UniquePredicate(where), set)
		}
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return RecordNotFound(d.model.Name, "update")
		}
		if err := applyLinks(ctx, s, rows[0][d.model.PrimaryKey().Name], links); err != nil {
			return err
		}
		shaped, err := e.WithStore(s).applyShape(ctx, d.model, rows[:1], shape)
		if err != nil {
			return err
		}
		updated = shaped[0]
		return nil
	}
	if len(links) == 0 {
		err = write(e.Store)
	} else {
		err = e.Store.Atomic(ctx, write)
	}
	return updated, err
}

// UpdateMany changes every row matching where and reports how many changed.
func (d *Delegate[T]) UpdateMany(ctx context.Context, where fop.Predicate, data Row) (n int64, err error) {
	defer d.observe(ctx, "updateMany", time.Now(), &err)
	e := d.engine
	if where, err = fop.NormalizeWhere(e.Schema, d.model, where, "where"); err != nil {
		return 0, d.wrap("updateMany", err)
	}
	scalars, links, err := splitData(d.model, data, "data")
	if err != nil {
		return 0, d.wrap("updateMany", err)
	}
	if len(links) > 0 {
		return 0, d.wrap("updateMany", fop.Invalid("data", "updateMany does not accept relation writes"))
	}
	set, err := prepareUpdate(d.model, scalars, "data")
	if err != nil {
		return 0, d.wrap("updateMany", err)
	}
	if len(set) == 0 {
		res, err := e.Store.Aggregate(ctx, d.model, All(where), fop.Aggregates{Count: []string{fop.CountAll}})
		if err != nil {
			return 0, d.wrap("updateMany", err)
		}
		return res.Count[fop.CountAll], nil
	}
	rows, err := e.Store.Update(ctx, d.model, where, set)
	if err != nil {
		return 0, d.wrap("updateMany", err)
	}
	return int64(len(rows)), nil
}

// Upsert updates the row identified by criteria, or creates it from create
// when there is none. Criteria values missing from create are copied in.
func (d *Delegate[T]) Upsert(ctx context.Context, criteria map[string]any, create, update Row, shape ...fop.Shape) (rec T, err error) {
	defer d.observe(ctx, "upsert", time.Now(), &err)
	var row Row
	err = d.engine.Store.Atomic(ctx, func(s Storer) error {
		e := d.engine.WithStore(s)
		existing, err := d.findUniqueRows(ctx, e, criteria, fop.Shape{})
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			row, err = d.update(ctx, e, criteria, update, shapeOf(shape))
			return err
		}
		data := create.Clone()
		for k, v := range criteria {
			if _, ok := data[k]; !ok {
				data[k] = v
			}
		}
		row, err = (&Delegate[Row]{engine: e, model: d.model}).create(ctx, data, shapeOf(shape))
		return err
	})
	if err != nil {
		return rec, d.wrap("upsert", err)
	}
	rec, err = decode[T](row)
	return rec, d.wrap("upsert", err)
}

// Delete removes the row identified by criteria and returns it as it was.
func (d *Delegate[T]) Delete(ctx context.Context, criteria map[string]any, shape ...fop.Shape) (rec T, err error) {
	defer d.observe(ctx, "delete", time.Now(), &err)
	var row Row
	err = d.engine.Store.Atomic(ctx, func(s Storer) error {
		e := d.engine.WithStore(s)
		rows, err := d.findUniqueRows(ctx, e, criteria, shapeOf(shape))
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return RecordNotFound(d.model.Name, "delete")
		}
		where, _ := fop.NormalizeUnique(d.model, criteria, "where")
		deleted, err := s.Delete(ctx, d.model, fop.UniquePredicate(where), 1)
		if err != nil {
			return err
		}
		if len(deleted) == 0 {
			return RecordNotFound(d.model.Name, "delete")
		}
		row = rows[0]
		return nil
	})
	if err != nil {
		return rec, d.wrap("delete", err)
	}
	rec, err = decode[T](row)
	return rec, d.wrap("delete", err)
}

// DeleteMany removes the rows matching where, at most limit of them when
// limit is positive, and reports how many were removed.
func (d *Delegate[T]) DeleteMany(ctx context.Context, where fop.Predicate, limit int) (n int64, err error) {
	defer d.observe(ctx, "deleteMany", time.Now(), &err)
	if limit < 0 {
		return 0, d.wrap("deleteMany", fop.Invalid("limit", "must not be negative"))
	}
	if where, err = fop.NormalizeWhere(d.engine.Schema, d.model, where, "where"); err != nil {
		return 0, d.wrap("deleteMany", err)
	}
	rows, err := d.engine.Store.Delete(ctx, d.model, where, limit)
	if err != nil {
		return 0, d.wrap("deleteMany", err)
	}
	return int64(len(rows)), nil
}

// Count reports how many rows args select. Shape and distinct do not apply.
func (d *Delegate[T]) Count(ctx context.Context, args fop.FindArgs) (n int64, err error) {
	defer d.observe(ctx, "count", time.Now(), &err)
	if !args.Shape.Empty() || len(args.Distinct) > 0 {
		return 0, d.wrap("count", fop.Invalid("", "count does not accept select, include, omit or distinct"))
	}
	res, err := d.aggregate(ctx, fop.AggregateArgs{
		Where: args.Where, OrderBy: args.OrderBy, Cursor: args.Cursor, Take: args.Take, Skip: args.Skip,
		Aggregates: fop.Aggregates{Count: []string{fop.CountAll}},
	})
	if err != nil {
		return 0, d.wrap("count", err)
	}
	return res.Count[fop.CountAll], nil
}

// Aggregate computes aggregates over the rows args select.
func (d *Delegate[T]) Aggregate(ctx context.Context, args fop.AggregateArgs) (res fop.AggregateResult, err error) {
	defer d.observe(ctx, "aggregate", time.Now(), &err)
	res, err = d.aggregate(ctx, args)
	return res, d.wrap("aggregate", err)
}

func (d *Delegate[T]) aggregate(ctx context.Context, args fop.AggregateArgs) (fop.AggregateResult, error) {
	e := d.engine
	args, err := fop.NormalizeAggregateArgs(e.Schema, d.model, args)
	if err != nil {
		return fop.AggregateResult{}, err
	}
	w, err := e.resolveWindow(ctx, d.model, fop.FindArgs{
		Where: args.Where, OrderBy: args.OrderBy, Cursor: args.Cursor, Take: args.Take, Skip: args.Skip,
	})
	if err != nil {
		return fop.AggregateResult{}, err
	}
	if w.empty {
		w.where = fop.Or{}
	}
	return e.Store.Aggregate(ctx, d.model, Query{Where: w.where, OrderBy: w.scan, Take: w.take, Skip: w.skip}, args.Aggregates)
}

// GroupBy groups the rows matching args.Where by args.By.
func (d *Delegate[T]) GroupBy(ctx context.Context, args fop.GroupByArgs) (groups []fop.GroupRow, err error) {
	defer d.observe(ctx, "groupBy", time.Now(), &err)
	if args, err = fop.NormalizeGroupBy(d.engine.Schema, d.model, args); err != nil {
		return nil, d.wrap("groupBy", err)
	}
	q := GroupQuery{
		Where:      args.Where,
		By:         args.By,
		Having:     args.Having,
		OrderBy:    args.OrderBy,
		Take:       -1,
		Skip:       args.Skip,
		Aggregates: args.Aggregates,
	}
	if args.Take != nil {
		q.Take = *args.Take
		if q.Take < 0 {
			return nil, d.wrap("groupBy", fop.Invalid("take", "groupBy does not page backwards"))
		}
	}
	groups, err = d.engine.Store.GroupBy(ctx, d.model, q)
	return groups, d.wrap("groupBy", err)
}

// decode converts a row into T through its JSON form.
func decode[T any](row Row) (T, error) {
	var out T
	if r, ok := any(&out).(*Row); ok {
		*r = row
		return out, nil
	}
	data, err := json.Marshal(row)
	if err != nil {
		return out, fmt.Errorf("encode row: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decode row: %w", err)
	}
	return out, nil
}
