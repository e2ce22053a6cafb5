package repositories

import (
	"context"
	"fmt"
	"reflect"
	"slices"

	"github.com/jrazmi/growlog/core/scaffolding/fop"
	"github.com/jrazmi/growlog/core/schema"
)

// window is a resolved page request: the scan order (reversed when paging
// backwards) and what to cut from it.
type window struct {
	where    fop.Predicate
	scan     []fop.Order
	take     int // -1: unbounded
	skip     int
	distinct []string
	backward bool
	empty    bool // the cursor row does not exist
}

// resolveWindow turns normalized find arguments into a window, looking up
// the cursor row when there is one.
func (e *Engine) resolveWindow(ctx context.Context, m *schema.Model, args fop.FindArgs) (window, error) {
	w := window{
		where:    args.Where,
		take:     -1,
		skip:     args.Skip,
		distinct: args.Distinct,
	}
	orders := fop.WithTieBreak(args.OrderBy, m.PrimaryKey().Name)
	if args.Take != nil {
		w.take = *args.Take
		if w.take < 0 {
			w.take = -w.take
			w.backward = true
		}
	}
	w.scan = orders
	if w.backward {
		w.scan = fop.ReverseAll(orders)
	}

	if args.Cursor != nil {
		rows, err := e.Store.Find(ctx, m, Query{Where: fop.UniquePredicate(args.Cursor), Take: 1})
		if err != nil {
			return w, err
		}
		if len(rows) == 0 {
			w.empty = true
			return w, nil
		}
		w.where = fop.Conjoin(w.where, cursorPredicate(w.scan, rows[0]))
	}
	return w, nil
}

// cursorPredicate matches the rows at or after cursor in scan order.
func cursorPredicate(scan []fop.Order, cursor Row) fop.Predicate {
	var (
		or     fop.Or
		prefix []fop.Predicate
	)
	for _, o := range scan {
		v := cursor[o.Field]
		if after := afterValue(o, v); after != nil {
			or = append(or, fop.Conjoin(append(slices.Clone(prefix), after)...))
		}
		prefix = append(prefix, fop.Condition{Field: o.Field, Op: fop.OpEquals, Value: v, Mode: fop.ModeDefault})
	}
	return append(or, fop.Conjoin(prefix...))
}

// afterValue matches values of o.Field strictly after v in the order o.
func afterValue(o fop.Order, v any) fop.Predicate {
	isNotNull := fop.Condition{Field: o.Field, Op: fop.OpNot, Value: nil, Mode: fop.ModeDefault}
	isNull := fop.Condition{Field: o.Field, Op: fop.OpEquals, Value: nil, Mode: fop.ModeDefault}
	if v == nil {
		if o.NullsComeFirst() {
			return isNotNull
		}
		return nil
	}
	op := fop.OpGt
	if o.Descending() {
		op = fop.OpLt
	}
	beyond := fop.Condition{Field: o.Field, Op: op, Value: v, Mode: fop.ModeDefault}
	if o.NullsComeFirst() {
		return beyond
	}
	return fop.Or{beyond, isNull}
}

// fetch reads the rows of a window. With pushDown the store applies skip and
// take; otherwise the caller cuts the window, e.g. per relation group.
func (e *Engine) fetch(ctx context.Context, m *schema.Model, w window, pushDown bool) ([]Row, error) {
	if w.empty {
		return []Row{}, nil
	}
	q := Query{Where: w.where, OrderBy: w.scan, Take: -1}
	if pushDown && len(w.distinct) == 0 {
		q.Take, q.Skip = w.take, w.skip
	}
	rows, err := e.Store.Find(ctx, m, q)
	if err != nil {
		return nil, err
	}
	if pushDown {
		if len(w.distinct) > 0 {
			rows = w.cut(rows)
		} else if w.backward {
			slices.Reverse(rows)
		}
	}
	return rows, nil
}

// cut applies distinct, skip and take to rows in scan order and returns
// them in requested order.
func (w window) cut(rows []Row) []Row {
	if len(w.distinct) > 0 {
		rows = distinctRows(rows, w.distinct)
	}
	if w.skip > 0 {
		if w.skip >= len(rows) {
			rows = nil
		} else {
			rows = rows[w.skip:]
		}
	}
	if w.take >= 0 && w.take < len(rows) {
		rows = rows[:w.take]
	}
	out := make([]Row, len(rows))
	copy(out, rows)
	if w.backward {
		slices.Reverse(out)
	}
	return out
}

func distinctRows(rows []Row, fields []string) []Row {
	var (
		out  []Row
		seen []Row
	)
	for _, r := range rows {
		dup := false
		for _, s := range seen {
			if sameValues(r, s, fields) {
				dup = true
				break
			}
		}
		if !dup {
			seen = append(seen, r)
			out = append(out, r)
		}
	}
	return out
}

func sameValues(a, b Row, fields []string) bool {
	for _, f := range fields {
		if !reflect.DeepEqual(a[f], b[f]) {
			return false
		}
	}
	return true
}

// findRows reads and shapes the rows args select.
func (e *Engine) findRows(ctx context.Context, m *schema.Model, args fop.FindArgs) ([]Row, error) {
	w, err := e.resolveWindow(ctx, m, args)
	if err != nil {
		return nil, err
	}
	rows, err := e.fetch(ctx, m, w, true)
	if err != nil {
		return nil, err
	}
	return e.applyShape(ctx, m, rows, args.Shape)
}

// applyShape loads the relations and counts shape asks for and projects the
// scalar fields. The result is aligned with rows.
func (e *Engine) applyShape(ctx context.Context, m *schema.Model, rows []Row, shape fop.Shape) ([]Row, error) {
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	if len(rows) == 0 {
		return out, nil
	}

	for _, inc := range relationsToLoad(m, shape) {
		if err := e.loadRelation(ctx, m, rows, out, inc); err != nil {
			return nil, fmt.Errorf("include %s: %w", inc.Relation, err)
		}
	}
	if len(shape.Count) > 0 {
		if err := e.loadCounts(ctx, m, rows, out, shape.Count); err != nil {
			return nil, fmt.Errorf("count: %w", err)
		}
	}

	omit := shape.Omit
	if len(shape.Select) == 0 {
		omit = append(slices.Clone(e.Omit[m.Name]), omit...)
	}
	for _, r := range out {
		project(m, r, shape.Select, omit)
	}
	return out, nil
}

func relationsToLoad(m *schema.Model, shape fop.Shape) []fop.Include {
	incs := slices.Clone(shape.Include)
	for _, name := range shape.Select {
		if _, ok := m.Relation(name); ok {
			incs = append(incs, fop.Include{Relation: name, Args: shape.SelectArgs[name]})
		}
	}
	return incs
}

func project(m *schema.Model, r Row, sel, omit []string) {
	for _, f := range m.Fields {
		switch {
		case len(sel) > 0 && !slices.Contains(sel, f.Name):
			delete(r, f.Name)
		case slices.Contains(omit, f.Name):
			delete(r, f.Name)
		}
	}
}

func (e *Engine) loadRelation(ctx context.Context, m *schema.Model, rows, out []Row, inc fop.Include) error {
	r, _ := m.Relation(inc.Relation)
	target, _ := e.Schema.Model(r.Target)
	var args fop.FindArgs
	if inc.Args != nil {
		args = *inc.Args
	}
	pk := m.PrimaryKey().Name
	tpk := target.PrimaryKey().Name

	switch r.Kind {
	case schema.ToOne:
		fks := distinctValues(rows, r.ForeignKey)
		byKey := map[any]Row{}
		if len(fks) > 0 {
			children, err := e.Store.Find(ctx, target, All(inCondition(tpk, fks)))
			if err != nil {
				return err
			}
			shaped, err := e.applyShape(ctx, target, children, args.Shape)
			if err != nil {
				return err
			}
			for i, c := range children {
				byKey[c[tpk]] = shaped[i]
			}
		}
		for i, row := range rows {
			if child, ok := byKey[row[r.ForeignKey]]; ok {
				out[i][r.Name] = child
			} else {
				out[i][r.Name] = nil
			}
		}
		return nil

	case schema.ToMany:
		args.Where = fop.Conjoin(inCondition(r.ForeignKey, distinctValues(rows, pk)), args.Where)
		groups, err := e.loadGroups(ctx, target, args, func(c Row) []any { return []any{c[r.ForeignKey]} })
		if err != nil {
			return err
		}
		for i, row := range rows {
			out[i][r.Name] = nonNilRows(groups[row[pk]])
		}
		return nil

	case schema.ManyToMany:
		pairs, err := e.Store.Links(ctx, r.Link, distinctValues(rows, pk))
		if err != nil {
			return err
		}
		sources := map[any][]any{}
		var targets []any
		for _, p := range pairs {
			sources[p.Target] = append(sources[p.Target], p.Source)
			targets = append(targets, p.Target)
		}
		groups := map[any][]Row{}
		if len(targets) > 0 {
			args.Where = fop.Conjoin(inCondition(tpk, targets), args.Where)
			groups, err = e.loadGroups(ctx, target, args, func(c Row) []any { return sources[c[tpk]] })
			if err != nil {
				return err
			}
		}
		for i, row := range rows {
			out[i][r.Name] = nonNilRows(groups[row[pk]])
		}
		return nil
	}
	return fmt.Errorf("unsupported relation kind %d", r.Kind)
}

// loadGroups reads the related rows args select, assigns each to the
// parents keyOf names, and cuts the window per parent.
func (e *Engine) loadGroups(ctx context.Context, target *schema.Model, args fop.FindArgs, keyOf func(Row) []any) (map[any][]Row, error) {
	w, err := e.resolveWindow(ctx, target, args)
	if err != nil {
		return nil, err
	}
	children, err := e.fetch(ctx, target, w, false)
	if err != nil {
		return nil, err
	}
	raw := map[any][]Row{}
	var order []any
	for _, c := range children {
		for _, key := range keyOf(c) {
			if _, ok := raw[key]; !ok {
				order = append(order, key)
			}
			raw[key] = append(raw[key], c)
		}
	}

	groups := make(map[any][]Row, len(raw))
	for _, key := range order {
		cut := w.cut(raw[key])
		shaped, err := e.applyShape(ctx, target, cut, args.Shape)
		if err != nil {
			return nil, err
		}
		groups[key] = shaped
	}
	return groups, nil
}

func (e *Engine) loadCounts(ctx context.Context, m *schema.Model, rows, out []Row, relations []string) error {
	pk := m.PrimaryKey().Name
	ids := distinctValues(rows, pk)
	counts := make([]map[string]int64, len(rows))
	for i := range counts {
		counts[i] = make(map[string]int64, len(relations))
	}

	for _, name := range relations {
		r, _ := m.Relation(name)
		perParent := map[any]int64{}
		switch r.Kind {
		case schema.ToMany:
			target, _ := e.Schema.Model(r.Target)
			groups, err := e.Store.GroupBy(ctx, target, GroupQuery{
				Where:      inCondition(r.ForeignKey, ids),
				By:         []string{r.ForeignKey},
				Take:       -1,
				Aggregates: fop.Aggregates{Count: []string{fop.CountAll}},
			})
			if err != nil {
				return err
			}
			for _, g := range groups {
				perParent[g.Keys[r.ForeignKey]] = g.Count[fop.CountAll]
			}
		case schema.ManyToMany:
			pairs, err := e.Store.Links(ctx, r.Link, ids)
			if err != nil {
				return err
			}
			for _, p := range pairs {
				perParent[p.Source]++
			}
		}
		for i, row := range rows {
			counts[i][name] = perParent[row[pk]]
		}
	}
	for i := range out {
		out[i]["_count"] = counts[i]
	}
	return nil
}

func inCondition(field string, values []any) fop.Predicate {
	return fop.Condition{Field: field, Op: fop.OpIn, Value: values, Mode: fop.ModeDefault}
}

func distinctValues(rows []Row, field string) []any {
	seen := map[any]bool{}
	var out []any
	for _, r := range rows {
		v := r[field]
		if v == nil || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func nonNilRows(rows []Row) []Row {
	if rows == nil {
		return []Row{}
	}
	return rows
}
