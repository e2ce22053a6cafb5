package fop

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strings"

	"github.com/jrazmi/growlog/core/schema"
)

// NormalizeWhere checks pred against model m and returns an equivalent
// predicate whose values are in canonical form.
func NormalizeWhere(s *schema.Schema, m *schema.Model, pred Predicate, path string) (Predicate, error) {
	switch p := pred.(type) {
	case nil:
		return nil, nil
	case Condition:
		return normalizeCondition(m, p, path)
	case *Condition:
		return normalizeCondition(m, *p, path)
	case And:
		children, err := normalizeChildren(s, m, p, join(path, "AND"))
		return And(children), err
	case Or:
		children, err := normalizeChildren(s, m, p, join(path, "OR"))
		return Or(children), err
	case Not:
		children, err := normalizeChildren(s, m, p, join(path, "NOT"))
		return Not(children), err
	case RelationFilter:
		return normalizeRelationFilter(s, m, p, path)
	case RelationCount:
		return normalizeRelationCount(m, p, path)
	case HavingCondition:
		return nil, Invalid(path, "aggregate conditions are only allowed in having")
	}
	return nil, Invalid(path, "unsupported predicate %T", pred)
}

func normalizeChildren(s *schema.Schema, m *schema.Model, preds []Predicate, path string) ([]Predicate, error) {
	out := make([]Predicate, 0, len(preds))
	for _, p := range preds {
		n, err := NormalizeWhere(s, m, p, path)
		if err != nil {
			return nil, err
		}
		if n != nil {
			out = append(out, n)
		}
	}
	return out, nil
}

func normalizeCondition(m *schema.Model, c Condition, path string) (Predicate, error) {
	path = join(path, c.Field)
	f, ok := m.Field(c.Field)
	if !ok {
		return nil, Invalid(path, "unknown field on %s", m.Name)
	}
	if c.Op == "" {
		c.Op = OpEquals
	}
	switch c.Mode {
	case "", ModeDefault:
		c.Mode = ModeDefault
	case ModeInsensitive:
		if f.Kind != schema.KindString || f.List {
			return nil, Invalid(path, "mode insensitive requires a string field")
		}
	default:
		return nil, Invalid(path, "unknown mode %q", c.Mode)
	}

	v, err := normalizeOperand(f, c.Op, c.Value)
	if err != nil {
		return nil, Invalid(path, "%s: %v", c.Op, err)
	}
	c.Value = v
	return c, nil
}

func normalizeOperand(f *schema.Field, op Op, v any) (any, error) {
	if f.List {
		switch op {
		case OpEquals:
			if v == nil {
				return nil, nil
			}
			return schema.Normalize(f, v)
		case OpHas:
			if v == nil {
				return nil, errors.New("value required")
			}
			return schema.NormalizeScalar(f, v)
		case OpHasEvery, OpHasSome:
			return schema.Normalize(f, v)
		case OpIsEmpty:
			b, ok := v.(bool)
			if !ok {
				return nil, errors.New("expects a boolean")
			}
			return b, nil
		}
		return nil, fmt.Errorf("not supported on list field %s", f.Name)
	}

	switch op {
	case OpEquals, OpNot:
		if v == nil {
			return nil, nil
		}
		return schema.NormalizeScalar(f, v)
	case OpIn, OpNotIn:
		return normalizeSet(f, v)
	case OpLt, OpLte, OpGt, OpGte:
		if !f.Orderable() {
			return nil, fmt.Errorf("field %s is not comparable", f.Name)
		}
		if v == nil {
			return nil, errors.New("value required")
		}
		return schema.NormalizeScalar(f, v)
	case OpContains, OpStartsWith, OpEndsWith:
		if f.Kind != schema.KindString {
			return nil, errors.New("requires a string field")
		}
		s, ok := v.(string)
		if !ok {
			return nil, errors.New("expects a string")
		}
		return s, nil
	}
	return nil, errors.New("unknown operator")
}

func normalizeSet(f *schema.Field, v any) ([]any, error) {
	rv := reflect.ValueOf(v)
	if v == nil || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, errors.New("expects a list of values")
	}
	out := make([]any, 0, rv.Len())
	for i := range rv.Len() {
		elem := rv.Index(i).Interface()
		if elem == nil {
			return nil, errors.New("null in value list")
		}
		n, err := schema.NormalizeScalar(f, elem)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func normalizeRelationFilter(s *schema.Schema, m *schema.Model, p RelationFilter, path string) (Predicate, error) {
	path = join(path, p.Relation)
	r, ok := m.Relation(p.Relation)
	if !ok {
		return nil, Invalid(path, "unknown relation on %s", m.Name)
	}
	switch p.Quantifier {
	case Some, Every, None:
		if r.Kind == schema.ToOne {
			return nil, Invalid(path, "%s applies to to-many relations, use is/isNot", p.Quantifier)
		}
	case Is, IsNot:
		if r.Kind != schema.ToOne {
			return nil, Invalid(path, "%s applies to to-one relations, use some/every/none", p.Quantifier)
		}
	default:
		return nil, Invalid(path, "unknown relation quantifier %q", p.Quantifier)
	}
	target, _ := s.Model(r.Target)
	where, err := NormalizeWhere(s, target, p.Where, join(path, string(p.Quantifier)))
	if err != nil {
		return nil, err
	}
	p.Where = where
	return p, nil
}

func normalizeRelationCount(m *schema.Model, p RelationCount, path string) (Predicate, error) {
	path = join(path, "_count."+p.Relation)
	r, ok := m.Relation(p.Relation)
	if !ok {
		return nil, Invalid(path, "unknown relation on %s", m.Name)
	}
	if r.Kind == schema.ToOne {
		return nil, Invalid(path, "relation counts apply to to-many relations")
	}
	switch p.Op {
	case OpEquals, OpNot, OpLt, OpLte, OpGt, OpGte:
	default:
		return nil, Invalid(path, "operator %s is not supported for counts", p.Op)
	}
	return p, nil
}

// NormalizeUnique checks that criteria name at least one unique key of m and
// returns them with canonical values.
func NormalizeUnique(m *schema.Model, criteria map[string]any, path string) (map[string]any, error) {
	if len(criteria) == 0 {
		return nil, Invalid(path, "at least one unique key of %s is required", m.Name)
	}
	out := make(map[string]any, len(criteria))
	keys := make([]string, 0, len(criteria))
	for name, v := range criteria {
		f, ok := m.Field(name)
		if !ok {
			return nil, Invalid(join(path, name), "unknown field on %s", m.Name)
		}
		if v == nil {
			return nil, Invalid(join(path, name), "unique criteria cannot be null")
		}
		n, err := schema.NormalizeScalar(f, v)
		if err != nil {
			return nil, Invalid(join(path, name), "%v", err)
		}
		out[name] = n
		keys = append(keys, name)
	}
	if !m.IsUniqueKey(keys) {
		return nil, Invalid(path, "%s is not a unique key of %s", strings.Join(sorted(keys), ", "), m.Name)
	}
	return out, nil
}

// UniquePredicate turns normalized unique criteria into an equality filter.
func UniquePredicate(criteria map[string]any) Predicate {
	keys := make([]string, 0, len(criteria))
	for k := range criteria {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	and := make(And, 0, len(keys))
	for _, k := range keys {
		and = append(and, Condition{Field: k, Op: OpEquals, Value: criteria[k], Mode: ModeDefault})
	}
	return Conjoin(and...)
}

// NormalizeOrder checks orders against m and fills default directions.
func NormalizeOrder(m *schema.Model, orders []Order, path string) ([]Order, error) {
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		p := join(path, o.Field)
		f, ok := m.Field(o.Field)
		if !ok {
			return nil, Invalid(p, "unknown field on %s", m.Name)
		}
		if !f.Orderable() {
			return nil, Invalid(p, "field cannot be ordered")
		}
		n, err := normalizeDirection(o.Direction, o.Nulls, p)
		if err != nil {
			return nil, err
		}
		n.Field = o.Field
		out = append(out, n)
	}
	return out, nil
}

func normalizeDirection(d Direction, nulls Nulls, path string) (Order, error) {
	o := Order{Direction: d, Nulls: nulls}
	switch d {
	case "":
		o.Direction = ASC
	case ASC, DESC:
	default:
		return o, Invalid(path, "unknown direction %q", d)
	}
	switch nulls {
	case NullsDefault, NullsFirst, NullsLast:
	default:
		return o, Invalid(path, "unknown nulls placement %q", nulls)
	}
	return o, nil
}

// NormalizeShape checks the projection against m.
func NormalizeShape(s *schema.Schema, m *schema.Model, shape Shape, path string) (Shape, error) {
	if len(shape.Select) > 0 && len(shape.Omit) > 0 {
		return shape, Invalid(path, "select and omit cannot be used together")
	}
	if len(shape.Select) > 0 && len(shape.Include) > 0 {
		return shape, Invalid(path, "select and include cannot be used together")
	}
	for _, name := range shape.Select {
		_, isField := m.Field(name)
		_, isRelation := m.Relation(name)
		if !isField && !isRelation {
			return shape, Invalid(join(path, "select."+name), "unknown field on %s", m.Name)
		}
	}
	for _, name := range shape.Omit {
		if _, ok := m.Field(name); !ok {
			return shape, Invalid(join(path, "omit."+name), "unknown field on %s", m.Name)
		}
	}
	for _, name := range shape.Count {
		r, ok := m.Relation(name)
		if !ok || r.Kind == schema.ToOne {
			return shape, Invalid(join(path, "_count."+name), "not a to-many relation of %s", m.Name)
		}
	}

	selectArgs := make(map[string]*FindArgs, len(shape.SelectArgs))
	for name, a := range shape.SelectArgs {
		p := join(path, "select."+name)
		r, ok := m.Relation(name)
		if !ok || !slices.Contains(shape.Select, name) {
			return shape, Invalid(p, "arguments given for a relation that is not selected")
		}
		if a == nil {
			continue
		}
		if r.Kind == schema.ToOne && !toOneArgs(a) {
			return shape, Invalid(p, "to-one relations only accept select, omit and include")
		}
		target, _ := s.Model(r.Target)
		args, err := NormalizeFindArgs(s, target, *a, p)
		if err != nil {
			return shape, err
		}
		selectArgs[name] = &args
	}
	shape.SelectArgs = selectArgs

	includes := make([]Include, 0, len(shape.Include))
	for _, inc := range shape.Include {
		p := join(path, "include."+inc.Relation)
		r, ok := m.Relation(inc.Relation)
		if !ok {
			return shape, Invalid(p, "unknown relation on %s", m.Name)
		}
		if inc.Args != nil {
			target, _ := s.Model(r.Target)
			if r.Kind == schema.ToOne && !toOneArgs(inc.Args) {
				return shape, Invalid(p, "to-one relations only accept select, omit and include")
			}
			args, err := NormalizeFindArgs(s, target, *inc.Args, p)
			if err != nil {
				return shape, err
			}
			inc.Args = &args
		}
		includes = append(includes, inc)
	}
	shape.Include = includes
	return shape, nil
}

func toOneArgs(a *FindArgs) bool {
	return a.Where == nil && len(a.OrderBy) == 0 && a.Cursor == nil && a.Take == nil && a.Skip == 0 && len(a.Distinct) == 0
}

// NormalizeFindArgs checks find-many arguments against m.
func NormalizeFindArgs(s *schema.Schema, m *schema.Model, args FindArgs, path string) (FindArgs, error) {
	var err error
	if args.Where, err = NormalizeWhere(s, m, args.Where, join(path, "where")); err != nil {
		return args, err
	}
	if args.OrderBy, err = NormalizeOrder(m, args.OrderBy, join(path, "orderBy")); err != nil {
		return args, err
	}
	if args.Cursor != nil {
		if args.Cursor, err = NormalizeUnique(m, args.Cursor, join(path, "cursor")); err != nil {
			return args, err
		}
	}
	if args.Skip < 0 {
		return args, Invalid(join(path, "skip"), "must not be negative")
	}
	for _, name := range args.Distinct {
		f, ok := m.Field(name)
		if !ok {
			return args, Invalid(join(path, "distinct."+name), "unknown field on %s", m.Name)
		}
		if f.List {
			return args, Invalid(join(path, "distinct."+name), "list fields cannot be distinct")
		}
	}
	if args.Shape, err = NormalizeShape(s, m, args.Shape, path); err != nil {
		return args, err
	}
	return args, nil
}

// NormalizeAggregates checks that each function applies to its fields.
func NormalizeAggregates(m *schema.Model, a Aggregates, path string) error {
	for _, agg := range []Agg{AggCount, AggAvg, AggSum, AggMin, AggMax} {
		for _, name := range a.Fields(agg) {
			if err := checkAggregate(m, agg, name, join(path, string(agg)+"."+name)); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkAggregate(m *schema.Model, agg Agg, name, path string) error {
	if agg == AggCount && name == CountAll {
		return nil
	}
	f, ok := m.Field(name)
	if !ok {
		return Invalid(path, "unknown field on %s", m.Name)
	}
	switch agg {
	case AggAvg, AggSum:
		if !f.Numeric() {
			return Invalid(path, "%s requires a numeric field", agg)
		}
	case AggMin, AggMax:
		if !f.Orderable() {
			return Invalid(path, "%s requires a comparable field", agg)
		}
	case AggCount:
	default:
		return Invalid(path, "unknown aggregate %q", agg)
	}
	return nil
}

// NormalizeAggregateArgs checks aggregate arguments against m.
func NormalizeAggregateArgs(s *schema.Schema, m *schema.Model, args AggregateArgs) (AggregateArgs, error) {
	find, err := NormalizeFindArgs(s, m, FindArgs{
		Where: args.Where, OrderBy: args.OrderBy, Cursor: args.Cursor, Take: args.Take, Skip: args.Skip,
	}, "")
	if err != nil {
		return args, err
	}
	args.Where, args.OrderBy, args.Cursor = find.Where, find.OrderBy, find.Cursor
	return args, NormalizeAggregates(m, args.Aggregates, "")
}

// NormalizeGroupBy checks group-by arguments against m. Plain fields
// referenced by orderBy or having must be grouping fields; aggregates may
// name any field their function applies to.
func NormalizeGroupBy(s *schema.Schema, m *schema.Model, args GroupByArgs) (GroupByArgs, error) {
	if len(args.By) == 0 {
		return args, Invalid("by", "at least one grouping field is required")
	}
	for _, name := range args.By {
		f, ok := m.Field(name)
		if !ok {
			return args, Invalid("by."+name, "unknown field on %s", m.Name)
		}
		if f.List {
			return args, Invalid("by."+name, "list fields cannot be grouped")
		}
	}
	var err error
	if args.Where, err = NormalizeWhere(s, m, args.Where, "where"); err != nil {
		return args, err
	}
	if err := NormalizeAggregates(m, args.Aggregates, ""); err != nil {
		return args, err
	}

	orders := make([]GroupOrder, 0, len(args.OrderBy))
	for _, o := range args.OrderBy {
		p := join("orderBy", o.Field)
		if o.Aggregate != "" {
			p = join("orderBy", string(o.Aggregate)+"."+o.Field)
		}
		if o.Aggregate == "" && !slices.Contains(args.By, o.Field) {
			return args, Invalid(p, "field %s must be included in by", o.Field)
		}
		if o.Aggregate != "" {
			if err := checkAggregate(m, o.Aggregate, o.Field, p); err != nil {
				return args, err
			}
		}
		n, err := normalizeDirection(o.Direction, o.Nulls, p)
		if err != nil {
			return args, err
		}
		o.Direction, o.Nulls = n.Direction, n.Nulls
		orders = append(orders, o)
	}
	args.OrderBy = orders

	if (args.Take != nil || args.Skip > 0) && len(args.OrderBy) == 0 {
		return args, Invalid("orderBy", "take and skip require orderBy")
	}
	if args.Skip < 0 {
		return args, Invalid("skip", "must not be negative")
	}
	if args.Having, err = normalizeHaving(m, args.By, args.Having, "having"); err != nil {
		return args, err
	}
	return args, nil
}

func normalizeHaving(m *schema.Model, by []string, pred Predicate, path string) (Predicate, error) {
	switch p := pred.(type) {
	case nil:
		return nil, nil
	case And, Or, Not:
		var (
			children []Predicate
			elem     string
		)
		switch p := p.(type) {
		case And:
			children, elem = p, "AND"
		case Or:
			children, elem = p, "OR"
		case Not:
			children, elem = p, "NOT"
		}
		out := make([]Predicate, 0, len(children))
		for _, c := range children {
			n, err := normalizeHaving(m, by, c, join(path, elem))
			if err != nil {
				return nil, err
			}
			if n != nil {
				out = append(out, n)
			}
		}
		switch p.(type) {
		case And:
			return And(out), nil
		case Or:
			return Or(out), nil
		}
		return Not(out), nil
	case Condition:
		if !slices.Contains(by, p.Field) {
			return nil, Invalid(join(path, p.Field), "field %s must be included in by", p.Field)
		}
		return normalizeCondition(m, p, path)
	case HavingCondition:
		p2 := join(path, string(p.Aggregate)+"."+p.Field)
		if err := checkAggregate(m, p.Aggregate, p.Field, p2); err != nil {
			return nil, err
		}
		switch p.Op {
		case OpEquals, OpNot, OpLt, OpLte, OpGt, OpGte:
		default:
			return nil, Invalid(p2, "operator %s is not supported in having", p.Op)
		}
		v, err := normalizeAggregateValue(m, p)
		if err != nil {
			return nil, Invalid(p2, "%v", err)
		}
		p.Value = v
		return p, nil
	}
	return nil, Invalid(path, "unsupported having predicate %T", pred)
}

func normalizeAggregateValue(m *schema.Model, p HavingCondition) (any, error) {
	if p.Value == nil {
		return nil, nil
	}
	switch p.Aggregate {
	case AggCount:
		return schema.NormalizeScalar(&schema.Field{Name: p.Field, Kind: schema.KindInt}, p.Value)
	case AggAvg:
		return schema.NormalizeScalar(&schema.Field{Name: p.Field, Kind: schema.KindFloat}, p.Value)
	}
	f, _ := m.Field(p.Field)
	return schema.NormalizeScalar(f, p.Value)
}

func sorted(s []string) []string {
	out := slices.Clone(s)
	sort.Strings(out)
	return out
}
