package fop

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"sort"

	"github.com/jrazmi/growlog/core/schema"
)

// ParseWhere reads a JSON filter object such as
//
//	{"userId": "x", "stage": {"in": ["VEGETATIVE"]}, "logs": {"some": {"type": "WATERING"}}}
//
// into a predicate over m. Values are left for NormalizeWhere.
func ParseWhere(s *schema.Schema, m *schema.Model, raw map[string]any, path string) (Predicate, error) {
	var and And
	for _, key := range sortedKeys(raw) {
		v := raw[key]
		switch key {
		case "AND", "OR", "NOT":
			children, err := parseWhereList(s, m, v, join(path, key))
			if err != nil {
				return nil, err
			}
			switch key {
			case "AND":
				and = append(and, And(children))
			case "OR":
				and = append(and, Or(children))
			case "NOT":
				and = append(and, Not(children))
			}
		case "_count":
			counts, err := parseRelationCounts(v, join(path, key))
			if err != nil {
				return nil, err
			}
			and = append(and, counts...)
		default:
			if _, ok := m.Field(key); ok {
				conds, err := parseFieldFilter(key, v, join(path, key))
				if err != nil {
					return nil, err
				}
				and = append(and, conds...)
				continue
			}
			if r, ok := m.Relation(key); ok {
				target, _ := s.Model(r.Target)
				p, err := parseRelationFilter(s, target, r, v, join(path, key))
				if err != nil {
					return nil, err
				}
				and = append(and, p...)
				continue
			}
			return nil, Invalid(join(path, key), "unknown field on %s", m.Name)
		}
	}
	return Conjoin(and...), nil
}

func parseWhereList(s *schema.Schema, m *schema.Model, v any, path string) ([]Predicate, error) {
	switch t := v.(type) {
	case map[string]any:
		p, err := ParseWhere(s, m, t, path)
		if err != nil || p == nil {
			return nil, err
		}
		return []Predicate{p}, nil
	case []any:
		out := make([]Predicate, 0, len(t))
		for i, elem := range t {
			obj, ok := elem.(map[string]any)
			if !ok {
				return nil, Invalid(fmt.Sprintf("%s[%d]", path, i), "expected an object")
			}
			p, err := ParseWhere(s, m, obj, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			if p == nil {
				p = And{}
			}
			out = append(out, p)
		}
		return out, nil
	}
	return nil, Invalid(path, "expected an object or a list of objects")
}

var fieldOps = map[string]Op{
	"equals": OpEquals, "not": OpNot, "in": OpIn, "notIn": OpNotIn,
	"lt": OpLt, "lte": OpLte, "gt": OpGt, "gte": OpGte,
	"contains": OpContains, "startsWith": OpStartsWith, "endsWith": OpEndsWith,
	"has": OpHas, "hasEvery": OpHasEvery, "hasSome": OpHasSome, "isEmpty": OpIsEmpty,
}

func parseFieldFilter(field string, v any, path string) ([]Predicate, error) {
	obj, ok := v.(map[string]any)
	if !ok || !isOperatorObject(obj) {
		return []Predicate{Condition{Field: field, Op: OpEquals, Value: v}}, nil
	}
	mode := ModeDefault
	if raw, ok := obj["mode"]; ok {
		if len(obj) == 1 {
			return nil, Invalid(join(path, "mode"), "mode requires an operator")
		}
		s, _ := raw.(string)
		mode = Mode(s)
	}
	var out []Predicate
	for _, key := range sortedKeys(obj) {
		if key == "mode" {
			continue
		}
		op, ok := fieldOps[key]
		if !ok {
			return nil, Invalid(join(path, key), "unknown operator")
		}
		if nested, ok := obj[key].(map[string]any); ok && op == OpNot && isOperatorObject(nested) {
			if _, has := nested["mode"]; !has && mode != ModeDefault {
				nested = maps.Clone(nested)
				nested["mode"] = string(mode)
			}
			inner, err := parseFieldFilter(field, nested, join(path, key))
			if err != nil {
				return nil, err
			}
			out = append(out, Not(inner))
			continue
		}
		out = append(out, Condition{Field: field, Op: op, Value: obj[key], Mode: mode})
	}
	return out, nil
}

func isOperatorObject(obj map[string]any) bool {
	if len(obj) == 0 {
		return false
	}
	for k := range obj {
		if _, ok := fieldOps[k]; !ok && k != "mode" {
			return false
		}
	}
	return true
}

func parseRelationFilter(s *schema.Schema, target *schema.Model, r *schema.Relation, v any, path string) ([]Predicate, error) {
	if v == nil {
		if r.Kind != schema.ToOne {
			return nil, Invalid(path, "to-many relations cannot be null")
		}
		return []Predicate{RelationFilter{Relation: r.Name, Quantifier: Is}}, nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, Invalid(path, "expected an object")
	}
	quantifiers := []Quantifier{Some, Every, None}
	if r.Kind == schema.ToOne {
		quantifiers = []Quantifier{Is, IsNot}
		if !hasAnyKey(obj, "is", "isNot") {
			where, err := ParseWhere(s, target, obj, path)
			if err != nil {
				return nil, err
			}
			return []Predicate{RelationFilter{Relation: r.Name, Quantifier: Is, Where: nonNil(where)}}, nil
		}
	}

	var out []Predicate
	for _, q := range quantifiers {
		raw, ok := obj[string(q)]
		if !ok {
			continue
		}
		var where Predicate
		switch t := raw.(type) {
		case nil:
		case map[string]any:
			p, err := ParseWhere(s, target, t, join(path, string(q)))
			if err != nil {
				return nil, err
			}
			where = nonNil(p)
		default:
			return nil, Invalid(join(path, string(q)), "expected an object")
		}
		out = append(out, RelationFilter{Relation: r.Name, Quantifier: q, Where: where})
	}
	if len(out) != len(obj) {
		return nil, Invalid(path, "unknown relation filter")
	}
	return out, nil
}

// nonNil keeps an empty filter distinguishable from a null one.
func nonNil(p Predicate) Predicate {
	if p == nil {
		return And{}
	}
	return p
}

func parseRelationCounts(v any, path string) ([]Predicate, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, Invalid(path, "expected an object")
	}
	var out []Predicate
	for _, rel := range sortedKeys(obj) {
		switch t := obj[rel].(type) {
		case map[string]any:
			for _, key := range sortedKeys(t) {
				op, ok := fieldOps[key]
				if !ok {
					return nil, Invalid(join(path, rel+"."+key), "unknown operator")
				}
				n, err := toInt64(t[key])
				if err != nil {
					return nil, Invalid(join(path, rel+"."+key), "%v", err)
				}
				out = append(out, RelationCount{Relation: rel, Op: op, Value: n})
			}
		default:
			n, err := toInt64(t)
			if err != nil {
				return nil, Invalid(join(path, rel), "%v", err)
			}
			out = append(out, RelationCount{Relation: rel, Op: OpEquals, Value: n})
		}
	}
	return out, nil
}

// ParseFindArgs reads JSON find-many arguments:
//
//	{"where": {...}, "orderBy": [{"startDate": "desc"}], "take": 10, "skip": 1,
//	 "cursor": {"id": "..."}, "distinct": ["stage"],
//	 "select": {"name": true}, "omit": {...}, "include": {"logs": {"take": 5}, "_count": {"select": {"logs": true}}}}
func ParseFindArgs(s *schema.Schema, m *schema.Model, raw map[string]any, path string) (FindArgs, error) {
	var args FindArgs
	for _, key := range sortedKeys(raw) {
		v := raw[key]
		p := join(path, key)
		switch key {
		case "where":
			obj, ok := v.(map[string]any)
			if !ok {
				return args, Invalid(p, "expected an object")
			}
			where, err := ParseWhere(s, m, obj, p)
			if err != nil {
				return args, err
			}
			args.Where = where
		case "orderBy":
			orders, err := parseOrderBy(v, p)
			if err != nil {
				return args, err
			}
			args.OrderBy = orders
		case "cursor":
			obj, ok := v.(map[string]any)
			if !ok {
				return args, Invalid(p, "expected an object")
			}
			args.Cursor = obj
		case "take":
			n, err := toInt64(v)
			if err != nil {
				return args, Invalid(p, "%v", err)
			}
			args.Take = Take(int(n))
		case "skip":
			n, err := toInt64(v)
			if err != nil {
				return args, Invalid(p, "%v", err)
			}
			args.Skip = int(n)
		case "distinct":
			names, err := toStrings(v)
			if err != nil {
				return args, Invalid(p, "%v", err)
			}
			args.Distinct = names
		case "select", "omit", "include":
		default:
			return args, Invalid(p, "unknown argument")
		}
	}
	shape, err := ParseShape(s, m, raw, path)
	if err != nil {
		return args, err
	}
	args.Shape = shape
	return args, nil
}

// ParseShape reads the select, omit and include arguments of raw.
func ParseShape(s *schema.Schema, m *schema.Model, raw map[string]any, path string) (Shape, error) {
	var shape Shape
	for _, key := range []string{"select", "omit", "include"} {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		obj, ok := v.(map[string]any)
		if !ok {
			return shape, Invalid(join(path, key), "expected an object")
		}
		for _, name := range sortedKeys(obj) {
			p := join(path, key+"."+name)
			if name == "_count" && key != "omit" {
				counts, err := parseCountSelection(obj[name], p)
				if err != nil {
					return shape, err
				}
				shape.Count = append(shape.Count, counts...)
				continue
			}
			switch t := obj[name].(type) {
			case bool:
				if !t {
					continue
				}
				switch key {
				case "select":
					shape.Select = append(shape.Select, name)
				case "omit":
					shape.Omit = append(shape.Omit, name)
				case "include":
					shape.Include = append(shape.Include, Include{Relation: name})
				}
			case map[string]any:
				if key == "omit" {
					return shape, Invalid(p, "expected a boolean")
				}
				r, ok := m.Relation(name)
				if !ok {
					return shape, Invalid(p, "unknown relation on %s", m.Name)
				}
				target, _ := s.Model(r.Target)
				nested, err := ParseFindArgs(s, target, t, p)
				if err != nil {
					return shape, err
				}
				if key == "select" {
					shape.Select = append(shape.Select, name)
					if shape.SelectArgs == nil {
						shape.SelectArgs = map[string]*FindArgs{}
					}
					shape.SelectArgs[name] = &nested
					continue
				}
				shape.Include = append(shape.Include, Include{Relation: name, Args: &nested})
			default:
				return shape, Invalid(p, "expected a boolean or an object")
			}
		}
	}
	return shape, nil
}

func parseCountSelection(v any, path string) ([]string, error) {
	switch t := v.(type) {
	case bool:
		return nil, Invalid(path, "_count requires a select of relations")
	case map[string]any:
		sel, ok := t["select"].(map[string]any)
		if !ok {
			return nil, Invalid(path, "_count requires a select of relations")
		}
		var out []string
		for _, rel := range sortedKeys(sel) {
			if b, _ := sel[rel].(bool); b {
				out = append(out, rel)
			}
		}
		return out, nil
	}
	return nil, Invalid(path, "expected an object")
}

func parseOrderBy(v any, path string) ([]Order, error) {
	var items []map[string]any
	switch t := v.(type) {
	case map[string]any:
		items = []map[string]any{t}
	case []any:
		for i, elem := range t {
			obj, ok := elem.(map[string]any)
			if !ok {
				return nil, Invalid(fmt.Sprintf("%s[%d]", path, i), "expected an object")
			}
			items = append(items, obj)
		}
	default:
		return nil, Invalid(path, "expected an object or a list of objects")
	}

	var out []Order
	for _, item := range items {
		for _, field := range sortedKeys(item) {
			switch t := item[field].(type) {
			case string:
				out = append(out, Order{Field: field, Direction: Direction(t)})
			case map[string]any:
				sortDir, _ := t["sort"].(string)
				nulls, _ := t["nulls"].(string)
				out = append(out, Order{Field: field, Direction: Direction(sortDir), Nulls: Nulls(nulls)})
			default:
				return nil, Invalid(join(path, field), "expected asc, desc or {sort, nulls}")
			}
		}
	}
	return out, nil
}

// ParseGroupBy reads JSON group-by arguments:
//
//	{"by": ["stage"], "_count": {"_all": true}, "having": {"_count": {"_all": {"gt": 1}}}, "orderBy": [{"stage": "asc"}]}
func ParseGroupBy(s *schema.Schema, m *schema.Model, raw map[string]any) (GroupByArgs, error) {
	var args GroupByArgs
	for _, key := range sortedKeys(raw) {
		v := raw[key]
		switch key {
		case "by":
			names, err := toStrings(v)
			if err != nil {
				return args, Invalid(key, "%v", err)
			}
			args.By = names
		case "where":
			obj, ok := v.(map[string]any)
			if !ok {
				return args, Invalid(key, "expected an object")
			}
			where, err := ParseWhere(s, m, obj, key)
			if err != nil {
				return args, err
			}
			args.Where = where
		case "having":
			obj, ok := v.(map[string]any)
			if !ok {
				return args, Invalid(key, "expected an object")
			}
			having, err := parseHaving(obj, key)
			if err != nil {
				return args, err
			}
			args.Having = having
		case "orderBy":
			orders, err := parseGroupOrder(v, key)
			if err != nil {
				return args, err
			}
			args.OrderBy = orders
		case "take":
			n, err := toInt64(v)
			if err != nil {
				return args, Invalid(key, "%v", err)
			}
			args.Take = Take(int(n))
		case "skip":
			n, err := toInt64(v)
			if err != nil {
				return args, Invalid(key, "%v", err)
			}
			args.Skip = int(n)
		case "_count", "_avg", "_sum", "_min", "_max":
			if err := parseAggregateSelection(&args.Aggregates, Agg(key), v); err != nil {
				return args, err
			}
		default:
			return args, Invalid(key, "unknown argument")
		}
	}
	return args, nil
}

// ParseAggregate reads JSON aggregate arguments.
func ParseAggregate(s *schema.Schema, m *schema.Model, raw map[string]any) (AggregateArgs, error) {
	var args AggregateArgs
	rest := map[string]any{}
	for key, v := range raw {
		switch key {
		case "_count", "_avg", "_sum", "_min", "_max":
			if err := parseAggregateSelection(&args.Aggregates, Agg(key), v); err != nil {
				return args, err
			}
		default:
			rest[key] = v
		}
	}
	find, err := ParseFindArgs(s, m, rest, "")
	if err != nil {
		return args, err
	}
	if !find.Shape.Empty() || len(find.Distinct) > 0 {
		return args, Invalid("", "aggregate does not accept select, include, omit or distinct")
	}
	args.Where, args.OrderBy, args.Cursor, args.Take, args.Skip = find.Where, find.OrderBy, find.Cursor, find.Take, find.Skip
	return args, nil
}

func parseAggregateSelection(a *Aggregates, agg Agg, v any) error {
	var fields []string
	switch t := v.(type) {
	case bool:
		if agg != AggCount {
			return Invalid(string(agg), "expected an object of fields")
		}
		if t {
			fields = []string{CountAll}
		}
	case map[string]any:
		for _, name := range sortedKeys(t) {
			if b, _ := t[name].(bool); b {
				fields = append(fields, name)
			}
		}
	default:
		return Invalid(string(agg), "expected an object of fields")
	}
	switch agg {
	case AggCount:
		a.Count = append(a.Count, fields...)
	case AggAvg:
		a.Avg = append(a.Avg, fields...)
	case AggSum:
		a.Sum = append(a.Sum, fields...)
	case AggMin:
		a.Min = append(a.Min, fields...)
	case AggMax:
		a.Max = append(a.Max, fields...)
	}
	return nil
}

func parseHaving(raw map[string]any, path string) (Predicate, error) {
	var and And
	for _, key := range sortedKeys(raw) {
		v := raw[key]
		p := join(path, key)
		switch key {
		case "AND", "OR", "NOT":
			var children []Predicate
			items, ok := v.([]any)
			if !ok {
				items = []any{v}
			}
			for _, item := range items {
				obj, ok := item.(map[string]any)
				if !ok {
					return nil, Invalid(p, "expected an object")
				}
				child, err := parseHaving(obj, p)
				if err != nil {
					return nil, err
				}
				children = append(children, nonNil(child))
			}
			switch key {
			case "AND":
				and = append(and, And(children))
			case "OR":
				and = append(and, Or(children))
			default:
				and = append(and, Not(children))
			}
		case "_count", "_avg", "_sum", "_min", "_max":
			obj, ok := v.(map[string]any)
			if !ok {
				return nil, Invalid(p, "expected an object of fields")
			}
			for _, field := range sortedKeys(obj) {
				conds, err := parseAggregateFilter(Agg(key), field, obj[field], join(p, field))
				if err != nil {
					return nil, err
				}
				and = append(and, conds...)
			}
		default:
			// {"temperature": {"_avg": {"gt": 21}}}
			if obj, ok := v.(map[string]any); ok && isAggregateObject(obj) {
				for _, agg := range sortedKeys(obj) {
					conds, err := parseAggregateFilter(Agg(agg), key, obj[agg], join(p, agg))
					if err != nil {
						return nil, err
					}
					and = append(and, conds...)
				}
				continue
			}
			conds, err := parseFieldFilter(key, v, p)
			if err != nil {
				return nil, err
			}
			and = append(and, conds...)
		}
	}
	return Conjoin(and...), nil
}

func parseAggregateFilter(agg Agg, field string, v any, path string) ([]Predicate, error) {
	conds, err := parseFieldFilter(field, v, path)
	if err != nil {
		return nil, err
	}
	out := make([]Predicate, 0, len(conds))
	for _, c := range conds {
		cond, ok := c.(Condition)
		if !ok {
			return nil, Invalid(path, "nested not is not supported on aggregates")
		}
		out = append(out, HavingCondition{Aggregate: agg, Field: field, Op: cond.Op, Value: cond.Value})
	}
	return out, nil
}

func isAggregateObject(obj map[string]any) bool {
	if len(obj) == 0 {
		return false
	}
	for k := range obj {
		switch Agg(k) {
		case AggCount, AggAvg, AggSum, AggMin, AggMax:
		default:
			return false
		}
	}
	return true
}

func parseGroupOrder(v any, path string) ([]GroupOrder, error) {
	var items []map[string]any
	switch t := v.(type) {
	case map[string]any:
		items = []map[string]any{t}
	case []any:
		for _, elem := range t {
			obj, ok := elem.(map[string]any)
			if !ok {
				return nil, Invalid(path, "expected an object")
			}
			items = append(items, obj)
		}
	default:
		return nil, Invalid(path, "expected an object or a list of objects")
	}

	var out []GroupOrder
	for _, item := range items {
		for _, key := range sortedKeys(item) {
			switch key {
			case "_count", "_avg", "_sum", "_min", "_max":
				obj, ok := item[key].(map[string]any)
				if !ok {
					return nil, Invalid(join(path, key), "expected an object of fields")
				}
				orders, err := parseOrderBy(obj, join(path, key))
				if err != nil {
					return nil, err
				}
				for _, o := range orders {
					out = append(out, GroupOrder{Aggregate: Agg(key), Field: o.Field, Direction: o.Direction, Nulls: o.Nulls})
				}
			default:
				orders, err := parseOrderBy(map[string]any{key: item[key]}, path)
				if err != nil {
					return nil, err
				}
				out = append(out, GroupOrder{Field: key, Direction: orders[0].Direction, Nulls: orders[0].Nulls})
			}
		}
	}
	return out, nil
}

func toInt64(v any) (int64, error) {
	switch t := v.(type) {
	case json.Number:
		return t.Int64()
	case float64:
		if t != math.Trunc(t) {
			return 0, fmt.Errorf("%v is not an integer", t)
		}
		return int64(t), nil
	case int:
		return int64(t), nil
	case int64:
		return t, nil
	}
	return 0, fmt.Errorf("expected an integer, got %T", v)
}

func toStrings(v any) ([]string, error) {
	switch t := v.(type) {
	case string:
		return []string{t}, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, elem := range t {
			s, ok := elem.(string)
			if !ok {
				return nil, fmt.Errorf("expected a list of names")
			}
			out = append(out, s)
		}
		return out, nil
	case []string:
		return t, nil
	}
	return nil, fmt.Errorf("expected a name or a list of names")
}

func hasAnyKey(obj map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := obj[k]; ok {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
