package memorydb

import (
	"sort"

	"github.com/jrazmi/growlog/core/repositories"
	"github.com/jrazmi/growlog/core/scaffolding/fop"
	"github.com/jrazmi/growlog/core/schema"
)

func (ex *executor) aggregate(m *schema.Model, q repositories.Query, aggs fop.Aggregates) fop.AggregateResult {
	return aggregateRows(m, ex.find(m, q), aggs)
}

// aggregateRows computes the requested aggregates. Nulls are ignored by
// every aggregate except _count of _all.
func aggregateRows(m *schema.Model, rows []repositories.Row, aggs fop.Aggregates) fop.AggregateResult {
	var res fop.AggregateResult
	if len(aggs.Count) > 0 {
		res.Count = make(map[string]int64, len(aggs.Count))
		for _, name := range aggs.Count {
			res.Count[name] = aggregateValue(m, rows, fop.AggCount, name).(int64)
		}
	}
	if len(aggs.Avg) > 0 {
		res.Avg = make(map[string]*float64, len(aggs.Avg))
		for _, name := range aggs.Avg {
			if v, ok := aggregateValue(m, rows, fop.AggAvg, name).(float64); ok {
				res.Avg[name] = &v
			} else {
				res.Avg[name] = nil
			}
		}
	}
	fill := func(agg fop.Agg, names []string) map[string]any {
		if len(names) == 0 {
			return nil
		}
		out := make(map[string]any, len(names))
		for _, name := range names {
			out[name] = aggregateValue(m, rows, agg, name)
		}
		return out
	}
	res.Sum = fill(fop.AggSum, aggs.Sum)
	res.Min = fill(fop.AggMin, aggs.Min)
	res.Max = fill(fop.AggMax, aggs.Max)
	return res
}

func nonNull(rows []repositories.Row, field string) int {
	n := 0
	for _, r := range rows {
		if r[field] != nil {
			n++
		}
	}
	return n
}

// aggregateValue computes one aggregate; nil when no value contributes,
// except for counts.
func aggregateValue(m *schema.Model, rows []repositories.Row, agg fop.Agg, field string) any {
	if agg == fop.AggCount {
		if field == fop.CountAll {
			return int64(len(rows))
		}
		return int64(nonNull(rows, field))
	}
	f, _ := m.Field(field)
	var values []any
	for _, r := range rows {
		if v := r[field]; v != nil {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return nil
	}
	switch agg {
	case fop.AggAvg:
		var sum float64
		for _, v := range values {
			sum += asFloat(v)
		}
		return sum / float64(len(values))
	case fop.AggSum:
		if f.Kind == schema.KindInt {
			var sum int64
			for _, v := range values {
				sum += v.(int64)
			}
			return sum
		}
		var sum float64
		for _, v := range values {
			sum += asFloat(v)
		}
		return sum
	case fop.AggMin, fop.AggMax:
		best := values[0]
		for _, v := range values[1:] {
			c := compare(v, best)
			if (agg == fop.AggMin && c < 0) || (agg == fop.AggMax && c > 0) {
				best = v
			}
		}
		return best
	}
	return nil
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case int64:
		return float64(n)
	case float64:
		return n
	}
	return 0
}

type group struct {
	keys repositories.Row
	rows []repositories.Row
}

func (ex *executor) groupBy(m *schema.Model, q repositories.GroupQuery) []fop.GroupRow {
	var groups []*group
	for _, r := range ex.st.tables[m.Name] {
		if !ex.matches(m, r, q.Where) {
			continue
		}
		var g *group
		for _, candidate := range groups {
			if sameGroup(candidate.keys, r, q.By) {
				g = candidate
				break
			}
		}
		if g == nil {
			g = &group{keys: repositories.Row{}}
			for _, k := range q.By {
				g.keys[k] = r[k]
			}
			groups = append(groups, g)
		}
		g.rows = append(g.rows, r)
	}

	kept := groups[:0]
	for _, g := range groups {
		if evalHaving(m, g, q.Having) == yes {
			kept = append(kept, g)
		}
	}
	groups = kept

	if len(q.OrderBy) > 0 {
		sort.SliceStable(groups, func(i, j int) bool {
			for _, o := range q.OrderBy {
				a, b := groupValue(m, groups[i], o.Aggregate, o.Field), groupValue(m, groups[j], o.Aggregate, o.Field)
				if c := compareOrdered(o.Order(), a, b); c != 0 {
					return c < 0
				}
			}
			return false
		})
	}
	groups = window(groups, q.Skip, q.Take)

	out := make([]fop.GroupRow, len(groups))
	for i, g := range groups {
		out[i] = fop.GroupRow{
			Keys:            g.keys.Clone(),
			AggregateResult: aggregateRows(m, g.rows, q.Aggregates),
		}
	}
	return out
}

func sameGroup(keys, r repositories.Row, by []string) bool {
	for _, k := range by {
		a, b := keys[k], r[k]
		if a == nil || b == nil {
			if a != b {
				return false
			}
			continue
		}
		if !equal(a, b, false) {
			return false
		}
	}
	return true
}

func groupValue(m *schema.Model, g *group, agg fop.Agg, field string) any {
	if agg == "" {
		return g.keys[field]
	}
	return aggregateValue(m, g.rows, agg, field)
}

// evalHaving evaluates a having predicate against a group: plain conditions
// test the group key, HavingCondition tests an aggregate.
func evalHaving(m *schema.Model, g *group, pred fop.Predicate) tri {
	switch p := pred.(type) {
	case nil:
		return yes
	case fop.Condition:
		f, _ := m.Field(p.Field)
		return evalCondition(f, g.keys[p.Field], p)
	case fop.HavingCondition:
		v := aggregateValue(m, g.rows, p.Aggregate, p.Field)
		if v == nil {
			return unknown
		}
		return truth(compareOp(p.Op, compare(v, p.Value)))
	case fop.And:
		out := yes
		for _, c := range p {
			switch evalHaving(m, g, c) {
			case no:
				return no
			case unknown:
				out = unknown
			}
		}
		return out
	case fop.Or:
		return havingOr(m, g, p)
	case fop.Not:
		return havingOr(m, g, fop.Or(p)).not()
	}
	return no
}

func havingOr(m *schema.Model, g *group, preds fop.Or) tri {
	out := no
	for _, c := range preds {
		switch evalHaving(m, g, c) {
		case yes:
			return yes
		case unknown:
			out = unknown
		}
	}
	return out
}
