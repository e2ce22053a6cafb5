package memorydb

import (
	"bytes"
	"encoding/json"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/jrazmi/growlog/core/repositories"
	"github.com/jrazmi/growlog/core/scaffolding/fop"
	"github.com/jrazmi/growlog/core/schema"
)

// tri is a three-valued truth value. Comparisons against null are unknown,
// which filters treat as no match and negation leaves unknown, the way SQL
// does.
type tri int8

const (
	no tri = iota
	yes
	unknown
)

func truth(b bool) tri {
	if b {
		return yes
	}
	return no
}

func (t tri) not() tri {
	switch t {
	case yes:
		return no
	case no:
		return yes
	}
	return unknown
}

func (ex *executor) matches(m *schema.Model, row repositories.Row, pred fop.Predicate) bool {
	return ex.eval(m, row, pred) == yes
}

func (ex *executor) eval(m *schema.Model, row repositories.Row, pred fop.Predicate) tri {
	switch p := pred.(type) {
	case nil:
		return yes
	case fop.Condition:
		f, _ := m.Field(p.Field)
		return evalCondition(f, row[p.Field], p)
	case fop.And:
		out := yes
		for _, c := range p {
			switch ex.eval(m, row, c) {
			case no:
				return no
			case unknown:
				out = unknown
			}
		}
		return out
	case fop.Or:
		return ex.evalOr(m, row, p)
	case fop.Not:
		return ex.evalOr(m, row, fop.Or(p)).not()
	case fop.RelationFilter:
		return ex.evalRelation(m, row, p)
	case fop.RelationCount:
		r, _ := m.Relation(p.Relation)
		n := int64(len(ex.related(m, r, row)))
		return truth(compareOp(p.Op, compare(n, p.Value)))
	}
	return no
}

func (ex *executor) evalOr(m *schema.Model, row repositories.Row, preds fop.Or) tri {
	out := no
	for _, c := range preds {
		switch ex.eval(m, row, c) {
		case yes:
			return yes
		case unknown:
			out = unknown
		}
	}
	return out
}

func (ex *executor) evalRelation(m *schema.Model, row repositories.Row, p fop.RelationFilter) tri {
	r, _ := m.Relation(p.Relation)
	target, _ := ex.schema.Model(r.Target)
	children := ex.related(m, r, row)

	switch p.Quantifier {
	case fop.Is, fop.IsNot:
		var found bool
		if p.Where == nil {
			found = len(children) > 0
		} else {
			found = len(children) > 0 && ex.matches(target, children[0], p.Where)
		}
		if p.Quantifier == fop.IsNot {
			found = !found
		}
		if p.Where == nil {
			// is: null matches rows without a related row
			found = !found
		}
		return truth(found)
	case fop.Some:
		for _, c := range children {
			if ex.matches(target, c, p.Where) {
				return yes
			}
		}
		return no
	case fop.None:
		for _, c := range children {
			if ex.matches(target, c, p.Where) {
				return no
			}
		}
		return yes
	case fop.Every:
		for _, c := range children {
			if ex.eval(target, c, p.Where) == no {
				return no
			}
		}
		return yes
	}
	return no
}

// related returns the rows r reaches from row.
func (ex *executor) related(m *schema.Model, r *schema.Relation, row repositories.Row) []repositories.Row {
	target, _ := ex.schema.Model(r.Target)
	tpk := target.PrimaryKey().Name
	switch r.Kind {
	case schema.ToOne:
		fk := row[r.ForeignKey]
		if fk == nil {
			return nil
		}
		for _, c := range ex.st.tables[target.Name] {
			if c[tpk] == fk {
				return []repositories.Row{c}
			}
		}
	case schema.ToMany:
		var out []repositories.Row
		id := row[m.PrimaryKey().Name]
		for _, c := range ex.st.tables[target.Name] {
			if c[r.ForeignKey] == id {
				out = append(out, c)
			}
		}
		return out
	case schema.ManyToMany:
		id := row[m.PrimaryKey().Name]
		linked := map[any]bool{}
		for _, l := range ex.st.links[r.Link.Table] {
			if l[r.Link.SourceColumn] == id {
				linked[l[r.Link.TargetColumn]] = true
			}
		}
		var out []repositories.Row
		for _, c := range ex.st.tables[target.Name] {
			if linked[c[tpk]] {
				out = append(out, c)
			}
		}
		return out
	}
	return nil
}

func evalCondition(f *schema.Field, v any, c fop.Condition) tri {
	if f.List {
		list, _ := v.([]string)
		switch c.Op {
		case fop.OpEquals:
			if c.Value == nil {
				return truth(v == nil)
			}
			want, _ := c.Value.([]string)
			return truth(slices.Equal(list, want))
		case fop.OpHas:
			return truth(slices.Contains(list, c.Value.(string)))
		case fop.OpHasEvery:
			for _, want := range c.Value.([]string) {
				if !slices.Contains(list, want) {
					return no
				}
			}
			return yes
		case fop.OpHasSome:
			for _, want := range c.Value.([]string) {
				if slices.Contains(list, want) {
					return yes
				}
			}
			return no
		case fop.OpIsEmpty:
			return truth((len(list) == 0) == c.Value.(bool))
		}
		return no
	}

	insensitive := c.Mode == fop.ModeInsensitive
	switch c.Op {
	case fop.OpEquals:
		if c.Value == nil {
			return truth(v == nil)
		}
		if v == nil {
			return unknown
		}
		return truth(equal(v, c.Value, insensitive))
	case fop.OpNot:
		if c.Value == nil {
			return truth(v != nil)
		}
		if v == nil {
			return unknown
		}
		return truth(!equal(v, c.Value, insensitive))
	case fop.OpIn, fop.OpNotIn:
		if v == nil {
			return unknown
		}
		found := false
		for _, want := range c.Value.([]any) {
			if equal(v, want, insensitive) {
				found = true
				break
			}
		}
		if c.Op == fop.OpNotIn {
			found = !found
		}
		return truth(found)
	case fop.OpLt, fop.OpLte, fop.OpGt, fop.OpGte:
		if v == nil {
			return unknown
		}
		return truth(compareOp(c.Op, compare(v, c.Value)))
	case fop.OpContains, fop.OpStartsWith, fop.OpEndsWith:
		if v == nil {
			return unknown
		}
		s, want := v.(string), c.Value.(string)
		if insensitive {
			s, want = strings.ToLower(s), strings.ToLower(want)
		}
		switch c.Op {
		case fop.OpContains:
			return truth(strings.Contains(s, want))
		case fop.OpStartsWith:
			return truth(strings.HasPrefix(s, want))
		}
		return truth(strings.HasSuffix(s, want))
	}
	return no
}

func compareOp(op fop.Op, cmp int) bool {
	switch op {
	case fop.OpEquals:
		return cmp == 0
	case fop.OpNot:
		return cmp != 0
	case fop.OpLt:
		return cmp < 0
	case fop.OpLte:
		return cmp <= 0
	case fop.OpGt:
		return cmp > 0
	case fop.OpGte:
		return cmp >= 0
	}
	return false
}

func equal(a, b any, insensitive bool) bool {
	if insensitive {
		as, aok := a.(string)
		bs, bok := b.(string)
		if aok && bok {
			return strings.ToLower(as) == strings.ToLower(bs)
		}
	}
	if ar, ok := a.(json.RawMessage); ok {
		br, _ := b.(json.RawMessage)
		return jsonEqual(ar, br)
	}
	return compare(a, b) == 0
}

func jsonEqual(a, b json.RawMessage) bool {
	if bytes.Equal(a, b) {
		return true
	}
	var av, bv any
	if json.Unmarshal(a, &av) != nil || json.Unmarshal(b, &bv) != nil {
		return false
	}
	ac, _ := json.Marshal(av)
	bc, _ := json.Marshal(bv)
	return bytes.Equal(ac, bc)
}

// compare orders two non-null canonical values of the same kind.
func compare(a, b any) int {
	switch av := a.(type) {
	case string:
		return strings.Compare(av, b.(string))
	case int64:
		bv := b.(int64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case float64:
		bv := b.(float64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case bool:
		bv := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		}
		return 1
	case time.Time:
		return av.Compare(b.(time.Time))
	case json.RawMessage:
		return bytes.Compare(av, b.(json.RawMessage))
	}
	return 0
}

// compareOrdered orders values under o, nulls placed per o.
func compareOrdered(o fop.Order, a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		if o.NullsComeFirst() {
			return -1
		}
		return 1
	case b == nil:
		if o.NullsComeFirst() {
			return 1
		}
		return -1
	}
	cmp := compare(a, b)
	if o.Descending() {
		return -cmp
	}
	return cmp
}

func sortRows(rows []repositories.Row, orders []fop.Order) {
	if len(orders) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, o := range orders {
			if c := compareOrdered(o, rows[i][o.Field], rows[j][o.Field]); c != 0 {
				return c < 0
			}
		}
		return false
	})
}
