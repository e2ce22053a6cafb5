package memorydb

import (
	"slices"

	"github.com/jrazmi/growlog/core/repositories"
	"github.com/jrazmi/growlog/core/scaffolding/fop"
	"github.com/jrazmi/growlog/core/schema"
)

// state holds every table. Rows are never mutated in place once stored, so
// clone only copies the slices and the row maps.
type state struct {
	tables map[string][]repositories.Row
	links  map[string][]repositories.Row
}

func newState() *state {
	return &state{
		tables: map[string][]repositories.Row{},
		links:  map[string][]repositories.Row{},
	}
}

func (s *state) clone() *state {
	out := newState()
	for name, rows := range s.tables {
		out.tables[name] = cloneRows(rows)
	}
	for name, rows := range s.links {
		out.links[name] = cloneRows(rows)
	}
	return out
}

func cloneRows(rows []repositories.Row) []repositories.Row {
	out := make([]repositories.Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}

// executor runs store operations against one state.
type executor struct {
	schema *schema.Schema
	st     *state
	// linkModels maps link table and column to the model the column references.
	linkModels map[string]map[string]*schema.Model
}

func (ex *executor) find(m *schema.Model, q repositories.Query) []repositories.Row {
	var rows []repositories.Row
	for _, r := range ex.st.tables[m.Name] {
		if ex.matches(m, r, q.Where) {
			rows = append(rows, r)
		}
	}
	sortRows(rows, q.OrderBy)
	rows = window(rows, q.Skip, q.Take)
	return cloneRows(rows)
}

func window[T any](rows []T, skip, take int) []T {
	if skip > 0 {
		if skip >= len(rows) {
			return nil
		}
		rows = rows[skip:]
	}
	if take >= 0 && take < len(rows) {
		rows = rows[:take]
	}
	return rows
}

func (ex *executor) insert(m *schema.Model, rows []repositories.Row, skipDuplicates bool) ([]repositories.Row, error) {
	out := make([]repositories.Row, 0, len(rows))
	for _, r := range rows {
		if key := ex.conflict(m, r, nil); key != nil {
			if skipDuplicates {
				continue
			}
			return nil, repositories.UniqueViolation(m.Name, key)
		}
		if err := ex.checkReferences(m, r); err != nil {
			return nil, err
		}
		stored := r.Clone()
		ex.st.tables[m.Name] = append(ex.st.tables[m.Name], stored)
		out = append(out, stored.Clone())
	}
	return out, nil
}

// conflict returns the first unique key r shares with a stored row other
// than self. Keys with a null part never conflict.
func (ex *executor) conflict(m *schema.Model, r, self repositories.Row) []string {
	pk := m.PrimaryKey().Name
	for _, key := range m.UniqueKeys() {
		if hasNull(r, key) {
			continue
		}
		for _, other := range ex.st.tables[m.Name] {
			if self != nil && other[pk] == self[pk] {
				continue
			}
			if sameKey(r, other, key) {
				return key
			}
		}
	}
	return nil
}

func hasNull(r repositories.Row, key []string) bool {
	for _, k := range key {
		if r[k] == nil {
			return true
		}
	}
	return false
}

func sameKey(a, b repositories.Row, key []string) bool {
	for _, k := range key {
		if b[k] == nil || !equal(a[k], b[k], false) {
			return false
		}
	}
	return true
}

// checkReferences fails when a foreign key of r names a missing row.
func (ex *executor) checkReferences(m *schema.Model, r repositories.Row) error {
	for _, rel := range m.Relations {
		if rel.Kind != schema.ToOne {
			continue
		}
		fk := r[rel.ForeignKey]
		if fk == nil {
			continue
		}
		target, _ := ex.schema.Model(rel.Target)
		if !ex.exists(target, fk) {
			return repositories.ForeignKeyViolation(m.Name, rel.ForeignKey)
		}
	}
	return nil
}

func (ex *executor) exists(m *schema.Model, id any) bool {
	pk := m.PrimaryKey().Name
	for _, r := range ex.st.tables[m.Name] {
		if r[pk] == id {
			return true
		}
	}
	return false
}

func (ex *executor) update(m *schema.Model, where fop.Predicate, set repositories.Row) ([]repositories.Row, error) {
	rows := ex.st.tables[m.Name]
	var out []repositories.Row
	for i, r := range rows {
		if !ex.matches(m, r, where) {
			continue
		}
		next := r.Clone()
		for k, v := range set {
			next[k] = v
		}
		if key := ex.conflict(m, next, r); key != nil {
			return nil, repositories.UniqueViolation(m.Name, key)
		}
		if err := ex.checkReferences(m, next); err != nil {
			return nil, err
		}
		rows[i] = next
		out = append(out, next.Clone())
	}
	return out, nil
}

func (ex *executor) delete(m *schema.Model, where fop.Predicate, limit int) ([]repositories.Row, error) {
	pk := m.PrimaryKey().Name
	var victims []repositories.Row
	for _, r := range ex.st.tables[m.Name] {
		if ex.matches(m, r, where) {
			victims = append(victims, r)
		}
	}
	if limit > 0 && len(victims) > limit {
		sortRows(victims, []fop.Order{fop.Asc(pk)})
		victims = victims[:limit]
	}
	if err := ex.remove(m, victims); err != nil {
		return nil, err
	}
	return cloneRows(victims), nil
}

// remove deletes rows of m and applies the referential actions of every
// relation pointing at m.
func (ex *executor) remove(m *schema.Model, rows []repositories.Row) error {
	if len(rows) == 0 {
		return nil
	}
	pk := m.PrimaryKey().Name
	ids := map[any]bool{}
	for _, r := range rows {
		ids[r[pk]] = true
	}
	ex.st.tables[m.Name] = slices.DeleteFunc(ex.st.tables[m.Name], func(r repositories.Row) bool {
		return ids[r[pk]]
	})

	for _, rel := range m.Relations {
		if rel.Kind != schema.ManyToMany {
			continue
		}
		ex.st.links[rel.Link.Table] = slices.DeleteFunc(ex.st.links[rel.Link.Table], func(l repositories.Row) bool {
			return ids[l[rel.Link.SourceColumn]]
		})
	}

	for _, dep := range ex.schema.Dependents(m.Name) {
		fk := dep.Relation.ForeignKey
		var children []repositories.Row
		for i, c := range ex.st.tables[dep.Model.Name] {
			if !ids[c[fk]] {
				continue
			}
			switch dep.Relation.OnDelete {
			case schema.Restrict:
				return repositories.ForeignKeyViolation(dep.Model.Name, fk)
			case schema.SetNull:
				next := c.Clone()
				next[fk] = nil
				ex.st.tables[dep.Model.Name][i] = next
			case schema.Cascade:
				children = append(children, c)
			}
		}
		if err := ex.remove(dep.Model, children); err != nil {
			return err
		}
	}
	return nil
}

func (ex *executor) pairs(link *schema.Link, sources []any) []repositories.Pair {
	want := map[any]bool{}
	for _, s := range sources {
		want[s] = true
	}
	var out []repositories.Pair
	for _, l := range ex.st.links[link.Table] {
		if want[l[link.SourceColumn]] {
			out = append(out, repositories.Pair{Source: l[link.SourceColumn], Target: l[link.TargetColumn]})
		}
	}
	return out
}

func (ex *executor) link(link *schema.Link, pairs []repositories.Pair) error {
	models := ex.linkModels[link.Table]
	for _, p := range pairs {
		if src := models[link.SourceColumn]; src != nil && !ex.exists(src, p.Source) {
			return repositories.ForeignKeyViolation(link.Table, link.SourceColumn)
		}
		if dst := models[link.TargetColumn]; dst != nil && !ex.exists(dst, p.Target) {
			return repositories.ForeignKeyViolation(link.Table, link.TargetColumn)
		}
		present := slices.ContainsFunc(ex.st.links[link.Table], func(l repositories.Row) bool {
			return l[link.SourceColumn] == p.Source && l[link.TargetColumn] == p.Target
		})
		if present {
			continue
		}
		ex.st.links[link.Table] = append(ex.st.links[link.Table], repositories.Row{
			link.SourceColumn: p.Source,
			link.TargetColumn: p.Target,
		})
	}
	return nil
}

func (ex *executor) unlink(link *schema.Link, source any, targets []any) {
	ex.st.links[link.Table] = slices.DeleteFunc(ex.st.links[link.Table], func(l repositories.Row) bool {
		if l[link.SourceColumn] != source {
			return false
		}
		return targets == nil || slices.Contains(targets, l[link.TargetColumn])
	})
}

// linkModelsOf indexes which model each link column references.
func linkModelsOf(s *schema.Schema) map[string]map[string]*schema.Model {
	out := map[string]map[string]*schema.Model{}
	for _, m := range s.Models() {
		for _, r := range m.Relations {
			if r.Kind != schema.ManyToMany {
				continue
			}
			target, _ := s.Model(r.Target)
			cols := out[r.Link.Table]
			if cols == nil {
				cols = map[string]*schema.Model{}
				out[r.Link.Table] = cols
			}
			cols[r.Link.SourceColumn] = m
			cols[r.Link.TargetColumn] = target
		}
	}
	return out
}
