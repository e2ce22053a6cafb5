package repositories

import (
	"context"
	"fmt"
	"reflect"
	"slices"

	"github.com/jrazmi/growlog/core/scaffolding/fop"
	"github.com/jrazmi/growlog/core/schema"
)

// linkWrite is a pending many-to-many change from write data.
type linkWrite struct {
	relation *schema.Relation
	set      fop.LinkSet
}

// splitData separates scalar values from relation writes. Only
// many-to-many relations accept nested writes.
func splitData(m *schema.Model, data Row, path string) (Row, []linkWrite, error) {
	scalars := make(Row, len(data))
	var links []linkWrite
	for _, name := range sortedRowKeys(data) {
		v := data[name]
		if _, ok := m.Field(name); ok {
			scalars[name] = v
			continue
		}
		r, ok := m.Relation(name)
		if !ok {
			return nil, nil, fop.Invalid(fmt.Sprintf("%s.%s", path, name), "unknown field on %s", m.Name)
		}
		if r.Kind != schema.ManyToMany {
			return nil, nil, fop.Invalid(fmt.Sprintf("%s.%s", path, name), "nested writes are only supported on many-to-many relations; set %s directly", foreignKeyHint(m, r))
		}
		set, err := toLinkSet(v)
		if err != nil {
			return nil, nil, fop.Invalid(fmt.Sprintf("%s.%s", path, name), "%v", err)
		}
		if !set.Empty() {
			links = append(links, linkWrite{relation: r, set: set})
		}
	}
	return scalars, links, nil
}

func foreignKeyHint(m *schema.Model, r *schema.Relation) string {
	if r.Kind == schema.ToOne {
		return r.ForeignKey
	}
	return "the foreign key on " + r.Target
}

// toLinkSet accepts a LinkSet, a list of ids to connect, or its JSON form
// {"set": [...], "connect": [...], "disconnect": [...]}.
func toLinkSet(v any) (fop.LinkSet, error) {
	switch t := v.(type) {
	case fop.LinkSet:
		return t, nil
	case *fop.LinkSet:
		if t == nil {
			return fop.LinkSet{}, nil
		}
		return *t, nil
	case nil:
		return fop.LinkSet{}, nil
	case map[string]any:
		var set fop.LinkSet
		for key, raw := range t {
			ids, err := toIDs(raw)
			if err != nil {
				return set, fmt.Errorf("%s: %w", key, err)
			}
			switch key {
			case "set":
				if ids == nil {
					ids = []string{}
				}
				set.Set = ids
			case "connect":
				set.Connect = ids
			case "disconnect":
				set.Disconnect = ids
			default:
				return set, fmt.Errorf("unknown link operation %q", key)
			}
		}
		return set, nil
	}
	ids, err := toIDs(v)
	if err != nil {
		return fop.LinkSet{}, err
	}
	return fop.LinkSet{Connect: ids}, nil
}

func toIDs(v any) ([]string, error) {
	rv := reflect.ValueOf(v)
	if v == nil {
		return nil, nil
	}
	if rv.Kind() != reflect.Slice {
		return nil, fmt.Errorf("expected a list of ids, got %T", v)
	}
	out := make([]string, 0, rv.Len())
	for i := range rv.Len() {
		elem := rv.Index(i).Interface()
		switch id := elem.(type) {
		case string:
			out = append(out, id)
		case map[string]any:
			// {"id": "..."} as in connect: [{id}]
			s, ok := id["id"].(string)
			if !ok {
				return nil, fmt.Errorf("expected an id at %d", i)
			}
			out = append(out, s)
		default:
			return nil, fmt.Errorf("expected an id at %d, got %T", i, elem)
		}
	}
	return out, nil
}

// prepareInsert validates create data and fills defaults.
func (e *Engine) prepareInsert(m *schema.Model, data Row, path string) (Row, error) {
	row := make(Row, len(m.Fields))
	for _, f := range m.Fields {
		v, present := data[f.Name]
		if !present {
			def, err := e.defaultValue(f)
			if err != nil {
				return nil, err
			}
			if def == nil && !f.Nullable {
				return nil, fop.Invalid(fmt.Sprintf("%s.%s", path, f.Name), "missing required field on %s", m.Name)
			}
			row[f.Name] = def
			continue
		}
		n, err := schema.Normalize(f, v)
		if err != nil {
			return nil, fop.Invalid(fmt.Sprintf("%s.%s", path, f.Name), "%v", err)
		}
		row[f.Name] = n
	}
	return row, nil
}

func (e *Engine) defaultValue(f *schema.Field) (any, error) {
	switch f.Default {
	case schema.DefaultID:
		id, err := e.NewID()
		if err != nil {
			return nil, fmt.Errorf("generate id: %w", err)
		}
		return id, nil
	case schema.DefaultNow:
		return e.Time(), nil
	case schema.DefaultValue:
		if list, ok := f.DefaultValue.([]string); ok {
			return slices.Clone(list), nil
		}
		return f.DefaultValue, nil
	}
	if f.List {
		return []string{}, nil
	}
	return nil, nil
}

// prepareUpdate validates update data. Identifiers cannot change.
func prepareUpdate(m *schema.Model, data Row, path string) (Row, error) {
	set := make(Row, len(data))
	for name, v := range data {
		f, _ := m.Field(name)
		if f.ID {
			return nil, fop.Invalid(fmt.Sprintf("%s.%s", path, name), "identifiers cannot be updated")
		}
		n, err := schema.Normalize(f, v)
		if err != nil {
			return nil, fop.Invalid(fmt.Sprintf("%s.%s", path, name), "%v", err)
		}
		set[name] = n
	}
	return set, nil
}

// applyLinks writes the link changes for source.
func applyLinks(ctx context.Context, s Storer, source any, links []linkWrite) error {
	for _, l := range links {
		link := l.relation.Link
		if l.set.Set != nil {
			if err := s.Unlink(ctx, link, source, nil); err != nil {
				return err
			}
			if err := s.Link(ctx, link, pairs(source, l.set.Set)); err != nil {
				return err
			}
		}
		if len(l.set.Disconnect) > 0 {
			if err := s.Unlink(ctx, link, source, anys(l.set.Disconnect)); err != nil {
				return err
			}
		}
		if len(l.set.Connect) > 0 {
			if err := s.Link(ctx, link, pairs(source, l.set.Connect)); err != nil {
				return err
			}
		}
	}
	return nil
}

func pairs(source any, targets []string) []Pair {
	out := make([]Pair, len(targets))
	for i, t := range targets {
		out[i] = Pair{Source: source, Target: t}
	}
	return out
}

func anys(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

func sortedRowKeys(r Row) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
