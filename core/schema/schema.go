// Package schema describes the relational models the data-access layer is
// built over: their scalar fields, unique keys, relations and the
// referential actions applied when a parent row is deleted.
package schema

import (
	"fmt"
	"sort"
)

// Kind is the storage kind of a scalar field.
type Kind int

const (
	KindString Kind = iota + 1
	KindInt
	KindFloat
	KindBool
	KindDateTime
	KindJSON
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "String"
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindBool:
		return "Boolean"
	case KindDateTime:
		return "DateTime"
	case KindJSON:
		return "Json"
	case KindEnum:
		return "Enum"
	default:
		return "Unknown"
	}
}

// DefaultKind says how a missing value is filled on insert.
type DefaultKind int

const (
	DefaultNone DefaultKind = iota
	// DefaultID generates a unique identifier with the configured strategy.
	DefaultID
	// DefaultNow stamps the current time.
	DefaultNow
	// DefaultValue copies Field.DefaultValue.
	DefaultValue
)

// Field is a scalar column of a model.
type Field struct {
	Name         string
	Column       string
	Kind         Kind
	Enum         *Enum
	List         bool
	Nullable     bool
	Unique       bool
	ID           bool
	Default      DefaultKind
	DefaultValue any
}

// Numeric reports whether the field supports _avg and _sum.
func (f *Field) Numeric() bool {
	return !f.List && (f.Kind == KindInt || f.Kind == KindFloat)
}

// Orderable reports whether the field can appear in an ordering or in _min/_max.
func (f *Field) Orderable() bool {
	return !f.List && f.Kind != KindJSON
}

// RelationKind is the cardinality of a relation seen from its owning model.
type RelationKind int

const (
	// ToOne is a many-to-one relation; the owning model holds the foreign key.
	ToOne RelationKind = iota + 1
	// ToMany is a one-to-many relation; the target model holds the foreign key.
	ToMany
	// ManyToMany goes through a link table.
	ManyToMany
)

// Action is the referential action applied to dependents when a row is deleted.
type Action int

const (
	Restrict Action = iota
	Cascade
	SetNull
)

// Link describes the table backing a many-to-many relation.
type Link struct {
	Table        string
	SourceColumn string // references the owning model's primary key
	TargetColumn string // references the target model's primary key
}

// Relation connects a model to another model.
type Relation struct {
	Name   string
	Kind   RelationKind
	Target string
	// ForeignKey is the owning model's field for ToOne, the target model's
	// field for ToMany, and empty for ManyToMany.
	ForeignKey string
	Optional   bool
	OnDelete   Action
	Link       *Link
}

// Model is one record type.
type Model struct {
	Name      string
	Table     string
	Fields    []*Field
	Relations []*Relation
	// CompoundUniques lists multi-field unique keys.
	CompoundUniques [][]string

	fields    map[string]*Field
	relations map[string]*Relation
	pk        *Field
}

func (m *Model) index() error {
	m.fields = make(map[string]*Field, len(m.Fields))
	m.relations = make(map[string]*Relation, len(m.Relations))
	for _, f := range m.Fields {
		if _, dup := m.fields[f.Name]; dup {
			return fmt.Errorf("model %s: duplicate field %s", m.Name, f.Name)
		}
		m.fields[f.Name] = f
		if f.ID {
			m.pk = f
		}
	}
	for _, r := range m.Relations {
		if _, dup := m.fields[r.Name]; dup {
			return fmt.Errorf("model %s: relation %s shadows a field", m.Name, r.Name)
		}
		m.relations[r.Name] = r
	}
	if m.pk == nil {
		return fmt.Errorf("model %s: no primary key", m.Name)
	}
	return nil
}

// Field returns the scalar field with the given name.
func (m *Model) Field(name string) (*Field, bool) {
	f, ok := m.fields[name]
	return f, ok
}

// Relation returns the relation with the given name.
func (m *Model) Relation(name string) (*Relation, bool) {
	r, ok := m.relations[name]
	return r, ok
}

// PrimaryKey returns the identifier field.
func (m *Model) PrimaryKey() *Field {
	return m.pk
}

// FieldNames returns the scalar field names in declaration order.
func (m *Model) FieldNames() []string {
	names := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		names[i] = f.Name
	}
	return names
}

// UniqueKeys returns every key that identifies at most one row, the primary
// key first.
func (m *Model) UniqueKeys() [][]string {
	keys := [][]string{{m.pk.Name}}
	for _, f := range m.Fields {
		if f.Unique && !f.ID {
			keys = append(keys, []string{f.Name})
		}
	}
	return append(keys, m.CompoundUniques...)
}

// IsUniqueKey reports whether names, in any order, cover at least one unique key.
func (m *Model) IsUniqueKey(names []string) bool {
	have := make(map[string]bool, len(names))
	for _, n := range names {
		have[n] = true
	}
	for _, key := range m.UniqueKeys() {
		covered := true
		for _, k := range key {
			if !have[k] {
				covered = false
				break
			}
		}
		if covered {
			return true
		}
	}
	return false
}

// Schema is the closed set of models.
type Schema struct {
	models map[string]*Model
	order  []*Model
}

// New indexes the models and cross-checks their relations.
func New(models ...*Model) (*Schema, error) {
	s := &Schema{models: make(map[string]*Model, len(models))}
	for _, m := range models {
		if err := m.index(); err != nil {
			return nil, err
		}
		if _, dup := s.models[m.Name]; dup {
			return nil, fmt.Errorf("duplicate model %s", m.Name)
		}
		s.models[m.Name] = m
		s.order = append(s.order, m)
	}

	for _, m := range s.order {
		for _, r := range m.Relations {
			target, ok := s.models[r.Target]
			if !ok {
				return nil, fmt.Errorf("model %s: relation %s targets unknown model %s", m.Name, r.Name, r.Target)
			}
			switch r.Kind {
			case ToOne:
				if _, ok := m.Field(r.ForeignKey); !ok {
					return nil, fmt.Errorf("model %s: relation %s: unknown foreign key %s", m.Name, r.Name, r.ForeignKey)
				}
			case ToMany:
				if _, ok := target.Field(r.ForeignKey); !ok {
					return nil, fmt.Errorf("model %s: relation %s: unknown foreign key %s.%s", m.Name, r.Name, target.Name, r.ForeignKey)
				}
			case ManyToMany:
				if r.Link == nil {
					return nil, fmt.Errorf("model %s: relation %s: missing link table", m.Name, r.Name)
				}
			}
		}
	}
	return s, nil
}

// MustNew is New that panics, for package-level schema definitions.
func MustNew(models ...*Model) *Schema {
	s, err := New(models...)
	if err != nil {
		panic(err)
	}
	return s
}

// Model returns the model with the given name.
func (s *Schema) Model(name string) (*Model, bool) {
	m, ok := s.models[name]
	return m, ok
}

// Models returns the models in declaration order.
func (s *Schema) Models() []*Model {
	return s.order
}

// Dependents returns the ToOne relations, across all models, that point at
// the named model. These are the rows affected by deleting one of its rows.
func (s *Schema) Dependents(model string) []Dependent {
	var deps []Dependent
	for _, m := range s.order {
		for _, r := range m.Relations {
			if r.Kind == ToOne && r.Target == model {
				deps = append(deps, Dependent{Model: m, Relation: r})
			}
		}
	}
	return deps
}

// Dependent is a model holding a foreign key into another model.
type Dependent struct {
	Model    *Model
	Relation *Relation
}

// Links returns the distinct link tables declared across the schema, sorted
// by table name.
func (s *Schema) Links() []*Link {
	seen := map[string]*Link{}
	for _, m := range s.order {
		for _, r := range m.Relations {
			if r.Kind == ManyToMany {
				if _, ok := seen[r.Link.Table]; !ok {
					seen[r.Link.Table] = r.Link
				}
			}
		}
	}
	links := make([]*Link, 0, len(seen))
	for _, l := range seen {
		links = append(links, l)
	}
	sort.Slice(links, func(i, j int) bool { return links[i].Table < links[j].Table })
	return links
}
