package fop

// Predicate is a filter over the rows of one model. The concrete predicates
// are Condition, And, Or, Not, RelationFilter, RelationCount and, for
// group-by having clauses, HavingCondition.
type Predicate interface {
	predicate()
}

// Op is a scalar comparison.
type Op string

const (
	OpEquals     Op = "equals"
	OpNot        Op = "not"
	OpIn         Op = "in"
	OpNotIn      Op = "notIn"
	OpLt         Op = "lt"
	OpLte        Op = "lte"
	OpGt         Op = "gt"
	OpGte        Op = "gte"
	OpContains   Op = "contains"
	OpStartsWith Op = "startsWith"
	OpEndsWith   Op = "endsWith"

	// list operators
	OpHas      Op = "has"
	OpHasEvery Op = "hasEvery"
	OpHasSome  Op = "hasSome"
	OpIsEmpty  Op = "isEmpty"
)

// Mode selects case sensitivity for string comparisons.
type Mode string

const (
	ModeDefault     Mode = "default"
	ModeInsensitive Mode = "insensitive"
)

// Condition compares one scalar field. Equality against nil matches null,
// OpNot against nil matches non-null. Any other comparison against a null
// column is unknown and does not match.
type Condition struct {
	Field string
	Op    Op
	Value any
	Mode  Mode
}

// Insensitive returns the condition with case-insensitive matching.
func (c Condition) Insensitive() Condition {
	c.Mode = ModeInsensitive
	return c
}

// And matches when every child matches. An empty And matches everything.
type And []Predicate

// Or matches when at least one child matches. An empty Or matches nothing.
type Or []Predicate

// Not matches when none of its children match.
type Not []Predicate

// Quantifier selects how a relation filter applies to related rows.
type Quantifier string

const (
	Some  Quantifier = "some"
	Every Quantifier = "every"
	None  Quantifier = "none"
	Is    Quantifier = "is"
	IsNot Quantifier = "isNot"
)

// RelationFilter filters on related rows. Some, Every and None apply to
// to-many relations; Is and IsNot to to-one relations, where Is with a nil
// Where matches rows without a related row.
type RelationFilter struct {
	Relation   string
	Quantifier Quantifier
	Where      Predicate
}

// RelationCount compares the number of related rows of a to-many relation.
type RelationCount struct {
	Relation string
	Op       Op
	Value    int64
}

// HavingCondition compares an aggregate of a group.
type HavingCondition struct {
	Aggregate Agg
	Field     string
	Op        Op
	Value     any
}

func (Condition) predicate()       {}
func (And) predicate()             {}
func (Or) predicate()              {}
func (Not) predicate()             {}
func (RelationFilter) predicate()  {}
func (RelationCount) predicate()   {}
func (HavingCondition) predicate() {}

// FieldRef builds conditions on a field.
type FieldRef string

// F names a field for building conditions.
//
//	fop.F("email").Equals("a@example.com")
//	fop.F("name").Contains("kush").Insensitive()
func F(field string) FieldRef {
	return FieldRef(field)
}

func (f FieldRef) cond(op Op, v any) Condition {
	return Condition{Field: string(f), Op: op, Value: v}
}

func (f FieldRef) Equals(v any) Condition { return f.cond(OpEquals, v) }
func (f FieldRef) Not(v any) Condition { return f.cond(OpNot, v) }
func (f FieldRef) In(v ...any) Condition { return f.cond(OpIn, v) }
func (f FieldRef) NotIn(v ...any) Condition { return f.cond(OpNotIn, v) }
func (f FieldRef) Lt(v any) Condition { return f.cond(OpLt, v) }
func (f FieldRef) Lte(v any) Condition { return f.cond(OpLte, v) }
func (f FieldRef) Gt(v any) Condition { return f.cond(OpGt, v) }
func (f FieldRef) Gte(v any) Condition { return f.cond(OpGte, v) }
func (f FieldRef) Contains(s string) Condition { return f.cond(OpContains, s) }
func (f FieldRef) StartsWith(s string) Condition { return f.cond(OpStartsWith, s) }
func (f FieldRef) EndsWith(s string) Condition { return f.cond(OpEndsWith, s) }
func (f FieldRef) Has(v any) Condition { return f.cond(OpHas, v) }
func (f FieldRef) HasEvery(v ...any) Condition { return f.cond(OpHasEvery, v) }
func (f FieldRef) HasSome(v ...any) Condition { return f.cond(OpHasSome, v) }
func (f FieldRef) IsEmpty(empty bool) Condition { return f.cond(OpIsEmpty, empty) }

// SomeOf matches rows with at least one related row matching where.
func SomeOf(relation string, where Predicate) RelationFilter {
	return RelationFilter{Relation: relation, Quantifier: Some, Where: where}
}

// EveryOf matches rows whose related rows all match where.
func EveryOf(relation string, where Predicate) RelationFilter {
	return RelationFilter{Relation: relation, Quantifier: Every, Where: where}
}

// NoneOf matches rows with no related row matching where.
func NoneOf(relation string, where Predicate) RelationFilter {
	return RelationFilter{Relation: relation, Quantifier: None, Where: where}
}

// Related matches rows whose to-one relation matches where.
func Related(relation string, where Predicate) RelationFilter {
	return RelationFilter{Relation: relation, Quantifier: Is, Where: where}
}

// NotRelated matches rows whose to-one relation does not match where.
func NotRelated(relation string, where Predicate) RelationFilter {
	return RelationFilter{Relation: relation, Quantifier: IsNot, Where: where}
}

// CountOf compares the number of related rows.
func CountOf(relation string, op Op, n int64) RelationCount {
	return RelationCount{Relation: relation, Op: op, Value: n}
}

// Conjoin ands the non-nil predicates together.
func Conjoin(preds ...Predicate) Predicate {
	var out And
	for _, p := range preds {
		if p == nil {
			continue
		}
		if and, ok := p.(And); ok {
			out = append(out, and...)
			continue
		}
		out = append(out, p)
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return out
}
