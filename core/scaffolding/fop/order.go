package fop

// Direction is an ordering direction.
type Direction string

const (
	ASC  Direction = "asc"
	DESC Direction = "desc"
)

// Nulls places null values within an ordering.
type Nulls string

const (
	// NullsDefault follows the Postgres convention: nulls sort as the
	// largest value, so last when ascending and first when descending.
	NullsDefault Nulls = ""
	NullsFirst   Nulls = "first"
	NullsLast    Nulls = "last"
)

// Order sorts by one scalar field.
type Order struct {
	Field     string
	Direction Direction
	Nulls     Nulls
}

// Asc orders by field ascending.
func Asc(field string) Order {
	return Order{Field: field, Direction: ASC}
}

// Desc orders by field descending.
func Desc(field string) Order {
	return Order{Field: field, Direction: DESC}
}

// WithNullsFirst returns the order with nulls placed first.
func (o Order) WithNullsFirst() Order {
	o.Nulls = NullsFirst
	return o
}

// WithNullsLast returns the order with nulls placed last.
func (o Order) WithNullsLast() Order {
	o.Nulls = NullsLast
	return o
}

// Descending reports whether the order is descending.
func (o Order) Descending() bool {
	return o.Direction == DESC
}

// NullsComeFirst reports where nulls end up once defaults are resolved.
func (o Order) NullsComeFirst() bool {
	switch o.Nulls {
	case NullsFirst:
		return true
	case NullsLast:
		return false
	}
	return o.Descending()
}

// Reverse flips the order, nulls included, so that scanning it yields the
// rows of o backwards.
func (o Order) Reverse() Order {
	r := Order{Field: o.Field, Direction: DESC, Nulls: NullsLast}
	if o.Descending() {
		r.Direction = ASC
	}
	if !o.NullsComeFirst() {
		r.Nulls = NullsFirst
	}
	return r
}

// WithTieBreak appends an ascending order on pk unless orders already
// contain it.
func WithTieBreak(orders []Order, pk string) []Order {
	for _, o := range orders {
		if o.Field == pk {
			return orders
		}
	}
	out := make([]Order, 0, len(orders)+1)
	out = append(out, orders...)
	return append(out, Asc(pk))
}

// ReverseAll reverses every order.
func ReverseAll(orders []Order) []Order {
	out := make([]Order, len(orders))
	for i, o := range orders {
		out[i] = o.Reverse()
	}
	return out
}
