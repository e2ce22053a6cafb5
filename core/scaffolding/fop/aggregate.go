package fop

// Agg names an aggregate function.
type Agg string

const (
	AggCount Agg = "_count"
	AggAvg   Agg = "_avg"
	AggSum   Agg = "_sum"
	AggMin   Agg = "_min"
	AggMax   Agg = "_max"
)

// CountAll is the field name counting every row rather than non-null values.
const CountAll = "_all"

// Aggregates lists the fields to aggregate, per function.
type Aggregates struct {
	Count []string
	Avg   []string
	Sum   []string
	Min   []string
	Max   []string
}

// Empty reports whether no aggregate is requested.
func (a Aggregates) Empty() bool {
	return len(a.Count) == 0 && len(a.Avg) == 0 && len(a.Sum) == 0 && len(a.Min) == 0 && len(a.Max) == 0
}

// Fields returns the requested fields of one function.
func (a Aggregates) Fields(agg Agg) []string {
	switch agg {
	case AggCount:
		return a.Count
	case AggAvg:
		return a.Avg
	case AggSum:
		return a.Sum
	case AggMin:
		return a.Min
	case AggMax:
		return a.Max
	}
	return nil
}

// AggregateArgs select the rows to aggregate the way FindArgs select rows to
// read, then name the aggregates to compute over them.
type AggregateArgs struct {
	Where   Predicate
	OrderBy []Order
	Cursor  map[string]any
	Take    *int
	Skip    int
	Aggregates
}

// AggregateResult holds aggregate values keyed by field. Avg is nil when no
// non-null value was seen; Sum, Min and Max likewise hold nil.
type AggregateResult struct {
	Count map[string]int64    `json:"_count,omitempty"`
	Avg   map[string]*float64 `json:"_avg,omitempty"`
	Sum   map[string]any      `json:"_sum,omitempty"`
	Min   map[string]any      `json:"_min,omitempty"`
	Max   map[string]any      `json:"_max,omitempty"`
}

// GroupOrder orders groups by a grouping field (Aggregate empty) or by an
// aggregate of a field.
type GroupOrder struct {
	Aggregate Agg
	Field     string
	Direction Direction
	Nulls     Nulls
}

// Order returns the plain field order, ignoring the aggregate.
func (g GroupOrder) Order() Order {
	return Order{Field: g.Field, Direction: g.Direction, Nulls: g.Nulls}
}

// GroupByArgs group rows by the By fields. Plain field references in OrderBy
// or Having must be one of By, and Take or Skip require OrderBy.
type GroupByArgs struct {
	By      []string
	Where   Predicate
	Having  Predicate
	OrderBy []GroupOrder
	Take    *int
	Skip    int
	Aggregates
}

// GroupRow is one group: its key values plus the requested aggregates.
type GroupRow struct {
	Keys map[string]any
	AggregateResult
}
