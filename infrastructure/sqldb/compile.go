package sqldb

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jrazmi/growlog/core/repositories"
	"github.com/jrazmi/growlog/core/scaffolding/fop"
	"github.com/jrazmi/growlog/core/schema"
)

// Compiler turns store operations into statements for one dialect.
type Compiler struct {
	Dialect Dialect
	Schema  *schema.Schema
}

// builder accumulates one statement. Errors are kept and reported once the
// statement is complete.
type builder struct {
	d       Dialect
	schema  *schema.Schema
	buf     bytes.Buffer
	args    []any
	aliases int
	err     error
}

func (c Compiler) builder() *builder {
	return &builder{d: c.Dialect, schema: c.Schema}
}

func (b *builder) statement() (Statement, error) {
	if b.err != nil {
		return Statement{}, b.err
	}
	return Statement{SQL: b.buf.String(), Args: b.args}, nil
}

func (b *builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *builder) arg(v any) string {
	b.args = append(b.args, v)
	return b.d.Placeholder(len(b.args))
}

// value encodes v for f and binds it.
func (b *builder) value(f *schema.Field, v any) string {
	enc, err := b.d.Encode(f, v)
	if err != nil {
		b.fail(err)
	}
	return b.arg(enc)
}

func (b *builder) alias() string {
	a := "t" + strconv.Itoa(b.aliases)
	b.aliases++
	return a
}

func (b *builder) quote(name string) string {
	q, err := QuoteIdentifier(name)
	if err != nil {
		b.fail(err)
	}
	return q
}

func (b *builder) table(m *schema.Model) string {
	return b.quote(m.Table)
}

func (b *builder) col(alias string, f *schema.Field) string {
	if alias == "" {
		return b.quote(f.Column)
	}
	return alias + "." + b.quote(f.Column)
}

func (b *builder) model(name string) *schema.Model {
	m, ok := b.schema.Model(name)
	if !ok {
		b.fail(fmt.Errorf("unknown model %s", name))
		return nil
	}
	return m
}

// columns lists every field of m, in declaration order.
func (b *builder) columns(m *schema.Model, alias string) string {
	cols := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		cols[i] = b.col(alias, f)
	}
	return strings.Join(cols, ", ")
}

func (b *builder) where(m *schema.Model, alias string, p fop.Predicate) {
	if p == nil {
		return
	}
	b.buf.WriteString(" WHERE ")
	b.buf.WriteString(b.predicate(m, alias, p))
}

func (b *builder) predicate(m *schema.Model, alias string, pred fop.Predicate) string {
	switch p := pred.(type) {
	case nil:
		return "1=1"
	case fop.Condition:
		return b.condition(m, alias, p)
	case fop.And:
		if len(p) == 0 {
			return "1=1"
		}
		parts := make([]string, len(p))
		for i, c := range p {
			parts[i] = b.predicate(m, alias, c)
		}
		return "(" + strings.Join(parts, " AND ") + ")"
	case fop.Or:
		if len(p) == 0 {
			return "1=0"
		}
		parts := make([]string, len(p))
		for i, c := range p {
			parts[i] = b.predicate(m, alias, c)
		}
		return "(" + strings.Join(parts, " OR ") + ")"
	case fop.Not:
		return "NOT " + b.predicate(m, alias, fop.Or(p))
	case fop.RelationFilter:
		return b.relationFilter(m, alias, p)
	case fop.RelationCount:
		r, ok := m.Relation(p.Relation)
		if !ok {
			b.fail(fmt.Errorf("unknown relation %s.%s", m.Name, p.Relation))
			return "1=0"
		}
		count := b.related(m, alias, r, "COUNT(*)", "")
		return fmt.Sprintf("(%s) %s %s", count, sqlOp(p.Op), b.arg(p.Value))
	}
	b.fail(fmt.Errorf("unsupported predicate %T", pred))
	return "1=0"
}

func sqlOp(op fop.Op) string {
	switch op {
	case fop.OpEquals:
		return "="
	case fop.OpNot:
		return "<>"
	case fop.OpLt:
		return "<"
	case fop.OpLte:
		return "<="
	case fop.OpGt:
		return ">"
	case fop.OpGte:
		return ">="
	}
	return "="
}

func (b *builder) condition(m *schema.Model, alias string, c fop.Condition) string {
	f, ok := m.Field(c.Field)
	if !ok {
		b.fail(fmt.Errorf("unknown field %s.%s", m.Name, c.Field))
		return "1=0"
	}
	col := b.col(alias, f)

	if c.Value == nil {
		switch c.Op {
		case fop.OpEquals:
			return col + " IS NULL"
		case fop.OpNot:
			return col + " IS NOT NULL"
		}
	}
	if f.List {
		s, err := b.d.ListCondition(col, c.Op, c.Value, b.arg)
		if err != nil {
			b.fail(err)
		}
		return s
	}

	insensitive := c.Mode == fop.ModeInsensitive
	lhs := col
	operand := func(v any) string {
		p := b.value(f, v)
		switch {
		case f.Kind == schema.KindJSON:
			return b.d.JSON(p)
		case insensitive:
			return "LOWER(" + p + ")"
		}
		return p
	}
	switch {
	case f.Kind == schema.KindJSON:
		lhs = b.d.JSON(col)
	case insensitive:
		lhs = "LOWER(" + col + ")"
	}

	switch c.Op {
	case fop.OpEquals, fop.OpNot:
		return lhs + " " + sqlOp(c.Op) + " " + operand(c.Value)
	case fop.OpIn, fop.OpNotIn:
		values, _ := c.Value.([]any)
		if len(values) == 0 {
			if c.Op == fop.OpIn {
				return "1=0"
			}
			return col + " IS NOT NULL"
		}
		parts := make([]string, len(values))
		for i, v := range values {
			parts[i] = operand(v)
		}
		kw := " IN ("
		if c.Op == fop.OpNotIn {
			kw = " NOT IN ("
		}
		return lhs + kw + strings.Join(parts, ", ") + ")"
	case fop.OpLt, fop.OpLte, fop.OpGt, fop.OpGte:
		return col + " " + sqlOp(c.Op) + " " + b.value(f, c.Value)
	case fop.OpContains, fop.OpStartsWith, fop.OpEndsWith:
		s, _ := c.Value.(string)
		return b.d.Like(col, c.Op, s, insensitive, b.arg)
	}
	b.fail(fmt.Errorf("operator %s is not supported on %s.%s", c.Op, m.Name, c.Field))
	return "1=0"
}

func (b *builder) relationFilter(m *schema.Model, alias string, p fop.RelationFilter) string {
	r, ok := m.Relation(p.Relation)
	if !ok {
		b.fail(fmt.Errorf("unknown relation %s.%s", m.Name, p.Relation))
		return "1=0"
	}
	switch p.Quantifier {
	case fop.Is, fop.IsNot:
		if p.Where == nil && r.Kind == schema.ToOne {
			fk, _ := m.Field(r.ForeignKey)
			if p.Quantifier == fop.Is {
				return b.col(alias, fk) + " IS NULL"
			}
			return b.col(alias, fk) + " IS NOT NULL"
		}
		exists := "EXISTS (" + b.related(m, alias, r, "1", "", p.Where) + ")"
		if p.Where == nil {
			// is: null on a to-many relation means no related row
			if p.Quantifier == fop.Is {
				return "NOT " + exists
			}
			return exists
		}
		if p.Quantifier == fop.IsNot {
			return "NOT " + exists
		}
		return exists
	case fop.Some:
		return "EXISTS (" + b.related(m, alias, r, "1", "", p.Where) + ")"
	case fop.None:
		return "NOT EXISTS (" + b.related(m, alias, r, "1", "", p.Where) + ")"
	case fop.Every:
		return "NOT EXISTS (" + b.related(m, alias, r, "1", "NOT ", p.Where) + ")"
	}
	b.fail(fmt.Errorf("unknown relation quantifier %q", p.Quantifier))
	return "1=0"
}

// related selects expr over the rows r reaches from the row aliased alias,
// filtered by where (negated when negate is "NOT ").
func (b *builder) related(m *schema.Model, alias string, r *schema.Relation, expr, negate string, where ...fop.Predicate) string {
	target := b.model(r.Target)
	if target == nil {
		return "SELECT " + expr
	}
	ta := b.alias()
	tpk := target.PrimaryKey()

	var from, join string
	switch r.Kind {
	case schema.ToOne:
		fk, _ := m.Field(r.ForeignKey)
		from = b.table(target) + " AS " + ta
		join = b.col(ta, tpk) + " = " + b.col(alias, fk)
	case schema.ToMany:
		fk, _ := target.Field(r.ForeignKey)
		from = b.table(target) + " AS " + ta
		join = b.col(ta, fk) + " = " + b.col(alias, m.PrimaryKey())
	case schema.ManyToMany:
		la := b.alias()
		from = fmt.Sprintf("%s AS %s JOIN %s AS %s ON %s = %s.%s",
			b.quote(r.Link.Table), la, b.table(target), ta,
			b.col(ta, tpk), la, b.quote(r.Link.TargetColumn))
		join = la + "." + b.quote(r.Link.SourceColumn) + " = " + b.col(alias, m.PrimaryKey())
	}

	sql := "SELECT " + expr + " FROM " + from + " WHERE " + join
	for _, w := range where {
		if w != nil {
			sql += " AND " + negate + b.predicate(target, ta, w)
		}
	}
	return sql
}

func (b *builder) orderBy(m *schema.Model, alias string, orders []fop.Order) {
	if len(orders) == 0 {
		return
	}
	parts := make([]string, 0, len(orders))
	for _, o := range orders {
		f, ok := m.Field(o.Field)
		if !ok {
			b.fail(fmt.Errorf("unknown field %s.%s", m.Name, o.Field))
			continue
		}
		parts = append(parts, orderTerm(b.col(alias, f), o))
	}
	b.buf.WriteString(" ORDER BY ")
	b.buf.WriteString(strings.Join(parts, ", "))
}

func orderTerm(expr string, o fop.Order) string {
	dir := " ASC"
	if o.Descending() {
		dir = " DESC"
	}
	nulls := " NULLS LAST"
	if o.NullsComeFirst() {
		nulls = " NULLS FIRST"
	}
	return expr + dir + nulls
}

// Find selects the rows of q.
func (c Compiler) Find(m *schema.Model, q repositories.Query) (Statement, error) {
	b := c.builder()
	a := b.alias()
	fmt.Fprintf(&b.buf, "SELECT %s FROM %s AS %s", b.columns(m, a), b.table(m), a)
	b.where(m, a, q.Where)
	b.orderBy(m, a, q.OrderBy)
	b.buf.WriteString(b.d.LimitOffset(q.Take, q.Skip))
	return b.statement()
}

// Insert adds rows, each holding every field of m. With skipDuplicates,
// conflicting rows are dropped.
func (c Compiler) Insert(m *schema.Model, rows []repositories.Row, skipDuplicates bool) (Statement, error) {
	if len(rows) == 0 {
		return Statement{}, errors.New("insert without rows")
	}
	b := c.builder()
	fmt.Fprintf(&b.buf, "INSERT INTO %s (%s) VALUES ", b.table(m), b.columns(m, ""))
	for i, r := range rows {
		if i > 0 {
			b.buf.WriteString(", ")
		}
		vals := make([]string, len(m.Fields))
		for j, f := range m.Fields {
			vals[j] = b.value(f, r[f.Name])
		}
		b.buf.WriteString("(" + strings.Join(vals, ", ") + ")")
	}
	if skipDuplicates {
		b.buf.WriteString(" ON CONFLICT DO NOTHING")
	}
	b.buf.WriteString(" RETURNING " + b.columns(m, ""))
	return b.statement()
}

// Update assigns set on the rows matching where.
func (c Compiler) Update(m *schema.Model, where fop.Predicate, set repositories.Row) (Statement, error) {
	if len(set) == 0 {
		return Statement{}, errors.New("update without values")
	}
	b := c.builder()
	a := b.alias()
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)

	assigns := make([]string, 0, len(names))
	for _, name := range names {
		f, ok := m.Field(name)
		if !ok {
			b.fail(fmt.Errorf("unknown field %s.%s", m.Name, name))
			continue
		}
		assigns = append(assigns, b.col("", f)+" = "+b.value(f, set[name]))
	}
	fmt.Fprintf(&b.buf, "UPDATE %s AS %s SET %s", b.table(m), a, strings.Join(assigns, ", "))
	b.where(m, a, where)
	b.buf.WriteString(" RETURNING " + b.columns(m, ""))
	return b.statement()
}

// Delete removes the rows matching where, the first limit of them by
// primary key when limit is positive.
func (c Compiler) Delete(m *schema.Model, where fop.Predicate, limit int) (Statement, error) {
	b := c.builder()
	a := b.alias()
	fmt.Fprintf(&b.buf, "DELETE FROM %s AS %s", b.table(m), a)
	if limit > 0 {
		inner := b.alias()
		pk := m.PrimaryKey()
		fmt.Fprintf(&b.buf, " WHERE %s IN (SELECT %s FROM %s AS %s", b.col(a, pk), b.col(inner, pk), b.table(m), inner)
		b.where(m, inner, where)
		b.orderBy(m, inner, []fop.Order{fop.Asc(pk.Name)})
		b.buf.WriteString(b.d.LimitOffset(limit, 0) + ")")
	} else {
		b.where(m, a, where)
	}
	b.buf.WriteString(" RETURNING " + b.columns(m, ""))
	return b.statement()
}

// aggSpec is one requested aggregate, in result column order.
type aggSpec struct {
	agg   fop.Agg
	field string
}

func aggSpecs(aggs fop.Aggregates) []aggSpec {
	var specs []aggSpec
	for _, agg := range []fop.Agg{fop.AggCount, fop.AggAvg, fop.AggSum, fop.AggMin, fop.AggMax} {
		for _, f := range aggs.Fields(agg) {
			specs = append(specs, aggSpec{agg: agg, field: f})
		}
	}
	return specs
}

func (b *builder) aggExpr(m *schema.Model, alias string, agg fop.Agg, field string) string {
	if agg == fop.AggCount && field == fop.CountAll {
		return "COUNT(*)"
	}
	f, ok := m.Field(field)
	if !ok {
		b.fail(fmt.Errorf("unknown field %s.%s", m.Name, field))
		return "NULL"
	}
	col := b.col(alias, f)
	switch agg {
	case fop.AggCount:
		return "COUNT(" + col + ")"
	case fop.AggAvg:
		return "CAST(AVG(" + col + ") AS " + b.d.FloatType() + ")"
	case fop.AggSum:
		if f.Kind == schema.KindInt {
			return "CAST(SUM(" + col + ") AS " + b.d.IntType() + ")"
		}
		return "CAST(SUM(" + col + ") AS " + b.d.FloatType() + ")"
	case fop.AggMin:
		return "MIN(" + col + ")"
	case fop.AggMax:
		return "MAX(" + col + ")"
	}
	b.fail(fmt.Errorf("unknown aggregate %s", agg))
	return "NULL"
}

// Aggregate computes aggs over the window q selects. The result has one
// column per aggregate, in the order of aggSpecs.
func (c Compiler) Aggregate(m *schema.Model, q repositories.Query, aggs fop.Aggregates) (Statement, error) {
	b := c.builder()
	specs := aggSpecs(aggs)
	if len(specs) == 0 {
		return Statement{}, errors.New("aggregate without aggregates")
	}
	w := "w"
	exprs := make([]string, len(specs))
	for i, s := range specs {
		exprs[i] = b.aggExpr(m, w, s.agg, s.field)
	}
	inner := b.alias()
	fmt.Fprintf(&b.buf, "SELECT %s FROM (SELECT %s FROM %s AS %s", strings.Join(exprs, ", "), b.columns(m, inner), b.table(m), inner)
	b.where(m, inner, q.Where)
	b.orderBy(m, inner, q.OrderBy)
	b.buf.WriteString(b.d.LimitOffset(q.Take, q.Skip))
	b.buf.WriteString(") AS " + w)
	return b.statement()
}

// GroupBy groups rows by q.By. The result has one column per By field
// followed by one per aggregate, in the order of aggSpecs.
func (c Compiler) GroupBy(m *schema.Model, q repositories.GroupQuery) (Statement, error) {
	b := c.builder()
	a := b.alias()
	keys := make([]string, 0, len(q.By))
	for _, name := range q.By {
		f, ok := m.Field(name)
		if !ok {
			b.fail(fmt.Errorf("unknown field %s.%s", m.Name, name))
			continue
		}
		keys = append(keys, b.col(a, f))
	}
	cols := append([]string(nil), keys...)
	for _, s := range aggSpecs(q.Aggregates) {
		cols = append(cols, b.aggExpr(m, a, s.agg, s.field))
	}

	fmt.Fprintf(&b.buf, "SELECT %s FROM %s AS %s", strings.Join(cols, ", "), b.table(m), a)
	b.where(m, a, q.Where)
	b.buf.WriteString(" GROUP BY " + strings.Join(keys, ", "))
	if q.Having != nil {
		b.buf.WriteString(" HAVING " + b.having(m, a, q.Having))
	}
	if len(q.OrderBy) > 0 {
		terms := make([]string, len(q.OrderBy))
		for i, o := range q.OrderBy {
			expr := ""
			if o.Aggregate == "" {
				f, _ := m.Field(o.Field)
				if f == nil {
					b.fail(fmt.Errorf("unknown field %s.%s", m.Name, o.Field))
					continue
				}
				expr = b.col(a, f)
			} else {
				expr = b.aggExpr(m, a, o.Aggregate, o.Field)
			}
			terms[i] = orderTerm(expr, o.Order())
		}
		b.buf.WriteString(" ORDER BY " + strings.Join(terms, ", "))
	}
	b.buf.WriteString(b.d.LimitOffset(q.Take, q.Skip))
	return b.statement()
}

func (b *builder) having(m *schema.Model, alias string, pred fop.Predicate) string {
	switch p := pred.(type) {
	case fop.HavingCondition:
		expr := b.aggExpr(m, alias, p.Aggregate, p.Field)
		if p.Value == nil {
			if p.Op == fop.OpNot {
				return expr + " IS NOT NULL"
			}
			return expr + " IS NULL"
		}
		return expr + " " + sqlOp(p.Op) + " " + b.arg(b.havingValue(m, p))
	case fop.And:
		if len(p) == 0 {
			return "1=1"
		}
		parts := make([]string, len(p))
		for i, c := range p {
			parts[i] = b.having(m, alias, c)
		}
		return "(" + strings.Join(parts, " AND ") + ")"
	case fop.Or:
		if len(p) == 0 {
			return "1=0"
		}
		parts := make([]string, len(p))
		for i, c := range p {
			parts[i] = b.having(m, alias, c)
		}
		return "(" + strings.Join(parts, " OR ") + ")"
	case fop.Not:
		return "NOT " + b.having(m, alias, fop.Or(p))
	}
	return b.predicate(m, alias, pred)
}

// havingValue encodes the operand of an aggregate comparison. Counts and
// averages are plain numbers; other aggregates take the field's form.
func (b *builder) havingValue(m *schema.Model, p fop.HavingCondition) any {
	switch p.Aggregate {
	case fop.AggCount, fop.AggAvg:
		return p.Value
	}
	f, ok := m.Field(p.Field)
	if !ok {
		return p.Value
	}
	enc, err := b.d.Encode(f, p.Value)
	if err != nil {
		b.fail(err)
	}
	return enc
}

// Links selects the link rows whose source is one of sources.
func (c Compiler) Links(link *schema.Link, sources []any) (Statement, error) {
	b := c.builder()
	src, dst := b.quote(link.SourceColumn), b.quote(link.TargetColumn)
	fmt.Fprintf(&b.buf, "SELECT %s, %s FROM %s", src, dst, b.quote(link.Table))
	if len(sources) == 0 {
		b.buf.WriteString(" WHERE 1=0")
		return b.statement()
	}
	b.buf.WriteString(" WHERE " + src + " IN (" + b.list(sources) + ")")
	b.buf.WriteString(" ORDER BY " + src + ", " + dst)
	return b.statement()
}

// Link adds pairs, ignoring existing ones.
func (c Compiler) Link(link *schema.Link, pairs []repositories.Pair) (Statement, error) {
	if len(pairs) == 0 {
		return Statement{}, errors.New("link without pairs")
	}
	b := c.builder()
	fmt.Fprintf(&b.buf, "INSERT INTO %s (%s, %s) VALUES ", b.quote(link.Table), b.quote(link.SourceColumn), b.quote(link.TargetColumn))
	for i, p := range pairs {
		if i > 0 {
			b.buf.WriteString(", ")
		}
		fmt.Fprintf(&b.buf, "(%s, %s)", b.arg(p.Source), b.arg(p.Target))
	}
	b.buf.WriteString(" ON CONFLICT DO NOTHING")
	return b.statement()
}

// Unlink removes the links of source to targets, or all of them when
// targets is nil.
func (c Compiler) Unlink(link *schema.Link, source any, targets []any) (Statement, error) {
	b := c.builder()
	fmt.Fprintf(&b.buf, "DELETE FROM %s WHERE %s = %s", b.quote(link.Table), b.quote(link.SourceColumn), b.arg(source))
	if targets != nil {
		b.buf.WriteString(" AND " + b.quote(link.TargetColumn) + " IN (" + b.list(targets) + ")")
	}
	return b.statement()
}

func (b *builder) list(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = b.arg(v)
	}
	return strings.Join(parts, ", ")
}
