package fop_test

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/jrazmi/growlog/core/scaffolding/fop"
	"github.com/jrazmi/growlog/core/schema"
)

func decode(t *testing.T, body string) map[string]any {
	t.Helper()
	var raw map[string]any
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
	return raw
}

func model(t *testing.T, name string) *schema.Model {
	t.Helper()
	m, ok := schema.Default.Model(name)
	if !ok {
		t.Fatalf("no model %s", name)
	}
	return m
}

func cond(field string, op fop.Op, v any, mode fop.Mode) fop.Condition {
	return fop.Condition{Field: field, Op: op, Value: v, Mode: mode}
}

func TestParseWhere(t *testing.T) {
	tests := []struct {
		name string
		body string
		want fop.Predicate
	}{
		{
			"equality shorthand",
			`{"name": "Clone1"}`,
			cond("name", fop.OpEquals, "Clone1", ""),
		},
		{
			"operators are anded",
			`{"name": "Clone1", "stage": {"in": ["VEGETATIVE", "FLOWERING"]}}`,
			fop.And{
				cond("name", fop.OpEquals, "Clone1", ""),
				cond("stage", fop.OpIn, []any{"VEGETATIVE", "FLOWERING"}, fop.ModeDefault),
			},
		},
		{
			"insensitive mode",
			`{"name": {"contains": "kush", "mode": "insensitive"}}`,
			cond("name", fop.OpContains, "kush", fop.ModeInsensitive),
		},
		{
			"or list",
			`{"OR": [{"name": "a"}, {"name": "b"}]}`,
			fop.Or{cond("name", fop.OpEquals, "a", ""), cond("name", fop.OpEquals, "b", "")},
		},
		{
			"and object is flattened",
			`{"AND": {"name": "a"}}`,
			cond("name", fop.OpEquals, "a", ""),
		},
		{
			"not list",
			`{"NOT": [{"id": "p1"}, {"id": "p2"}]}`,
			fop.Not{cond("id", fop.OpEquals, "p1", ""), cond("id", fop.OpEquals, "p2", "")},
		},
		{
			"not operator",
			`{"name": {"not": "x"}}`,
			cond("name", fop.OpNot, "x", fop.ModeDefault),
		},
		{
			"nested not",
			`{"name": {"not": {"startsWith": "x", "mode": "insensitive"}}}`,
			fop.Not{cond("name", fop.OpStartsWith, "x", fop.ModeInsensitive)},
		},
		{
			"nested not inherits mode",
			`{"name": {"mode": "insensitive", "not": {"equals": "x"}}}`,
			fop.Not{cond("name", fop.OpEquals, "x", fop.ModeInsensitive)},
		},
		{
			"every related row",
			`{"logs": {"every": {"type": "WATERING"}}}`,
			fop.EveryOf("logs", cond("type", fop.OpEquals, "WATERING", "")),
		},
		{
			"no related rows at all",
			`{"logs": {"none": {}}}`,
			fop.NoneOf("logs", fop.And{}),
		},
		{
			"some over many-to-many",
			`{"tags": {"some": {"name": "indoor"}}}`,
			fop.SomeOf("tags", cond("name", fop.OpEquals, "indoor", "")),
		},
		{
			"to-one without a row",
			`{"strain": null}`,
			fop.RelationFilter{Relation: "strain", Quantifier: fop.Is},
		},
		{
			"to-one shorthand",
			`{"strain": {"name": "Kush"}}`,
			fop.Related("strain", cond("name", fop.OpEquals, "Kush", "")),
		},
		{
			"to-one isNot",
			`{"strain": {"isNot": {"name": "Kush"}}}`,
			fop.NotRelated("strain", cond("name", fop.OpEquals, "Kush", "")),
		},
		{
			"relation count operator",
			`{"_count": {"logs": {"gt": 2}}}`,
			fop.CountOf("logs", fop.OpGt, 2),
		},
		{
			"relation count shorthand",
			`{"_count": {"logs": 3}}`,
			fop.CountOf("logs", fop.OpEquals, 3),
		},
	}
	plant := model(t, schema.Plant)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fop.ParseWhere(schema.Default, plant, decode(t, tt.body), "where")
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestParseWhereRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		path string
	}{
		{"unknown field", `{"bogus": 1}`, "where.bogus"},
		{"mode without operator", `{"name": {"mode": "insensitive"}}`, "where.name.mode"},
		{"null to-many", `{"logs": null}`, "where.logs"},
		{"unknown quantifier", `{"logs": {"any": {}}}`, "where.logs"},
		{"quantifier not an object", `{"logs": {"some": 1}}`, "where.logs.some"},
		{"fractional count", `{"_count": {"logs": 1.5}}`, "where._count.logs"},
		{"not list of scalars", `{"NOT": [1]}`, "where.NOT[0]"},
		{"nested unknown field", `{"OR": [{"logs": {"some": {"bogus": 1}}}]}`, "where.OR[0].logs.some.bogus"},
	}
	plant := model(t, schema.Plant)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fop.ParseWhere(schema.Default, plant, decode(t, tt.body), "where")
			if !errors.Is(err, fop.ErrValidation) {
				t.Fatalf("got %v, want ErrValidation", err)
			}
			var verr *fop.ValidationError
			if errors.As(err, &verr) && verr.Path != tt.path {
				t.Errorf("path = %q, want %q", verr.Path, tt.path)
			}
		})
	}
}

func TestParseWhereLeavesInputIntact(t *testing.T) {
	raw := decode(t, `{"name": {"mode": "insensitive", "not": {"equals": "x"}}}`)
	if _, err := fop.ParseWhere(schema.Default, model(t, schema.Plant), raw, ""); err != nil {
		t.Fatalf("parse: %v", err)
	}
	nested := raw["name"].(map[string]any)["not"].(map[string]any)
	if _, ok := nested["mode"]; ok {
		t.Errorf("nested filter was modified: %v", nested)
	}
}

func TestParseFindArgs(t *testing.T) {
	raw := decode(t, `{
		"where": {"userId": "u1"},
		"orderBy": [{"startDate": "desc"}, {"location": {"sort": "asc", "nulls": "last"}}],
		"take": 10,
		"skip": 1,
		"cursor": {"id": "p1"},
		"distinct": ["stage"],
		"include": {"logs": {"take": 2, "orderBy": {"date": "desc"}}, "_count": {"select": {"logs": true}}}
	}`)
	args, err := fop.ParseFindArgs(schema.Default, model(t, schema.Plant), raw, "")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !reflect.DeepEqual(args.Where, cond("userId", fop.OpEquals, "u1", "")) {
		t.Errorf("where = %#v", args.Where)
	}
	wantOrder := []fop.Order{fop.Desc("startDate"), fop.Asc("location").WithNullsLast()}
	if !reflect.DeepEqual(args.OrderBy, wantOrder) {
		t.Errorf("orderBy = %+v, want %+v", args.OrderBy, wantOrder)
	}
	if args.Take == nil || *args.Take != 10 || args.Skip != 1 {
		t.Errorf("take/skip = %v/%d", args.Take, args.Skip)
	}
	if args.Cursor["id"] != "p1" || !reflect.DeepEqual(args.Distinct, []string{"stage"}) {
		t.Errorf("cursor/distinct = %v/%v", args.Cursor, args.Distinct)
	}
	if len(args.Include) != 1 || args.Include[0].Relation != "logs" || args.Include[0].Args == nil {
		t.Fatalf("include = %+v", args.Include)
	}
	if inc := args.Include[0].Args; *inc.Take != 2 || !reflect.DeepEqual(inc.OrderBy, []fop.Order{fop.Desc("date")}) {
		t.Errorf("include args = %+v", inc)
	}
	if !reflect.DeepEqual(args.Count, []string{"logs"}) {
		t.Errorf("_count = %v", args.Count)
	}
}

func TestParseFindArgsRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown argument", `{"limit": 1}`},
		{"fractional take", `{"take": 1.5}`},
		{"bad order", `{"orderBy": [{"name": 1}]}`},
		{"omit with relation args", `{"omit": {"logs": {"take": 1}}}`},
		{"count without select", `{"include": {"_count": true}}`},
		{"include unknown relation", `{"include": {"bogus": {"take": 1}}}`},
	}
	plant := model(t, schema.Plant)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := fop.ParseFindArgs(schema.Default, plant, decode(t, tt.body), ""); !errors.Is(err, fop.ErrValidation) {
				t.Errorf("got %v, want ErrValidation", err)
			}
		})
	}
}

func TestParseAggregate(t *testing.T) {
	raw := decode(t, `{
		"where": {"plantId": "p1"},
		"_count": true,
		"_avg": {"temperature": true},
		"_sum": {"waterAmount": true, "ph": false},
		"take": 5
	}`)
	args, err := fop.ParseAggregate(schema.Default, model(t, schema.Log), raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := fop.Aggregates{Count: []string{fop.CountAll}, Avg: []string{"temperature"}, Sum: []string{"waterAmount"}}
	if !reflect.DeepEqual(args.Aggregates, want) {
		t.Errorf("aggregates = %+v, want %+v", args.Aggregates, want)
	}
	if !reflect.DeepEqual(args.Where, cond("plantId", fop.OpEquals, "p1", "")) || *args.Take != 5 {
		t.Errorf("where/take = %#v/%v", args.Where, args.Take)
	}

	for _, body := range []string{`{"_avg": true}`, `{"select": {"id": true}}`, `{"distinct": ["type"]}`} {
		if _, err := fop.ParseAggregate(schema.Default, model(t, schema.Log), decode(t, body)); !errors.Is(err, fop.ErrValidation) {
			t.Errorf("%s: got %v, want ErrValidation", body, err)
		}
	}
}

func TestParseGroupBy(t *testing.T) {
	avgAbove21 := fop.HavingCondition{Aggregate: fop.AggAvg, Field: "temperature", Op: fop.OpGt, Value: 21.0}
	tests := []struct {
		name    string
		body    string
		having  fop.Predicate
		orderBy []fop.GroupOrder
	}{
		{
			name:   "aggregate first having",
			body:   `{"by": ["plantId"], "having": {"_avg": {"temperature": {"gt": 21}}}}`,
			having: avgAbove21,
		},
		{
			name:   "field first having",
			body:   `{"by": ["plantId"], "having": {"temperature": {"_avg": {"gt": 21}}}}`,
			having: avgAbove21,
		},
		{
			name: "field first with two aggregates",
			body: `{"by": ["plantId"], "having": {"temperature": {"_avg": {"gt": 21}, "_max": {"lt": 30}}}}`,
			having: fop.And{
				avgAbove21,
				fop.HavingCondition{Aggregate: fop.AggMax, Field: "temperature", Op: fop.OpLt, Value: 30.0},
			},
		},
		{
			name: "or of count and key",
			body: `{"by": ["plantId"], "having": {"OR": [{"_count": {"_all": {"gte": 2}}}, {"plantId": "p1"}]}}`,
			having: fop.Or{
				fop.HavingCondition{Aggregate: fop.AggCount, Field: fop.CountAll, Op: fop.OpGte, Value: 2.0},
				cond("plantId", fop.OpEquals, "p1", ""),
			},
		},
		{
			name: "aggregate orderBy",
			body: `{"by": ["plantId"], "orderBy": [{"_count": {"_all": "desc"}}, {"plantId": "asc"}]}`,
			orderBy: []fop.GroupOrder{
				{Aggregate: fop.AggCount, Field: fop.CountAll, Direction: fop.DESC},
				{Field: "plantId", Direction: fop.ASC},
			},
		},
		{
			name: "aggregate orderBy with nulls",
			body: `{"by": ["plantId"], "orderBy": {"_avg": {"temperature": {"sort": "desc", "nulls": "last"}}}}`,
			orderBy: []fop.GroupOrder{
				{Aggregate: fop.AggAvg, Field: "temperature", Direction: fop.DESC, Nulls: fop.NullsLast},
			},
		},
	}
	log := model(t, schema.Log)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, err := fop.ParseGroupBy(schema.Default, log, decode(t, tt.body))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if !reflect.DeepEqual(args.By, []string{"plantId"}) {
				t.Errorf("by = %v", args.By)
			}
			if !reflect.DeepEqual(args.Having, tt.having) {
				t.Errorf("having = %#v, want %#v", args.Having, tt.having)
			}
			if !reflect.DeepEqual(args.OrderBy, tt.orderBy) {
				t.Errorf("orderBy = %+v, want %+v", args.OrderBy, tt.orderBy)
			}
		})
	}
}

func TestParseGroupByRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown argument", `{"by": ["plantId"], "limit": 1}`},
		{"by not names", `{"by": [1]}`},
		{"nested not on aggregate", `{"by": ["plantId"], "having": {"_avg": {"temperature": {"not": {"gt": 1}}}}}`},
		{"aggregate having not an object", `{"by": ["plantId"], "having": {"_avg": 1}}`},
		{"aggregate order not an object", `{"by": ["plantId"], "orderBy": [{"_avg": "desc"}]}`},
		{"sum of everything", `{"by": ["plantId"], "_sum": true}`},
	}
	log := model(t, schema.Log)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := fop.ParseGroupBy(schema.Default, log, decode(t, tt.body)); !errors.Is(err, fop.ErrValidation) {
				t.Errorf("got %v, want ErrValidation", err)
			}
		})
	}
}
