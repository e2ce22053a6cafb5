package fop_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/jrazmi/growlog/core/scaffolding/fop"
	"github.com/jrazmi/growlog/core/schema"
)

func TestNormalizeWhere(t *testing.T) {
	plant := model(t, schema.Plant)

	got, err := fop.NormalizeWhere(schema.Default, plant, fop.And{
		fop.F("stage").In("VEGETATIVE", "FLOWERING"),
		fop.Not{fop.F("name").StartsWith("x").Insensitive()},
		fop.EveryOf("logs", fop.F("type").Equals("WATERING")),
		fop.Related("strain", nil),
		fop.CountOf("logs", fop.OpGte, 2),
	}, "where")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	want := fop.And{
		cond("stage", fop.OpIn, []any{"VEGETATIVE", "FLOWERING"}, fop.ModeDefault),
		fop.Not{cond("name", fop.OpStartsWith, "x", fop.ModeInsensitive)},
		fop.EveryOf("logs", cond("type", fop.OpEquals, "WATERING", fop.ModeDefault)),
		fop.Related("strain", nil),
		fop.CountOf("logs", fop.OpGte, 2),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v\nwant %#v", got, want)
	}

	temps, err := fop.NormalizeWhere(schema.Default, model(t, schema.Log), fop.F("temperature").In(20, 21.5), "where")
	if err != nil {
		t.Fatalf("normalize float set: %v", err)
	}
	if c := temps.(fop.Condition); !reflect.DeepEqual(c.Value, []any{20.0, 21.5}) {
		t.Errorf("temperature in = %#v", c.Value)
	}
}

func TestNormalizeWhereRejects(t *testing.T) {
	tests := []struct {
		name  string
		model string
		pred  fop.Predicate
	}{
		{"unknown field", schema.Plant, fop.F("bogus").Equals(1)},
		{"insensitive enum", schema.Plant, fop.F("stage").Equals("seedling").Insensitive()},
		{"unknown mode", schema.Plant, fop.Condition{Field: "name", Op: fop.OpEquals, Value: "a", Mode: "loose"}},
		{"unknown enum literal", schema.Plant, fop.F("stage").Equals("SPROUT")},
		{"set with null", schema.Plant, fop.F("stage").In("VEGETATIVE", nil)},
		{"set of a scalar", schema.Plant, fop.Condition{Field: "stage", Op: fop.OpIn, Value: "VEGETATIVE"}},
		{"invalid enum in set", schema.Plant, fop.F("stage").NotIn("SPROUT")},
		{"contains on a float", schema.Log, fop.F("temperature").Contains("2")},
		{"gt on json", schema.Log, fop.F("data").Gt(1)},
		{"gt on a list", schema.Log, fop.F("nutrients").Gt("a")},
		{"has without a value", schema.Log, fop.F("nutrients").Has(nil)},
		{"insensitive list", schema.Log, fop.F("nutrients").IsEmpty(true).Insensitive()},
		{"some on to-one", schema.Plant, fop.SomeOf("strain", nil)},
		{"is on to-many", schema.Plant, fop.Related("logs", nil)},
		{"unknown quantifier", schema.Plant, fop.RelationFilter{Relation: "logs", Quantifier: "most"}},
		{"unknown relation", schema.Plant, fop.SomeOf("branches", nil)},
		{"bad field under relation", schema.Plant, fop.SomeOf("logs", fop.F("bogus").Equals(1))},
		{"count of to-one", schema.Plant, fop.CountOf("strain", fop.OpGt, 0)},
		{"count with in", schema.Plant, fop.CountOf("logs", fop.OpIn, 1)},
		{"count of unknown relation", schema.Plant, fop.CountOf("branches", fop.OpGt, 0)},
		{"having in where", schema.Log, fop.HavingCondition{Aggregate: fop.AggCount, Field: fop.CountAll, Op: fop.OpGt, Value: 1}},
		{"nested in or", schema.Plant, fop.Or{fop.F("name").Equals("a"), fop.F("bogus").Equals(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := fop.NormalizeWhere(schema.Default, model(t, tt.model), tt.pred, "where"); !errors.Is(err, fop.ErrValidation) {
				t.Errorf("got %v, want ErrValidation", err)
			}
		})
	}
}

func TestNormalizeGroupBy(t *testing.T) {
	log := model(t, schema.Log)
	args, err := fop.NormalizeGroupBy(schema.Default, log, fop.GroupByArgs{
		By: []string{"plantId"},
		Having: fop.And{
			fop.HavingCondition{Aggregate: fop.AggAvg, Field: "temperature", Op: fop.OpGt, Value: 21},
			fop.HavingCondition{Aggregate: fop.AggCount, Field: fop.CountAll, Op: fop.OpGte, Value: 2.0},
			fop.HavingCondition{Aggregate: fop.AggMax, Field: "date", Op: fop.OpLt, Value: "2024-03-01T00:00:00Z"},
			fop.F("plantId").Not("p9"),
		},
		OrderBy: []fop.GroupOrder{
			{Aggregate: fop.AggSum, Field: "waterAmount", Direction: fop.DESC},
			{Field: "plantId"},
		},
		Take: fop.Take(3),
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}

	having := args.Having.(fop.And)
	if v := having[0].(fop.HavingCondition).Value; v != 21.0 {
		t.Errorf("avg operand = %#v, want float64 21", v)
	}
	if v := having[1].(fop.HavingCondition).Value; v != int64(2) {
		t.Errorf("count operand = %#v, want int64 2", v)
	}
	if _, ok := having[2].(fop.HavingCondition).Value.(interface{ IsZero() bool }); !ok {
		t.Errorf("max date operand = %#v, want a time", having[2].(fop.HavingCondition).Value)
	}
	if got := args.OrderBy[1]; got.Direction != fop.ASC {
		t.Errorf("default group direction = %q", got.Direction)
	}
}

func TestNormalizeGroupByRejects(t *testing.T) {
	tests := []struct {
		name string
		args fop.GroupByArgs
	}{
		{"no by", fop.GroupByArgs{}},
		{"unknown by", fop.GroupByArgs{By: []string{"bogus"}}},
		{"list by", fop.GroupByArgs{By: []string{"nutrients"}}},
		{"plain order outside by", fop.GroupByArgs{By: []string{"plantId"}, OrderBy: []fop.GroupOrder{{Field: "type"}}}},
		{"plain having outside by", fop.GroupByArgs{By: []string{"plantId"}, Having: fop.F("type").Equals("FEEDING")}},
		{"plain having nested outside by", fop.GroupByArgs{By: []string{"plantId"}, Having: fop.Or{fop.F("type").Equals("FEEDING")}}},
		{"avg of an enum", fop.GroupByArgs{By: []string{"plantId"}, Having: fop.HavingCondition{Aggregate: fop.AggAvg, Field: "type", Op: fop.OpGt, Value: 1}}},
		{"sum order of a string", fop.GroupByArgs{By: []string{"plantId"}, OrderBy: []fop.GroupOrder{{Aggregate: fop.AggSum, Field: "notes"}}}},
		{"having with in", fop.GroupByArgs{By: []string{"plantId"}, Having: fop.HavingCondition{Aggregate: fop.AggCount, Field: fop.CountAll, Op: fop.OpIn, Value: []any{1}}}},
		{"fractional count operand", fop.GroupByArgs{By: []string{"plantId"}, Having: fop.HavingCondition{Aggregate: fop.AggCount, Field: fop.CountAll, Op: fop.OpGt, Value: 1.5}}},
		{"relation filter in having", fop.GroupByArgs{By: []string{"plantId"}, Having: fop.SomeOf("plant", nil)}},
		{"take without order", fop.GroupByArgs{By: []string{"plantId"}, Take: fop.Take(1)}},
		{"bad direction", fop.GroupByArgs{By: []string{"plantId"}, OrderBy: []fop.GroupOrder{{Field: "plantId", Direction: "up"}}}},
		{"aggregate of an unknown field", fop.GroupByArgs{By: []string{"plantId"}, Aggregates: fop.Aggregates{Min: []string{"bogus"}}}},
	}
	log := model(t, schema.Log)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := fop.NormalizeGroupBy(schema.Default, log, tt.args); !errors.Is(err, fop.ErrValidation) {
				t.Errorf("got %v, want ErrValidation", err)
			}
		})
	}
}

func TestNormalizeShape(t *testing.T) {
	plant := model(t, schema.Plant)
	ok := []struct {
		name  string
		shape fop.Shape
	}{
		{"to-one include shaped by select", fop.Shape{Include: []fop.Include{fop.With("strain", fop.FindArgs{Shape: fop.Shape{Select: []string{"name"}}})}}},
		{"to-many include with paging", fop.Shape{Include: []fop.Include{fop.With("logs", fop.FindArgs{Take: fop.Take(2), OrderBy: []fop.Order{fop.Desc("date")}})}}},
		{"selected relation with args", fop.Shape{Select: []string{"id", "logs"}, SelectArgs: map[string]*fop.FindArgs{"logs": {Take: fop.Take(1)}}}},
		{"relation counts", fop.Shape{Count: []string{"logs", "tags"}}},
	}
	for _, tt := range ok {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := fop.NormalizeShape(schema.Default, plant, tt.shape, ""); err != nil {
				t.Errorf("normalize: %v", err)
			}
		})
	}

	bad := []struct {
		name  string
		shape fop.Shape
	}{
		{"to-one include with take", fop.Shape{Include: []fop.Include{fop.With("strain", fop.FindArgs{Take: fop.Take(1)})}}},
		{"to-one include with where", fop.Shape{Include: []fop.Include{fop.With("user", fop.FindArgs{Where: fop.F("email").Equals("a")})}}},
		{"to-one select with order", fop.Shape{Select: []string{"strain"}, SelectArgs: map[string]*fop.FindArgs{"strain": {OrderBy: []fop.Order{fop.Asc("name")}}}}},
		{"args for an unselected relation", fop.Shape{Select: []string{"id"}, SelectArgs: map[string]*fop.FindArgs{"logs": {}}}},
		{"count of to-one", fop.Shape{Count: []string{"strain"}}},
		{"omit a relation", fop.Shape{Omit: []string{"logs"}}},
		{"include an unknown relation", fop.Shape{Include: []fop.Include{fop.With("branches")}}},
		{"bad nested where", fop.Shape{Include: []fop.Include{fop.With("logs", fop.FindArgs{Where: fop.F("bogus").Equals(1)})}}},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := fop.NormalizeShape(schema.Default, plant, tt.shape, ""); !errors.Is(err, fop.ErrValidation) {
				t.Errorf("got %v, want ErrValidation", err)
			}
		})
	}
}
