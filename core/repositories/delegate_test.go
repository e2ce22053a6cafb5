package repositories_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jrazmi/growlog/core/repositories"
	"github.com/jrazmi/growlog/core/scaffolding/fop"
	"github.com/jrazmi/growlog/core/schema"
	"github.com/jrazmi/growlog/infrastructure/memorydb"
	"github.com/jrazmi/growlog/sdk/logger"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newEngine(t *testing.T) *repositories.Engine {
	t.Helper()
	e := repositories.NewEngine(logger.NewDiscard(), memorydb.New())
	n := 0
	e.NewID = func() (string, error) {
		n++
		return fmt.Sprintf("gen%03d", n), nil
	}
	e.Now = func() time.Time { return epoch }
	return e
}

func rowIDs(rows []repositories.Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i], _ = r["id"].(string)
	}
	return out
}

func sameIDs(got []string, want ...string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// seedTags creates tags a..e named t1..t5.
func seedTags(t *testing.T, tags *repositories.Delegate[repositories.Row]) {
	t.Helper()
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		if _, err := tags.Create(context.Background(), repositories.Row{"id": id, "name": fmt.Sprintf("t%d", i+1)}); err != nil {
			t.Fatalf("create tag %s: %v", id, err)
		}
	}
}

func TestFindManyCursorPages(t *testing.T) {
	e := newEngine(t)
	tags := repositories.NewDelegate[repositories.Row](e, schema.Tag)
	seedTags(t, tags)
	ctx := context.Background()

	tests := []struct {
		name string
		args fop.FindArgs
		want []string
	}{
		{
			name: "forward from cursor includes it",
			args: fop.FindArgs{OrderBy: []fop.Order{fop.Asc("name")}, Cursor: map[string]any{"id": "c"}, Take: fop.Take(2)},
			want: []string{"c", "d"},
		},
		{
			name: "skip passes over the cursor row",
			args: fop.FindArgs{OrderBy: []fop.Order{fop.Asc("name")}, Cursor: map[string]any{"id": "c"}, Take: fop.Take(2), Skip: 1},
			want: []string{"d", "e"},
		},
		{
			name: "negative take pages backwards in requested order",
			args: fop.FindArgs{OrderBy: []fop.Order{fop.Asc("name")}, Cursor: map[string]any{"id": "c"}, Take: fop.Take(-2)},
			want: []string{"b", "c"},
		},
		{
			name: "negative take without cursor reads the tail",
			args: fop.FindArgs{OrderBy: []fop.Order{fop.Asc("name")}, Take: fop.Take(-2)},
			want: []string{"d", "e"},
		},
		{
			name: "missing cursor row yields nothing",
			args: fop.FindArgs{Cursor: map[string]any{"id": "zz"}, Take: fop.Take(2)},
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := tags.FindMany(ctx, tt.args)
			if err != nil {
				t.Fatalf("find many: %v", err)
			}
			if got := rowIDs(rows); !sameIDs(got, tt.want...) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIterateYieldsInOrder(t *testing.T) {
	e := newEngine(t)
	tags := repositories.NewDelegate[repositories.Row](e, schema.Tag)
	seedTags(t, tags)

	var got []string
	for row, err := range tags.Iterate(context.Background(), fop.FindArgs{OrderBy: []fop.Order{fop.Desc("name")}, Take: fop.Take(3)}) {
		if err != nil {
			t.Fatalf("iterate: %v", err)
		}
		got = append(got, row["id"].(string))
	}
	if !sameIDs(got, "e", "d", "c") {
		t.Errorf("got %v", got)
	}
}

func seedGarden(t *testing.T, e *repositories.Engine) {
	t.Helper()
	ctx := context.Background()
	users := repositories.NewDelegate[repositories.Row](e, schema.User)
	plants := repositories.NewDelegate[repositories.Row](e, schema.Plant)
	logs := repositories.NewDelegate[repositories.Row](e, schema.Log)
	tags := repositories.NewDelegate[repositories.Row](e, schema.Tag)

	if _, err := users.Create(ctx, repositories.Row{"id": "u1", "email": "grower@example.com"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	seedTags(t, tags)
	if _, err := plants.Create(ctx, repositories.Row{"id": "p1", "name": "Clone1", "userId": "u1", "tags": []string{"a", "b"}}); err != nil {
		t.Fatalf("create p1: %v", err)
	}
	if _, err := plants.Create(ctx, repositories.Row{"id": "p2", "name": "Clone2", "userId": "u1", "stage": "VEGETATIVE"}); err != nil {
		t.Fatalf("create p2: %v", err)
	}
	entries := []repositories.Row{
		{"id": "l1", "plantId": "p1", "userId": "u1", "type": "WATERING", "waterAmount": 1.5, "date": epoch},
		{"id": "l2", "plantId": "p1", "userId": "u1", "type": "WATERING", "waterAmount": 0.5, "date": epoch.Add(time.Hour)},
		{"id": "l3", "plantId": "p1", "userId": "u1", "type": "FEEDING", "date": epoch.Add(2 * time.Hour)},
		{"id": "l4", "plantId": "p2", "userId": "u1", "type": "WATERING", "waterAmount": 2.0, "date": epoch},
	}
	if n, err := logs.CreateMany(ctx, entries, false); err != nil || n != 4 {
		t.Fatalf("create logs: n=%d err=%v", n, err)
	}
}

func TestCreateAppliesDefaults(t *testing.T) {
	e := newEngine(t)
	seedGarden(t, e)
	plants := repositories.NewDelegate[repositories.Row](e, schema.Plant)

	p, err := plants.FindUniqueOrError(context.Background(), map[string]any{"id": "p1"})
	if err != nil {
		t.Fatalf("find p1: %v", err)
	}
	if p["stage"] != "SEEDLING" {
		t.Errorf("stage = %v, want SEEDLING", p["stage"])
	}
	if start, _ := p["startDate"].(time.Time); !start.Equal(epoch) {
		t.Errorf("startDate = %v, want %v", p["startDate"], epoch)
	}
	if created, _ := p["createdAt"].(time.Time); !created.Equal(epoch) {
		t.Errorf("createdAt = %v, want %v", p["createdAt"], epoch)
	}
	if p["location"] != nil {
		t.Errorf("location = %v, want nil", p["location"])
	}
}

func TestIncludeAndCount(t *testing.T) {
	e := newEngine(t)
	seedGarden(t, e)
	plants := repositories.NewDelegate[repositories.Row](e, schema.Plant)

	rows, err := plants.FindMany(context.Background(), fop.FindArgs{
		OrderBy: []fop.Order{fop.Asc("name")},
		Shape: fop.Shape{
			Include: []fop.Include{
				fop.With("tags", fop.FindArgs{OrderBy: []fop.Order{fop.Desc("name")}}),
				fop.With("logs", fop.FindArgs{Where: fop.F("type").Equals("WATERING"), Take: fop.Take(1), OrderBy: []fop.Order{fop.Desc("date")}}),
				fop.With("user"),
			},
			Count: []string{"logs"},
		},
	})
	if err != nil {
		t.Fatalf("find many: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d plants", len(rows))
	}
	p1 := rows[0]
	if got := rowIDs(p1["tags"].([]repositories.Row)); !sameIDs(got, "b", "a") {
		t.Errorf("p1 tags = %v, want [b a]", got)
	}
	if got := rowIDs(p1["logs"].([]repositories.Row)); !sameIDs(got, "l2") {
		t.Errorf("p1 latest watering = %v, want [l2]", got)
	}
	if user, _ := p1["user"].(repositories.Row); user["email"] != "grower@example.com" {
		t.Errorf("p1 user = %v", p1["user"])
	}
	if counts := p1["_count"].(map[string]int64); counts["logs"] != 3 {
		t.Errorf("p1 log count = %v, want 3", counts)
	}
	if got := tagsOf(rows[1]); len(got) != 0 {
		t.Errorf("p2 tags = %v, want none", got)
	}
}

func tagsOf(r repositories.Row) []repositories.Row {
	tags, _ := r["tags"].([]repositories.Row)
	return tags
}

func TestSelectProjectsFields(t *testing.T) {
	e := newEngine(t)
	seedGarden(t, e)
	plants := repositories.NewDelegate[repositories.Row](e, schema.Plant)

	p, err := plants.FindUniqueOrError(context.Background(), map[string]any{"id": "p2"}, fop.Shape{Select: []string{"id", "stage"}})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(p) != 2 || p["stage"] != "VEGETATIVE" {
		t.Errorf("selected row = %v", p)
	}

	p, err = plants.FindUniqueOrError(context.Background(), map[string]any{"id": "p2"}, fop.Shape{Omit: []string{"notes", "imageUrl"}})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if _, ok := p["notes"]; ok {
		t.Errorf("omitted field present: %v", p)
	}
	if _, ok := p["name"]; !ok {
		t.Errorf("non-omitted field missing: %v", p)
	}
}

func TestGlobalOmit(t *testing.T) {
	e := newEngine(t)
	e.Omit = map[string][]string{schema.User: {"email"}}
	seedGarden(t, e)
	users := repositories.NewDelegate[repositories.Row](e, schema.User)
	ctx := context.Background()

	u, err := users.FindUniqueOrError(ctx, map[string]any{"id": "u1"})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if _, ok := u["email"]; ok {
		t.Errorf("globally omitted field returned")
	}
	u, err = users.FindUniqueOrError(ctx, map[string]any{"id": "u1"}, fop.Shape{Select: []string{"email"}})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if u["email"] != "grower@example.com" {
		t.Errorf("selected field = %v", u["email"])
	}
}

func TestDistinct(t *testing.T) {
	e := newEngine(t)
	seedGarden(t, e)
	logs := repositories.NewDelegate[repositories.Row](e, schema.Log)

	rows, err := logs.FindMany(context.Background(), fop.FindArgs{
		Distinct: []string{"type"},
		OrderBy:  []fop.Order{fop.Asc("id")},
	})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got := rowIDs(rows); !sameIDs(got, "l1", "l3") {
		t.Errorf("distinct types = %v, want [l1 l3]", got)
	}
}

func TestBatchWritesReportMatchedRows(t *testing.T) {
	e := newEngine(t)
	seedGarden(t, e)
	logs := repositories.NewDelegate[repositories.Row](e, schema.Log)
	ctx := context.Background()
	watering := fop.F("type").Equals("WATERING")

	n, err := logs.UpdateMany(ctx, watering, repositories.Row{"notes": "checked"})
	if err != nil {
		t.Fatalf("update many: %v", err)
	}
	if n != 3 {
		t.Errorf("updated %d, want 3", n)
	}

	n, err = logs.DeleteMany(ctx, watering, 2)
	if err != nil {
		t.Fatalf("delete many: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d, want 2", n)
	}
	left, err := logs.Count(ctx, fop.FindArgs{Where: watering})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if left != 1 {
		t.Errorf("remaining watering logs = %d, want 1", left)
	}
}

func TestFindFirst(t *testing.T) {
	e := newEngine(t)
	tags := repositories.NewDelegate[repositories.Row](e, schema.Tag)
	seedTags(t, tags)
	ctx := context.Background()

	first, err := tags.FindFirst(ctx, fop.FindArgs{OrderBy: []fop.Order{fop.Desc("name")}})
	if err != nil {
		t.Fatalf("find first: %v", err)
	}
	if first == nil || (*first)["id"] != "e" {
		t.Errorf("first = %v, want e", first)
	}

	last, err := tags.FindFirst(ctx, fop.FindArgs{OrderBy: []fop.Order{fop.Asc("name")}, Take: fop.Take(-3)})
	if err != nil {
		t.Fatalf("find first backwards: %v", err)
	}
	if last == nil || (*last)["id"] != "e" {
		t.Errorf("backwards first = %v, want e", last)
	}

	none, err := tags.FindFirst(ctx, fop.FindArgs{Where: fop.F("name").Equals("t9")})
	if err != nil || none != nil {
		t.Errorf("got %v, %v; want nil, nil", none, err)
	}
	_, err = tags.FindFirstOrError(ctx, fop.FindArgs{Where: fop.F("name").Equals("t9")})
	if !errors.Is(err, repositories.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestUpdateMissingRow(t *testing.T) {
	e := newEngine(t)
	seedGarden(t, e)
	plants := repositories.NewDelegate[repositories.Row](e, schema.Plant)

	_, err := plants.Update(context.Background(), map[string]any{"id": "nope"}, repositories.Row{"name": "x"})
	if !errors.Is(err, repositories.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	if code, _ := repositories.IsKnown(err); code != repositories.CodeRecordNotFound {
		t.Errorf("code = %q", code)
	}
}

func TestNestedLinkWrites(t *testing.T) {
	e := newEngine(t)
	seedGarden(t, e)
	plants := repositories.NewDelegate[repositories.Row](e, schema.Plant)
	ctx := context.Background()
	withTags := fop.Shape{Include: []fop.Include{fop.With("tags", fop.FindArgs{OrderBy: []fop.Order{fop.Asc("id")}})}}

	p, err := plants.Update(ctx, map[string]any{"id": "p1"}, repositories.Row{
		"tags": fop.LinkSet{Connect: []string{"c"}, Disconnect: []string{"a"}},
	}, withTags)
	if err != nil {
		t.Fatalf("update links: %v", err)
	}
	if got := rowIDs(p["tags"].([]repositories.Row)); !sameIDs(got, "b", "c") {
		t.Errorf("tags = %v, want [b c]", got)
	}

	p, err = plants.Update(ctx, map[string]any{"id": "p1"}, repositories.Row{"tags": fop.LinkSet{Set: []string{}}}, withTags)
	if err != nil {
		t.Fatalf("clear links: %v", err)
	}
	if got := p["tags"].([]repositories.Row); len(got) != 0 {
		t.Errorf("tags after set [] = %v", rowIDs(got))
	}

	_, err = plants.Update(ctx, map[string]any{"id": "p1"}, repositories.Row{"user": "u1"})
	if !errors.Is(err, repositories.ErrValidation) {
		t.Errorf("nested to-one write: got %v, want ErrValidation", err)
	}
}

func TestAggregateAndGroupBy(t *testing.T) {
	e := newEngine(t)
	seedGarden(t, e)
	logs := repositories.NewDelegate[repositories.Row](e, schema.Log)
	ctx := context.Background()

	res, err := logs.Aggregate(ctx, fop.AggregateArgs{
		Where:      fop.F("plantId").Equals("p1"),
		Aggregates: fop.Aggregates{Avg: []string{"waterAmount", "ph"}, Sum: []string{"waterAmount"}, Count: []string{fop.CountAll}},
	})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if avg := res.Avg["waterAmount"]; avg == nil || *avg != 1.0 {
		t.Errorf("avg waterAmount = %v, want 1", avg)
	}
	if res.Avg["ph"] != nil {
		t.Errorf("avg of all-null field = %v, want nil", *res.Avg["ph"])
	}
	if res.Sum["waterAmount"] != 2.0 || res.Count[fop.CountAll] != 3 {
		t.Errorf("sum/count = %v/%v", res.Sum["waterAmount"], res.Count[fop.CountAll])
	}

	groups, err := logs.GroupBy(ctx, fop.GroupByArgs{
		By:         []string{"plantId"},
		Having:     fop.HavingCondition{Aggregate: fop.AggCount, Field: fop.CountAll, Op: fop.OpGte, Value: 2},
		OrderBy:    []fop.GroupOrder{{Field: "plantId"}},
		Aggregates: fop.Aggregates{Count: []string{fop.CountAll}},
	})
	if err != nil {
		t.Fatalf("group by: %v", err)
	}
	if len(groups) != 1 || groups[0].Keys["plantId"] != "p1" || groups[0].Count[fop.CountAll] != 3 {
		t.Errorf("groups = %+v", groups)
	}
}

func TestGroupByAggregatesOutsideBy(t *testing.T) {
	e := newEngine(t)
	seedGarden(t, e)
	logs := repositories.NewDelegate[repositories.Row](e, schema.Log)
	ctx := context.Background()

	groups, err := logs.GroupBy(ctx, fop.GroupByArgs{
		By:         []string{"plantId"},
		Having:     fop.HavingCondition{Aggregate: fop.AggAvg, Field: "waterAmount", Op: fop.OpGt, Value: 1.2},
		Aggregates: fop.Aggregates{Avg: []string{"waterAmount"}},
	})
	if err != nil {
		t.Fatalf("having: %v", err)
	}
	if len(groups) != 1 || groups[0].Keys["plantId"] != "p2" {
		t.Errorf("having avg > 1.2 = %+v, want p2 only", groups)
	}

	groups, err = logs.GroupBy(ctx, fop.GroupByArgs{
		By:      []string{"plantId"},
		OrderBy: []fop.GroupOrder{{Aggregate: fop.AggAvg, Field: "waterAmount", Direction: fop.DESC}},
		Take:    fop.Take(1),
	})
	if err != nil {
		t.Fatalf("order by avg: %v", err)
	}
	if len(groups) != 1 || groups[0].Keys["plantId"] != "p2" {
		t.Errorf("top group by avg waterAmount = %+v, want p2", groups)
	}
}

func TestContractViolations(t *testing.T) {
	e := newEngine(t)
	seedGarden(t, e)
	plants := repositories.NewDelegate[repositories.Row](e, schema.Plant)
	logs := repositories.NewDelegate[repositories.Row](e, schema.Log)
	ctx := context.Background()

	tests := []struct {
		name string
		run  func() error
	}{
		{"find unique without criteria", func() error {
			_, err := plants.FindUnique(ctx, map[string]any{})
			return err
		}},
		{"find unique on a non-unique field", func() error {
			_, err := plants.FindUnique(ctx, map[string]any{"name": "Clone1"})
			return err
		}},
		{"select with omit", func() error {
			_, err := plants.FindMany(ctx, fop.FindArgs{Shape: fop.Shape{Select: []string{"id"}, Omit: []string{"name"}}})
			return err
		}},
		{"select with include", func() error {
			_, err := plants.FindMany(ctx, fop.FindArgs{Shape: fop.Shape{Select: []string{"id"}, Include: []fop.Include{fop.With("tags")}}})
			return err
		}},
		{"group by ordered outside by", func() error {
			_, err := logs.GroupBy(ctx, fop.GroupByArgs{By: []string{"plantId"}, OrderBy: []fop.GroupOrder{{Field: "type"}}})
			return err
		}},
		{"having aggregate on a non-numeric field", func() error {
			_, err := logs.GroupBy(ctx, fop.GroupByArgs{By: []string{"plantId"}, Having: fop.HavingCondition{Aggregate: fop.AggAvg, Field: "type", Op: fop.OpGt, Value: 1}})
			return err
		}},
		{"group by having outside by", func() error {
			_, err := logs.GroupBy(ctx, fop.GroupByArgs{By: []string{"plantId"}, Having: fop.F("type").Equals("FEEDING")})
			return err
		}},
		{"insensitive mode on an enum", func() error {
			_, err := logs.FindMany(ctx, fop.FindArgs{Where: fop.F("type").Equals("feeding").Insensitive()})
			return err
		}},
		{"unknown enum literal", func() error {
			_, err := plants.Create(ctx, repositories.Row{"name": "x", "userId": "u1", "stage": "SPROUT"})
			return err
		}},
		{"missing required field", func() error {
			_, err := plants.Create(ctx, repositories.Row{"name": "x"})
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			if !errors.Is(err, repositories.ErrValidation) {
				t.Fatalf("got %v, want ErrValidation", err)
			}
			var verr *repositories.ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("error %v is not a *ValidationError", err)
			}
		})
	}
}
