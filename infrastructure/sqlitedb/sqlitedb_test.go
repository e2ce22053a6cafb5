package sqlitedb_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/jrazmi/growlog/core/repositories"
	"github.com/jrazmi/growlog/core/repositories/plantsrepo"
	"github.com/jrazmi/growlog/core/repositories/tagsrepo"
	"github.com/jrazmi/growlog/core/repositories/usersrepo"
	"github.com/jrazmi/growlog/core/scaffolding/fop"
	"github.com/jrazmi/growlog/core/schema"
	"github.com/jrazmi/growlog/infrastructure/sqlitedb"
	"github.com/jrazmi/growlog/sdk/logger"
)

type fixture struct {
	engine *repositories.Engine
	users  *usersrepo.Repository
	plants *plantsrepo.Repository
	tags   *tagsrepo.Repository
}

func setup(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	log := logger.NewDiscard()

	db, err := sqlitedb.Open(ctx, sqlitedb.Options{Path: ":memory:"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	applied, err := sqlitedb.Migrate(ctx, db, log)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if len(applied) == 0 {
		t.Fatal("no migrations applied")
	}
	again, err := sqlitedb.Migrate(ctx, db, log)
	if err != nil || len(again) != len(applied) {
		t.Fatalf("second migrate: %v, %d migrations", err, len(again))
	}

	engine := repositories.NewEngine(log, sqlitedb.NewStore(db))
	return fixture{
		engine: engine,
		users:  usersrepo.NewRepository(log, engine),
		plants: plantsrepo.NewRepository(log, engine),
		tags:   tagsrepo.NewRepository(log, engine),
	}
}

func TestRoundTrip(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	u, err := f.users.Create(ctx, usersrepo.CreateUser{Email: "grower@example.com"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	got, err := f.users.FindUniqueOrError(ctx, usersrepo.ByEmail("grower@example.com"))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.ID != u.ID || !got.CreatedAt.Equal(u.CreatedAt) || len(got.Permissions) != 0 {
		t.Errorf("found %+v, created %+v", got, u)
	}

	_, err = f.users.Create(ctx, usersrepo.CreateUser{Email: "grower@example.com"})
	if !errors.Is(err, repositories.ErrUniqueViolation) {
		t.Errorf("duplicate email: got %v, want ErrUniqueViolation", err)
	}
	_, err = f.plants.Create(ctx, plantsrepo.CreatePlant{Name: "Orphan", UserID: "missing"})
	if !errors.Is(err, repositories.ErrForeignKeyViolation) {
		t.Errorf("unknown owner: got %v, want ErrForeignKeyViolation", err)
	}
	if err != nil && strings.HasSuffix(err.Error(), ".") {
		t.Errorf("unknown owner: message %q ends with an empty field", err.Error())
	}
}

func TestLinksAndCascade(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	u, err := f.users.Create(ctx, usersrepo.CreateUser{Email: "grower@example.com"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	indoor, err := f.tags.Create(ctx, tagsrepo.CreateTag{Name: "Indoor"})
	if err != nil {
		t.Fatalf("create tag: %v", err)
	}
	if _, err := f.plants.Create(ctx, plantsrepo.CreatePlant{Name: "Clone1", UserID: u.ID, TagIDs: []string{indoor.ID}}); err != nil {
		t.Fatalf("create plant: %v", err)
	}

	n, err := f.plants.Count(ctx, fop.FindArgs{Where: fop.SomeOf("tags", fop.F("name").Equals("indoor").Insensitive())})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("tagged plants: got %d, want 1", n)
	}

	if _, err := f.users.Delete(ctx, usersrepo.ByID(u.ID)); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	left, err := f.plants.Count(ctx, fop.FindArgs{})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if left != 0 {
		t.Errorf("cascade left %d plants", left)
	}
}

func TestGroupByAggregateFilters(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	u, err := f.users.Create(ctx, usersrepo.CreateUser{Email: "grower@example.com"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	cool, err := f.plants.Create(ctx, plantsrepo.CreatePlant{Name: "Cool", UserID: u.ID})
	if err != nil {
		t.Fatalf("create plant: %v", err)
	}
	warm, err := f.plants.Create(ctx, plantsrepo.CreatePlant{Name: "Warm", UserID: u.ID})
	if err != nil {
		t.Fatalf("create plant: %v", err)
	}
	logs := repositories.NewDelegate[repositories.Row](f.engine, schema.Log)
	entries := []repositories.Row{
		{"plantId": cool.ID, "userId": u.ID, "temperature": 18.0},
		{"plantId": cool.ID, "userId": u.ID, "temperature": 20.0},
		{"plantId": warm.ID, "userId": u.ID, "temperature": 22.0},
		{"plantId": warm.ID, "userId": u.ID, "temperature": 24.0},
	}
	if _, err := logs.CreateMany(ctx, entries, false); err != nil {
		t.Fatalf("create logs: %v", err)
	}

	m, _ := schema.Default.Model(schema.Log)
	tests := []struct {
		name string
		body string
		want []string
	}{
		{"aggregate first", `{"by":["plantId"],"having":{"_avg":{"temperature":{"gt":21}}}}`, []string{warm.ID}},
		{"field first", `{"by":["plantId"],"having":{"temperature":{"_avg":{"gt":21}}}}`, []string{warm.ID}},
		{"ordered by aggregate", `{"by":["plantId"],"orderBy":[{"_max":{"temperature":"desc"}}]}`, []string{warm.ID, cool.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw map[string]any
			if err := json.Unmarshal([]byte(tt.body), &raw); err != nil {
				t.Fatalf("decode: %v", err)
			}
			args, err := fop.ParseGroupBy(schema.Default, m, raw)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			groups, err := logs.GroupBy(ctx, args)
			if err != nil {
				t.Fatalf("group by: %v", err)
			}
			if len(groups) != len(tt.want) {
				t.Fatalf("groups = %+v, want %v", groups, tt.want)
			}
			for i, id := range tt.want {
				if groups[i].Keys["plantId"] != id {
					t.Errorf("group %d = %v, want %s", i, groups[i].Keys["plantId"], id)
				}
			}
		})
	}
}
