package client_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jrazmi/growlog/core/client"
	"github.com/jrazmi/growlog/core/repositories"
	"github.com/jrazmi/growlog/core/repositories/usersrepo"
	"github.com/jrazmi/growlog/core/scaffolding/fop"
)

func newClient(t *testing.T, cfg client.Config, opts ...client.Option) *client.Client {
	t.Helper()
	if cfg.DatasourceURL == "" {
		cfg.DatasourceURL = "memory://"
	}
	c, err := client.New(cfg, opts...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() { _ = c.Disconnect(context.Background()) })
	return c
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, client.Config{})

	if got := c.State(); got != client.StateDisconnected {
		t.Fatalf("initial state = %s", got)
	}
	if _, err := c.Users.Create(ctx, usersrepo.CreateUser{Email: "lazy@example.com"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := c.State(); got != client.StateConnected {
		t.Fatalf("state after first operation = %s", got)
	}
	if err := c.Disconnect(ctx); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if got := c.State(); got != client.StateDisconnected {
		t.Fatalf("state after disconnect = %s", got)
	}
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := c.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if c.Backend() != client.BackendMemory {
		t.Errorf("backend = %s", c.Backend())
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  client.Config
	}{
		{"scheme", client.Config{DatasourceURL: "mysql://localhost/db"}},
		{"no scheme", client.Config{DatasourceURL: "growlog.db"}},
		{"log level", client.Config{DatasourceURL: "memory://", Log: []string{"trace"}}},
		{"log emit", client.Config{DatasourceURL: "memory://", Log: []string{"query:file"}}},
		{"isolation", client.Config{DatasourceURL: "memory://", IsolationLevel: "Chaos"}},
		{"error format", client.Config{DatasourceURL: "memory://", ErrorFormat: "loud"}},
		{"id strategy", client.Config{DatasourceURL: "memory://", IDStrategy: "snowflake"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.New(tt.cfg)
			var initErr *repositories.InitializationError
			if !errors.As(err, &initErr) {
				t.Fatalf("got %v, want InitializationError", err)
			}
		})
	}

	_, err := client.New(client.Config{DatasourceURL: "memory://"}, client.WithOmit("User", "password"))
	if err == nil {
		t.Error("omit of unknown field accepted")
	}
}

func TestBackendOf(t *testing.T) {
	tests := map[string]string{
		"postgres://u:p@localhost/growlog":   client.BackendPostgres,
		"postgresql://localhost/growlog":     client.BackendPostgres,
		"sqlite:./growlog.db":                client.BackendSqlite,
		"file:growlog.db?cache=shared":       client.BackendSqlite,
		"memory://":                          client.BackendMemory,
		"SQLITE::memory:":                    client.BackendSqlite,
	}
	for url, want := range tests {
		got, err := client.BackendOf(url)
		if err != nil || got != want {
			t.Errorf("BackendOf(%s) = %s, %v; want %s", url, got, err, want)
		}
	}
}

func TestTransaction(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, client.Config{})

	err := c.Transaction(ctx, func(ctx context.Context, tx *client.Client) error {
		_, err := tx.Users.Create(ctx, usersrepo.CreateUser{Email: "committed@example.com"})
		return err
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	boom := errors.New("boom")
	err = c.Transaction(ctx, func(ctx context.Context, tx *client.Client) error {
		if _, err := tx.Users.Create(ctx, usersrepo.CreateUser{Email: "rolled-back@example.com"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("rollback: got %v, want boom", err)
	}

	n, err := c.Users.Count(ctx, fop.FindArgs{})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("users = %d, want 1", n)
	}
	if u, _ := c.Users.FindUnique(ctx, usersrepo.ByEmail("rolled-back@example.com")); u != nil {
		t.Error("rolled back user is visible")
	}
}

func TestTransactionTimeouts(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, client.Config{})

	// The in-memory store admits one transaction at a time.
	holding := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = c.Transaction(ctx, func(ctx context.Context, tx *client.Client) error {
			close(holding)
			<-release
			return nil
		}, client.WithTimeout(time.Second))
	}()
	<-holding

	err := c.Transaction(ctx, func(ctx context.Context, tx *client.Client) error {
		t.Error("body ran without the transaction starting")
		return nil
	}, client.WithMaxWait(20*time.Millisecond))
	if !errors.Is(err, repositories.ErrTransactionTimeout) {
		t.Errorf("max wait: got %v, want ErrTransactionTimeout", err)
	}
	close(release)
	wg.Wait()

	err = c.Transaction(ctx, func(ctx context.Context, tx *client.Client) error {
		if _, err := tx.Users.Create(ctx, usersrepo.CreateUser{Email: "slow@example.com"}); err != nil {
			return err
		}
		<-ctx.Done()
		return ctx.Err()
	}, client.WithTimeout(20*time.Millisecond))
	if !errors.Is(err, repositories.ErrTransactionTimeout) {
		t.Fatalf("timeout: got %v, want ErrTransactionTimeout", err)
	}
	if code, _ := repositories.IsKnown(err); code != repositories.CodeTransaction {
		t.Errorf("code = %s, want %s", code, repositories.CodeTransaction)
	}
	if u, _ := c.Users.FindUnique(ctx, usersrepo.ByEmail("slow@example.com")); u != nil {
		t.Error("write of timed out transaction is visible")
	}
}

func TestBatch(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, client.Config{})

	create := func(email string) client.Op {
		return func(ctx context.Context, tx *client.Client) (any, error) {
			return tx.Users.Create(ctx, usersrepo.CreateUser{Email: email})
		}
	}
	res, err := c.Batch(ctx, []client.Op{create("a@example.com"), create("b@example.com")})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(res) != 2 || res[1].(usersrepo.User).Email != "b@example.com" {
		t.Fatalf("results = %+v", res)
	}

	_, err = c.Batch(ctx, []client.Op{create("c@example.com"), create("a@example.com")})
	if !errors.Is(err, repositories.ErrUniqueViolation) {
		t.Fatalf("got %v, want ErrUniqueViolation", err)
	}
	if u, _ := c.Users.FindUnique(ctx, usersrepo.ByEmail("c@example.com")); u != nil {
		t.Error("failed batch left a row behind")
	}
}

func TestEvents(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, client.Config{Log: []string{"query:event", "error:event"}})

	var mu sync.Mutex
	got := map[client.LogLevel][]client.Event{}
	record := func(e client.Event) {
		mu.Lock()
		defer mu.Unlock()
		got[e.Level] = append(got[e.Level], e)
	}
	c.On(client.LogQuery, record)
	c.On(client.LogError, record)

	if _, err := c.Users.Create(ctx, usersrepo.CreateUser{Email: "dup@example.com"}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Users.Create(ctx, usersrepo.CreateUser{Email: "dup@example.com"}); err == nil {
		t.Fatal("duplicate accepted")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got[client.LogQuery]) == 0 {
		t.Fatal("no query events")
	}
	if q := got[client.LogQuery][0]; q.Target != "memory" || q.Query == "" {
		t.Errorf("query event = %+v", q)
	}
	if len(got[client.LogError]) != 1 || got[client.LogError][0].Target != "User.create" {
		t.Errorf("error events = %+v", got[client.LogError])
	}
}

func TestOmit(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, client.Config{}, client.WithOmit("User", "image"))

	image := "https://img.example/me.png"
	if _, err := c.Users.Create(ctx, usersrepo.CreateUser{Email: "omit@example.com", Image: &image}); err != nil {
		t.Fatal(err)
	}
	u, err := c.Users.FindUniqueOrError(ctx, usersrepo.ByEmail("omit@example.com"))
	if err != nil {
		t.Fatal(err)
	}
	if u.Image != nil {
		t.Errorf("omitted field returned: %s", *u.Image)
	}
	u, err = c.Users.FindUniqueOrError(ctx, usersrepo.ByEmail("omit@example.com"), fop.Shape{Select: []string{"id", "image"}})
	if err != nil {
		t.Fatal(err)
	}
	if u.Image == nil || *u.Image != image {
		t.Errorf("selected omitted field = %v", u.Image)
	}
}

func TestRawQueries(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, client.Config{DatasourceURL: "sqlite::memory:"})

	if _, err := c.Users.Create(ctx, usersrepo.CreateUser{Email: "raw@example.com"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	rows, err := c.QueryRaw(ctx, `SELECT "email" FROM "users" WHERE "email" = ?`, "raw@example.com")
	if err != nil {
		t.Fatalf("query raw: %v", err)
	}
	if len(rows) != 1 || rows[0]["email"] != "raw@example.com" {
		t.Fatalf("rows = %v", rows)
	}
	n, err := c.ExecuteRawUnsafe(ctx, `UPDATE "users" SET "name" = ?1 WHERE "email" = ?2`, "Raw", "raw@example.com")
	if err != nil {
		t.Fatalf("execute raw unsafe: %v", err)
	}
	if n != 1 {
		t.Errorf("affected = %d, want 1", n)
	}
	u, err := c.Users.FindUniqueOrError(ctx, usersrepo.ByEmail("raw@example.com"))
	if err != nil {
		t.Fatal(err)
	}
	if u.Name == nil || *u.Name != "Raw" {
		t.Errorf("name = %v", u.Name)
	}

	mem := newClient(t, client.Config{})
	if _, err := mem.QueryRaw(ctx, "SELECT 1"); !errors.Is(err, repositories.ErrOperationNotSupported) {
		t.Errorf("memory raw query: got %v", err)
	}
}

func TestFormatError(t *testing.T) {
	err := repositories.UniqueViolation("User", []string{"email"})

	if got := client.FormatError(client.ErrorFormatMinimal, err); got != err.Error() {
		t.Errorf("minimal = %q", got)
	}
	colorless := client.FormatError(client.ErrorFormatColorless, err)
	for _, want := range []string{"Request failed (P2002)", "target: email", "modelName: User"} {
		if !strings.Contains(colorless, want) {
			t.Errorf("colorless lacks %q:\n%s", want, colorless)
		}
	}
	if strings.Contains(colorless, "\x1b[") {
		t.Error("colorless output has escape codes")
	}
	pretty := client.FormatError(client.ErrorFormatPretty, fop.Invalid("where.name", "expected a string"))
	for _, want := range []string{"Invalid query", "where.name", "expected a string"} {
		if !strings.Contains(pretty, want) {
			t.Errorf("pretty lacks %q:\n%s", want, pretty)
		}
	}
	if client.FormatError(client.ErrorFormatPretty, nil) != "" {
		t.Error("nil error rendered")
	}
}
