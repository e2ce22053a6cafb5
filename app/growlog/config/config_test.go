package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrazmi/growlog/app/growlog/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("GROWLOGTEST", "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Web.Port != ":8080" || cfg.Web.APIRoute != "/v1" {
		t.Errorf("web = %+v", cfg.Web)
	}
	if cfg.Database.DatasourceURL != "memory://" {
		t.Errorf("datasource = %q", cfg.Database.DatasourceURL)
	}
	if cfg.Sweeper.Enabled || cfg.Sweeper.Batch != 500 {
		t.Errorf("sweeper = %+v", cfg.Sweeper)
	}
	if cfg.Sweeper.Workers.Name != "session-sweeper" {
		t.Errorf("worker name = %q", cfg.Sweeper.Workers.Name)
	}
	if len(cfg.CORS.Origins) != 1 || cfg.CORS.Origins[0] != "*" {
		t.Errorf("cors origins = %v", cfg.CORS.Origins)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "growlog.yaml")
	doc := `
web:
  port: ":9000"
database:
  datasource_url: "sqlite::memory:"
  transaction_timeout: 7s
sweeper:
  enabled: true
  batch: 50
models: [Plant, Log]
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("GROWLOGTEST_PORT", ":9100")

	cfg, err := config.Load("GROWLOGTEST", path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Web.Port != ":9100" {
		t.Errorf("port = %q, env should win", cfg.Web.Port)
	}
	if cfg.Database.DatasourceURL != "sqlite::memory:" || cfg.Database.TransactionTimeout != 7*time.Second {
		t.Errorf("database = %+v", cfg.Database)
	}
	if !cfg.Sweeper.Enabled || cfg.Sweeper.Batch != 50 {
		t.Errorf("sweeper = %+v", cfg.Sweeper)
	}
	if len(cfg.Models) != 2 || cfg.Models[1] != "Log" {
		t.Errorf("models = %v", cfg.Models)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "growlog.yaml")
	if err := os.WriteFile(path, []byte("gardens: 3\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := config.Load("GROWLOGTEST", path); err == nil {
		t.Fatal("expected an error for an unknown key")
	}
}
