package environment_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrazmi/growlog/sdk/environment"
)

type poolConfig struct {
	MaxConns int           `yaml:"max_conns" env:"MAX_CONNS" default:"10"`
	Idle     time.Duration `yaml:"idle" env:"IDLE" default:"30s"`
}

type appConfig struct {
	URL     string     `yaml:"url" env:"URL" default:"memory://"`
	Debug   bool       `yaml:"debug" env:"DEBUG"`
	Ratio   float64    `yaml:"ratio" env:"RATIO" default:"0.5"`
	Origins []string   `yaml:"origins" env:"ORIGINS" separator:";"`
	Pool    poolConfig `yaml:"pool"`
}

func TestParseEnvTags(t *testing.T) {
	t.Setenv("TEST_URL", "postgres://db/growlog")
	t.Setenv("TEST_ORIGINS", "a.example; b.example")
	t.Setenv("TEST_MAX_CONNS", "4")

	var cfg appConfig
	if err := environment.ParseEnvTags("TEST", &cfg); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.URL != "postgres://db/growlog" {
		t.Errorf("url = %q", cfg.URL)
	}
	if len(cfg.Origins) != 2 || cfg.Origins[1] != "b.example" {
		t.Errorf("origins = %v", cfg.Origins)
	}
	if cfg.Ratio != 0.5 {
		t.Errorf("ratio = %v, want default 0.5", cfg.Ratio)
	}
	if cfg.Pool.MaxConns != 4 || cfg.Pool.Idle != 30*time.Second {
		t.Errorf("pool = %+v", cfg.Pool)
	}
}

func TestParseEnvTagsRequired(t *testing.T) {
	var cfg struct {
		Secret string `env:"SECRET" required:"true"`
	}
	if err := environment.ParseEnvTags("TEST_MISSING", &cfg); err == nil {
		t.Fatal("expected error for missing required variable")
	}
	if err := environment.ParseEnvTags("", cfg); err == nil {
		t.Fatal("expected error for non-pointer config")
	}
}

func TestLoadYAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "growlog.yaml")
	body := "url: sqlite:./grow.db\ndebug: true\npool:\n  max_conns: 7\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("YAMLTEST_MAX_CONNS", "9")

	var cfg appConfig
	if err := environment.Load("YAMLTEST", path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.URL != "sqlite:./grow.db" || !cfg.Debug {
		t.Errorf("file values lost: %+v", cfg)
	}
	if cfg.Pool.MaxConns != 9 {
		t.Errorf("max conns = %d, want env override 9", cfg.Pool.MaxConns)
	}
	if cfg.Pool.Idle != 30*time.Second {
		t.Errorf("idle = %v, want default", cfg.Pool.Idle)
	}

	var missing appConfig
	if err := environment.Load("YAMLTEST", filepath.Join(t.TempDir(), "none.yaml"), &missing); err != nil {
		t.Fatalf("missing file: %v", err)
	}
	if missing.URL != "memory://" {
		t.Errorf("url = %q, want default", missing.URL)
	}
}

func TestLoadYAMLUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("nope: 1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	var cfg appConfig
	if err := environment.LoadYAML(path, &cfg); err == nil {
		t.Fatal("expected unknown key error")
	}
}
