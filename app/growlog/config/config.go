// Package config holds the configuration of the growlog service.
package config

import (
	"fmt"

	"github.com/jrazmi/growlog/bridge/scaffolding/mid"
	"github.com/jrazmi/growlog/core/client"
	"github.com/jrazmi/growlog/infrastructure/web"
	"github.com/jrazmi/growlog/infrastructure/workers"
	"github.com/jrazmi/growlog/sdk/environment"
	"github.com/jrazmi/growlog/sdk/logger"
)

// Growlog is the overall configuration for the growlog service. Every
// section reads from one YAML file and from PREFIX_ environment variables.
type Growlog struct {
	Web      web.ServerConfig `yaml:"web"`
	Log      logger.Options   `yaml:"log"`
	Database client.Config    `yaml:"database"`
	CORS     mid.CORSConfig   `yaml:"cors"`
	Sweeper  Sweeper          `yaml:"sweeper"`

	// Models limits the models served over HTTP; empty serves all.
	Models []string `yaml:"models" env:"MODELS" separator:","`
}

// Sweeper configures the background removal of expired sessions.
type Sweeper struct {
	Enabled bool            `yaml:"enabled" env:"SWEEPER_ENABLED" default:"false"`
	Batch   int             `yaml:"batch" env:"SWEEPER_BATCH" default:"500"`
	Workers workers.Options `yaml:"workers"`
}

// Load reads the YAML file at path, when given, then the environment.
func Load(prefix, path string) (Growlog, error) {
	var cfg Growlog
	if err := environment.Load(prefix, path, &cfg); err != nil {
		return Growlog{}, fmt.Errorf("loading config: %w", err)
	}
	if cfg.Sweeper.Workers.Name == "worker" {
		cfg.Sweeper.Workers.Name = "session-sweeper"
	}
	return cfg, nil
}
