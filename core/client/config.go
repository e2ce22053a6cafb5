package client

import (
	"fmt"
	"strings"
	"time"

	"github.com/jrazmi/growlog/core/repositories"
	"github.com/jrazmi/growlog/infrastructure/postgresdb"
	"github.com/jrazmi/growlog/infrastructure/sqlitedb"
	"github.com/jrazmi/growlog/sdk/cryptids"
	"github.com/jrazmi/growlog/sdk/environment"
	"github.com/jrazmi/growlog/sdk/logger"
)

// Config is the exportable client configuration.
type Config struct {
	// DatasourceURL selects the backend by scheme: postgres:// or
	// postgresql://, sqlite: or file:, and memory://.
	DatasourceURL string `yaml:"datasource_url" env:"DATABASE_URL" default:"memory://"`
	// ErrorFormat is minimal, colorless or pretty.
	ErrorFormat string `yaml:"error_format" env:"ERROR_FORMAT" default:"colorless"`
	// Log lists level[:emit] definitions, e.g. "query:event,warn".
	Log                []string      `yaml:"log" env:"LOG_DEFINITIONS" default:"warn,error"`
	TransactionMaxWait time.Duration `yaml:"transaction_max_wait" env:"TRANSACTION_MAX_WAIT" default:"2s"`
	TransactionTimeout time.Duration `yaml:"transaction_timeout" env:"TRANSACTION_TIMEOUT" default:"5s"`
	IsolationLevel     string        `yaml:"isolation_level" env:"ISOLATION_LEVEL"`
	IDStrategy         string        `yaml:"id_strategy" env:"ID_STRATEGY" default:"cuid"`
	// AutoMigrate applies the embedded migrations on connect.
	AutoMigrate bool `yaml:"auto_migrate" env:"AUTO_MIGRATE" default:"false"`

	Postgres postgresdb.Options `yaml:"postgres"`
	Sqlite   sqlitedb.Options   `yaml:"sqlite"`
}

// LoadConfig reads the YAML file at path, when given, then the environment.
func LoadConfig(prefix, path string) (Config, error) {
	var cfg Config
	if err := environment.Load(prefix, path, &cfg); err != nil {
		return Config{}, fmt.Errorf("loading client config: %w", err)
	}
	return cfg, nil
}

// ErrorFormat controls how FormatError renders errors.
type ErrorFormat string

const (
	ErrorFormatMinimal   ErrorFormat = "minimal"
	ErrorFormatColorless ErrorFormat = "colorless"
	ErrorFormatPretty    ErrorFormat = "pretty"
)

// LogLevel is a client log level.
type LogLevel string

const (
	LogQuery LogLevel = "query"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// Emit says where a log level goes.
type Emit string

const (
	EmitStdout Emit = "stdout"
	EmitEvent  Emit = "event"
)

// parseLogDefinitions turns "level[:emit]" entries into a routing table.
func parseLogDefinitions(defs []string) (map[LogLevel]Emit, error) {
	out := make(map[LogLevel]Emit, len(defs))
	for _, d := range defs {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		level, emit, _ := strings.Cut(d, ":")
		l := LogLevel(strings.ToLower(level))
		switch l {
		case LogQuery, LogInfo, LogWarn, LogError:
		default:
			return nil, fmt.Errorf("unknown log level %q", level)
		}
		e := Emit(strings.ToLower(emit))
		switch e {
		case "":
			e = EmitStdout
		case EmitStdout, EmitEvent:
		default:
			return nil, fmt.Errorf("unknown log emit %q for level %s", emit, level)
		}
		out[l] = e
	}
	return out, nil
}

func parseIsolation(s string) (repositories.IsolationLevel, error) {
	switch l := repositories.IsolationLevel(s); l {
	case repositories.IsolationDefault,
		repositories.IsolationReadUncommitted,
		repositories.IsolationReadCommitted,
		repositories.IsolationRepeatableRead,
		repositories.IsolationSnapshot,
		repositories.IsolationSerializable:
		return l, nil
	}
	return "", fmt.Errorf("unknown isolation level %q", s)
}

// options holds the runtime configuration that has no file or env form.
type options struct {
	log       *logger.Logger
	observers []repositories.Observer
	hooks     []repositories.QueryHook
	omit      map[string][]string
	now       func() time.Time
	newID     func() (string, error)
}

// Option configures a Client.
type Option func(*options)

// WithLogger sets the logger used for stdout log definitions and delegate
// logging.
func WithLogger(log *logger.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithObserver is told about every delegate operation, e.g. for metrics.
func WithObserver(obs repositories.Observer) Option {
	return func(o *options) {
		o.observers = append(o.observers, obs)
	}
}

// WithQueryHook receives every statement the backend runs.
func WithQueryHook(hook repositories.QueryHook) Option {
	return func(o *options) {
		o.hooks = append(o.hooks, hook)
	}
}

// WithOmit leaves fields of model out of every result unless a query selects
// them.
func WithOmit(model string, fields ...string) Option {
	return func(o *options) {
		if o.omit == nil {
			o.omit = map[string][]string{}
		}
		o.omit[model] = append(o.omit[model], fields...)
	}
}

// WithClock overrides the time source used for defaults.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithIDGenerator overrides the configured ID strategy.
func WithIDGenerator(gen func() (string, error)) Option {
	return func(o *options) {
		o.newID = gen
	}
}

func idGenerator(strategy string) (func() (string, error), error) {
	return cryptids.Generator(cryptids.Strategy(strategy))
}
