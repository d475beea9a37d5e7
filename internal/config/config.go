package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Default values for configuration fields.
const (
	DefaultConfigFile      = "farmdb.yml"
	DefaultMigrationsTable = "schema_migrations"
	DefaultTargetPGVersion = 14
	DefaultFormat          = "text"
	DefaultListenAddr      = ":3000"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	DefaultMaxConns        = 5
)

// MinMaxConns is the smallest pool that can hold the migration lock and
// still run migration bodies.
const MinMaxConns = 2

// Failure policies applied when migrations fail at startup.
const (
	OnFailureFatal    = "fatal"
	OnFailureDegraded = "degraded"
)

// ErrInvalidConfig indicates a configuration value outside its allowed set.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the application configuration loaded from file, environment, and flags.
type Config struct {
	DatabaseURL      string
	MigrationsDir    string // empty selects the embedded farm schema
	MigrationsTable  string
	LockTimeout      time.Duration // zero inherits the server setting
	StatementTimeout time.Duration // zero inherits the server setting
	LockWait         bool
	TargetPGVersion  int
	Format           string
	OnFailure        string
	ListenAddr       string
	LogLevel         string
	LogFormat        string
	MaxConns         int
}

// yamlConfig is the raw YAML file representation with string durations.
type yamlConfig struct {
	DatabaseURL      string `yaml:"database_url"`
	MigrationsDir    string `yaml:"migrations_dir"`
	MigrationsTable  string `yaml:"migrations_table"`
	LockTimeout      string `yaml:"lock_timeout"`
	StatementTimeout string `yaml:"statement_timeout"`
	LockWait         *bool  `yaml:"lock_wait"`
	TargetPGVersion  int    `yaml:"target_pg_version"`
	Format           string `yaml:"format"`
	OnFailure        string `yaml:"on_failure"`
	ListenAddr       string `yaml:"listen_addr"`
	LogLevel         string `yaml:"log_level"`
	LogFormat        string `yaml:"log_format"`
	MaxConns         int    `yaml:"max_conns"`
}

// envConfig is the raw environment representation. Unset variables stay nil
// and leave the file or default value alone.
type envConfig struct {
	DatabaseURL      *string        `env:"FARMDB_DATABASE_URL"`
	MigrationsDir    *string        `env:"FARMDB_MIGRATIONS_DIR"`
	MigrationsTable  *string        `env:"FARMDB_MIGRATIONS_TABLE"`
	LockTimeout      *time.Duration `env:"FARMDB_LOCK_TIMEOUT"`
	StatementTimeout *time.Duration `env:"FARMDB_STATEMENT_TIMEOUT"`
	LockWait         *bool          `env:"FARMDB_LOCK_WAIT"`
	TargetPGVersion  *int           `env:"FARMDB_TARGET_PG_VERSION"`
	Format           *string        `env:"FARMDB_FORMAT"`
	OnFailure        *string        `env:"FARMDB_ON_FAILURE"`
	ListenAddr       *string        `env:"FARMDB_LISTEN_ADDR"`
	LogLevel         *string        `env:"FARMDB_LOG_LEVEL"`
	LogFormat        *string        `env:"FARMDB_LOG_FORMAT"`
	MaxConns         *int           `env:"FARMDB_MAX_CONNS"`

	// Names the Node backend deployments already export.
	LegacyDatabaseURL   *string `env:"DATABASE_URL"`
	LegacyMigrationsDir *string `env:"MIGRATIONS_DIR"`
	LegacyPort          *string `env:"PORT"`
}

// New returns a Config populated with default values.
func New() *Config {
	return &Config{
		MigrationsTable: DefaultMigrationsTable,
		TargetPGVersion: DefaultTargetPGVersion,
		Format:          DefaultFormat,
		OnFailure:       OnFailureFatal,
		ListenAddr:      DefaultListenAddr,
		LogLevel:        DefaultLogLevel,
		LogFormat:       DefaultLogFormat,
		MaxConns:        DefaultMaxConns,
	}
}

// Load reads a YAML configuration file and returns a Config.
// If allowMissing is true and the file does not exist, defaults are returned.
func Load(path string, allowMissing bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && allowMissing {
			return New(), nil
		}

		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var raw yamlConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return fromYAML(&raw)
}

// fromYAML converts the raw YAML representation to a Config with defaults applied.
func fromYAML(raw *yamlConfig) (*Config, error) {
	cfg := New()

	setString(&cfg.DatabaseURL, raw.DatabaseURL)
	setString(&cfg.MigrationsDir, raw.MigrationsDir)
	setString(&cfg.MigrationsTable, raw.MigrationsTable)
	setString(&cfg.Format, raw.Format)
	setString(&cfg.OnFailure, raw.OnFailure)
	setString(&cfg.ListenAddr, raw.ListenAddr)
	setString(&cfg.LogLevel, raw.LogLevel)
	setString(&cfg.LogFormat, raw.LogFormat)

	if raw.LockTimeout != "" {
		d, err := time.ParseDuration(raw.LockTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing lock_timeout %q: %w", raw.LockTimeout, err)
		}

		cfg.LockTimeout = d
	}

	if raw.StatementTimeout != "" {
		d, err := time.ParseDuration(raw.StatementTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing statement_timeout %q: %w", raw.StatementTimeout, err)
		}

		cfg.StatementTimeout = d
	}

	if raw.LockWait != nil {
		cfg.LockWait = *raw.LockWait
	}

	if raw.TargetPGVersion != 0 {
		cfg.TargetPGVersion = raw.TargetPGVersion
	}

	if raw.MaxConns != 0 {
		cfg.MaxConns = raw.MaxConns
	}

	return cfg, nil
}

// MergeEnv overrides config fields from FARMDB_* environment variables.
// DATABASE_URL, MIGRATIONS_DIR and PORT are honored when their FARMDB_
// counterparts are unset.
func MergeEnv(cfg *Config) error {
	return mergeEnv(cfg, env.Options{})
}

// MergeEnvFrom is MergeEnv reading from the given map instead of the process environment.
func MergeEnvFrom(cfg *Config, environ map[string]string) error {
	return mergeEnv(cfg, env.Options{Environment: environ})
}

func mergeEnv(cfg *Config, opts env.Options) error {
	var raw envConfig
	if err := env.ParseWithOptions(&raw, opts); err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}

	setPtr(&cfg.DatabaseURL, raw.LegacyDatabaseURL)
	setPtr(&cfg.DatabaseURL, raw.DatabaseURL)
	setPtr(&cfg.MigrationsDir, raw.LegacyMigrationsDir)
	setPtr(&cfg.MigrationsDir, raw.MigrationsDir)
	setPtr(&cfg.MigrationsTable, raw.MigrationsTable)
	setPtr(&cfg.LockTimeout, raw.LockTimeout)
	setPtr(&cfg.StatementTimeout, raw.StatementTimeout)
	setPtr(&cfg.LockWait, raw.LockWait)
	setPtr(&cfg.TargetPGVersion, raw.TargetPGVersion)
	setPtr(&cfg.Format, raw.Format)
	setPtr(&cfg.OnFailure, raw.OnFailure)
	setPtr(&cfg.LogLevel, raw.LogLevel)
	setPtr(&cfg.LogFormat, raw.LogFormat)
	setPtr(&cfg.MaxConns, raw.MaxConns)

	if raw.LegacyPort != nil && *raw.LegacyPort != "" {
		cfg.ListenAddr = ":" + *raw.LegacyPort
	}

	setPtr(&cfg.ListenAddr, raw.ListenAddr)

	return nil
}

// Validate checks enumerated and bounded fields.
func (c *Config) Validate() error {
	switch c.OnFailure {
	case OnFailureFatal, OnFailureDegraded:
	default:
		return fmt.Errorf("%w: on_failure must be %q or %q, got %q",
			ErrInvalidConfig, OnFailureFatal, OnFailureDegraded, c.OnFailure)
	}

	switch c.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: format must be \"text\" or \"json\", got %q", ErrInvalidConfig, c.Format)
	}

	if c.LockTimeout < 0 || c.StatementTimeout < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", ErrInvalidConfig)
	}

	// The advisory lock pins one connection for the whole run.
	if c.MaxConns < MinMaxConns {
		return fmt.Errorf("%w: max_conns must be at least %d, got %d", ErrInvalidConfig, MinMaxConns, c.MaxConns)
	}

	if c.MigrationsTable == "" {
		return fmt.Errorf("%w: migrations_table must not be empty", ErrInvalidConfig)
	}

	return nil
}

// UsesEmbeddedSchema reports whether migrations come from the binary.
func (c *Config) UsesEmbeddedSchema() bool {
	return c.MigrationsDir == ""
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setPtr[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
