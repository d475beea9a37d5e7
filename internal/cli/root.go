package cli

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kenyafarmiot/farmdb/internal/config"
	"github.com/kenyafarmiot/farmdb/internal/logging"
)

const version = "0.2.0"

// AppConfig holds the loaded configuration, set during PersistentPreRunE.
var AppConfig *config.Config //nolint:gochecknoglobals // standard Cobra pattern for shared config

// AppLogger is the process logger, built from AppConfig during PersistentPreRunE.
var AppLogger logrus.FieldLogger = logging.Discard() //nolint:gochecknoglobals // standard Cobra pattern for shared config

// rootCmd is the base command for the farmdb CLI.
var rootCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:     "farmdb",
	Version: version,
	Short:   "Schema migrator for the Kenya Farm IoT backend",
	Long: `farmdb brings the Kenya Farm IoT PostgreSQL schema up to date.
Migrations are applied in version order under an advisory lock, each body
and its bookkeeping record committed together, so replicas starting at the
same time converge on the same schema. Bodies are linted for idempotency
with the real PostgreSQL parser.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadConfig(cmd)
	},
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.PersistentFlags().String("config", config.DefaultConfigFile, "path to configuration file")
	rootCmd.PersistentFlags().String("database-url", "", "PostgreSQL connection string")
	rootCmd.PersistentFlags().String("migrations-dir", "", "path to migration files (default: embedded schema)")
	rootCmd.PersistentFlags().String("migrations-table", "", "bookkeeping table name")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (text, json)")
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads configuration with precedence: flag > env > file, then
// builds the logger from it.
func loadConfig(cmd *cobra.Command) error {
	configPath, _ := cmd.Flags().GetString("config")
	allowMissing := !cmd.Flags().Changed("config")

	cfg, err := config.Load(configPath, allowMissing)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	if err := config.MergeEnv(cfg); err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	mergeFlags(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("configuring logger: %w", err)
	}

	AppConfig = cfg
	AppLogger = log

	return nil
}

// mergeFlags overrides config with explicitly-set CLI flags.
func mergeFlags(cmd *cobra.Command, cfg *config.Config) {
	overrides := []struct {
		flag string
		dst  *string
	}{
		{"database-url", &cfg.DatabaseURL},
		{"migrations-dir", &cfg.MigrationsDir},
		{"migrations-table", &cfg.MigrationsTable},
		{"log-level", &cfg.LogLevel},
		{"log-format", &cfg.LogFormat},
	}

	for _, o := range overrides {
		if f := cmd.Flags().Lookup(o.flag); f != nil && f.Changed {
			*o.dst = f.Value.String()
		}
	}
}
