package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenyafarmiot/farmdb/internal/config"
)

func TestMergeFlags_overridesConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		flag  string
		value string
		get   func(*config.Config) string
	}{
		{"database-url", "postgres://farm:5432/farm_iot", func(c *config.Config) string { return c.DatabaseURL }},
		{"migrations-dir", "/srv/farmdb/migrations", func(c *config.Config) string { return c.MigrationsDir }},
		{"migrations-table", "farm.schema_migrations", func(c *config.Config) string { return c.MigrationsTable }},
		{"log-level", "debug", func(c *config.Config) string { return c.LogLevel }},
		{"log-format", "json", func(c *config.Config) string { return c.LogFormat }},
	}

	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			t.Parallel()

			cfg := config.New()
			cmd := &cobra.Command{}
			rootFlags(cmd)

			require.NoError(t, cmd.Flags().Set(tt.flag, tt.value))

			mergeFlags(cmd, cfg)
			assert.Equal(t, tt.value, tt.get(cfg))
		})
	}
}

func TestMergeFlags_unchangedFlags_preserveConfig(t *testing.T) {
	t.Parallel()

	cfg := config.New()
	cfg.DatabaseURL = "postgres://original:5432/db"
	cfg.MigrationsDir = "/original/dir"

	cmd := &cobra.Command{}
	rootFlags(cmd)

	mergeFlags(cmd, cfg)
	assert.Equal(t, "postgres://original:5432/db", cfg.DatabaseURL)
	assert.Equal(t, "/original/dir", cfg.MigrationsDir)
	assert.Equal(t, config.DefaultMigrationsTable, cfg.MigrationsTable)
}

func TestMergeFlags_missingFlag_ignored(t *testing.T) {
	t.Parallel()

	cfg := config.New()
	cmd := &cobra.Command{}
	cmd.Flags().String("database-url", "", "")

	require.NoError(t, cmd.Flags().Set("database-url", "postgres://only"))

	mergeFlags(cmd, cfg)
	assert.Equal(t, "postgres://only", cfg.DatabaseURL)
}

// Tests below write to the global AppConfig and AppLogger; they must NOT be parallel.

func restoreGlobals(t *testing.T) {
	t.Helper()

	oldCfg, oldLog := AppConfig, AppLogger
	t.Cleanup(func() { AppConfig, AppLogger = oldCfg, oldLog })
}

func TestLoadConfig_missingFile_usesDefaults(t *testing.T) { //nolint:paralleltest // writes global AppConfig
	restoreGlobals(t)

	cmd := &cobra.Command{}
	rootFlags(cmd)
	require.NoError(t, cmd.Flags().Set("database-url", "postgres://farm@localhost/farm_iot"))

	err := loadConfig(cmd)
	require.NoError(t, err)
	require.NotNil(t, AppConfig)
	assert.Equal(t, config.DefaultTargetPGVersion, AppConfig.TargetPGVersion)
	assert.Equal(t, config.OnFailureFatal, AppConfig.OnFailure)
	assert.Equal(t, "postgres://farm@localhost/farm_iot", AppConfig.DatabaseURL)
}

func TestLoadConfig_validFile_loadsValues(t *testing.T) { //nolint:paralleltest // writes global AppConfig
	restoreGlobals(t)

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "farmdb.yml")

	yamlContent := "migrations_dir: /from/yaml\ntarget_pg_version: 15\nlog_level: warn\nlog_format: json\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(yamlContent), 0o600))

	cmd := &cobra.Command{}
	rootFlags(cmd)
	require.NoError(t, cmd.Flags().Set("config", cfgPath))
	require.NoError(t, cmd.Flags().Set("migrations-dir", "/from/flag"))

	err := loadConfig(cmd)
	require.NoError(t, err)
	require.NotNil(t, AppConfig)
	assert.Equal(t, "/from/flag", AppConfig.MigrationsDir)
	assert.Equal(t, 15, AppConfig.TargetPGVersion)

	logger, ok := AppLogger.(*logrus.Logger)
	require.True(t, ok)
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
}

func TestLoadConfig_explicitMissingFile_returnsError(t *testing.T) { //nolint:paralleltest // writes global AppConfig
	restoreGlobals(t)

	cmd := &cobra.Command{}
	rootFlags(cmd)
	require.NoError(t, cmd.Flags().Set("config", filepath.Join(t.TempDir(), "absent.yml")))

	err := loadConfig(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading configuration")
}

func TestLoadConfig_invalidFile_returnsError(t *testing.T) { //nolint:paralleltest // writes global AppConfig
	restoreGlobals(t)

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bad-config.yml")

	require.NoError(t, os.WriteFile(cfgPath, []byte("target_pg_version: [unclosed"), 0o600))

	cmd := &cobra.Command{}
	rootFlags(cmd)
	require.NoError(t, cmd.Flags().Set("config", cfgPath))

	err := loadConfig(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading configuration")
}

func TestLoadConfig_invalidPolicy_failsValidation(t *testing.T) { //nolint:paralleltest // writes global AppConfig
	restoreGlobals(t)

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "farmdb.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("on_failure: ignore\n"), 0o600))

	cmd := &cobra.Command{}
	rootFlags(cmd)
	require.NoError(t, cmd.Flags().Set("config", cfgPath))

	err := loadConfig(cmd)
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestLoadConfig_badLogLevel_returnsError(t *testing.T) { //nolint:paralleltest // writes global AppConfig
	restoreGlobals(t)

	cmd := &cobra.Command{}
	rootFlags(cmd)
	require.NoError(t, cmd.Flags().Set("log-level", "chatty"))

	err := loadConfig(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuring logger")
}

func TestRootCmd_registersSubcommands(t *testing.T) {
	t.Parallel()

	names := make([]string, 0)
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}

	for _, want := range []string{"apply", "status", "plan", "rollback", "analyze", "serve"} {
		assert.Contains(t, names, want)
	}
}
