package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/kenyafarmiot/farmdb/internal/config"
)

const (
	safeFarmersUp   = "CREATE TABLE IF NOT EXISTS farmers (id SERIAL PRIMARY KEY, phone VARCHAR(20) NOT NULL);"
	safeFarmersDown = "DROP TABLE IF EXISTS farmers;"
	unsafeSensorsUp = "CREATE TABLE sensor_readings (id SERIAL PRIMARY KEY, farmer_id INTEGER);"
)

// setupTestConfig sets AppConfig for the duration of the test and restores
// it on cleanup. Callers must not run in parallel.
func setupTestConfig(t *testing.T, mutate func(*config.Config)) {
	t.Helper()

	old := AppConfig
	cfg := config.New()

	if mutate != nil {
		mutate(cfg)
	}

	AppConfig = cfg

	t.Cleanup(func() { AppConfig = old })
}

// writeMigrations writes name -> content files into a fresh directory.
func writeMigrations(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()

	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}

	return dir
}

// safeDir holds one rerunnable migration with a down body.
func safeDir(t *testing.T) string {
	t.Helper()

	return writeMigrations(t, map[string]string{
		"V001_create_farmers.up.sql":   safeFarmersUp,
		"V001_create_farmers.down.sql": safeFarmersDown,
	})
}

// mixedDir holds a rerunnable migration followed by one that is not.
func mixedDir(t *testing.T) string {
	t.Helper()

	return writeMigrations(t, map[string]string{
		"V001_create_farmers.up.sql":         safeFarmersUp,
		"V002_create_sensor_readings.up.sql": unsafeSensorsUp,
	})
}

// newTestCmd returns a fresh command wired to run, with flags added by
// register and output captured.
func newTestCmd(run func(*cobra.Command, []string) error, register func(*cobra.Command)) (*cobra.Command, *bytes.Buffer) {
	buf := new(bytes.Buffer)
	cmd := &cobra.Command{
		Use:           "test",
		RunE:          run,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	if register != nil {
		register(cmd)
	}

	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{})

	return cmd, buf
}

func rootFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", config.DefaultConfigFile, "")
	cmd.Flags().String("database-url", "", "")
	cmd.Flags().String("migrations-dir", "", "")
	cmd.Flags().String("migrations-table", "", "")
	cmd.Flags().String("log-level", "", "")
	cmd.Flags().String("log-format", "", "")
}
