package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/kenyafarmiot/farmdb/internal/config"
	"github.com/kenyafarmiot/farmdb/internal/database"
	"github.com/kenyafarmiot/farmdb/internal/executor"
	"github.com/kenyafarmiot/farmdb/internal/migration"
	"github.com/kenyafarmiot/farmdb/internal/schema"
	"github.com/kenyafarmiot/farmdb/internal/tracker"
)

const applicationName = "farmdb"

// errDatabaseURLRequired is returned when no database URL is configured.
var errDatabaseURLRequired = errors.New( //nolint:gochecknoglobals // sentinel error
	"database URL is required (set --database-url, FARMDB_DATABASE_URL, or database_url in config)",
)

// errUnknownFormat is returned for an unsupported --format value.
var errUnknownFormat = errors.New("unknown output format")

// migrationSource picks the embedded schema unless a directory is configured.
func migrationSource(cfg *config.Config) migration.Source {
	if cfg.UsesEmbeddedSchema() {
		return schema.Source()
	}

	return migration.DirSource{Dir: cfg.MigrationsDir}
}

func sourceLabel(cfg *config.Config) string {
	if cfg.UsesEmbeddedSchema() {
		return "embedded schema"
	}

	return cfg.MigrationsDir
}

// loadAndSortMigrations returns nil, nil when the source holds no migrations.
func loadAndSortMigrations(src migration.Source, out io.Writer) ([]migration.Migration, error) {
	migrations, err := src.Load()
	if err != nil {
		return nil, fmt.Errorf("loading migrations: %w", err)
	}

	if len(migrations) == 0 {
		fmt.Fprintln(out, "No migration files found.")
		return nil, nil //nolint:nilnil // nil,nil signals "no migrations, no error"
	}

	if err := migration.Validate(migrations); err != nil {
		return nil, fmt.Errorf("loading migrations: %w", err)
	}

	return migration.Sort(migrations), nil
}

func connectDB(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		return nil, errDatabaseURLRequired
	}

	AppLogger.WithField("database", config.RedactURL(cfg.DatabaseURL)).Info("connecting to database")

	pool, err := database.NewPool(ctx, cfg.DatabaseURL,
		database.WithMaxConns(int32(cfg.MaxConns)), //nolint:gosec // validated to a small positive value
		database.WithApplicationName(applicationName),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return pool, nil
}

// newExecutor wires the configured tracker and timeouts. Extra options are
// applied last.
func newExecutor(pool *pgxpool.Pool, cfg *config.Config, opts ...executor.Option) *executor.Executor {
	t := tracker.New(pool, tracker.WithTable(cfg.MigrationsTable))

	base := []executor.Option{
		executor.WithLockTimeout(cfg.LockTimeout),
		executor.WithStatementTimeout(cfg.StatementTimeout),
		executor.WithLockWait(cfg.LockWait),
	}

	return executor.New(pool, t, append(base, opts...)...)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}

	return context.Background()
}

// outputFormat returns the --format flag when set, else the configured format.
func outputFormat(cmd *cobra.Command, cfg *config.Config, allowed ...string) (string, error) {
	format := cfg.Format
	if f := cmd.Flags().Lookup("format"); f != nil && f.Changed {
		format = f.Value.String()
	}

	for _, a := range allowed {
		if format == a {
			return format, nil
		}
	}

	return "", fmt.Errorf("%w %q (want one of %v)", errUnknownFormat, format, allowed)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}

	return nil
}
