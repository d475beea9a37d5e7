// Package bootstrap brings the database up to the schema the service needs
// before it starts serving requests.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/kenyafarmiot/farmdb/internal/config"
	"github.com/kenyafarmiot/farmdb/internal/database"
	"github.com/kenyafarmiot/farmdb/internal/executor"
	"github.com/kenyafarmiot/farmdb/internal/migration"
	"github.com/kenyafarmiot/farmdb/internal/tracker"
)

const applicationName = "farmdb"

// ErrMigrationsFailed wraps any failure to bring the schema up to date.
var ErrMigrationsFailed = errors.New("startup migrations failed")

// State is what startup leaves behind for the rest of the process.
type State struct {
	Pool      *pgxpool.Pool
	Connected bool
	Applied   int
	Skipped   int
	Err       error // set when running degraded
}

// Close releases the pool.
func (s *State) Close() {
	if s != nil && s.Pool != nil {
		s.Pool.Close()
	}
}

// Pinger returns the pool as a database.Pinger, or nil when there is none.
func (s *State) Pinger() database.Pinger {
	if s == nil || s.Pool == nil {
		return nil
	}

	return s.Pool
}

// Report summarizes the startup migration run.
type Report struct {
	Applied int    `json:"applied"`
	Skipped int    `json:"skipped"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

// Report returns the migration outcome for health reporting.
func (s *State) Report() Report {
	r := Report{Applied: s.Applied, Skipped: s.Skipped, Status: "ok"}

	if s.Err != nil {
		r.Status = "failed"
		r.Error = s.Err.Error()
	}

	return r
}

// Degraded reports whether startup continued past a failure.
func (s *State) Degraded() bool {
	return s.Err != nil
}

type connectFunc func(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error)

type migrateFunc func(
	ctx context.Context,
	pool *pgxpool.Pool,
	cfg *config.Config,
	migrations []migration.Migration,
	onProgress func(executor.ProgressEvent),
) error

type runner struct {
	connect connectFunc
	migrate migrateFunc
}

// Run connects to the database and applies every pending migration from src.
//
// With on_failure "fatal" any failure is returned and the caller should exit
// before serving. With "degraded" the failure is logged, recorded in
// State.Err and Run returns a nil error so the service can start and report
// itself unhealthy.
func Run(ctx context.Context, cfg *config.Config, log logrus.FieldLogger, src migration.Source) (*State, error) {
	r := runner{connect: connect, migrate: migrate}

	return r.run(ctx, cfg, log, src)
}

func (r runner) run(ctx context.Context, cfg *config.Config, log logrus.FieldLogger, src migration.Source) (*State, error) {
	// Configuration errors are never degraded: a one-connection pool would
	// hang on the migration lock instead of failing.
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	state := &State{}

	log.WithField("database", config.RedactURL(cfg.DatabaseURL)).Info("connecting to database")

	pool, err := r.connect(ctx, cfg)
	if err != nil {
		return r.fail(state, cfg, log, fmt.Errorf("%w: %w", ErrMigrationsFailed, err))
	}

	state.Pool = pool
	state.Connected = true

	migrations, err := src.Load()
	if err != nil {
		return r.fail(state, cfg, log, fmt.Errorf("%w: loading migrations: %w", ErrMigrationsFailed, err))
	}

	logProgress := executor.LogProgress(log)

	err = r.migrate(ctx, pool, cfg, migrations, func(ev executor.ProgressEvent) {
		switch ev.Status {
		case executor.StatusCompleted:
			state.Applied++
		case executor.StatusSkipped:
			state.Skipped++
		}

		logProgress(ev)
	})
	if err != nil {
		if database.IsConnectivityError(err) {
			state.Connected = false
		}

		return r.fail(state, cfg, log, fmt.Errorf("%w: %w", ErrMigrationsFailed, err))
	}

	log.WithFields(logrus.Fields{
		"applied": state.Applied,
		"skipped": state.Skipped,
	}).Info("migrations complete")

	return state, nil
}

func (r runner) fail(state *State, cfg *config.Config, log logrus.FieldLogger, err error) (*State, error) {
	if cfg.OnFailure == config.OnFailureDegraded {
		log.WithError(err).Warn("continuing without an up-to-date schema")

		state.Err = err

		return state, nil
	}

	state.Close()

	return nil, err
}

func connect(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	return database.NewPool(ctx, cfg.DatabaseURL,
		database.WithMaxConns(int32(cfg.MaxConns)), //nolint:gosec // validated to a small positive value
		database.WithApplicationName(applicationName),
	)
}

func migrate(
	ctx context.Context,
	pool *pgxpool.Pool,
	cfg *config.Config,
	migrations []migration.Migration,
	onProgress func(executor.ProgressEvent),
) error {
	t := tracker.New(pool, tracker.WithTable(cfg.MigrationsTable))

	exec := executor.New(pool, t,
		executor.WithLockTimeout(cfg.LockTimeout),
		executor.WithStatementTimeout(cfg.StatementTimeout),
		// Replicas starting together queue behind whichever one migrates.
		executor.WithLockWait(true),
		executor.WithProgressCallback(onProgress),
	)

	return exec.Apply(ctx, migrations)
}
