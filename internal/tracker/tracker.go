package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kenyafarmiot/farmdb/internal/database"
)

// DBTX is satisfied by *pgxpool.Pool, *pgxpool.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AppliedMigration is one row of the bookkeeping table.
type AppliedMigration struct {
	Version    string
	Filename   string
	Checksum   string
	AppliedAt  time.Time
	DurationMs int
	Status     string
}

// RecordParams contains the fields needed to record a migration as applied.
// applied_at is always set by the database.
type RecordParams struct {
	Version    string
	Filename   string
	Checksum   string
	DurationMs int
}

// Tracker reads and writes the bookkeeping table. It is the only code that
// touches that table.
type Tracker struct {
	db    DBTX
	table string // sanitized, ready for interpolation
	name  string
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithTable sets the bookkeeping table name. "schema.table" is accepted.
func WithTable(name string) Option {
	return func(t *Tracker) {
		if name = strings.TrimSpace(name); name != "" {
			t.name = name
		}
	}
}

// New creates a Tracker backed by db.
func New(db DBTX, opts ...Option) *Tracker {
	t := &Tracker{db: db, name: DefaultTable}

	for _, opt := range opts {
		opt(t)
	}

	t.table = pgx.Identifier(strings.Split(t.name, ".")).Sanitize()

	return t
}

// Table returns the configured table name, unquoted.
func (t *Tracker) Table() string {
	return t.name
}

// WithTx returns a Tracker that runs its statements inside tx.
func (t *Tracker) WithTx(tx pgx.Tx) *Tracker {
	return &Tracker{db: tx, table: t.table, name: t.name}
}

// EnsureTable creates the bookkeeping table if it does not exist and adds
// any columns a legacy table lacks.
func (t *Tracker) EnsureTable(ctx context.Context) error {
	if _, err := t.db.Exec(ctx, createSchemaSQL(t.table)); err != nil {
		return fmt.Errorf("%w %s: %w", ErrTableCreation, t.name, err)
	}

	if _, err := t.db.Exec(ctx, upgradeSchemaSQL(t.table)); err != nil {
		return fmt.Errorf("%w %s: upgrading columns: %w", ErrTableCreation, t.name, err)
	}

	return nil
}

// IsApplied checks whether a migration version is currently applied.
func (t *Tracker) IsApplied(ctx context.Context, version string) (bool, error) {
	var exists bool

	err := t.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM `+t.table+` WHERE version = $1 AND status = 'applied')`,
		version,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: checking if migration %s is applied: %w", ErrBookkeeping, version, err)
	}

	return exists, nil
}

// GetApplied returns all applied migrations ordered by version.
func (t *Tracker) GetApplied(ctx context.Context) ([]AppliedMigration, error) {
	return t.query(ctx, `WHERE status = 'applied'`)
}

// GetAll returns every record, including rolled back ones, ordered by version.
func (t *Tracker) GetAll(ctx context.Context) ([]AppliedMigration, error) {
	return t.query(ctx, "")
}

func (t *Tracker) query(ctx context.Context, where string) ([]AppliedMigration, error) {
	rows, err := t.db.Query(ctx,
		`SELECT version, filename, checksum, applied_at, duration_ms, status
		 FROM `+t.table+` `+where+`
		 ORDER BY version`,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: querying migrations: %w", ErrBookkeeping, err)
	}
	defer rows.Close()

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (AppliedMigration, error) {
		var m AppliedMigration
		if scanErr := row.Scan(&m.Version, &m.Filename, &m.Checksum, &m.AppliedAt, &m.DurationMs, &m.Status); scanErr != nil {
			return AppliedMigration{}, fmt.Errorf("scanning migration row: %w", scanErr)
		}

		return m, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBookkeeping, err)
	}

	return records, nil
}

// RecordApplied inserts a record for p.Version, or revives a rolled back
// one. If the version is already recorded as applied nothing is written and
// ErrAlreadyRecorded is returned: some other runner got there first.
func (t *Tracker) RecordApplied(ctx context.Context, p RecordParams) error {
	tag, err := t.db.Exec(ctx,
		`INSERT INTO `+t.table+` AS m (version, filename, checksum, duration_ms, status)
		 VALUES ($1, $2, $3, $4, 'applied')
		 ON CONFLICT (version) DO UPDATE SET
		     filename = EXCLUDED.filename,
		     checksum = EXCLUDED.checksum,
		     applied_at = NOW(),
		     duration_ms = EXCLUDED.duration_ms,
		     status = 'applied'
		 WHERE m.status <> 'applied'`,
		p.Version, p.Filename, p.Checksum, p.DurationMs,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("migration %s: %w", p.Version, ErrAlreadyRecorded)
		}

		return fmt.Errorf("recording migration %s as applied: %w", p.Version, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("migration %s: %w", p.Version, ErrAlreadyRecorded)
	}

	return nil
}

// RecordRolledBack marks an applied migration as rolled back.
func (t *Tracker) RecordRolledBack(ctx context.Context, version string) error {
	tag, err := t.db.Exec(ctx,
		`UPDATE `+t.table+` SET status = 'rolled_back' WHERE version = $1 AND status = 'applied'`,
		version,
	)
	if err != nil {
		return fmt.Errorf("recording migration %s as rolled back: %w", version, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("migration %s: %w", version, ErrMigrationNotFound)
	}

	return nil
}

// GetChecksum returns the recorded checksum for a migration version.
func (t *Tracker) GetChecksum(ctx context.Context, version string) (string, error) {
	var checksum string

	err := t.db.QueryRow(ctx,
		`SELECT checksum FROM `+t.table+` WHERE version = $1`,
		version,
	).Scan(&checksum)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("migration %s: %w", version, ErrMigrationNotFound)
		}

		return "", fmt.Errorf("%w: getting checksum for migration %s: %w", ErrBookkeeping, version, err)
	}

	return checksum, nil
}
