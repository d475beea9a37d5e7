package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kenyafarmiot/farmdb/internal/database"
	"github.com/kenyafarmiot/farmdb/internal/migration"
	"github.com/kenyafarmiot/farmdb/internal/tracker"
)

// Progress status constants reported via ProgressEvent.
const (
	StatusStarting   = "starting"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusSkipped    = "skipped"
	StatusPending    = "pending" // dry run: would be applied
	StatusRolledBack = "rolled_back"
)

// ProgressEvent is emitted by the executor for each migration processed.
type ProgressEvent struct {
	RunID     string
	Migration *migration.Migration
	Status    string
	Duration  time.Duration
	Error     error
}

// MigrationTracker abstracts the bookkeeping table for testability.
type MigrationTracker interface {
	Table() string
	EnsureTable(ctx context.Context) error
	IsApplied(ctx context.Context, version string) (bool, error)
	GetChecksum(ctx context.Context, version string) (string, error)
	GetApplied(ctx context.Context) ([]tracker.AppliedMigration, error)
	GetAll(ctx context.Context) ([]tracker.AppliedMigration, error)
	RecordApplied(ctx context.Context, p tracker.RecordParams) error
	RecordRolledBack(ctx context.Context, version string) error
}

// lockReleaser is returned by lockFunc and must be released when done.
type lockReleaser interface {
	Release(ctx context.Context) error
}

// lockFunc acquires the migration advisory lock.
type lockFunc func(ctx context.Context) (lockReleaser, error)

// recordFunc writes the bookkeeping change for a body through the tracker
// it is handed.
type recordFunc func(t MigrationTracker) error

// sqlExecFunc executes one migration body. It must call record with a
// tracker sharing the body's transaction, so body and record commit
// together or not at all.
type sqlExecFunc func(ctx context.Context, sql string, record recordFunc) error

// Executor applies and reverts migrations under an advisory lock, one at a
// time and strictly in version order.
type Executor struct {
	pool             *pgxpool.Pool
	tracker          MigrationTracker
	lockTimeout      time.Duration
	statementTimeout time.Duration
	lockWait         bool
	lockKey          int64
	dryRun           bool
	onProgress       func(ProgressEvent)
	acquireLock      lockFunc
	execSQL          sqlExecFunc
	newRunID         func() string
}

// Option configures an Executor.
type Option func(*Executor)

// WithLockTimeout sets lock_timeout for each migration transaction.
// Zero keeps whatever the connection already uses.
func WithLockTimeout(d time.Duration) Option {
	return func(e *Executor) { e.lockTimeout = d }
}

// WithStatementTimeout sets statement_timeout for each migration transaction.
// Zero keeps whatever the connection already uses.
func WithStatementTimeout(d time.Duration) Option {
	return func(e *Executor) { e.statementTimeout = d }
}

// WithLockWait makes Apply and Rollback wait for the advisory lock instead
// of failing with database.ErrLockNotAcquired.
func WithLockWait(b bool) Option {
	return func(e *Executor) { e.lockWait = b }
}

// WithLockKey overrides the advisory lock key derived from the table name.
func WithLockKey(key int64) Option {
	return func(e *Executor) { e.lockKey = key }
}

// WithDryRun enables dry-run mode where no SQL is executed.
func WithDryRun(b bool) Option {
	return func(e *Executor) { e.dryRun = b }
}

// WithProgressCallback sets a function called for each migration processed.
func WithProgressCallback(fn func(ProgressEvent)) Option {
	return func(e *Executor) { e.onProgress = fn }
}

// New creates an Executor with the given pool, tracker, and options.
func New(pool *pgxpool.Pool, t MigrationTracker, opts ...Option) *Executor {
	e := &Executor{
		pool:    pool,
		tracker: t,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.lockKey == 0 {
		table := tracker.DefaultTable
		if t != nil {
			table = t.Table()
		}

		e.lockKey = database.LockKey(table)
	}

	// Injectable functions get defaults after options so internal tests can
	// set them directly.
	if e.acquireLock == nil {
		e.acquireLock = e.defaultLock
	}

	if e.execSQL == nil {
		e.execSQL = e.executeBody
	}

	if e.newRunID == nil {
		e.newRunID = uuid.NewString
	}

	return e
}

func (e *Executor) defaultLock(ctx context.Context) (lockReleaser, error) {
	if e.lockWait {
		return database.AcquireLock(ctx, e.pool, e.lockKey)
	}

	return database.TryAcquireLock(ctx, e.pool, e.lockKey)
}

// Apply brings the schema up to date: migrations are sorted by version and
// every one not yet recorded is executed and recorded, in order. Recorded
// migrations are skipped after their checksum is verified. The first error
// aborts the run; migrations completed before it stay applied.
func (e *Executor) Apply(ctx context.Context, migrations []migration.Migration) error {
	if err := migration.Validate(migrations); err != nil {
		return err
	}

	sorted := migration.Sort(migrations)
	runID := e.newRunID()

	return e.withLock(ctx, func() error {
		for i := range sorted {
			if err := e.applyOne(ctx, runID, &sorted[i]); err != nil {
				return err
			}
		}

		return nil
	})
}

// withLock holds the advisory lock and ensures the bookkeeping table while fn runs.
func (e *Executor) withLock(ctx context.Context, fn func() error) error {
	lock, err := e.acquireLock(ctx)
	if err != nil {
		return fmt.Errorf("acquiring migration lock: %w", err)
	}
	defer lock.Release(context.WithoutCancel(ctx)) //nolint:errcheck // unlock also happens when the session ends

	if err := e.tracker.EnsureTable(ctx); err != nil {
		return err
	}

	return fn()
}

// applyOne moves a single migration from Unknown to Recorded, or skips it.
func (e *Executor) applyOne(ctx context.Context, runID string, m *migration.Migration) error {
	skip, err := e.shouldSkip(ctx, m)
	if err != nil {
		return err
	}

	if skip {
		e.fireProgress(ProgressEvent{RunID: runID, Migration: m, Status: StatusSkipped})
		return nil
	}

	if e.dryRun {
		e.fireProgress(ProgressEvent{RunID: runID, Migration: m, Status: StatusPending})
		return nil
	}

	e.fireProgress(ProgressEvent{RunID: runID, Migration: m, Status: StatusStarting})

	var recordErr error

	start := time.Now()
	execErr := e.execSQL(ctx, m.UpSQL, func(t MigrationTracker) error {
		recordErr = t.RecordApplied(ctx, tracker.RecordParams{
			Version:    m.Version,
			Filename:   m.Filename(),
			Checksum:   m.Checksum,
			DurationMs: int(time.Since(start).Milliseconds()),
		})

		return recordErr
	})
	duration := time.Since(start)

	if execErr != nil {
		e.fireProgress(ProgressEvent{
			RunID:     runID,
			Migration: m,
			Status:    StatusFailed,
			Duration:  duration,
			Error:     execErr,
		})

		if recordErr != nil {
			return fmt.Errorf("recording migration %s: %w", m.Version, recordErr)
		}

		return fmt.Errorf("%w: migration %s: %w", ErrExecutionFailed, m.Version, execErr)
	}

	e.fireProgress(ProgressEvent{
		RunID:     runID,
		Migration: m,
		Status:    StatusCompleted,
		Duration:  duration,
	})

	return nil
}

// shouldSkip returns true if the migration is already applied.
// The stored checksum must match: a shipped body must never change.
func (e *Executor) shouldSkip(ctx context.Context, m *migration.Migration) (bool, error) {
	applied, err := e.tracker.IsApplied(ctx, m.Version)
	if err != nil {
		return false, fmt.Errorf("checking migration %s: %w", m.Version, err)
	}

	if !applied {
		return false, nil
	}

	storedChecksum, err := e.tracker.GetChecksum(ctx, m.Version)
	if err != nil {
		return false, fmt.Errorf("getting checksum for %s: %w", m.Version, err)
	}

	// Rows recorded before checksums were tracked carry an empty one.
	if storedChecksum != "" && storedChecksum != m.Checksum {
		return false, fmt.Errorf(
			"migration %s: %w: stored=%s computed=%s",
			m.Version, tracker.ErrChecksumMismatch, storedChecksum, m.Checksum,
		)
	}

	return true, nil
}

// executeBody runs a body and its record in one transaction. Bodies that
// PostgreSQL refuses to run in a transaction block are executed statement
// by statement on the pool and recorded afterwards; if one of their
// statements fails, the ones before it stay applied.
func (e *Executor) executeBody(ctx context.Context, sql string, record recordFunc) error {
	noTx, err := requiresNoTransaction(sql)
	if err != nil {
		return err
	}

	if noTx {
		timeouts := Timeouts{Lock: e.lockTimeout, Statement: e.statementTimeout}
		if err := ExecStatements(ctx, e.pool, sql, timeouts); err != nil {
			return err
		}

		return record(e.tracker)
	}

	return ExecInTransaction(ctx, e.pool, func(tx pgx.Tx) error {
		if e.lockTimeout > 0 {
			if err := SetLockTimeout(ctx, tx, e.lockTimeout); err != nil {
				return err
			}
		}

		if e.statementTimeout > 0 {
			if err := SetStatementTimeout(ctx, tx, e.statementTimeout); err != nil {
				return err
			}
		}

		if _, err := tx.Exec(ctx, sql); err != nil {
			return fmt.Errorf("executing SQL: %w", err)
		}

		return record(e.txTracker(tx))
	})
}

// txTracker binds the tracker to tx when it supports it.
func (e *Executor) txTracker(tx pgx.Tx) MigrationTracker {
	if t, ok := e.tracker.(*tracker.Tracker); ok {
		return t.WithTx(tx)
	}

	return e.tracker
}

func (e *Executor) fireProgress(event ProgressEvent) {
	if e.onProgress != nil {
		e.onProgress(event)
	}
}
