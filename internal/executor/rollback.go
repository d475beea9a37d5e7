package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/kenyafarmiot/farmdb/internal/migration"
)

// Rollback reverts the most recent `steps` applied migrations, newest first,
// using their down bodies.
func (e *Executor) Rollback(ctx context.Context, migrations []migration.Migration, steps int) error {
	if steps < 1 {
		return ErrInvalidSteps
	}

	return e.rollback(ctx, migrations, func(applied []string) []string {
		if steps > len(applied) {
			steps = len(applied)
		}

		return applied[len(applied)-steps:]
	})
}

// RollbackToVersion reverts every applied migration whose version sorts
// after target. An empty target reverts everything.
func (e *Executor) RollbackToVersion(ctx context.Context, migrations []migration.Migration, target string) error {
	if target != "" && !containsVersion(migrations, target) {
		return fmt.Errorf("target %s: %w", target, ErrUnknownVersion)
	}

	return e.rollback(ctx, migrations, func(applied []string) []string {
		for i, v := range applied {
			if v > target {
				return applied[i:]
			}
		}

		return nil
	})
}

// rollback reverts the applied versions chosen by pick. Every chosen
// migration is checked for a down body before anything is executed.
func (e *Executor) rollback(
	ctx context.Context,
	migrations []migration.Migration,
	pick func(applied []string) []string,
) error {
	byVersion := make(map[string]*migration.Migration, len(migrations))
	for i := range migrations {
		byVersion[migrations[i].Version] = &migrations[i]
	}

	runID := e.newRunID()

	return e.withLock(ctx, func() error {
		records, err := e.tracker.GetApplied(ctx)
		if err != nil {
			return err
		}

		applied := make([]string, len(records))
		for i, r := range records {
			applied[i] = r.Version
		}

		selected := pick(applied)

		plan := make([]*migration.Migration, 0, len(selected))

		for i := len(selected) - 1; i >= 0; i-- {
			m, ok := byVersion[selected[i]]
			if !ok {
				return fmt.Errorf("applied migration %s: %w", selected[i], ErrUnknownVersion)
			}

			if !m.HasDown() {
				return fmt.Errorf("migration %s: %w", m.Version, ErrNoDownMigration)
			}

			plan = append(plan, m)
		}

		for _, m := range plan {
			if err := e.revertOne(ctx, runID, m); err != nil {
				return err
			}
		}

		return nil
	})
}

// revertOne moves a migration from Recorded to Reverted.
func (e *Executor) revertOne(ctx context.Context, runID string, m *migration.Migration) error {
	if e.dryRun {
		e.fireProgress(ProgressEvent{RunID: runID, Migration: m, Status: StatusPending})
		return nil
	}

	e.fireProgress(ProgressEvent{RunID: runID, Migration: m, Status: StatusStarting})

	var recordErr error

	start := time.Now()
	execErr := e.execSQL(ctx, m.DownSQL, func(t MigrationTracker) error {
		recordErr = t.RecordRolledBack(ctx, m.Version)
		return recordErr
	})
	duration := time.Since(start)

	if execErr != nil {
		e.fireProgress(ProgressEvent{RunID: runID, Migration: m, Status: StatusFailed, Duration: duration, Error: execErr})

		if recordErr != nil {
			return fmt.Errorf("recording rollback of %s: %w", m.Version, recordErr)
		}

		return fmt.Errorf("%w: rolling back migration %s: %w", ErrExecutionFailed, m.Version, execErr)
	}

	e.fireProgress(ProgressEvent{RunID: runID, Migration: m, Status: StatusRolledBack, Duration: duration})

	return nil
}

func containsVersion(migrations []migration.Migration, version string) bool {
	for i := range migrations {
		if migrations[i].Version == version {
			return true
		}
	}

	return false
}
