package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// execer is satisfied by pgx.Tx and *pgxpool.Conn.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Timeouts bound a migration body. Zero values inherit the server setting.
type Timeouts struct {
	Lock      time.Duration
	Statement time.Duration
}

// SetLockTimeout sets lock_timeout for the rest of tx only, so a migration
// waiting on a busy table fails instead of queueing every query behind it.
func SetLockTimeout(ctx context.Context, tx pgx.Tx, timeout time.Duration) error {
	return setTimeout(ctx, tx, "SET LOCAL", "lock_timeout", timeout)
}

// SetStatementTimeout sets statement_timeout for the rest of tx only.
func SetStatementTimeout(ctx context.Context, tx pgx.Tx, timeout time.Duration) error {
	return setTimeout(ctx, tx, "SET LOCAL", "statement_timeout", timeout)
}

// SetSessionTimeouts applies the non-zero timeouts to conn until they are
// reset. Bodies that cannot run in a transaction have no SET LOCAL scope.
func SetSessionTimeouts(ctx context.Context, conn execer, t Timeouts) error {
	if t.Lock > 0 {
		if err := setTimeout(ctx, conn, "SET", "lock_timeout", t.Lock); err != nil {
			return err
		}
	}

	if t.Statement > 0 {
		if err := setTimeout(ctx, conn, "SET", "statement_timeout", t.Statement); err != nil {
			return err
		}
	}

	return nil
}

// ResetTimeouts restores lock_timeout and statement_timeout to the server defaults.
func ResetTimeouts(ctx context.Context, conn execer) error {
	for _, setting := range []string{"lock_timeout", "statement_timeout"} {
		if _, err := conn.Exec(ctx, "RESET "+setting); err != nil {
			return fmt.Errorf("resetting %s: %w", setting, err)
		}
	}

	return nil
}

func setTimeout(ctx context.Context, conn execer, verb, setting string, timeout time.Duration) error {
	sql := fmt.Sprintf("%s %s = '%dms'", verb, setting, timeout.Milliseconds())

	if _, err := conn.Exec(ctx, sql); err != nil {
		return fmt.Errorf("setting %s: %w", setting, err)
	}

	return nil
}
