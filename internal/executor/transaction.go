package executor

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kenyafarmiot/farmdb/internal/parser"
)

// ExecInTransaction runs fn inside a database transaction.
// On success the transaction is committed; on error it is rolled back.
func ExecInTransaction(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // rollback on committed tx returns ErrTxClosed

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// ExecStatements executes a body one statement at a time on a single pooled
// connection, outside any transaction. A multi-statement simple query would
// run as one implicit transaction, which CREATE INDEX CONCURRENTLY rejects.
// Timeouts are set for the session and reset before the connection returns
// to the pool.
func ExecStatements(ctx context.Context, pool *pgxpool.Pool, sql string, timeouts Timeouts) error {
	stmts, err := parser.Split(sql)
	if err != nil {
		return err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Release()

	return execOnSession(ctx, conn, stmts, timeouts, func() {
		// A closed connection is dropped by the pool on Release.
		conn.Conn().Close(context.WithoutCancel(ctx)) //nolint:errcheck // best effort
	})
}

// execOnSession runs stmts on conn under timeouts. discard is called when
// the session settings could not be reset, so conn must not be reused.
func execOnSession(ctx context.Context, conn execer, stmts []string, timeouts Timeouts, discard func()) error {
	if err := SetSessionTimeouts(ctx, conn, timeouts); err != nil {
		discard()
		return err
	}

	if timeouts != (Timeouts{}) {
		defer func() {
			if err := ResetTimeouts(context.WithoutCancel(ctx), conn); err != nil {
				discard()
			}
		}()
	}

	for i, stmt := range stmts {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("executing statement %d of %d outside transaction: %w", i+1, len(stmts), err)
		}
	}

	return nil
}
