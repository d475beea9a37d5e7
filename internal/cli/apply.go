package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kenyafarmiot/farmdb/internal/analyzer"
	"github.com/kenyafarmiot/farmdb/internal/config"
	"github.com/kenyafarmiot/farmdb/internal/executor"
	"github.com/kenyafarmiot/farmdb/internal/migration"
)

// errDangerousMigrations is returned when apply is blocked by high/critical findings.
var errDangerousMigrations = errors.New("apply aborted: migrations that are not safe to rerun detected (use --force to override)")

var applyCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "apply",
	Short: "Apply pending migrations",
	Long: `Apply every pending migration in version order under the migration
advisory lock. Each body commits together with its bookkeeping record, so
rerunning apply after a failure resumes at the first unapplied version.
Supports dry-run mode, configurable lock and statement timeouts, and
waiting for a concurrent runner instead of failing fast.`,
	RunE: runApply,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	applyCmd.Flags().Bool("dry-run", false, "show what would be applied without executing")
	applyCmd.Flags().Bool("force", false, "skip the rerun-safety lint")
	applyCmd.Flags().Duration("lock-timeout", 0, "override lock timeout (e.g., 10s, 1m)")
	applyCmd.Flags().Duration("statement-timeout", 0, "override statement timeout (e.g., 30s, 5m)")
	applyCmd.Flags().Bool("lock-wait", false, "wait for the migration lock instead of failing when it is held")
	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, _ []string) error {
	cfg := *AppConfig

	if cfg.DatabaseURL == "" {
		return errDatabaseURLRequired
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	force, _ := cmd.Flags().GetBool("force")

	applyFlagOverrides(cmd, &cfg)

	out := cmd.OutOrStdout()

	sorted, err := loadAndSortMigrations(migrationSource(&cfg), out)
	if err != nil || sorted == nil {
		return err
	}

	if !force && !dryRun {
		if blocked, analyzeErr := checkDangerousMigrations(out, sorted, &cfg); analyzeErr != nil {
			return analyzeErr
		} else if blocked {
			return errDangerousMigrations
		}
	}

	ctx := commandContext(cmd)

	pool, err := connectDB(ctx, &cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	return executeMigrations(ctx, out, pool, sorted, &cfg, dryRun)
}

// applyFlagOverrides copies explicitly-set apply flags over cfg.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("lock-timeout") {
		cfg.LockTimeout, _ = cmd.Flags().GetDuration("lock-timeout")
	}

	if cmd.Flags().Changed("statement-timeout") {
		cfg.StatementTimeout, _ = cmd.Flags().GetDuration("statement-timeout")
	}

	if cmd.Flags().Changed("lock-wait") {
		cfg.LockWait, _ = cmd.Flags().GetBool("lock-wait")
	}
}

func executeMigrations(
	ctx context.Context,
	out io.Writer,
	pool *pgxpool.Pool,
	sorted []migration.Migration,
	cfg *config.Config,
	dryRun bool,
) error {
	counts := &applyCounts{}

	exec := newExecutor(pool, cfg,
		executor.WithDryRun(dryRun),
		executor.WithProgressCallback(printProgress(out, AppLogger, counts)),
	)

	if dryRun {
		fmt.Fprintln(out, "\n--- DRY RUN (no changes will be made) ---")
	}

	if err := exec.Apply(ctx, sorted); err != nil {
		return err
	}

	if dryRun {
		fmt.Fprintf(out, "\nDry run complete: %d migration(s) would be applied, %d already applied.\n",
			counts.pending, counts.skipped)
	} else {
		fmt.Fprintf(out, "\nApply complete: %d applied, %d skipped.\n", counts.applied, counts.skipped)
	}

	return nil
}

type applyCounts struct {
	applied    int
	skipped    int
	pending    int
	rolledBack int
}

// printProgress reports each executor event on out and in the log.
func printProgress(out io.Writer, log logrus.FieldLogger, counts *applyCounts) func(executor.ProgressEvent) {
	logProgress := executor.LogProgress(log)

	return func(event executor.ProgressEvent) {
		logProgress(event)

		switch event.Status {
		case executor.StatusStarting:
			fmt.Fprintf(out, "  Running %s ... ", event.Migration)
		case executor.StatusCompleted:
			fmt.Fprintf(out, "done (%s)\n", event.Duration.Truncate(time.Millisecond))
			counts.applied++
		case executor.StatusRolledBack:
			fmt.Fprintf(out, "rolled back (%s)\n", event.Duration.Truncate(time.Millisecond))
			counts.rolledBack++
		case executor.StatusPending:
			fmt.Fprintf(out, "  Would run %s\n", event.Migration)
			counts.pending++
		case executor.StatusSkipped:
			counts.skipped++
		case executor.StatusFailed:
			fmt.Fprintf(out, "FAILED\n")
			fmt.Fprintf(out, "    Error: %v\n", event.Error)
		}
	}
}

// checkDangerousMigrations runs the analyzer and returns true if
// HIGH/CRITICAL findings were found (blocking apply).
func checkDangerousMigrations(out io.Writer, sorted []migration.Migration, cfg *config.Config) (bool, error) {
	results, err := analyzeMigrations(sorted, cfg, false)
	if err != nil {
		return false, err
	}

	blocking := analyzer.Blocking(results)
	if len(blocking) == 0 {
		return false, nil
	}

	printAnalysisResults(out, blocking)

	return true, nil
}
