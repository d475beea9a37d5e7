package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kenyafarmiot/farmdb/internal/executor"
)

var rollbackCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "rollback",
	Short: "Roll back applied migrations",
	Long: `Roll back one or more applied migrations, newest first, using their
down bodies. Every selected migration must have a down body or nothing is
rolled back. Rolled back versions are pending again for the next apply.`,
	RunE: runRollback,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rollbackCmd.Flags().Int("steps", 1, "number of migrations to roll back")
	rollbackCmd.Flags().String("target", "", "roll back every migration after this version")
	rollbackCmd.Flags().Bool("all", false, "roll back every applied migration")
	rollbackCmd.Flags().Bool("dry-run", false, "show what would be rolled back without executing")
	rootCmd.AddCommand(rollbackCmd)
}

// errConflictingRollbackFlags is returned when more than one selector is set.
var errConflictingRollbackFlags = errors.New("--steps, --target and --all are mutually exclusive")

// rollbackSelection is the parsed form of the rollback selector flags.
type rollbackSelection struct {
	steps  int
	target string
	toZero bool // --all, or an explicit target of everything
}

func parseRollbackFlags(cmd *cobra.Command) (rollbackSelection, error) {
	set := 0

	for _, name := range []string{"steps", "target", "all"} {
		if cmd.Flags().Changed(name) {
			set++
		}
	}

	if set > 1 {
		return rollbackSelection{}, errConflictingRollbackFlags
	}

	steps, _ := cmd.Flags().GetInt("steps")
	target, _ := cmd.Flags().GetString("target")
	all, _ := cmd.Flags().GetBool("all")

	if all {
		return rollbackSelection{toZero: true}, nil
	}

	if target != "" {
		return rollbackSelection{target: target}, nil
	}

	if steps < 1 {
		return rollbackSelection{}, executor.ErrInvalidSteps
	}

	return rollbackSelection{steps: steps}, nil
}

func runRollback(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig

	if cfg.DatabaseURL == "" {
		return errDatabaseURLRequired
	}

	sel, err := parseRollbackFlags(cmd)
	if err != nil {
		return err
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	out := cmd.OutOrStdout()

	sorted, err := loadAndSortMigrations(migrationSource(cfg), out)
	if err != nil || sorted == nil {
		return err
	}

	ctx := commandContext(cmd)

	pool, err := connectDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	counts := &applyCounts{}
	exec := newExecutor(pool, cfg,
		executor.WithDryRun(dryRun),
		executor.WithProgressCallback(printProgress(out, AppLogger, counts)),
	)

	if dryRun {
		fmt.Fprintln(out, "\n--- DRY RUN (no changes will be made) ---")
	}

	switch {
	case sel.toZero:
		err = exec.RollbackToVersion(ctx, sorted, "")
	case sel.target != "":
		err = exec.RollbackToVersion(ctx, sorted, sel.target)
	default:
		err = exec.Rollback(ctx, sorted, sel.steps)
	}

	if err != nil {
		return err
	}

	if dryRun {
		fmt.Fprintf(out, "\nDry run complete: %d migration(s) would be rolled back.\n", counts.pending)
	} else {
		fmt.Fprintf(out, "\nRollback complete: %d rolled back.\n", counts.rolledBack)
	}

	return nil
}
