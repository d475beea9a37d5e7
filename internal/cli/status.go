package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kenyafarmiot/farmdb/internal/config"
	"github.com/kenyafarmiot/farmdb/internal/executor"
	"github.com/kenyafarmiot/farmdb/internal/migration"
)

var statusCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "status",
	Short: "Show migration status",
	Long: `Display every known migration with its state: applied, pending,
rolled back, modified since it was applied, or recorded in the database
but missing from the source.`,
	RunE: runStatus,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	statusCmd.Flags().String("format", "", "output format (text, json)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig

	format, err := outputFormat(cmd, cfg, "text", "json")
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	sorted, err := loadAndSortMigrations(migrationSource(cfg), out)
	if err != nil || sorted == nil {
		return err
	}

	entries, err := fetchPlan(commandContext(cmd), cfg, sorted)
	if err != nil {
		return err
	}

	if format == "json" {
		return writeJSON(out, toStatusReport(entries))
	}

	fmt.Fprintf(out, "Source: %s\n\n", sourceLabel(cfg))
	printStatusTable(out, entries)

	s := executor.Summarize(entries)
	fmt.Fprintf(out, "\n%d applied, %d pending, %d need attention.\n", s.Applied, s.Pending, s.Other)

	return nil
}

// fetchPlan connects, reads the bookkeeping table and disconnects.
func fetchPlan(ctx context.Context, cfg *config.Config, sorted []migration.Migration) ([]executor.PlanEntry, error) {
	pool, err := connectDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	entries, err := newExecutor(pool, cfg).Plan(ctx, sorted)
	if err != nil {
		return nil, fmt.Errorf("reading migration status: %w", err)
	}

	return entries, nil
}

func printStatusTable(out io.Writer, entries []executor.PlanEntry) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "VERSION\tNAME\tSTATE\tAPPLIED AT\tDOWN")

	for _, e := range entries {
		appliedAt := "-"
		if !e.AppliedAt.IsZero() {
			appliedAt = e.AppliedAt.UTC().Format(time.DateTime)
		}

		down := "no"
		if e.HasDown {
			down = "yes"
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Version, e.Name, e.State, appliedAt, down)
	}

	tw.Flush()
}

type statusEntry struct {
	Version   string     `json:"version"`
	Name      string     `json:"name"`
	State     string     `json:"state"`
	AppliedAt *time.Time `json:"applied_at,omitempty"`
	HasDown   bool       `json:"has_down"`
}

type statusReport struct {
	Migrations []statusEntry `json:"migrations"`
	Applied    int           `json:"applied"`
	Pending    int           `json:"pending"`
	Attention  int           `json:"attention"`
}

func toStatusReport(entries []executor.PlanEntry) statusReport {
	s := executor.Summarize(entries)
	report := statusReport{
		Migrations: make([]statusEntry, 0, len(entries)),
		Applied:    s.Applied,
		Pending:    s.Pending,
		Attention:  s.Other,
	}

	for _, e := range entries {
		se := statusEntry{Version: e.Version, Name: e.Name, State: e.State, HasDown: e.HasDown}

		if !e.AppliedAt.IsZero() {
			at := e.AppliedAt.UTC()
			se.AppliedAt = &at
		}

		report.Migrations = append(report.Migrations, se)
	}

	return report
}
