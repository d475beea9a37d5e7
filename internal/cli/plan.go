package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kenyafarmiot/farmdb/internal/analyzer"
	"github.com/kenyafarmiot/farmdb/internal/executor"
)

var planCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "plan",
	Short: "Show execution plan for pending migrations",
	Long: `Display the migrations the next apply would run, in execution order,
together with their rerun-safety findings. Nothing is executed.`,
	RunE: runPlan,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	planCmd.Flags().String("format", "", "output format (text, json)")
	rootCmd.AddCommand(planCmd)
}

type planStep struct {
	Order    int             `json:"order"`
	Version  string          `json:"version"`
	Name     string          `json:"name"`
	State    string          `json:"state"`
	Severity string          `json:"max_severity"`
	Findings []findingReport `json:"findings"`
}

func runPlan(cmd *cobra.Command, _ []string) error {
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

	results, err := analyzeMigrations(sorted, cfg, false)
	if err != nil {
		return err
	}

	steps := buildPlanSteps(entries, results)

	if format == "json" {
		return writeJSON(out, steps)
	}

	printPlan(out, steps, entries)

	return nil
}

// buildPlanSteps keeps the entries the next apply would execute and
// attaches their lint findings.
func buildPlanSteps(entries []executor.PlanEntry, results []analyzer.AnalysisResult) []planStep {
	byVersion := make(map[string]analyzer.AnalysisResult, len(results))
	for _, r := range results {
		byVersion[r.Migration.Version] = r
	}

	steps := make([]planStep, 0)

	for _, e := range entries {
		if e.State != executor.StatePending && e.State != executor.StateRolledBack {
			continue
		}

		r := byVersion[e.Version]
		steps = append(steps, planStep{
			Order:    len(steps) + 1,
			Version:  e.Version,
			Name:     e.Name,
			State:    e.State,
			Severity: r.MaxSeverity.String(),
			Findings: toFindingReports([]analyzer.AnalysisResult{r}),
		})
	}

	return steps
}

func printPlan(out io.Writer, steps []planStep, entries []executor.PlanEntry) {
	for _, e := range entries {
		switch e.State {
		case executor.StateModified:
			fmt.Fprintf(out, "WARNING: %s_%s changed after it was applied; apply will refuse to run.\n", e.Version, e.Name)
		case executor.StateMissing:
			fmt.Fprintf(out, "WARNING: %s is recorded as applied but missing from the source.\n", e.Name)
		}
	}

	if len(steps) == 0 {
		fmt.Fprintln(out, "Schema is up to date. Nothing to apply.")
		return
	}

	fmt.Fprintf(out, "%d migration(s) will be applied:\n\n", len(steps))

	for _, s := range steps {
		fmt.Fprintf(out, "  %d. %s_%s\n", s.Order, s.Version, s.Name)

		for _, f := range s.Findings {
			fmt.Fprintf(out, "       [%s] %s (%s)\n", f.Severity, f.Message, f.Rule)
		}
	}
}
