package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kenyafarmiot/farmdb/internal/analyzer"
	"github.com/kenyafarmiot/farmdb/internal/analyzer/rules"
	"github.com/kenyafarmiot/farmdb/internal/config"
	"github.com/kenyafarmiot/farmdb/internal/migration"
)

var analyzeCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "analyze [migration-dir]",
	Short: "Lint migrations for bodies that are not safe to rerun",
	Long: `Analyze migration bodies with the PostgreSQL parser and report
statements that fail or duplicate data when a body runs twice, such as
CREATE TABLE without IF NOT EXISTS or INSERT without ON CONFLICT. Reports
findings with severity levels and the rerunnable alternative.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	analyzeCmd.Flags().String("format", "", "output format (text, json, github-actions)")
	analyzeCmd.Flags().String("fail-on", "", "exit non-zero when a finding reaches this severity (low, medium, high, critical)")
	analyzeCmd.Flags().Bool("include-down", false, "also lint down bodies")
	analyzeCmd.Flags().StringSlice("disable", nil, "rule IDs to skip")
	rootCmd.AddCommand(analyzeCmd)
}

// errFindingsAtThreshold is returned when --fail-on is set and a finding reaches it.
var errFindingsAtThreshold = errors.New("findings at or above the --fail-on severity detected")

const formatGitHubActions = "github-actions"

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := AppConfig

	format, err := outputFormat(cmd, cfg, "text", "json", formatGitHubActions)
	if err != nil {
		return err
	}

	var threshold *analyzer.Severity

	if raw, _ := cmd.Flags().GetString("fail-on"); raw != "" {
		s, parseErr := analyzer.ParseSeverity(raw)
		if parseErr != nil {
			return fmt.Errorf("--fail-on: %w", parseErr)
		}

		threshold = &s
	}

	src := migrationSource(cfg)
	if len(args) > 0 {
		src = migration.DirSource{Dir: args[0]}
	}

	sorted, err := loadAndSortMigrations(src, cmd.OutOrStdout())
	if err != nil || sorted == nil {
		return err
	}

	includeDown, _ := cmd.Flags().GetBool("include-down")
	disabled, _ := cmd.Flags().GetStringSlice("disable")

	results, err := analyzeMigrations(sorted, cfg, includeDown, disabled...)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	switch format {
	case "json":
		if err := writeJSON(out, toFindingReports(results)); err != nil {
			return err
		}
	case formatGitHubActions:
		printGitHubAnnotations(out, results)
	default:
		printAnalysisResults(out, results)
	}

	if threshold != nil {
		if highest := maxSeverity(results); highest > analyzer.Safe && highest >= *threshold {
			return errFindingsAtThreshold
		}
	}

	return nil
}

func analyzeMigrations(
	sorted []migration.Migration,
	cfg *config.Config,
	includeDown bool,
	disabled ...string,
) ([]analyzer.AnalysisResult, error) {
	registry := rules.NewDefaultRegistry()
	registry.Disable(disabled...)

	a := analyzer.New(
		analyzer.WithRegistry(registry),
		analyzer.WithPGVersion(cfg.TargetPGVersion),
		analyzer.WithDownBodies(includeDown),
	)

	results, err := a.AnalyzeAll(sorted)
	if err != nil {
		return nil, fmt.Errorf("analyzing migrations: %w", err)
	}

	return results, nil
}

func printAnalysisResults(out io.Writer, results []analyzer.AnalysisResult) {
	totalFindings := 0

	for _, r := range results {
		if len(r.Findings) == 0 {
			continue
		}

		fmt.Fprintf(out, "\n=== %s ===\n", r.Migration)

		for _, f := range r.Findings {
			fmt.Fprintf(out, "  [%s] %s\n", f.Severity, f.Message)

			if f.Table != "" {
				fmt.Fprintf(out, "    Object: %s\n", f.Table)
			}

			fmt.Fprintf(out, "    Rule:   %s\n", f.Rule)

			if f.Down {
				fmt.Fprintln(out, "    Body:   down")
			}

			if f.Statement != "" {
				fmt.Fprintf(out, "    SQL:    %s\n", f.Statement)
			}

			fmt.Fprintf(out, "    Fix:    %s\n\n", f.Suggestion)
		}

		totalFindings += len(r.Findings)
	}

	if totalFindings == 0 {
		fmt.Fprintln(out, "All migration bodies are safe to rerun.")
	} else {
		fmt.Fprintf(out, "Found %d finding(s) across %d migration(s).\n", totalFindings, countMigrationsWithFindings(results))
	}
}

// printGitHubAnnotations emits workflow commands so findings show up inline
// on pull requests.
func printGitHubAnnotations(out io.Writer, results []analyzer.AnalysisResult) {
	for _, r := range results {
		for _, f := range r.Findings {
			level := "warning"
			if f.Severity >= analyzer.High {
				level = "error"
			}

			fmt.Fprintf(out, "::%s file=%s,title=%s::%s. %s\n",
				level, r.Migration.FilePath, f.Rule, f.Message, f.Suggestion)
		}
	}
}

type findingReport struct {
	Version    string `json:"version"`
	Migration  string `json:"migration"`
	Rule       string `json:"rule"`
	Severity   string `json:"severity"`
	Object     string `json:"object,omitempty"`
	Statement  string `json:"statement,omitempty"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion"`
	Down       bool   `json:"down,omitempty"`
}

func toFindingReports(results []analyzer.AnalysisResult) []findingReport {
	reports := make([]findingReport, 0)

	for _, r := range results {
		for _, f := range r.Findings {
			reports = append(reports, findingReport{
				Version:    r.Migration.Version,
				Migration:  r.Migration.String(),
				Rule:       f.Rule,
				Severity:   f.Severity.String(),
				Object:     f.Table,
				Statement:  f.Statement,
				Message:    f.Message,
				Suggestion: f.Suggestion,
				Down:       f.Down,
			})
		}
	}

	return reports
}

func maxSeverity(results []analyzer.AnalysisResult) analyzer.Severity {
	highest := analyzer.Safe

	for _, r := range results {
		if r.MaxSeverity > highest {
			highest = r.MaxSeverity
		}
	}

	return highest
}

func countMigrationsWithFindings(results []analyzer.AnalysisResult) int {
	count := 0

	for _, r := range results {
		if len(r.Findings) > 0 {
			count++
		}
	}

	return count
}
