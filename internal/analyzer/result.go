package analyzer

import "github.com/kenyafarmiot/farmdb/internal/migration"

// Finding is a single statement that breaks the rerunnable-body contract.
type Finding struct {
	Rule       string   // Rule ID (e.g., "create-table-not-idempotent")
	Severity   Severity // How likely a rerun is to fail or duplicate data
	Table      string   // Affected table or index name
	Statement  string   // The SQL statement text (truncated for display)
	Message    string   // What goes wrong when the body runs twice
	Suggestion string   // Rerunnable alternative
	StmtIndex  int      // Index in the body's statement list (0-based)
	Down       bool     // Found in the down body
}

// AnalysisResult holds all findings for a single migration.
type AnalysisResult struct {
	Migration   *migration.Migration
	Findings    []Finding
	MaxSeverity Severity // Highest severity across all findings
}

// HasHighOrCritical returns true if any finding is High or Critical severity.
func (r *AnalysisResult) HasHighOrCritical() bool {
	return r.MaxSeverity >= High
}

// TruncateSQL truncates a SQL string to maxLen characters for display.
// A maxLen below 4 leaves the string untouched.
func TruncateSQL(sql string, maxLen int) string {
	if maxLen < 4 || len(sql) <= maxLen { //nolint:mnd // room for "..."
		return sql
	}

	return sql[:maxLen-3] + "..."
}
