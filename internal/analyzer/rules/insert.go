package rules

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/kenyafarmiot/farmdb/internal/analyzer"
)

// InsertRule detects seed INSERTs without ON CONFLICT.
type InsertRule struct{}

// NewInsertRule creates a new InsertRule.
func NewInsertRule() *InsertRule { return &InsertRule{} }

// ID returns the rule identifier.
func (r *InsertRule) ID() string { return "insert-not-idempotent" }

// Check examines a statement for INSERT that duplicates rows or hits a
// unique violation when run twice. INSERT ... SELECT is included.
func (r *InsertRule) Check(stmt *pg_query.RawStmt, ctx *analyzer.RuleContext) []analyzer.Finding {
	node, ok := stmt.Stmt.Node.(*pg_query.Node_InsertStmt)
	if !ok {
		return nil
	}

	ins := node.InsertStmt
	if ins.OnConflictClause != nil {
		return nil
	}

	return []analyzer.Finding{{
		Rule:       r.ID(),
		Severity:   analyzer.Medium,
		Table:      analyzer.TableName(ins.Relation),
		Message:    "INSERT without ON CONFLICT duplicates rows or violates a unique key when rerun",
		Suggestion: "Add ON CONFLICT (key) DO NOTHING, or DO UPDATE for settings",
		StmtIndex:  ctx.StmtIndex,
	}}
}
