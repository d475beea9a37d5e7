package rules

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/kenyafarmiot/farmdb/internal/analyzer"
	"github.com/kenyafarmiot/farmdb/internal/parser"
)

// NonTransactionalRule detects statements that cannot run in a transaction
// sharing a body with other statements. Such a body runs one statement at a
// time, so a failure part-way leaves the earlier statements applied.
type NonTransactionalRule struct{}

// NewNonTransactionalRule creates a new NonTransactionalRule.
func NewNonTransactionalRule() *NonTransactionalRule { return &NonTransactionalRule{} }

// ID returns the rule identifier.
func (r *NonTransactionalRule) ID() string { return "non-transactional-body" }

// Check reports a non-transactional statement in a multi-statement body.
func (r *NonTransactionalRule) Check(stmt *pg_query.RawStmt, ctx *analyzer.RuleContext) []analyzer.Finding {
	if len(ctx.Stmts) < 2 || !parser.IsNonTransactional(stmt) { //nolint:mnd // a lone statement is atomic
		return nil
	}

	var table string

	switch n := stmt.Stmt.Node.(type) {
	case *pg_query.Node_IndexStmt:
		table = analyzer.TableName(n.IndexStmt.Relation)
	case *pg_query.Node_DropStmt:
		if len(n.DropStmt.Objects) > 0 {
			table = analyzer.ObjectName(n.DropStmt.Objects[0])
		}
	}

	return []analyzer.Finding{{
		Rule:       r.ID(),
		Severity:   analyzer.High,
		Table:      table,
		Message:    "statement cannot run in a transaction, so this body is applied one statement at a time and a failure leaves it half-applied",
		Suggestion: "Move the CONCURRENTLY or VACUUM statement into its own migration",
		StmtIndex:  ctx.StmtIndex,
	}}
}
