package rules

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/kenyafarmiot/farmdb/internal/analyzer"
)

// CreateTableRule detects CREATE TABLE without IF NOT EXISTS.
type CreateTableRule struct{}

// NewCreateTableRule creates a new CreateTableRule.
func NewCreateTableRule() *CreateTableRule { return &CreateTableRule{} }

// ID returns the rule identifier.
func (r *CreateTableRule) ID() string { return "create-table-not-idempotent" }

// Check examines CREATE TABLE and CREATE TABLE AS statements.
func (r *CreateTableRule) Check(stmt *pg_query.RawStmt, ctx *analyzer.RuleContext) []analyzer.Finding {
	var (
		relation    *pg_query.RangeVar
		ifNotExists bool
	)

	switch node := stmt.Stmt.Node.(type) {
	case *pg_query.Node_CreateStmt:
		relation, ifNotExists = node.CreateStmt.Relation, node.CreateStmt.IfNotExists
	case *pg_query.Node_CreateTableAsStmt:
		if node.CreateTableAsStmt.Into == nil {
			return nil
		}

		relation, ifNotExists = node.CreateTableAsStmt.Into.Rel, node.CreateTableAsStmt.IfNotExists
	default:
		return nil
	}

	if ifNotExists {
		return nil
	}

	table := analyzer.TableName(relation)

	return []analyzer.Finding{{
		Rule:       r.ID(),
		Severity:   analyzer.High,
		Table:      table,
		Message:    "CREATE TABLE " + table + " fails if the table already exists",
		Suggestion: "Use CREATE TABLE IF NOT EXISTS",
		StmtIndex:  ctx.StmtIndex,
	}}
}
