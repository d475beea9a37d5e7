package rules

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/kenyafarmiot/farmdb/internal/analyzer"
)

// CreateIndexRule detects CREATE INDEX without IF NOT EXISTS.
type CreateIndexRule struct{}

// NewCreateIndexRule creates a new CreateIndexRule.
func NewCreateIndexRule() *CreateIndexRule { return &CreateIndexRule{} }

// ID returns the rule identifier.
func (r *CreateIndexRule) ID() string { return "create-index-not-idempotent" }

// Check examines a statement for CREATE INDEX that fails on a rerun.
func (r *CreateIndexRule) Check(stmt *pg_query.RawStmt, ctx *analyzer.RuleContext) []analyzer.Finding {
	node, ok := stmt.Stmt.Node.(*pg_query.Node_IndexStmt)
	if !ok {
		return nil
	}

	idx := node.IndexStmt
	if idx.IfNotExists {
		return nil
	}

	msg := "CREATE INDEX " + idx.Idxname + " fails if the index already exists"
	if idx.Idxname == "" {
		// Unnamed indexes get a fresh generated name on every run.
		msg = "unnamed CREATE INDEX builds a duplicate index on every run"
	}

	return []analyzer.Finding{{
		Rule:       r.ID(),
		Severity:   analyzer.High,
		Table:      analyzer.TableName(idx.Relation),
		Message:    msg,
		Suggestion: "Name the index and use CREATE INDEX IF NOT EXISTS",
		StmtIndex:  ctx.StmtIndex,
	}}
}
