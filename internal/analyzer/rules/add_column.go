package rules

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/kenyafarmiot/farmdb/internal/analyzer"
)

// ADD COLUMN IF NOT EXISTS shipped in 9.6; target versions are whole major
// numbers, so any 9.x target is treated as lacking it.
const pgVersionAddColumnIfNotExists = 10

// AddColumnRule detects ADD COLUMN without IF NOT EXISTS.
type AddColumnRule struct{}

// NewAddColumnRule creates a new AddColumnRule.
func NewAddColumnRule() *AddColumnRule { return &AddColumnRule{} }

// ID returns the rule identifier.
func (r *AddColumnRule) ID() string { return "add-column-not-idempotent" }

// Check examines a statement for ALTER TABLE ... ADD COLUMN commands that
// fail when the column already exists.
func (r *AddColumnRule) Check(stmt *pg_query.RawStmt, ctx *analyzer.RuleContext) []analyzer.Finding {
	node, ok := stmt.Stmt.Node.(*pg_query.Node_AlterTableStmt)
	if !ok {
		return nil
	}

	alt := node.AlterTableStmt
	var findings []analyzer.Finding

	for _, cmdNode := range alt.Cmds {
		cmd, ok := cmdNode.Node.(*pg_query.Node_AlterTableCmd)
		if !ok {
			continue
		}

		if cmd.AlterTableCmd.Subtype != pg_query.AlterTableType_AT_AddColumn || cmd.AlterTableCmd.MissingOk {
			continue
		}

		findings = append(findings, r.finding(alt.Relation, columnName(cmd.AlterTableCmd), ctx))
	}

	return findings
}

func (r *AddColumnRule) finding(relation *pg_query.RangeVar, column string, ctx *analyzer.RuleContext) analyzer.Finding {
	f := analyzer.Finding{
		Rule:       r.ID(),
		Severity:   analyzer.High,
		Table:      analyzer.TableName(relation),
		Message:    "ADD COLUMN " + column + " fails if the column already exists",
		Suggestion: "Use ADD COLUMN IF NOT EXISTS",
		StmtIndex:  ctx.StmtIndex,
	}

	if ctx.TargetPGVersion < pgVersionAddColumnIfNotExists {
		f.Severity = analyzer.Low
		f.Suggestion = "Guard the column with a DO block checking information_schema.columns; IF NOT EXISTS needs PostgreSQL 9.6"
	}

	return f
}

func columnName(cmd *pg_query.AlterTableCmd) string {
	if cmd.Def != nil {
		if col, ok := cmd.Def.Node.(*pg_query.Node_ColumnDef); ok {
			return col.ColumnDef.Colname
		}
	}

	return cmd.Name
}
