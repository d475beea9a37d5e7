package rules

import (
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/kenyafarmiot/farmdb/internal/analyzer"
)

// droppable object types and their SQL keyword.
var dropKinds = map[pg_query.ObjectType]string{
	pg_query.ObjectType_OBJECT_TABLE:    "TABLE",
	pg_query.ObjectType_OBJECT_INDEX:    "INDEX",
	pg_query.ObjectType_OBJECT_VIEW:     "VIEW",
	pg_query.ObjectType_OBJECT_SEQUENCE: "SEQUENCE",
	pg_query.ObjectType_OBJECT_TYPE:     "TYPE",
}

// DropRule detects DROP statements without IF EXISTS.
type DropRule struct{}

// NewDropRule creates a new DropRule.
func NewDropRule() *DropRule { return &DropRule{} }

// ID returns the rule identifier.
func (r *DropRule) ID() string { return "drop-not-idempotent" }

// Check examines a statement for DROP TABLE/INDEX/VIEW/SEQUENCE/TYPE
// that fails once the object is gone.
func (r *DropRule) Check(stmt *pg_query.RawStmt, ctx *analyzer.RuleContext) []analyzer.Finding {
	node, ok := stmt.Stmt.Node.(*pg_query.Node_DropStmt)
	if !ok {
		return nil
	}

	drop := node.DropStmt

	kind, ok := dropKinds[drop.RemoveType]
	if !ok || drop.MissingOk {
		return nil
	}

	names := make([]string, 0, len(drop.Objects))

	for _, obj := range drop.Objects {
		if n := analyzer.ObjectName(obj); n != "" {
			names = append(names, n)
		}
	}

	return []analyzer.Finding{{
		Rule:       r.ID(),
		Severity:   analyzer.Medium,
		Table:      strings.Join(names, ", "),
		Message:    "DROP " + kind + " fails if the object no longer exists",
		Suggestion: "Use DROP " + kind + " IF EXISTS",
		StmtIndex:  ctx.StmtIndex,
	}}
}
