package parser //nolint:revive // does not conflict with go/parser inside internal/

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// ParseResult holds the parsed statements of a migration body.
type ParseResult struct {
	Stmts []*pg_query.RawStmt
	SQL   string
}

// Parse parses a migration body with the PostgreSQL parser.
// Empty or whitespace-only input yields zero statements.
func Parse(sql string) (*ParseResult, error) {
	if strings.TrimSpace(sql) == "" {
		return &ParseResult{SQL: sql}, nil
	}

	tree, err := pg_query.Parse(sql)
	if err != nil {
		return nil, fmt.Errorf("parsing SQL: %w", err)
	}

	return &ParseResult{Stmts: tree.Stmts, SQL: sql}, nil
}

// StatementText returns the source text of statement idx, trimmed and
// without its trailing semicolon.
func (r *ParseResult) StatementText(idx int) string {
	if idx < 0 || idx >= len(r.Stmts) {
		return ""
	}

	start := int(r.Stmts[idx].StmtLocation)

	end := len(r.SQL)
	if n := int(r.Stmts[idx].StmtLen); n > 0 {
		end = start + n
	}

	if start > len(r.SQL) || end > len(r.SQL) || start >= end {
		return ""
	}

	return strings.TrimSuffix(strings.TrimSpace(r.SQL[start:end]), ";")
}

// Split breaks a body into its individual statements, for bodies that must
// run one statement at a time outside a transaction block.
func Split(sql string) ([]string, error) {
	if strings.TrimSpace(sql) == "" {
		return nil, nil
	}

	stmts, err := pg_query.SplitWithParser(sql, true)
	if err != nil {
		return nil, fmt.Errorf("splitting SQL: %w", err)
	}

	return stmts, nil
}

// IsNonTransactional reports whether stmt cannot run inside a transaction
// block: CREATE/DROP INDEX CONCURRENTLY, REINDEX CONCURRENTLY and VACUUM.
func IsNonTransactional(stmt *pg_query.RawStmt) bool {
	if stmt == nil || stmt.Stmt == nil {
		return false
	}

	switch n := stmt.Stmt.Node.(type) {
	case *pg_query.Node_IndexStmt:
		return n.IndexStmt != nil && n.IndexStmt.Concurrent
	case *pg_query.Node_DropStmt:
		return n.DropStmt != nil && n.DropStmt.Concurrent
	case *pg_query.Node_VacuumStmt:
		// ANALYZE shares the node and runs fine inside a transaction.
		return n.VacuumStmt != nil && n.VacuumStmt.IsVacuumcmd
	case *pg_query.Node_ReindexStmt:
		return n.ReindexStmt != nil && hasConcurrentlyOption(n.ReindexStmt.Params)
	default:
		return false
	}
}

func hasConcurrentlyOption(params []*pg_query.Node) bool {
	for _, p := range params {
		if d, ok := p.Node.(*pg_query.Node_DefElem); ok && d.DefElem.Defname == "concurrently" {
			return true
		}
	}

	return false
}
