package rules_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kenyafarmiot/farmdb/internal/analyzer"
	"github.com/kenyafarmiot/farmdb/internal/parser"
)

// checkLast parses sql and runs rule against its last statement, with the
// whole body in the rule context.
func checkLast(t *testing.T, rule analyzer.Rule, sql string, pgVersion int) []analyzer.Finding {
	t.Helper()

	result, err := parser.Parse(sql)
	require.NoError(t, err)
	require.NotEmpty(t, result.Stmts)

	idx := len(result.Stmts) - 1
	ctx := &analyzer.RuleContext{
		TargetPGVersion: pgVersion,
		StmtIndex:       idx,
		Stmts:           result.Stmts,
	}

	return rule.Check(result.Stmts[idx], ctx)
}
