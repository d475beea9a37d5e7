package executor

import (
	"fmt"

	"github.com/kenyafarmiot/farmdb/internal/parser"
)

// requiresNoTransaction reports whether any statement in sql cannot run
// inside a transaction block.
func requiresNoTransaction(sql string) (bool, error) {
	result, err := parser.Parse(sql)
	if err != nil {
		return false, fmt.Errorf("parsing SQL for transaction detection: %w", err)
	}

	for _, stmt := range result.Stmts {
		if parser.IsNonTransactional(stmt) {
			return true, nil
		}
	}

	return false, nil
}
