package rules_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenyafarmiot/farmdb/internal/analyzer"
	"github.com/kenyafarmiot/farmdb/internal/analyzer/rules"
	"github.com/kenyafarmiot/farmdb/internal/migration"
)

func TestNewDefaultRegistry_registersAllRules(t *testing.T) {
	t.Parallel()

	r := rules.NewDefaultRegistry()
	require.NotNil(t, r)
	assert.Len(t, r.Rules(), 6)
}

func TestNewDefaultRegistry_uniqueIDs(t *testing.T) {
	t.Parallel()

	r := rules.NewDefaultRegistry()
	seen := make(map[string]bool)

	for _, rule := range r.Rules() {
		id := rule.ID()
		assert.False(t, seen[id], "duplicate rule ID: %s", id)
		seen[id] = true
	}
}

func TestDefaultRegistry_rerunnableBody_isSafe(t *testing.T) {
	t.Parallel()

	m := &migration.Migration{
		Version: "009",
		Name:    "create_crops",
		UpSQL: `CREATE TABLE IF NOT EXISTS crops (
    id SERIAL PRIMARY KEY,
    name VARCHAR(100) UNIQUE NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_crops_name ON crops (name);
ALTER TABLE farmers ADD COLUMN IF NOT EXISTS primary_crop_id INTEGER;
INSERT INTO crops (name) VALUES ('maize') ON CONFLICT (name) DO NOTHING;`,
	}

	a := analyzer.New(analyzer.WithRegistry(rules.NewDefaultRegistry()))

	result, err := a.Analyze(m)
	require.NoError(t, err)
	assert.Empty(t, result.Findings)
	assert.Equal(t, analyzer.Safe, result.MaxSeverity)
}

func TestDefaultRegistry_unguardedBody_isBlocking(t *testing.T) {
	t.Parallel()

	m := &migration.Migration{
		Version: "009",
		Name:    "create_crops",
		UpSQL:   "CREATE TABLE crops (id SERIAL);\nINSERT INTO crops (id) VALUES (1);",
	}

	a := analyzer.New(analyzer.WithRegistry(rules.NewDefaultRegistry()))

	result, err := a.Analyze(m)
	require.NoError(t, err)
	require.Len(t, result.Findings, 2)
	assert.True(t, result.HasHighOrCritical())
	assert.Equal(t, "CREATE TABLE crops (id SERIAL)", result.Findings[0].Statement)
	assert.Equal(t, 1, result.Findings[1].StmtIndex)
}
