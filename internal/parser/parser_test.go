package parser_test

import (
	"testing"

	pg_query "github.com/pganalyze/pg_query_go/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenyafarmiot/farmdb/internal/parser"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		sql       string
		wantErr   bool
		wantStmts int
		checkNode func(t *testing.T, result *parser.ParseResult)
	}{
		{
			name:      "valid CREATE TABLE returns one statement",
			sql:       "CREATE TABLE farmers (id SERIAL PRIMARY KEY, name TEXT NOT NULL);",
			wantStmts: 1,
			checkNode: func(t *testing.T, result *parser.ParseResult) {
				t.Helper()
				_, ok := result.Stmts[0].Stmt.Node.(*pg_query.Node_CreateStmt)
				assert.True(t, ok, "expected CreateStmt node")
			},
		},
		{
			name:      "multi-statement SQL returns correct count",
			sql:       "CREATE TABLE a (id INT); CREATE TABLE b (id INT); CREATE TABLE c (id INT);",
			wantStmts: 3,
		},
		{
			name:      "CREATE INDEX CONCURRENTLY parses correctly",
			sql:       "CREATE INDEX CONCURRENTLY idx_farmers_phone ON farmers (phone);",
			wantStmts: 1,
			checkNode: func(t *testing.T, result *parser.ParseResult) {
				t.Helper()
				node, ok := result.Stmts[0].Stmt.Node.(*pg_query.Node_IndexStmt)
				require.True(t, ok, "expected IndexStmt node")
				assert.True(t, node.IndexStmt.Concurrent, "expected Concurrent to be true")
			},
		},
		{
			name:      "ALTER TABLE ADD COLUMN parses correctly",
			sql:       "ALTER TABLE farmers ADD COLUMN status TEXT;",
			wantStmts: 1,
			checkNode: func(t *testing.T, result *parser.ParseResult) {
				t.Helper()
				_, ok := result.Stmts[0].Stmt.Node.(*pg_query.Node_AlterTableStmt)
				assert.True(t, ok, "expected AlterTableStmt node")
			},
		},
		{
			name:    "invalid SQL returns error",
			sql:     "SELECT * FROM WHERE;",
			wantErr: true,
		},
		{
			name:      "empty string returns zero statements",
			sql:       "",
			wantStmts: 0,
			checkNode: func(t *testing.T, result *parser.ParseResult) {
				t.Helper()
				assert.Empty(t, result.SQL)
			},
		},
		{
			name:      "whitespace-only returns zero statements",
			sql:       "   \n\t  ",
			wantStmts: 0,
			checkNode: func(t *testing.T, result *parser.ParseResult) {
				t.Helper()
				assert.Equal(t, "   \n\t  ", result.SQL, "original SQL preserved")
			},
		},
		{
			name:      "INSERT ON CONFLICT keeps its clause",
			sql:       "INSERT INTO crops (name) VALUES ('maize') ON CONFLICT DO NOTHING;",
			wantStmts: 1,
			checkNode: func(t *testing.T, result *parser.ParseResult) {
				t.Helper()
				node, ok := result.Stmts[0].Stmt.Node.(*pg_query.Node_InsertStmt)
				require.True(t, ok, "expected InsertStmt node")
				assert.NotNil(t, node.InsertStmt.OnConflictClause)
			},
		},
		{
			name:      "VACUUM FULL parses as VacuumStmt",
			sql:       "VACUUM FULL farmers;",
			wantStmts: 1,
			checkNode: func(t *testing.T, result *parser.ParseResult) {
				t.Helper()
				_, ok := result.Stmts[0].Stmt.Node.(*pg_query.Node_VacuumStmt)
				assert.True(t, ok, "expected VacuumStmt node")
			},
		},
		{
			name:      "DROP TABLE parses as DropStmt",
			sql:       "DROP TABLE farmers;",
			wantStmts: 1,
			checkNode: func(t *testing.T, result *parser.ParseResult) {
				t.Helper()
				_, ok := result.Stmts[0].Stmt.Node.(*pg_query.Node_DropStmt)
				assert.True(t, ok, "expected DropStmt node")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result, err := parser.Parse(tt.sql)

			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, result)

				return
			}

			require.NoError(t, err)
			require.NotNil(t, result)
			assert.Len(t, result.Stmts, tt.wantStmts)
			assert.Equal(t, tt.sql, result.SQL)

			if tt.checkNode != nil {
				tt.checkNode(t, result)
			}
		})
	}
}

func TestParseResult_StatementText(t *testing.T) {
	t.Parallel()

	result, err := parser.Parse("CREATE TABLE a (id INT); CREATE TABLE b (id INT);\nSELECT 1")
	require.NoError(t, err)
	require.Len(t, result.Stmts, 3)

	assert.Equal(t, "CREATE TABLE a (id INT)", result.StatementText(0))
	assert.Equal(t, "CREATE TABLE b (id INT)", result.StatementText(1))
	assert.Equal(t, "SELECT 1", result.StatementText(2))
	assert.Empty(t, result.StatementText(3))
	assert.Empty(t, result.StatementText(-1))
}

func TestSplit(t *testing.T) {
	t.Parallel()

	stmts, err := parser.Split(`CREATE TABLE IF NOT EXISTS t (id INT);
CREATE INDEX CONCURRENTLY IF NOT EXISTS idx_t_id ON t (id);`)

	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "CREATE TABLE IF NOT EXISTS t")
	assert.Contains(t, stmts[1], "CREATE INDEX CONCURRENTLY")
}

func TestSplit_empty_returnsNil(t *testing.T) {
	t.Parallel()

	stmts, err := parser.Split("  \n ")

	require.NoError(t, err)
	assert.Nil(t, stmts)
}

func TestIsNonTransactional(t *testing.T) {
	t.Parallel()

	result, err := parser.Parse(`CREATE INDEX CONCURRENTLY idx_a ON sensor_readings (farmer_id);
CREATE INDEX idx_b ON sensor_readings (timestamp);
VACUUM sensor_readings;
ANALYZE farmers;
VACUUM ANALYZE farmers;`)
	require.NoError(t, err)
	require.Len(t, result.Stmts, 5)

	assert.True(t, parser.IsNonTransactional(result.Stmts[0]))
	assert.False(t, parser.IsNonTransactional(result.Stmts[1]))
	assert.True(t, parser.IsNonTransactional(result.Stmts[2]))
	assert.False(t, parser.IsNonTransactional(result.Stmts[3]))
	assert.True(t, parser.IsNonTransactional(result.Stmts[4]))
	assert.False(t, parser.IsNonTransactional(nil))
}
