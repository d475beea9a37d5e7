package rules_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kenyafarmiot/farmdb/internal/analyzer"
	"github.com/kenyafarmiot/farmdb/internal/analyzer/rules"
)

func TestNonTransactionalRule_ID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "non-transactional-body", rules.NewNonTransactionalRule().ID())
}

func TestNonTransactionalRule_Check(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		sql       string
		wantCount int
		wantTable string
	}{
		{
			name:      "lone concurrent index is safe",
			sql:       "CREATE INDEX CONCURRENTLY IF NOT EXISTS idx_sr_ts ON sensor_readings (timestamp);",
			wantCount: 0,
		},
		{
			name:      "concurrent index after other statements",
			sql:       "ALTER TABLE sensor_readings ADD COLUMN IF NOT EXISTS soil_ph DECIMAL(4,2);\nCREATE INDEX CONCURRENTLY IF NOT EXISTS idx_sr_ph ON sensor_readings (soil_ph);",
			wantCount: 1,
			wantTable: "sensor_readings",
		},
		{
			name:      "concurrent drop after other statements",
			sql:       "SELECT 1;\nDROP INDEX CONCURRENTLY IF EXISTS idx_sr_ph;",
			wantCount: 1,
			wantTable: "idx_sr_ph",
		},
		{
			name:      "vacuum after other statements",
			sql:       "DELETE FROM otps WHERE expires_at < NOW();\nVACUUM otps;",
			wantCount: 1,
		},
		{
			name:      "analyze after other statements is safe",
			sql:       "ALTER TABLE farmers ADD COLUMN IF NOT EXISTS farm_size DECIMAL(10,2);\nANALYZE farmers;",
			wantCount: 0,
		},
		{
			name:      "plain index in multi-statement body is safe",
			sql:       "SELECT 1;\nCREATE INDEX IF NOT EXISTS idx_sr_ts ON sensor_readings (timestamp);",
			wantCount: 0,
		},
	}

	rule := rules.NewNonTransactionalRule()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			findings := checkLast(t, rule, tt.sql, analyzer.DefaultPGVersion)
			assert.Len(t, findings, tt.wantCount)

			if tt.wantCount > 0 {
				assert.Equal(t, analyzer.High, findings[0].Severity)
				assert.Equal(t, tt.wantTable, findings[0].Table)
			}
		})
	}
}
