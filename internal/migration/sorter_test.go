package migration_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kenyafarmiot/farmdb/internal/migration"
)

func makeMigrations(t *testing.T, versions ...string) []migration.Migration {
	t.Helper()

	ms := make([]migration.Migration, len(versions))
	for i, v := range versions {
		ms[i] = migration.Migration{Version: v, Name: "m" + v}
	}

	return ms
}

func TestSort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "sorted input unchanged",
			input:    []string{"001", "002", "003"},
			expected: []string{"001", "002", "003"},
		},
		{
			name:     "reverse input is corrected",
			input:    []string{"002", "001"},
			expected: []string{"001", "002"},
		},
		{
			name:     "shuffled input is corrected",
			input:    []string{"010", "003", "001", "012"},
			expected: []string{"001", "003", "010", "012"},
		},
		{
			name:     "timestamp versions",
			input:    []string{"20240201120000", "20240101120000"},
			expected: []string{"20240101120000", "20240201120000"},
		},
		{
			name:     "lexicographic not numeric",
			input:    []string{"10", "9"},
			expected: []string{"10", "9"},
		},
		{
			name:     "empty",
			input:    []string{},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := migration.Sort(makeMigrations(t, tt.input...))

			assert.Equal(t, tt.expected, migration.Versions(result))
		})
	}
}

func TestSort_isStableForEqualVersions(t *testing.T) {
	t.Parallel()

	input := []migration.Migration{
		{Version: "002", Name: "first"},
		{Version: "001", Name: "only"},
		{Version: "002", Name: "second"},
	}

	result := migration.Sort(input)

	assert.Equal(t, []string{"only", "first", "second"},
		[]string{result[0].Name, result[1].Name, result[2].Name})
}

func TestSort_doesNotMutateOriginal(t *testing.T) {
	t.Parallel()

	input := makeMigrations(t, "003", "001", "002")

	migration.Sort(input)

	assert.Equal(t, []string{"003", "001", "002"}, migration.Versions(input))
}
