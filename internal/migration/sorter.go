package migration

import "sort"

// Sort returns a copy of migrations ordered by Version, lexicographically.
// The sort is stable so equal versions keep their source order; Validate
// rejects those anyway.
func Sort(migrations []Migration) []Migration {
	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Version < sorted[j].Version
	})

	return sorted
}

// Versions returns the versions of migrations in slice order.
func Versions(migrations []Migration) []string {
	vs := make([]string, len(migrations))
	for i := range migrations {
		vs[i] = migrations[i].Version
	}

	return vs
}
