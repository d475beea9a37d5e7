// Package schema embeds the farm backend's migrations, the one list every
// deployment applies.
package schema

import (
	"embed"

	"github.com/kenyafarmiot/farmdb/internal/migration"
)

//go:embed migrations/*.sql
var files embed.FS

// Root is the directory inside FS holding the migration files.
const Root = "migrations"

// FS returns the embedded migration files.
func FS() embed.FS {
	return files
}

// Source returns the embedded migrations as a migration.Source.
func Source() migration.Source {
	return migration.FSSource{FS: files, Root: Root}
}

// Load reads and validates the embedded migrations.
func Load() ([]migration.Migration, error) {
	ms, err := Source().Load()
	if err != nil {
		return nil, err
	}

	if err := migration.Validate(ms); err != nil {
		return nil, err
	}

	return ms, nil
}
