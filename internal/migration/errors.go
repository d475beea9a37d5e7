package migration

import "errors"

// ErrDuplicateVersion indicates two migrations share the same version.
var ErrDuplicateVersion = errors.New("duplicate migration version")

// ErrEmptyMigration indicates a migration has no up body.
var ErrEmptyMigration = errors.New("migration has an empty up body")

// ErrMissingVersion indicates a migration definition has no version.
var ErrMissingVersion = errors.New("migration version is required")
