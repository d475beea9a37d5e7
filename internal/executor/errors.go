package executor

import "errors"

// ErrExecutionFailed indicates a migration body failed to execute.
var ErrExecutionFailed = errors.New("migration execution failed")

// ErrNoDownMigration indicates a migration selected for rollback has no down body.
var ErrNoDownMigration = errors.New("migration has no down body")

// ErrUnknownVersion indicates a version that is not part of the migration source.
var ErrUnknownVersion = errors.New("migration version not found in source")

// ErrInvalidSteps indicates a rollback step count below one.
var ErrInvalidSteps = errors.New("rollback steps must be at least 1")
