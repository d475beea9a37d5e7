package tracker

import "errors"

// ErrMigrationNotFound indicates no record exists for the given migration version.
var ErrMigrationNotFound = errors.New("migration not found in bookkeeping table")

// ErrChecksumMismatch indicates a shipped migration body was edited after it was applied.
var ErrChecksumMismatch = errors.New("migration checksum mismatch")

// ErrTableCreation indicates the bookkeeping table could not be created.
var ErrTableCreation = errors.New("creating bookkeeping table")

// ErrBookkeeping indicates the bookkeeping table could not be read.
var ErrBookkeeping = errors.New("reading bookkeeping table")

// ErrAlreadyRecorded indicates another runner recorded the same version
// first. It signals a concurrent apply, not corruption.
var ErrAlreadyRecorded = errors.New("migration already recorded by a concurrent run")
