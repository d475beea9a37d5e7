package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Migration is one ordered unit of schema change. Once a version has shipped
// its UpSQL must not change; Checksum is how that is detected.
type Migration struct {
	Version  string // "001" or "20240101120000"
	Name     string // "create_farmers"
	UpSQL    string // forward body, trimmed
	DownSQL  string // reverse body, empty when the migration cannot be undone
	Checksum string // SHA-256 hex digest of UpSQL
	FilePath string // origin of the up body; "inline:<version>" for inline definitions
}

// Filename returns the name recorded in the bookkeeping table.
func (m *Migration) Filename() string {
	if m.FilePath == "" {
		return m.Version + "_" + m.Name
	}

	if i := strings.LastIndexAny(m.FilePath, `/\`); i >= 0 {
		return m.FilePath[i+1:]
	}

	return m.FilePath
}

// String implements fmt.Stringer.
func (m *Migration) String() string {
	return fmt.Sprintf("%s_%s", m.Version, m.Name)
}

// HasDown reports whether the migration carries a reverse body.
func (m *Migration) HasDown() bool {
	return m.DownSQL != ""
}

// ComputeChecksum returns the SHA-256 hex digest of the given SQL string.
func ComputeChecksum(sql string) string {
	h := sha256.Sum256([]byte(sql))

	return hex.EncodeToString(h[:])
}

// Validate checks a set of migrations for missing versions, duplicate
// versions and empty up bodies.
func Validate(migrations []Migration) error {
	seen := make(map[string]string, len(migrations))

	for i := range migrations {
		m := &migrations[i]

		if m.Version == "" {
			return fmt.Errorf("%w: %s", ErrMissingVersion, m.Filename())
		}

		if strings.TrimSpace(m.UpSQL) == "" {
			return fmt.Errorf("migration %s: %w", m.Version, ErrEmptyMigration)
		}

		if prev, ok := seen[m.Version]; ok {
			return fmt.Errorf("%w: %s (%s and %s)", ErrDuplicateVersion, m.Version, prev, m.Filename())
		}

		seen[m.Version] = m.Filename()
	}

	return nil
}
