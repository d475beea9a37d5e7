package migration

import (
	"io/fs"
	"strings"
)

// Source yields the migrations known to the build. Implementations need not
// sort; the executor orders migrations before applying them.
type Source interface {
	Load() ([]Migration, error)
}

// DirSource loads migrations from a directory on disk.
type DirSource struct {
	Dir string
}

// Load implements Source.
func (s DirSource) Load() ([]Migration, error) {
	return LoadFromDir(s.Dir)
}

// FSSource loads migrations from a file system, typically an embed.FS.
type FSSource struct {
	FS   fs.FS
	Root string
}

// Load implements Source.
func (s FSSource) Load() ([]Migration, error) {
	return LoadFromFS(s.FS, s.Root)
}

// Definition is an inline migration written directly in Go.
// When Version is empty it is taken from the leading digits of Name,
// so "001_add_farm_size_column" yields version "001".
type Definition struct {
	Version string
	Name    string
	Up      string
	Down    string
}

// InlineSource is a hardcoded list of migrations.
type InlineSource []Definition

// Inline builds an InlineSource from the given definitions.
func Inline(defs ...Definition) InlineSource {
	return InlineSource(defs)
}

// Load implements Source.
func (s InlineSource) Load() ([]Migration, error) {
	migrations := make([]Migration, 0, len(s))

	for _, d := range s {
		version, name := d.Version, d.Name
		if version == "" {
			version, name = ParseName(d.Name)
		}

		up := strings.TrimSpace(d.Up)

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     name,
			UpSQL:    up,
			DownSQL:  strings.TrimSpace(d.Down),
			Checksum: ComputeChecksum(up),
			FilePath: "inline:" + version,
		})
	}

	if err := Validate(migrations); err != nil {
		return nil, err
	}

	return migrations, nil
}

// ParseName splits "001_add_farm_size_column" into "001" and
// "add_farm_size_column". Names without a numeric prefix return an
// empty version.
func ParseName(full string) (version, name string) {
	prefix, rest, ok := strings.Cut(full, "_")
	if !ok || prefix == "" || strings.Trim(prefix, "0123456789") != "" {
		return "", full
	}

	return prefix, rest
}
