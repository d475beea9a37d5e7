package migration

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// pairedPattern matches migrations split into up and down files:
//
//	V{version}_{name}.up.sql   (e.g., V001_create_farmers.up.sql)
//	{timestamp}_{name}.up.sql  (e.g., 20240101120000_create_farmers.up.sql)
var pairedPattern = regexp.MustCompile( //nolint:gochecknoglobals // compiled once
	`^(?:V(\d+)|(\d{14}))_(.+)\.(up|down)\.sql$`,
)

// singlePattern matches single-file migrations such as 001_create_farmers.sql.
// The file may hold both directions behind "-- +migrate Up/Down" markers.
var singlePattern = regexp.MustCompile( //nolint:gochecknoglobals // compiled once
	`^V?(\d+)_(.+)\.sql$`,
)

const (
	upMarker   = "-- +migrate Up"
	downMarker = "-- +migrate Down"
)

// LoadFromDir scans a directory for migration files and returns them unsorted.
// Files that do not match a known naming pattern are skipped.
func LoadFromDir(dir string) ([]Migration, error) {
	ms, err := load(os.DirFS(dir), ".", func(name string) string {
		return filepath.Join(dir, name)
	})
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory %s: %w", dir, err)
	}

	return ms, nil
}

// LoadFromFS is LoadFromDir for an fs.FS such as an embed.FS.
func LoadFromFS(fsys fs.FS, root string) ([]Migration, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		root = "."
	}

	ms, err := load(fsys, root, func(name string) string {
		return path.Join(root, name)
	})
	if err != nil {
		return nil, fmt.Errorf("reading migrations from %s: %w", root, err)
	}

	return ms, nil
}

// migrationFile pairs the files that make up one migration.
type migrationFile struct {
	version  string
	name     string
	upFile   string
	downFile string
	single   bool
}

func load(fsys fs.FS, root string, display func(string) string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return nil, err
	}

	grouped := scanEntries(entries)

	keys := make([]string, 0, len(grouped))
	for k := range grouped {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	migrations := make([]Migration, 0, len(keys))

	for _, k := range keys {
		mf := grouped[k]
		if mf.upFile == "" {
			continue // orphan .down.sql
		}

		m, err := readMigration(fsys, root, mf, display)
		if err != nil {
			return nil, err
		}

		migrations = append(migrations, m)
	}

	return migrations, nil
}

// scanEntries groups directory entries by version and name.
func scanEntries(entries []fs.DirEntry) map[string]*migrationFile {
	grouped := make(map[string]*migrationFile)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		if matches := pairedPattern.FindStringSubmatch(entry.Name()); matches != nil {
			version := matches[1]
			if version == "" {
				version = matches[2]
			}

			key := version + "_" + matches[3]

			mf, ok := grouped[key]
			if !ok {
				mf = &migrationFile{version: version, name: matches[3]}
				grouped[key] = mf
			}

			if matches[4] == "up" {
				mf.upFile = entry.Name()
			} else {
				mf.downFile = entry.Name()
			}

			continue
		}

		if matches := singlePattern.FindStringSubmatch(entry.Name()); matches != nil {
			grouped[entry.Name()] = &migrationFile{
				version: matches[1],
				name:    matches[2],
				upFile:  entry.Name(),
				single:  true,
			}
		}
	}

	return grouped
}

func readMigration(fsys fs.FS, root string, mf *migrationFile, display func(string) string) (Migration, error) {
	upData, err := fs.ReadFile(fsys, path.Join(root, mf.upFile))
	if err != nil {
		return Migration{}, fmt.Errorf("reading migration file %s: %w", display(mf.upFile), err)
	}

	var upSQL, downSQL string

	if mf.single {
		upSQL, downSQL = SplitSections(string(upData))
	} else {
		upSQL = strings.TrimSpace(string(upData))
	}

	if mf.downFile != "" {
		downData, err := fs.ReadFile(fsys, path.Join(root, mf.downFile))
		if err != nil {
			return Migration{}, fmt.Errorf("reading migration file %s: %w", display(mf.downFile), err)
		}

		downSQL = strings.TrimSpace(string(downData))
	}

	return Migration{
		Version:  mf.version,
		Name:     mf.name,
		UpSQL:    upSQL,
		DownSQL:  downSQL,
		Checksum: ComputeChecksum(upSQL),
		FilePath: display(mf.upFile),
	}, nil
}

// SplitSections separates a single-file migration into its up and down
// bodies. Content without an up marker is treated as up-only.
func SplitSections(content string) (up, down string) {
	upIdx := strings.Index(content, upMarker)
	downIdx := strings.Index(content, downMarker)

	switch {
	case upIdx < 0 && downIdx < 0:
		return strings.TrimSpace(content), ""
	case upIdx < 0:
		return strings.TrimSpace(content[:downIdx]), strings.TrimSpace(content[downIdx+len(downMarker):])
	case downIdx < 0:
		return strings.TrimSpace(content[upIdx+len(upMarker):]), ""
	case downIdx < upIdx:
		return strings.TrimSpace(content[upIdx+len(upMarker):]),
			strings.TrimSpace(content[downIdx+len(downMarker) : upIdx])
	default:
		return strings.TrimSpace(content[upIdx+len(upMarker) : downIdx]),
			strings.TrimSpace(content[downIdx+len(downMarker):])
	}
}
