package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/multierr"
)

var (
	fileNameRe    = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)
	createTableRe = regexp.MustCompile(`(?i)CREATE TABLE IF NOT EXISTS\s+([a-z0-9_]+)`)
)

// File is one goose migration on disk.
type File struct {
	Version int64
	Name    string
	Path    string
	Tables  []string
}

// Scan reads dir and returns its migrations ordered by version. Every problem
// found is reported, not only the first.
func Scan(dir string) ([]File, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}

	var (
		files []File
		errs  error
		seen  = map[int64]string{}
	)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		file, err := readFile(dir, e.Name())
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if prev, ok := seen[file.Version]; ok {
			errs = multierr.Append(errs, fmt.Errorf("duplicate migration version %d in %q and %q", file.Version, prev, e.Name()))
			continue
		}
		seen[file.Version] = e.Name()
		files = append(files, file)
	}
	if errs != nil {
		return nil, errs
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Version < files[j].Version })
	return files, nil
}

func readFile(dir, name string) (File, error) {
	m := fileNameRe.FindStringSubmatch(name)
	if m == nil {
		return File{}, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
	}
	version, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return File{}, fmt.Errorf("migration %q: %w", name, err)
	}

	path := filepath.Join(dir, name)
	body, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read file %q: %w", path, err)
	}
	up, down, ok := strings.Cut(string(body), "-- +goose Down")
	if !strings.Contains(up, "-- +goose Up") {
		return File{}, fmt.Errorf("migration %q missing \"-- +goose Up\"", name)
	}
	if !ok {
		return File{}, fmt.Errorf("migration %q missing \"-- +goose Down\"", name)
	}

	file := File{Version: version, Name: m[2], Path: path}
	for _, match := range createTableRe.FindAllStringSubmatch(up, -1) {
		table := strings.ToLower(match[1])
		if !strings.Contains(strings.ToLower(down), "drop table if exists "+table) {
			return File{}, fmt.Errorf("migration %q creates %s without dropping it on down", name, table)
		}
		file.Tables = append(file.Tables, table)
	}
	return file, nil
}

// ValidateDir checks migration names and goose annotations, and that every
// table the migrations create is mirrored in the embedded sqlite schema.
func ValidateDir(dir string) error {
	files, err := Scan(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no migrations found in %q", dir)
	}
	return checkMirror(files, sqliteSchema)
}

// checkMirror reports tables that exist on only one side of the postgres
// migrations and the sqlite schema used by local runs and tests.
func checkMirror(files []File, schema string) error {
	mirrored := map[string]bool{}
	for _, match := range createTableRe.FindAllStringSubmatch(schema, -1) {
		mirrored[strings.ToLower(match[1])] = false
	}
	if len(mirrored) == 0 {
		return nil
	}

	var errs error
	for _, file := range files {
		for _, table := range file.Tables {
			if _, ok := mirrored[table]; !ok {
				errs = multierr.Append(errs, fmt.Errorf("table %s from migration %d is missing in the sqlite schema", table, file.Version))
				continue
			}
			mirrored[table] = true
		}
	}
	for table, found := range mirrored {
		if !found {
			errs = multierr.Append(errs, fmt.Errorf("sqlite schema defines %s but no migration creates it", table))
		}
	}
	return errs
}
