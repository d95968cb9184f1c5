package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/pressly/goose/v3"
)

const (
	DefaultDir = "pkg/migrate/migrations"
	dialect    = "postgres"
)

// Command is a goose command that needs a live database.
type Command string

const (
	CommandUp     Command = "up"
	CommandDown   Command = "down"
	CommandStatus Command = "status"
)

// ParseCommand accepts only the commands the migrate binary exposes against a database.
func ParseCommand(raw string) (Command, error) {
	switch cmd := Command(raw); cmd {
	case CommandUp, CommandDown, CommandStatus:
		return cmd, nil
	default:
		return "", fmt.Errorf("unsupported goose command %q", raw)
	}
}

// Run executes cmd against db using the migrations in dir.
func Run(ctx context.Context, db *sql.DB, dir string, cmd Command) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	if _, err := ParseCommand(string(cmd)); err != nil {
		return err
	}
	if cmd == CommandUp {
		if _, err := Scan(dir); err != nil {
			return fmt.Errorf("invalid migrations: %w", err)
		}
	}
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.RunContext(ctx, string(cmd), db, dir); err != nil {
		return fmt.Errorf("goose %s: %w", cmd, err)
	}
	return nil
}

// MigrateToVersion moves the schema up or down to version, which must be 0 or
// one of the migrations in dir.
func MigrateToVersion(ctx context.Context, db *sql.DB, dir string, version string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	files, err := Scan(dir)
	if err != nil {
		return fmt.Errorf("invalid migrations: %w", err)
	}
	target, err := resolveTarget(files, version)
	if err != nil {
		return err
	}

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	current, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	switch {
	case current == target:
		return nil
	case current < target:
		if err := goose.UpToContext(ctx, db, dir, target); err != nil {
			return fmt.Errorf("goose up-to %d: %w", target, err)
		}
	default:
		if err := goose.DownToContext(ctx, db, dir, target); err != nil {
			return fmt.Errorf("goose down-to %d: %w", target, err)
		}
	}
	return nil
}

func resolveTarget(files []File, version string) (int64, error) {
	if version == "" {
		return 0, fmt.Errorf("target version is required")
	}
	target, err := strconv.ParseInt(version, 10, 64)
	if err != nil || target < 0 {
		return 0, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS or 0)", version)
	}
	if target == 0 {
		return 0, nil
	}
	for _, file := range files {
		if file.Version == target {
			return target, nil
		}
	}
	return 0, fmt.Errorf("no migration with version %d", target)
}
