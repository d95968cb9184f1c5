package migrate

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
)

//go:embed sqlite/schema.sql
var sqliteSchema string

// ApplySQLiteSchema creates every table on a sqlite database. Goose migrations
// target Postgres, so local sqlite runs and tests use this schema instead.
func ApplySQLiteSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	for _, stmt := range splitStatements(sqliteSchema) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply sqlite schema: %w", err)
		}
	}
	return nil
}

// splitStatements splits on semicolons that end a line, keeping trigger bodies intact.
func splitStatements(script string) []string {
	var (
		stmts   []string
		current strings.Builder
		inBody  bool
	)
	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
		upper := strings.ToUpper(trimmed)
		switch {
		case upper == "BEGIN":
			inBody = true
		case inBody && upper == "END;":
			inBody = false
			stmts = append(stmts, strings.TrimSpace(current.String()))
			current.Reset()
		case !inBody && strings.HasSuffix(trimmed, ";"):
			stmts = append(stmts, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	if rest := strings.TrimSpace(current.String()); rest != "" {
		stmts = append(stmts, rest)
	}
	return stmts
}
