package migrate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestMigrationsDirIsValid(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestLedgerMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_seller_credit_ledger.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no ledger migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS seller_credits",
		"CREATE TABLE IF NOT EXISTS credit_movements",
		"CHECK (balance_after_cents - balance_before_cents = amount_cents)",
		"CHECK (max_cart_percentage >= 0 AND max_cart_percentage < 100)",
		"BEFORE UPDATE OR DELETE ON credit_movements",
		"DROP TABLE IF EXISTS credit_movements",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestApplySQLiteSchemaEnforcesLedgerRules(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:migrate_schema_test?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	ctx := context.Background()
	if err := ApplySQLiteSchema(ctx, sqlDB); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	// idempotent
	if err := ApplySQLiteSchema(ctx, sqlDB); err != nil {
		t.Fatalf("re-apply schema: %v", err)
	}

	if _, err := sqlDB.Exec(`INSERT INTO seller_credits (seller_id, credit_limit_cents, balance_debt_cents, max_cart_percentage, active, created_at, updated_at)
		VALUES ('s1', 1000, 0, 50, true, datetime('now'), datetime('now'))`); err != nil {
		t.Fatalf("insert account: %v", err)
	}
	if _, err := sqlDB.Exec(`INSERT INTO credit_movements (id, seller_id, type, amount_cents, balance_before_cents, balance_after_cents, created_at)
		VALUES ('m1', 's1', 'purchase', 100, 0, 90, datetime('now'))`); err == nil {
		t.Fatal("expected balance chain check to reject movement")
	}
	if _, err := sqlDB.Exec(`INSERT INTO credit_movements (id, seller_id, type, amount_cents, balance_before_cents, balance_after_cents, created_at)
		VALUES ('m2', 's1', 'purchase', 100, 0, 100, datetime('now'))`); err != nil {
		t.Fatalf("insert movement: %v", err)
	}
	if _, err := sqlDB.Exec(`UPDATE credit_movements SET amount_cents = 5 WHERE id = 'm2'`); err == nil {
		t.Fatal("expected append-only trigger to reject update")
	}
	if _, err := sqlDB.Exec(`DELETE FROM credit_movements WHERE id = 'm2'`); err == nil {
		t.Fatal("expected append-only trigger to reject delete")
	}
}

func TestSplitStatementsKeepsTriggerBodies(t *testing.T) {
	stmts := splitStatements("CREATE TABLE a (id int);\nCREATE TRIGGER t BEFORE DELETE ON a\nBEGIN\n  SELECT RAISE(ABORT, 'no');\nEND;\n")
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(stmts), stmts)
	}
	if !strings.HasSuffix(stmts[1], "END;") {
		t.Fatalf("trigger body split incorrectly: %q", stmts[1])
	}
}

func TestCreateSQLMigrationWritesGooseTemplate(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2026, 3, 1, 9, 5, 0, 0, time.UTC)

	path, err := createSQLMigrationAt(dir, " Add Refund Index! ", at)
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if filepath.Base(path) != "20260301090500_add_refund_index.sql" {
		t.Fatalf("unexpected file name %s", filepath.Base(path))
	}
	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	if !strings.Contains(string(body), "-- +goose Up") || !strings.Contains(string(body), "-- +goose Down") {
		t.Fatalf("missing goose annotations:\n%s", body)
	}
	files, err := Scan(dir)
	if err != nil {
		t.Fatalf("generated migration does not validate: %v", err)
	}
	if len(files) != 1 || files[0].Version != 20260301090500 || files[0].Name != "add_refund_index" {
		t.Fatalf("unexpected scan result %+v", files)
	}

	if _, err := createSQLMigrationAt(dir, "add refund index", at); err == nil {
		t.Fatalf("expected duplicate migration to fail")
	}
	if _, err := createSQLMigrationAt(dir, "!!!", at); err == nil {
		t.Fatalf("expected empty slug to fail")
	}
}
