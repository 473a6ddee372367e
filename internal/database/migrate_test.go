package database

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func openMigrated(t *testing.T) *testDB {
	t.Helper()

	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := Migrate(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	return &testDB{db}
}

func TestMigrate_RecordsEveryFile(t *testing.T) {
	db := openMigrated(t)

	want, err := upMigrationFileCount()
	if err != nil {
		t.Fatalf("counting migration files: %v", err)
	}
	if got := db.migrationCount(t); got != want {
		t.Errorf("expected %d migrations, got %d", want, got)
	}
}

func TestMigrate_SecondRunIsNoop(t *testing.T) {
	db := openMigrated(t)
	before := db.migrationCount(t)

	if err := Migrate(db.DB); err != nil {
		t.Fatalf("second migration should not fail: %v", err)
	}
	if after := db.migrationCount(t); after != before {
		t.Errorf("expected %d migrations after rerun, got %d", before, after)
	}
}

func TestMigrate_CreatesAllTables(t *testing.T) {
	db := openMigrated(t)

	expectedTables := []string{
		"households", "api_tokens", "units", "aisles", "tags", "ingredients",
		"recipes", "recipe_tags", "recipe_ingredients", "pantry_items",
		"week_plans", "week_plan_recipes", "shopping_items", "transition_items",
		"recipe_pools", "recipe_pool_items",
	}
	for _, table := range expectedTables {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table '%s' not found: %v", table, err)
		}
	}
}

func TestMigrate_DayIndexCheck(t *testing.T) {
	db := openMigrated(t)

	db.MustExec(t, `INSERT INTO households (id, name, created_at) VALUES ('h1', 'Home', CURRENT_TIMESTAMP)`)
	db.MustExec(t, `INSERT INTO recipes (id, household_id, title, created_at, updated_at) VALUES ('r1', 'h1', 'Soup', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`)
	db.MustExec(t, `INSERT INTO week_plans (id, household_id, week_start, created_at, updated_at) VALUES ('w1', 'h1', '2025-01-06', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`)

	_, err := db.Exec(`INSERT INTO week_plan_recipes (id, week_plan_id, recipe_id, day_index, meal_slot) VALUES ('a1', 'w1', 'r1', 7, 'dinner')`)
	if err == nil {
		t.Fatal("expected day_index 7 to be rejected")
	}
}

func upMigrationFileCount() (int, error) {
	_, thisFile, _, _ := runtime.Caller(0)
	entries, err := os.ReadDir(filepath.Join(filepath.Dir(thisFile), "migrations"))
	if err != nil {
		return 0, err
	}
	count := 0
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".up.sql") {
			count++
		}
	}
	return count, nil
}
