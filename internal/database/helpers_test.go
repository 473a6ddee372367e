package database

import (
	"database/sql"
	"testing"
)

type testDB struct {
	*sql.DB
}

func (db *testDB) MustExec(t *testing.T, query string, args ...any) {
	t.Helper()
	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("executing %q: %v", query, err)
	}
}

func (db *testDB) migrationCount(t *testing.T) int {
	t.Helper()
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("querying migrations: %v", err)
	}
	return count
}
