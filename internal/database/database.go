package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Pragmas are passed in the DSN so every pooled connection gets them.
const connectionPragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

func Open(databasePath string) (*sql.DB, error) {
	inMemory := databasePath == ":memory:"

	if !inMemory {
		directory := filepath.Dir(databasePath)
		if err := os.MkdirAll(directory, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	database, err := sql.Open("sqlite", databasePath+"?"+connectionPragmas)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Every new connection to :memory: is a separate empty database.
	if inMemory {
		database.SetMaxOpenConns(1)
	}

	if err := database.Ping(); err != nil {
		database.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	var foreignKeys int
	if err := database.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys); err != nil {
		database.Close()
		return nil, fmt.Errorf("checking foreign keys: %w", err)
	}
	if foreignKeys != 1 {
		database.Close()
		return nil, fmt.Errorf("foreign keys are not enabled")
	}

	return database, nil
}
