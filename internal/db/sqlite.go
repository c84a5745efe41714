package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// InitSQLite opens the sqlite database holding the airport directory.
// The directory ships with the app and is read-mostly; one connection
// is enough and avoids sqlite writer contention during imports.
func InitSQLite(path string) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", path)
	sdb, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db %s: %w", path, err)
	}
	sdb.SetMaxOpenConns(1)
	return sdb, nil
}
