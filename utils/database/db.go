package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS servers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		guild_id TEXT NOT NULL UNIQUE,
		api_key TEXT NOT NULL DEFAULT ''
	);`,
	`CREATE TABLE IF NOT EXISTS sauce_cache (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url_hash TEXT NOT NULL UNIQUE,
		created_at INTEGER NOT NULL,
		header TEXT NOT NULL,
		result TEXT NOT NULL,
		result_variant TEXT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_sauce_cache_created_at ON sauce_cache (created_at);`,
	`CREATE TABLE IF NOT EXISTS sauce_queries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		guild_id TEXT NOT NULL,
		member_id TEXT NOT NULL,
		url_hash TEXT NOT NULL,
		queried_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_sauce_queries_member ON sauce_queries (member_id, queried_at);`,
	`CREATE TABLE IF NOT EXISTS guild_banlist (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		guild_id TEXT NOT NULL UNIQUE,
		banned_at INTEGER NOT NULL,
		reason TEXT
	);`,
}

// Init opens the sqlite database at dbPath and ensures all tables exist.
func Init(dbPath string) (*sqlx.DB, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	return db, nil
}
