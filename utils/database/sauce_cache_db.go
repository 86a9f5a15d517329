package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"saucebot/model"

	"github.com/jmoiron/sqlx"
)

// GetSauceCacheEntry returns the cache entry for a reference hash, or nil if none exists.
func GetSauceCacheEntry(ctx context.Context, db *sqlx.DB, urlHash string) (*model.SauceCacheEntry, error) {
	var entry model.SauceCacheEntry
	err := db.GetContext(ctx, &entry, "SELECT * FROM sauce_cache WHERE url_hash = ?", urlHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sauce cache entry %s: %w", urlHash, err)
	}
	return &entry, nil
}

// ReplaceSauceCacheEntry deletes any entry with the same hash and inserts the new one.
func ReplaceSauceCacheEntry(ctx context.Context, db *sqlx.DB, entry model.SauceCacheEntry) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM sauce_cache WHERE url_hash = ?", entry.URLHash); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete sauce cache entry %s: %w", entry.URLHash, err)
	}

	query := `INSERT INTO sauce_cache (url_hash, created_at, header, result, result_variant)
			  VALUES (:url_hash, :created_at, :header, :result, :result_variant)`
	if _, err := tx.NamedExecContext(ctx, query, entry); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to insert sauce cache entry %s: %w", entry.URLHash, err)
	}

	return tx.Commit()
}

// PurgeSauceCache deletes entries created strictly before the given epoch second.
func PurgeSauceCache(ctx context.Context, db *sqlx.DB, before int64) (int64, error) {
	result, err := db.ExecContext(ctx, "DELETE FROM sauce_cache WHERE created_at < ?", before)
	if err != nil {
		return 0, fmt.Errorf("failed to purge sauce cache: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected for sauce cache purge: %w", err)
	}
	return rowsAffected, nil
}

// CountSauceCacheEntries returns the number of cached results.
func CountSauceCacheEntries(ctx context.Context, db *sqlx.DB) (int, error) {
	var count int
	if err := db.GetContext(ctx, &count, "SELECT COUNT(*) FROM sauce_cache"); err != nil {
		return 0, fmt.Errorf("failed to count sauce cache entries: %w", err)
	}
	return count, nil
}
