package database

import (
	"context"
	"fmt"

	"saucebot/model"

	"github.com/jmoiron/sqlx"
)

// AddSauceQuery appends a query log row.
func AddSauceQuery(ctx context.Context, db *sqlx.DB, q model.SauceQuery) error {
	query := `INSERT INTO sauce_queries (guild_id, member_id, url_hash, queried_at)
			  VALUES (:guild_id, :member_id, :url_hash, :queried_at)`
	if _, err := db.NamedExecContext(ctx, query, q); err != nil {
		return fmt.Errorf("failed to insert sauce query: %w", err)
	}
	return nil
}

// CountMemberQueriesSince counts a member's queries logged strictly after the given epoch second.
func CountMemberQueriesSince(ctx context.Context, db *sqlx.DB, memberID string, since int64) (int, error) {
	var count int
	query := "SELECT COUNT(*) FROM sauce_queries WHERE member_id = ? AND queried_at > ?"
	if err := db.GetContext(ctx, &count, query, memberID, since); err != nil {
		return 0, fmt.Errorf("failed to count queries for member %s: %w", memberID, err)
	}
	return count, nil
}

// CountMemberQueries returns a member's lifetime query count.
func CountMemberQueries(ctx context.Context, db *sqlx.DB, memberID string) (int, error) {
	var count int
	if err := db.GetContext(ctx, &count, "SELECT COUNT(*) FROM sauce_queries WHERE member_id = ?", memberID); err != nil {
		return 0, fmt.Errorf("failed to count queries for member %s: %w", memberID, err)
	}
	return count, nil
}

// CountSauceQueries returns the total number of logged queries.
func CountSauceQueries(ctx context.Context, db *sqlx.DB) (int, error) {
	var count int
	if err := db.GetContext(ctx, &count, "SELECT COUNT(*) FROM sauce_queries"); err != nil {
		return 0, fmt.Errorf("failed to count sauce queries: %w", err)
	}
	return count, nil
}

// CountDistinctMembers returns how many members have ever queried.
func CountDistinctMembers(ctx context.Context, db *sqlx.DB) (int, error) {
	var count int
	if err := db.GetContext(ctx, &count, "SELECT COUNT(DISTINCT member_id) FROM sauce_queries"); err != nil {
		return 0, fmt.Errorf("failed to count distinct members: %w", err)
	}
	return count, nil
}
