package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// GetGuildAPIKey returns the API key registered for a guild, or "" if none is.
func GetGuildAPIKey(ctx context.Context, db *sqlx.DB, guildID string) (string, error) {
	var key string
	err := db.GetContext(ctx, &key, "SELECT api_key FROM servers WHERE guild_id = ?", guildID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get api key for guild %s: %w", guildID, err)
	}
	return key, nil
}

// RegisterGuildAPIKey replaces any existing registration for the guild.
func RegisterGuildAPIKey(ctx context.Context, db *sqlx.DB, guildID, apiKey string) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM servers WHERE guild_id = ?", guildID); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to remove previous api key for guild %s: %w", guildID, err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO servers (guild_id, api_key) VALUES (?, ?)", guildID, apiKey); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to register api key for guild %s: %w", guildID, err)
	}

	return tx.Commit()
}

// CountRegisteredGuilds returns the number of guilds with their own API key.
func CountRegisteredGuilds(ctx context.Context, db *sqlx.DB) (int, error) {
	var count int
	if err := db.GetContext(ctx, &count, "SELECT COUNT(*) FROM servers WHERE api_key != ''"); err != nil {
		return 0, fmt.Errorf("failed to count registered guilds: %w", err)
	}
	return count, nil
}
