package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"saucebot/model"

	"github.com/jmoiron/sqlx"
)

// GetGuildBan returns the ban row for a guild, or nil if it is not banned.
func GetGuildBan(ctx context.Context, db *sqlx.DB, guildID string) (*model.GuildBan, error) {
	var ban model.GuildBan
	err := db.GetContext(ctx, &ban, "SELECT * FROM guild_banlist WHERE guild_id = ?", guildID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ban for guild %s: %w", guildID, err)
	}
	return &ban, nil
}

// AddGuildBan inserts a ban row. It reports false if the guild was already banned.
func AddGuildBan(ctx context.Context, db *sqlx.DB, ban model.GuildBan) (bool, error) {
	query := `INSERT OR IGNORE INTO guild_banlist (guild_id, banned_at, reason)
			  VALUES (:guild_id, :banned_at, :reason)`
	result, err := db.NamedExecContext(ctx, query, ban)
	if err != nil {
		return false, fmt.Errorf("failed to ban guild %s: %w", ban.GuildID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected for guild ban %s: %w", ban.GuildID, err)
	}
	return rowsAffected > 0, nil
}

// DeleteGuildBan removes a guild's ban. It reports false if no ban existed.
func DeleteGuildBan(ctx context.Context, db *sqlx.DB, guildID string) (bool, error) {
	result, err := db.ExecContext(ctx, "DELETE FROM guild_banlist WHERE guild_id = ?", guildID)
	if err != nil {
		return false, fmt.Errorf("failed to unban guild %s: %w", guildID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected for guild unban %s: %w", guildID, err)
	}
	return rowsAffected > 0, nil
}
