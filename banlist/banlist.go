// Package banlist is the per-guild deny list consulted before any guild
// interaction and whenever the bot joins a guild.
package banlist

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"saucebot/model"
	"saucebot/utils/database"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

var ErrBanned = errors.New("guild is banned")

// MaxReasonLength caps stored ban reasons, in runes.
const MaxReasonLength = 512

type Gate struct {
	db  *sqlx.DB
	log zerolog.Logger
	now func() time.Time
}

func New(db *sqlx.DB, logger zerolog.Logger) *Gate {
	return &Gate{
		db:  db,
		log: logger.With().Str("component", "banlist").Logger(),
		now: time.Now,
	}
}

// IsBanned reports whether the guild is on the banlist. Callers must treat an
// error as fatal for the triggering request.
func (g *Gate) IsBanned(ctx context.Context, guildID string) (bool, error) {
	ban, err := database.GetGuildBan(ctx, g.db, guildID)
	if err != nil {
		return false, err
	}
	return ban != nil, nil
}

// Check returns ErrBanned for a banned guild.
func (g *Gate) Check(ctx context.Context, guildID string) error {
	banned, err := g.IsBanned(ctx, guildID)
	if err != nil {
		return err
	}
	if banned {
		return ErrBanned
	}
	return nil
}

// Ban adds the guild to the banlist. It reports false if the guild was
// already banned, in which case the original entry is kept.
func (g *Gate) Ban(ctx context.Context, guildID, reason string) (bool, error) {
	g.log.Warn().Str("guild_id", guildID).Str("reason", reason).Msg("Banning guild")

	ban := model.GuildBan{GuildID: guildID, BannedAt: g.now().Unix()}
	if reason = truncate(reason, MaxReasonLength); reason != "" {
		ban.Reason = sql.NullString{String: reason, Valid: true}
	}
	return database.AddGuildBan(ctx, g.db, ban)
}

// Unban removes the guild from the banlist. It reports false, without
// touching the store, if the guild was not banned.
func (g *Gate) Unban(ctx context.Context, guildID string) (bool, error) {
	banned, err := g.IsBanned(ctx, guildID)
	if err != nil || !banned {
		return false, err
	}
	g.log.Warn().Str("guild_id", guildID).Msg("Removing guild from the banlist")
	return database.DeleteGuildBan(ctx, g.db, guildID)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
