// Package apikeys stores per-guild SauceNao API keys.
package apikeys

import (
	"context"
	"regexp"

	"saucebot/utils"
	"saucebot/utils/database"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

var keyShape = regexp.MustCompile(`^[a-zA-Z0-9]{40}$`)

// ValidShape reports whether key looks like a SauceNao API key.
func ValidShape(key string) bool {
	return keyShape.MatchString(key)
}

type Registry struct {
	db  *sqlx.DB
	log zerolog.Logger
}

func New(db *sqlx.DB, logger zerolog.Logger) *Registry {
	return &Registry{db: db, log: logger.With().Str("component", "apikeys").Logger()}
}

// Lookup returns the guild's registered key, or "" when it has none.
func (r *Registry) Lookup(ctx context.Context, guildID string) (string, error) {
	return database.GetGuildAPIKey(ctx, r.db, guildID)
}

// Registered reports whether the guild holds a key registration.
func (r *Registry) Registered(ctx context.Context, guildID string) (bool, error) {
	key, err := r.Lookup(ctx, guildID)
	return key != "", err
}

// Register replaces the guild's key registration.
func (r *Registry) Register(ctx context.Context, guildID, key string) error {
	r.log.Info().Str("guild_id", guildID).Str("api_key", utils.MaskKey(key)).Msg("Registering API key")
	return database.RegisterGuildAPIKey(ctx, r.db, guildID, key)
}
