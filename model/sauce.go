package model

import "database/sql"

// ServerKey is a guild's registered SauceNao API key. Presence exempts the
// guild from the shared guild cooldown.
type ServerKey struct {
	ID      int64  `db:"id"`
	GuildID string `db:"guild_id"`
	APIKey  string `db:"api_key"`
}

// SauceCacheEntry is a cached provider match keyed by reference hash.
// Header and Result hold the provider's JSON as received.
type SauceCacheEntry struct {
	ID            int64  `db:"id"`
	URLHash       string `db:"url_hash"`
	CreatedAt     int64  `db:"created_at"`
	Header        string `db:"header"`
	Result        string `db:"result"`
	ResultVariant string `db:"result_variant"`
}

// SauceQuery is one logged lookup attempt. Rows are append-only.
type SauceQuery struct {
	ID        int64  `db:"id"`
	GuildID   string `db:"guild_id"`
	MemberID  string `db:"member_id"`
	URLHash   string `db:"url_hash"`
	QueriedAt int64  `db:"queried_at"`
}

// GuildBan marks a guild as banned from using the bot.
type GuildBan struct {
	ID       int64          `db:"id"`
	GuildID  string         `db:"guild_id"`
	BannedAt int64          `db:"banned_at"`
	Reason   sql.NullString `db:"reason"`
}
