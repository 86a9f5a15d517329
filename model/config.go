package model

import "time"

// Config is the process configuration, see config.Load for sources and defaults.
type Config struct {
	BotToken        string   `mapstructure:"bot_token"`
	CommandPrefixes []string `mapstructure:"command_prefixes"`
	OwnerIDs        []string `mapstructure:"owner_ids"`
	LogChannelID    string   `mapstructure:"log_channel_id"`
	LogLevel        string   `mapstructure:"log_level"`
	LogFormat       string   `mapstructure:"log_format"`
	DatabasePath    string   `mapstructure:"database_path"`
	Language        string   `mapstructure:"language"`
	SentryDSN       string   `mapstructure:"sentry_dsn"`
	MetricsAddr     string   `mapstructure:"metrics_addr"`

	SauceNao SauceNaoConfig `mapstructure:"saucenao"`
	TraceMoe TraceMoeConfig `mapstructure:"tracemoe"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Stats    StatsConfig    `mapstructure:"stats"`
}

type SauceNaoConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	MinSimilarity   float64       `mapstructure:"min_similarity"`
	GuildAPILimit   int           `mapstructure:"guild_api_limit"`
	GuildAPIWindow  time.Duration `mapstructure:"guild_api_window"`
	MemberAPILimit  int           `mapstructure:"member_api_limit"`
	MemberAPIWindow time.Duration `mapstructure:"member_api_window"`
}

type TraceMoeConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

type CacheConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	PurgeInterval time.Duration `mapstructure:"purge_interval"`
}

type StatsConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// IsOwner reports whether userID is one of the configured bot owners.
func (c *Config) IsOwner(userID string) bool {
	for _, id := range c.OwnerIDs {
		if id == userID {
			return true
		}
	}
	return false
}
