package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"saucebot/model"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

var (
	ErrMissingToken    = errors.New("BOT_TOKEN is not set")
	ErrInvalidDuration = errors.New("duration must be positive")
)

const envPrefix = "SAUCEBOT"

func setDefaults(v *viper.Viper) {
	v.SetDefault("bot_token", "")
	v.SetDefault("command_prefixes", []string{"?"})
	v.SetDefault("owner_ids", []string{})
	v.SetDefault("log_channel_id", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("database_path", "./data/saucebot.db")
	v.SetDefault("language", "english")
	v.SetDefault("sentry_dsn", "")
	v.SetDefault("metrics_addr", "")

	v.SetDefault("saucenao.api_key", "")
	v.SetDefault("saucenao.min_similarity", 50.0)
	v.SetDefault("saucenao.guild_api_limit", 10000)
	v.SetDefault("saucenao.guild_api_window", 24*time.Hour)
	v.SetDefault("saucenao.member_api_limit", 0)
	v.SetDefault("saucenao.member_api_window", 5*time.Minute)

	v.SetDefault("tracemoe.enabled", true)
	v.SetDefault("tracemoe.api_key", "")

	v.SetDefault("cache.ttl", 24*time.Hour)
	v.SetDefault("cache.purge_interval", 6*time.Hour)

	v.SetDefault("stats.refresh_interval", 15*time.Minute)
}

// Load reads configuration from .env, an optional YAML file and the
// environment, in increasing priority. An empty configPath looks for
// config.yaml in the working directory. Environment variables use the
// SAUCEBOT_ prefix with dots replaced by underscores; BOT_TOKEN and
// LOG_CHANNEL_ID are also accepted unprefixed.
func Load(configPath string) (*model.Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, relying on environment variables")
	}

	cfg, err := load(configPath)
	if err != nil {
		return nil, err
	}
	if cfg.BotToken == "" {
		return nil, ErrMissingToken
	}
	return cfg, nil
}

// LoadOffline is Load without the token requirement, for maintenance
// commands that never connect to Discord.
func LoadOffline(configPath string) (*model.Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, relying on environment variables")
	}
	return load(configPath)
}

func load(configPath string) (*model.Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range map[string]string{
		"bot_token":      "BOT_TOKEN",
		"log_channel_id": "LOG_CHANNEL_ID",
		"sentry_dsn":     "SENTRY_DSN",
	} {
		if err := v.BindEnv(key, envPrefix+"_"+env, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if configPath == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			configPath = "config.yaml"
		}
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	var cfg model.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.CommandPrefixes = cleanList(cfg.CommandPrefixes)
	if len(cfg.CommandPrefixes) == 0 {
		cfg.CommandPrefixes = []string{"?"}
	}
	cfg.OwnerIDs = cleanList(cfg.OwnerIDs)

	if err := checkDurations(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// checkDurations rejects windows and intervals that would stall a ticker or
// make a rate limit meaningless.
func checkDurations(cfg *model.Config) error {
	for _, d := range []struct {
		key   string
		value time.Duration
	}{
		{"saucenao.guild_api_window", cfg.SauceNao.GuildAPIWindow},
		{"saucenao.member_api_window", cfg.SauceNao.MemberAPIWindow},
		{"cache.ttl", cfg.Cache.TTL},
		{"cache.purge_interval", cfg.Cache.PurgeInterval},
		{"stats.refresh_interval", cfg.Stats.RefreshInterval},
	} {
		if d.value <= 0 {
			return fmt.Errorf("%w: %s is %s", ErrInvalidDuration, d.key, d.value)
		}
	}
	return nil
}

func cleanList(values []string) []string {
	out := values[:0:0]
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
