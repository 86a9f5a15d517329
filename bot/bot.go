package bot

import (
	"fmt"
	"sync/atomic"
	"time"

	"saucebot/apikeys"
	"saucebot/banlist"
	"saucebot/cache"
	"saucebot/lang"
	"saucebot/lookup"
	"saucebot/model"
	"saucebot/ratelimit"
	"saucebot/resolver"
	"saucebot/saucenao"
	"saucebot/stats"
	"saucebot/tracemoe"
	"saucebot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

const (
	apiKeyBurst  = 5
	apiKeyPeriod = 30 * time.Minute
)

type Bot struct {
	Session *discordgo.Session
	DB      *sqlx.DB
	Log     zerolog.Logger
	Lang    *lang.Catalogue

	Bans          *banlist.Gate
	Keys          *apikeys.Registry
	Cache         *cache.Cache
	Queries       *cache.QueryLog
	Resolver      *resolver.Resolver
	Lookup        *lookup.Orchestrator
	SauceNao      *saucenao.Client
	Stats         *stats.Counters
	GuildCooldown *ratelimit.GuildCooldown
	AdminCooldown *ratelimit.AdminCooldown

	config    atomic.Value // *model.Config
	StartedAt time.Time
}

func (b *Bot) GetConfig() *model.Config {
	return b.config.Load().(*model.Config)
}

func (b *Bot) GetSession() *discordgo.Session {
	return b.Session
}

// New builds the session and every engine component from cfg.
func New(cfg *model.Config, db *sqlx.DB, logger zerolog.Logger) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, err
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent
	dg.StateEnabled = true

	catalogue, err := lang.Load(cfg.Language, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load language catalogue: %w", err)
	}

	httpClient := utils.NewHTTPClient(60 * time.Second)
	queries := cache.NewQueryLog(db)
	keys := apikeys.New(db, logger)
	results := cache.New(db, logger)
	sauceNao := saucenao.NewClient(httpClient)

	var previews lookup.PreviewProvider
	if cfg.TraceMoe.Enabled {
		previews = tracemoe.NewClient(httpClient, cfg.TraceMoe.APIKey)
	}

	b := &Bot{
		Session:  dg,
		DB:       db,
		Log:      logger,
		Lang:     catalogue,
		Bans:     banlist.New(db, logger),
		Keys:     keys,
		Cache:    results,
		Queries:  queries,
		SauceNao: sauceNao,
		Resolver: resolver.New(logger, func(candidates []string) string {
			return selectionPrompt(catalogue, candidates)
		}),
		Lookup: lookup.New(
			sauceNao,
			previews,
			results,
			queries,
			keys,
			ratelimit.NewMemberQuota(queries, cfg.SauceNao.MemberAPILimit, cfg.SauceNao.MemberAPIWindow),
			lookup.Options{DefaultAPIKey: cfg.SauceNao.APIKey, MinSimilarity: cfg.SauceNao.MinSimilarity},
			logger,
		),
		GuildCooldown: ratelimit.NewGuildCooldown(cfg.SauceNao.GuildAPILimit, cfg.SauceNao.GuildAPIWindow),
		AdminCooldown: ratelimit.NewAdminCooldown(apiKeyBurst, apiKeyPeriod),
	}
	b.Stats = stats.New(db, b, cfg.Stats.RefreshInterval)
	b.config.Store(cfg)
	return b, nil
}

// GuildCount is the number of guilds in the session state.
func (b *Bot) GuildCount() int {
	st := b.Session.State
	st.RLock()
	defer st.RUnlock()
	return len(st.Guilds)
}

func (b *Bot) Close() {
	b.Log.Info().Msg("Gracefully shutting down.")
	if err := b.Session.Close(); err != nil {
		b.Log.Warn().Err(err).Msg("Error closing Discord session")
	}
}

func selectionPrompt(c *lang.Catalogue, candidates []string) string {
	text := c.Get("Sauce", "select_image", nil)
	for i := range candidates {
		emoji, err := utils.KeycapEmoji(i + 1)
		if err != nil {
			break
		}
		text += fmt.Sprintf("\n%s %s", emoji, utils.Truncate(candidates[i], 100))
	}
	return text
}
