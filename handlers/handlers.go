package handlers

import (
	"context"
	"errors"
	"time"

	"saucebot/banlist"
	"saucebot/bot"
	"saucebot/commands"
	"saucebot/metrics"
	"saucebot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// commandTimeout bounds a single command, selection prompts included.
const commandTimeout = 3 * time.Minute

type commandFunc func(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate, inv *commands.Invocation)

func Register(b *bot.Bot) {
	handlers := commandHandlers(b)

	b.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.Log.Info().Str("user", r.User.Username).Str("user_id", r.User.ID).Msg("Logged in")
	})
	b.Session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		dispatch(b, handlers, s, m)
	})
	b.Session.AddHandler(func(s *discordgo.Session, g *discordgo.GuildCreate) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		refuseBannedGuild(ctx, b, s, g.Guild)
	})
}

func commandHandlers(b *bot.Bot) map[*commands.Command]commandFunc {
	return map[*commands.Command]commandFunc{
		commands.Sauce: func(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate, inv *commands.Invocation) {
			handleSauce(ctx, b, s, m, inv)
		},
		commands.APIKey: func(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate, inv *commands.Invocation) {
			handleAPIKey(ctx, b, s, m, inv)
		},
		commands.BanGuild: func(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate, inv *commands.Invocation) {
			handleBanGuild(ctx, b, s, m, inv)
		},
		commands.UnbanGuild: func(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate, inv *commands.Invocation) {
			handleUnbanGuild(ctx, b, s, m, inv)
		},
		commands.Ping: func(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate, _ *commands.Invocation) {
			handlePing(ctx, b, s, m)
		},
		commands.Info: func(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate, _ *commands.Invocation) {
			handleInfo(ctx, b, s, m)
		},
		commands.Stats: func(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate, _ *commands.Invocation) {
			SystemInfoHandler(ctx, b, s, m)
		},
	}
}

func dispatch(b *bot.Bot, handlers map[*commands.Command]commandFunc, s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	cfg := b.GetConfig()
	inv, ok := commands.Parse(m.Content, cfg.CommandPrefixes)
	if !ok {
		return
	}
	h, ok := handlers[inv.Command]
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	log := b.Log.With().Str("command", inv.Command.Name).Str("guild_id", m.GuildID).Str("member_id", m.Author.ID).Logger()
	ctx = log.WithContext(ctx)

	if m.GuildID == "" {
		if inv.Command.GuildOnly {
			return
		}
	} else if err := b.Bans.Check(ctx, m.GuildID); err != nil {
		if errors.Is(err, banlist.ErrBanned) {
			log.Warn().Msg("Ignoring command from a banned guild")
			return
		}
		reportUnexpected(ctx, b, s, m, err)
		return
	}

	if !authorized(b, s, m, inv.Command.Privilege) {
		log.Info().Msg("Refusing command for missing privileges")
		replyError(ctx, b, s, m, b.Lang.Get("Global", "missing_permissions", nil))
		return
	}

	h(ctx, s, m, inv)
}

func authorized(b *bot.Bot, s *discordgo.Session, m *discordgo.MessageCreate, p commands.Privilege) bool {
	switch p {
	case commands.Owner:
		return b.GetConfig().IsOwner(m.Author.ID)
	case commands.Administrator:
		if m.GuildID == "" {
			return false
		}
		perms, err := s.UserChannelPermissions(m.Author.ID, m.ChannelID)
		if err != nil {
			b.Log.Warn().Err(err).Str("member_id", m.Author.ID).Msg("Failed to read member permissions")
			return false
		}
		return perms&discordgo.PermissionAdministrator != 0
	default:
		return true
	}
}

// adminCooldownKey buckets administrative commands by guild, or by author
// when they arrive in a DM.
func adminCooldownKey(m *discordgo.MessageCreate) string {
	if m.GuildID != "" {
		return m.GuildID
	}
	return "dm:" + m.Author.ID
}

// allowAdmin consumes one administrative invocation and replies with the
// cooldown notice when none is left.
func allowAdmin(ctx context.Context, b *bot.Bot, s *discordgo.Session, m *discordgo.MessageCreate) bool {
	if b.AdminCooldown.Allow(adminCooldownKey(m)) {
		return true
	}
	metrics.RateLimitedTotal.WithLabelValues("admin").Inc()
	zerolog.Ctx(ctx).Info().Msg("Administrative command on cooldown")
	replyError(ctx, b, s, m, b.Lang.Get("Global", "cooldown", map[string]string{"retry_after": "a few minutes"}))
	return false
}

func replyError(ctx context.Context, b *bot.Bot, s *discordgo.Session, m *discordgo.MessageCreate, description string) {
	utils.SendError(ctx, s, m.ChannelID, b.Lang.Get("Global", "generic_error", nil), description)
}

func replySuccess(ctx context.Context, b *bot.Bot, s *discordgo.Session, m *discordgo.MessageCreate, description string) {
	embed := utils.BasicEmbed(b.Lang.Get("Global", "generic_success", nil), description)
	if _, err := utils.SendEmbed(ctx, s, m.ChannelID, embed); err != nil {
		b.Log.Error().Err(err).Str("channel_id", m.ChannelID).Msg("Error sending response")
	}
}

// reportUnexpected logs and reports an error outside the known taxonomy and
// answers with the generic failure message.
func reportUnexpected(ctx context.Context, b *bot.Bot, s *discordgo.Session, m *discordgo.MessageCreate, err error) {
	b.Log.Error().Err(err).
		Str("guild_id", m.GuildID).
		Str("channel_id", m.ChannelID).
		Str("member_id", m.Author.ID).
		Str("content", utils.Truncate(m.Content, 200)).
		Msg("Unexpected error while handling command")
	utils.ReportError(err, map[string]string{"guild_id": m.GuildID, "channel_id": m.ChannelID})
	if logErr := utils.LogError(s, b.GetConfig().LogChannelID, "Command", "Unexpected error", err.Error()); logErr != nil {
		b.Log.Warn().Err(logErr).Msg("Failed to mirror error to log channel")
	}
	replyError(ctx, b, s, m, b.Lang.Get("Global", "generic_error", nil))
}
