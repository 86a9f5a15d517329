package handlers

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"saucebot/bot"
	"saucebot/commands"
	"saucebot/resolver"
	"saucebot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

const (
	confirmTimeout   = 60 * time.Second
	temporaryMessage = 15 * time.Second
)

var snowflake = regexp.MustCompile(`^\d{15,21}$`)

// parseBanArgs splits "<guild id> [reason]".
func parseBanArgs(rest string) (guildID, reason string, ok bool) {
	guildID, reason, _ = strings.Cut(strings.TrimSpace(rest), " ")
	if !snowflake.MatchString(guildID) {
		return "", "", false
	}
	return guildID, strings.TrimSpace(reason), true
}

func handleBanGuild(ctx context.Context, b *bot.Bot, s *discordgo.Session, m *discordgo.MessageCreate, inv *commands.Invocation) {
	log := zerolog.Ctx(ctx)
	if !allowAdmin(ctx, b, s, m) {
		return
	}

	guildID, reason, ok := parseBanArgs(inv.Rest)
	if !ok {
		replyError(ctx, b, s, m, b.Lang.Get("Admin", "bad_guild_id", nil))
		return
	}

	banned, err := b.Bans.IsBanned(ctx, guildID)
	if err != nil {
		reportUnexpected(ctx, b, s, m, err)
		return
	}
	if banned {
		utils.SendTemporary(ctx, s, m.ChannelID, b.Lang.Get("Admin", "gban_already_banned", nil), temporaryMessage)
		return
	}

	guildName := guildID
	guild, err := s.State.Guild(guildID)
	if err != nil {
		guild = nil
		if _, err := s.ChannelMessageSend(m.ChannelID, b.Lang.Get("Admin", "guild_404", nil), discordgo.WithContext(ctx)); err != nil {
			log.Warn().Err(err).Msg("Failed to send unknown guild notice")
		}
	} else {
		guildName = guild.Name
	}

	chat := bot.NewChat(s, m.Message)
	confirmed, err := confirm(ctx, chat, b.Lang.Get("Admin", "gban_confirm", map[string]string{"guild_name": guildName}))
	if err != nil {
		reportUnexpected(ctx, b, s, m, err)
		return
	}
	if !confirmed {
		return
	}

	if _, err := b.Bans.Ban(ctx, guildID, reason); err != nil {
		reportUnexpected(ctx, b, s, m, err)
		return
	}
	if err := utils.LogWarn(s, b.GetConfig().LogChannelID, "Admin", "Guild banned", fmt.Sprintf("%s (%s) by %s: %s", guildName, guildID, m.Author.ID, reason)); err != nil {
		log.Warn().Err(err).Msg("Failed to mirror ban to log channel")
	}

	if guild == nil {
		replySuccess(ctx, b, s, m, b.Lang.Get("Admin", "gban_banned", map[string]string{"guild_id": guildID}))
		return
	}

	notifyOwner(ctx, b, s, guild, reason)
	utils.SendTemporary(ctx, s, m.ChannelID, b.Lang.Get("Admin", "gban_leaving", map[string]string{
		"guild_name": guild.Name,
		"guild_id":   guild.ID,
	}), temporaryMessage)
	if err := s.GuildLeave(guild.ID, discordgo.WithContext(ctx)); err != nil {
		log.Error().Err(err).Str("target_guild_id", guild.ID).Msg("Failed to leave banned guild")
	}
}

// confirm asks the requester to confirm or abort within confirmTimeout. The
// prompt is deleted afterwards.
func confirm(ctx context.Context, chat *bot.Chat, prompt string) (bool, error) {
	promptID, err := chat.Send(ctx, prompt)
	if err != nil {
		return false, err
	}
	defer chat.Delete(context.WithoutCancel(ctx), promptID)

	for _, emoji := range []string{utils.ConfirmEmoji, utils.AbortEmoji} {
		if err := chat.React(ctx, promptID, emoji); err != nil {
			return false, err
		}
	}

	requester := chat.AuthorID()
	reaction, ok, err := chat.WaitForReaction(ctx, func(r resolver.Reaction) bool {
		return r.MessageID == promptID && r.UserID == requester &&
			(r.Emoji == utils.ConfirmEmoji || r.Emoji == utils.AbortEmoji)
	}, confirmTimeout)
	if err != nil || !ok {
		return false, err
	}
	return reaction.Emoji == utils.ConfirmEmoji, nil
}

func notifyOwner(ctx context.Context, b *bot.Bot, s *discordgo.Session, guild *discordgo.Guild, reason string) {
	log := zerolog.Ctx(ctx)
	dm, err := s.UserChannelCreate(guild.OwnerID, discordgo.WithContext(ctx))
	if err != nil {
		log.Warn().Err(err).Str("owner_id", guild.OwnerID).Msg("Failed to send ban notice to guild owner")
		return
	}

	messages := []string{b.Lang.Get("Admin", "gban_notice", map[string]string{"guild_name": guild.Name})}
	if reason != "" {
		messages = append(messages, b.Lang.Get("Admin", "gban_reason", map[string]string{"reason": reason}))
	}
	for _, msg := range messages {
		if _, err := s.ChannelMessageSend(dm.ID, msg, discordgo.WithContext(ctx)); err != nil {
			log.Warn().Err(err).Str("owner_id", guild.OwnerID).Msg("Failed to send ban notice to guild owner")
			return
		}
	}
}

func handleUnbanGuild(ctx context.Context, b *bot.Bot, s *discordgo.Session, m *discordgo.MessageCreate, inv *commands.Invocation) {
	if !allowAdmin(ctx, b, s, m) {
		return
	}
	guildID, _, ok := parseBanArgs(inv.Rest)
	if !ok {
		replyError(ctx, b, s, m, b.Lang.Get("Admin", "bad_guild_id", nil))
		return
	}

	removed, err := b.Bans.Unban(ctx, guildID)
	if err != nil {
		reportUnexpected(ctx, b, s, m, err)
		return
	}
	if !removed {
		utils.SendTemporary(ctx, s, m.ChannelID, b.Lang.Get("Admin", "gban_not_banned", nil), temporaryMessage)
		return
	}
	replySuccess(ctx, b, s, m, b.Lang.Get("Admin", "gban_unban_success", nil))
}

// refuseBannedGuild leaves a guild that is on the banlist. Invites cannot be
// refused, so leaving right after the join is the best available.
func refuseBannedGuild(ctx context.Context, b *bot.Bot, s *discordgo.Session, g *discordgo.Guild) {
	log := b.Log.With().Str("guild_id", g.ID).Str("guild_name", g.Name).Logger()
	log.Debug().Msg("Verifying whether or not guild has been banned")

	banned, err := b.Bans.IsBanned(ctx, g.ID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to check guild banlist")
		utils.ReportError(err, map[string]string{"guild_id": g.ID})
		return
	}
	if !banned {
		return
	}

	log.Warn().Msg("Banned guild attempted to re-invite the bot")
	if err := s.GuildLeave(g.ID, discordgo.WithContext(ctx)); err != nil {
		log.Error().Err(err).Msg("Failed to leave banned guild")
	}
}
