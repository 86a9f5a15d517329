package handlers

import (
	"context"

	"saucebot/apikeys"
	"saucebot/bot"
	"saucebot/commands"
	"saucebot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

func handleAPIKey(ctx context.Context, b *bot.Bot, s *discordgo.Session, m *discordgo.MessageCreate, inv *commands.Invocation) {
	log := zerolog.Ctx(ctx)

	// The key must not linger in the channel.
	if err := s.ChannelMessageDelete(m.ChannelID, m.ID, discordgo.WithContext(ctx)); err != nil {
		log.Warn().Err(err).Msg("Failed to delete API key message")
	}

	if !allowAdmin(ctx, b, s, m) {
		return
	}

	if len(inv.Args) != 1 || !apikeys.ValidShape(inv.Args[0]) {
		replyError(ctx, b, s, m, b.Lang.Get("Sauce", "bad_api_key", nil))
		return
	}
	key := inv.Args[0]

	account, err := b.SauceNao.Probe(ctx, key)
	if err != nil {
		log.Error().Err(err).Str("api_key", utils.MaskKey(key)).Msg("An unknown error occurred while assigning an API key to this server")
		replyError(ctx, b, s, m, b.Lang.Get("Sauce", "api_offline", nil))
		return
	}
	if !account.Enhanced() {
		log.Info().Int("account_type", account.Type).Msg("Rejecting an attempt to register a free API key")
		replyError(ctx, b, s, m, b.Lang.Get("Sauce", "api_free", nil))
		return
	}

	if err := b.Keys.Register(ctx, m.GuildID, key); err != nil {
		reportUnexpected(ctx, b, s, m, err)
		return
	}
	replySuccess(ctx, b, s, m, b.Lang.Get("Sauce", "registered_api_key", nil))
}
