package handlers

import (
	"context"
	"fmt"
	"time"

	"saucebot/bot"
	"saucebot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

const projectURL = "https://github.com/FujiMakoto/saucebot"

func handlePing(ctx context.Context, b *bot.Bot, s *discordgo.Session, m *discordgo.MessageCreate) {
	log := zerolog.Ctx(ctx)
	log.Debug().Msg("Pong!")

	serverDelay := millis(time.Since(m.Timestamp))
	repl := map[string]string{
		"server":    serverDelay,
		"message":   "Pending...",
		"heartbeat": s.HeartbeatLatency().Round(time.Millisecond).String(),
	}

	embed := utils.BasicEmbed("", b.Lang.Get("Misc", "ping_response", repl))
	sent := time.Now()
	msg, err := utils.SendEmbed(ctx, s, m.ChannelID, embed)
	if err != nil {
		log.Error().Err(err).Msg("Failed to send ping response")
		return
	}

	repl["message"] = millis(time.Since(sent))
	embed.Description = b.Lang.Get("Misc", "ping_response", repl)
	if _, err := s.ChannelMessageEditEmbed(m.ChannelID, msg.ID, embed, discordgo.WithContext(ctx)); err != nil {
		log.Warn().Err(err).Msg("Failed to update ping response")
	}
}

func millis(d time.Duration) string {
	return fmt.Sprintf("%.1f", float64(d)/float64(time.Millisecond))
}

func handleInfo(ctx context.Context, b *bot.Bot, s *discordgo.Session, m *discordgo.MessageCreate) {
	embed := utils.BasicEmbed(b.Lang.Get("Misc", "info_title", nil), b.Lang.Get("Misc", "info_desc", nil))
	embed.URL = projectURL
	if s.State.User != nil {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: s.State.User.AvatarURL("")}
	}
	if _, err := utils.SendEmbed(ctx, s, m.ChannelID, embed); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to send info embed")
	}
}
