package utils

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

const embedColor = 0x2F3136

// BasicEmbed is the house style embed used for command replies.
func BasicEmbed(title, description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: Truncate(description, 4096),
		Color:       embedColor,
	}
}

// SendEmbed posts an embed to a channel.
func SendEmbed(ctx context.Context, s *discordgo.Session, channelID string, embed *discordgo.MessageEmbed) (*discordgo.Message, error) {
	return s.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx))
}

// SendError posts an error embed and logs if that fails.
func SendError(ctx context.Context, s *discordgo.Session, channelID, title, description string) {
	if _, err := SendEmbed(ctx, s, channelID, BasicEmbed(title, description)); err != nil {
		log.Error().Err(err).Str("channel_id", channelID).Msg("Error sending error response")
	}
}

// SendTemporary posts a plain message and deletes it after d.
func SendTemporary(ctx context.Context, s *discordgo.Session, channelID, content string, d time.Duration) {
	msg, err := s.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	if err != nil {
		log.Error().Err(err).Str("channel_id", channelID).Msg("Error sending temporary message")
		return
	}
	time.AfterFunc(d, func() {
		if err := s.ChannelMessageDelete(channelID, msg.ID); err != nil {
			log.Debug().Err(err).Str("message_id", msg.ID).Msg("Temporary message already gone")
		}
	})
}
