package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"saucebot/bot"
	"saucebot/commands"
	"saucebot/lang"
	"saucebot/lookup"
	"saucebot/metrics"
	"saucebot/ratelimit"
	"saucebot/resolver"
	"saucebot/sauce"
	"saucebot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

const footerIcon = "https://i.imgur.com/Mw109wP.png"

func handleSauce(ctx context.Context, b *bot.Bot, s *discordgo.Session, m *discordgo.MessageCreate, inv *commands.Invocation) {
	log := zerolog.Ctx(ctx)

	err := b.GuildCooldown.Admit(ctx, m.GuildID, func(ctx context.Context, guildID string) (bool, error) {
		registered, err := b.Keys.Registered(ctx, guildID)
		if registered {
			log.Info().Msg("Guild has an enhanced API key; ignoring triggered guild API limit")
		}
		return registered, err
	})
	if err != nil {
		if errors.Is(err, ratelimit.ErrGuildRateLimited) {
			log.Info().Msg("Guild has exceeded their available API queries for the day")
			metrics.RateLimitedTotal.WithLabelValues("guild").Inc()
		}
		respondSauceError(ctx, b, s, m, err)
		return
	}

	arg := ""
	if len(inv.Args) > 0 {
		arg = inv.Args[0]
	}
	chat := bot.NewChat(s, m.Message)
	ref, err := b.Resolver.Resolve(ctx, chat, arg)
	if err != nil {
		respondSauceError(ctx, b, s, m, err)
		return
	}
	log.Info().Str("reference", ref).Msg("Looking up image source")

	res, err := b.Lookup.Resolve(ctx, lookup.Request{
		GuildID:     m.GuildID,
		MemberID:    m.Author.ID,
		Reference:   ref,
		WantPreview: true,
	})
	if err != nil {
		respondSauceError(ctx, b, s, m, err)
		return
	}

	embed := SauceEmbed(b.Lang, res.Source, displayName(m))
	if _, err := utils.SendEmbed(ctx, s, m.ChannelID, embed); err != nil {
		log.Error().Err(err).Msg("Failed to send sauce embed")
		return
	}

	if res.Preview != nil {
		sendPreview(ctx, b, s, m, res.Preview)
	}
}

func sendPreview(ctx context.Context, b *bot.Bot, s *discordgo.Session, m *discordgo.MessageCreate, p *lookup.Preview) {
	log := zerolog.Ctx(ctx)
	if p.Adult && !channelIsNSFW(s, m.ChannelID) {
		log.Info().Msg("Suppressing age restricted preview outside an NSFW channel")
		if _, err := s.ChannelMessageSend(m.ChannelID, b.Lang.Get("Sauce", "preview_nsfw", nil), discordgo.WithContext(ctx)); err != nil {
			log.Warn().Err(err).Msg("Failed to send preview notice")
		}
		return
	}

	_, err := s.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
		Files: []*discordgo.File{{
			Name:        "preview.mp4",
			ContentType: "video/mp4",
			Reader:      bytes.NewReader(p.Video),
		}},
	}, discordgo.WithContext(ctx))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to upload video preview")
	}
}

func channelIsNSFW(s *discordgo.Session, channelID string) bool {
	ch, err := s.State.Channel(channelID)
	if err != nil {
		if ch, err = s.Channel(channelID); err != nil {
			return false
		}
	}
	return ch.NSFW
}

func displayName(m *discordgo.MessageCreate) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	if m.Author.GlobalName != "" {
		return m.Author.GlobalName
	}
	return m.Author.Username
}

func respondSauceError(ctx context.Context, b *bot.Bot, s *discordgo.Session, m *discordgo.MessageCreate, err error) {
	key, known := SauceErrorKey(err)
	if !known {
		reportUnexpected(ctx, b, s, m, err)
		return
	}
	if key == "" {
		return
	}
	zerolog.Ctx(ctx).Info().Err(err).Msg("Sauce lookup refused")
	replyError(ctx, b, s, m, b.Lang.Get("Sauce", key, map[string]string{"mention": m.Author.Mention()}))
}

// SauceErrorKey maps a sauce command failure to its message key in the Sauce
// category. An empty key with known set means the failure needs no reply.
func SauceErrorKey(err error) (key string, known bool) {
	switch {
	case errors.Is(err, resolver.ErrSelectionAbandoned):
		return "", true
	case errors.Is(err, resolver.ErrNoImage), errors.Is(err, lookup.ErrProviderInvalidImage):
		return "no_images", true
	case errors.Is(err, resolver.ErrInvalidReference):
		return "bad_url", true
	case errors.Is(err, ratelimit.ErrGuildRateLimited), errors.Is(err, lookup.ErrProviderQuotaExceeded):
		return "api_limit_exceeded", true
	case errors.Is(err, lookup.ErrMemberRateLimited):
		return "member_api_limit_exceeded", true
	case errors.Is(err, lookup.ErrProviderKeyRejected):
		return "rejected_api_key", true
	case errors.Is(err, lookup.ErrProviderUnavailable):
		return "api_offline", true
	case errors.Is(err, lookup.ErrNotFound):
		return "not_found", true
	default:
		return "", false
	}
}

// SauceEmbed renders a result. Optional fields depend on the variant.
func SauceEmbed(c *lang.Catalogue, src sauce.Source, requester string) *discordgo.MessageEmbed {
	info := src.Info()
	title := info.Title
	if title == "" {
		title = info.AuthorName
	}
	if title == "" {
		title = "Untitled"
	}

	embed := utils.BasicEmbed(utils.Truncate(title, 256), c.Get("Sauce", "match_title", map[string]string{
		"index":      info.IndexName,
		"similarity": fmt.Sprintf("%.1f", info.Similarity),
	}))
	embed.URL = info.URL
	embed.Footer = &discordgo.MessageEmbedFooter{
		Text:    c.Get("Sauce", "found", map[string]string{"display_name": requester}),
		IconURL: footerIcon,
	}
	if info.Thumbnail != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: info.Thumbnail}
	}
	if info.AuthorName != "" && info.Title != "" {
		embed.Author = &discordgo.MessageEmbedAuthor{Name: info.AuthorName, URL: info.AuthorURL}
	}

	field := func(key, value string) {
		if value = strings.TrimSpace(value); value != "" {
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
				Name:   c.Get("Sauce", key, nil),
				Value:  utils.Truncate(value, 1024),
				Inline: true,
			})
		}
	}

	switch v := src.(type) {
	case *sauce.AnimeSource:
		field("episode", v.Episode)
		field("timestamp", v.Timestamp)
		field("year", v.Year)
	case *sauce.VideoSource:
		field("episode", v.Episode)
		field("timestamp", v.Timestamp)
		field("year", v.Year)
	case *sauce.MangaSource:
		field("chapter", v.Chapter)
	case *sauce.BooruSource:
		field("characters", strings.Join(v.Characters, ", "))
		field("material", strings.Join(v.Material, ", "))
	}
	return embed
}
