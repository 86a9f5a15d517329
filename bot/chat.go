package bot

import (
	"context"
	"time"

	"saucebot/resolver"
	"saucebot/utils"

	"github.com/bwmarrin/discordgo"
)

// Chat is the Discord side of a single command invocation.
type Chat struct {
	session   *discordgo.Session
	channelID string
	guildID   string
	authorID  string
}

func NewChat(s *discordgo.Session, m *discordgo.Message) *Chat {
	return &Chat{session: s, channelID: m.ChannelID, guildID: m.GuildID, authorID: m.Author.ID}
}

func (c *Chat) GuildID() string   { return c.guildID }
func (c *Chat) AuthorID() string  { return c.authorID }
func (c *Chat) ChannelID() string { return c.channelID }

func (c *Chat) History(ctx context.Context, limit int) ([]resolver.Message, error) {
	msgs, err := c.session.ChannelMessages(c.channelID, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	out := make([]resolver.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, convertMessage(m))
	}
	return out, nil
}

func convertMessage(m *discordgo.Message) resolver.Message {
	msg := resolver.Message{ID: m.ID, Content: m.Content}
	if m.Author != nil {
		msg.AuthorID = m.Author.ID
	}
	for _, a := range m.Attachments {
		msg.Attachments = append(msg.Attachments, resolver.Attachment{
			URL:         a.URL,
			ProxyURL:    a.ProxyURL,
			Filename:    a.Filename,
			ContentType: a.ContentType,
		})
	}
	return msg
}

func (c *Chat) Send(ctx context.Context, content string) (string, error) {
	msg, err := utils.SendEmbed(ctx, c.session, c.channelID, utils.BasicEmbed("", content))
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (c *Chat) React(ctx context.Context, messageID, emoji string) error {
	return c.session.MessageReactionAdd(c.channelID, messageID, emoji, discordgo.WithContext(ctx))
}

func (c *Chat) Delete(ctx context.Context, messageID string) error {
	return c.session.ChannelMessageDelete(c.channelID, messageID, discordgo.WithContext(ctx))
}

// WaitForReaction listens for reaction events until one satisfies match,
// timeout elapses or ctx is done. The handler is removed before returning.
func (c *Chat) WaitForReaction(ctx context.Context, match func(resolver.Reaction) bool, timeout time.Duration) (resolver.Reaction, bool, error) {
	found := make(chan resolver.Reaction, 1)
	remove := c.session.AddHandler(func(_ *discordgo.Session, r *discordgo.MessageReactionAdd) {
		re := resolver.Reaction{MessageID: r.MessageID, UserID: r.UserID, Emoji: r.Emoji.Name}
		if !match(re) {
			return
		}
		select {
		case found <- re:
		default:
		}
	})
	defer remove()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case re := <-found:
		return re, true, nil
	case <-timer.C:
		return resolver.Reaction{}, false, nil
	case <-ctx.Done():
		return resolver.Reaction{}, false, ctx.Err()
	}
}
