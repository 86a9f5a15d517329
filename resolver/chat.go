package resolver

import (
	"context"
	"time"
)

type Attachment struct {
	URL         string
	ProxyURL    string
	Filename    string
	ContentType string
}

type Message struct {
	ID          string
	AuthorID    string
	Content     string
	Attachments []Attachment
}

type Reaction struct {
	MessageID string
	UserID    string
	Emoji     string
}

// Chat is the part of the chat transport a command needs: who asked, where,
// the channel's recent history and a way to prompt for a choice.
type Chat interface {
	GuildID() string
	AuthorID() string
	// History returns up to limit recent messages, newest first.
	History(ctx context.Context, limit int) ([]Message, error)
	Send(ctx context.Context, content string) (messageID string, err error)
	React(ctx context.Context, messageID, emoji string) error
	Delete(ctx context.Context, messageID string) error
	// WaitForReaction blocks until a reaction satisfying match arrives. It
	// returns false when timeout elapses first.
	WaitForReaction(ctx context.Context, match func(Reaction) bool, timeout time.Duration) (Reaction, bool, error)
}
