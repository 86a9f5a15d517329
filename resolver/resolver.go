// Package resolver works out which image a sauce command is about.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"saucebot/utils"

	"github.com/rs/zerolog"
)

const (
	// HistoryLimit is how many recent messages are scanned for an image.
	HistoryLimit = 50
	// MaxCandidates caps the choices offered in a selection prompt.
	MaxCandidates = 10
	// SelectionTimeout is how long the requester has to pick a candidate.
	SelectionTimeout = 60 * time.Second
)

var (
	ErrNoImage            = errors.New("no image found")
	ErrInvalidReference   = errors.New("invalid image reference")
	ErrSelectionAbandoned = errors.New("image selection abandoned")
)

var (
	imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}
	videoExts = map[string]bool{".mp4": true, ".webm": true, ".mov": true}
)

// PromptFunc renders the selection prompt for numbered candidates.
type PromptFunc func(candidates []string) string

type Resolver struct {
	log     zerolog.Logger
	prompt  PromptFunc
	timeout time.Duration
}

func New(logger zerolog.Logger, prompt PromptFunc) *Resolver {
	if prompt == nil {
		prompt = defaultPrompt
	}
	return &Resolver{
		log:     logger.With().Str("component", "resolver").Logger(),
		prompt:  prompt,
		timeout: SelectionTimeout,
	}
}

// Resolve returns the image reference for a command. An explicit argument
// wins; otherwise recent channel history is searched and, if the newest
// message with images holds several, the requester is asked to pick one.
func (r *Resolver) Resolve(ctx context.Context, chat Chat, arg string) (string, error) {
	log := r.log.With().Str("guild_id", chat.GuildID()).Str("member_id", chat.AuthorID()).Logger()

	if arg = utils.CleanURLArgument(arg); arg != "" {
		if !utils.ValidateURL(arg) {
			return "", ErrInvalidReference
		}
		return arg, nil
	}

	candidates, err := r.scan(ctx, chat)
	if err != nil {
		return "", err
	}

	var ref string
	switch len(candidates) {
	case 0:
		return "", ErrNoImage
	case 1:
		ref = candidates[0]
	default:
		ref, err = r.choose(ctx, chat, candidates)
		if err != nil {
			return "", err
		}
	}

	log.Debug().Str("reference", ref).Msg("Resolved image reference")
	if !utils.ValidateURL(ref) {
		return "", ErrInvalidReference
	}
	return ref, nil
}

func (r *Resolver) scan(ctx context.Context, chat Chat) ([]string, error) {
	history, err := chat.History(ctx, HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to read channel history: %w", err)
	}

	for _, msg := range history {
		if found := Candidates(msg); len(found) > 0 {
			return found, nil
		}
		if content := strings.TrimSpace(msg.Content); utils.IsImageURL(content) {
			return []string{content}, nil
		}
	}
	return nil, nil
}

// Candidates returns the searchable references among a message's
// attachments, at most MaxCandidates. Videos qualify through a still frame
// taken from the media proxy.
func Candidates(msg Message) []string {
	var out []string
	for _, a := range msg.Attachments {
		if len(out) == MaxCandidates {
			break
		}
		ext := strings.ToLower(path.Ext(a.Filename))
		switch {
		case imageExts[ext] || strings.HasPrefix(a.ContentType, "image/"):
			out = append(out, a.URL)
		case videoExts[ext] || strings.HasPrefix(a.ContentType, "video/"):
			if still := StillFrameURL(a.ProxyURL); still != "" {
				out = append(out, still)
			}
		}
	}
	return out
}

// StillFrameURL asks the media proxy for a JPEG frame of a video.
func StillFrameURL(proxyURL string) string {
	if proxyURL == "" {
		return ""
	}
	if strings.Contains(proxyURL, "?") {
		return proxyURL + "&format=jpeg"
	}
	return proxyURL + "?format=jpeg"
}

// choose prompts the requester with numbered markers and waits for their
// pick. The prompt is always retracted.
func (r *Resolver) choose(ctx context.Context, chat Chat, candidates []string) (string, error) {
	promptID, err := chat.Send(ctx, r.prompt(candidates))
	if err != nil {
		return "", fmt.Errorf("failed to send selection prompt: %w", err)
	}
	defer func() {
		// The wait may have ended because ctx was cancelled.
		if err := chat.Delete(context.WithoutCancel(ctx), promptID); err != nil {
			r.log.Warn().Err(err).Str("message_id", promptID).Msg("Failed to delete selection prompt")
		}
	}()

	markers := make(map[string]int, len(candidates))
	for i := range candidates {
		emoji, err := utils.KeycapEmoji(i + 1)
		if err != nil {
			return "", err
		}
		markers[emoji] = i
		if err := chat.React(ctx, promptID, emoji); err != nil {
			return "", fmt.Errorf("failed to add selection marker: %w", err)
		}
	}

	requester := chat.AuthorID()
	reaction, ok, err := chat.WaitForReaction(ctx, func(re Reaction) bool {
		if re.MessageID != promptID || re.UserID != requester {
			return false
		}
		_, known := markers[re.Emoji]
		return known
	}, r.timeout)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrSelectionAbandoned
	}
	return candidates[markers[reaction.Emoji]], nil
}

func defaultPrompt(candidates []string) string {
	var b strings.Builder
	b.WriteString("Multiple images found, react with the number of the one to search:")
	for i, c := range candidates {
		emoji, _ := utils.KeycapEmoji(i + 1)
		fmt.Fprintf(&b, "\n%s %s", emoji, path.Base(strings.SplitN(c, "?", 2)[0]))
	}
	return b.String()
}
