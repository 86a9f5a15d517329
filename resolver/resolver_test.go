package resolver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"saucebot/utils"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const promptID = "prompt-1"

type fakeChat struct {
	history   []Message
	reactions chan Reaction

	mu      sync.Mutex
	sent    []string
	reacted []string
	deleted []string
}

func newFakeChat(history ...Message) *fakeChat {
	return &fakeChat{history: history, reactions: make(chan Reaction, 8)}
}

func (f *fakeChat) GuildID() string  { return "guild" }
func (f *fakeChat) AuthorID() string { return "requester" }

func (f *fakeChat) History(_ context.Context, limit int) ([]Message, error) {
	if len(f.history) > limit {
		return f.history[:limit], nil
	}
	return f.history, nil
}

func (f *fakeChat) Send(_ context.Context, content string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, content)
	return promptID, nil
}

func (f *fakeChat) React(_ context.Context, _, emoji string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reacted = append(f.reacted, emoji)
	return nil
}

func (f *fakeChat) Delete(_ context.Context, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeChat) WaitForReaction(ctx context.Context, match func(Reaction) bool, timeout time.Duration) (Reaction, bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return Reaction{}, false, ctx.Err()
		case <-timer.C:
			return Reaction{}, false, nil
		case re := <-f.reactions:
			if match(re) {
				return re, true, nil
			}
		}
	}
}

func newTestResolver() *Resolver {
	r := New(zerolog.Nop(), nil)
	r.timeout = 50 * time.Millisecond
	return r
}

func keycap(t *testing.T, n int) string {
	t.Helper()
	emoji, err := utils.KeycapEmoji(n)
	require.NoError(t, err)
	return emoji
}

func threeImages() Message {
	return Message{ID: "m1", Attachments: []Attachment{
		{URL: "https://cdn.example.com/a.png", Filename: "a.png"},
		{URL: "https://cdn.example.com/b.jpg", Filename: "b.jpg"},
		{URL: "https://cdn.example.com/c.webp", Filename: "c.webp"},
	}}
}

func TestResolveExplicitArgument(t *testing.T) {
	r := newTestResolver()
	chat := newFakeChat()

	ref, err := r.Resolve(context.Background(), chat, "<https://example.com/x.png>")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/x.png", ref)

	_, err = r.Resolve(context.Background(), chat, "not a url")
	assert.ErrorIs(t, err, ErrInvalidReference)
}

func TestResolveSingleAttachmentFromHistory(t *testing.T) {
	r := newTestResolver()
	chat := newFakeChat(
		Message{ID: "newest", Content: "hello"},
		Message{ID: "m2", Attachments: []Attachment{
			{URL: "https://cdn.example.com/notes.txt", Filename: "notes.txt"},
			{URL: "https://cdn.example.com/cat.PNG", Filename: "cat.PNG"},
		}},
		Message{ID: "older", Attachments: []Attachment{{URL: "https://cdn.example.com/old.png", Filename: "old.png"}}},
	)

	ref, err := r.Resolve(context.Background(), chat, "")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/cat.PNG", ref)
	assert.Empty(t, chat.sent, "no prompt for a single candidate")
}

func TestResolveImageLinkInMessageBody(t *testing.T) {
	r := newTestResolver()
	chat := newFakeChat(Message{Content: "https://example.com/art.jpeg"})

	ref, err := r.Resolve(context.Background(), chat, "")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/art.jpeg", ref)
}

func TestResolveVideoStillFrame(t *testing.T) {
	r := newTestResolver()
	chat := newFakeChat(Message{Attachments: []Attachment{{
		URL:      "https://cdn.example.com/clip.mp4",
		ProxyURL: "https://media.example.net/attachments/1/2/clip.mp4",
		Filename: "clip.mp4",
	}}})

	ref, err := r.Resolve(context.Background(), chat, "")
	require.NoError(t, err)
	assert.Equal(t, "https://media.example.net/attachments/1/2/clip.mp4?format=jpeg", ref)
}

func TestResolveNoImage(t *testing.T) {
	r := newTestResolver()
	history := make([]Message, 0, 60)
	for i := 0; i < 60; i++ {
		history = append(history, Message{Content: "just text"})
	}
	// Beyond the scanned window.
	history[55].Attachments = []Attachment{{URL: "https://cdn.example.com/late.png", Filename: "late.png"}}

	_, err := r.Resolve(context.Background(), newFakeChat(history...), "")
	assert.ErrorIs(t, err, ErrNoImage)
}

func TestResolveSelectionPicksReactedCandidate(t *testing.T) {
	r := newTestResolver()
	r.timeout = time.Second
	chat := newFakeChat(threeImages())

	chat.reactions <- Reaction{MessageID: promptID, UserID: "intruder", Emoji: keycap(t, 1)}
	chat.reactions <- Reaction{MessageID: "elsewhere", UserID: "requester", Emoji: keycap(t, 1)}
	chat.reactions <- Reaction{MessageID: promptID, UserID: "requester", Emoji: keycap(t, 5)}
	chat.reactions <- Reaction{MessageID: promptID, UserID: "requester", Emoji: keycap(t, 2)}

	ref, err := r.Resolve(context.Background(), chat, "")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/b.jpg", ref)

	assert.Len(t, chat.sent, 1)
	assert.Equal(t, []string{keycap(t, 1), keycap(t, 2), keycap(t, 3)}, chat.reacted)
	assert.Equal(t, []string{promptID}, chat.deleted)
}

func TestResolveSelectionTimesOut(t *testing.T) {
	r := newTestResolver()
	chat := newFakeChat(threeImages())
	chat.reactions <- Reaction{MessageID: promptID, UserID: "intruder", Emoji: keycap(t, 3)}

	ref, err := r.Resolve(context.Background(), chat, "")
	assert.ErrorIs(t, err, ErrSelectionAbandoned)
	assert.Empty(t, ref)
	assert.Equal(t, []string{promptID}, chat.deleted, "prompt is retracted")
}

func TestResolveSelectionCancelled(t *testing.T) {
	r := newTestResolver()
	r.timeout = time.Minute
	chat := newFakeChat(threeImages())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := r.Resolve(ctx, chat, "")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, []string{promptID}, chat.deleted)
}

func TestCandidatesCap(t *testing.T) {
	msg := Message{}
	for i := 0; i < 12; i++ {
		msg.Attachments = append(msg.Attachments, Attachment{URL: "https://cdn.example.com/x.png", Filename: "x.png"})
	}
	assert.Len(t, Candidates(msg), MaxCandidates)
}

func TestStillFrameURL(t *testing.T) {
	assert.Equal(t, "", StillFrameURL(""))
	assert.Equal(t, "https://m/a.mp4?ex=1&format=jpeg", StillFrameURL("https://m/a.mp4?ex=1"))
}
