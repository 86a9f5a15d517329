package handlers

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"saucebot/lang"
	"saucebot/lookup"
	"saucebot/ratelimit"
	"saucebot/resolver"
	"saucebot/sauce"
	"saucebot/saucenao"
	"saucebot/stats"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalogue(t *testing.T) *lang.Catalogue {
	t.Helper()
	c, err := lang.Load("english", zerolog.Nop())
	require.NoError(t, err)
	return c
}

func TestSauceErrorKey(t *testing.T) {
	c := catalogue(t)
	tests := []struct {
		err   error
		key   string
		known bool
	}{
		{resolver.ErrNoImage, "no_images", true},
		{resolver.ErrInvalidReference, "bad_url", true},
		{resolver.ErrSelectionAbandoned, "", true},
		{ratelimit.ErrGuildRateLimited, "api_limit_exceeded", true},
		{lookup.ErrMemberRateLimited, "member_api_limit_exceeded", true},
		{fmt.Errorf("%w: %w", lookup.ErrProviderQuotaExceeded, saucenao.ErrDailyLimitReached), "api_limit_exceeded", true},
		{fmt.Errorf("%w: %w", lookup.ErrProviderKeyRejected, saucenao.ErrInvalidKey), "rejected_api_key", true},
		{fmt.Errorf("%w: %w", lookup.ErrProviderInvalidImage, saucenao.ErrInvalidImage), "no_images", true},
		{fmt.Errorf("%w: %w", lookup.ErrProviderUnavailable, saucenao.ErrUnavailable), "api_offline", true},
		{lookup.ErrNotFound, "not_found", true},
		{errors.New("disk on fire"), "", false},
	}
	for _, tt := range tests {
		key, known := SauceErrorKey(tt.err)
		assert.Equal(t, tt.key, key, tt.err.Error())
		assert.Equal(t, tt.known, known, tt.err.Error())
		if key != "" {
			assert.NotEqual(t, lang.Missing, c.Get("Sauce", key, nil), key)
		}
	}
}

func TestSauceEmbedVariants(t *testing.T) {
	c := catalogue(t)

	anime, err := sauce.New([]byte(`{
	  "header": {"similarity": "92.5", "thumbnail": "https://t/a.jpg", "index_id": 21, "index_name": "Index #21: Anime"},
	  "data": {"ext_urls": ["https://anidb.net/anime/1"], "source": "Show", "part": "4", "est_time": "00:01:00", "year": "2001"}
	}`))
	require.NoError(t, err)

	embed := SauceEmbed(c, anime, "alice")
	assert.Equal(t, "Show", embed.Title)
	assert.Equal(t, "https://anidb.net/anime/1", embed.URL)
	assert.Equal(t, "Index #21: Anime (92.5% match)", embed.Description)
	assert.Equal(t, "Sauce found for alice", embed.Footer.Text)
	assert.Equal(t, "https://t/a.jpg", embed.Thumbnail.URL)
	require.Len(t, embed.Fields, 3)
	assert.Equal(t, "Episode", embed.Fields[0].Name)
	assert.Equal(t, "4", embed.Fields[0].Value)

	booru, err := sauce.New([]byte(`{
	  "header": {"similarity": "70", "thumbnail": "", "index_id": 9, "index_name": "Index #9: Danbooru"},
	  "data": {"ext_urls": ["https://d/1"], "creator": "someone", "characters": "a, b", "material": ""}
	}`))
	require.NoError(t, err)

	embed = SauceEmbed(c, booru, "bob")
	assert.Equal(t, "a, b", embed.Title, "booru titles fall back to characters")
	require.NotNil(t, embed.Author)
	assert.Equal(t, "someone", embed.Author.Name)
	assert.Nil(t, embed.Thumbnail)
	require.Len(t, embed.Fields, 1)
	assert.Equal(t, "a, b", embed.Fields[0].Value)
}

func TestStatsEmbed(t *testing.T) {
	c := catalogue(t)
	snap := stats.Snapshot{Guilds: 3, RegisteredGuilds: 1, Members: 10, Queries: 42, CacheEntries: 7, ComputedAt: time.Unix(0, 0).UTC()}
	embed := StatsEmbed(c, snap, HostInfo{CPUPercent: 12.34, MemoryPercent: 50, Uptime: 90 * time.Minute})

	require.Len(t, embed.Fields, 6)
	assert.Equal(t, "3", embed.Fields[0].Value)
	assert.Equal(t, "42", embed.Fields[3].Value)
	assert.Equal(t, "CPU 12.3%, memory 50.0%, uptime 1h30m0s", embed.Fields[5].Value)
	assert.Equal(t, "1970-01-01T00:00:00Z", embed.Timestamp)
}

func TestParseBanArgs(t *testing.T) {
	id, reason, ok := parseBanArgs("123456789012345678  being rude ")
	require.True(t, ok)
	assert.Equal(t, "123456789012345678", id)
	assert.Equal(t, "being rude", reason)

	_, _, ok = parseBanArgs("not-an-id")
	assert.False(t, ok)
	_, _, ok = parseBanArgs("")
	assert.False(t, ok)
}

func TestAdminCooldownKey(t *testing.T) {
	inGuild := &discordgo.MessageCreate{Message: &discordgo.Message{GuildID: "g1", Author: &discordgo.User{ID: "u1"}}}
	inDM := &discordgo.MessageCreate{Message: &discordgo.Message{Author: &discordgo.User{ID: "u1"}}}
	assert.Equal(t, "g1", adminCooldownKey(inGuild))
	assert.Equal(t, "dm:u1", adminCooldownKey(inDM))

	// apikey, ban-guild and unban-guild share one bucket per guild.
	cd := ratelimit.NewAdminCooldown(5, 30*time.Minute)
	now := time.Unix(1_700_000_000, 0)
	for i := 0; i < 5; i++ {
		assert.True(t, cd.AllowAt(adminCooldownKey(inGuild), now), "invocation %d", i+1)
	}
	assert.False(t, cd.AllowAt(adminCooldownKey(inGuild), now))
	assert.True(t, cd.AllowAt(adminCooldownKey(inDM), now), "DM invocations use their own bucket")
}
