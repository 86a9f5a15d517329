package handlers

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"saucebot/bot"
	"saucebot/lang"
	"saucebot/stats"
	"saucebot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostInfo is the process host section of the stats command.
type HostInfo struct {
	CPUPercent    float64
	MemoryPercent float64
	Uptime        time.Duration
	Platform      string
}

func readHostInfo(ctx context.Context) HostInfo {
	var h HostInfo
	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		h.CPUPercent = pct[0]
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		h.MemoryPercent = vm.UsedPercent
	}
	if info, err := host.InfoWithContext(ctx); err == nil {
		h.Uptime = time.Duration(info.Uptime) * time.Second
		h.Platform = fmt.Sprintf("%s %s, %s", info.Platform, info.PlatformVersion, runtime.Version())
	}
	return h
}

func SystemInfoHandler(ctx context.Context, b *bot.Bot, s *discordgo.Session, m *discordgo.MessageCreate) {
	snapshot, err := b.Stats.Get(ctx)
	if err != nil {
		reportUnexpected(ctx, b, s, m, err)
		return
	}

	embed := StatsEmbed(b.Lang, snapshot, readHostInfo(ctx))
	if _, err := utils.SendEmbed(ctx, s, m.ChannelID, embed); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to send stats embed")
	}
}

// StatsEmbed renders usage counters and host status.
func StatsEmbed(c *lang.Catalogue, snap stats.Snapshot, h HostInfo) *discordgo.MessageEmbed {
	embed := utils.BasicEmbed(c.Get("Misc", "stats_title", nil), "")
	count := func(key string, n int) *discordgo.MessageEmbedField {
		return &discordgo.MessageEmbedField{Name: c.Get("Misc", key, nil), Value: strconv.Itoa(n), Inline: true}
	}
	embed.Fields = []*discordgo.MessageEmbedField{
		count("stats_guilds", snap.Guilds),
		count("stats_registered", snap.RegisteredGuilds),
		count("stats_members", snap.Members),
		count("stats_queries", snap.Queries),
		count("stats_cache", snap.CacheEntries),
		{
			Name: c.Get("Misc", "stats_host", nil),
			Value: c.Get("Misc", "stats_host_value", map[string]string{
				"cpu":    fmt.Sprintf("%.1f", h.CPUPercent),
				"memory": fmt.Sprintf("%.1f", h.MemoryPercent),
				"uptime": h.Uptime.Truncate(time.Minute).String(),
			}),
		},
	}
	if h.Platform != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: h.Platform}
	}
	if !snap.ComputedAt.IsZero() {
		embed.Timestamp = snap.ComputedAt.Format(time.RFC3339)
	}
	return embed
}
