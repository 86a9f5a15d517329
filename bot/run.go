package bot

import (
	"context"
	"fmt"
	"time"

	"saucebot/metrics"
	"saucebot/utils"
)

// Run connects to Discord, starts the background tasks and blocks until ctx
// is done.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}
	defer b.Close()
	b.StartedAt = time.Now()

	scheduler := NewScheduler(b)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	cfg := b.GetConfig()
	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, b.Log); err != nil {
				b.Log.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	b.Log.Info().Msg("Bot is now running. Press CTRL-C to exit.")
	if err := utils.LogInfo(b.Session, cfg.LogChannelID, "System", "Startup", "Bot has started successfully."); err != nil {
		b.Log.Warn().Err(err).Msg("Failed to send startup log")
	}

	<-ctx.Done()
	return nil
}
