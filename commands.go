package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"saucebot/banlist"
	"saucebot/bot"
	"saucebot/cache"
	"saucebot/handlers"
	"saucebot/utils"

	"github.com/getsentry/sentry-go"
	"github.com/spf13/cobra"
)

func rootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "saucebot",
		Short:         "Discord bot that finds the source of images",
		SilenceUsage:  true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file (defaults to ./config.yaml when present)")

	rootCmd.AddCommand(
		runCommand(&configPath),
		purgeCacheCommand(&configPath),
		banCommand(&configPath),
		unbanCommand(&configPath),
	)
	return rootCmd
}

func runCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to Discord and serve commands until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runBot(ctx, *configPath)
		},
	}
}

func runBot(ctx context.Context, configPath string) error {
	rt, err := openRuntime(configPath, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	enabled, err := utils.InitSentry(rt.cfg.SentryDSN)
	if err != nil {
		rt.log.Warn().Err(err).Msg("Sentry initialization failed, error reporting disabled")
	} else if enabled {
		defer sentry.Flush(2 * time.Second)
	}

	b, err := bot.New(rt.cfg, rt.db, rt.log)
	if err != nil {
		return fmt.Errorf("error creating bot: %w", err)
	}
	handlers.Register(b)

	return b.Run(ctx)
}

func purgeCacheCommand(configPath *string) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "purge-cache",
		Short: "Delete cached lookup results older than the cutoff",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(*configPath, true)
			if err != nil {
				return err
			}
			defer rt.Close()

			cutoff := olderThan
			if cutoff <= 0 {
				cutoff = rt.cfg.Cache.TTL
			}
			n, err := cache.New(rt.db, rt.log).Purge(cmd.Context(), cutoff)
			if err != nil {
				return err
			}
			rt.log.Info().Int64("purged", n).Dur("older_than", cutoff).Msg("Cache purged")
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Purge entries older than this (defaults to cache.ttl)")
	return cmd
}

func banCommand(configPath *string) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "ban <guild id>",
		Short: "Add a guild to the banlist without going through Discord",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(*configPath, true)
			if err != nil {
				return err
			}
			defer rt.Close()

			added, err := banlist.New(rt.db, rt.log).Ban(cmd.Context(), args[0], reason)
			if err != nil {
				return err
			}
			if !added {
				rt.log.Info().Str("guild_id", args[0]).Msg("Guild is already banned")
				return nil
			}
			rt.log.Info().Str("guild_id", args[0]).Str("reason", reason).Msg("Guild banned")
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Reason recorded with the ban")
	return cmd
}

func unbanCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "unban <guild id>",
		Short: "Remove a guild from the banlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(*configPath, true)
			if err != nil {
				return err
			}
			defer rt.Close()

			removed, err := banlist.New(rt.db, rt.log).Unban(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("guild %s is not banned", args[0])
			}
			rt.log.Info().Str("guild_id", args[0]).Msg("Guild unbanned")
			return nil
		},
	}
}
