package main

import (
	"fmt"

	"saucebot/config"
	"saucebot/model"
	"saucebot/utils"
	"saucebot/utils/database"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

// runtime holds what every subcommand needs before doing its own work.
type runtime struct {
	cfg *model.Config
	log zerolog.Logger
	db  *sqlx.DB
}

// openRuntime loads configuration, builds the logger and opens the database.
// Offline maintenance commands do not need a bot token.
func openRuntime(configPath string, offline bool) (*runtime, error) {
	load := config.Load
	if offline {
		load = config.LoadOffline
	}
	cfg, err := load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := utils.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	db, err := database.Init(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("path", cfg.DatabasePath).Msg("Database ready")

	return &runtime{cfg: cfg, log: logger, db: db}, nil
}

func (r *runtime) Close() {
	if err := r.db.Close(); err != nil {
		r.log.Warn().Err(err).Msg("Error closing database")
	}
}
