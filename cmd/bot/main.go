// Package main is the entry point for the SpotAI bot.
package main

import (
	"context"
	"image"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/face-hh/spotai/internal/bot"
	"github.com/face-hh/spotai/internal/config"
	"github.com/face-hh/spotai/internal/game"
	"github.com/face-hh/spotai/internal/game/catalog"
	"github.com/face-hh/spotai/internal/game/render"
	"github.com/face-hh/spotai/internal/game/round"
	"github.com/face-hh/spotai/internal/game/score"
	"github.com/face-hh/spotai/internal/pkg/db"
	"github.com/face-hh/spotai/internal/pkg/lock"
	"github.com/face-hh/spotai/internal/repository"
	"github.com/face-hh/spotai/internal/service"
)

// stores is the player store and round log of the configured driver.
type stores struct {
	players service.PlayerStore
	rounds  service.RoundLog
	closer  io.Closer
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Str("driver", cfg.Database.Driver).Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStores(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open player store")
	}
	defer st.closer.Close()

	cat, err := catalog.Scan(cfg.Assets.AIPath(), cfg.Assets.HumanPath())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to scan image catalog")
	}

	renderer, err := newRenderer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to prepare renderer")
	}

	dealer := game.NewDealer(catalog.NewSelector(cat, catalog.CryptoSource{}), renderer, cfg.Render.Workers)
	manager := round.NewManager(dealer, cfg.Round.IdleTimeout)

	badges := score.DefaultBadges()
	userLock := lock.NewUserLock()

	deps := &bot.Dependencies{
		Config:         cfg,
		RoundManager:   manager,
		Badges:         badges,
		PlayerService:  service.NewPlayerService(st.players, st.rounds, badges, userLock, cfg.Store.Timeout),
		ScoreService:   service.NewScoreService(st.players, st.rounds, badges, userLock, cfg.Store.Timeout),
		RankingService: service.NewRankingService(st.players, cfg.Store.Timeout),
	}

	telegramBot, err := bot.New(deps)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Msg("Bot is starting...")
		telegramBot.Start()
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	telegramBot.Stop()
	log.Info().Msg("Bot stopped gracefully")
}

func openStores(ctx context.Context, cfg *config.DatabaseConfig) (*stores, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		sqlDB, err := db.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := repository.MigrateSQLite(ctx, sqlDB); err != nil {
			sqlDB.Close()
			return nil, err
		}
		return &stores{
			players: repository.NewSQLitePlayerRepository(sqlDB),
			rounds:  repository.NewSQLiteRoundRepository(sqlDB),
			closer:  sqlDB,
		}, nil
	default:
		pool, err := db.OpenPostgres(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := repository.MigratePostgres(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return &stores{
			players: repository.NewPlayerRepository(pool),
			rounds:  repository.NewRoundRepository(pool),
			closer:  poolCloser{pool},
		}, nil
	}
}

type poolCloser struct{ *pgxpool.Pool }

func (p poolCloser) Close() error {
	p.Pool.Close()
	log.Info().Msg("PostgreSQL connection pool closed")
	return nil
}

func newRenderer(cfg *config.Config) (*render.Renderer, error) {
	background, err := render.LoadImage(cfg.Assets.BackgroundPath())
	if err != nil {
		return nil, err
	}
	face, err := render.LoadFace(cfg.Assets.FontPath(), cfg.Render.FontSize)
	if err != nil {
		return nil, err
	}

	rc := cfg.Render
	layout := render.Layout{
		Width:         rc.Width,
		Height:        rc.Height,
		SquareSize:    rc.SquareSize,
		WideCropRatio: rc.WideCropRatio,
		Label:         image.Pt(rc.LabelX, rc.LabelY),
		LabelFormat:   rc.LabelFormat,
		JPEGQuality:   rc.JPEGQuality,
	}
	for i, p := range rc.Slots {
		layout.Slots[i] = image.Pt(p.X, p.Y)
	}

	return render.New(layout, background, face), nil
}
