// Package bot wires the Telegram bot: middleware, commands and callback routing.
package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"github.com/face-hh/spotai/internal/config"
	"github.com/face-hh/spotai/internal/game/round"
	"github.com/face-hh/spotai/internal/game/score"
	"github.com/face-hh/spotai/internal/handler"
	"github.com/face-hh/spotai/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot     *tele.Bot
	cfg     *config.Config
	manager *round.Manager

	playerHandler  *handler.PlayerHandler
	spotAIHandler  *handler.SpotAIHandler
	rankingHandler *handler.RankingHandler
	adminHandler   *handler.AdminHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config         *config.Config
	RoundManager   *round.Manager
	Badges         score.Table
	PlayerService  *service.PlayerService
	ScoreService   *service.ScoreService
	RankingService *service.RankingService
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			log.Error().Err(err).Msg("Handler error")
		},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot:     teleBot,
		cfg:     deps.Config,
		manager: deps.RoundManager,

		playerHandler:  handler.NewPlayerHandler(deps.PlayerService, deps.Badges),
		spotAIHandler:  handler.NewSpotAIHandler(deps.RoundManager, deps.ScoreService),
		rankingHandler: handler.NewRankingHandler(deps.RankingService, deps.Config.Leaderboard.Size),
		adminHandler:   handler.NewAdminHandler(deps.PlayerService),
	}

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg))
	b.bot.Use(LoggingMiddleware())
}

func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", b.playerHandler.HandleStart)
	b.bot.Handle("/help", b.playerHandler.HandleHelp)
	b.bot.Handle("/stats", b.playerHandler.HandleStats)

	b.bot.Handle("/spotai", b.spotAIHandler.HandleSpotAI)
	b.bot.Handle("/leaderboard", b.rankingHandler.HandleLeaderboard)

	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/beta", b.adminHandler.HandleBeta)

	b.bot.Handle(tele.OnCallback, b.handleCallback)
}

// handleCallback routes inline button callbacks by prefix.
func (b *Bot) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		return nil
	}

	// Telebot v3 may add a \f prefix to callback data
	data := strings.TrimPrefix(callback.Data, "\f")

	if strings.HasPrefix(data, round.CallbackPrefix) {
		return b.spotAIHandler.HandleCallback(c)
	}

	log.Debug().Str("data", data).Msg("Unrouted callback")
	return c.Respond(&tele.CallbackResponse{})
}

// Start starts the bot polling. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops polling and cancels the live rounds.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
	b.manager.Shutdown()
}
