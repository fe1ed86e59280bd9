// Package handler provides Telegram bot command handlers.
package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"github.com/face-hh/spotai/internal/game/score"
	"github.com/face-hh/spotai/internal/service"
)

const helpText = "🕵️ SpotAI: one of two images is AI-generated. Find it!\n\n" +
	"Commands:\n" +
	"/spotai [level] - Start a round\n" +
	"/stats - Your record and badges\n" +
	"/leaderboard - Top players\n" +
	"/help - This message\n\n" +
	"Levels:\n" +
	"1 - Easy to spot\n" +
	"2 - Almost easy to spot\n" +
	"3 - Medium to spot\n" +
	"4 - Hard to spot\n" +
	"5 - Impossible to spot (the AI image is a variation of the original)\n\n" +
	"A right answer wins as many trophies as the level, a wrong one loses as many."

// PlayerHandler handles player-facing account commands.
type PlayerHandler struct {
	playerService *service.PlayerService
	badges        score.Table
}

// NewPlayerHandler creates a new PlayerHandler.
func NewPlayerHandler(playerService *service.PlayerService, badges score.Table) *PlayerHandler {
	return &PlayerHandler{
		playerService: playerService,
		badges:        badges,
	}
}

// HandleStart handles the /start command and registers the player.
func (h *PlayerHandler) HandleStart(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	username := displayName(sender)
	_, created, err := h.playerService.EnsurePlayer(context.Background(), sender.ID, username)
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to ensure player")
		return c.Reply("❌ Failed to create your profile, please try again later")
	}

	if created {
		return c.Reply(fmt.Sprintf("🎉 Welcome @%s!\n\n%s", username, helpText))
	}
	return c.Reply(fmt.Sprintf("👋 Welcome back @%s! Send /spotai to play.", username))
}

// HandleHelp handles the /help command.
func (h *PlayerHandler) HandleHelp(c tele.Context) error {
	return c.Reply(helpText)
}

// HandleStats handles the /stats command.
func (h *PlayerHandler) HandleStats(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	prof, err := h.playerService.Profile(context.Background(), sender.ID, displayName(sender))
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to load profile")
		return c.Reply("❌ Failed to load your stats, please try again later")
	}

	return c.Reply(formatStats(prof, h.badges))
}

func formatStats(prof *service.Profile, badges score.Table) string {
	p := prof.Record

	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 @%s\n", p.Username)
	sb.WriteString("━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(&sb, "🏆 Trophies: %d\n", p.Score)
	fmt.Fprintf(&sb, "🔥 Streak: %d (best %d)\n", p.Streak, p.HighestStreak)
	fmt.Fprintf(&sb, "🎮 Played: %d (%d won, %d lost, %.1f%%)\n", p.GamesPlayed, p.GamesWon, p.GamesLost, p.WinRate())

	if len(p.Badges) > 0 {
		sb.WriteString("🏅 Badges:")
		for _, title := range p.Badges {
			icon := "🏅"
			if b, ok := badges.Lookup(title); ok {
				icon = b.Icon
			}
			fmt.Fprintf(&sb, " %s %s", icon, title)
		}
		sb.WriteString("\n")
	}

	if len(prof.Recent) > 0 {
		sb.WriteString("━━━━━━━━━━━━━━━\n")
		sb.WriteString("Recent rounds:\n")
		for _, r := range prof.Recent {
			mark := "✅"
			if !r.Won {
				mark = "❌"
			}
			delta := fmt.Sprintf("%d", r.Delta)
			if r.Delta >= 0 {
				delta = "+" + delta
			}
			fmt.Fprintf(&sb, "%s L%s %s\n", mark, r.Level, delta)
		}
	}

	sb.WriteString("━━━━━━━━━━━━━━━")
	return sb.String()
}
