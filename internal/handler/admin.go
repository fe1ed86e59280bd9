package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"github.com/face-hh/spotai/internal/service"
)

// AdminHandler handles admin-only commands.
type AdminHandler struct {
	playerService *service.PlayerService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(playerService *service.PlayerService) *AdminHandler {
	return &AdminHandler{
		playerService: playerService,
	}
}

// HandleBeta handles the /beta command.
// Format: /beta <user_id> [on|off]
func (h *AdminHandler) HandleBeta(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	targetID, beta, err := parseBetaArgs(c.Args())
	if err != nil {
		return c.Reply(err.Error())
	}

	p, unlocked, err := h.playerService.SetBetaTester(context.Background(), targetID, beta)
	if err != nil {
		log.Error().Err(err).Int64("target_id", targetID).Msg("Failed to set beta tester")
		return c.Reply("❌ Operation failed, please try again later")
	}

	log.Info().
		Int64("admin_id", sender.ID).
		Int64("target_id", targetID).
		Bool("beta_tester", beta).
		Str("operation", "beta").
		Msg("Admin operation executed")

	name := p.Username
	if name == "" {
		name = strconv.FormatInt(targetID, 10)
	}

	msg := fmt.Sprintf("✅ %s (ID: %d) beta tester: %t", name, targetID, p.BetaTester)
	for _, title := range unlocked {
		msg += fmt.Sprintf("\n🏅 New badge: %s", title)
	}
	return c.Reply(msg)
}

// parseBetaArgs parses "<user_id> [on|off]"; the flag defaults to on.
func parseBetaArgs(args []string) (int64, bool, error) {
	usage := fmt.Errorf("❌ Usage: /beta <user_id> [on|off]\nExample: /beta 123456789")
	if len(args) < 1 || len(args) > 2 {
		return 0, false, usage
	}

	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("❌ User ID must be a number")
	}

	if len(args) == 1 {
		return targetID, true, nil
	}
	switch strings.ToLower(args[1]) {
	case "on", "true", "1":
		return targetID, true, nil
	case "off", "false", "0":
		return targetID, false, nil
	default:
		return 0, false, usage
	}
}
