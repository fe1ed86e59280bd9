package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"github.com/face-hh/spotai/internal/model"
	"github.com/face-hh/spotai/internal/service"
)

// RankingHandler handles ranking-related commands.
type RankingHandler struct {
	rankingService *service.RankingService
	size           int
}

// NewRankingHandler creates a new RankingHandler showing size entries.
func NewRankingHandler(rankingService *service.RankingService, size int) *RankingHandler {
	if size <= 0 {
		size = service.DefaultLeaderboardSize
	}
	return &RankingHandler{
		rankingService: rankingService,
		size:           size,
	}
}

// HandleLeaderboard handles the /leaderboard command.
func (h *RankingHandler) HandleLeaderboard(c tele.Context) error {
	entries, err := h.rankingService.TopN(context.Background(), h.size)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load leaderboard")
		return c.Reply("❌ Failed to load the leaderboard, please try again later")
	}
	return c.Reply(formatLeaderboard(entries, h.size))
}

func formatLeaderboard(entries []model.RankEntry, size int) string {
	if len(entries) == 0 {
		return "📊 Nobody has played yet"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🏆 SpotAI TOP %d\n", size)
	sb.WriteString("━━━━━━━━━━━━━━━\n")

	medals := []string{"🥇", "🥈", "🥉"}
	for _, e := range entries {
		rank := fmt.Sprintf("%d.", e.Rank)
		if e.Rank <= len(medals) {
			rank = medals[e.Rank-1]
		}

		name := e.Username
		if name == "" {
			name = fmt.Sprintf("User%d", e.PlayerID)
		}

		fmt.Fprintf(&sb, "%s %s: %d 🏆\n", rank, name, e.Score)
	}

	sb.WriteString("━━━━━━━━━━━━━━━")
	return sb.String()
}
