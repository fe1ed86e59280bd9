package handler

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"github.com/face-hh/spotai/internal/game/catalog"
	"github.com/face-hh/spotai/internal/game/round"
	"github.com/face-hh/spotai/internal/game/score"
	"github.com/face-hh/spotai/internal/service"
)

// DealTimeout bounds selecting, decoding and rendering one artifact.
const DealTimeout = 20 * time.Second

// roundMessage is the chat message that shows a round.
type roundMessage struct {
	mu       sync.Mutex
	msg      *tele.Message
	resolved bool
}

func (m *roundMessage) set(msg *tele.Message, resolved bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg != nil {
		m.msg = msg
	}
	m.resolved = resolved
}

func (m *roundMessage) get() (*tele.Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.msg, m.resolved
}

// SpotAIHandler runs rounds in chat: /spotai and the round buttons.
type SpotAIHandler struct {
	manager      *round.Manager
	scoreService *service.ScoreService
	messages     sync.Map // round id -> *roundMessage
}

// NewSpotAIHandler creates a new SpotAIHandler.
func NewSpotAIHandler(manager *round.Manager, scoreService *service.ScoreService) *SpotAIHandler {
	return &SpotAIHandler{
		manager:      manager,
		scoreService: scoreService,
	}
}

// HandleSpotAI handles /spotai [level]. Without a level any pair may be drawn.
func (h *SpotAIHandler) HandleSpotAI(c tele.Context) error {
	sender := c.Sender()
	chat := c.Chat()
	if sender == nil || chat == nil {
		return nil
	}

	level := parseLevelArg(c.Args())

	ctx, cancel := context.WithTimeout(context.Background(), DealTimeout)
	defer cancel()

	view := &roundMessage{}
	r, err := h.manager.Arm(ctx, sender.ID, level, func(s round.Snapshot) {
		h.onExpire(c.Bot(), s)
	})
	if err != nil {
		if errors.Is(err, catalog.ErrNoMatchingPairs) {
			return c.Reply("❌ No images for level " + level + ". Try /spotai without a level.")
		}
		log.Error().Err(err).Int64("user_id", sender.ID).Str("level", level).Msg("Failed to arm round")
		return c.Reply("❌ Could not prepare a round, please try again later")
	}
	h.messages.Store(r.ID, view)

	snap := r.Snapshot()
	photo := &tele.Photo{
		File:    tele.FromReader(bytes.NewReader(snap.Artifact.Image)),
		Caption: round.FormatRoundCaption(snap.Artifact.Level, h.manager.IdleTimeout()),
	}
	msg, err := c.Bot().Send(chat, photo, round.BuildChoicePanel(snap))
	if err != nil {
		log.Error().Err(err).Str("round_id", r.ID).Msg("Failed to send round")
		return err
	}
	view.set(msg, false)

	return nil
}

// HandleCallback handles the choice and play-again buttons.
func (h *SpotAIHandler) HandleCallback(c tele.Context) error {
	callback := c.Callback()
	sender := c.Sender()
	if callback == nil || sender == nil {
		return nil
	}

	action, token := round.DecodeCallback(strings.TrimPrefix(callback.Data, "\f"))
	switch action {
	case round.ActionPick:
		return h.handlePick(c, token)
	case round.ActionAgain:
		return h.handleAgain(c, token)
	default:
		return c.Respond(&tele.CallbackResponse{Text: "❌ Invalid action"})
	}
}

func (h *SpotAIHandler) handlePick(c tele.Context, token string) error {
	sender := c.Sender()

	outcome, err := h.manager.SubmitChoice(token, sender.ID)
	if err != nil {
		return h.respondRoundError(c, err)
	}

	username := displayName(sender)
	art := outcome.Artifact

	ctx, cancel := context.WithTimeout(context.Background(), DealTimeout)
	defer cancel()

	res, err := h.scoreService.ApplyOutcome(ctx, sender.ID, username, art.Level, art.Prompt, outcome.Won)
	if err != nil {
		if errors.Is(err, score.ErrInvalidLevel) {
			log.Error().Err(err).Str("round_id", outcome.Round.RoundID).Str("level", art.Level).Msg("Round image has no level")
			h.editResult(c, outcome.Round, "⚠️ Sorry, this image has no level and cannot be scored.")
			return c.Respond(&tele.CallbackResponse{})
		}
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to apply outcome")
		return c.Respond(&tele.CallbackResponse{
			Text:      "❌ Failed to save your result",
			ShowAlert: true,
		})
	}

	caption := round.FormatResultCaption(round.ResultView{
		Won:       outcome.Won,
		Score:     res.Record.Score,
		Delta:     res.Delta,
		Streak:    res.Record.Streak,
		AISlot:    art.AISlot,
		Prompt:    art.Prompt,
		NewBadges: res.NewBadges,
	})
	h.editResult(c, outcome.Round, caption)

	text := "✅ Correct!"
	if !outcome.Won {
		text = "❌ Wrong!"
	}
	return c.Respond(&tele.CallbackResponse{Text: text})
}

func (h *SpotAIHandler) editResult(c tele.Context, snap round.Snapshot, caption string) {
	msg := c.Callback().Message
	if msg == nil {
		return
	}
	if _, err := c.Bot().EditCaption(msg, caption, round.BuildRestartPanel(snap)); err != nil {
		log.Debug().Err(err).Str("round_id", snap.RoundID).Msg("Failed to edit round result")
	}
	if view, ok := h.view(snap.RoundID); ok {
		view.set(msg, true)
	}
}

func (h *SpotAIHandler) handleAgain(c tele.Context, token string) error {
	sender := c.Sender()

	ctx, cancel := context.WithTimeout(context.Background(), DealTimeout)
	defer cancel()

	snap, err := h.manager.Restart(ctx, token, sender.ID)
	if err != nil {
		return h.respondRoundError(c, err)
	}

	msg := c.Callback().Message
	if msg == nil {
		return c.Respond(&tele.CallbackResponse{})
	}

	photo := &tele.Photo{
		File:    tele.FromReader(bytes.NewReader(snap.Artifact.Image)),
		Caption: round.FormatRoundCaption(snap.Artifact.Level, h.manager.IdleTimeout()),
	}
	edited, err := c.Bot().Edit(msg, photo, round.BuildChoicePanel(snap))
	if err != nil {
		log.Error().Err(err).Str("round_id", snap.RoundID).Msg("Failed to show restarted round")
		return c.Respond(&tele.CallbackResponse{
			Text:      "❌ Failed to start a new round",
			ShowAlert: true,
		})
	}
	if view, ok := h.view(snap.RoundID); ok {
		view.set(edited, false)
	}

	return c.Respond(&tele.CallbackResponse{})
}

// respondRoundError answers a rejected interaction. Foreign and stale
// clicks are acknowledged silently.
func (h *SpotAIHandler) respondRoundError(c tele.Context, err error) error {
	switch {
	case errors.Is(err, round.ErrForbidden), errors.Is(err, round.ErrUnknownToken):
		return c.Respond(&tele.CallbackResponse{})
	case errors.Is(err, round.ErrExpired), errors.Is(err, round.ErrNotArmed):
		return c.Respond(&tele.CallbackResponse{Text: "⌛ This round has timed out"})
	case errors.Is(err, catalog.ErrNoMatchingPairs):
		return c.Respond(&tele.CallbackResponse{
			Text:      "❌ No more images for this level",
			ShowAlert: true,
		})
	default:
		log.Error().Err(err).Msg("Round interaction failed")
		return c.Respond(&tele.CallbackResponse{
			Text:      "❌ Something went wrong, please try again",
			ShowAlert: true,
		})
	}
}

// onExpire runs on the round timer. An unanswered round shows the timeout
// caption; a finished one only loses its buttons.
func (h *SpotAIHandler) onExpire(bot *tele.Bot, s round.Snapshot) {
	v, ok := h.messages.LoadAndDelete(s.RoundID)
	if !ok {
		return
	}
	msg, resolved := v.(*roundMessage).get()
	if msg == nil {
		return
	}

	var err error
	if resolved {
		_, err = bot.EditReplyMarkup(msg, nil)
	} else {
		_, err = bot.EditCaption(msg, round.FormatTimeoutCaption(h.manager.IdleTimeout()))
	}
	if err != nil {
		log.Debug().Err(err).Str("round_id", s.RoundID).Msg("Failed to edit expired round")
	}
}

func (h *SpotAIHandler) view(roundID string) (*roundMessage, bool) {
	v, ok := h.messages.Load(roundID)
	if !ok {
		return nil, false
	}
	return v.(*roundMessage), true
}

// parseLevelArg returns the requested level, or "" for any level.
func parseLevelArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(args[0])), "L")
}

func displayName(u *tele.User) string {
	if u.Username != "" {
		return u.Username
	}
	return u.FirstName
}
